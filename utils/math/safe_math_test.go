// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	require := require.New(t)

	sum, err := Add(uint256.NewInt(1), uint256.NewInt(2))
	require.NoError(err)
	require.Equal(uint256.NewInt(3), sum)

	sum, err = Add(MaxUint256, new(uint256.Int))
	require.NoError(err)
	require.Equal(MaxUint256, sum)

	_, err = Add(MaxUint256, uint256.NewInt(1))
	require.ErrorIs(err, ErrOverflow)
}

func TestSub(t *testing.T) {
	require := require.New(t)

	diff, err := Sub(uint256.NewInt(5), uint256.NewInt(5))
	require.NoError(err)
	require.True(diff.IsZero())

	_, err = Sub(uint256.NewInt(4), uint256.NewInt(5))
	require.ErrorIs(err, ErrUnderflow)
}

func TestMul(t *testing.T) {
	require := require.New(t)

	product, err := Mul(uint256.NewInt(1<<32), uint256.NewInt(1<<32))
	require.NoError(err)
	require.Equal(new(uint256.Int).Lsh(uint256.NewInt(1), 64), product)

	product, err = Mul(MaxUint256, new(uint256.Int))
	require.NoError(err)
	require.True(product.IsZero())

	_, err = Mul(MaxUint256, uint256.NewInt(2))
	require.ErrorIs(err, ErrOverflow)
}

func TestDiv(t *testing.T) {
	require := require.New(t)

	quotient, err := Div(uint256.NewInt(7), uint256.NewInt(2))
	require.NoError(err)
	require.Equal(uint256.NewInt(3), quotient)

	_, err = Div(uint256.NewInt(7), new(uint256.Int))
	require.ErrorIs(err, ErrDivisionByZero)
}

func TestMulDiv(t *testing.T) {
	require := require.New(t)

	result, err := MulDiv(uint256.NewInt(10), uint256.NewInt(200), uint256.NewInt(100))
	require.NoError(err)
	require.Equal(uint256.NewInt(20), result)

	_, err = MulDiv(MaxUint256, uint256.NewInt(2), uint256.NewInt(2))
	require.ErrorIs(err, ErrOverflow)
}

func TestSqrt(t *testing.T) {
	tests := []struct {
		in   uint64
		want uint64
	}{
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: 3, want: 1},
		{in: 4, want: 2},
		{in: 15, want: 3},
		{in: 16, want: 4},
		{in: 1_000_000, want: 1000},
	}
	for _, test := range tests {
		require.Equal(t, uint256.NewInt(test.want), Sqrt(uint256.NewInt(test.in)), "sqrt(%d)", test.in)
	}

	// sqrt(1e18 * 4e18) = 2e18
	product := new(uint256.Int).Mul(
		uint256.MustFromDecimal("1000000000000000000"),
		uint256.MustFromDecimal("4000000000000000000"),
	)
	require.Equal(t, uint256.MustFromDecimal("2000000000000000000"), Sqrt(product))
}

func TestMin(t *testing.T) {
	require := require.New(t)

	a := uint256.NewInt(1)
	b := uint256.NewInt(2)
	require.Equal(a, Min(a, b))
	require.Equal(a, Min(b, a))

	m := Min(a, b)
	m.SetUint64(9)
	require.Equal(uint256.NewInt(1), a)
}

func TestUQ112x112(t *testing.T) {
	require := require.New(t)

	require.Equal(Q112, Encode(uint256.NewInt(1)))
	require.Equal(uint256.NewInt(112), uint256.NewInt(uint64(MaxUint112.BitLen())))

	// 3/2 == 1.5
	price := UQDiv(Encode(uint256.NewInt(3)), uint256.NewInt(2))
	expected := new(uint256.Int).Add(Q112, new(uint256.Int).Rsh(Q112, 1))
	require.Equal(expected, price)

	// 1.5 * 10 == 15
	require.Equal(uint256.NewInt(15), Decode144(new(uint256.Int).Mul(price, uint256.NewInt(10))))
}
