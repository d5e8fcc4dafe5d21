// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import "github.com/holiman/uint256"

// Resolution is the number of fractional bits of a UQ112x112 value.
const Resolution = 112

var (
	// MaxUint112 is the largest reserve a pair can hold.
	MaxUint112 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 112), uint256.NewInt(1))

	// Q112 is 1.0 as a UQ112x112.
	Q112 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution)
)

// Encode returns y as a UQ112x112. y must not exceed MaxUint112.
func Encode(y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Lsh(y, Resolution)
}

// UQDiv divides the UQ112x112 x by the integer y, returning a UQ112x112.
// y must be non-zero.
func UQDiv(x, y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(x, y)
}

// Decode144 drops the fractional bits of a UQ144x112 product.
func Decode144(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Rsh(x, Resolution)
}
