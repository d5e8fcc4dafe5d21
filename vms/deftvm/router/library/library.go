// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package library prices swaps against pair reserves. Everything here is a
// pure function of its arguments and the reserves it reads.
package library

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/state"

	safemath "github.com/luxfi/deft/utils/math"
)

var (
	ErrIdenticalAddresses       = errors.New("DeftLib: IDENTICAL_ADDRESSES")
	ErrZeroAddress              = errors.New("DeftLib: ZERO_ADDRESS")
	ErrInsufficientAmount       = errors.New("DeftLib: INSUFFICIENT_AMOUNT")
	ErrInsufficientLiquidity    = errors.New("DeftLib: INSUFFICIENT_LIQUIDITY")
	ErrInsufficientInputAmount  = errors.New("DeftLib: INSUFFICIENT_INPUT_AMOUNT")
	ErrInsufficientOutputAmount = errors.New("DeftLib: INSUFFICIENT_OUTPUT_AMOUNT")
	ErrInvalidPath              = errors.New("DeftLib: INVALID_PATH")

	feeDenominator = uint256.NewInt(core.FeeDenominator)
	feeMultiplier  = uint256.NewInt(core.FeeDenominator - core.FeeNumerator)
)

// SortTokens returns tokenA and tokenB in the order pairs store them.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address, error) {
	token0, token1, err := core.SortTokens(tokenA, tokenB)
	switch {
	case errors.Is(err, core.ErrIdenticalAddresses):
		return common.Address{}, common.Address{}, ErrIdenticalAddresses
	case errors.Is(err, core.ErrZeroAddress):
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	return token0, token1, err
}

// PairFor derives the address of the tokenA/tokenB pair of factory without
// reading state. The pair need not exist yet.
func PairFor(factory, tokenA, tokenB common.Address) (common.Address, error) {
	if _, _, err := SortTokens(tokenA, tokenB); err != nil {
		return common.Address{}, err
	}
	return core.PairAddress(factory, tokenA, tokenB)
}

// GetReserves returns the reserves of the tokenA/tokenB pair, ordered as
// tokenA, tokenB.
func GetReserves(tx *state.Tx, factory, tokenA, tokenB common.Address) (*uint256.Int, *uint256.Int, error) {
	token0, _, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	addr, err := PairFor(factory, tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	pair, err := core.LookupPair(tx, addr)
	if err != nil {
		return nil, nil, err
	}
	r, err := pair.GetReserves(tx)
	if err != nil {
		return nil, nil, err
	}
	if tokenA == token0 {
		return r.Reserve0, r.Reserve1, nil
	}
	return r.Reserve1, r.Reserve0, nil
}

// Quote returns the amount of B worth amountA at the current reserve ratio.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA.IsZero() {
		return nil, ErrInsufficientAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	return safemath.MulDiv(amountA, reserveB, reserveA)
}

// GetAmountOut returns the largest output a pair pays for amountIn, net of
// the swap fee. It rounds down.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	amountInWithFee, err := safemath.Mul(amountIn, feeMultiplier)
	if err != nil {
		return nil, err
	}
	numerator, err := safemath.Mul(amountInWithFee, reserveOut)
	if err != nil {
		return nil, err
	}
	denominator, err := safemath.Mul(reserveIn, feeDenominator)
	if err != nil {
		return nil, err
	}
	denominator, err = safemath.Add(denominator, amountInWithFee)
	if err != nil {
		return nil, err
	}
	return numerator.Div(numerator, denominator), nil
}

// GetAmountIn returns the smallest input a pair accepts for amountOut. It
// rounds up.
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountOut.IsZero() {
		return nil, ErrInsufficientOutputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, ErrInsufficientLiquidity
	}
	numerator, err := safemath.Mul(reserveIn, amountOut)
	if err != nil {
		return nil, err
	}
	numerator, err = safemath.Mul(numerator, feeDenominator)
	if err != nil {
		return nil, err
	}
	denominator, err := safemath.Mul(new(uint256.Int).Sub(reserveOut, amountOut), feeMultiplier)
	if err != nil {
		return nil, err
	}
	amountIn := numerator.Div(numerator, denominator)
	return safemath.Add(amountIn, uint256.NewInt(1))
}

// GetAmountsOut chains GetAmountOut along path. amounts[0] is amountIn and
// amounts[i+1] is the output of the path[i]/path[i+1] hop.
func GetAmountsOut(tx *state.Tx, factory common.Address, amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	amounts := make([]*uint256.Int, len(path))
	amounts[0] = amountIn.Clone()
	for i := 0; i < len(path)-1; i++ {
		reserveIn, reserveOut, err := GetReserves(tx, factory, path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		amounts[i+1], err = GetAmountOut(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, err
		}
	}
	return amounts, nil
}

// GetAmountsIn chains GetAmountIn backwards along path. The last element is
// amountOut and amounts[0] is the input the whole path requires.
func GetAmountsIn(tx *state.Tx, factory common.Address, amountOut *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	amounts := make([]*uint256.Int, len(path))
	amounts[len(amounts)-1] = amountOut.Clone()
	for i := len(path) - 1; i > 0; i-- {
		reserveIn, reserveOut, err := GetReserves(tx, factory, path[i-1], path[i])
		if err != nil {
			return nil, err
		}
		amounts[i-1], err = GetAmountIn(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, err
		}
	}
	return amounts, nil
}
