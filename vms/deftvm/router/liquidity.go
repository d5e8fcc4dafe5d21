// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/router/library"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"

	safemath "github.com/luxfi/deft/utils/math"
)

// Signature authorizes the router to spend pool shares through a permit.
// With ApproveMax the permit is for 2^256-1 instead of the exact liquidity.
type Signature struct {
	ApproveMax bool
	V          uint8
	R          common.Hash
	S          common.Hash
}

// addLiquidity creates the pair if it does not exist and returns the amounts
// to deposit: the desired amounts on an empty pair, otherwise the largest
// amounts at the current reserve ratio that fit within the desired ones.
func (r *Router) addLiquidity(
	tx *state.Tx,
	tokenA common.Address,
	tokenB common.Address,
	amountADesired *uint256.Int,
	amountBDesired *uint256.Int,
	amountAMin *uint256.Int,
	amountBMin *uint256.Int,
) (*uint256.Int, *uint256.Int, error) {
	factory, err := core.LookupFactory(tx, r.factory)
	if err != nil {
		return nil, nil, err
	}
	existing, err := factory.GetPair(tx, tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	if existing == (common.Address{}) {
		if _, err := factory.CreatePair(tx, r.address, tokenA, tokenB); err != nil {
			return nil, nil, err
		}
	}

	reserveA, reserveB, err := library.GetReserves(tx, r.factory, tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	if reserveA.IsZero() && reserveB.IsZero() {
		return amountADesired.Clone(), amountBDesired.Clone(), nil
	}

	amountBOptimal, err := library.Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !amountBOptimal.Gt(amountBDesired) {
		if amountBOptimal.Lt(amountBMin) {
			return nil, nil, ErrInsufficientBAmount
		}
		return amountADesired.Clone(), amountBOptimal, nil
	}

	// amountAOptimal <= amountADesired since amountBOptimal > amountBDesired
	amountAOptimal, err := library.Quote(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if amountAOptimal.Lt(amountAMin) {
		return nil, nil, ErrInsufficientAAmount
	}
	return amountAOptimal, amountBDesired.Clone(), nil
}

// AddLiquidity deposits up to amountADesired of tokenA and amountBDesired of
// tokenB from caller, at the pair's current ratio, and mints the pool shares
// to to. It returns the deposited amounts and the shares minted.
func (r *Router) AddLiquidity(
	tx *state.Tx,
	caller common.Address,
	tokenA common.Address,
	tokenB common.Address,
	amountADesired *uint256.Int,
	amountBDesired *uint256.Int,
	amountAMin *uint256.Int,
	amountBMin *uint256.Int,
	to common.Address,
	deadline uint64,
) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, nil, nil, err
	}
	amountA, amountB, err := r.addLiquidity(tx, tokenA, tokenB, amountADesired, amountBDesired, amountAMin, amountBMin)
	if err != nil {
		return nil, nil, nil, err
	}
	pair, err := r.pair(tx, tokenA, tokenB)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := r.safeTransferFrom(tx, tokenA, caller, pair.Address(), amountA); err != nil {
		return nil, nil, nil, err
	}
	if err := r.safeTransferFrom(tx, tokenB, caller, pair.Address(), amountB); err != nil {
		return nil, nil, nil, err
	}
	liquidity, err := pair.Mint(tx, r.address, to)
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, liquidity, nil
}

// AddLiquidityETH is AddLiquidity against the wrapped native asset, paid from
// value. Native value left over is refunded to caller.
func (r *Router) AddLiquidityETH(
	tx *state.Tx,
	caller common.Address,
	value *uint256.Int,
	tokenAddr common.Address,
	amountTokenDesired *uint256.Int,
	amountTokenMin *uint256.Int,
	amountETHMin *uint256.Int,
	to common.Address,
	deadline uint64,
) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, nil, nil, err
	}
	if err := r.receive(tx, caller, value); err != nil {
		return nil, nil, nil, err
	}
	amountToken, amountETH, err := r.addLiquidity(tx, tokenAddr, r.weth, amountTokenDesired, value, amountTokenMin, amountETHMin)
	if err != nil {
		return nil, nil, nil, err
	}
	pair, err := r.pair(tx, tokenAddr, r.weth)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := r.safeTransferFrom(tx, tokenAddr, caller, pair.Address(), amountToken); err != nil {
		return nil, nil, nil, err
	}
	if err := r.wrapTo(tx, pair.Address(), amountETH); err != nil {
		return nil, nil, nil, err
	}
	liquidity, err := pair.Mint(tx, r.address, to)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := r.safeTransferNative(tx, caller, new(uint256.Int).Sub(value, amountETH)); err != nil {
		return nil, nil, nil, err
	}
	return amountToken, amountETH, liquidity, nil
}

// RemoveLiquidity burns liquidity of caller's pool shares, which the router
// must be allowed to spend, and pays the underlying tokens to to.
func (r *Router) RemoveLiquidity(
	tx *state.Tx,
	caller common.Address,
	tokenA common.Address,
	tokenB common.Address,
	liquidity *uint256.Int,
	amountAMin *uint256.Int,
	amountBMin *uint256.Int,
	to common.Address,
	deadline uint64,
) (*uint256.Int, *uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, nil, err
	}
	pair, err := r.pair(tx, tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	if err := pair.TransferFrom(tx, r.address, caller, pair.Address(), liquidity); err != nil {
		return nil, nil, err
	}
	amount0, amount1, err := pair.Burn(tx, r.address, to)
	if err != nil {
		return nil, nil, err
	}
	token0, _, err := library.SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	amountA, amountB := amount0, amount1
	if tokenA != token0 {
		amountA, amountB = amount1, amount0
	}
	if amountA.Lt(amountAMin) {
		return nil, nil, ErrInsufficientAAmount
	}
	if amountB.Lt(amountBMin) {
		return nil, nil, ErrInsufficientBAmount
	}
	return amountA, amountB, nil
}

// RemoveLiquidityETH is RemoveLiquidity against the wrapped native asset,
// which is unwrapped before it is paid to to.
func (r *Router) RemoveLiquidityETH(
	tx *state.Tx,
	caller common.Address,
	tokenAddr common.Address,
	liquidity *uint256.Int,
	amountTokenMin *uint256.Int,
	amountETHMin *uint256.Int,
	to common.Address,
	deadline uint64,
) (*uint256.Int, *uint256.Int, error) {
	amountToken, amountETH, err := r.RemoveLiquidity(tx, caller, tokenAddr, r.weth, liquidity, amountTokenMin, amountETHMin, r.address, deadline)
	if err != nil {
		return nil, nil, err
	}
	if err := r.safeTransfer(tx, tokenAddr, to, amountToken); err != nil {
		return nil, nil, err
	}
	if err := r.unwrapTo(tx, to, amountETH); err != nil {
		return nil, nil, err
	}
	return amountToken, amountETH, nil
}

// RemoveLiquidityWithPermit is RemoveLiquidity with the share allowance
// granted by caller's signature in the same call.
func (r *Router) RemoveLiquidityWithPermit(
	tx *state.Tx,
	caller common.Address,
	tokenA common.Address,
	tokenB common.Address,
	liquidity *uint256.Int,
	amountAMin *uint256.Int,
	amountBMin *uint256.Int,
	to common.Address,
	deadline uint64,
	sig Signature,
) (*uint256.Int, *uint256.Int, error) {
	if err := r.permit(tx, caller, tokenA, tokenB, liquidity, deadline, sig); err != nil {
		return nil, nil, err
	}
	return r.RemoveLiquidity(tx, caller, tokenA, tokenB, liquidity, amountAMin, amountBMin, to, deadline)
}

// RemoveLiquidityETHWithPermit is RemoveLiquidityETH with the share allowance
// granted by caller's signature in the same call.
func (r *Router) RemoveLiquidityETHWithPermit(
	tx *state.Tx,
	caller common.Address,
	tokenAddr common.Address,
	liquidity *uint256.Int,
	amountTokenMin *uint256.Int,
	amountETHMin *uint256.Int,
	to common.Address,
	deadline uint64,
	sig Signature,
) (*uint256.Int, *uint256.Int, error) {
	if err := r.permit(tx, caller, tokenAddr, r.weth, liquidity, deadline, sig); err != nil {
		return nil, nil, err
	}
	return r.RemoveLiquidityETH(tx, caller, tokenAddr, liquidity, amountTokenMin, amountETHMin, to, deadline)
}

// RemoveLiquidityETHSupportingFeeOnTransferTokens is RemoveLiquidityETH for
// tokens that take a cut of every transfer. The whole token amount the router
// received is forwarded, and only the native amount is returned.
func (r *Router) RemoveLiquidityETHSupportingFeeOnTransferTokens(
	tx *state.Tx,
	caller common.Address,
	tokenAddr common.Address,
	liquidity *uint256.Int,
	amountTokenMin *uint256.Int,
	amountETHMin *uint256.Int,
	to common.Address,
	deadline uint64,
) (*uint256.Int, error) {
	_, amountETH, err := r.RemoveLiquidity(tx, caller, tokenAddr, r.weth, liquidity, amountTokenMin, amountETHMin, r.address, deadline)
	if err != nil {
		return nil, err
	}
	balance, err := token.BalanceOf(tx, tokenAddr, r.address)
	if err != nil {
		return nil, err
	}
	if err := r.safeTransfer(tx, tokenAddr, to, balance); err != nil {
		return nil, err
	}
	if err := r.unwrapTo(tx, to, amountETH); err != nil {
		return nil, err
	}
	return amountETH, nil
}

func (r *Router) RemoveLiquidityETHWithPermitSupportingFeeOnTransferTokens(
	tx *state.Tx,
	caller common.Address,
	tokenAddr common.Address,
	liquidity *uint256.Int,
	amountTokenMin *uint256.Int,
	amountETHMin *uint256.Int,
	to common.Address,
	deadline uint64,
	sig Signature,
) (*uint256.Int, error) {
	if err := r.permit(tx, caller, tokenAddr, r.weth, liquidity, deadline, sig); err != nil {
		return nil, err
	}
	return r.RemoveLiquidityETHSupportingFeeOnTransferTokens(tx, caller, tokenAddr, liquidity, amountTokenMin, amountETHMin, to, deadline)
}

func (r *Router) permit(
	tx *state.Tx,
	owner common.Address,
	tokenA common.Address,
	tokenB common.Address,
	liquidity *uint256.Int,
	deadline uint64,
	sig Signature,
) error {
	pair, err := r.pair(tx, tokenA, tokenB)
	if err != nil {
		return err
	}
	value := liquidity
	if sig.ApproveMax {
		value = safemath.MaxUint256
	}
	return pair.Permit(tx, owner, r.address, value, deadline, sig.V, sig.R, sig.S)
}
