// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/luxfi/log"

	"github.com/luxfi/deft/vms/deftvm/router/library"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"

	safemath "github.com/luxfi/deft/utils/math"
)

// swap executes the hops of path with amounts precomputed by GetAmountsOut
// or GetAmountsIn. The first pair must already hold amounts[0]. Each hop pays
// the next pair directly and the last pays to.
func (r *Router) swap(tx *state.Tx, amounts []*uint256.Int, path []common.Address, to common.Address) error {
	for i := 0; i < len(path)-1; i++ {
		input, output := path[i], path[i+1]
		token0, _, err := library.SortTokens(input, output)
		if err != nil {
			return err
		}
		amount0Out, amount1Out := new(uint256.Int), amounts[i+1]
		if input != token0 {
			amount0Out, amount1Out = amounts[i+1], new(uint256.Int)
		}
		recipient := to
		if i < len(path)-2 {
			recipient, err = r.PairFor(output, path[i+2])
			if err != nil {
				return err
			}
		}
		pair, err := r.pair(tx, input, output)
		if err != nil {
			return err
		}
		if err := pair.Swap(tx, r.address, amount0Out, amount1Out, recipient, nil); err != nil {
			return err
		}
	}
	r.log.Debug("swapped",
		log.Stringer("tokenIn", path[0]),
		log.Stringer("tokenOut", path[len(path)-1]),
		log.Stringer("amountIn", amounts[0]),
		log.Stringer("amountOut", amounts[len(amounts)-1]),
		log.Int("hops", len(path)-1),
	)
	return nil
}

// swapSupportingFeeOnTransferTokens executes the hops of path, pricing each
// hop by what its pair actually received rather than by a precomputed
// amount. The first pair must already hold the input.
func (r *Router) swapSupportingFeeOnTransferTokens(tx *state.Tx, path []common.Address, to common.Address) error {
	for i := 0; i < len(path)-1; i++ {
		input, output := path[i], path[i+1]
		token0, _, err := library.SortTokens(input, output)
		if err != nil {
			return err
		}
		pair, err := r.pair(tx, input, output)
		if err != nil {
			return err
		}
		reserves, err := pair.GetReserves(tx)
		if err != nil {
			return err
		}
		reserveInput, reserveOutput := reserves.Reserve0, reserves.Reserve1
		if input != token0 {
			reserveInput, reserveOutput = reserves.Reserve1, reserves.Reserve0
		}
		balance, err := token.BalanceOf(tx, input, pair.Address())
		if err != nil {
			return err
		}
		amountInput, err := safemath.Sub(balance, reserveInput)
		if err != nil {
			return err
		}
		amountOutput, err := library.GetAmountOut(amountInput, reserveInput, reserveOutput)
		if err != nil {
			return err
		}

		amount0Out, amount1Out := new(uint256.Int), amountOutput
		if input != token0 {
			amount0Out, amount1Out = amountOutput, new(uint256.Int)
		}
		recipient := to
		if i < len(path)-2 {
			recipient, err = r.PairFor(output, path[i+2])
			if err != nil {
				return err
			}
		}
		if err := pair.Swap(tx, r.address, amount0Out, amount1Out, recipient, nil); err != nil {
			return err
		}
	}
	return nil
}

// SwapExactTokensForTokens swaps exactly amountIn of path[0] from caller for
// at least amountOutMin of the last token of path, paid to to.
func (r *Router) SwapExactTokensForTokens(
	tx *state.Tx,
	caller common.Address,
	amountIn *uint256.Int,
	amountOutMin *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsOut(tx, amountIn, path)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].Lt(amountOutMin) {
		return nil, ErrInsufficientOutputAmount
	}
	if err := r.payFirstPair(tx, caller, path, amounts[0]); err != nil {
		return nil, err
	}
	return amounts, r.swap(tx, amounts, path, to)
}

// SwapTokensForExactTokens swaps at most amountInMax of path[0] from caller
// for exactly amountOut of the last token of path, paid to to.
func (r *Router) SwapTokensForExactTokens(
	tx *state.Tx,
	caller common.Address,
	amountOut *uint256.Int,
	amountInMax *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsIn(tx, amountOut, path)
	if err != nil {
		return nil, err
	}
	if amounts[0].Gt(amountInMax) {
		return nil, ErrExcessiveInputAmount
	}
	if err := r.payFirstPair(tx, caller, path, amounts[0]); err != nil {
		return nil, err
	}
	return amounts, r.swap(tx, amounts, path, to)
}

// SwapExactETHForTokens swaps all of value, wrapped, for at least
// amountOutMin of the last token of path. path must start with the wrapped
// native token.
func (r *Router) SwapExactETHForTokens(
	tx *state.Tx,
	caller common.Address,
	value *uint256.Int,
	amountOutMin *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) == 0 || path[0] != r.weth {
		return nil, ErrInvalidPath
	}
	if err := r.receive(tx, caller, value); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsOut(tx, value, path)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].Lt(amountOutMin) {
		return nil, ErrInsufficientOutputAmount
	}
	first, err := r.PairFor(path[0], path[1])
	if err != nil {
		return nil, err
	}
	if err := r.wrapTo(tx, first, amounts[0]); err != nil {
		return nil, err
	}
	return amounts, r.swap(tx, amounts, path, to)
}

// SwapTokensForExactETH swaps at most amountInMax of path[0] from caller for
// exactly amountOut of the native asset, paid to to. path must end with the
// wrapped native token.
func (r *Router) SwapTokensForExactETH(
	tx *state.Tx,
	caller common.Address,
	amountOut *uint256.Int,
	amountInMax *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) == 0 || path[len(path)-1] != r.weth {
		return nil, ErrInvalidPath
	}
	amounts, err := r.GetAmountsIn(tx, amountOut, path)
	if err != nil {
		return nil, err
	}
	if amounts[0].Gt(amountInMax) {
		return nil, ErrExcessiveInputAmount
	}
	if err := r.payFirstPair(tx, caller, path, amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, r.address); err != nil {
		return nil, err
	}
	return amounts, r.unwrapTo(tx, to, amounts[len(amounts)-1])
}

// SwapExactTokensForETH swaps exactly amountIn of path[0] from caller for at
// least amountOutMin of the native asset, paid to to. path must end with the
// wrapped native token.
func (r *Router) SwapExactTokensForETH(
	tx *state.Tx,
	caller common.Address,
	amountIn *uint256.Int,
	amountOutMin *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) == 0 || path[len(path)-1] != r.weth {
		return nil, ErrInvalidPath
	}
	amounts, err := r.GetAmountsOut(tx, amountIn, path)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].Lt(amountOutMin) {
		return nil, ErrInsufficientOutputAmount
	}
	if err := r.payFirstPair(tx, caller, path, amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, r.address); err != nil {
		return nil, err
	}
	return amounts, r.unwrapTo(tx, to, amounts[len(amounts)-1])
}

// SwapETHForExactTokens swaps as little of value as needed for exactly
// amountOut of the last token of path and refunds the rest to caller. path
// must start with the wrapped native token.
func (r *Router) SwapETHForExactTokens(
	tx *state.Tx,
	caller common.Address,
	value *uint256.Int,
	amountOut *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) ([]*uint256.Int, error) {
	if err := ensure(tx, deadline); err != nil {
		return nil, err
	}
	if len(path) == 0 || path[0] != r.weth {
		return nil, ErrInvalidPath
	}
	if err := r.receive(tx, caller, value); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsIn(tx, amountOut, path)
	if err != nil {
		return nil, err
	}
	if amounts[0].Gt(value) {
		return nil, ErrExcessiveInputAmount
	}
	first, err := r.PairFor(path[0], path[1])
	if err != nil {
		return nil, err
	}
	if err := r.wrapTo(tx, first, amounts[0]); err != nil {
		return nil, err
	}
	if err := r.swap(tx, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, r.safeTransferNative(tx, caller, new(uint256.Int).Sub(value, amounts[0]))
}

// SwapExactTokensForTokensSupportingFeeOnTransferTokens swaps exactly
// amountIn of path[0] from caller and requires that to's balance of the last
// token grows by at least amountOutMin, whatever the tokens take in transfer.
func (r *Router) SwapExactTokensForTokensSupportingFeeOnTransferTokens(
	tx *state.Tx,
	caller common.Address,
	amountIn *uint256.Int,
	amountOutMin *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) error {
	if err := ensure(tx, deadline); err != nil {
		return err
	}
	if len(path) < 2 {
		return ErrInvalidPath
	}
	if err := r.payFirstPair(tx, caller, path, amountIn); err != nil {
		return err
	}
	return r.swapCheckingBalance(tx, path, to, amountOutMin)
}

// SwapExactETHForTokensSupportingFeeOnTransferTokens is
// SwapExactTokensForTokensSupportingFeeOnTransferTokens paid with value.
func (r *Router) SwapExactETHForTokensSupportingFeeOnTransferTokens(
	tx *state.Tx,
	caller common.Address,
	value *uint256.Int,
	amountOutMin *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) error {
	if err := ensure(tx, deadline); err != nil {
		return err
	}
	if len(path) < 2 || path[0] != r.weth {
		return ErrInvalidPath
	}
	if err := r.receive(tx, caller, value); err != nil {
		return err
	}
	first, err := r.PairFor(path[0], path[1])
	if err != nil {
		return err
	}
	if err := r.wrapTo(tx, first, value); err != nil {
		return err
	}
	return r.swapCheckingBalance(tx, path, to, amountOutMin)
}

// SwapExactTokensForETHSupportingFeeOnTransferTokens swaps exactly amountIn
// of path[0] from caller and pays all the wrapped native token it receives,
// at least amountOutMin, to to as the native asset.
func (r *Router) SwapExactTokensForETHSupportingFeeOnTransferTokens(
	tx *state.Tx,
	caller common.Address,
	amountIn *uint256.Int,
	amountOutMin *uint256.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) error {
	if err := ensure(tx, deadline); err != nil {
		return err
	}
	if len(path) < 2 || path[len(path)-1] != r.weth {
		return ErrInvalidPath
	}
	if err := r.payFirstPair(tx, caller, path, amountIn); err != nil {
		return err
	}
	if err := r.swapSupportingFeeOnTransferTokens(tx, path, r.address); err != nil {
		return err
	}
	amountOut, err := token.BalanceOf(tx, r.weth, r.address)
	if err != nil {
		return err
	}
	if amountOut.Lt(amountOutMin) {
		return ErrInsufficientOutputAmount
	}
	return r.unwrapTo(tx, to, amountOut)
}

// payFirstPair moves amount of path[0] from caller to the first pair of path.
func (r *Router) payFirstPair(tx *state.Tx, caller common.Address, path []common.Address, amount *uint256.Int) error {
	first, err := r.PairFor(path[0], path[1])
	if err != nil {
		return err
	}
	return r.safeTransferFrom(tx, path[0], caller, first, amount)
}

func (r *Router) swapCheckingBalance(tx *state.Tx, path []common.Address, to common.Address, amountOutMin *uint256.Int) error {
	last := path[len(path)-1]
	before, err := token.BalanceOf(tx, last, to)
	if err != nil {
		return err
	}
	if err := r.swapSupportingFeeOnTransferTokens(tx, path, to); err != nil {
		return err
	}
	after, err := token.BalanceOf(tx, last, to)
	if err != nil {
		return err
	}
	received, err := safemath.Sub(after, before)
	if err != nil || received.Lt(amountOutMin) {
		return ErrInsufficientOutputAmount
	}
	return nil
}
