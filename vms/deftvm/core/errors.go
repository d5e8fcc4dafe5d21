// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import "errors"

var (
	ErrIdenticalAddresses = errors.New("DeftFactory: IDENTICAL_ADDRESSES")
	ErrZeroAddress        = errors.New("DeftFactory: ZERO_ADDRESS")
	ErrPairExists         = errors.New("DeftFactory: PAIR_EXISTS")
	ErrPairIndex          = errors.New("DeftFactory: PAIR_INDEX")
	ErrFactoryForbidden   = errors.New("DeftFactory: FORBIDDEN")

	ErrForbidden                   = errors.New("DeftPair: FORBIDDEN")
	ErrLocked                      = errors.New("DeftPair: LOCKED")
	ErrOverflow                    = errors.New("DeftPair: OVERFLOW")
	ErrTransferFailed              = errors.New("DeftPair: TRANSFER_FAILED")
	ErrInsufficientLiquidityMinted = errors.New("DeftPair: INSUFFICIENT_LIQUIDITY_MINTED")
	ErrInsufficientLiquidityBurned = errors.New("DeftPair: INSUFFICIENT_LIQUIDITY_BURNED")
	ErrInsufficientOutputAmount    = errors.New("DeftPair: INSUFFICIENT_OUTPUT_AMOUNT")
	ErrInsufficientLiquidity       = errors.New("DeftPair: INSUFFICIENT_LIQUIDITY")
	ErrInvalidTo                   = errors.New("DeftPair: INVALID_TO")
	ErrInsufficientInputAmount     = errors.New("DeftPair: INSUFFICIENT_INPUT_AMOUNT")
	ErrK                           = errors.New("DeftPair: K")
	ErrNotPair                     = errors.New("address is not a pair")
)
