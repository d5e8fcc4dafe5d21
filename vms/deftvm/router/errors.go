// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import "errors"

var (
	ErrExpired                  = errors.New("DeftRouter: EXPIRED")
	ErrInsufficientAAmount      = errors.New("DeftRouter: INSUFFICIENT_A_AMOUNT")
	ErrInsufficientBAmount      = errors.New("DeftRouter: INSUFFICIENT_B_AMOUNT")
	ErrInsufficientOutputAmount = errors.New("DeftRouter: INSUFFICIENT_OUTPUT_AMOUNT")
	ErrExcessiveInputAmount     = errors.New("DeftRouter: EXCESSIVE_INPUT_AMOUNT")
	ErrInvalidPath              = errors.New("DeftRouter: INVALID_PATH")
	ErrTransferFailed           = errors.New("DeftRouter: TRANSFER_FAILED")
	ErrTransferFromFailed       = errors.New("DeftRouter: TRANSFER_FROM_FAILED")
	ErrNativeTransferFailed     = errors.New("DeftRouter: ETH_TRANSFER_FAILED")
	ErrNotRouter                = errors.New("address is not a router")
)
