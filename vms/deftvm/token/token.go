// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements the fungible token ledger Deft pairs trade.
package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/state"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotToken              = errors.New("address is not a token")
)

// Token is the transfer-and-approve surface the exchange depends on.
type Token interface {
	Address() common.Address
	BalanceOf(tx *state.Tx, owner common.Address) (*uint256.Int, error)
	Transfer(tx *state.Tx, caller, to common.Address, value *uint256.Int) error
	TransferFrom(tx *state.Tx, caller, from, to common.Address, value *uint256.Int) error
}

// Lookup resolves the token deployed at addr.
func Lookup(tx *state.Tx, addr common.Address) (Token, error) {
	t, err := state.CodeAs[Token](tx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotToken, err)
	}
	return t, nil
}

// BalanceOf returns the balance of owner in the token at addr.
func BalanceOf(tx *state.Tx, addr, owner common.Address) (*uint256.Int, error) {
	t, err := Lookup(tx, addr)
	if err != nil {
		return nil, err
	}
	return t.BalanceOf(tx, owner)
}
