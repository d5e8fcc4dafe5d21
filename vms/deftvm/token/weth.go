// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/state"
)

var _ Token = (*WETH)(nil)

// WETH wraps the native asset one to one.
type WETH struct {
	*ERC20
}

// DeployWETH deploys the native wrapper at address.
func DeployWETH(tx *state.Tx, address common.Address) (*WETH, error) {
	w := &WETH{
		ERC20: NewERC20(address, "Wrapped Lux", "WLUX", 18),
	}
	if err := tx.Deploy(address, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Deposit wraps amount of the caller's native balance.
func (w *WETH) Deposit(tx *state.Tx, caller common.Address, amount *uint256.Int) error {
	if err := tx.TransferNative(caller, w.address, amount); err != nil {
		return err
	}
	if err := w.Mint(tx, caller, amount); err != nil {
		return err
	}
	tx.Emit(w.address, Deposit{Dst: caller, Value: amount.Clone()})
	return nil
}

// Withdraw unwraps amount back to the caller's native balance.
func (w *WETH) Withdraw(tx *state.Tx, caller common.Address, amount *uint256.Int) error {
	if err := w.Burn(tx, caller, amount); err != nil {
		return err
	}
	if err := tx.TransferNative(w.address, caller, amount); err != nil {
		return err
	}
	tx.Emit(w.address, Withdrawal{Src: caller, Value: amount.Clone()})
	return nil
}
