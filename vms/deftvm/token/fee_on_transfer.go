// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/state"
)

// TransferFeeDivisor sets the share of every FeeOnTransfer transfer that is
// burned: 1/100.
const TransferFeeDivisor = 100

var _ Token = (*FeeOnTransfer)(nil)

// FeeOnTransfer is a token that burns part of every transfer, so recipients
// receive less than the sender sent.
type FeeOnTransfer struct {
	*ERC20
}

// DeployFeeOnTransfer deploys a fee-on-transfer token at address.
func DeployFeeOnTransfer(tx *state.Tx, address common.Address, name, symbol string, decimals uint8) (*FeeOnTransfer, error) {
	t := &FeeOnTransfer{
		ERC20: NewERC20(address, name, symbol, decimals),
	}
	if err := tx.Deploy(address, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *FeeOnTransfer) Transfer(tx *state.Tx, caller, to common.Address, value *uint256.Int) error {
	return t.transferWithFee(tx, caller, to, value)
}

func (t *FeeOnTransfer) TransferFrom(tx *state.Tx, caller, from, to common.Address, value *uint256.Int) error {
	if err := t.spendAllowance(tx, from, caller, value); err != nil {
		return err
	}
	return t.transferWithFee(tx, from, to, value)
}

func (t *FeeOnTransfer) transferWithFee(tx *state.Tx, from, to common.Address, value *uint256.Int) error {
	fee := new(uint256.Int).Div(value, uint256.NewInt(TransferFeeDivisor))
	if err := t.Burn(tx, from, fee); err != nil {
		return err
	}
	return t.transfer(tx, from, to, new(uint256.Int).Sub(value, fee))
}
