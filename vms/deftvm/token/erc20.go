// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/state"

	safemath "github.com/luxfi/deft/utils/math"
)

var (
	_ Token = (*ERC20)(nil)

	slotTotalSupply = state.Key("totalSupply")
)

func balanceSlot(owner common.Address) state.Slot {
	return state.Key("balance", owner.Bytes())
}

func allowanceSlot(owner, spender common.Address) state.Slot {
	return state.Key("allowance", owner.Bytes(), spender.Bytes())
}

func nonceSlot(owner common.Address) state.Slot {
	return state.Key("nonce", owner.Bytes())
}

// ERC20 is a standard fungible token with EIP-2612 permits. Its metadata is
// fixed at construction; balances live in chain storage.
type ERC20 struct {
	address  common.Address
	name     string
	symbol   string
	decimals uint8
}

// NewERC20 returns the implementation of a token at address. It does not
// deploy it.
func NewERC20(address common.Address, name, symbol string, decimals uint8) *ERC20 {
	return &ERC20{
		address:  address,
		name:     name,
		symbol:   symbol,
		decimals: decimals,
	}
}

// DeployERC20 deploys a new token at address.
func DeployERC20(tx *state.Tx, address common.Address, name, symbol string, decimals uint8) (*ERC20, error) {
	t := NewERC20(address, name, symbol, decimals)
	if err := tx.Deploy(address, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ERC20) Address() common.Address { return t.address }
func (t *ERC20) Name() string            { return t.name }
func (t *ERC20) Symbol() string          { return t.symbol }
func (t *ERC20) Decimals() uint8         { return t.decimals }

func (t *ERC20) TotalSupply(tx *state.Tx) (*uint256.Int, error) {
	return tx.Storage(t.address).GetUint256(slotTotalSupply)
}

func (t *ERC20) BalanceOf(tx *state.Tx, owner common.Address) (*uint256.Int, error) {
	return tx.Storage(t.address).GetUint256(balanceSlot(owner))
}

func (t *ERC20) Allowance(tx *state.Tx, owner, spender common.Address) (*uint256.Int, error) {
	return tx.Storage(t.address).GetUint256(allowanceSlot(owner, spender))
}

// Approve sets the allowance of spender over the caller's tokens.
func (t *ERC20) Approve(tx *state.Tx, caller, spender common.Address, value *uint256.Int) error {
	return t.approve(tx, caller, spender, value)
}

// Transfer moves value from the caller to to.
func (t *ERC20) Transfer(tx *state.Tx, caller, to common.Address, value *uint256.Int) error {
	return t.transfer(tx, caller, to, value)
}

// TransferFrom moves value from from to to, spending the caller's allowance.
// An allowance of 2^256-1 is never decremented.
func (t *ERC20) TransferFrom(tx *state.Tx, caller, from, to common.Address, value *uint256.Int) error {
	if err := t.spendAllowance(tx, from, caller, value); err != nil {
		return err
	}
	return t.transfer(tx, from, to, value)
}

// Mint creates value new tokens owned by to. It is not a contract entry
// point: only genesis and embedding contracts call it.
func (t *ERC20) Mint(tx *state.Tx, to common.Address, value *uint256.Int) error {
	s := tx.Storage(t.address)
	supply, err := s.GetUint256(slotTotalSupply)
	if err != nil {
		return err
	}
	supply, err = safemath.Add(supply, value)
	if err != nil {
		return err
	}
	if err := s.PutUint256(slotTotalSupply, supply); err != nil {
		return err
	}

	// balance <= supply, so this cannot overflow
	balance, err := s.GetUint256(balanceSlot(to))
	if err != nil {
		return err
	}
	if err := s.PutUint256(balanceSlot(to), new(uint256.Int).Add(balance, value)); err != nil {
		return err
	}

	tx.Emit(t.address, Transfer{From: common.Address{}, To: to, Value: value.Clone()})
	return nil
}

// Burn destroys value tokens owned by from.
func (t *ERC20) Burn(tx *state.Tx, from common.Address, value *uint256.Int) error {
	s := tx.Storage(t.address)
	balance, err := s.GetUint256(balanceSlot(from))
	if err != nil {
		return err
	}
	balance, err = safemath.Sub(balance, value)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, from)
	}
	if err := s.PutUint256(balanceSlot(from), balance); err != nil {
		return err
	}

	supply, err := s.GetUint256(slotTotalSupply)
	if err != nil {
		return err
	}
	if err := s.PutUint256(slotTotalSupply, new(uint256.Int).Sub(supply, value)); err != nil {
		return err
	}

	tx.Emit(t.address, Transfer{From: from, To: common.Address{}, Value: value.Clone()})
	return nil
}

func (t *ERC20) approve(tx *state.Tx, owner, spender common.Address, value *uint256.Int) error {
	if err := tx.Storage(t.address).PutUint256(allowanceSlot(owner, spender), value); err != nil {
		return err
	}
	tx.Emit(t.address, Approval{Owner: owner, Spender: spender, Value: value.Clone()})
	return nil
}

func (t *ERC20) spendAllowance(tx *state.Tx, owner, spender common.Address, value *uint256.Int) error {
	s := tx.Storage(t.address)
	allowance, err := s.GetUint256(allowanceSlot(owner, spender))
	if err != nil {
		return err
	}
	if allowance.Eq(safemath.MaxUint256) {
		return nil
	}
	allowance, err = safemath.Sub(allowance, value)
	if err != nil {
		return fmt.Errorf("%w: %s for %s", ErrInsufficientAllowance, spender, owner)
	}
	return s.PutUint256(allowanceSlot(owner, spender), allowance)
}

func (t *ERC20) transfer(tx *state.Tx, from, to common.Address, value *uint256.Int) error {
	s := tx.Storage(t.address)
	fromBalance, err := s.GetUint256(balanceSlot(from))
	if err != nil {
		return err
	}
	fromBalance, err = safemath.Sub(fromBalance, value)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, from)
	}
	if err := s.PutUint256(balanceSlot(from), fromBalance); err != nil {
		return err
	}

	toBalance, err := s.GetUint256(balanceSlot(to))
	if err != nil {
		return err
	}
	if err := s.PutUint256(balanceSlot(to), new(uint256.Int).Add(toBalance, value)); err != nil {
		return err
	}

	tx.Emit(t.address, Transfer{From: from, To: to, Value: value.Clone()})
	return nil
}
