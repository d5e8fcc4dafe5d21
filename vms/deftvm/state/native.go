// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	safemath "github.com/luxfi/deft/utils/math"
)

var (
	ErrInsufficientNative = errors.New("insufficient native balance")

	prefixNative = []byte("native:")
)

func nativeKey(addr common.Address) []byte {
	return append(append([]byte{}, prefixNative...), addr.Bytes()...)
}

// NativeBalance returns the native asset balance of addr.
func (tx *Tx) NativeBalance(addr common.Address) (*uint256.Int, error) {
	value, err := tx.get(nativeKey(addr))
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(value), nil
}

// TransferNative moves amount of the native asset from one account to another.
func (tx *Tx) TransferNative(from, to common.Address, amount *uint256.Int) error {
	fromBalance, err := tx.NativeBalance(from)
	if err != nil {
		return err
	}
	fromBalance, err = safemath.Sub(fromBalance, amount)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInsufficientNative, from)
	}
	if err := tx.setNative(from, fromBalance); err != nil {
		return err
	}
	return tx.MintNative(to, amount)
}

// MintNative credits amount of the native asset to addr.
func (tx *Tx) MintNative(to common.Address, amount *uint256.Int) error {
	balance, err := tx.NativeBalance(to)
	if err != nil {
		return err
	}
	balance, err = safemath.Add(balance, amount)
	if err != nil {
		return err
	}
	return tx.setNative(to, balance)
}

func (tx *Tx) setNative(addr common.Address, balance *uint256.Int) error {
	if balance.IsZero() {
		return tx.delete(nativeKey(addr))
	}
	return tx.put(nativeKey(addr), balance.Bytes())
}
