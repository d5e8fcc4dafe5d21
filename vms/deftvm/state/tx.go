// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
)

// Tx is the view of the chain a single call executes against.
type Tx struct {
	chain     *Chain
	db        *versiondb.Database
	timestamp uint64
	readOnly  bool

	// contracts deployed by this call, published on commit
	code map[common.Address]any
	logs []Log
}

// Timestamp is the block time of the call in unix seconds.
func (tx *Tx) Timestamp() uint64 {
	return tx.timestamp
}

// ChainID returns the id bound into signed messages.
func (tx *Tx) ChainID() *uint256.Int {
	return tx.chain.ChainID()
}

// ReadOnly reports whether writes are rejected.
func (tx *Tx) ReadOnly() bool {
	return tx.readOnly
}

// Storage returns the storage of the contract at addr.
func (tx *Tx) Storage(addr common.Address) *Storage {
	return &Storage{
		tx:     tx,
		prefix: append(append([]byte{}, prefixStorage...), addr.Bytes()...),
	}
}

// Deploy publishes impl as the code at addr.
func (tx *Tx) Deploy(addr common.Address, impl any) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if _, ok := tx.Code(addr); ok {
		return fmt.Errorf("%w: %s", ErrAddressInUse, addr)
	}
	tx.code[addr] = impl
	return nil
}

// Code returns the implementation deployed at addr.
func (tx *Tx) Code(addr common.Address) (any, bool) {
	if impl, ok := tx.code[addr]; ok {
		return impl, true
	}
	impl, ok := tx.chain.code[addr]
	return impl, ok
}

// CodeAs returns the implementation at addr as a T.
func CodeAs[T any](tx *Tx, addr common.Address) (T, error) {
	var zero T
	impl, ok := tx.Code(addr)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNoCode, addr)
	}
	typed, ok := impl.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrCodeMismatch, addr, impl)
	}
	return typed, nil
}

// Emit records event as emitted by the contract at addr.
func (tx *Tx) Emit(addr common.Address, event Event) {
	tx.logs = append(tx.logs, Log{
		Address: addr,
		Event:   event,
	})
}

// Logs returns the logs emitted so far.
func (tx *Tx) Logs() []Log {
	return tx.logs
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	value, err := tx.db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (tx *Tx) put(key, value []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	return tx.db.Put(key, value)
}

func (tx *Tx) delete(key []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	return tx.db.Delete(key)
}

func (tx *Tx) nextSequence() (uint64, error) {
	value, err := tx.get(keySequence)
	if err != nil {
		return 0, err
	}
	var sequence uint64
	switch len(value) {
	case 0:
	case 8:
		sequence = binary.BigEndian.Uint64(value)
	default:
		return 0, fmt.Errorf("%w: sequence has %d bytes", ErrStateCorrupted, len(value))
	}
	sequence++

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sequence)
	return sequence, tx.put(keySequence, buf[:])
}
