// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state implements the ledger Deft contracts execute against.
//
// Every call runs inside a Tx layered over the chain database. A call that
// returns an error leaves no trace: storage writes, contract deployments and
// emitted logs are all discarded together.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/deft/utils/timer/mockable"
)

var (
	ErrAddressInUse   = errors.New("address already has code")
	ErrNoCode         = errors.New("no code at address")
	ErrCodeMismatch   = errors.New("code at address has unexpected type")
	ErrReadOnly       = errors.New("write in read-only call")
	ErrStateCorrupted = errors.New("state corrupted")

	keySequence = []byte("sequence")
)

// Chain serializes calls against a database and publishes the logs of every
// committed call.
type Chain struct {
	lock sync.RWMutex

	db      database.Database
	clock   *mockable.Clock
	chainID *uint256.Int
	log     log.Logger

	// contract implementations by address
	code map[common.Address]any

	receipts event.Feed
	hooks    []func(*Tx, *Receipt)
}

// New returns a chain over db. Block time is read from clock.
func New(db database.Database, chainID uint64, clock *mockable.Clock, logger log.Logger) *Chain {
	if clock == nil {
		clock = &mockable.Clock{}
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Chain{
		db:      db,
		clock:   clock,
		chainID: uint256.NewInt(chainID),
		log:     logger,
		code:    make(map[common.Address]any),
	}
}

// Clock returns the block clock.
func (c *Chain) Clock() *mockable.Clock {
	return c.clock
}

// ChainID returns the id bound into signed messages.
func (c *Chain) ChainID() *uint256.Int {
	return c.chainID.Clone()
}

// Execute runs fn as one atomic call. If fn fails nothing it did is kept.
func (c *Chain) Execute(fn func(*Tx) error) (*Receipt, error) {
	c.lock.Lock()
	tx := c.newTx(false)
	if err := fn(tx); err != nil {
		tx.db.Abort()
		c.lock.Unlock()
		return nil, err
	}
	receipt, err := c.commit(tx)
	if err != nil {
		c.lock.Unlock()
		return nil, err
	}
	c.runHooks(receipt)
	c.lock.Unlock()

	c.receipts.Send(receipt)
	return receipt, nil
}

// View runs fn against the current state without the ability to write.
func (c *Chain) View(fn func(*Tx) error) error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	tx := c.newTx(true)
	defer tx.db.Abort()
	return fn(tx)
}

// SubscribeReceipts delivers a receipt for every committed call. Receipts are
// sent after the chain lock is released, so a subscriber may call back into
// the chain, but must keep draining ch.
func (c *Chain) SubscribeReceipts(ch chan<- *Receipt) event.Subscription {
	return c.receipts.Subscribe(ch)
}

// OnCommit registers fn to run after every committed call, before the next
// call can start. fn reads the committed state through a read-only Tx at the
// call's timestamp and must not call back into the chain.
func (c *Chain) OnCommit(fn func(*Tx, *Receipt)) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.hooks = append(c.hooks, fn)
}

// runHooks must be called with the write lock held.
func (c *Chain) runHooks(receipt *Receipt) {
	if len(c.hooks) == 0 {
		return
	}
	tx := c.newTx(true)
	tx.timestamp = receipt.Timestamp
	defer tx.db.Abort()

	for _, fn := range c.hooks {
		fn(tx, receipt)
	}
}

func (c *Chain) newTx(readOnly bool) *Tx {
	return &Tx{
		chain:     c,
		db:        versiondb.New(c.db),
		timestamp: c.clock.Unix(),
		readOnly:  readOnly,
		code:      make(map[common.Address]any),
	}
}

func (c *Chain) commit(tx *Tx) (*Receipt, error) {
	sequence, err := tx.nextSequence()
	if err != nil {
		tx.db.Abort()
		return nil, err
	}
	if err := tx.db.Commit(); err != nil {
		tx.db.Abort()
		return nil, fmt.Errorf("failed to commit call: %w", err)
	}
	for addr, impl := range tx.code {
		c.code[addr] = impl
	}

	receipt := &Receipt{
		ID:        receiptID(sequence, tx.timestamp),
		Sequence:  sequence,
		Timestamp: tx.timestamp,
		Logs:      tx.logs,
	}
	c.log.Debug("call committed",
		log.Stringer("id", receipt.ID),
		log.Uint64("sequence", sequence),
		log.Int("logs", len(receipt.Logs)),
	)
	return receipt, nil
}

func receiptID(sequence, timestamp uint64) ids.ID {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], sequence)
	binary.BigEndian.PutUint64(buf[8:], timestamp)
	return ids.ID(crypto.Keccak256Hash(buf[:]))
}
