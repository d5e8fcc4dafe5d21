// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router adds and removes liquidity and routes swaps over chains of
// pairs, with deadline and slippage bounds on every call.
package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/luxfi/log"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/router/library"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"
)

const pairCacheSize = 1024

var (
	slotFactory = state.Key("factory")
	slotWETH    = state.Key("weth")
)

type pairKey struct {
	token0 common.Address
	token1 common.Address
}

// Router holds no balances between calls. Native value attached to a call is
// wrapped, spent, and any remainder refunded before the call returns.
type Router struct {
	address common.Address
	factory common.Address
	weth    common.Address
	log     log.Logger

	// token0/token1 -> pair address
	pairs *lru.Cache
}

// New returns a router over the pairs of factory that wraps the native asset
// with the token at weth.
func New(address, factory, weth common.Address, logger log.Logger) (*Router, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	pairs, err := lru.New(pairCacheSize)
	if err != nil {
		return nil, err
	}
	return &Router{
		address: address,
		factory: factory,
		weth:    weth,
		log:     logger,
		pairs:   pairs,
	}, nil
}

// Deploy deploys a router at address.
func Deploy(tx *state.Tx, address, factory, weth common.Address, logger log.Logger) (*Router, error) {
	r, err := New(address, factory, weth, logger)
	if err != nil {
		return nil, err
	}
	if err := tx.Deploy(address, r); err != nil {
		return nil, err
	}
	s := tx.Storage(address)
	if err := s.PutAddress(slotFactory, factory); err != nil {
		return nil, err
	}
	if err := s.PutAddress(slotWETH, weth); err != nil {
		return nil, err
	}
	return r, nil
}

// Restore re-deploys the implementation of the router at address from its
// stored configuration.
func Restore(tx *state.Tx, address common.Address, logger log.Logger) (*Router, error) {
	s := tx.Storage(address)
	factory, err := s.GetAddress(slotFactory)
	if err != nil {
		return nil, err
	}
	weth, err := s.GetAddress(slotWETH)
	if err != nil {
		return nil, err
	}
	r, err := New(address, factory, weth, logger)
	if err != nil {
		return nil, err
	}
	return r, tx.Deploy(address, r)
}

// Lookup resolves the router deployed at addr.
func Lookup(tx *state.Tx, addr common.Address) (*Router, error) {
	r, err := state.CodeAs[*Router](tx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotRouter, err)
	}
	return r, nil
}

func (r *Router) Address() common.Address { return r.address }
func (r *Router) Factory() common.Address { return r.factory }
func (r *Router) WETH() common.Address    { return r.weth }

// PairFor returns the address of the tokenA/tokenB pair.
func (r *Router) PairFor(tokenA, tokenB common.Address) (common.Address, error) {
	token0, token1, err := library.SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	key := pairKey{token0: token0, token1: token1}
	if addr, ok := r.pairs.Get(key); ok {
		return addr.(common.Address), nil
	}
	addr, err := library.PairFor(r.factory, token0, token1)
	if err != nil {
		return common.Address{}, err
	}
	r.pairs.Add(key, addr)
	return addr, nil
}

func (r *Router) GetAmountsOut(tx *state.Tx, amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	return library.GetAmountsOut(tx, r.factory, amountIn, path)
}

func (r *Router) GetAmountsIn(tx *state.Tx, amountOut *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	return library.GetAmountsIn(tx, r.factory, amountOut, path)
}

func (r *Router) pair(tx *state.Tx, tokenA, tokenB common.Address) (*core.Pair, error) {
	addr, err := r.PairFor(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	return core.LookupPair(tx, addr)
}

func (r *Router) wrapper(tx *state.Tx) (*token.WETH, error) {
	return state.CodeAs[*token.WETH](tx, r.weth)
}

func ensure(tx *state.Tx, deadline uint64) error {
	if deadline < tx.Timestamp() {
		return ErrExpired
	}
	return nil
}

func (r *Router) safeTransfer(tx *state.Tx, tokenAddr, to common.Address, value *uint256.Int) error {
	t, err := token.Lookup(tx, tokenAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if err := t.Transfer(tx, r.address, to, value); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

func (r *Router) safeTransferFrom(tx *state.Tx, tokenAddr, from, to common.Address, value *uint256.Int) error {
	t, err := token.Lookup(tx, tokenAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFromFailed, err)
	}
	if err := t.TransferFrom(tx, r.address, from, to, value); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFromFailed, err)
	}
	return nil
}

// receive takes custody of the native value attached to a call.
func (r *Router) receive(tx *state.Tx, caller common.Address, value *uint256.Int) error {
	if value.IsZero() {
		return nil
	}
	if err := tx.TransferNative(caller, r.address, value); err != nil {
		return fmt.Errorf("%w: %w", ErrNativeTransferFailed, err)
	}
	return nil
}

func (r *Router) safeTransferNative(tx *state.Tx, to common.Address, value *uint256.Int) error {
	if value.IsZero() {
		return nil
	}
	if err := tx.TransferNative(r.address, to, value); err != nil {
		return fmt.Errorf("%w: %w", ErrNativeTransferFailed, err)
	}
	return nil
}

// wrapTo wraps amount of the router's native balance and sends it to to.
func (r *Router) wrapTo(tx *state.Tx, to common.Address, amount *uint256.Int) error {
	weth, err := r.wrapper(tx)
	if err != nil {
		return err
	}
	if err := weth.Deposit(tx, r.address, amount); err != nil {
		return err
	}
	if err := weth.Transfer(tx, r.address, to, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// unwrapTo unwraps amount of the router's wrapped balance and sends the native
// asset to to.
func (r *Router) unwrapTo(tx *state.Tx, to common.Address, amount *uint256.Int) error {
	weth, err := r.wrapper(tx)
	if err != nil {
		return err
	}
	if err := weth.Withdraw(tx, r.address, amount); err != nil {
		return err
	}
	return r.safeTransferNative(tx, to, amount)
}
