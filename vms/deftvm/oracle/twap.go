// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle derives manipulation resistant average prices from the
// cumulative price accumulators of Deft pairs.
package oracle

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/state"

	safemath "github.com/luxfi/deft/utils/math"
)

var (
	// ErrNoObservations indicates no price observations are available.
	ErrNoObservations = errors.New("no price observations available")

	// ErrInsufficientHistory indicates no observation is old enough to span
	// the window.
	ErrInsufficientHistory = errors.New("insufficient price history for TWAP")

	// ErrInvalidWindow indicates an invalid TWAP window duration.
	ErrInvalidWindow = errors.New("TWAP window must be at least one second")

	// ErrInvalidToken indicates a token that is not one of the pair's.
	ErrInvalidToken = errors.New("token is not in the pair")

	// DefaultWindow is the default TWAP window.
	DefaultWindow = 30 * time.Minute

	// MaxObservations is the maximum number of observations kept per pair.
	MaxObservations = 1000
)

// Observation is a snapshot of a pair's accumulators.
type Observation struct {
	Timestamp        uint32
	Price0Cumulative *uint256.Int
	Price1Cumulative *uint256.Int
}

// CurrentCumulativePrices returns the accumulators of pair as they would be
// if the pair were updated in the current block, without writing to it.
func CurrentCumulativePrices(tx *state.Tx, pair *core.Pair) (Observation, error) {
	price0, err := pair.Price0CumulativeLast(tx)
	if err != nil {
		return Observation{}, err
	}
	price1, err := pair.Price1CumulativeLast(tx)
	if err != nil {
		return Observation{}, err
	}
	r, err := pair.GetReserves(tx)
	if err != nil {
		return Observation{}, err
	}

	blockTimestamp := uint32(tx.Timestamp())
	if r.BlockTimestampLast != blockTimestamp && !r.Reserve0.IsZero() && !r.Reserve1.IsZero() {
		// subtraction overflow is desired
		elapsed := uint256.NewInt(uint64(blockTimestamp - r.BlockTimestampLast))
		price0.Add(price0, new(uint256.Int).Mul(safemath.UQDiv(safemath.Encode(r.Reserve1), r.Reserve0), elapsed))
		price1.Add(price1, new(uint256.Int).Mul(safemath.UQDiv(safemath.Encode(r.Reserve0), r.Reserve1), elapsed))
	}
	return Observation{
		Timestamp:        blockTimestamp,
		Price0Cumulative: price0,
		Price1Cumulative: price1,
	}, nil
}

// TWAP tracks the time-weighted average price of one pair. It keeps a
// bounded history of accumulator observations and averages between the
// current accumulators and the newest observation at least one window old.
type TWAP struct {
	mu           sync.RWMutex
	pair         *core.Pair
	token0       common.Address
	token1       common.Address
	window       uint32
	observations []Observation
}

// NewTWAP creates a TWAP over pair with the given window.
func NewTWAP(tx *state.Tx, pair *core.Pair, window time.Duration) (*TWAP, error) {
	if window < time.Second {
		return nil, ErrInvalidWindow
	}
	token0, err := pair.Token0(tx)
	if err != nil {
		return nil, err
	}
	token1, err := pair.Token1(tx)
	if err != nil {
		return nil, err
	}
	return &TWAP{
		pair:         pair,
		token0:       token0,
		token1:       token1,
		window:       uint32(window / time.Second),
		observations: make([]Observation, 0, 64),
	}, nil
}

// Update records the pair's current accumulators. At most one observation is
// kept per block, and an observation older than the newest kept one is
// dropped.
func (t *TWAP) Update(tx *state.Tx) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	obs, err := CurrentCumulativePrices(tx, t.pair)
	if err != nil {
		return err
	}
	if n := len(t.observations); n > 0 && t.observations[n-1].Timestamp >= obs.Timestamp {
		return nil
	}
	t.observations = append(t.observations, obs)
	t.prune(obs.Timestamp)
	return nil
}

// prune drops observations older than the newest one that already spans the
// window. Must be called with lock held.
func (t *TWAP) prune(now uint32) {
	start := 0
	for i, obs := range t.observations {
		if now-obs.Timestamp >= t.window {
			start = i
		}
	}
	if len(t.observations)-start > MaxObservations {
		start = len(t.observations) - MaxObservations
	}
	if start > 0 {
		n := copy(t.observations, t.observations[start:])
		t.observations = t.observations[:n]
	}
}

// Consult returns how much of the other token amountIn of tokenIn is worth at
// the average price over at least the last window.
func (t *TWAP) Consult(tx *state.Tx, tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if tokenIn != t.token0 && tokenIn != t.token1 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, tokenIn)
	}
	current, err := CurrentCumulativePrices(tx, t.pair)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.observations) == 0 {
		return nil, ErrNoObservations
	}
	var (
		past  Observation
		found bool
	)
	for i := len(t.observations) - 1; i >= 0; i-- {
		ts := t.observations[i].Timestamp
		if ts <= current.Timestamp && current.Timestamp-ts >= t.window {
			past = t.observations[i]
			found = true
			break
		}
	}
	if !found {
		return nil, ErrInsufficientHistory
	}

	elapsed := uint256.NewInt(uint64(current.Timestamp - past.Timestamp))
	var average *uint256.Int
	if tokenIn == t.token0 {
		average = new(uint256.Int).Sub(current.Price0Cumulative, past.Price0Cumulative)
	} else {
		average = new(uint256.Int).Sub(current.Price1Cumulative, past.Price1Cumulative)
	}
	average.Div(average, elapsed)

	amountOut, err := safemath.Mul(average, amountIn)
	if err != nil {
		return nil, err
	}
	return safemath.Decode144(amountOut), nil
}

// Observations returns the kept observations, oldest first.
func (t *TWAP) Observations() []Observation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.observations)
}

// ObservationCount returns the number of observations kept.
func (t *TWAP) ObservationCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.observations)
}

// Window returns the TWAP window.
func (t *TWAP) Window() time.Duration {
	return time.Duration(t.window) * time.Second
}

// Pair returns the address of the tracked pair.
func (t *TWAP) Pair() common.Address {
	return t.pair.Address()
}
