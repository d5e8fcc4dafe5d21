// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/luxfi/log"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/state"
)

// Oracle manages the TWAPs of many pairs.
type Oracle struct {
	mu     sync.RWMutex
	twaps  map[common.Address]*TWAP
	window time.Duration
	log    log.Logger
}

// New creates an oracle whose TWAPs use window, or DefaultWindow if window
// is not positive.
func New(window time.Duration, logger log.Logger) *Oracle {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Oracle{
		twaps:  make(map[common.Address]*TWAP),
		window: window,
		log:    logger,
	}
}

// Update records an observation of pair, tracking it from now on if it was
// not tracked before.
func (o *Oracle) Update(tx *state.Tx, pair *core.Pair) error {
	twap, err := o.getOrCreate(tx, pair)
	if err != nil {
		return err
	}
	return twap.Update(tx)
}

func (o *Oracle) getOrCreate(tx *state.Tx, pair *core.Pair) (*TWAP, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if twap, ok := o.twaps[pair.Address()]; ok {
		return twap, nil
	}
	twap, err := NewTWAP(tx, pair, o.window)
	if err != nil {
		return nil, err
	}
	o.twaps[pair.Address()] = twap
	o.log.Debug("tracking pair",
		log.Stringer("pair", pair.Address()),
		log.Duration("window", o.window),
	)
	return twap, nil
}

// Consult returns the average price quote of amountIn of tokenIn in pair.
func (o *Oracle) Consult(tx *state.Tx, pair, tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	o.mu.RLock()
	twap, ok := o.twaps[pair]
	o.mu.RUnlock()

	if !ok {
		return nil, ErrNoObservations
	}
	return twap.Consult(tx, tokenIn, amountIn)
}

// Observations returns the observations kept for pair, oldest first.
func (o *Oracle) Observations(pair common.Address) []Observation {
	o.mu.RLock()
	twap, ok := o.twaps[pair]
	o.mu.RUnlock()

	if !ok {
		return nil
	}
	return twap.Observations()
}

// Window returns the window of every TWAP.
func (o *Oracle) Window() time.Duration {
	return o.window
}

// Pairs returns the tracked pairs.
func (o *Oracle) Pairs() []common.Address {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pairs := make([]common.Address, 0, len(o.twaps))
	for pair := range o.twaps {
		pairs = append(pairs, pair)
	}
	return pairs
}
