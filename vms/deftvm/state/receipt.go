// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/luxfi/ids"
)

// Event is a typed contract event.
type Event interface {
	// Topic is the Keccak-256 hash of the event signature.
	Topic() common.Hash
}

// Log is an event together with the contract that emitted it.
type Log struct {
	Address common.Address
	Event   Event
}

// Receipt describes a committed call.
type Receipt struct {
	ID        ids.ID
	Sequence  uint64
	Timestamp uint64
	Logs      []Log
}

// Filter returns the logs whose event is a T, in emission order.
func Filter[T Event](logs []Log) []T {
	var events []T
	for _, l := range logs {
		if e, ok := l.Event.(T); ok {
			events = append(events, e)
		}
	}
	return events
}
