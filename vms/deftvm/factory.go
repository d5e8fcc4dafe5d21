// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package deftvm implements a constant-product automated market maker VM.
//
// The Deft VM hosts:
//   - A factory that creates one pair per unordered token pair
//   - Pairs holding two reserves under the x * y >= k invariant, with a
//     0.3% swap fee, flash swaps and price accumulators
//   - A router that adds and removes liquidity and swaps along paths
//   - A TWAP oracle fed by the pairs' accumulators
package deftvm

import (
	"github.com/luxfi/log"

	"github.com/luxfi/deft"
	"github.com/luxfi/deft/vms/deftvm/config"
)

var (
	// VMID is the unique identifier for the Deft VM
	VMID = [32]byte{'d', 'e', 'f', 't', 'v', 'm'}

	_ deft.Factory = (*Factory)(nil)
)

// Factory creates new Deft VM instances.
type Factory struct {
	config.Config
}

// New implements deft.Factory interface.
// The returned VM starts from the factory's configuration.
func (f *Factory) New(logger log.Logger) (deft.VM, error) {
	return &VM{
		Config: f.Config,
		log:    logger,
	}, nil
}
