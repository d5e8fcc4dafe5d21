// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the Deft VM.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidOracleWindow     = errors.New("oracle window must be at least one second")
	ErrInvalidMaxPathLength    = errors.New("max path length must be at least 2")
	ErrMissingMetricsNamespace = errors.New("metrics namespace must not be empty")
)

// Config contains configuration parameters for the Deft VM.
type Config struct {
	// ChainID is bound into permit signatures
	ChainID uint64 `json:"chainID"`

	// OracleEnabled tracks a TWAP for every pair that syncs its reserves
	OracleEnabled bool `json:"oracleEnabled"`
	// OracleWindow is the minimum period a TWAP quote averages over
	OracleWindow time.Duration `json:"oracleWindow"`

	// MaxPathLength bounds the swap paths accepted by quote APIs
	MaxPathLength int `json:"maxPathLength"`

	// MetricsEnabled registers VM metrics on the provided registerer
	MetricsEnabled bool `json:"metricsEnabled"`
	// MetricsNamespace prefixes every VM metric
	MetricsNamespace string `json:"metricsNamespace"`
}

// DefaultConfig returns the default configuration for the Deft VM.
func DefaultConfig() Config {
	return Config{
		ChainID: 96369,

		OracleEnabled: true,
		OracleWindow:  30 * time.Minute,

		MaxPathLength: 8,

		MetricsEnabled:   true,
		MetricsNamespace: "deft",
	}
}

// Parse unmarshals b over the defaults and validates the result.
func Parse(b []byte) (Config, error) {
	return Apply(DefaultConfig(), b)
}

// Apply unmarshals b over c and validates the result. Empty input leaves c
// unchanged.
func Apply(c Config, b []byte) (Config, error) {
	if len(b) > 0 {
		if err := json.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	return c, c.Validate()
}

// Validate returns an error if c cannot be used to run the VM.
func (c Config) Validate() error {
	switch {
	case c.OracleEnabled && c.OracleWindow < time.Second:
		return fmt.Errorf("%w: %s", ErrInvalidOracleWindow, c.OracleWindow)
	case c.MaxPathLength < 2:
		return fmt.Errorf("%w: %d", ErrInvalidMaxPathLength, c.MaxPathLength)
	case c.MetricsEnabled && c.MetricsNamespace == "":
		return ErrMissingMetricsNamespace
	default:
		return nil
	}
}
