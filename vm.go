// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package deft defines the virtual machine interfaces the Deft exchange is
// hosted behind.
package deft

import (
	"context"
	"net/http"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

// VM defines the interface for a virtual machine
type VM interface {
	// Initialize initializes the VM with the given configuration
	Initialize(context.Context, *Config) error

	// Shutdown cleanly stops the VM
	Shutdown(context.Context) error

	// Version returns the VM version
	Version(context.Context) (string, error)

	// SetState transitions the VM to the specified state
	SetState(context.Context, State) error

	// CreateHandlers returns the HTTP handlers of the VM keyed by the path
	// extension they are served under
	CreateHandlers(context.Context) (map[string]http.Handler, error)

	// HealthCheck returns a description of the VM's health
	HealthCheck(context.Context) (interface{}, error)
}

// Config defines VM configuration
type Config struct {
	// DB persists the VM state. It is closed on Shutdown.
	DB database.Database

	GenesisBytes []byte
	ConfigBytes  []byte

	Log log.Logger

	// Registerer receives the VM metrics. May be nil.
	Registerer prometheus.Registerer
}
