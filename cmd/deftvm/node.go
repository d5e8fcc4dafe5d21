// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/log"
	"github.com/luxfi/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/deft"
	"github.com/luxfi/deft/api/metrics"
	"github.com/luxfi/deft/api/server"
	"github.com/luxfi/deft/vms/deftvm"
	"github.com/luxfi/deft/vms/deftvm/state"
)

const (
	vmEndpoint      = "deft"
	metricsEndpoint = "metrics"
	healthEndpoint  = "health"

	receiptBuffer = 64
)

var errMissingGenesisFile = errors.New("missing genesis file")

type nodeConfig struct {
	HTTPHost        string
	HTTPPort        uint16
	AllowedOrigins  []string
	AllowedHosts    []string
	ShutdownTimeout time.Duration
	GenesisFile     string
	ConfigFile      string
	DBDir           string
}

// node runs one VM behind the HTTP API server.
type node struct {
	log      log.Logger
	vm       *deftvm.VM
	server   server.Server
	listener net.Listener
}

func newNode(cfg nodeConfig, logger log.Logger) (*node, error) {
	if cfg.GenesisFile == "" {
		return nil, errMissingGenesisFile
	}
	genesisBytes, err := os.ReadFile(cfg.GenesisFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis: %w", err)
	}
	var configBytes []byte
	if cfg.ConfigFile != "" {
		configBytes, err = os.ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	gatherer := metrics.NewPrefixGatherer()
	processReg, err := metrics.MakeAndRegister(gatherer, "process")
	if err != nil {
		return nil, err
	}
	errs := wrappers.Errs{}
	errs.Add(
		processReg.Register(collectors.NewGoCollector()),
		processReg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	)
	if errs.Errored() {
		return nil, errs.Err
	}
	vmReg, err := metrics.MakeAndRegister(gatherer, "vm")
	if err != nil {
		return nil, err
	}
	apiReg, err := metrics.MakeAndRegister(gatherer, "api")
	if err != nil {
		return nil, err
	}

	var db database.Database
	if cfg.DBDir != "" {
		db, err = badgerdb.New(cfg.DBDir, nil, "", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	vm, err := (&deftvm.Factory{}).New(logger)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	err = vm.Initialize(ctx, &deft.Config{
		DB:           db,
		GenesisBytes: genesisBytes,
		ConfigBytes:  configBytes,
		Log:          logger,
		Registerer:   vmReg,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("failed to initialize VM: %w", err)
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(int(cfg.HTTPPort))))
	if err != nil {
		_ = vm.Shutdown(ctx)
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	srv, err := server.New(
		logger,
		listener,
		cfg.AllowedOrigins,
		cfg.ShutdownTimeout,
		apiReg,
		server.HTTPConfig{
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg.AllowedHosts,
	)
	if err != nil {
		_ = listener.Close()
		_ = vm.Shutdown(ctx)
		return nil, err
	}

	n := &node{
		log:      logger,
		vm:       vm.(*deftvm.VM),
		server:   srv,
		listener: listener,
	}
	if err := n.addRoutes(ctx, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})); err != nil {
		_ = listener.Close()
		_ = vm.Shutdown(ctx)
		return nil, err
	}
	return n, nil
}

func (n *node) addRoutes(ctx context.Context, metricsHandler http.Handler) error {
	handlers, err := n.vm.CreateHandlers(ctx)
	if err != nil {
		return err
	}
	for extension, handler := range handlers {
		if err := n.server.AddRoute(handler, vmEndpoint, extension); err != nil {
			return err
		}
	}

	errs := wrappers.Errs{}
	errs.Add(
		n.server.AddRoute(metricsHandler, metricsEndpoint, ""),
		n.server.AddRoute(http.HandlerFunc(n.serveHealth), healthEndpoint, ""),
	)
	return errs.Err
}

func (n *node) serveHealth(w http.ResponseWriter, r *http.Request) {
	details, err := n.vm.HealthCheck(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	report, _ := details.(map[string]interface{})
	if healthy, _ := report["healthy"].(bool); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(details)
}

// run marks the VM ready and serves until [ctx] is cancelled or the server
// fails. The VM is shut down before run returns.
func (n *node) run(ctx context.Context) error {
	if err := n.vm.SetState(ctx, deft.NormalOp); err != nil {
		_ = n.listener.Close()
		_ = n.vm.Shutdown(context.Background())
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(n.server.Dispatch)
	g.Go(func() error {
		return n.logReceipts(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		n.log.Info("shutting down HTTP API server")
		return n.server.Shutdown()
	})
	err := g.Wait()

	if shutdownErr := n.vm.Shutdown(context.Background()); err == nil {
		err = shutdownErr
	}
	return err
}

func (n *node) logReceipts(ctx context.Context) error {
	receipts := make(chan *state.Receipt, receiptBuffer)
	sub := n.vm.SubscribeReceipts(receipts)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case receipt := <-receipts:
			n.log.Debug("call committed",
				log.Stringer("id", receipt.ID),
				log.Uint64("sequence", receipt.Sequence),
				log.Int("events", len(receipt.Logs)),
			)
		}
	}
}
