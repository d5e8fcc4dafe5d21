// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deftvm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/log"

	"github.com/luxfi/deft"
	"github.com/luxfi/deft/utils/timer/mockable"
	"github.com/luxfi/deft/vms/deftvm/api"
	"github.com/luxfi/deft/vms/deftvm/config"
	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/metrics"
	"github.com/luxfi/deft/vms/deftvm/oracle"
	"github.com/luxfi/deft/vms/deftvm/router"
	"github.com/luxfi/deft/vms/deftvm/state"
)

const version = "v1.0.0"

var (
	errUnknownState    = errors.New("unknown state")
	errNotInitialized  = errors.New("VM not initialized")
	errNotBootstrapped = errors.New("VM not bootstrapped")
	errShutdown        = errors.New("VM is shutting down")
	errMissingGenesis  = errors.New("missing genesis")
	errGenesisMismatch = errors.New("genesis does not match the database")
	errInvalidConfig   = errors.New("invalid config")

	chainPrefix = []byte("chain")
	metaPrefix  = []byte("meta")
	genesisKey  = []byte("genesis")

	_ deft.VM = (*VM)(nil)
	_ api.VM  = (*VM)(nil)
)

// VM hosts a Deft exchange: the factory, its pairs, the router and the
// tokens they trade, over a single ledger. Calls are applied one at a time in
// the order they are executed.
type VM struct {
	config.Config

	log log.Logger

	// Lock for thread safety of the lifecycle state
	lock sync.RWMutex

	baseDB database.Database
	metaDB database.Database
	chain  *state.Chain

	// Used to stamp calls with the block time
	clock mockable.Clock

	metrics metrics.Metrics

	genesis *Genesis
	factory *core.Factory
	router  *router.Router
	oracle  *oracle.Oracle

	// Lifecycle state
	bootstrapped  bool
	isInitialized bool
	shutdown      bool
}

// Initialize implements deft.VM interface.
// It opens the ledger in cfg.DB, deploying the genesis on first start and
// restoring the deployed contracts on every later one.
func (vm *VM) Initialize(ctx context.Context, cfg *deft.Config) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if cfg.Log != nil {
		vm.log = cfg.Log
	}
	if vm.log == nil {
		vm.log = log.NewNoOpLogger()
	}

	base := vm.Config
	if base == (config.Config{}) {
		base = config.DefaultConfig()
	}
	c, err := config.Apply(base, cfg.ConfigBytes)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	vm.Config = c

	if len(cfg.GenesisBytes) == 0 {
		return errMissingGenesis
	}
	vm.genesis, err = ParseGenesis(cfg.GenesisBytes)
	if err != nil {
		return fmt.Errorf("failed to parse genesis: %w", err)
	}

	vm.metrics = metrics.NewNoOp()
	if vm.MetricsEnabled && cfg.Registerer != nil {
		vm.metrics, err = metrics.New(vm.MetricsNamespace, cfg.Registerer)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	vm.baseDB = cfg.DB
	if vm.baseDB == nil {
		vm.baseDB = memdb.New()
	}
	vm.metaDB = prefixdb.New(metaPrefix, vm.baseDB)
	vm.chain = state.New(prefixdb.New(chainPrefix, vm.baseDB), vm.ChainID, &vm.clock, vm.log)

	if err := vm.loadGenesis(cfg.GenesisBytes); err != nil {
		return err
	}

	if vm.OracleEnabled {
		vm.oracle = oracle.New(vm.OracleWindow, vm.log)
		if err := vm.trackPairs(); err != nil {
			return fmt.Errorf("failed to start oracle: %w", err)
		}
		vm.chain.OnCommit(vm.observe)
	}

	vm.isInitialized = true
	vm.log.Info("Deft VM initialized",
		log.Uint64("chainID", vm.ChainID),
		log.Stringer("factory", vm.factory.Address()),
		log.Stringer("router", vm.router.Address()),
		log.Bool("oracle", vm.OracleEnabled),
	)
	return nil
}

// loadGenesis deploys the genesis into an empty database, or restores the
// contracts of a database that already holds it.
func (vm *VM) loadGenesis(genesisBytes []byte) error {
	genesisID := crypto.Keccak256(genesisBytes)
	stored, err := vm.metaDB.Get(genesisKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		if vm.genesis.Timestamp > 0 {
			vm.clock.Set(time.Unix(int64(vm.genesis.Timestamp), 0))
			defer vm.clock.Sync()
		}
		receipt, err := vm.chain.Execute(func(tx *state.Tx) error {
			var err error
			vm.factory, vm.router, err = vm.genesis.deploy(tx, vm.log)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to deploy genesis: %w", err)
		}
		vm.metrics.MarkCommitted(receipt)
		if err := vm.metaDB.Put(genesisKey, genesisID); err != nil {
			return err
		}
		vm.log.Info("genesis deployed",
			log.Stringer("genesisID", common.BytesToHash(genesisID)),
		)
		return nil
	case err != nil:
		return err
	case !bytes.Equal(stored, genesisID):
		return fmt.Errorf("%w: have %x, expected %x", errGenesisMismatch, stored, genesisID)
	}

	_, err = vm.chain.Execute(func(tx *state.Tx) error {
		var err error
		vm.factory, vm.router, err = vm.genesis.restore(tx, vm.log)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to restore contracts: %w", err)
	}
	return nil
}

// trackPairs records a first observation of every existing pair.
func (vm *VM) trackPairs() error {
	return vm.chain.View(func(tx *state.Tx) error {
		n, err := vm.factory.AllPairsLength(tx)
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			addr, err := vm.factory.AllPairs(tx, i)
			if err != nil {
				return err
			}
			pair, err := core.LookupPair(tx, addr)
			if err != nil {
				return err
			}
			if err := vm.oracle.Update(tx, pair); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetState implements deft.VM interface.
// It transitions the VM between bootstrapping and normal operation states.
func (vm *VM) SetState(_ context.Context, s deft.State) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	switch s {
	case deft.Bootstrapping:
		vm.log.Info("Deft VM entering bootstrap state")
		vm.bootstrapped = false
		return nil
	case deft.NormalOp:
		vm.log.Info("Deft VM entering normal operation")
		vm.bootstrapped = true
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownState, s)
	}
}

// Execute applies fn as one call. The call is committed only if fn returns
// nil.
func (vm *VM) Execute(fn func(*state.Tx) error) (*state.Receipt, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	switch {
	case vm.shutdown:
		return nil, errShutdown
	case !vm.bootstrapped:
		return nil, errNotBootstrapped
	}

	receipt, err := vm.chain.Execute(fn)
	if err != nil {
		vm.metrics.MarkAborted()
		return nil, err
	}
	vm.metrics.MarkCommitted(receipt)
	return receipt, nil
}

// observe records an oracle observation of every pair whose reserves the
// call updated. It runs before the next call commits, so observations are
// taken in commit order.
func (vm *VM) observe(tx *state.Tx, receipt *state.Receipt) {
	synced := make(map[common.Address]struct{})
	for _, l := range receipt.Logs {
		if _, ok := l.Event.(core.Sync); ok {
			synced[l.Address] = struct{}{}
		}
	}
	for addr := range synced {
		pair, err := core.LookupPair(tx, addr)
		if err == nil {
			err = vm.oracle.Update(tx, pair)
		}
		if err != nil {
			vm.log.Warn("failed to update oracle",
				log.Stringer("pair", addr),
				log.Err(err),
			)
			continue
		}
		vm.metrics.MarkOracleUpdate()
	}
}

// View runs fn against the current state without the ability to write.
func (vm *VM) View(fn func(*state.Tx) error) error {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if !vm.isInitialized {
		return errNotInitialized
	}
	return vm.chain.View(fn)
}

// SubscribeReceipts delivers the receipt of every committed call.
func (vm *VM) SubscribeReceipts(ch chan<- *state.Receipt) event.Subscription {
	return vm.chain.SubscribeReceipts(ch)
}

// Shutdown implements deft.VM interface.
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown || vm.baseDB == nil {
		return nil
	}
	vm.log.Info("Shutting down Deft VM")
	vm.shutdown = true

	// The prefixed views close the database they wrap, so only the base is
	// closed here.
	if err := vm.baseDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Version implements deft.VM interface.
func (*VM) Version(context.Context) (string, error) {
	return version, nil
}

// CreateHandlers implements deft.VM interface.
// It creates the JSON-RPC handler of the exchange API.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	handler, err := api.NewHandler(vm)
	if err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"": handler,
	}, nil
}

// HealthCheck implements deft.VM interface.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if !vm.isInitialized {
		return nil, errNotInitialized
	}

	var pairs uint64
	err := vm.chain.View(func(tx *state.Tx) error {
		var err error
		pairs, err = vm.factory.AllPairsLength(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	tracked := 0
	if vm.oracle != nil {
		tracked = len(vm.oracle.Pairs())
	}
	return map[string]interface{}{
		"healthy":      vm.bootstrapped && !vm.shutdown,
		"bootstrapped": vm.bootstrapped,
		"pairs":        pairs,
		"oraclePairs":  tracked,
		"blockTime":    vm.clock.Unix(),
	}, nil
}

// Clock returns the clock calls are stamped with.
func (vm *VM) Clock() *mockable.Clock {
	return &vm.clock
}

func (vm *VM) Factory() *core.Factory {
	return vm.factory
}

func (vm *VM) Router() *router.Router {
	return vm.router
}

// Oracle returns nil when the oracle is disabled.
func (vm *VM) Oracle() *oracle.Oracle {
	return vm.oracle
}

func (vm *VM) Genesis() *Genesis {
	return vm.genesis
}

func (vm *VM) MaxPathLength() int {
	return vm.Config.MaxPathLength
}

func (vm *VM) IsBootstrapped() bool {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	return vm.bootstrapped
}
