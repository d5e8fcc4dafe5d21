// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deftvm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/deft"
	"github.com/luxfi/deft/vms/deftvm/config"
	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/router/library"
	"github.com/luxfi/deft/vms/deftvm/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInitializeDeploysGenesis(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, nil, nil, nil)

	require.Equal(config.DefaultConfig(), vm.Config)
	require.Equal(DefaultFactoryAddress, vm.Factory().Address())
	require.Equal(DefaultRouterAddress, vm.Router().Address())
	require.Equal(DefaultFactoryAddress, vm.Router().Factory())
	require.Equal(DefaultWETHAddress, vm.Router().WETH())

	require.NoError(vm.View(func(tx *state.Tx) error {
		n, err := vm.Factory().AllPairsLength(tx)
		require.NoError(err)
		require.Equal(uint64(2), n)

		setter, err := vm.Factory().FeeToSetter(tx)
		require.NoError(err)
		require.Equal(feeToSetter, setter)

		native, err := tx.NativeBalance(wallet)
		require.NoError(err)
		require.Equal(e18(100), native)

		pair, err := vm.Factory().GetPair(tx, tokenAAddr, DefaultWETHAddress)
		require.NoError(err)
		expected, err := library.PairFor(DefaultFactoryAddress, tokenAAddr, DefaultWETHAddress)
		require.NoError(err)
		require.Equal(expected, pair)
		return nil
	}))
	require.Equal(e18(10_000), balanceOf(t, vm, tokenAAddr, wallet))
	require.Equal(e18(10_000), balanceOf(t, vm, tokenBAddr, wallet))

	// genesis pairs are tracked from the start
	require.Len(vm.Oracle().Pairs(), 2)
}

func TestInitializeErrors(t *testing.T) {
	duplicate := testGenesis()
	duplicate.Tokens[1].Address = tokenAAddr

	tests := []struct {
		name        string
		genesis     []byte
		config      []byte
		expectedErr error
	}{
		{
			name:        "missing genesis",
			expectedErr: errMissingGenesis,
		},
		{
			name:        "invalid config",
			genesis:     genesisBytes(t, testGenesis()),
			config:      []byte(`{"maxPathLength":1}`),
			expectedErr: config.ErrInvalidMaxPathLength,
		},
		{
			name:        "duplicate token",
			genesis:     genesisBytes(t, duplicate),
			expectedErr: errDuplicateAddress,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			vm := &VM{}
			err := vm.Initialize(context.Background(), &deft.Config{
				DB:           memdb.New(),
				GenesisBytes: test.genesis,
				ConfigBytes:  test.config,
			})
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestExecuteRequiresNormalOp(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, nil, nil, nil)

	require.NoError(vm.SetState(context.Background(), deft.Bootstrapping))
	require.False(vm.IsBootstrapped())
	_, err := vm.Execute(func(*state.Tx) error { return nil })
	require.ErrorIs(err, errNotBootstrapped)

	require.NoError(vm.SetState(context.Background(), deft.NormalOp))
	_, err = vm.Execute(func(*state.Tx) error { return nil })
	require.NoError(err)
}

func TestSetStateUnknown(t *testing.T) {
	vm := newTestVM(t, nil, nil, nil)
	err := vm.SetState(context.Background(), deft.Unknown)
	require.ErrorIs(t, err, errUnknownState)
}

func TestExecuteSwap(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()
	vm := newTestVM(t, nil, reg, nil)

	addLiquidity(t, vm, e18(1), e18(4))

	amountIn := uint256.NewInt(100_000_000_000_000_000)
	expectedOut := uint256.MustFromDecimal("362644357552059652")
	receipt, err := vm.Execute(func(tx *state.Tx) error {
		amounts, err := vm.Router().SwapExactTokensForTokens(
			tx,
			wallet,
			amountIn,
			new(uint256.Int),
			[]common.Address{tokenAAddr, tokenBAddr},
			wallet,
			noDeadline,
		)
		if err != nil {
			return err
		}
		require.Equal(expectedOut, amounts[1])
		return nil
	})
	require.NoError(err)
	require.Len(state.Filter[core.Swap](receipt.Logs), 1)

	balanceB := new(uint256.Int).Sub(e18(10_000), e18(4))
	balanceB.Add(balanceB, expectedOut)
	require.Equal(balanceB, balanceOf(t, vm, tokenBAddr, wallet))

	errFailed := errors.New("failed")
	_, err = vm.Execute(func(*state.Tx) error { return errFailed })
	require.ErrorIs(err, errFailed)

	// genesis, liquidity and the swap
	require.Equal(3.0, counterValue(t, reg, "deft_calls_committed"))
	require.Equal(1.0, counterValue(t, reg, "deft_calls_aborted"))
	require.Equal(2.0, counterValue(t, reg, "deft_oracle_updates"))
}

func TestOracleConsult(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, nil, nil, []byte(`{"oracleWindow":60000000000}`))

	addLiquidity(t, vm, e18(1), e18(4))
	vm.Clock().Advance(time.Minute)

	var pairAddr common.Address
	require.NoError(vm.View(func(tx *state.Tx) error {
		var err error
		pairAddr, err = vm.Factory().GetPair(tx, tokenAAddr, tokenBAddr)
		return err
	}))
	require.NoError(vm.View(func(tx *state.Tx) error {
		amountOut, err := vm.Oracle().Consult(tx, pairAddr, tokenAAddr, e18(1))
		require.NoError(err)
		require.Equal(e18(4), amountOut)
		return nil
	}))
}

func TestConcurrentExecuteObservesInOrder(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, nil, nil, nil)

	addLiquidity(t, vm, e18(100), e18(100))

	const swaps = 32
	var eg errgroup.Group
	for i := 0; i < swaps; i++ {
		eg.Go(func() error {
			vm.Clock().Advance(time.Second)
			_, err := vm.Execute(func(tx *state.Tx) error {
				_, err := vm.Router().SwapExactTokensForTokens(
					tx,
					wallet,
					e18(1),
					new(uint256.Int),
					[]common.Address{tokenAAddr, tokenBAddr},
					wallet,
					noDeadline,
				)
				return err
			})
			return err
		})
	}
	require.NoError(eg.Wait())

	var pairAddr common.Address
	require.NoError(vm.View(func(tx *state.Tx) error {
		var err error
		pairAddr, err = vm.Factory().GetPair(tx, tokenAAddr, tokenBAddr)
		return err
	}))
	observations := vm.Oracle().Observations(pairAddr)
	require.NotEmpty(observations)
	for i := 1; i < len(observations); i++ {
		require.Less(observations[i-1].Timestamp, observations[i].Timestamp)
		require.True(observations[i-1].Price0Cumulative.Lt(observations[i].Price0Cumulative))
	}
	require.Equal(uint32(vm.Clock().Unix()), observations[len(observations)-1].Timestamp)
}

func TestOracleDisabled(t *testing.T) {
	vm := newTestVM(t, nil, nil, []byte(`{"oracleEnabled":false}`))
	require.Nil(t, vm.Oracle())

	addLiquidity(t, vm, e18(1), e18(4))
}

func TestRestart(t *testing.T) {
	require := require.New(t)
	db := memdb.New()

	vm := newTestVM(t, sharedDB{db}, nil, nil)
	addLiquidity(t, vm, e18(1), e18(4))
	require.NoError(vm.Shutdown(context.Background()))

	_, err := vm.Execute(func(*state.Tx) error { return nil })
	require.ErrorIs(err, errShutdown)

	restarted := newTestVM(t, sharedDB{db}, nil, nil)
	require.Equal(new(uint256.Int).Sub(e18(10_000), e18(1)), balanceOf(t, restarted, tokenAAddr, wallet))
	require.NoError(restarted.View(func(tx *state.Tx) error {
		pairAddr, err := restarted.Factory().GetPair(tx, tokenAAddr, tokenBAddr)
		require.NoError(err)
		pair, err := core.LookupPair(tx, pairAddr)
		require.NoError(err)
		r, err := pair.GetReserves(tx)
		require.NoError(err)
		require.Equal(e18(1), r.Reserve0)
		require.Equal(e18(4), r.Reserve1)
		return nil
	}))

	// the restored router keeps working
	addLiquidity(t, restarted, e18(1), e18(4))
}

func TestRestartGenesisMismatch(t *testing.T) {
	require := require.New(t)
	db := memdb.New()

	vm := newTestVM(t, sharedDB{db}, nil, nil)
	require.NoError(vm.Shutdown(context.Background()))

	other := testGenesis()
	other.FeeTo = wallet
	restarted := &VM{}
	err := restarted.Initialize(context.Background(), &deft.Config{
		DB:           sharedDB{db},
		GenesisBytes: genesisBytes(t, other),
		Log:          log.NewNoOpLogger(),
	})
	require.ErrorIs(err, errGenesisMismatch)
}

func TestShutdown(t *testing.T) {
	require := require.New(t)
	db := memdb.New()

	vm := newTestVM(t, db, nil, nil)
	require.NoError(vm.Shutdown(context.Background()))
	require.NoError(vm.Shutdown(context.Background()))

	_, err := db.Get([]byte("key"))
	require.ErrorIs(err, database.ErrClosed)

	_, err = vm.Execute(func(*state.Tx) error { return nil })
	require.ErrorIs(err, errShutdown)
}

func TestHealthCheck(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, nil, nil, nil)

	health, err := vm.HealthCheck(context.Background())
	require.NoError(err)
	details := health.(map[string]interface{})
	require.Equal(true, details["healthy"])
	require.Equal(uint64(2), details["pairs"])
	require.Equal(2, details["oraclePairs"])

	_, err = (&VM{}).HealthCheck(context.Background())
	require.ErrorIs(err, errNotInitialized)
}

func TestCreateHandlers(t *testing.T) {
	require := require.New(t)
	vm := newTestVM(t, nil, nil, nil)

	handlers, err := vm.CreateHandlers(context.Background())
	require.NoError(err)
	require.Contains(handlers, "")

	v, err := vm.Version(context.Background())
	require.NoError(err)
	require.Equal(version, v)
}

func TestFactoryNew(t *testing.T) {
	require := require.New(t)

	c := config.DefaultConfig()
	c.MaxPathLength = 3
	f := &Factory{Config: c}
	intf, err := f.New(log.NewNoOpLogger())
	require.NoError(err)

	vm := intf.(*VM)
	require.NoError(vm.Initialize(context.Background(), &deft.Config{
		GenesisBytes: genesisBytes(t, testGenesis()),
	}))
	require.Equal(3, vm.MaxPathLength())
	require.NoError(vm.Shutdown(context.Background()))
}
