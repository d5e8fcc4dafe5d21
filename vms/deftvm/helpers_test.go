// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deftvm

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/deft"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"

	safejson "github.com/luxfi/deft/utils/json"
)

const noDeadline = math.MaxUint64

var (
	wallet      = common.HexToAddress("0x0000000000000000000000000000000000001001")
	feeToSetter = common.HexToAddress("0x0000000000000000000000000000000000002002")
	tokenAAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	tokenBAddr  = common.HexToAddress("0x00000000000000000000000000000000000000b0")

	genesisTime = time.Unix(1_700_000_000, 0)
)

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

// testGenesis funds wallet with 100 native and 10000 of two tokens, and
// creates the A/B and A/WETH pairs.
func testGenesis() *Genesis {
	return &Genesis{
		FeeToSetter: feeToSetter,
		Native: []Allocation{
			{Address: wallet, Amount: safejson.NewUint256(e18(100))},
		},
		Tokens: []Token{
			{
				Address:  tokenAAddr,
				Name:     "Token A",
				Symbol:   "TKA",
				Decimals: 18,
				Allocations: []Allocation{
					{Address: wallet, Amount: safejson.NewUint256(e18(10_000))},
				},
			},
			{
				Address:  tokenBAddr,
				Name:     "Token B",
				Symbol:   "TKB",
				Decimals: 18,
				Allocations: []Allocation{
					{Address: wallet, Amount: safejson.NewUint256(e18(10_000))},
				},
			},
		},
		Pairs: []Pair{
			{TokenA: tokenAAddr, TokenB: tokenBAddr},
			{TokenA: tokenAAddr, TokenB: DefaultWETHAddress},
		},
	}
}

func genesisBytes(t *testing.T, g *Genesis) []byte {
	t.Helper()
	b, err := json.Marshal(g)
	require.NoError(t, err)
	return b
}

// newTestVM returns a VM in normal operation over db, with its clock pinned
// to genesisTime.
// sharedDB outlives the VMs opened on it, so a restarted VM finds the state
// of the previous one.
type sharedDB struct {
	database.Database
}

func (sharedDB) Close() error {
	return nil
}

func newTestVM(t *testing.T, db database.Database, reg prometheus.Registerer, configBytes []byte) *VM {
	t.Helper()
	require := require.New(t)

	if db == nil {
		db = memdb.New()
	}
	vm := &VM{}
	vm.Clock().Set(genesisTime)
	require.NoError(vm.Initialize(context.Background(), &deft.Config{
		DB:           db,
		GenesisBytes: genesisBytes(t, testGenesis()),
		ConfigBytes:  configBytes,
		Log:          log.NewNoOpLogger(),
		Registerer:   reg,
	}))
	require.NoError(vm.SetState(context.Background(), deft.NormalOp))
	t.Cleanup(func() {
		require.NoError(vm.Shutdown(context.Background()))
	})
	return vm
}

func erc20(tx *state.Tx, addr common.Address) (*token.ERC20, error) {
	return state.CodeAs[*token.ERC20](tx, addr)
}

// addLiquidity approves the router for wallet's A and B and adds amountA and
// amountB to the A/B pair.
func addLiquidity(t *testing.T, vm *VM, amountA, amountB *uint256.Int) {
	t.Helper()
	_, err := vm.Execute(func(tx *state.Tx) error {
		for _, addr := range []common.Address{tokenAAddr, tokenBAddr} {
			tok, err := erc20(tx, addr)
			if err != nil {
				return err
			}
			if err := tok.Approve(tx, wallet, vm.Router().Address(), new(uint256.Int).SetAllOne()); err != nil {
				return err
			}
		}
		_, _, _, err := vm.Router().AddLiquidity(
			tx,
			wallet,
			tokenAAddr,
			tokenBAddr,
			amountA,
			amountB,
			new(uint256.Int),
			new(uint256.Int),
			wallet,
			noDeadline,
		)
		return err
	})
	require.NoError(t, err)
}

func balanceOf(t *testing.T, vm *VM, tokenAddr, owner common.Address) *uint256.Int {
	t.Helper()
	var balance *uint256.Int
	require.NoError(t, vm.View(func(tx *state.Tx) error {
		var err error
		balance, err = token.BalanceOf(tx, tokenAddr, owner)
		return err
	}))
	return balance
}

func counterValue(t *testing.T, reg prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
