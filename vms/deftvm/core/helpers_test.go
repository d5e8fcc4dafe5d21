// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/deft/utils/timer/mockable"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"
)

var (
	wallet      = common.HexToAddress("0x0000000000000000000000000000000000001001")
	other       = common.HexToAddress("0x0000000000000000000000000000000000002002")
	factoryAddr = common.HexToAddress("0x0000000000000000000000000000000000000fac")
	token0Addr  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	token1Addr  = common.HexToAddress("0x00000000000000000000000000000000000000b0")

	genesisTime = time.Unix(1_700_000_000, 0)
)

// e18 returns n * 10^18.
func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func dec(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

type fixture struct {
	t       *testing.T
	db      database.Database
	chain   *state.Chain
	factory *Factory
	token0  *token.ERC20
	token1  *token.ERC20
	pair    *Pair
}

// newFixture deploys a factory owned by wallet, two tokens with 10000e18 each
// held by wallet, and their pair.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memdb.New()
	clock := &mockable.Clock{}
	clock.Set(genesisTime)
	f := &fixture{
		t:     t,
		db:    db,
		chain: state.New(db, 1, clock, log.NewNoOpLogger()),
	}
	f.execute(func(tx *state.Tx) error {
		var err error
		f.factory, err = DeployFactory(tx, factoryAddr, wallet, log.NewNoOpLogger())
		if err != nil {
			return err
		}
		f.token0, err = token.DeployERC20(tx, token0Addr, "Token A", "TKA", 18)
		if err != nil {
			return err
		}
		if err := f.token0.Mint(tx, wallet, e18(10_000)); err != nil {
			return err
		}
		f.token1, err = token.DeployERC20(tx, token1Addr, "Token B", "TKB", 18)
		if err != nil {
			return err
		}
		if err := f.token1.Mint(tx, wallet, e18(10_000)); err != nil {
			return err
		}
		pairAddr, err := f.factory.CreatePair(tx, wallet, token0Addr, token1Addr)
		if err != nil {
			return err
		}
		f.pair, err = LookupPair(tx, pairAddr)
		return err
	})
	return f
}

func (f *fixture) execute(fn func(*state.Tx) error) *state.Receipt {
	f.t.Helper()
	receipt, err := f.chain.Execute(fn)
	require.NoError(f.t, err)
	return receipt
}

func (f *fixture) view(fn func(*state.Tx)) {
	f.t.Helper()
	require.NoError(f.t, f.chain.View(func(tx *state.Tx) error {
		fn(tx)
		return nil
	}))
}

func (f *fixture) advance(seconds uint64) {
	f.chain.Clock().Advance(time.Duration(seconds) * time.Second)
}

func (f *fixture) transfer(tok token.Token, to common.Address, value *uint256.Int) {
	f.t.Helper()
	f.execute(func(tx *state.Tx) error {
		return tok.Transfer(tx, wallet, to, value)
	})
}

func (f *fixture) addLiquidity(amount0, amount1 *uint256.Int) {
	f.t.Helper()
	f.transfer(f.token0, f.pair.Address(), amount0)
	f.transfer(f.token1, f.pair.Address(), amount1)
	f.execute(func(tx *state.Tx) error {
		_, err := f.pair.Mint(tx, wallet, wallet)
		return err
	})
}

func (f *fixture) reserves() Reserves {
	f.t.Helper()
	var r Reserves
	f.view(func(tx *state.Tx) {
		var err error
		r, err = f.pair.GetReserves(tx)
		require.NoError(f.t, err)
	})
	return r
}

func (f *fixture) balanceOf(tok token.Token, owner common.Address) *uint256.Int {
	f.t.Helper()
	var balance *uint256.Int
	f.view(func(tx *state.Tx) {
		var err error
		balance, err = tok.BalanceOf(tx, owner)
		require.NoError(f.t, err)
	})
	return balance
}

func (f *fixture) totalSupply() *uint256.Int {
	f.t.Helper()
	var supply *uint256.Int
	f.view(func(tx *state.Tx) {
		var err error
		supply, err = f.pair.TotalSupply(tx)
		require.NoError(f.t, err)
	})
	return supply
}

func (f *fixture) cumulativePrices() (*uint256.Int, *uint256.Int) {
	f.t.Helper()
	var price0, price1 *uint256.Int
	f.view(func(tx *state.Tx) {
		var err error
		price0, err = f.pair.Price0CumulativeLast(tx)
		require.NoError(f.t, err)
		price1, err = f.pair.Price1CumulativeLast(tx)
		require.NoError(f.t, err)
	})
	return price0, price1
}

// encodePrice returns reserve1/reserve0 and reserve0/reserve1 as UQ112x112.
func encodePrice(reserve0, reserve1 *uint256.Int) (*uint256.Int, *uint256.Int) {
	price0 := new(uint256.Int).Lsh(reserve1, 112)
	price0.Div(price0, reserve0)
	price1 := new(uint256.Int).Lsh(reserve0, 112)
	price1.Div(price1, reserve1)
	return price0, price1
}
