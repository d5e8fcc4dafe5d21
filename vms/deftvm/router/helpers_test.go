// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"crypto/ecdsa"
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/deft/utils/timer/mockable"
	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"

	safemath "github.com/luxfi/deft/utils/math"
)

const noDeadline = math.MaxUint64

var (
	walletKey = mustKey("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	wallet    = crypto.PubkeyToAddress(walletKey.PublicKey)

	factoryAddr = common.HexToAddress("0x0000000000000000000000000000000000000fac")
	routerAddr  = common.HexToAddress("0x0000000000000000000000000000000000000d0e")
	token0Addr  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	token1Addr  = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	partnerAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	wethAddr    = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	fotAddr     = common.HexToAddress("0x00000000000000000000000000000000000000f0")

	genesisTime = time.Unix(1_700_000_000, 0)
	totalSupply = e18(10_000)
)

func mustKey(hex string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		panic(err)
	}
	return key
}

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func dec(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

type fixture struct {
	t       *testing.T
	chain   *state.Chain
	factory *core.Factory
	router  *Router
	weth    *token.WETH
	token0  *token.ERC20
	token1  *token.ERC20
	partner *token.ERC20
	fot     *token.FeeOnTransfer

	pair     *core.Pair
	wethPair *core.Pair
}

// newFixture deploys the exchange with wallet holding totalSupply of every
// token and of the native asset, every token approved for the router, and
// the token0/token1 and partner/WETH pairs created empty.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &mockable.Clock{}
	clock.Set(genesisTime)
	f := &fixture{
		t:     t,
		chain: state.New(memdb.New(), 1, clock, log.NewNoOpLogger()),
	}
	f.execute(func(tx *state.Tx) error {
		var err error
		f.factory, err = core.DeployFactory(tx, factoryAddr, wallet, nil)
		if err != nil {
			return err
		}
		f.weth, err = token.DeployWETH(tx, wethAddr)
		if err != nil {
			return err
		}
		f.router, err = Deploy(tx, routerAddr, factoryAddr, wethAddr, nil)
		if err != nil {
			return err
		}
		f.token0, err = token.DeployERC20(tx, token0Addr, "Token A", "TKA", 18)
		if err != nil {
			return err
		}
		f.token1, err = token.DeployERC20(tx, token1Addr, "Token B", "TKB", 18)
		if err != nil {
			return err
		}
		f.partner, err = token.DeployERC20(tx, partnerAddr, "Partner", "PTR", 18)
		if err != nil {
			return err
		}
		f.fot, err = token.DeployFeeOnTransfer(tx, fotAddr, "Fee On Transfer", "FOT", 18)
		if err != nil {
			return err
		}
		for _, tok := range []*token.ERC20{f.token0, f.token1, f.partner, f.fot.ERC20, f.weth.ERC20} {
			if err := tok.Mint(tx, wallet, totalSupply); err != nil {
				return err
			}
			if err := tok.Approve(tx, wallet, routerAddr, safemath.MaxUint256); err != nil {
				return err
			}
		}
		// back the minted WETH
		if err := tx.MintNative(wethAddr, totalSupply); err != nil {
			return err
		}
		if err := tx.MintNative(wallet, totalSupply); err != nil {
			return err
		}

		pairAddr, err := f.factory.CreatePair(tx, wallet, token0Addr, token1Addr)
		if err != nil {
			return err
		}
		f.pair, err = core.LookupPair(tx, pairAddr)
		if err != nil {
			return err
		}
		wethPairAddr, err := f.factory.CreatePair(tx, wallet, wethAddr, partnerAddr)
		if err != nil {
			return err
		}
		f.wethPair, err = core.LookupPair(tx, wethPairAddr)
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

// mint seeds pair with amountA of tokenA and amountB of tokenB from wallet,
// bypassing the router.
func (f *fixture) mint(pair *core.Pair, tokenA token.Token, amountA *uint256.Int, tokenB token.Token, amountB *uint256.Int) {
	f.t.Helper()
	f.execute(func(tx *state.Tx) error {
		if err := tokenA.Transfer(tx, wallet, pair.Address(), amountA); err != nil {
			return err
		}
		if err := tokenB.Transfer(tx, wallet, pair.Address(), amountB); err != nil {
			return err
		}
		_, err := pair.Mint(tx, wallet, wallet)
		return err
	})
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

func (f *fixture) nativeBalance(owner common.Address) *uint256.Int {
	f.t.Helper()
	var balance *uint256.Int
	f.view(func(tx *state.Tx) {
		var err error
		balance, err = tx.NativeBalance(owner)
		require.NoError(f.t, err)
	})
	return balance
}

func (f *fixture) reserves(pair *core.Pair) core.Reserves {
	f.t.Helper()
	var r core.Reserves
	f.view(func(tx *state.Tx) {
		var err error
		r, err = pair.GetReserves(tx)
		require.NoError(f.t, err)
	})
	return r
}

// permit signs a permit from wallet to the router over the shares of pair.
func (f *fixture) permit(pair *core.Pair, value *uint256.Int, deadline uint64) (uint8, common.Hash, common.Hash) {
	f.t.Helper()
	var digest common.Hash
	f.view(func(tx *state.Tx) {
		nonce, err := pair.Nonces(tx, wallet)
		require.NoError(f.t, err)
		digest = token.PermitDigest(pair.DomainSeparator(tx), wallet, routerAddr, value, nonce, deadline)
	})
	v, r, s, err := token.Sign(digest, walletKey)
	require.NoError(f.t, err)
	return v, r, s
}

func sub(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sub(a, b)
}

func add(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(a, b)
}
