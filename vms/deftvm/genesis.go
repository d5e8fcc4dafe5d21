// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deftvm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/luxfi/log"

	avajson "github.com/luxfi/utils/json"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/router"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"

	safejson "github.com/luxfi/deft/utils/json"
)

var (
	DefaultFactoryAddress = common.HexToAddress("0x0000000000000000000000000000000000000d01")
	DefaultRouterAddress  = common.HexToAddress("0x0000000000000000000000000000000000000d02")
	DefaultWETHAddress    = common.HexToAddress("0x0000000000000000000000000000000000000d03")

	errMissingFeeToSetter = errors.New("genesis feeToSetter must be set")
	errDuplicateAddress   = errors.New("genesis address used twice")
	errZeroAddress        = errors.New("genesis token address must be set")
	errUnknownToken       = errors.New("genesis pair references unknown token")
)

// Allocation credits an address at genesis.
type Allocation struct {
	Address common.Address   `json:"address"`
	Amount  safejson.Uint256 `json:"amount"`
}

// Token is a token deployed at genesis.
type Token struct {
	Address       common.Address `json:"address"`
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	Decimals      uint8          `json:"decimals"`
	FeeOnTransfer bool           `json:"feeOnTransfer"`
	Allocations   []Allocation   `json:"allocations"`
}

// Pair is a pair created at genesis.
type Pair struct {
	TokenA common.Address `json:"tokenA"`
	TokenB common.Address `json:"tokenB"`
}

// Genesis describes the initial state of the exchange.
type Genesis struct {
	Timestamp   avajson.Uint64 `json:"timestamp"`
	FeeToSetter common.Address `json:"feeToSetter"`
	FeeTo       common.Address `json:"feeTo"`

	Factory common.Address `json:"factory"`
	Router  common.Address `json:"router"`
	WETH    common.Address `json:"weth"`

	Native []Allocation `json:"native"`
	Tokens []Token      `json:"tokens"`
	Pairs  []Pair       `json:"pairs"`
}

// ParseGenesis unmarshals and validates b, filling in default contract
// addresses.
func ParseGenesis(b []byte) (*Genesis, error) {
	g := &Genesis{}
	if err := json.Unmarshal(b, g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genesis: %w", err)
	}
	if g.Factory == (common.Address{}) {
		g.Factory = DefaultFactoryAddress
	}
	if g.Router == (common.Address{}) {
		g.Router = DefaultRouterAddress
	}
	if g.WETH == (common.Address{}) {
		g.WETH = DefaultWETHAddress
	}
	return g, g.Verify()
}

// Verify returns an error if g cannot be deployed.
func (g *Genesis) Verify() error {
	if g.FeeToSetter == (common.Address{}) {
		return errMissingFeeToSetter
	}

	used := map[common.Address]bool{
		g.Factory: true,
	}
	for _, addr := range []common.Address{g.Router, g.WETH} {
		if used[addr] {
			return fmt.Errorf("%w: %s", errDuplicateAddress, addr)
		}
		used[addr] = true
	}
	for _, t := range g.Tokens {
		if t.Address == (common.Address{}) {
			return fmt.Errorf("%w: %s", errZeroAddress, t.Symbol)
		}
		if used[t.Address] {
			return fmt.Errorf("%w: %s", errDuplicateAddress, t.Address)
		}
		used[t.Address] = true
	}
	for _, p := range g.Pairs {
		for _, addr := range []common.Address{p.TokenA, p.TokenB} {
			if addr != g.WETH && !g.isToken(addr) {
				return fmt.Errorf("%w: %s", errUnknownToken, addr)
			}
		}
	}
	return nil
}

func (g *Genesis) isToken(addr common.Address) bool {
	for _, t := range g.Tokens {
		if t.Address == addr {
			return true
		}
	}
	return false
}

// deploy writes the genesis state.
func (g *Genesis) deploy(tx *state.Tx, logger log.Logger) (*core.Factory, *router.Router, error) {
	for _, a := range g.Native {
		if err := tx.MintNative(a.Address, a.Amount.Int()); err != nil {
			return nil, nil, err
		}
	}
	if _, err := token.DeployWETH(tx, g.WETH); err != nil {
		return nil, nil, err
	}
	ledgers, err := g.deployTokens(tx)
	if err != nil {
		return nil, nil, err
	}
	for i, t := range g.Tokens {
		for _, a := range t.Allocations {
			if err := ledgers[i].Mint(tx, a.Address, a.Amount.Int()); err != nil {
				return nil, nil, err
			}
		}
	}

	factory, err := core.DeployFactory(tx, g.Factory, g.FeeToSetter, logger)
	if err != nil {
		return nil, nil, err
	}
	if g.FeeTo != (common.Address{}) {
		if err := factory.SetFeeTo(tx, g.FeeToSetter, g.FeeTo); err != nil {
			return nil, nil, err
		}
	}
	for _, p := range g.Pairs {
		if _, err := factory.CreatePair(tx, g.FeeToSetter, p.TokenA, p.TokenB); err != nil {
			return nil, nil, err
		}
	}
	r, err := router.Deploy(tx, g.Router, g.Factory, g.WETH, logger)
	if err != nil {
		return nil, nil, err
	}
	return factory, r, nil
}

// restore republishes the contract implementations over state written by a
// previous deploy.
func (g *Genesis) restore(tx *state.Tx, logger log.Logger) (*core.Factory, *router.Router, error) {
	if _, err := token.DeployWETH(tx, g.WETH); err != nil {
		return nil, nil, err
	}
	if _, err := g.deployTokens(tx); err != nil {
		return nil, nil, err
	}
	factory, err := core.RestoreFactory(tx, g.Factory, logger)
	if err != nil {
		return nil, nil, err
	}
	r, err := router.Restore(tx, g.Router, logger)
	if err != nil {
		return nil, nil, err
	}
	return factory, r, nil
}

// deployTokens publishes the implementation of every genesis token and
// returns their ledgers in order.
func (g *Genesis) deployTokens(tx *state.Tx) ([]*token.ERC20, error) {
	ledgers := make([]*token.ERC20, 0, len(g.Tokens))
	for _, t := range g.Tokens {
		if t.FeeOnTransfer {
			fot, err := token.DeployFeeOnTransfer(tx, t.Address, t.Name, t.Symbol, t.Decimals)
			if err != nil {
				return nil, err
			}
			ledgers = append(ledgers, fot.ERC20)
			continue
		}
		erc20, err := token.DeployERC20(tx, t.Address, t.Name, t.Symbol, t.Decimals)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, erc20)
	}
	return ledgers, nil
}
