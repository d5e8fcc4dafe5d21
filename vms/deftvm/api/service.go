// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api provides the JSON-RPC API of the Deft VM.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	avajson "github.com/luxfi/utils/json"

	"github.com/luxfi/deft/vms/deftvm/core"
	"github.com/luxfi/deft/vms/deftvm/oracle"
	"github.com/luxfi/deft/vms/deftvm/router"
	"github.com/luxfi/deft/vms/deftvm/router/library"
	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"

	safejson "github.com/luxfi/deft/utils/json"
)

var (
	ErrNotBootstrapped = errors.New("deft not bootstrapped")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrOracleDisabled  = errors.New("price oracle disabled")
)

// VM is the part of the Deft VM the API reads from.
type VM interface {
	IsBootstrapped() bool
	View(fn func(*state.Tx) error) error
	Factory() *core.Factory
	Router() *router.Router
	// Oracle returns nil when the price oracle is disabled.
	Oracle() *oracle.Oracle
	MaxPathLength() int
	Version(context.Context) (string, error)
}

// Service provides the RPC API for the Deft VM.
type Service struct {
	vm VM
}

// NewService creates a new API service.
func NewService(vm VM) *Service {
	return &Service{vm: vm}
}

func (s *Service) view(fn func(*state.Tx) error) error {
	if !s.vm.IsBootstrapped() {
		return ErrNotBootstrapped
	}
	return s.vm.View(fn)
}

func (s *Service) checkPath(path []common.Address) error {
	if len(path) < 2 {
		return library.ErrInvalidPath
	}
	if limit := s.vm.MaxPathLength(); len(path) > limit {
		return fmt.Errorf("%w: path of %d tokens exceeds %d", ErrInvalidRequest, len(path), limit)
	}
	return nil
}

func amounts(xs []*uint256.Int) []safejson.Uint256 {
	out := make([]safejson.Uint256, len(xs))
	for i, x := range xs {
		out[i] = safejson.NewUint256(x)
	}
	return out
}

// PingArgs is the argument for the Ping API.
type PingArgs struct{}

// PingReply is the reply for the Ping API.
type PingReply struct {
	Success bool `json:"success"`
}

// Ping returns a simple health check response.
func (s *Service) Ping(_ *http.Request, _ *PingArgs, reply *PingReply) error {
	reply.Success = true
	return nil
}

// StatusArgs is the argument for the Status API.
type StatusArgs struct{}

// StatusReply is the reply for the Status API.
type StatusReply struct {
	Bootstrapped bool           `json:"bootstrapped"`
	Version      string         `json:"version"`
	Factory      common.Address `json:"factory"`
	Router       common.Address `json:"router"`
	WETH         common.Address `json:"weth"`
	FeeTo        common.Address `json:"feeTo"`
	FeeToSetter  common.Address `json:"feeToSetter"`
	Pairs        avajson.Uint64 `json:"pairs"`
}

// Status returns the exchange status.
func (s *Service) Status(r *http.Request, _ *StatusArgs, reply *StatusReply) error {
	version, err := s.vm.Version(r.Context())
	if err != nil {
		return err
	}
	reply.Version = version
	reply.Bootstrapped = s.vm.IsBootstrapped()
	if !reply.Bootstrapped {
		return nil
	}

	f, rt := s.vm.Factory(), s.vm.Router()
	reply.Factory = f.Address()
	reply.Router = rt.Address()
	reply.WETH = rt.WETH()
	return s.vm.View(func(tx *state.Tx) error {
		var err error
		if reply.FeeTo, err = f.FeeTo(tx); err != nil {
			return err
		}
		if reply.FeeToSetter, err = f.FeeToSetter(tx); err != nil {
			return err
		}
		n, err := f.AllPairsLength(tx)
		reply.Pairs = avajson.Uint64(n)
		return err
	})
}

// GetPairArgs is the argument for the GetPair API.
type GetPairArgs struct {
	TokenA common.Address `json:"tokenA"`
	TokenB common.Address `json:"tokenB"`
}

// GetPairReply is the reply for the GetPair API.
type GetPairReply struct {
	Pair   common.Address `json:"pair"`
	Exists bool           `json:"exists"`
}

// GetPair returns the pair of two tokens. If the pair was not created yet,
// Pair is the address it will be created at.
func (s *Service) GetPair(_ *http.Request, args *GetPairArgs, reply *GetPairReply) error {
	return s.view(func(tx *state.Tx) error {
		pair, err := s.vm.Factory().GetPair(tx, args.TokenA, args.TokenB)
		if err != nil {
			return err
		}
		if pair != (common.Address{}) {
			reply.Pair = pair
			reply.Exists = true
			return nil
		}
		reply.Pair, err = s.vm.Router().PairFor(args.TokenA, args.TokenB)
		return err
	})
}

// AllPairsArgs is the argument for the AllPairs API.
type AllPairsArgs struct{}

// AllPairsReply is the reply for the AllPairs API.
type AllPairsReply struct {
	Pairs []common.Address `json:"pairs"`
}

// AllPairs returns every pair in creation order.
func (s *Service) AllPairs(_ *http.Request, _ *AllPairsArgs, reply *AllPairsReply) error {
	return s.view(func(tx *state.Tx) error {
		f := s.vm.Factory()
		n, err := f.AllPairsLength(tx)
		if err != nil {
			return err
		}
		reply.Pairs = make([]common.Address, 0, n)
		for i := uint64(0); i < n; i++ {
			pair, err := f.AllPairs(tx, i)
			if err != nil {
				return err
			}
			reply.Pairs = append(reply.Pairs, pair)
		}
		return nil
	})
}

// GetReservesArgs is the argument for the GetReserves API.
type GetReservesArgs struct {
	Pair common.Address `json:"pair"`
}

// GetReservesReply is the reply for the GetReserves API.
type GetReservesReply struct {
	Token0               common.Address   `json:"token0"`
	Token1               common.Address   `json:"token1"`
	Reserve0             safejson.Uint256 `json:"reserve0"`
	Reserve1             safejson.Uint256 `json:"reserve1"`
	BlockTimestampLast   avajson.Uint32   `json:"blockTimestampLast"`
	Price0CumulativeLast safejson.Uint256 `json:"price0CumulativeLast"`
	Price1CumulativeLast safejson.Uint256 `json:"price1CumulativeLast"`
	KLast                safejson.Uint256 `json:"kLast"`
	TotalSupply          safejson.Uint256 `json:"totalSupply"`
}

// GetReserves returns the cached state of a pair.
func (s *Service) GetReserves(_ *http.Request, args *GetReservesArgs, reply *GetReservesReply) error {
	return s.view(func(tx *state.Tx) error {
		pair, err := core.LookupPair(tx, args.Pair)
		if err != nil {
			return err
		}
		if reply.Token0, err = pair.Token0(tx); err != nil {
			return err
		}
		if reply.Token1, err = pair.Token1(tx); err != nil {
			return err
		}
		r, err := pair.GetReserves(tx)
		if err != nil {
			return err
		}
		reply.Reserve0 = safejson.NewUint256(r.Reserve0)
		reply.Reserve1 = safejson.NewUint256(r.Reserve1)
		reply.BlockTimestampLast = avajson.Uint32(r.BlockTimestampLast)

		for _, field := range []struct {
			dst  *safejson.Uint256
			read func(*state.Tx) (*uint256.Int, error)
		}{
			{&reply.Price0CumulativeLast, pair.Price0CumulativeLast},
			{&reply.Price1CumulativeLast, pair.Price1CumulativeLast},
			{&reply.KLast, pair.KLast},
			{&reply.TotalSupply, pair.TotalSupply},
		} {
			x, err := field.read(tx)
			if err != nil {
				return err
			}
			*field.dst = safejson.NewUint256(x)
		}
		return nil
	})
}

// BalanceOfArgs is the argument for the BalanceOf API.
type BalanceOfArgs struct {
	// Token is the zero address for the native asset
	Token common.Address `json:"token"`
	Owner common.Address `json:"owner"`
}

// BalanceOfReply is the reply for the BalanceOf API.
type BalanceOfReply struct {
	Balance safejson.Uint256 `json:"balance"`
}

// BalanceOf returns the balance of an owner in a token or the native asset.
func (s *Service) BalanceOf(_ *http.Request, args *BalanceOfArgs, reply *BalanceOfReply) error {
	return s.view(func(tx *state.Tx) error {
		var (
			balance *uint256.Int
			err     error
		)
		if args.Token == (common.Address{}) {
			balance, err = tx.NativeBalance(args.Owner)
		} else {
			balance, err = token.BalanceOf(tx, args.Token, args.Owner)
		}
		if err != nil {
			return err
		}
		reply.Balance = safejson.NewUint256(balance)
		return nil
	})
}

// QuoteArgs is the argument for the Quote API.
type QuoteArgs struct {
	AmountA  safejson.Uint256 `json:"amountA"`
	ReserveA safejson.Uint256 `json:"reserveA"`
	ReserveB safejson.Uint256 `json:"reserveB"`
}

// QuoteReply is the reply for the Quote API.
type QuoteReply struct {
	AmountB safejson.Uint256 `json:"amountB"`
}

// Quote returns the amount of B equal in value to AmountA at the reserve
// ratio, without fees.
func (s *Service) Quote(_ *http.Request, args *QuoteArgs, reply *QuoteReply) error {
	amountB, err := library.Quote(args.AmountA.Int(), args.ReserveA.Int(), args.ReserveB.Int())
	if err != nil {
		return err
	}
	reply.AmountB = safejson.NewUint256(amountB)
	return nil
}

// GetAmountOutArgs is the argument for the GetAmountOut API.
type GetAmountOutArgs struct {
	AmountIn   safejson.Uint256 `json:"amountIn"`
	ReserveIn  safejson.Uint256 `json:"reserveIn"`
	ReserveOut safejson.Uint256 `json:"reserveOut"`
}

// GetAmountOutReply is the reply for the GetAmountOut API.
type GetAmountOutReply struct {
	AmountOut safejson.Uint256 `json:"amountOut"`
}

// GetAmountOut returns the output of selling AmountIn into the reserves.
func (s *Service) GetAmountOut(_ *http.Request, args *GetAmountOutArgs, reply *GetAmountOutReply) error {
	amountOut, err := library.GetAmountOut(args.AmountIn.Int(), args.ReserveIn.Int(), args.ReserveOut.Int())
	if err != nil {
		return err
	}
	reply.AmountOut = safejson.NewUint256(amountOut)
	return nil
}

// GetAmountInArgs is the argument for the GetAmountIn API.
type GetAmountInArgs struct {
	AmountOut  safejson.Uint256 `json:"amountOut"`
	ReserveIn  safejson.Uint256 `json:"reserveIn"`
	ReserveOut safejson.Uint256 `json:"reserveOut"`
}

// GetAmountInReply is the reply for the GetAmountIn API.
type GetAmountInReply struct {
	AmountIn safejson.Uint256 `json:"amountIn"`
}

// GetAmountIn returns the input required to buy AmountOut from the reserves.
func (s *Service) GetAmountIn(_ *http.Request, args *GetAmountInArgs, reply *GetAmountInReply) error {
	amountIn, err := library.GetAmountIn(args.AmountOut.Int(), args.ReserveIn.Int(), args.ReserveOut.Int())
	if err != nil {
		return err
	}
	reply.AmountIn = safejson.NewUint256(amountIn)
	return nil
}

// GetAmountsOutArgs is the argument for the GetAmountsOut API.
type GetAmountsOutArgs struct {
	AmountIn safejson.Uint256 `json:"amountIn"`
	Path     []common.Address `json:"path"`
}

// GetAmountsReply is the reply for the GetAmountsOut and GetAmountsIn APIs.
type GetAmountsReply struct {
	Amounts []safejson.Uint256 `json:"amounts"`
}

// GetAmountsOut returns the amount at every hop of selling AmountIn along
// Path against the current reserves.
func (s *Service) GetAmountsOut(_ *http.Request, args *GetAmountsOutArgs, reply *GetAmountsReply) error {
	if err := s.checkPath(args.Path); err != nil {
		return err
	}
	return s.view(func(tx *state.Tx) error {
		out, err := s.vm.Router().GetAmountsOut(tx, args.AmountIn.Int(), args.Path)
		if err != nil {
			return err
		}
		reply.Amounts = amounts(out)
		return nil
	})
}

// GetAmountsInArgs is the argument for the GetAmountsIn API.
type GetAmountsInArgs struct {
	AmountOut safejson.Uint256 `json:"amountOut"`
	Path      []common.Address `json:"path"`
}

// GetAmountsIn returns the amount at every hop of buying AmountOut of the
// last token in Path against the current reserves.
func (s *Service) GetAmountsIn(_ *http.Request, args *GetAmountsInArgs, reply *GetAmountsReply) error {
	if err := s.checkPath(args.Path); err != nil {
		return err
	}
	return s.view(func(tx *state.Tx) error {
		in, err := s.vm.Router().GetAmountsIn(tx, args.AmountOut.Int(), args.Path)
		if err != nil {
			return err
		}
		reply.Amounts = amounts(in)
		return nil
	})
}

// ConsultArgs is the argument for the Consult API.
type ConsultArgs struct {
	Pair     common.Address   `json:"pair"`
	Token    common.Address   `json:"token"`
	AmountIn safejson.Uint256 `json:"amountIn"`
}

// ConsultReply is the reply for the Consult API.
type ConsultReply struct {
	AmountOut safejson.Uint256 `json:"amountOut"`
}

// Consult values AmountIn of Token in the other token of Pair at the
// time-weighted average price.
func (s *Service) Consult(_ *http.Request, args *ConsultArgs, reply *ConsultReply) error {
	o := s.vm.Oracle()
	if o == nil {
		return ErrOracleDisabled
	}
	return s.view(func(tx *state.Tx) error {
		amountOut, err := o.Consult(tx, args.Pair, args.Token, args.AmountIn.Int())
		if err != nil {
			return err
		}
		reply.AmountOut = safejson.NewUint256(amountOut)
		return nil
	})
}
