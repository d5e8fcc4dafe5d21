// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/luxfi/log"

	"github.com/luxfi/deft/vms/deftvm/state"
)

var (
	slotFeeTo          = state.Key("feeTo")
	slotFeeToSetter    = state.Key("feeToSetter")
	slotAllPairsLength = state.Key("allPairsLength")
)

func pairSlot(tokenA, tokenB common.Address) state.Slot {
	return state.Key("pair", tokenA.Bytes(), tokenB.Bytes())
}

func allPairsSlot(index uint64) state.Slot {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	return state.Key("allPairs", buf[:])
}

// Factory deploys one pair per unordered token pair and holds the protocol
// fee switch.
type Factory struct {
	address common.Address
	log     log.Logger
}

// DeployFactory deploys a factory at address. feeToSetter may later enable
// the protocol fee.
func DeployFactory(tx *state.Tx, address, feeToSetter common.Address, logger log.Logger) (*Factory, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	f := &Factory{
		address: address,
		log:     logger,
	}
	if err := tx.Deploy(address, f); err != nil {
		return nil, err
	}
	if err := tx.Storage(address).PutAddress(slotFeeToSetter, feeToSetter); err != nil {
		return nil, err
	}
	return f, nil
}

// RestoreFactory re-deploys the implementation of the factory at address and
// of every pair it created. Storage survives a restart; implementations do
// not.
func RestoreFactory(tx *state.Tx, address common.Address, logger log.Logger) (*Factory, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	f := &Factory{
		address: address,
		log:     logger,
	}
	if err := tx.Deploy(address, f); err != nil {
		return nil, err
	}

	n, err := f.AllPairsLength(tx)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		addr, err := f.AllPairs(tx, i)
		if err != nil {
			return nil, err
		}
		if err := tx.Deploy(addr, newPair(addr, f)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// LookupFactory resolves the factory deployed at addr.
func LookupFactory(tx *state.Tx, addr common.Address) (*Factory, error) {
	return state.CodeAs[*Factory](tx, addr)
}

func (f *Factory) Address() common.Address {
	return f.address
}

// CreatePair deploys the tokenA/tokenB pair and returns its address.
func (f *Factory) CreatePair(tx *state.Tx, caller, tokenA, tokenB common.Address) (common.Address, error) {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}

	s := tx.Storage(f.address)
	existing, err := s.GetAddress(pairSlot(token0, token1))
	if err != nil {
		return common.Address{}, err
	}
	if existing != (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrPairExists, existing)
	}

	addr := crypto.CreateAddress2(f.address, PairSalt(token0, token1), PairCodeHash.Bytes())
	pair := newPair(addr, f)
	if err := tx.Deploy(addr, pair); err != nil {
		return common.Address{}, err
	}
	if err := pair.Initialize(tx, f.address, token0, token1); err != nil {
		return common.Address{}, err
	}

	if err := s.PutAddress(pairSlot(token0, token1), addr); err != nil {
		return common.Address{}, err
	}
	if err := s.PutAddress(pairSlot(token1, token0), addr); err != nil {
		return common.Address{}, err
	}
	n, err := s.GetUint64(slotAllPairsLength)
	if err != nil {
		return common.Address{}, err
	}
	if err := s.PutAddress(allPairsSlot(n), addr); err != nil {
		return common.Address{}, err
	}
	n++
	if err := s.PutUint64(slotAllPairsLength, n); err != nil {
		return common.Address{}, err
	}

	tx.Emit(f.address, PairCreated{
		Token0: token0,
		Token1: token1,
		Pair:   addr,
		Index:  n,
	})
	f.log.Debug("pair created",
		log.Stringer("token0", token0),
		log.Stringer("token1", token1),
		log.Stringer("pair", addr),
		log.Uint64("index", n),
	)
	return addr, nil
}

// GetPair returns the pair of tokenA and tokenB in either order, or the zero
// address if there is none.
func (f *Factory) GetPair(tx *state.Tx, tokenA, tokenB common.Address) (common.Address, error) {
	return tx.Storage(f.address).GetAddress(pairSlot(tokenA, tokenB))
}

// AllPairs returns the index-th pair created.
func (f *Factory) AllPairs(tx *state.Tx, index uint64) (common.Address, error) {
	n, err := f.AllPairsLength(tx)
	if err != nil {
		return common.Address{}, err
	}
	if index >= n {
		return common.Address{}, fmt.Errorf("%w: %d >= %d", ErrPairIndex, index, n)
	}
	return tx.Storage(f.address).GetAddress(allPairsSlot(index))
}

func (f *Factory) AllPairsLength(tx *state.Tx) (uint64, error) {
	return tx.Storage(f.address).GetUint64(slotAllPairsLength)
}

// FeeTo returns the protocol fee recipient. The zero address disables the fee.
func (f *Factory) FeeTo(tx *state.Tx) (common.Address, error) {
	return tx.Storage(f.address).GetAddress(slotFeeTo)
}

func (f *Factory) FeeToSetter(tx *state.Tx) (common.Address, error) {
	return tx.Storage(f.address).GetAddress(slotFeeToSetter)
}

func (f *Factory) SetFeeTo(tx *state.Tx, caller, feeTo common.Address) error {
	if err := f.onlyFeeToSetter(tx, caller); err != nil {
		return err
	}
	return tx.Storage(f.address).PutAddress(slotFeeTo, feeTo)
}

func (f *Factory) SetFeeToSetter(tx *state.Tx, caller, feeToSetter common.Address) error {
	if err := f.onlyFeeToSetter(tx, caller); err != nil {
		return err
	}
	return tx.Storage(f.address).PutAddress(slotFeeToSetter, feeToSetter)
}

func (f *Factory) onlyFeeToSetter(tx *state.Tx, caller common.Address) error {
	setter, err := f.FeeToSetter(tx)
	if err != nil {
		return err
	}
	if caller != setter {
		return ErrFactoryForbidden
	}
	return nil
}
