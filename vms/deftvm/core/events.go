// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	EventPairCreated = "PairCreated(address,address,address,uint256)"
	EventMint        = "Mint(address,uint256,uint256)"
	EventBurn        = "Burn(address,uint256,uint256,address)"
	EventSwap        = "Swap(address,uint256,uint256,uint256,uint256,address)"
	EventSync        = "Sync(uint112,uint112)"
)

var (
	SigPairCreated = crypto.Keccak256Hash([]byte(EventPairCreated))
	SigMint        = crypto.Keccak256Hash([]byte(EventMint))
	SigBurn        = crypto.Keccak256Hash([]byte(EventBurn))
	SigSwap        = crypto.Keccak256Hash([]byte(EventSwap))
	SigSync        = crypto.Keccak256Hash([]byte(EventSync))
)

// PairCreated is emitted by the factory. Index is the number of pairs after
// creation, so the first pair has index 1.
type PairCreated struct {
	Token0 common.Address
	Token1 common.Address
	Pair   common.Address
	Index  uint64
}

func (PairCreated) Topic() common.Hash { return SigPairCreated }

type Mint struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

func (Mint) Topic() common.Hash { return SigMint }

type Burn struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	To      common.Address
}

func (Burn) Topic() common.Hash { return SigBurn }

type Swap struct {
	Sender     common.Address
	Amount0In  *uint256.Int
	Amount1In  *uint256.Int
	Amount0Out *uint256.Int
	Amount1Out *uint256.Int
	To         common.Address
}

func (Swap) Topic() common.Hash { return SigSwap }

type Sync struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

func (Sync) Topic() common.Hash { return SigSync }
