// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PairCodeIdentity names the pair implementation. Changing it moves every
// pair address.
const PairCodeIdentity = "deft/core.Pair/v1"

// PairCodeHash is the Keccak-256 hash of PairCodeIdentity. Together with the
// factory address and the sorted token pair it fixes the address of every
// pair, so clients can derive pair addresses without a registry lookup.
var PairCodeHash = crypto.Keccak256Hash([]byte(PairCodeIdentity))

// SortTokens returns tokenA and tokenB in canonical order.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address, error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalAddresses
	}
	token0, token1 := tokenA, tokenB
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		token0, token1 = tokenB, tokenA
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	return token0, token1, nil
}

// PairSalt is the CREATE2 salt of the (token0, token1) pair.
func PairSalt(token0, token1 common.Address) common.Hash {
	return crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
}

// PairAddress returns the address factory deploys the tokenA/tokenB pair to:
// keccak256(0xff ++ factory ++ keccak256(token0 ++ token1) ++ PairCodeHash)[12:].
func PairAddress(factory, tokenA, tokenB common.Address) (common.Address, error) {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.CreateAddress2(factory, PairSalt(token0, token1), PairCodeHash.Bytes()), nil
}
