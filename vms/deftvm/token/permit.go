// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/state"
)

// Version is the EIP-712 domain version of every Deft token.
const Version = "1"

var (
	ErrInvalidSignature = errors.New("INVALID_SIGNATURE")
	ErrExpired          = errors.New("EXPIRED")

	DomainTypehash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	PermitTypehash = crypto.Keccak256Hash([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

// DomainSeparator returns the EIP-712 domain hash of a token.
func DomainSeparator(name string, chainID *uint256.Int, verifyingContract common.Address) common.Hash {
	return crypto.Keccak256Hash(
		DomainTypehash.Bytes(),
		crypto.Keccak256([]byte(name)),
		crypto.Keccak256([]byte(Version)),
		word(chainID),
		common.LeftPadBytes(verifyingContract.Bytes(), 32),
	)
}

// PermitDigest returns the hash an owner signs to approve spender.
func PermitDigest(
	domainSeparator common.Hash,
	owner common.Address,
	spender common.Address,
	value *uint256.Int,
	nonce *uint256.Int,
	deadline uint64,
) common.Hash {
	structHash := crypto.Keccak256(
		PermitTypehash.Bytes(),
		common.LeftPadBytes(owner.Bytes(), 32),
		common.LeftPadBytes(spender.Bytes(), 32),
		word(value),
		word(nonce),
		word(uint256.NewInt(deadline)),
	)
	return crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		domainSeparator.Bytes(),
		structHash,
	)
}

// Sign signs digest with key, returning the signature in (v, r, s) form with
// v in {27, 28}.
func Sign(digest common.Hash, key *ecdsa.PrivateKey) (uint8, common.Hash, common.Hash, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return 0, common.Hash{}, common.Hash{}, err
	}
	return sig[64] + 27, common.BytesToHash(sig[:32]), common.BytesToHash(sig[32:64]), nil
}

// Recover returns the address that produced the (v, r, s) signature over
// digest.
func Recover(digest common.Hash, v uint8, r, s common.Hash) (common.Address, error) {
	if v != 27 && v != 28 {
		return common.Address{}, fmt.Errorf("%w: v = %d", ErrInvalidSignature, v)
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig[:32], r.Bytes())
	copy(sig[32:64], s.Bytes())
	sig[64] = v - 27

	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func word(x *uint256.Int) []byte {
	b := x.Bytes32()
	return b[:]
}

// DomainSeparator returns the EIP-712 domain hash of t on the current chain.
func (t *ERC20) DomainSeparator(tx *state.Tx) common.Hash {
	return DomainSeparator(t.name, tx.ChainID(), t.address)
}

// Nonces returns the next permit nonce of owner.
func (t *ERC20) Nonces(tx *state.Tx, owner common.Address) (*uint256.Int, error) {
	return tx.Storage(t.address).GetUint256(nonceSlot(owner))
}

// Permit sets the allowance of spender over owner's tokens to value, given
// owner's signature over the permit digest.
func (t *ERC20) Permit(
	tx *state.Tx,
	owner common.Address,
	spender common.Address,
	value *uint256.Int,
	deadline uint64,
	v uint8,
	r common.Hash,
	s common.Hash,
) error {
	nonce, err := t.Nonces(tx, owner)
	if err != nil {
		return err
	}
	digest := PermitDigest(t.DomainSeparator(tx), owner, spender, value, nonce, deadline)
	signer, err := Recover(digest, v, r, s)
	if err != nil {
		return err
	}
	if signer == (common.Address{}) || signer != owner {
		return fmt.Errorf("%w: signed by %s", ErrInvalidSignature, signer)
	}
	if deadline < tx.Timestamp() {
		return ErrExpired
	}

	if err := tx.Storage(t.address).PutUint256(nonceSlot(owner), new(uint256.Int).AddUint64(nonce, 1)); err != nil {
		return err
	}
	return t.approve(tx, owner, spender, value)
}
