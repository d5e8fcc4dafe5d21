// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var prefixStorage = []byte("storage:")

// Slot names a single storage cell of a contract.
type Slot []byte

// Key builds the slot name[/part]... Parts are expected to be fixed width.
func Key(name string, parts ...[]byte) Slot {
	slot := []byte(name)
	for _, part := range parts {
		slot = append(slot, '/')
		slot = append(slot, part...)
	}
	return slot
}

// Storage is the key space of one contract. Unset slots read as zero.
type Storage struct {
	tx     *Tx
	prefix []byte
}

func (s *Storage) key(slot Slot) []byte {
	key := make([]byte, 0, len(s.prefix)+1+len(slot))
	key = append(key, s.prefix...)
	key = append(key, ':')
	return append(key, slot...)
}

func (s *Storage) GetUint256(slot Slot) (*uint256.Int, error) {
	value, err := s.tx.get(s.key(slot))
	if err != nil {
		return nil, err
	}
	if len(value) > 32 {
		return nil, fmt.Errorf("%w: %q holds %d bytes", ErrStateCorrupted, slot, len(value))
	}
	return new(uint256.Int).SetBytes(value), nil
}

func (s *Storage) PutUint256(slot Slot, value *uint256.Int) error {
	if value.IsZero() {
		return s.tx.delete(s.key(slot))
	}
	return s.tx.put(s.key(slot), value.Bytes())
}

func (s *Storage) GetAddress(slot Slot) (common.Address, error) {
	value, err := s.tx.get(s.key(slot))
	if err != nil {
		return common.Address{}, err
	}
	switch len(value) {
	case 0:
		return common.Address{}, nil
	case common.AddressLength:
		return common.BytesToAddress(value), nil
	default:
		return common.Address{}, fmt.Errorf("%w: %q holds %d bytes", ErrStateCorrupted, slot, len(value))
	}
}

func (s *Storage) PutAddress(slot Slot, addr common.Address) error {
	if addr == (common.Address{}) {
		return s.tx.delete(s.key(slot))
	}
	return s.tx.put(s.key(slot), addr.Bytes())
}

func (s *Storage) GetUint64(slot Slot) (uint64, error) {
	value, err := s.tx.get(s.key(slot))
	if err != nil {
		return 0, err
	}
	switch len(value) {
	case 0:
		return 0, nil
	case 8:
		return binary.BigEndian.Uint64(value), nil
	default:
		return 0, fmt.Errorf("%w: %q holds %d bytes", ErrStateCorrupted, slot, len(value))
	}
}

func (s *Storage) PutUint64(slot Slot, value uint64) error {
	if value == 0 {
		return s.tx.delete(s.key(slot))
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return s.tx.put(s.key(slot), buf[:])
}

func (s *Storage) GetBool(slot Slot) (bool, error) {
	value, err := s.tx.get(s.key(slot))
	if err != nil {
		return false, err
	}
	return len(value) == 1 && value[0] == 1, nil
}

func (s *Storage) PutBool(slot Slot, value bool) error {
	if !value {
		return s.tx.delete(s.key(slot))
	}
	return s.tx.put(s.key(slot), []byte{1})
}
