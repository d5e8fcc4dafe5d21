// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/deft/utils/timer/mockable"
)

var (
	errTest = errors.New("non-nil error")

	alice    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bob      = common.HexToAddress("0x2000000000000000000000000000000000000002")
	contract = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

type pinged struct {
	N uint64
}

func (pinged) Topic() common.Hash {
	return crypto.Keccak256Hash([]byte("Pinged(uint256)"))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_000, 0))
	return New(memdb.New(), 1, clock, log.NewNoOpLogger())
}

func TestExecuteCommits(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	receipt, err := chain.Execute(func(tx *Tx) error {
		require.Equal(uint64(1_000), tx.Timestamp())
		s := tx.Storage(contract)
		if err := s.PutUint256(Key("total"), uint256.NewInt(7)); err != nil {
			return err
		}
		if err := s.PutAddress(Key("owner"), alice); err != nil {
			return err
		}
		tx.Emit(contract, pinged{N: 1})
		return nil
	})
	require.NoError(err)
	require.Equal(uint64(1), receipt.Sequence)
	require.Equal(uint64(1_000), receipt.Timestamp)
	require.Len(receipt.Logs, 1)
	require.Equal(contract, receipt.Logs[0].Address)
	require.Equal([]pinged{{N: 1}}, Filter[pinged](receipt.Logs))

	require.NoError(chain.View(func(tx *Tx) error {
		s := tx.Storage(contract)
		total, err := s.GetUint256(Key("total"))
		require.NoError(err)
		require.Equal(uint256.NewInt(7), total)

		owner, err := s.GetAddress(Key("owner"))
		require.NoError(err)
		require.Equal(alice, owner)
		return nil
	}))
}

func TestExecuteAbortsOnError(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	_, err := chain.Execute(func(tx *Tx) error {
		if err := tx.Storage(contract).PutUint64(Key("count"), 5); err != nil {
			return err
		}
		if err := tx.Deploy(contract, "impl"); err != nil {
			return err
		}
		if err := tx.MintNative(alice, uint256.NewInt(10)); err != nil {
			return err
		}
		tx.Emit(contract, pinged{N: 2})
		return errTest
	})
	require.ErrorIs(err, errTest)

	require.NoError(chain.View(func(tx *Tx) error {
		count, err := tx.Storage(contract).GetUint64(Key("count"))
		require.NoError(err)
		require.Zero(count)

		_, ok := tx.Code(contract)
		require.False(ok)

		balance, err := tx.NativeBalance(alice)
		require.NoError(err)
		require.True(balance.IsZero())
		return nil
	}))

	// the aborted call did not consume a sequence number
	receipt, err := chain.Execute(func(*Tx) error { return nil })
	require.NoError(err)
	require.Equal(uint64(1), receipt.Sequence)
}

func TestViewIsReadOnly(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	err := chain.View(func(tx *Tx) error {
		require.True(tx.ReadOnly())
		return tx.Storage(contract).PutBool(Key("flag"), true)
	})
	require.ErrorIs(err, ErrReadOnly)

	err = chain.View(func(tx *Tx) error {
		return tx.Deploy(contract, 1)
	})
	require.ErrorIs(err, ErrReadOnly)
}

func TestDeploy(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	_, err := chain.Execute(func(tx *Tx) error {
		if err := tx.Deploy(contract, "first"); err != nil {
			return err
		}
		// visible to the rest of the call
		impl, err := CodeAs[string](tx, contract)
		require.NoError(err)
		require.Equal("first", impl)

		return tx.Deploy(contract, "second")
	})
	require.ErrorIs(err, ErrAddressInUse)

	_, err = chain.Execute(func(tx *Tx) error {
		return tx.Deploy(contract, "first")
	})
	require.NoError(err)

	require.NoError(chain.View(func(tx *Tx) error {
		_, err := CodeAs[int](tx, contract)
		require.ErrorIs(err, ErrCodeMismatch)

		_, err = CodeAs[string](tx, bob)
		require.ErrorIs(err, ErrNoCode)
		return nil
	}))
}

func TestNative(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	_, err := chain.Execute(func(tx *Tx) error {
		if err := tx.MintNative(alice, uint256.NewInt(100)); err != nil {
			return err
		}
		return tx.TransferNative(alice, bob, uint256.NewInt(40))
	})
	require.NoError(err)

	_, err = chain.Execute(func(tx *Tx) error {
		return tx.TransferNative(alice, bob, uint256.NewInt(61))
	})
	require.ErrorIs(err, ErrInsufficientNative)

	require.NoError(chain.View(func(tx *Tx) error {
		balance, err := tx.NativeBalance(alice)
		require.NoError(err)
		require.Equal(uint256.NewInt(60), balance)

		balance, err = tx.NativeBalance(bob)
		require.NoError(err)
		require.Equal(uint256.NewInt(40), balance)
		return nil
	}))
}

func TestStorageZeroValues(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	slot := Key("balance", alice.Bytes())
	_, err := chain.Execute(func(tx *Tx) error {
		s := tx.Storage(contract)
		if err := s.PutUint256(slot, uint256.NewInt(3)); err != nil {
			return err
		}
		if err := s.PutUint256(slot, new(uint256.Int)); err != nil {
			return err
		}
		if err := s.PutBool(Key("flag"), true); err != nil {
			return err
		}
		return s.PutBool(Key("flag"), false)
	})
	require.NoError(err)

	require.NoError(chain.View(func(tx *Tx) error {
		s := tx.Storage(contract)
		value, err := s.GetUint256(slot)
		require.NoError(err)
		require.True(value.IsZero())

		flag, err := s.GetBool(Key("flag"))
		require.NoError(err)
		require.False(flag)

		// slots are scoped to their contract
		other, err := tx.Storage(bob).GetUint256(slot)
		require.NoError(err)
		require.True(other.IsZero())
		return nil
	}))
}

func TestSubscribeReceipts(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	receipts := make(chan *Receipt, 2)
	sub := chain.SubscribeReceipts(receipts)
	defer sub.Unsubscribe()

	_, err := chain.Execute(func(tx *Tx) error {
		tx.Emit(contract, pinged{N: 1})
		return errTest
	})
	require.ErrorIs(err, errTest)

	chain.Clock().Advance(time.Second)
	committed, err := chain.Execute(func(tx *Tx) error {
		tx.Emit(contract, pinged{N: 2})
		return nil
	})
	require.NoError(err)

	require.Len(receipts, 1)
	received := <-receipts
	require.Equal(committed.ID, received.ID)
	require.Equal(uint64(1_001), received.Timestamp)
	require.Equal([]pinged{{N: 2}}, Filter[pinged](received.Logs))
}

func TestOnCommitRunsInCommitOrder(t *testing.T) {
	require := require.New(t)
	chain := newTestChain(t)

	var (
		sequences []uint64
		totals    []uint64
		hookErr   error
	)
	chain.OnCommit(func(tx *Tx, receipt *Receipt) {
		total, err := tx.Storage(contract).GetUint64(Key("total"))
		if err != nil {
			hookErr = err
		}
		if tx.Timestamp() != receipt.Timestamp {
			hookErr = errTest
		}
		sequences = append(sequences, receipt.Sequence)
		totals = append(totals, total)
	})

	_, err := chain.Execute(func(*Tx) error { return errTest })
	require.ErrorIs(err, errTest)

	const calls = 50
	var eg errgroup.Group
	for i := 0; i < calls; i++ {
		eg.Go(func() error {
			_, err := chain.Execute(func(tx *Tx) error {
				s := tx.Storage(contract)
				total, err := s.GetUint64(Key("total"))
				if err != nil {
					return err
				}
				return s.PutUint64(Key("total"), total+1)
			})
			return err
		})
	}
	require.NoError(eg.Wait())
	require.NoError(hookErr)

	require.Len(sequences, calls)
	for i := range sequences {
		require.Equal(uint64(i+1), sequences[i])
		require.Equal(uint64(i+1), totals[i])
	}
}
