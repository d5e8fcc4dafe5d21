// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	EventTransfer   = "Transfer(address,address,uint256)"
	EventApproval   = "Approval(address,address,uint256)"
	EventDeposit    = "Deposit(address,uint256)"
	EventWithdrawal = "Withdrawal(address,uint256)"
)

var (
	SigTransfer   = crypto.Keccak256Hash([]byte(EventTransfer))
	SigApproval   = crypto.Keccak256Hash([]byte(EventApproval))
	SigDeposit    = crypto.Keccak256Hash([]byte(EventDeposit))
	SigWithdrawal = crypto.Keccak256Hash([]byte(EventWithdrawal))
)

type Transfer struct {
	From  common.Address
	To    common.Address
	Value *uint256.Int
}

func (Transfer) Topic() common.Hash { return SigTransfer }

type Approval struct {
	Owner   common.Address
	Spender common.Address
	Value   *uint256.Int
}

func (Approval) Topic() common.Hash { return SigApproval }

type Deposit struct {
	Dst   common.Address
	Value *uint256.Int
}

func (Deposit) Topic() common.Hash { return SigDeposit }

type Withdrawal struct {
	Src   common.Address
	Value *uint256.Int
}

func (Withdrawal) Topic() common.Hash { return SigWithdrawal }
