// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/luxfi/deft/vms/deftvm/state"
	"github.com/luxfi/deft/vms/deftvm/token"

	safemath "github.com/luxfi/deft/utils/math"
)

const (
	LPName     = "Deft LP Token"
	LPSymbol   = "LP-DEFT"
	LPDecimals = 18

	// FeeNumerator / FeeDenominator of every swap input is kept by the pool.
	FeeNumerator   = 3
	FeeDenominator = 1000
)

var (
	// MinimumLiquidity is locked to the zero address by the first mint.
	MinimumLiquidity = uint256.NewInt(1000)

	feeDenominator        = uint256.NewInt(FeeDenominator)
	feeNumerator          = uint256.NewInt(FeeNumerator)
	feeDenominatorSquared = uint256.NewInt(FeeDenominator * FeeDenominator)

	slotToken0               = state.Key("token0")
	slotToken1               = state.Key("token1")
	slotReserve0             = state.Key("reserve0")
	slotReserve1             = state.Key("reserve1")
	slotBlockTimestampLast   = state.Key("blockTimestampLast")
	slotPrice0CumulativeLast = state.Key("price0CumulativeLast")
	slotPrice1CumulativeLast = state.Key("price1CumulativeLast")
	slotKLast                = state.Key("kLast")
	slotLocked               = state.Key("locked")

	_ token.Token = (*Pair)(nil)
)

// Callee receives the optimistic output of a flash swap and must pay for it
// before returning.
type Callee interface {
	DeftCall(tx *state.Tx, sender common.Address, amount0, amount1 *uint256.Int, data []byte) error
}

// Reserves are the balances a pair last accounted for.
type Reserves struct {
	Reserve0           *uint256.Int
	Reserve1           *uint256.Int
	BlockTimestampLast uint32
}

// Pair is the pool of one token pair. The pair is also the ERC20 ledger of
// its pool shares.
type Pair struct {
	*token.ERC20
	factory *Factory
}

func newPair(address common.Address, factory *Factory) *Pair {
	return &Pair{
		ERC20:   token.NewERC20(address, LPName, LPSymbol, LPDecimals),
		factory: factory,
	}
}

// LookupPair resolves the pair deployed at addr.
func LookupPair(tx *state.Tx, addr common.Address) (*Pair, error) {
	p, err := state.CodeAs[*Pair](tx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPair, err)
	}
	return p, nil
}

// Factory returns the address of the factory that deployed p.
func (p *Pair) Factory() common.Address {
	return p.factory.address
}

// Initialize binds p to its tokens. Only the factory may call it.
func (p *Pair) Initialize(tx *state.Tx, caller, token0, token1 common.Address) error {
	if caller != p.factory.address {
		return ErrForbidden
	}
	s := tx.Storage(p.Address())
	if err := s.PutAddress(slotToken0, token0); err != nil {
		return err
	}
	return s.PutAddress(slotToken1, token1)
}

func (p *Pair) Token0(tx *state.Tx) (common.Address, error) {
	return tx.Storage(p.Address()).GetAddress(slotToken0)
}

func (p *Pair) Token1(tx *state.Tx) (common.Address, error) {
	return tx.Storage(p.Address()).GetAddress(slotToken1)
}

func (p *Pair) GetReserves(tx *state.Tx) (Reserves, error) {
	s := tx.Storage(p.Address())
	reserve0, err := s.GetUint256(slotReserve0)
	if err != nil {
		return Reserves{}, err
	}
	reserve1, err := s.GetUint256(slotReserve1)
	if err != nil {
		return Reserves{}, err
	}
	timestamp, err := s.GetUint64(slotBlockTimestampLast)
	if err != nil {
		return Reserves{}, err
	}
	return Reserves{
		Reserve0:           reserve0,
		Reserve1:           reserve1,
		BlockTimestampLast: uint32(timestamp),
	}, nil
}

func (p *Pair) Price0CumulativeLast(tx *state.Tx) (*uint256.Int, error) {
	return tx.Storage(p.Address()).GetUint256(slotPrice0CumulativeLast)
}

func (p *Pair) Price1CumulativeLast(tx *state.Tx) (*uint256.Int, error) {
	return tx.Storage(p.Address()).GetUint256(slotPrice1CumulativeLast)
}

// KLast is reserve0 * reserve1 as of the last liquidity event, kept only
// while the protocol fee is on.
func (p *Pair) KLast(tx *state.Tx) (*uint256.Int, error) {
	return tx.Storage(p.Address()).GetUint256(slotKLast)
}

// Mint issues pool shares to to for the tokens transferred to the pair since
// the last update.
func (p *Pair) Mint(tx *state.Tx, caller, to common.Address) (*uint256.Int, error) {
	var liquidity *uint256.Int
	err := p.lock(tx, func(s *state.Storage) error {
		r, err := p.GetReserves(tx)
		if err != nil {
			return err
		}
		balance0, balance1, err := p.balances(tx)
		if err != nil {
			return err
		}
		amount0, err := safemath.Sub(balance0, r.Reserve0)
		if err != nil {
			return err
		}
		amount1, err := safemath.Sub(balance1, r.Reserve1)
		if err != nil {
			return err
		}

		feeOn, err := p.mintFee(tx, s, r)
		if err != nil {
			return err
		}
		// read after mintFee, which may change it
		totalSupply, err := p.TotalSupply(tx)
		if err != nil {
			return err
		}
		if totalSupply.IsZero() {
			product, err := safemath.Mul(amount0, amount1)
			if err != nil {
				return err
			}
			liquidity, err = safemath.Sub(safemath.Sqrt(product), MinimumLiquidity)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInsufficientLiquidityMinted, err)
			}
			if err := p.ERC20.Mint(tx, common.Address{}, MinimumLiquidity); err != nil {
				return err
			}
		} else {
			liquidity0, err := safemath.MulDiv(amount0, totalSupply, r.Reserve0)
			if err != nil {
				return err
			}
			liquidity1, err := safemath.MulDiv(amount1, totalSupply, r.Reserve1)
			if err != nil {
				return err
			}
			liquidity = safemath.Min(liquidity0, liquidity1)
		}
		if liquidity.IsZero() {
			return ErrInsufficientLiquidityMinted
		}
		if err := p.ERC20.Mint(tx, to, liquidity); err != nil {
			return err
		}

		if err := p.update(tx, s, balance0, balance1, r); err != nil {
			return err
		}
		if feeOn {
			if err := s.PutUint256(slotKLast, new(uint256.Int).Mul(balance0, balance1)); err != nil {
				return err
			}
		}
		tx.Emit(p.Address(), Mint{Sender: caller, Amount0: amount0, Amount1: amount1})
		return nil
	})
	return liquidity, err
}

// Burn redeems the pool shares transferred to the pair for a proportional
// share of both token balances, paid to to.
func (p *Pair) Burn(tx *state.Tx, caller, to common.Address) (*uint256.Int, *uint256.Int, error) {
	var amount0, amount1 *uint256.Int
	err := p.lock(tx, func(s *state.Storage) error {
		r, err := p.GetReserves(tx)
		if err != nil {
			return err
		}
		token0, token1, err := p.tokens(tx)
		if err != nil {
			return err
		}
		balance0, balance1, err := p.balances(tx)
		if err != nil {
			return err
		}
		liquidity, err := p.BalanceOf(tx, p.Address())
		if err != nil {
			return err
		}

		feeOn, err := p.mintFee(tx, s, r)
		if err != nil {
			return err
		}
		totalSupply, err := p.TotalSupply(tx)
		if err != nil {
			return err
		}
		if totalSupply.IsZero() {
			return ErrInsufficientLiquidityBurned
		}
		// pro rata on balances, not reserves, so donations are shared
		amount0, err = safemath.MulDiv(liquidity, balance0, totalSupply)
		if err != nil {
			return err
		}
		amount1, err = safemath.MulDiv(liquidity, balance1, totalSupply)
		if err != nil {
			return err
		}
		if amount0.IsZero() || amount1.IsZero() {
			return ErrInsufficientLiquidityBurned
		}

		if err := p.ERC20.Burn(tx, p.Address(), liquidity); err != nil {
			return err
		}
		if err := p.safeTransfer(tx, token0, to, amount0); err != nil {
			return err
		}
		if err := p.safeTransfer(tx, token1, to, amount1); err != nil {
			return err
		}
		balance0, balance1, err = p.balances(tx)
		if err != nil {
			return err
		}

		if err := p.update(tx, s, balance0, balance1, r); err != nil {
			return err
		}
		if feeOn {
			if err := s.PutUint256(slotKLast, new(uint256.Int).Mul(balance0, balance1)); err != nil {
				return err
			}
		}
		tx.Emit(p.Address(), Burn{Sender: caller, Amount0: amount0, Amount1: amount1, To: to})
		return nil
	})
	return amount0, amount1, err
}

// Swap sends amount0Out and amount1Out to to and then requires that enough
// input arrived, net of the fee, to keep reserve0 * reserve1 from
// decreasing. If data is non-empty to must be a Callee; it is called after
// the output is sent and may pay the input.
func (p *Pair) Swap(
	tx *state.Tx,
	caller common.Address,
	amount0Out *uint256.Int,
	amount1Out *uint256.Int,
	to common.Address,
	data []byte,
) error {
	if amount0Out.IsZero() && amount1Out.IsZero() {
		return ErrInsufficientOutputAmount
	}
	return p.lock(tx, func(s *state.Storage) error {
		r, err := p.GetReserves(tx)
		if err != nil {
			return err
		}
		if !amount0Out.Lt(r.Reserve0) || !amount1Out.Lt(r.Reserve1) {
			return ErrInsufficientLiquidity
		}

		token0, token1, err := p.tokens(tx)
		if err != nil {
			return err
		}
		if to == token0 || to == token1 {
			return ErrInvalidTo
		}
		if !amount0Out.IsZero() {
			if err := p.safeTransfer(tx, token0, to, amount0Out); err != nil {
				return err
			}
		}
		if !amount1Out.IsZero() {
			if err := p.safeTransfer(tx, token1, to, amount1Out); err != nil {
				return err
			}
		}
		if len(data) > 0 {
			callee, err := state.CodeAs[Callee](tx, to)
			if err != nil {
				return err
			}
			if err := callee.DeftCall(tx, caller, amount0Out, amount1Out, data); err != nil {
				return err
			}
		}
		balance0, balance1, err := p.balances(tx)
		if err != nil {
			return err
		}

		amount0In := amountIn(balance0, r.Reserve0, amount0Out)
		amount1In := amountIn(balance1, r.Reserve1, amount1Out)
		if amount0In.IsZero() && amount1In.IsZero() {
			return ErrInsufficientInputAmount
		}

		adjusted0, err := adjustedBalance(balance0, amount0In)
		if err != nil {
			return err
		}
		adjusted1, err := adjustedBalance(balance1, amount1In)
		if err != nil {
			return err
		}
		adjustedK, err := safemath.Mul(adjusted0, adjusted1)
		if err != nil {
			return err
		}
		// reserves fit in 112 bits, so this cannot overflow
		k := new(uint256.Int).Mul(r.Reserve0, r.Reserve1)
		k.Mul(k, feeDenominatorSquared)
		if adjustedK.Lt(k) {
			return ErrK
		}

		if err := p.update(tx, s, balance0, balance1, r); err != nil {
			return err
		}
		tx.Emit(p.Address(), Swap{
			Sender:     caller,
			Amount0In:  amount0In,
			Amount1In:  amount1In,
			Amount0Out: amount0Out.Clone(),
			Amount1Out: amount1Out.Clone(),
			To:         to,
		})
		return nil
	})
}

// Skim sends to any balance in excess of the reserves.
func (p *Pair) Skim(tx *state.Tx, caller, to common.Address) error {
	return p.lock(tx, func(*state.Storage) error {
		r, err := p.GetReserves(tx)
		if err != nil {
			return err
		}
		token0, token1, err := p.tokens(tx)
		if err != nil {
			return err
		}
		balance0, balance1, err := p.balances(tx)
		if err != nil {
			return err
		}
		excess0, err := safemath.Sub(balance0, r.Reserve0)
		if err != nil {
			return err
		}
		excess1, err := safemath.Sub(balance1, r.Reserve1)
		if err != nil {
			return err
		}
		if err := p.safeTransfer(tx, token0, to, excess0); err != nil {
			return err
		}
		return p.safeTransfer(tx, token1, to, excess1)
	})
}

// Sync sets the reserves to the current balances.
func (p *Pair) Sync(tx *state.Tx, caller common.Address) error {
	return p.lock(tx, func(s *state.Storage) error {
		r, err := p.GetReserves(tx)
		if err != nil {
			return err
		}
		balance0, balance1, err := p.balances(tx)
		if err != nil {
			return err
		}
		return p.update(tx, s, balance0, balance1, r)
	})
}

// lock runs fn with the pair locked. The lock is released on every return
// path, including failure.
func (p *Pair) lock(tx *state.Tx, fn func(*state.Storage) error) (err error) {
	s := tx.Storage(p.Address())
	locked, err := s.GetBool(slotLocked)
	if err != nil {
		return err
	}
	if locked {
		return ErrLocked
	}
	if err := s.PutBool(slotLocked, true); err != nil {
		return err
	}
	defer func() {
		if unlockErr := s.PutBool(slotLocked, false); err == nil {
			err = unlockErr
		}
	}()
	return fn(s)
}

// update stores balance0 and balance1 as the reserves. On the first update of
// a block it first accrues the previous reserves' price over the elapsed
// time.
func (p *Pair) update(tx *state.Tx, s *state.Storage, balance0, balance1 *uint256.Int, r Reserves) error {
	if balance0.Gt(safemath.MaxUint112) || balance1.Gt(safemath.MaxUint112) {
		return ErrOverflow
	}

	blockTimestamp := uint32(tx.Timestamp())
	timeElapsed := blockTimestamp - r.BlockTimestampLast // overflow is desired
	if timeElapsed > 0 && !r.Reserve0.IsZero() && !r.Reserve1.IsZero() {
		elapsed := uint256.NewInt(uint64(timeElapsed))

		price0, err := s.GetUint256(slotPrice0CumulativeLast)
		if err != nil {
			return err
		}
		price0.Add(price0, new(uint256.Int).Mul(safemath.UQDiv(safemath.Encode(r.Reserve1), r.Reserve0), elapsed))
		if err := s.PutUint256(slotPrice0CumulativeLast, price0); err != nil {
			return err
		}

		price1, err := s.GetUint256(slotPrice1CumulativeLast)
		if err != nil {
			return err
		}
		price1.Add(price1, new(uint256.Int).Mul(safemath.UQDiv(safemath.Encode(r.Reserve0), r.Reserve1), elapsed))
		if err := s.PutUint256(slotPrice1CumulativeLast, price1); err != nil {
			return err
		}
	}

	if err := s.PutUint256(slotReserve0, balance0); err != nil {
		return err
	}
	if err := s.PutUint256(slotReserve1, balance1); err != nil {
		return err
	}
	if err := s.PutUint64(slotBlockTimestampLast, uint64(blockTimestamp)); err != nil {
		return err
	}
	tx.Emit(p.Address(), Sync{Reserve0: balance0.Clone(), Reserve1: balance1.Clone()})
	return nil
}

// mintFee mints the protocol's share of the fees accrued since kLast:
// totalSupply * (rootK - rootKLast) / (5 * rootK + rootKLast), one sixth of
// the growth in sqrt(k).
func (p *Pair) mintFee(tx *state.Tx, s *state.Storage, r Reserves) (bool, error) {
	feeTo, err := p.factory.FeeTo(tx)
	if err != nil {
		return false, err
	}
	feeOn := feeTo != (common.Address{})

	kLast, err := s.GetUint256(slotKLast)
	if err != nil {
		return false, err
	}
	switch {
	case feeOn && !kLast.IsZero():
		rootK := safemath.Sqrt(new(uint256.Int).Mul(r.Reserve0, r.Reserve1))
		rootKLast := safemath.Sqrt(kLast)
		if !rootK.Gt(rootKLast) {
			break
		}
		totalSupply, err := p.TotalSupply(tx)
		if err != nil {
			return false, err
		}
		numerator, err := safemath.Mul(totalSupply, new(uint256.Int).Sub(rootK, rootKLast))
		if err != nil {
			return false, err
		}
		denominator := new(uint256.Int).Mul(rootK, uint256.NewInt(5))
		denominator.Add(denominator, rootKLast)
		liquidity := new(uint256.Int).Div(numerator, denominator)
		if !liquidity.IsZero() {
			if err := p.ERC20.Mint(tx, feeTo, liquidity); err != nil {
				return false, err
			}
		}
	case !feeOn && !kLast.IsZero():
		if err := s.PutUint256(slotKLast, new(uint256.Int)); err != nil {
			return false, err
		}
	}
	return feeOn, nil
}

func (p *Pair) tokens(tx *state.Tx) (common.Address, common.Address, error) {
	token0, err := p.Token0(tx)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token1, err := p.Token1(tx)
	return token0, token1, err
}

func (p *Pair) balances(tx *state.Tx) (*uint256.Int, *uint256.Int, error) {
	token0, token1, err := p.tokens(tx)
	if err != nil {
		return nil, nil, err
	}
	balance0, err := token.BalanceOf(tx, token0, p.Address())
	if err != nil {
		return nil, nil, err
	}
	balance1, err := token.BalanceOf(tx, token1, p.Address())
	if err != nil {
		return nil, nil, err
	}
	return balance0, balance1, nil
}

func (p *Pair) safeTransfer(tx *state.Tx, tokenAddr, to common.Address, value *uint256.Int) error {
	t, err := token.Lookup(tx, tokenAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if err := t.Transfer(tx, p.Address(), to, value); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// amountIn is how much of balance arrived beyond reserve - amountOut.
func amountIn(balance, reserve, amountOut *uint256.Int) *uint256.Int {
	remaining := new(uint256.Int).Sub(reserve, amountOut)
	if balance.Gt(remaining) {
		return new(uint256.Int).Sub(balance, remaining)
	}
	return new(uint256.Int)
}

// adjustedBalance is balance * FeeDenominator - amountIn * FeeNumerator.
func adjustedBalance(balance, amountIn *uint256.Int) (*uint256.Int, error) {
	scaled, err := safemath.Mul(balance, feeDenominator)
	if err != nil {
		return nil, err
	}
	fee, err := safemath.Mul(amountIn, feeNumerator)
	if err != nil {
		return nil, err
	}
	return safemath.Sub(scaled, fee)
}
