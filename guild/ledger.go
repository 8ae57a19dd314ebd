// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package guild

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// LockTokens moves amount of the sender's tokens into the vault and adds them
// to the sender's voting weight. The sender must have approved the vault.
func (g *Guild) LockTokens(tx *Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidLockAmount
	}
	return g.atomically(func() error {
		if err := g.backends.Token.TransferFrom(g.vault, tx.From, g.vault, amount); err != nil {
			return fmt.Errorf("failed to lock tokens: %w", err)
		}
		lb := g.lockOf(tx.From)
		lb.Amount = new(big.Int).Add(lb.Amount, amount)
		lb.UnlockTime = tx.Time + g.config.LockTime
		g.locks[tx.From] = lb
		g.totalLocked = new(big.Int).Add(g.totalLocked, amount)

		writeLock(g.batch, tx.From, lb)
		writeTotalLocked(g.batch, g.totalLocked)
		g.emit(EventTokensLocked, common.Hash{}, tx.From, amount)

		log.Debug("Tokens locked", "holder", tx.From, "amount", amount, "unlock", lb.UnlockTime)
		return nil
	})
}

// ReleaseTokens returns amount of the sender's locked tokens once the lock
// period is over.
func (g *Guild) ReleaseTokens(tx *Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidLockAmount
	}
	return g.atomically(func() error {
		lb := g.lockOf(tx.From)
		if tx.Time < lb.UnlockTime {
			return ErrLockedFunds
		}
		if amount.Cmp(lb.Amount) > 0 {
			return fmt.Errorf("%w: amount exceeds locked balance", ErrLockedFunds)
		}
		if err := g.backends.Token.Transfer(g.vault, tx.From, amount); err != nil {
			return fmt.Errorf("failed to release tokens: %w", err)
		}
		lb.Amount = new(big.Int).Sub(lb.Amount, amount)
		g.locks[tx.From] = lb
		g.totalLocked = new(big.Int).Sub(g.totalLocked, amount)

		writeLock(g.batch, tx.From, lb)
		writeTotalLocked(g.batch, g.totalLocked)
		g.emit(EventTokensReleased, common.Hash{}, tx.From, amount)

		log.Debug("Tokens released", "holder", tx.From, "amount", amount)
		return nil
	})
}

// LockedBalance returns the locked balance of holder.
func (g *Guild) LockedBalance(holder common.Address) *LockedBalance {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lockOf(holder)
}

// TotalLocked returns the sum of all locked balances.
func (g *Guild) TotalLocked() *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(big.Int).Set(g.totalLocked)
}

// lockOf returns a detached copy of a holder's lock, zero valued if absent.
func (g *Guild) lockOf(holder common.Address) *LockedBalance {
	lb, ok := g.locks[holder]
	if !ok {
		return &LockedBalance{Amount: new(big.Int)}
	}
	return &LockedBalance{Amount: new(big.Int).Set(lb.Amount), UnlockTime: lb.UnlockTime}
}

func (g *Guild) votingPower(holder common.Address) *big.Int {
	if lb, ok := g.locks[holder]; ok {
		return lb.Amount
	}
	return common.Big0
}
