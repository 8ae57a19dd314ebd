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

// Package token implements a fungible token ledger with ERC20 transfer and
// allowance semantics, kept in memory and optionally written through to a
// key-value store.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("transfer amount exceeds allowance")
	ErrNegativeAmount        = errors.New("negative amount")
)

type allowanceKey struct {
	owner, spender common.Address
}

// Ledger is an in-memory token ledger, optionally written through to a
// database. It is safe for concurrent use.
type Ledger struct {
	symbol string
	db     ethdb.KeyValueStore // nil for a volatile ledger

	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
	supply     *big.Int
}

// NewLedger creates an empty ledger
func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:     symbol,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		supply:     new(big.Int),
	}
}

// NewPersistentLedger creates a ledger backed by db, restoring any balances
// and allowances previously stored under symbol.
func NewPersistentLedger(symbol string, db ethdb.KeyValueStore) (*Ledger, error) {
	l := NewLedger(symbol)
	l.db = db

	it := db.NewIterator(l.prefix(balanceTag), nil)
	for it.Next() {
		amount := new(big.Int)
		if err := rlp.DecodeBytes(it.Value(), amount); err != nil {
			it.Release()
			return nil, fmt.Errorf("corrupt %s balance: %w", symbol, err)
		}
		holder := common.BytesToAddress(it.Key()[len(l.prefix(balanceTag)):])
		l.balances[holder] = amount
		l.supply.Add(l.supply, amount)
	}
	it.Release()

	it = db.NewIterator(l.prefix(allowanceTag), nil)
	defer it.Release()
	for it.Next() {
		amount := new(big.Int)
		if err := rlp.DecodeBytes(it.Value(), amount); err != nil {
			return nil, fmt.Errorf("corrupt %s allowance: %w", symbol, err)
		}
		key := it.Key()[len(l.prefix(allowanceTag)):]
		if len(key) != 2*common.AddressLength {
			continue
		}
		owner, spender := common.BytesToAddress(key[:common.AddressLength]), common.BytesToAddress(key[common.AddressLength:])
		l.allowances[allowanceKey{owner, spender}] = amount
	}
	log.Info("Loaded token ledger", "symbol", symbol, "holders", len(l.balances), "supply", l.supply)
	return l, it.Error()
}

// Symbol returns the ticker of the token.
func (l *Ledger) Symbol() string {
	return l.symbol
}

// Mint creates amount new tokens owned by to.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[to] = new(big.Int).Add(l.balanceOf(to), amount)
	l.supply = new(big.Int).Add(l.supply, amount)
	return l.persist([]common.Address{to}, nil)
}

// TotalSupply returns the amount of tokens in existence.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply)
}

// BalanceOf returns the balance of holder
func (l *Ledger) BalanceOf(holder common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balanceOf(holder))
}

// Approve lets spender move up to amount of owner's tokens.
func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{owner, spender}
	l.allowances[key] = new(big.Int).Set(amount)
	return l.persist(nil, []allowanceKey{key})
}

// Allowance returns how many of owner's tokens spender may still move.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if a, ok := l.allowances[allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// Transfer moves amount from from to to.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.transfer(from, to, amount); err != nil {
		return err
	}
	return l.persist([]common.Address{from, to}, nil)
}

// TransferFrom moves amount from owner to to on behalf of spender.
func (l *Ledger) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{owner, spender}
	allowance, ok := l.allowances[key]
	if !ok || allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.transfer(owner, to, amount); err != nil {
		return err
	}
	l.allowances[key] = new(big.Int).Sub(allowance, amount)
	return l.persist([]common.Address{owner, to}, []allowanceKey{key})
}

// Transfer is a single movement of funds within one ledger.
type Transfer struct {
	From, To common.Address
	Amount   *big.Int
}

// Batch groups the transfers to apply on one ledger.
type Batch struct {
	Ledger    *Ledger
	Transfers []Transfer
}

// TransferBatch applies transfers in order. Either all of them succeed or the
// ledger is left unchanged.
func (l *Ledger) TransferBatch(transfers []Transfer) error {
	return ApplyBatches(Batch{Ledger: l, Transfers: transfers})
}

// ApplyBatches applies batches that may span several ledgers. Every ledger
// involved stays locked for the whole call, and on any failure all of them are
// restored to their previous balances.
func ApplyBatches(batches ...Batch) error {
	var ledgers []*Ledger
	for _, b := range batches {
		for _, t := range b.Transfers {
			if t.Amount == nil || t.Amount.Sign() < 0 {
				return ErrNegativeAmount
			}
		}
		if !slices.Contains(ledgers, b.Ledger) {
			ledgers = append(ledgers, b.Ledger)
		}
	}
	// Fixed lock order across callers.
	slices.SortStableFunc(ledgers, func(a, b *Ledger) int { return strings.Compare(a.symbol, b.symbol) })
	for _, l := range ledgers {
		l.mu.Lock()
		defer l.mu.Unlock()
	}

	touched := make(map[*Ledger]map[common.Address]*big.Int, len(ledgers))
	rollback := func() {
		for l, prev := range touched {
			for holder, balance := range prev {
				if balance == nil {
					delete(l.balances, holder)
				} else {
					l.balances[holder] = balance
				}
			}
		}
	}
	for _, b := range batches {
		l := b.Ledger
		prev := touched[l]
		if prev == nil {
			prev = make(map[common.Address]*big.Int)
			touched[l] = prev
		}
		for i, t := range b.Transfers {
			for _, holder := range []common.Address{t.From, t.To} {
				if _, ok := prev[holder]; !ok {
					prev[holder] = l.balances[holder]
				}
			}
			if err := l.transfer(t.From, t.To, t.Amount); err != nil {
				rollback()
				return fmt.Errorf("%s transfer %d: %w", l.symbol, i, err)
			}
		}
	}
	for l, prev := range touched {
		holders := make([]common.Address, 0, len(prev))
		for holder := range prev {
			holders = append(holders, holder)
		}
		if err := l.persist(holders, nil); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) transfer(from, to common.Address, amount *big.Int) error {
	balance := l.balanceOf(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[from] = new(big.Int).Sub(balance, amount)
	l.balances[to] = new(big.Int).Add(l.balanceOf(to), amount)
	return nil
}

func (l *Ledger) balanceOf(holder common.Address) *big.Int {
	if b, ok := l.balances[holder]; ok {
		return b
	}
	return common.Big0
}

var (
	balanceTag   = []byte("b")
	allowanceTag = []byte("a")
)

func (l *Ledger) prefix(tag []byte) []byte {
	return append([]byte("token-"+l.symbol+"-"), tag...)
}

// persist writes the given balances and allowances in one batch.
func (l *Ledger) persist(holders []common.Address, allowances []allowanceKey) error {
	if l.db == nil {
		return nil
	}
	batch := l.db.NewBatch()
	for _, holder := range holders {
		data, _ := rlp.EncodeToBytes(l.balanceOf(holder))
		batch.Put(append(l.prefix(balanceTag), holder.Bytes()...), data)
	}
	for _, key := range allowances {
		data, _ := rlp.EncodeToBytes(l.allowances[key])
		k := append(l.prefix(allowanceTag), key.owner.Bytes()...)
		batch.Put(append(k, key.spender.Bytes()...), data)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to persist %s ledger: %w", l.symbol, err)
	}
	return nil
}
