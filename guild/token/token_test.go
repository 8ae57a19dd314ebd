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

package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

var (
	alice = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bob   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	vault = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func TestTransfer(t *testing.T) {
	l := NewLedger("OMN")
	if err := l.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(30)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := l.BalanceOf(alice); got.Int64() != 70 {
		t.Errorf("alice balance = %v, want 70", got)
	}
	if got := l.BalanceOf(bob); got.Int64() != 30 {
		t.Errorf("bob balance = %v, want 30", got)
	}
	if err := l.Transfer(bob, alice, big.NewInt(31)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraft error = %v, want %v", err, ErrInsufficientBalance)
	}
	if got := l.TotalSupply(); got.Int64() != 100 {
		t.Errorf("supply = %v, want 100", got)
	}
}

func TestTransferFrom(t *testing.T) {
	l := NewLedger("OMN")
	l.Mint(alice, big.NewInt(100))

	if err := l.TransferFrom(vault, alice, vault, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("unapproved transfer error = %v, want %v", err, ErrInsufficientAllowance)
	}
	l.Approve(alice, vault, big.NewInt(60))

	if err := l.TransferFrom(vault, alice, vault, big.NewInt(40)); err != nil {
		t.Fatalf("transferFrom failed: %v", err)
	}
	if got := l.Allowance(alice, vault); got.Int64() != 20 {
		t.Errorf("allowance = %v, want 20", got)
	}
	if got := l.BalanceOf(vault); got.Int64() != 40 {
		t.Errorf("vault balance = %v, want 40", got)
	}
	if err := l.TransferFrom(vault, alice, vault, big.NewInt(21)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("allowance overrun error = %v, want %v", err, ErrInsufficientAllowance)
	}
}

func TestNegativeAmounts(t *testing.T) {
	l := NewLedger("OMN")
	neg := big.NewInt(-1)

	for name, err := range map[string]error{
		"mint":         l.Mint(alice, neg),
		"approve":      l.Approve(alice, bob, neg),
		"transfer":     l.Transfer(alice, bob, neg),
		"transferFrom": l.TransferFrom(bob, alice, bob, neg),
	} {
		if !errors.Is(err, ErrNegativeAmount) {
			t.Errorf("%s: error = %v, want %v", name, err, ErrNegativeAmount)
		}
	}
}

func TestPersistentLedger(t *testing.T) {
	db := memorydb.New()

	l, err := NewPersistentLedger("OMN", db)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	l.Mint(alice, big.NewInt(100))
	l.Approve(alice, vault, big.NewInt(50))
	if err := l.TransferFrom(vault, alice, bob, big.NewInt(20)); err != nil {
		t.Fatalf("transferFrom failed: %v", err)
	}

	other, err := NewPersistentLedger("ETH", db)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if other.TotalSupply().Sign() != 0 {
		t.Errorf("ledgers of different symbols share state")
	}

	reopened, err := NewPersistentLedger("OMN", db)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := reopened.BalanceOf(alice); got.Int64() != 80 {
		t.Errorf("alice balance = %v, want 80", got)
	}
	if got := reopened.BalanceOf(bob); got.Int64() != 20 {
		t.Errorf("bob balance = %v, want 20", got)
	}
	if got := reopened.Allowance(alice, vault); got.Int64() != 30 {
		t.Errorf("allowance = %v, want 30", got)
	}
	if got := reopened.TotalSupply(); got.Int64() != 100 {
		t.Errorf("supply = %v, want 100", got)
	}
}

func TestTransferBatchRollback(t *testing.T) {
	db := memorydb.New()
	l, err := NewPersistentLedger("OMN", db)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	l.Mint(alice, big.NewInt(100))

	err = l.TransferBatch([]Transfer{
		{From: alice, To: bob, Amount: big.NewInt(60)},
		{From: alice, To: vault, Amount: big.NewInt(50)},
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("batch error = %v, want %v", err, ErrInsufficientBalance)
	}
	if got := l.BalanceOf(alice); got.Int64() != 100 {
		t.Errorf("alice balance = %v, want 100", got)
	}
	if got := l.BalanceOf(bob); got.Sign() != 0 {
		t.Errorf("bob balance = %v, want 0", got)
	}
	reopened, err := NewPersistentLedger("OMN", db)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	if got := reopened.BalanceOf(bob); got.Sign() != 0 {
		t.Errorf("stored bob balance = %v, want 0", got)
	}

	err = l.TransferBatch([]Transfer{
		{From: alice, To: bob, Amount: big.NewInt(60)},
		{From: bob, To: vault, Amount: big.NewInt(60)},
	})
	if err != nil {
		t.Fatalf("chained batch failed: %v", err)
	}
	if got := l.BalanceOf(vault); got.Int64() != 60 {
		t.Errorf("vault balance = %v, want 60", got)
	}
}

func TestApplyBatchesAcrossLedgers(t *testing.T) {
	omn, eth := NewLedger("OMN"), NewLedger("ETH")
	omn.Mint(vault, big.NewInt(10))
	eth.Mint(vault, big.NewInt(10))

	err := ApplyBatches(
		Batch{Ledger: eth, Transfers: []Transfer{{From: vault, To: bob, Amount: big.NewInt(10)}}},
		Batch{Ledger: omn, Transfers: []Transfer{{From: vault, To: bob, Amount: big.NewInt(11)}}},
	)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("batch error = %v, want %v", err, ErrInsufficientBalance)
	}
	if got := eth.BalanceOf(vault); got.Int64() != 10 {
		t.Errorf("eth vault balance = %v, want 10", got)
	}
	if got := eth.BalanceOf(bob); got.Sign() != 0 {
		t.Errorf("eth bob balance = %v, want 0", got)
	}
	if err := ApplyBatches(Batch{Ledger: eth, Transfers: []Transfer{{From: vault, To: bob, Amount: big.NewInt(-1)}}}); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("negative amount error = %v, want %v", err, ErrNegativeAmount)
	}
}
