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
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSetVoteValidation(t *testing.T) {
	e := newTestEnv(t)
	id := e.propose(accounts[0])
	e.vote(accounts[2], id, 10)

	tests := []struct {
		name   string
		from   common.Address
		id     common.Hash
		amount *big.Int
		err    error
	}{
		{"unknown proposal", accounts[1], common.Hash{1}, big.NewInt(1), ErrProposalNotFound},
		{"nil amount", accounts[1], id, nil, ErrInvalidAmount},
		{"zero amount", accounts[1], id, new(big.Int), ErrInvalidAmount},
		{"above locked", accounts[1], id, big.NewInt(51), ErrInvalidAmount},
		{"no locked tokens", outsider, id, big.NewInt(1), ErrInvalidAmount},
		{"above max", accounts[4], id, big.NewInt(100), ErrVoteAboveMax},
		{"amount checked before revote", accounts[2], id, big.NewInt(101), ErrInvalidAmount},
		{"already voted", accounts[2], id, big.NewInt(5), ErrAlreadyVoted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.g.SetVote(e.tx(tt.from), tt.id, tt.amount); !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
		})
	}
	p, _ := e.g.GetProposal(id)
	if p.TotalVotes.Int64() != 10 {
		t.Errorf("total votes = %v, want 10", p.TotalVotes)
	}
}

func TestSetVotesAtomic(t *testing.T) {
	e := newTestEnv(t)
	first := e.propose(accounts[0])
	second := e.propose(accounts[0])
	e.drain()

	tx := e.tx(accounts[4])
	if err := e.g.SetVotes(tx, []common.Hash{first, second}, []*big.Int{big.NewInt(10)}); !errors.Is(err, ErrVoteLengthMismatch) {
		t.Errorf("length mismatch error = %v, want %v", err, ErrVoteLengthMismatch)
	}
	if err := e.g.SetVotes(tx, []common.Hash{first, second}, []*big.Int{big.NewInt(10), big.NewInt(999)}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("invalid second amount error = %v, want %v", err, ErrInvalidAmount)
	}
	if err := e.g.SetVotes(tx, []common.Hash{first, first}, []*big.Int{big.NewInt(10), big.NewInt(9)}); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("duplicate id error = %v, want %v", err, ErrAlreadyVoted)
	}
	if got := e.g.VotesOf(first, accounts[4]); got.Sign() != 0 {
		t.Fatalf("failed batch recorded %v votes", got)
	}
	if events := e.drain(); len(events) != 0 {
		t.Fatalf("failed batches emitted %v", eventNames(events))
	}

	if err := e.g.SetVotes(tx, []common.Hash{first, second}, []*big.Int{big.NewInt(10), big.NewInt(99)}); err != nil {
		t.Fatalf("batch vote failed: %v", err)
	}
	if got := e.g.VotesOf(second, accounts[4]); got.Int64() != 99 {
		t.Errorf("votes on second = %v, want 99", got)
	}
	events := e.drain()
	if len(events) != 2 || events[0].Name != EventVoteAdded || events[1].ProposalID != second {
		t.Errorf("events = %v, want two VoteAdded", eventNames(events))
	}
}

func TestTotalVotesIsSumOfVotes(t *testing.T) {
	e := newTestEnv(t)
	id := e.propose(accounts[0])

	var want int64
	for i, acc := range accounts {
		amount := int64(10 + i)
		e.vote(acc, id, amount)
		want += amount
	}
	p, _ := e.g.GetProposal(id)
	if p.TotalVotes.Int64() != want {
		t.Errorf("total votes = %v, want %d", p.TotalVotes, want)
	}
}

func TestVoteOnEndedProposal(t *testing.T) {
	e := newTestEnv(t)
	id := e.propose(accounts[0])
	e.now += e.g.Config().ProposalTime

	// Voting stays open until someone ends the proposal.
	e.vote(accounts[1], id, 10)
	if err := e.g.EndProposal(context.Background(), e.tx(accounts[1]), id); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if err := e.g.SetVote(e.tx(accounts[2]), id, big.NewInt(10)); !errors.Is(err, ErrProposalAlreadyEnded) {
		t.Errorf("error = %v, want %v", err, ErrProposalAlreadyEnded)
	}
}

func TestVoteRefund(t *testing.T) {
	tests := []struct {
		name     string
		funds    int64
		gasPrice int64
		gasUsed  uint64
		votes    int
		want     int64
	}{
		{"price above ceiling", 1e18, 10e9, 60000, 1, 50000 * 8e9},
		{"price below ceiling", 1e18, 1e9, 30000, 1, 30000 * 1e9},
		{"batch raises gas cap", 1e18, 8e9, 90000, 2, 90000 * 8e9},
		{"underfunded", 1000, 8e9, 50000, 1, 0},
		{"unmetered", 1e18, 8e9, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.native.Mint(guildAddr, big.NewInt(tt.funds))

			ids := make([]common.Hash, tt.votes)
			amounts := make([]*big.Int, tt.votes)
			for i := range ids {
				ids[i] = e.propose(accounts[0])
				amounts[i] = big.NewInt(5)
			}
			tx := &Tx{From: accounts[3], Time: e.now, GasPrice: big.NewInt(tt.gasPrice), GasUsed: tt.gasUsed}
			if err := e.g.SetVotes(tx, ids, amounts); err != nil {
				t.Fatalf("vote failed: %v", err)
			}
			if got := e.native.BalanceOf(accounts[3]); got.Int64() != tt.want {
				t.Errorf("refund = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestReimbursement(t *testing.T) {
	huge := new(big.Int).Lsh(common.Big1, 300)

	tests := []struct {
		name     string
		gasUsed  uint64
		gasCap   uint64
		price    *big.Int
		ceiling  *big.Int
		expected *big.Int
	}{
		{"capped gas", 70000, 50000, big.NewInt(2), big.NewInt(8), big.NewInt(100000)},
		{"capped price", 100, 50000, big.NewInt(9), big.NewInt(8), big.NewInt(800)},
		{"oversized price clamps", 100, 50000, huge, big.NewInt(8), big.NewInt(800)},
		{"negative price", 100, 50000, big.NewInt(-1), big.NewInt(8), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reimbursement(tt.gasUsed, tt.gasCap, tt.price, tt.ceiling)
			if (got == nil) != (tt.expected == nil) || (got != nil && got.Cmp(tt.expected) != 0) {
				t.Errorf("reimbursement = %v, want %v", got, tt.expected)
			}
		})
	}
}
