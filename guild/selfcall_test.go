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

// executeAdmin runs a guild call through a passed proposal of the admin.
func executeAdmin(t *testing.T, e *testEnv, actions ...Action) common.Hash {
	t.Helper()

	id := e.propose(accounts[0], actions...)
	e.vote(accounts[4], id, 40)
	e.now += e.g.Config().ProposalTime
	if err := e.g.EndProposal(context.Background(), e.tx(accounts[1]), id); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	return id
}

func TestSelfConfigOnlyGuild(t *testing.T) {
	e := newTestEnv(t)

	cfg := e.g.Config()
	cfg.LockTime = 1
	if err := e.g.SetConfig(e.tx(accounts[0]), cfg); !errors.Is(err, ErrOnlyGuild) {
		t.Errorf("SetConfig error = %v, want %v", err, ErrOnlyGuild)
	}
	if err := e.g.SetOMNGuildConfig(e.tx(accounts[0]), big.NewInt(1), oracleAddr, big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrOnlyGuild) {
		t.Errorf("SetOMNGuildConfig error = %v, want %v", err, ErrOnlyGuild)
	}
	if err := e.g.AllowAdminProposer(e.tx(accounts[1]), accounts[1]); !errors.Is(err, ErrOnlyGuild) {
		t.Errorf("AllowAdminProposer error = %v, want %v", err, ErrOnlyGuild)
	}
	if err := e.g.RemoveAdminProposer(e.tx(accounts[1]), accounts[0]); !errors.Is(err, ErrOnlyGuild) {
		t.Errorf("RemoveAdminProposer error = %v, want %v", err, ErrOnlyGuild)
	}
	if e.g.Config().LockTime != DefaultConfig().LockTime {
		t.Error("direct call changed the configuration")
	}

	// The guild's own dispatch path is accepted.
	if err := e.g.SetConfig(e.tx(guildAddr), cfg); err != nil {
		t.Fatalf("SetConfig from guild failed: %v", err)
	}
	if e.g.Config().LockTime != 1 {
		t.Errorf("lock time = %d, want 1", e.g.Config().LockTime)
	}
	cfg.ProposalTime = 0
	if err := e.g.SetConfig(e.tx(guildAddr), cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid config error = %v, want %v", err, ErrInvalidConfig)
	}
}

func TestSelfConfigThroughProposal(t *testing.T) {
	e := newTestEnv(t)
	newOracle := common.HexToAddress("0x0a11")

	omn, err := PackSetOMNGuildConfig(big.NewInt(120), newOracle, big.NewInt(30), big.NewInt(15))
	if err != nil {
		t.Fatal(err)
	}
	allow, _ := PackAllowAdminProposer(accounts[2])
	remove, _ := PackRemoveAdminProposer(accounts[0])

	id := executeAdmin(t, e,
		Action{To: guildAddr, Data: omn},
		Action{To: guildAddr, Data: allow},
		Action{To: guildAddr, Data: remove},
	)
	if state := e.state(id); state != ProposalStateExecuted {
		t.Fatalf("state = %v, want executed", state)
	}
	cfg := e.g.Config()
	if cfg.MaxAmountVotes.Int64() != 120 || cfg.Oracle != newOracle {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.SuccessfulVoteReward.Int64() != 30 || cfg.UnsuccessfulVoteReward.Int64() != 15 {
		t.Errorf("rewards = %v/%v, want 30/15", cfg.SuccessfulVoteReward, cfg.UnsuccessfulVoteReward)
	}
	if got := e.g.AdminProposers(); len(got) != 1 || got[0] != accounts[2] {
		t.Errorf("admins = %x, want [%x]", got, accounts[2])
	}
	if len(e.dispatcher.batches) != 0 {
		t.Errorf("guild calls reached the dispatcher: %v", e.dispatcher.batches)
	}
}

func TestSetConfigThroughProposal(t *testing.T) {
	e := newTestEnv(t)

	want := e.g.Config()
	want.ProposalTime = 3 * 24 * 60 * 60
	want.TimeForExecution = 5000
	want.VotesForExecution = big.NewInt(25)
	want.VotesForCreation = big.NewInt(70)
	want.VoteGas = 40000
	want.MaxGasPrice = big.NewInt(5e9)
	want.LockTime = 3600
	data, err := PackSetConfig(want)
	if err != nil {
		t.Fatal(err)
	}
	executeAdmin(t, e, Action{To: guildAddr, Data: data})

	got := e.g.Config()
	if got.ProposalTime != want.ProposalTime || got.TimeForExecution != want.TimeForExecution || got.VoteGas != want.VoteGas || got.LockTime != want.LockTime {
		t.Errorf("timing config = %+v, want %+v", got, want)
	}
	if got.VotesForExecution.Cmp(want.VotesForExecution) != 0 || got.VotesForCreation.Cmp(want.VotesForCreation) != 0 || got.MaxGasPrice.Cmp(want.MaxGasPrice) != 0 {
		t.Errorf("threshold config = %+v, want %+v", got, want)
	}
	// accounts[0] locked 60 which is now below the creation threshold.
	if _, err := e.g.CreateProposal(e.tx(accounts[0]), ProposalRequest{Actions: []Action{{To: target}}}); !errors.Is(err, ErrNotEnoughTokens) {
		t.Errorf("error = %v, want %v", err, ErrNotEnoughTokens)
	}
}

func TestSelfCallFailureLeavesConfig(t *testing.T) {
	omn, _ := PackSetOMNGuildConfig(big.NewInt(120), oracleAddr, big.NewInt(30), big.NewInt(15))
	zeroMax, _ := PackSetOMNGuildConfig(new(big.Int), oracleAddr, big.NewInt(30), big.NewInt(15))

	tests := []struct {
		name       string
		actions    []Action
		dispatch   error
		dispatched int
	}{
		{"dispatch failure", []Action{{To: guildAddr, Data: omn}, {To: target, Data: []byte{1}}}, errors.New("reverted"), 1},
		{"unknown method", []Action{{To: target, Data: []byte{1}}, {To: guildAddr, Data: []byte{1, 2, 3, 4}}}, nil, 0},
		{"short call data", []Action{{To: guildAddr, Data: []byte{1}}}, nil, 0},
		{"payable guild call", []Action{{To: target, Data: []byte{1}}, {To: guildAddr, Data: omn, Value: big.NewInt(1)}}, nil, 0},
		{"invalid resulting config", []Action{{To: guildAddr, Data: zeroMax}}, nil, 0},
		{"invalid resulting config after transfer", []Action{{To: target, Data: []byte{0xca, 0xfe}}, {To: guildAddr, Data: zeroMax}}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.dispatcher.err = tt.dispatch

			id := executeAdmin(t, e, tt.actions...)
			if state := e.state(id); state != ProposalStateFailed {
				t.Errorf("state = %v, want failed", state)
			}
			if n := len(e.dispatcher.batches); n != tt.dispatched {
				t.Errorf("dispatched batches = %d, want %d", n, tt.dispatched)
			}
			if cfg := e.g.Config(); cfg.MaxAmountVotes.Int64() != 99 || cfg.SuccessfulVoteReward.Int64() != 12 {
				t.Errorf("configuration changed: %+v", cfg)
			}
		})
	}
}

func TestDecodeSelfCall(t *testing.T) {
	data, err := PackAllowAdminProposer(accounts[3])
	if err != nil {
		t.Fatal(err)
	}
	call, err := decodeSelfCall(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if call.method != "allowAdminProposer" || call.args[0].(common.Address) != accounts[3] {
		t.Errorf("decoded %s(%v)", call.method, call.args)
	}
	if _, err := decodeSelfCall(data[:20]); !errors.Is(err, ErrUnknownSelfCall) {
		t.Errorf("truncated call error = %v, want %v", err, ErrUnknownSelfCall)
	}
}
