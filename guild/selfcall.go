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
	"fmt"
	"math/big"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// GuildABI is the interface the guild exposes to its own proposals.
const GuildABI = `[
	{"type":"function","name":"setConfig","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"proposalTime","type":"uint256"},
		{"name":"timeForExecution","type":"uint256"},
		{"name":"votesForExecution","type":"uint256"},
		{"name":"votesForCreation","type":"uint256"},
		{"name":"voteGas","type":"uint256"},
		{"name":"maxGasPrice","type":"uint256"},
		{"name":"lockTime","type":"uint256"}]},
	{"type":"function","name":"setOMNGuildConfig","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"maxAmountVotes","type":"uint256"},
		{"name":"realitIO","type":"address"},
		{"name":"successfulVoteReward","type":"uint256"},
		{"name":"unsuccessfulVoteReward","type":"uint256"}]},
	{"type":"function","name":"allowAdminProposer","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"proposer","type":"address"}]},
	{"type":"function","name":"removeAdminProposer","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"proposer","type":"address"}]}
]`

var guildABI = mustParseABI(GuildABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

var errNotUint64 = errors.New("value does not fit in 64 bits")

// PackSetConfig encodes a setConfig call carrying the base parameters of cfg.
func PackSetConfig(cfg *Config) ([]byte, error) {
	return guildABI.Pack("setConfig",
		new(big.Int).SetUint64(cfg.ProposalTime),
		new(big.Int).SetUint64(cfg.TimeForExecution),
		cfg.VotesForExecution,
		cfg.VotesForCreation,
		new(big.Int).SetUint64(cfg.VoteGas),
		cfg.MaxGasPrice,
		new(big.Int).SetUint64(cfg.LockTime),
	)
}

// PackSetOMNGuildConfig encodes a setOMNGuildConfig call.
func PackSetOMNGuildConfig(maxAmountVotes *big.Int, oracle common.Address, successful, unsuccessful *big.Int) ([]byte, error) {
	return guildABI.Pack("setOMNGuildConfig", maxAmountVotes, oracle, successful, unsuccessful)
}

// PackAllowAdminProposer encodes an allowAdminProposer call.
func PackAllowAdminProposer(proposer common.Address) ([]byte, error) {
	return guildABI.Pack("allowAdminProposer", proposer)
}

// PackRemoveAdminProposer encodes a removeAdminProposer call.
func PackRemoveAdminProposer(proposer common.Address) ([]byte, error) {
	return guildABI.Pack("removeAdminProposer", proposer)
}

// selfCall is a decoded call of a proposal into the guild.
type selfCall struct {
	method string
	args   []interface{}
}

func decodeSelfCall(data []byte) (*selfCall, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short call data", ErrUnknownSelfCall)
	}
	method, err := guildABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownSelfCall, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownSelfCall, method.Name, err)
	}
	return &selfCall{method: method.Name, args: args}, nil
}

// apply performs the call on the given configuration and allow-list.
func (c *selfCall) apply(cfg *Config, admins mapset.Set[common.Address]) error {
	switch c.method {
	case "setConfig":
		var vals [7]uint64
		for _, i := range []int{0, 1, 4, 6} {
			v := c.args[i].(*big.Int)
			if !v.IsUint64() {
				return fmt.Errorf("%w: %s argument %d: %v", ErrInvalidConfig, c.method, i, errNotUint64)
			}
			vals[i] = v.Uint64()
		}
		cfg.ProposalTime = vals[0]
		cfg.TimeForExecution = vals[1]
		cfg.VotesForExecution = new(big.Int).Set(c.args[2].(*big.Int))
		cfg.VotesForCreation = new(big.Int).Set(c.args[3].(*big.Int))
		cfg.VoteGas = vals[4]
		cfg.MaxGasPrice = new(big.Int).Set(c.args[5].(*big.Int))
		cfg.LockTime = vals[6]

	case "setOMNGuildConfig":
		cfg.MaxAmountVotes = new(big.Int).Set(c.args[0].(*big.Int))
		cfg.Oracle = c.args[1].(common.Address)
		cfg.SuccessfulVoteReward = new(big.Int).Set(c.args[2].(*big.Int))
		cfg.UnsuccessfulVoteReward = new(big.Int).Set(c.args[3].(*big.Int))

	case "allowAdminProposer":
		admins.Add(c.args[0].(common.Address))

	case "removeAdminProposer":
		admins.Remove(c.args[0].(common.Address))

	default:
		return fmt.Errorf("%w: %s", ErrUnknownSelfCall, c.method)
	}
	return cfg.Validate()
}

// execution is a proposal whose actions have been decoded and whose guild
// calls have been staged against the live state.
type execution struct {
	calls []Call      // external calls, in proposal order
	ops   []*selfCall // guild calls, in proposal order
}

// prepare decodes the actions of a proposal and applies its guild calls to a
// copy of the current configuration and allow-list. A proposal failing here is
// never dispatched. Must be called with the lock held.
func (g *Guild) prepare(actions []Action) (*execution, error) {
	exec := new(execution)
	for i, a := range actions {
		if a.IsNoop() {
			continue
		}
		if a.To != g.address {
			exec.calls = append(exec.calls, Call{From: g.address, To: a.To, Data: a.Data, Value: a.Value})
			continue
		}
		if a.Value != nil && a.Value.Sign() > 0 {
			return nil, fmt.Errorf("action %d: %w", i, ErrSelfCallValue)
		}
		op, err := decodeSelfCall(a.Data)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		exec.ops = append(exec.ops, op)
	}
	if len(exec.calls) > 0 && g.backends.Dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	if _, _, err := g.stage(exec.ops); err != nil {
		return nil, err
	}
	return exec, nil
}

// dispatch hands the external calls to the dispatcher as a single batch.
func (g *Guild) dispatch(ctx context.Context, exec *execution) error {
	if len(exec.calls) == 0 {
		return nil
	}
	if err := g.backends.Dispatcher.Dispatch(ctx, exec.calls); err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}
	return nil
}

// stage applies guild calls to copies of the live state.
func (g *Guild) stage(ops []*selfCall) (*Config, mapset.Set[common.Address], error) {
	cfg := g.config.Copy()
	admins := g.admins.Clone()
	for _, op := range ops {
		if err := op.apply(cfg, admins); err != nil {
			return nil, nil, err
		}
	}
	return cfg, admins, nil
}

// commitSelfCalls stages the guild calls again on top of the state current
// after dispatch and swaps the result in. Must be called with the lock held.
func (g *Guild) commitSelfCalls(ops []*selfCall) error {
	if len(ops) == 0 {
		return nil
	}
	cfg, admins, err := g.stage(ops)
	if err != nil {
		return err
	}
	g.setState(cfg, admins)
	return nil
}

// setState replaces the configuration and allow-list, persisting the difference.
func (g *Guild) setState(cfg *Config, admins mapset.Set[common.Address]) {
	for addr := range g.admins.Difference(admins).Iter() {
		deleteAdmin(g.batch, addr)
		log.Info("Admin proposer removed", "address", addr)
	}
	for addr := range admins.Difference(g.admins).Iter() {
		writeAdmin(g.batch, addr)
		log.Info("Admin proposer allowed", "address", addr)
	}
	g.config = cfg
	g.admins = admins
	writeConfig(g.batch, cfg)
}

// SetConfig replaces the base parameters of the guild with those of cfg.
func (g *Guild) SetConfig(tx *Tx, cfg *Config) error {
	data, err := PackSetConfig(cfg)
	if err != nil {
		return err
	}
	return g.callSelf(tx, data)
}

// SetOMNGuildConfig replaces the voting cap, oracle and reward parameters.
func (g *Guild) SetOMNGuildConfig(tx *Tx, maxAmountVotes *big.Int, oracle common.Address, successful, unsuccessful *big.Int) error {
	data, err := PackSetOMNGuildConfig(maxAmountVotes, oracle, successful, unsuccessful)
	if err != nil {
		return err
	}
	return g.callSelf(tx, data)
}

// AllowAdminProposer adds proposer to the admin allow-list.
func (g *Guild) AllowAdminProposer(tx *Tx, proposer common.Address) error {
	data, err := PackAllowAdminProposer(proposer)
	if err != nil {
		return err
	}
	return g.callSelf(tx, data)
}

// RemoveAdminProposer removes proposer from the admin allow-list.
func (g *Guild) RemoveAdminProposer(tx *Tx, proposer common.Address) error {
	data, err := PackRemoveAdminProposer(proposer)
	if err != nil {
		return err
	}
	return g.callSelf(tx, data)
}

func (g *Guild) callSelf(tx *Tx, data []byte) error {
	if tx.From != g.address {
		return ErrOnlyGuild
	}
	op, err := decodeSelfCall(data)
	if err != nil {
		return err
	}
	return g.atomically(func() error {
		return g.commitSelfCalls([]*selfCall{op})
	})
}
