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
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// CreateProposal submits a proposal using the guild's default parameters.
// Proposals calling into the guild itself are reserved to admin proposers.
func (g *Guild) CreateProposal(tx *Tx, req ProposalRequest) (common.Hash, error) {
	var id common.Hash
	err := g.atomically(func() error {
		if g.votingPower(tx.From).Cmp(g.config.VotesForCreation) < 0 {
			return ErrNotEnoughTokens
		}
		actions, err := normalizeActions(req.Actions)
		if err != nil {
			return err
		}
		if g.targetsGuild(actions) && !g.admins.Contains(tx.From) {
			return ErrNotAdminProposer
		}
		id = g.submit(tx, actions, req.Description, req.ContentHash, g.defaultParams(), common.Hash{})
		return nil
	})
	return id, err
}

// CreateProposalRaw is CreateProposal taking the actions as parallel arrays, the
// way they arrive over the wire.
func (g *Guild) CreateProposalRaw(tx *Tx, to []common.Address, data [][]byte, value []*big.Int, description string, contentHash common.Hash) (common.Hash, error) {
	actions, err := zipActions(to, data, value)
	if err != nil {
		return common.Hash{}, err
	}
	return g.CreateProposal(tx, ProposalRequest{Actions: actions, Description: description, ContentHash: contentHash})
}

// CreateAdminProposal submits a proposal with custom parameters. Only members
// of the admin allow-list may call it.
func (g *Guild) CreateAdminProposal(tx *Tx, req ProposalRequest, params AdminParams) (common.Hash, error) {
	var id common.Hash
	err := g.atomically(func() error {
		if !g.admins.Contains(tx.From) {
			return ErrNotAdminProposer
		}
		if g.votingPower(tx.From).Cmp(g.config.VotesForCreation) < 0 {
			return ErrNotEnoughTokens
		}
		actions, err := normalizeActions(req.Actions)
		if err != nil {
			return err
		}
		resolved := g.defaultParams().override(params)
		if resolved.ProposalTime < MinProposalTime {
			return fmt.Errorf("%w: %d < %d", ErrProposalTimeTooShort, resolved.ProposalTime, MinProposalTime)
		}
		if resolved.VotesForExecution.Sign() <= 0 || resolved.MaxAmountVotes.Sign() <= 0 || resolved.MaxGasPrice.Sign() < 0 {
			return fmt.Errorf("%w: non-positive admin proposal parameter", ErrInvalidAmount)
		}
		id = g.submit(tx, actions, req.Description, req.ContentHash, resolved, common.Hash{})
		return nil
	})
	return id, err
}

// EndProposal finishes a generic proposal whose voting window closed: it is
// rejected without quorum, failed past its execution window and executed
// otherwise.
func (g *Guild) EndProposal(ctx context.Context, tx *Tx, id common.Hash) error {
	g.mu.Lock()
	p, ok := g.proposals[id]
	switch {
	case !ok:
		g.mu.Unlock()
		return ErrProposalNotFound
	case p.IsMarketValidation():
		g.mu.Unlock()
		return ErrUseMarketValidationEnd
	case p.State.Terminal() || g.executing[id]:
		g.mu.Unlock()
		return ErrProposalAlreadyExecuted
	case tx.Time < p.EndTime:
		g.mu.Unlock()
		return ErrProposalNotEnded
	}
	g.batch = g.db.NewBatch()

	// 1. Not enough votes
	if p.TotalVotes.Cmp(p.VotesForExecution) < 0 {
		g.finalize(p, ProposalStateRejected)
		events := g.end(nil)
		g.mu.Unlock()
		g.flush(events)
		log.Info("Proposal rejected", "id", id, "votes", p.TotalVotes, "quorum", p.VotesForExecution)
		return nil
	}
	// 2. Quorum reached but too late
	if tx.Time > p.EndTime+p.TimeForExecution {
		g.finalize(p, ProposalStateFailed)
		events := g.end(nil)
		g.mu.Unlock()
		g.flush(events)
		log.Info("Proposal execution window expired", "id", id, "deadline", p.EndTime+p.TimeForExecution)
		return nil
	}
	// 3. Stage the guild calls; a proposal that cannot apply them fails
	// before any external call is made
	exec, err := g.prepare(p.Copy().Actions)
	if err != nil {
		g.finalize(p, ProposalStateFailed)
		events := g.end(nil)
		g.mu.Unlock()
		g.flush(events)
		log.Warn("Proposal execution failed", "id", id, "err", err)
		return nil
	}
	// 4. Dispatch with the lock released so that actions may call back into the guild
	g.executing[id] = true
	g.end(nil)
	g.mu.Unlock()

	err = g.dispatch(ctx, exec)

	g.mu.Lock()
	g.batch = g.db.NewBatch()
	delete(g.executing, id)
	if err == nil {
		err = g.commitSelfCalls(exec.ops)
	}
	if err != nil {
		log.Warn("Proposal execution failed", "id", id, "err", err)
		g.finalize(p, ProposalStateFailed)
	} else {
		log.Info("Proposal executed", "id", id, "calls", len(exec.calls), "guildCalls", len(exec.ops))
		g.finalize(p, ProposalStateExecuted)
	}
	events := g.end(nil)
	g.mu.Unlock()

	g.flush(events)
	return nil
}

// finalize moves a proposal into a terminal state and queues its event.
func (g *Guild) finalize(p *Proposal, state ProposalState) {
	p.State = state
	writeProposal(g.batch, p)

	switch state {
	case ProposalStateExecuted:
		g.emit(EventProposalExecuted, p.ID, common.Address{}, nil)
	case ProposalStateRejected:
		g.emit(EventProposalRejected, p.ID, common.Address{}, nil)
	default:
		g.emit(EventProposalEnded, p.ID, common.Address{}, nil)
	}
}

// submit stores a new proposal. All checks must have passed.
func (g *Guild) submit(tx *Tx, actions []Action, description string, contentHash common.Hash, params proposalParams, questionID common.Hash) common.Hash {
	id := g.nextProposalID(tx.From, tx.Time)
	p := &Proposal{
		ID:                id,
		Creator:           tx.From,
		Actions:           actions,
		Description:       description,
		ContentHash:       contentHash,
		CreationTime:      tx.Time,
		EndTime:           tx.Time + params.ProposalTime,
		TimeForExecution:  params.TimeForExecution,
		VotesForExecution: params.VotesForExecution,
		MaxAmountVotes:    params.MaxAmountVotes,
		VoteGas:           params.VoteGas,
		MaxGasPrice:       params.MaxGasPrice,
		TotalVotes:        new(big.Int),
		State:             ProposalStateSubmitted,
		QuestionID:        questionID,
	}
	g.proposals[id] = p
	writeProposal(g.batch, p)
	g.emit(EventProposalCreated, id, tx.From, nil)

	log.Info("Proposal created", "id", id, "creator", tx.From, "actions", len(actions), "end", p.EndTime)
	return id
}

func (g *Guild) targetsGuild(actions []Action) bool {
	for _, a := range actions {
		if a.To == g.address {
			return true
		}
	}
	return false
}

// proposalParams are the per proposal settings copied from the configuration
// or from admin supplied overrides.
type proposalParams struct {
	ProposalTime      uint64
	TimeForExecution  uint64
	VotesForExecution *big.Int
	MaxAmountVotes    *big.Int
	VoteGas           uint64
	MaxGasPrice       *big.Int
}

func (g *Guild) defaultParams() proposalParams {
	return proposalParams{
		ProposalTime:      g.config.ProposalTime,
		TimeForExecution:  g.config.TimeForExecution,
		VotesForExecution: new(big.Int).Set(g.config.VotesForExecution),
		MaxAmountVotes:    new(big.Int).Set(g.config.MaxAmountVotes),
		VoteGas:           g.config.VoteGas,
		MaxGasPrice:       new(big.Int).Set(g.config.MaxGasPrice),
	}
}

func (p proposalParams) override(a AdminParams) proposalParams {
	if a.ProposalTime != 0 {
		p.ProposalTime = a.ProposalTime
	}
	if a.TimeForExecution != 0 {
		p.TimeForExecution = a.TimeForExecution
	}
	if a.VotesForExecution != nil {
		p.VotesForExecution = new(big.Int).Set(a.VotesForExecution)
	}
	if a.VoteGas != 0 {
		p.VoteGas = a.VoteGas
	}
	if a.MaxGasPrice != nil {
		p.MaxGasPrice = new(big.Int).Set(a.MaxGasPrice)
	}
	if a.MaxAmountVotes != nil {
		p.MaxAmountVotes = new(big.Int).Set(a.MaxAmountVotes)
	}
	return p
}

// normalizeActions validates and deep copies caller supplied actions.
func normalizeActions(actions []Action) ([]Action, error) {
	if len(actions) == 0 {
		return nil, ErrEmptyActions
	}
	out := make([]Action, len(actions))
	for i, a := range actions {
		if a.Value != nil && a.Value.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative value in action %d", ErrInvalidAmount, i)
		}
		out[i] = a.copy()
	}
	return out, nil
}

func zipActions(to []common.Address, data [][]byte, value []*big.Int) ([]Action, error) {
	if len(to) != len(data) || len(to) != len(value) {
		return nil, ErrActionLengthMismatch
	}
	if len(to) == 0 {
		return nil, ErrEmptyActions
	}
	actions := make([]Action, len(to))
	for i := range to {
		actions[i] = Action{To: to[i], Data: data[i], Value: value[i]}
	}
	return actions, nil
}
