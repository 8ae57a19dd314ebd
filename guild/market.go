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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

var (
	// AnswerValid is the oracle answer backing the valid proposal of a pair.
	AnswerValid = crypto.Keccak256Hash([]byte{0x01})

	// AnswerInvalid is the oracle answer backing the invalid proposal of a pair.
	AnswerInvalid = crypto.Keccak256Hash([]byte{0x00})
)

// CreateMarketValidationProposal opens the valid/invalid proposal pair of an
// oracle question. The oracle is only read; the guild lock is held meanwhile.
func (g *Guild) CreateMarketValidationProposal(ctx context.Context, tx *Tx, questionID common.Hash) (valid, invalid common.Hash, err error) {
	err = g.atomically(func() error {
		if g.votingPower(tx.From).Cmp(g.config.VotesForCreation) < 0 {
			return ErrNotEnoughTokens
		}
		if questionID == (common.Hash{}) {
			return ErrQuestionNotFound
		}
		if _, exists := g.markets[questionID]; exists {
			return ErrMarketValidationExists
		}
		oracleAddr := g.config.Oracle
		oracle, err := g.backends.Oracles.At(oracleAddr)
		if err != nil {
			return fmt.Errorf("oracle %s unavailable: %w", oracleAddr, err)
		}
		q, err := oracle.Question(ctx, questionID)
		if err != nil {
			return err
		}
		if q.OpeningTS+MaxQuestionAge <= tx.Time {
			return ErrQuestionTooOld
		}
		params := g.defaultParams()
		marker := []Action{{To: oracleAddr}}
		valid = g.submit(tx, mustNormalize(marker), "Market valid", questionID, params, questionID)
		invalid = g.submit(tx, mustNormalize(marker), "Market invalid", questionID, params, questionID)

		m := &MarketValidation{QuestionID: questionID, Oracle: oracleAddr, Valid: valid, Invalid: invalid}
		g.markets[questionID] = m
		writeMarketValidation(g.batch, m)
		return nil
	})
	return valid, invalid, err
}

// EndMarketValidationProposal resolves the pair of a question from the final
// oracle answer. It fails with ErrMarketNotEnded while the pair is still open
// for voting or the oracle has not finalized, and can be retried at will.
func (g *Guild) EndMarketValidationProposal(ctx context.Context, tx *Tx, questionID common.Hash) error {
	return g.atomically(func() error {
		m, ok := g.markets[questionID]
		if !ok {
			return ErrMarketValidationNotFound
		}
		if end := g.proposals[m.Valid].EndTime; tx.Time < end {
			return fmt.Errorf("%w: voting open until %d", ErrMarketNotEnded, end)
		}
		oracle, err := g.backends.Oracles.At(m.Oracle)
		if err != nil {
			return fmt.Errorf("oracle %s unavailable: %w", m.Oracle, err)
		}
		finalized, err := oracle.IsFinalized(ctx, questionID)
		if err != nil {
			return fmt.Errorf("oracle query failed: %w", err)
		}
		if !finalized {
			return ErrMarketNotEnded
		}
		valid, invalid := g.proposals[m.Valid], g.proposals[m.Invalid]
		if valid.State.Terminal() {
			return ErrMarketValidAlreadyExecuted
		}
		if invalid.State.Terminal() {
			return ErrMarketInvalidAlreadyExecuted
		}
		answer, err := oracle.FinalAnswer(ctx, questionID)
		if err != nil {
			return fmt.Errorf("oracle query failed: %w", err)
		}
		var matching, other *Proposal
		switch answer {
		case AnswerValid:
			matching, other = valid, invalid
		case AnswerInvalid:
			matching, other = invalid, valid
		}
		if matching == nil {
			log.Warn("Unrecognised oracle answer, failing market validation", "question", questionID, "answer", answer)
			g.finalize(valid, ProposalStateFailed)
			g.finalize(invalid, ProposalStateFailed)
		} else {
			passed := matching.TotalVotes.Cmp(matching.VotesForExecution) >= 0 &&
				tx.Time <= matching.EndTime+matching.TimeForExecution
			if passed {
				g.finalize(matching, ProposalStateExecuted)
			} else {
				g.finalize(matching, ProposalStateFailed)
			}
			g.finalize(other, ProposalStateRejected)
		}
		m.Resolved = true
		m.Answer = answer
		writeMarketValidation(g.batch, m)

		log.Info("Market validation resolved", "question", questionID, "valid", valid.State, "invalid", invalid.State)
		return nil
	})
}

// MarketValidation returns the proposal pair of a question.
func (g *Guild) MarketValidation(questionID common.Hash) (*MarketValidation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.markets[questionID]
	if !ok {
		return nil, ErrMarketValidationNotFound
	}
	cpy := *m
	return &cpy, nil
}

// PendingMarketValidations returns the questions whose pair is unresolved.
func (g *Guild) PendingMarketValidations() []common.Hash {
	g.mu.Lock()
	defer g.mu.Unlock()

	var pending []common.Hash
	for id, m := range g.markets {
		if !m.Resolved {
			pending = append(pending, id)
		}
	}
	return pending
}

func mustNormalize(actions []Action) []Action {
	out, err := normalizeActions(actions)
	if err != nil {
		panic(err)
	}
	return out
}
