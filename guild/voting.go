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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"
)

// SetVote casts amount of the sender's voting weight on a proposal.
func (g *Guild) SetVote(tx *Tx, id common.Hash, amount *big.Int) error {
	return g.SetVotes(tx, []common.Hash{id}, []*big.Int{amount})
}

// SetVotes casts several votes at once. Either all votes are recorded or none
// is. The sender is reimbursed for the gas of the call afterwards.
func (g *Guild) SetVotes(tx *Tx, ids []common.Hash, amounts []*big.Int) error {
	if len(ids) != len(amounts) {
		return ErrVoteLengthMismatch
	}
	if len(ids) == 0 {
		return ErrInvalidAmount
	}
	return g.atomically(func() error {
		var (
			locked = g.votingPower(tx.From)
			staged = make(map[common.Hash]bool, len(ids))
		)
		for i, id := range ids {
			p, ok := g.proposals[id]
			if !ok {
				return ErrProposalNotFound
			}
			if p.State.Terminal() || g.executing[id] {
				return ErrProposalAlreadyEnded
			}
			amount := amounts[i]
			if amount == nil || amount.Sign() <= 0 || amount.Cmp(locked) > 0 {
				return ErrInvalidAmount
			}
			if amount.Cmp(p.MaxAmountVotes) > 0 {
				return ErrVoteAboveMax
			}
			if staged[id] || g.hasVoted(id, tx.From) {
				return ErrAlreadyVoted
			}
			if p.IsMarketValidation() {
				sibling := g.markets[p.QuestionID].Sibling(id)
				if staged[sibling] || g.hasVoted(sibling, tx.From) {
					return ErrAlreadyVoted
				}
			}
			staged[id] = true
		}
		var (
			gasCap   uint64
			priceCap *big.Int
		)
		for i, id := range ids {
			p := g.proposals[id]
			amount := new(big.Int).Set(amounts[i])
			g.voteSet(id)[tx.From] = amount
			p.TotalVotes = new(big.Int).Add(p.TotalVotes, amount)

			writeVote(g.batch, id, tx.From, amount)
			writeProposal(g.batch, p)
			g.emit(EventVoteAdded, id, tx.From, amount)

			gasCap, _ = math.SafeAdd(gasCap, p.VoteGas)
			if priceCap == nil || p.MaxGasPrice.Cmp(priceCap) < 0 {
				priceCap = p.MaxGasPrice
			}
		}
		log.Debug("Votes cast", "voter", tx.From, "proposals", len(ids))

		g.refund(tx, gasCap, priceCap)
		return nil
	})
}
