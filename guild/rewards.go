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

// ClaimMarketValidationVoteRewards pays voter the rewards of the given resolved
// validation proposals in a single transfer. Nothing is marked claimed unless
// the whole batch was paid.
func (g *Guild) ClaimMarketValidationVoteRewards(tx *Tx, ids []common.Hash, voter common.Address) error {
	if len(ids) == 0 {
		return ErrNothingToClaim
	}
	return g.atomically(func() error {
		var (
			total   = new(big.Int)
			rewards = make([]*big.Int, len(ids))
			staged  = make(map[common.Hash]bool, len(ids))
		)
		for i, id := range ids {
			reward, err := g.rewardOf(id, voter)
			if err != nil {
				return err
			}
			if staged[id] {
				return ErrRewardAlreadyClaimed
			}
			staged[id] = true
			rewards[i] = reward
			total.Add(total, reward)
		}
		if balance := g.backends.Token.BalanceOf(g.address); balance.Cmp(total) < 0 {
			log.Warn("Guild cannot cover vote rewards", "voter", voter, "rewards", total, "balance", balance)
			return ErrRewardsUnavailable
		}
		if total.Sign() > 0 {
			if err := g.backends.Token.Transfer(g.address, voter, total); err != nil {
				return fmt.Errorf("%w: %v", ErrRewardsUnavailable, err)
			}
		}
		for i, id := range ids {
			g.claimSet(id).Add(voter)
			writeClaim(g.batch, id, voter)
			g.emit(EventVoteRewardClaimed, id, voter, rewards[i])
		}
		log.Info("Vote rewards claimed", "voter", voter, "proposals", len(ids), "amount", total)
		return nil
	})
}

// rewardOf returns the reward voter may claim on a proposal.
func (g *Guild) rewardOf(id common.Hash, voter common.Address) (*big.Int, error) {
	p, ok := g.proposals[id]
	if !ok {
		return nil, ErrProposalNotFound
	}
	if !p.IsMarketValidation() {
		return nil, ErrNotMarketValidation
	}
	if !g.markets[p.QuestionID].Resolved {
		return nil, ErrClaimNotResolved
	}
	if claimed, ok := g.claims[id]; ok && claimed.Contains(voter) {
		return nil, ErrRewardAlreadyClaimed
	}
	if !g.hasVoted(id, voter) {
		return nil, ErrNothingToClaim
	}
	switch p.State {
	case ProposalStateExecuted:
		return new(big.Int).Set(g.config.SuccessfulVoteReward), nil
	case ProposalStateRejected:
		return new(big.Int).Set(g.config.UnsuccessfulVoteReward), nil
	default:
		return nil, ErrClaimNotResolved
	}
}
