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
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestStateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	e, valid, invalid := newMarketEnv(t)

	generic := e.propose(accounts[0])
	e.vote(accounts[1], generic, 25)
	e.vote(accounts[4], valid, 40)
	e.vote(accounts[3], invalid, 10)
	e.oracle.resolve(questionID, AnswerValid)
	e.closeVoting(valid)
	require.NoError(t, e.g.EndMarketValidationProposal(ctx, e.tx(accounts[1]), questionID))
	require.NoError(t, e.token.Transfer(accounts[2], guildAddr, big.NewInt(50)))
	require.NoError(t, e.g.ClaimMarketValidationVoteRewards(e.tx(accounts[4]), []common.Hash{valid}, accounts[4]))
	require.NoError(t, e.g.AllowAdminProposer(e.tx(guildAddr), accounts[1]))

	before := e.g
	e.open(DefaultConfig()) // ignored, the database already holds a guild
	after := e.g
	require.NotSame(t, before, after)

	requireSameConfig(t, before.Config(), after.Config())
	require.Equal(t, before.AdminProposers(), after.AdminProposers())
	require.Zero(t, before.TotalLocked().Cmp(after.TotalLocked()))
	require.Equal(t, before.ProposalIDs(), after.ProposalIDs())
	for _, acc := range accounts {
		lb1, lb2 := before.LockedBalance(acc), after.LockedBalance(acc)
		require.Zero(t, lb1.Amount.Cmp(lb2.Amount))
		require.Equal(t, lb1.UnlockTime, lb2.UnlockTime)
	}
	for _, id := range before.ProposalIDs() {
		p1, _ := before.GetProposal(id)
		p2, err := after.GetProposal(id)
		require.NoError(t, err)
		requireSameProposal(t, p1, p2)
		for _, acc := range accounts {
			require.Zero(t, before.VotesOf(id, acc).Cmp(after.VotesOf(id, acc)))
		}
	}
	m1, _ := before.MarketValidation(questionID)
	m2, err := after.MarketValidation(questionID)
	require.NoError(t, err)
	require.Equal(t, m1, m2)
	require.True(t, after.HasClaimed(valid, accounts[4]))
	require.False(t, after.HasClaimed(invalid, accounts[3]))

	// The restored guild keeps enforcing the same guards.
	require.ErrorIs(t, after.SetVote(e.tx(accounts[1]), generic, big.NewInt(1)), ErrAlreadyVoted)
	require.ErrorIs(t, after.ClaimMarketValidationVoteRewards(e.tx(accounts[4]), []common.Hash{valid}, accounts[4]), ErrRewardAlreadyClaimed)

	// The proposal nonce continues where it stopped.
	id, err := after.CreateProposal(e.tx(accounts[0]), ProposalRequest{Actions: []Action{{To: target}}})
	require.NoError(t, err)
	_, err = before.GetProposal(id)
	require.ErrorIs(t, err, ErrProposalNotFound)
	require.Len(t, after.ProposalIDs(), 4)
}

func TestNonceRolledBackWithBatch(t *testing.T) {
	e := newTestEnv(t)
	e.propose(accounts[0])
	require.EqualValues(t, 1, readNonce(e.db))

	var discarded common.Hash
	err := e.g.atomically(func() error {
		discarded = e.g.nextProposalID(accounts[0], e.now)
		return errors.New("rejected")
	})
	require.Error(t, err)
	require.EqualValues(t, 1, e.g.nonce)
	require.EqualValues(t, 1, readNonce(e.db))

	// The next proposal reuses the id of the discarded attempt.
	require.Equal(t, discarded, e.propose(accounts[0]))
	require.EqualValues(t, 2, readNonce(e.db))
}

func requireSameConfig(t *testing.T, want, got *Config) {
	t.Helper()

	require.Equal(t, want.ProposalTime, got.ProposalTime)
	require.Equal(t, want.TimeForExecution, got.TimeForExecution)
	require.Equal(t, want.VoteGas, got.VoteGas)
	require.Equal(t, want.LockTime, got.LockTime)
	require.Equal(t, want.Oracle, got.Oracle)
	for i, pair := range [][2]*big.Int{
		{want.VotesForExecution, got.VotesForExecution},
		{want.VotesForCreation, got.VotesForCreation},
		{want.MaxGasPrice, got.MaxGasPrice},
		{want.MaxAmountVotes, got.MaxAmountVotes},
		{want.SuccessfulVoteReward, got.SuccessfulVoteReward},
		{want.UnsuccessfulVoteReward, got.UnsuccessfulVoteReward},
	} {
		require.Zerof(t, pair[0].Cmp(pair[1]), "amount %d: have %v, want %v", i, pair[1], pair[0])
	}
}

func requireSameProposal(t *testing.T, want, got *Proposal) {
	t.Helper()

	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Creator, got.Creator)
	require.Equal(t, want.Description, got.Description)
	require.Equal(t, want.ContentHash, got.ContentHash)
	require.Equal(t, want.CreationTime, got.CreationTime)
	require.Equal(t, want.EndTime, got.EndTime)
	require.Equal(t, want.TimeForExecution, got.TimeForExecution)
	require.Equal(t, want.VoteGas, got.VoteGas)
	require.Equal(t, want.State, got.State)
	require.Equal(t, want.QuestionID, got.QuestionID)
	require.Zero(t, want.VotesForExecution.Cmp(got.VotesForExecution))
	require.Zero(t, want.MaxAmountVotes.Cmp(got.MaxAmountVotes))
	require.Zero(t, want.MaxGasPrice.Cmp(got.MaxGasPrice))
	require.Zero(t, want.TotalVotes.Cmp(got.TotalVotes))

	require.Len(t, got.Actions, len(want.Actions))
	for i := range want.Actions {
		require.Equal(t, want.Actions[i].To, got.Actions[i].To)
		require.True(t, bytes.Equal(want.Actions[i].Data, got.Actions[i].Data))
		require.Zero(t, want.Actions[i].Value.Cmp(got.Actions[i].Value))
	}
}

func TestSplitPairKey(t *testing.T) {
	id := common.HexToHash("0x1234")
	key := voteKey(id, accounts[2])

	gotID, gotAddr, ok := splitPairKey(votePrefix, key)
	require.True(t, ok)
	require.Equal(t, id, gotID)
	require.Equal(t, accounts[2], gotAddr)

	_, _, ok = splitPairKey(votePrefix, key[:len(key)-1])
	require.False(t, ok)
}
