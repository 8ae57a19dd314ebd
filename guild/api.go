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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// API is the read-only RPC API of a guild.
type API struct {
	guild *Guild
}

// NewAPI creates a new guild API
func NewAPI(g *Guild) *API {
	return &API{guild: g}
}

// APIs returns the RPC services offered by the guild.
func (g *Guild) APIs() []rpc.API {
	return []rpc.API{
		{
			Namespace: "guild",
			Service:   NewAPI(g),
		},
	}
}

// RPCAction is the JSON form of an Action.
type RPCAction struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value"`
}

// RPCProposal is the JSON form of a Proposal.
type RPCProposal struct {
	ID                common.Hash    `json:"id"`
	Creator           common.Address `json:"creator"`
	Actions           []RPCAction    `json:"actions"`
	Description       string         `json:"description"`
	ContentHash       common.Hash    `json:"contentHash"`
	CreationTime      hexutil.Uint64 `json:"creationTime"`
	EndTime           hexutil.Uint64 `json:"endTime"`
	TimeForExecution  hexutil.Uint64 `json:"timeForExecution"`
	VotesForExecution *hexutil.Big   `json:"votesForExecution"`
	MaxAmountVotes    *hexutil.Big   `json:"maxAmountVotes"`
	VoteGas           hexutil.Uint64 `json:"voteGas"`
	MaxGasPrice       *hexutil.Big   `json:"maxGasPrice"`
	TotalVotes        *hexutil.Big   `json:"totalVotes"`
	State             string         `json:"state"`
	QuestionID        *common.Hash   `json:"questionId,omitempty"`
}

func newRPCProposal(p *Proposal) *RPCProposal {
	out := &RPCProposal{
		ID:                p.ID,
		Creator:           p.Creator,
		Actions:           make([]RPCAction, len(p.Actions)),
		Description:       p.Description,
		ContentHash:       p.ContentHash,
		CreationTime:      hexutil.Uint64(p.CreationTime),
		EndTime:           hexutil.Uint64(p.EndTime),
		TimeForExecution:  hexutil.Uint64(p.TimeForExecution),
		VotesForExecution: (*hexutil.Big)(p.VotesForExecution),
		MaxAmountVotes:    (*hexutil.Big)(p.MaxAmountVotes),
		VoteGas:           hexutil.Uint64(p.VoteGas),
		MaxGasPrice:       (*hexutil.Big)(p.MaxGasPrice),
		TotalVotes:        (*hexutil.Big)(p.TotalVotes),
		State:             p.State.String(),
	}
	for i, a := range p.Actions {
		out.Actions[i] = RPCAction{To: a.To, Data: a.Data, Value: (*hexutil.Big)(a.Value)}
	}
	if p.IsMarketValidation() {
		qid := p.QuestionID
		out.QuestionID = &qid
	}
	return out
}

// RPCLock is the JSON form of a LockedBalance.
type RPCLock struct {
	Amount     *hexutil.Big   `json:"amount"`
	UnlockTime hexutil.Uint64 `json:"unlockTime"`
}

// RPCConfig is the JSON form of a Config.
type RPCConfig struct {
	ProposalTime           hexutil.Uint64   `json:"proposalTime"`
	TimeForExecution       hexutil.Uint64   `json:"timeForExecution"`
	VotesForExecution      *hexutil.Big     `json:"votesForExecution"`
	VotesForCreation       *hexutil.Big     `json:"votesForCreation"`
	VoteGas                hexutil.Uint64   `json:"voteGas"`
	MaxGasPrice            *hexutil.Big     `json:"maxGasPrice"`
	LockTime               hexutil.Uint64   `json:"lockTime"`
	MaxAmountVotes         *hexutil.Big     `json:"maxAmountVotes"`
	Oracle                 common.Address   `json:"oracle"`
	SuccessfulVoteReward   *hexutil.Big     `json:"successfulVoteReward"`
	UnsuccessfulVoteReward *hexutil.Big     `json:"unsuccessfulVoteReward"`
	AdminProposers         []common.Address `json:"adminProposers"`
}

// GetProposal returns a proposal by id
func (api *API) GetProposal(id common.Hash) (*RPCProposal, error) {
	p, err := api.guild.GetProposal(id)
	if err != nil {
		return nil, err
	}
	return newRPCProposal(p), nil
}

// ProposalIDs returns all proposal ids in creation order.
func (api *API) ProposalIDs() []common.Hash {
	return api.guild.ProposalIDs()
}

// GetVotes returns the votes of voter on a proposal.
func (api *API) GetVotes(id common.Hash, voter common.Address) *hexutil.Big {
	return (*hexutil.Big)(api.guild.VotesOf(id, voter))
}

// GetLockedBalance returns the locked balance of holder.
func (api *API) GetLockedBalance(holder common.Address) *RPCLock {
	lb := api.guild.LockedBalance(holder)
	return &RPCLock{Amount: (*hexutil.Big)(lb.Amount), UnlockTime: hexutil.Uint64(lb.UnlockTime)}
}

// TotalLocked returns the sum of all locked balances.
func (api *API) TotalLocked() *hexutil.Big {
	return (*hexutil.Big)(api.guild.TotalLocked())
}

// GetMarketValidation returns the proposal pair of an oracle question.
func (api *API) GetMarketValidation(questionID common.Hash) (*MarketValidation, error) {
	return api.guild.MarketValidation(questionID)
}

// HasClaimed reports whether voter claimed the reward of a proposal.
func (api *API) HasClaimed(id common.Hash, voter common.Address) bool {
	return api.guild.HasClaimed(id, voter)
}

// GetConfig returns the current guild configuration
func (api *API) GetConfig() *RPCConfig {
	cfg := api.guild.Config()
	return &RPCConfig{
		ProposalTime:           hexutil.Uint64(cfg.ProposalTime),
		TimeForExecution:       hexutil.Uint64(cfg.TimeForExecution),
		VotesForExecution:      (*hexutil.Big)(cfg.VotesForExecution),
		VotesForCreation:       (*hexutil.Big)(cfg.VotesForCreation),
		VoteGas:                hexutil.Uint64(cfg.VoteGas),
		MaxGasPrice:            (*hexutil.Big)(cfg.MaxGasPrice),
		LockTime:               hexutil.Uint64(cfg.LockTime),
		MaxAmountVotes:         (*hexutil.Big)(cfg.MaxAmountVotes),
		Oracle:                 cfg.Oracle,
		SuccessfulVoteReward:   (*hexutil.Big)(cfg.SuccessfulVoteReward),
		UnsuccessfulVoteReward: (*hexutil.Big)(cfg.UnsuccessfulVoteReward),
		AdminProposers:         api.guild.AdminProposers(),
	}
}
