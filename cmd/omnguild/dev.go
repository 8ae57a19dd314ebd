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

package main

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/omen-guild/omnguild/guild"
	"golang.org/x/time/rate"
)

// devGasPerCall is the metered cost charged to calls that request a refund.
const devGasPerCall = 60000

var (
	errNoLocalOracle = errors.New("node uses a remote oracle")
	errFaucetBusy    = errors.New("faucet rate limit exceeded")
)

// devAPI exposes the state changing guild operations over RPC. The caller
// names the sender of every call, so it is only served in dev mode.
type devAPI struct {
	n      *node
	faucet *rate.Limiter
}

func newDevAPI(n *node) *devAPI {
	limit := rate.Limit(n.cfg.FaucetRate)
	if n.cfg.FaucetRate == 0 {
		limit = rate.Inf
	}
	return &devAPI{n: n, faucet: rate.NewLimiter(limit, 1)}
}

func (api *devAPI) tx(from common.Address) *guild.Tx {
	return &guild.Tx{From: from, Time: api.n.clock.Unix()}
}

// Balances is the holdings of an account on the node ledgers.
type Balances struct {
	Token  *hexutil.Big `json:"token"`
	Native *hexutil.Big `json:"native"`
}

// Faucet mints guild tokens to an account.
func (api *devAPI) Faucet(to common.Address, amount hexutil.Big) error {
	if !api.faucet.Allow() {
		return errFaucetBusy
	}
	return api.n.omn.Mint(to, amount.ToInt())
}

// FundTreasury mints native currency to the guild.
func (api *devAPI) FundTreasury(amount hexutil.Big) error {
	if !api.faucet.Allow() {
		return errFaucetBusy
	}
	return api.n.eth.Mint(api.n.addrs.Guild, amount.ToInt())
}

// GetBalances returns the token and native balances of an account.
func (api *devAPI) GetBalances(addr common.Address) Balances {
	return Balances{
		Token:  (*hexutil.Big)(api.n.omn.BalanceOf(addr)),
		Native: (*hexutil.Big)(api.n.eth.BalanceOf(addr)),
	}
}

// Now returns the node time.
func (api *devAPI) Now() hexutil.Uint64 {
	return hexutil.Uint64(api.n.clock.Unix())
}

// AdvanceTime moves the node clock forward and returns the new time.
func (api *devAPI) AdvanceTime(seconds hexutil.Uint64) hexutil.Uint64 {
	api.n.clock.Advance(uint64(seconds))
	return api.Now()
}

// LockTokens approves the vault and locks amount of the sender's tokens.
func (api *devAPI) LockTokens(from common.Address, amount hexutil.Big) error {
	if err := api.n.omn.Approve(from, api.n.guild.Vault(), amount.ToInt()); err != nil {
		return err
	}
	return api.n.guild.LockTokens(api.tx(from), amount.ToInt())
}

// ReleaseTokens returns unlocked tokens to the sender.
func (api *devAPI) ReleaseTokens(from common.Address, amount hexutil.Big) error {
	return api.n.guild.ReleaseTokens(api.tx(from), amount.ToInt())
}

// ProposalArgs is the content of a new proposal.
type ProposalArgs struct {
	Actions     []guild.RPCAction `json:"actions"`
	Description string            `json:"description"`
	ContentHash common.Hash       `json:"contentHash"`
}

func (args *ProposalArgs) request() guild.ProposalRequest {
	req := guild.ProposalRequest{Description: args.Description, ContentHash: args.ContentHash}
	for _, a := range args.Actions {
		value := new(big.Int)
		if a.Value != nil {
			value = a.Value.ToInt()
		}
		req.Actions = append(req.Actions, guild.Action{To: a.To, Data: a.Data, Value: value})
	}
	return req
}

// CreateProposal creates a generic proposal.
func (api *devAPI) CreateProposal(from common.Address, args ProposalArgs) (common.Hash, error) {
	return api.n.guild.CreateProposal(api.tx(from), args.request())
}

// AdminParamsArgs overrides the guild defaults of an admin proposal.
type AdminParamsArgs struct {
	ProposalTime      hexutil.Uint64 `json:"proposalTime"`
	TimeForExecution  hexutil.Uint64 `json:"timeForExecution"`
	VotesForExecution *hexutil.Big   `json:"votesForExecution"`
	VoteGas           hexutil.Uint64 `json:"voteGas"`
	MaxGasPrice       *hexutil.Big   `json:"maxGasPrice"`
	MaxAmountVotes    *hexutil.Big   `json:"maxAmountVotes"`
}

// CreateAdminProposal creates a proposal with custom parameters.
func (api *devAPI) CreateAdminProposal(from common.Address, args ProposalArgs, params AdminParamsArgs) (common.Hash, error) {
	return api.n.guild.CreateAdminProposal(api.tx(from), args.request(), guild.AdminParams{
		ProposalTime:      uint64(params.ProposalTime),
		TimeForExecution:  uint64(params.TimeForExecution),
		VotesForExecution: params.VotesForExecution.ToInt(),
		VoteGas:           uint64(params.VoteGas),
		MaxGasPrice:       params.MaxGasPrice.ToInt(),
		MaxAmountVotes:    params.MaxAmountVotes.ToInt(),
	})
}

// SetVote votes on a proposal. A non-nil gas price requests a refund.
func (api *devAPI) SetVote(from common.Address, id common.Hash, amount hexutil.Big, gasPrice *hexutil.Big) error {
	return api.n.guild.SetVote(api.meteredTx(from, gasPrice), id, amount.ToInt())
}

// SetVotes votes on several proposals at once.
func (api *devAPI) SetVotes(from common.Address, ids []common.Hash, amounts []hexutil.Big, gasPrice *hexutil.Big) error {
	values := make([]*big.Int, len(amounts))
	for i := range amounts {
		values[i] = amounts[i].ToInt()
	}
	return api.n.guild.SetVotes(api.meteredTx(from, gasPrice), ids, values)
}

func (api *devAPI) meteredTx(from common.Address, gasPrice *hexutil.Big) *guild.Tx {
	tx := api.tx(from)
	if gasPrice != nil {
		tx.GasPrice, tx.GasUsed = gasPrice.ToInt(), devGasPerCall
	}
	return tx
}

// EndProposal ends a generic proposal.
func (api *devAPI) EndProposal(ctx context.Context, from common.Address, id common.Hash) error {
	return api.n.guild.EndProposal(ctx, api.tx(from), id)
}

// AskQuestion opens a question on the built-in oracle.
func (api *devAPI) AskQuestion(from common.Address, text string, timeout, openingTS, nonce hexutil.Uint64) (common.Hash, error) {
	if api.n.realitio == nil {
		return common.Hash{}, errNoLocalOracle
	}
	return api.n.realitio.AskQuestion(from, 0, text, common.Address{}, uint64(timeout), uint64(openingTS), uint64(nonce))
}

// SubmitAnswer answers a built-in oracle question.
func (api *devAPI) SubmitAnswer(questionID common.Hash, valid bool, bond hexutil.Big) error {
	if api.n.realitio == nil {
		return errNoLocalOracle
	}
	answer := guild.AnswerInvalid
	if valid {
		answer = guild.AnswerValid
	}
	return api.n.realitio.SubmitAnswer(questionID, answer, bond.ToInt())
}

// MarketValidationPair holds the proposals created for an oracle question.
type MarketValidationPair struct {
	Valid   common.Hash `json:"valid"`
	Invalid common.Hash `json:"invalid"`
}

// CreateMarketValidationProposal opens the validation pair of a question.
func (api *devAPI) CreateMarketValidationProposal(ctx context.Context, from common.Address, questionID common.Hash) (*MarketValidationPair, error) {
	valid, invalid, err := api.n.guild.CreateMarketValidationProposal(ctx, api.tx(from), questionID)
	if err != nil {
		return nil, err
	}
	return &MarketValidationPair{Valid: valid, Invalid: invalid}, nil
}

// EndMarketValidationProposal resolves the validation pair of a question.
func (api *devAPI) EndMarketValidationProposal(ctx context.Context, from common.Address, questionID common.Hash) error {
	return api.n.guild.EndMarketValidationProposal(ctx, api.tx(from), questionID)
}

// ClaimRewards pays out the validation vote rewards of voter.
func (api *devAPI) ClaimRewards(from common.Address, ids []common.Hash, voter common.Address) error {
	return api.n.guild.ClaimMarketValidationVoteRewards(api.tx(from), ids, voter)
}
