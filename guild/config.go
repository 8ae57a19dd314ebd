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
)

const (
	// MinProposalTime is the shortest voting window an admin proposal may request.
	MinProposalTime = uint64(24 * 60 * 60)

	// MaxQuestionAge bounds how long before proposal creation an oracle question
	// may have been opened.
	MaxQuestionAge = uint64(2 * 24 * 60 * 60)
)

// Config holds the guild parameters. It is only changed by the guild itself
// through an executed proposal.
type Config struct {
	ProposalTime      uint64   // voting window in seconds
	TimeForExecution  uint64   // seconds after EndTime during which a passed proposal can execute
	VotesForExecution *big.Int // quorum
	VotesForCreation  *big.Int // locked balance required to create proposals
	VoteGas           uint64   // reimbursed gas per vote
	MaxGasPrice       *big.Int // reimbursed gas price ceiling
	LockTime          uint64   // seconds tokens stay locked after each lock
	MaxAmountVotes    *big.Int // per vote weight cap

	Oracle                 common.Address
	SuccessfulVoteReward   *big.Int
	UnsuccessfulVoteReward *big.Int
}

// DefaultConfig returns the default guild configuration
func DefaultConfig() *Config {
	return &Config{
		ProposalTime:           7 * 24 * 60 * 60, // 7 days
		TimeForExecution:       130000,
		VotesForExecution:      big.NewInt(40),
		VotesForCreation:       big.NewInt(10),
		VoteGas:                50000,
		MaxGasPrice:            big.NewInt(8e9), // 8 gwei
		LockTime:               60,
		MaxAmountVotes:         big.NewInt(99),
		SuccessfulVoteReward:   big.NewInt(12),
		UnsuccessfulVoteReward: big.NewInt(6),
	}
}

// Copy returns a deep copy of the configuration.
func (c *Config) Copy() *Config {
	cpy := *c
	cpy.VotesForExecution = new(big.Int).Set(c.VotesForExecution)
	cpy.VotesForCreation = new(big.Int).Set(c.VotesForCreation)
	cpy.MaxGasPrice = new(big.Int).Set(c.MaxGasPrice)
	cpy.MaxAmountVotes = new(big.Int).Set(c.MaxAmountVotes)
	cpy.SuccessfulVoteReward = new(big.Int).Set(c.SuccessfulVoteReward)
	cpy.UnsuccessfulVoteReward = new(big.Int).Set(c.UnsuccessfulVoteReward)
	return &cpy
}

// Validate checks the configuration for values the guild cannot operate with.
func (c *Config) Validate() error {
	switch {
	case c.ProposalTime == 0:
		return fmt.Errorf("%w: zero proposal time", ErrInvalidConfig)
	case c.VotesForExecution == nil || c.VotesForExecution.Sign() <= 0:
		return fmt.Errorf("%w: votes for execution must be positive", ErrInvalidConfig)
	case c.VotesForCreation == nil || c.VotesForCreation.Sign() < 0:
		return fmt.Errorf("%w: negative votes for creation", ErrInvalidConfig)
	case c.MaxGasPrice == nil || c.MaxGasPrice.Sign() < 0:
		return fmt.Errorf("%w: negative max gas price", ErrInvalidConfig)
	case c.MaxAmountVotes == nil || c.MaxAmountVotes.Sign() <= 0:
		return fmt.Errorf("%w: max amount of votes must be positive", ErrInvalidConfig)
	case c.SuccessfulVoteReward == nil || c.SuccessfulVoteReward.Sign() < 0:
		return fmt.Errorf("%w: negative successful vote reward", ErrInvalidConfig)
	case c.UnsuccessfulVoteReward == nil || c.UnsuccessfulVoteReward.Sign() < 0:
		return fmt.Errorf("%w: negative unsuccessful vote reward", ErrInvalidConfig)
	}
	return nil
}
