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

import "errors"

// Configuration errors
var (
	ErrInvalidConfig = errors.New("invalid guild configuration")
	ErrOnlyGuild     = errors.New("only the guild can configure the guild")
)

// Ledger errors
var (
	ErrInvalidLockAmount = errors.New("invalid amount of tokens to lock")
	ErrLockedFunds       = errors.New("tokens still locked")
)

// Proposal errors
var (
	ErrProposalNotFound        = errors.New("proposal not found")
	ErrNotEnoughTokens         = errors.New("not enough tokens to create proposal")
	ErrEmptyActions            = errors.New("to, data and value arrays cannot be empty")
	ErrActionLengthMismatch    = errors.New("wrong length of to, data or value arrays")
	ErrNotAdminProposer        = errors.New("not approved for admin proposals")
	ErrProposalTimeTooShort    = errors.New("proposal time below the minimum")
	ErrProposalNotEnded        = errors.New("proposal hasnt ended yet")
	ErrProposalAlreadyExecuted = errors.New("proposal already executed")
	ErrUseMarketValidationEnd  = errors.New("use EndMarketValidationProposal to end proposals to validate market")
)

// Voting errors
var (
	ErrVoteLengthMismatch   = errors.New("wrong length of proposalIds or amounts")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrVoteAboveMax         = errors.New("cant vote with more votes than max amount of votes")
	ErrAlreadyVoted         = errors.New("already voted")
	ErrProposalAlreadyEnded = errors.New("proposal already ended")
)

// Market validation errors
var (
	ErrQuestionNotFound             = errors.New("oracle question does not exist")
	ErrQuestionTooOld               = errors.New("oracle question is over 2 days old")
	ErrMarketValidationExists       = errors.New("market validation proposal already created")
	ErrMarketValidationNotFound     = errors.New("market validation proposal not found")
	ErrMarketNotEnded               = errors.New("market valid proposal hasnt ended yet")
	ErrMarketValidAlreadyExecuted   = errors.New("market valid proposal already executed")
	ErrMarketInvalidAlreadyExecuted = errors.New("market invalid proposal already executed")
)

// Reward errors
var (
	ErrNotMarketValidation  = errors.New("cant claim from proposal that isnt for market validation")
	ErrClaimNotResolved     = errors.New("proposal to claim should be executed or rejected")
	ErrRewardAlreadyClaimed = errors.New("vote reward already claimed")
	ErrNothingToClaim       = errors.New("voter did not vote on proposal")
	ErrRewardsUnavailable   = errors.New("rewards are temporarily unavailable, please try again later")
)

// Execution errors
var (
	ErrUnknownSelfCall = errors.New("unknown guild method")
	ErrSelfCallValue   = errors.New("guild methods are not payable")
	ErrNoDispatcher    = errors.New("no dispatcher for external calls")
)

// IsTransient reports whether err signals a resource shortage that clears once
// the guild is funded. Transient failures leave no state behind.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRewardsUnavailable)
}

// IsTemporal reports whether err is a timing precondition: the same call
// succeeds later without changing its arguments.
func IsTemporal(err error) bool {
	return errors.Is(err, ErrProposalNotEnded) || errors.Is(err, ErrMarketNotEnded)
}
