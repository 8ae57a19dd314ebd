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
)

// ProposalState represents the lifecycle state of a proposal
type ProposalState uint8

const (
	ProposalStateNone      ProposalState = 0x00
	ProposalStateSubmitted ProposalState = 0x01 // accepting votes
	ProposalStateRejected  ProposalState = 0x02
	ProposalStateExecuted  ProposalState = 0x03
	ProposalStateFailed    ProposalState = 0x04 // quorum reached too late, dispatch failure or missed oracle side
)

// String implements fmt.Stringer.
func (s ProposalState) String() string {
	switch s {
	case ProposalStateSubmitted:
		return "submitted"
	case ProposalStateRejected:
		return "rejected"
	case ProposalStateExecuted:
		return "executed"
	case ProposalStateFailed:
		return "failed"
	default:
		return "none"
	}
}

// Terminal reports whether the state can no longer change.
func (s ProposalState) Terminal() bool {
	return s == ProposalStateRejected || s == ProposalStateExecuted || s == ProposalStateFailed
}

// Action is a single queued call of a proposal.
type Action struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// IsNoop reports whether executing the action has no effect.
func (a Action) IsNoop() bool {
	return len(a.Data) == 0 && (a.Value == nil || a.Value.Sign() == 0)
}

func (a Action) copy() Action {
	cpy := Action{To: a.To, Data: common.CopyBytes(a.Data), Value: new(big.Int)}
	if a.Value != nil {
		cpy.Value.Set(a.Value)
	}
	return cpy
}

// Proposal represents a guild proposal. Everything except TotalVotes and State is
// fixed at creation time.
type Proposal struct {
	ID          common.Hash
	Creator     common.Address
	Actions     []Action
	Description string
	ContentHash common.Hash

	CreationTime      uint64
	EndTime           uint64
	TimeForExecution  uint64
	VotesForExecution *big.Int
	MaxAmountVotes    *big.Int
	VoteGas           uint64
	MaxGasPrice       *big.Int

	TotalVotes *big.Int
	State      ProposalState

	// QuestionID is set for the two members of a market validation pair.
	QuestionID common.Hash
}

// IsMarketValidation reports whether the proposal belongs to a validation pair.
func (p *Proposal) IsMarketValidation() bool {
	return p.QuestionID != (common.Hash{})
}

// Copy returns a deep copy of the proposal.
func (p *Proposal) Copy() *Proposal {
	cpy := *p
	cpy.Actions = make([]Action, len(p.Actions))
	for i, a := range p.Actions {
		cpy.Actions[i] = a.copy()
	}
	cpy.VotesForExecution = new(big.Int).Set(p.VotesForExecution)
	cpy.MaxAmountVotes = new(big.Int).Set(p.MaxAmountVotes)
	cpy.MaxGasPrice = new(big.Int).Set(p.MaxGasPrice)
	cpy.TotalVotes = new(big.Int).Set(p.TotalVotes)
	return &cpy
}

// ProposalRequest carries the caller supplied content of a new proposal.
type ProposalRequest struct {
	Actions     []Action
	Description string
	ContentHash common.Hash
}

// AdminParams overrides the guild defaults for a single proposal. Zero values
// fall back to the current configuration.
type AdminParams struct {
	ProposalTime      uint64
	TimeForExecution  uint64
	VotesForExecution *big.Int
	VoteGas           uint64
	MaxGasPrice       *big.Int
	MaxAmountVotes    *big.Int
}

// LockedBalance is the voting weight of a holder.
type LockedBalance struct {
	Amount     *big.Int
	UnlockTime uint64
}

// MarketValidation links the valid/invalid proposal pair of an oracle question.
type MarketValidation struct {
	QuestionID common.Hash
	Oracle     common.Address
	Valid      common.Hash
	Invalid    common.Hash
	Resolved   bool
	Answer     common.Hash
}

// Sibling returns the other member of the pair.
func (m *MarketValidation) Sibling(id common.Hash) common.Hash {
	if id == m.Valid {
		return m.Invalid
	}
	return m.Valid
}

// Tx is the transaction context of a state changing call: the sender, the block
// timestamp and the metered cost used for vote reimbursement.
type Tx struct {
	From     common.Address
	Time     uint64
	GasPrice *big.Int
	GasUsed  uint64
}
