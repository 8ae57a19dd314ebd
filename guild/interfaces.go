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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the fungible ledger of the guild token. Every call names the account
// acting as msg.sender explicitly.
type Token interface {
	// BalanceOf returns the balance of holder
	BalanceOf(holder common.Address) *big.Int

	// Transfer moves amount from the sender to to
	Transfer(from, to common.Address, amount *big.Int) error

	// TransferFrom moves amount from owner to to, spending the allowance owner
	// granted to spender
	TransferFrom(spender, owner, to common.Address, amount *big.Int) error
}

// Treasury holds the native currency used to reimburse voters.
type Treasury interface {
	// BalanceOf returns the native balance of holder
	BalanceOf(holder common.Address) *big.Int

	// Transfer moves amount from the sender to to
	Transfer(from, to common.Address, amount *big.Int) error
}

// Question is the part of an oracle question the guild relies on.
type Question struct {
	ID        common.Hash
	OpeningTS uint64
	Timeout   uint64
}

// Oracle is a polling view of an external question/answer oracle. None of the
// methods block on finalization.
type Oracle interface {
	// Question returns the question, or ErrQuestionNotFound
	Question(ctx context.Context, id common.Hash) (*Question, error)

	// IsFinalized reports whether the answer of the question is final
	IsFinalized(ctx context.Context, id common.Hash) (bool, error)

	// FinalAnswer returns the hash-encoded final answer of a finalized question
	FinalAnswer(ctx context.Context, id common.Hash) (common.Hash, error)
}

// OracleBackend resolves the oracle deployed at an address. The guild stores
// only the address so that the oracle can be replaced through configuration.
type OracleBackend interface {
	At(addr common.Address) (Oracle, error)
}

// Call is a proposal action handed to the dispatcher.
type Call struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Dispatcher executes the external actions of a proposal. A batch is applied
// atomically: either every call takes effect or none does.
type Dispatcher interface {
	Dispatch(ctx context.Context, calls []Call) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, calls []Call) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, calls []Call) error {
	return f(ctx, calls)
}

// Backends bundles the external collaborators of a guild.
type Backends struct {
	Token      Token
	Treasury   Treasury // optional, disables vote reimbursement when nil
	Oracles    OracleBackend
	Dispatcher Dispatcher // optional, external actions fail when nil
}
