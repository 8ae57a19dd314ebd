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
	"github.com/ethereum/go-ethereum/event"
)

// Event names. They are part of the public interface consumed by indexers.
const (
	EventProposalCreated   = "ProposalCreated"
	EventVoteAdded         = "VoteAdded"
	EventProposalExecuted  = "ProposalExecuted"
	EventProposalRejected  = "ProposalRejected"
	EventProposalEnded     = "ProposalEnded"
	EventTokensLocked      = "TokensLocked"
	EventTokensReleased    = "TokensReleased"
	EventVoteRewardClaimed = "VoteRewardClaimed"
)

// Event is emitted after a guild state transition.
type Event struct {
	Name       string
	ProposalID common.Hash
	Account    common.Address
	Amount     *big.Int
}

// SubscribeEvents registers ch to receive every event emitted by the guild.
func (g *Guild) SubscribeEvents(ch chan<- Event) event.Subscription {
	return g.scope.Track(g.feed.Subscribe(ch))
}

// emit queues an event; queued events are delivered by flush once the guild
// lock has been released.
func (g *Guild) emit(name string, id common.Hash, account common.Address, amount *big.Int) {
	ev := Event{Name: name, ProposalID: id, Account: account}
	if amount != nil {
		ev.Amount = new(big.Int).Set(amount)
	}
	g.pending = append(g.pending, ev)
}

// takeEvents detaches the queued events. Must be called with the lock held.
func (g *Guild) takeEvents() []Event {
	events := g.pending
	g.pending = nil
	return events
}

func (g *Guild) flush(events []Event) {
	for _, ev := range events {
		g.feed.Send(ev)
	}
}
