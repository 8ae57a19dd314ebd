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

// Package guild implements a token weighted governance guild. Members lock
// guild tokens to gain voting weight, vote on proposals executing arbitrary
// calls, and validate prediction market questions against an oracle for a
// token reward.
package guild

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
)

// Guild is a token weighted governance engine. Every exported method that
// changes state is atomic with respect to all others.
type Guild struct {
	address  common.Address
	vault    common.Address
	backends Backends
	db       ethdb.KeyValueStore

	mu          sync.Mutex
	config      *Config
	admins      mapset.Set[common.Address]
	nonce       uint64
	savedNonce  uint64 // nonce as of the last written batch
	totalLocked *big.Int
	locks       map[common.Address]*LockedBalance
	proposals   map[common.Hash]*Proposal
	votes       map[common.Hash]map[common.Address]*big.Int
	markets     map[common.Hash]*MarketValidation
	claims      map[common.Hash]mapset.Set[common.Address]
	executing   map[common.Hash]bool // proposals whose actions are being dispatched

	batch   ethdb.Batch
	pending []Event
	feed    event.Feed
	scope   event.SubscriptionScope
}

// New opens the guild living at address. A database that already holds a guild
// is restored as is; otherwise cfg and admins initialize a fresh one.
func New(address common.Address, cfg *Config, admins []common.Address, backends Backends, db ethdb.KeyValueStore) (*Guild, error) {
	if backends.Token == nil {
		return nil, fmt.Errorf("%w: missing token backend", ErrInvalidConfig)
	}
	if backends.Oracles == nil {
		return nil, fmt.Errorf("%w: missing oracle backend", ErrInvalidConfig)
	}
	g := &Guild{
		address:   address,
		vault:     VaultAddress(address),
		backends:  backends,
		db:        db,
		admins:    mapset.NewThreadUnsafeSet[common.Address](),
		locks:     make(map[common.Address]*LockedBalance),
		proposals: make(map[common.Hash]*Proposal),
		votes:     make(map[common.Hash]map[common.Address]*big.Int),
		markets:   make(map[common.Hash]*MarketValidation),
		claims:    make(map[common.Hash]mapset.Set[common.Address]),
		executing: make(map[common.Hash]bool),
	}
	if stored := readConfig(db); stored != nil {
		g.config = stored
		g.load()
		log.Info("Restored guild state", "address", address, "proposals", len(g.proposals), "holders", len(g.locks))
		return g, nil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g.config = cfg.Copy()
	g.totalLocked = new(big.Int)

	batch := db.NewBatch()
	writeConfig(batch, g.config)
	for _, admin := range admins {
		g.admins.Add(admin)
		writeAdmin(batch, admin)
	}
	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("failed to initialize guild: %w", err)
	}
	log.Info("Initialized guild", "address", address, "vault", g.vault, "admins", len(admins))
	return g, nil
}

// VaultAddress returns the address holding the locked tokens of a guild.
func VaultAddress(guild common.Address) common.Address {
	return crypto.CreateAddress(guild, 0)
}

// Close terminates all event subscriptions.
func (g *Guild) Close() {
	g.scope.Close()
}

// atomically runs fn under the guild lock. State written to the batch is only
// persisted and events are only delivered when fn succeeds; fn must not touch
// in-memory state before all of its checks passed.
func (g *Guild) atomically(fn func() error) error {
	g.mu.Lock()
	g.batch = g.db.NewBatch()
	err := fn()
	events := g.end(err)
	g.mu.Unlock()

	g.flush(events)
	return err
}

func (g *Guild) end(err error) []Event {
	batch := g.batch
	g.batch = nil
	if err != nil {
		g.nonce = g.savedNonce
		g.pending = nil
		return nil
	}
	if g.nonce != g.savedNonce {
		writeNonce(batch, g.nonce)
		g.savedNonce = g.nonce
	}
	if batch.ValueSize() > 0 {
		if err := batch.Write(); err != nil {
			log.Crit("Failed to persist guild state", "err", err)
		}
	}
	return g.takeEvents()
}

// Address returns the address of the guild.
func (g *Guild) Address() common.Address {
	return g.address
}

// Vault returns the address holding the locked tokens.
func (g *Guild) Vault() common.Address {
	return g.vault
}

// Config returns a copy of the current configuration.
func (g *Guild) Config() *Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config.Copy()
}

// IsAdminProposer reports whether addr may create admin proposals.
func (g *Guild) IsAdminProposer(addr common.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admins.Contains(addr)
}

// AdminProposers returns the admin allow-list sorted by address.
func (g *Guild) AdminProposers() []common.Address {
	g.mu.Lock()
	admins := g.admins.ToSlice()
	g.mu.Unlock()

	sort.Slice(admins, func(i, j int) bool {
		return bytes.Compare(admins[i][:], admins[j][:]) < 0
	})
	return admins
}

// GetProposal returns a copy of a proposal
func (g *Guild) GetProposal(id common.Hash) (*Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.proposals[id]
	if !ok {
		return nil, ErrProposalNotFound
	}
	return p.Copy(), nil
}

// ProposalIDs returns the ids of all proposals in creation order.
func (g *Guild) ProposalIDs() []common.Hash {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]common.Hash, 0, len(g.proposals))
	for id := range g.proposals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := g.proposals[ids[i]], g.proposals[ids[j]]
		if pi.CreationTime != pj.CreationTime {
			return pi.CreationTime < pj.CreationTime
		}
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// DueProposals returns the generic proposals that can be ended at time now.
func (g *Guild) DueProposals(now uint64) []common.Hash {
	var due []common.Hash
	for _, id := range g.ProposalIDs() {
		g.mu.Lock()
		p := g.proposals[id]
		ready := p.State == ProposalStateSubmitted && !p.IsMarketValidation() && !g.executing[id] && now >= p.EndTime
		g.mu.Unlock()
		if ready {
			due = append(due, id)
		}
	}
	return due
}

// VotesOf returns the amount voter cast on a proposal, zero if none.
func (g *Guild) VotesOf(id common.Hash, voter common.Address) *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if amount, ok := g.votes[id][voter]; ok {
		return new(big.Int).Set(amount)
	}
	return new(big.Int)
}

// HasClaimed reports whether voter already claimed the reward of a proposal.
func (g *Guild) HasClaimed(id common.Hash, voter common.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	claimed, ok := g.claims[id]
	return ok && claimed.Contains(voter)
}

func (g *Guild) voteSet(id common.Hash) map[common.Address]*big.Int {
	set, ok := g.votes[id]
	if !ok {
		set = make(map[common.Address]*big.Int)
		g.votes[id] = set
	}
	return set
}

func (g *Guild) claimSet(id common.Hash) mapset.Set[common.Address] {
	set, ok := g.claims[id]
	if !ok {
		set = mapset.NewThreadUnsafeSet[common.Address]()
		g.claims[id] = set
	}
	return set
}

func (g *Guild) hasVoted(id common.Hash, voter common.Address) bool {
	amount, ok := g.votes[id][voter]
	return ok && amount.Sign() > 0
}

// nextProposalID derives a unique proposal id and advances the nonce. The
// nonce is written, or rolled back, when the batch ends.
func (g *Guild) nextProposalID(creator common.Address, now uint64) common.Hash {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], now)
	binary.BigEndian.PutUint64(buf[8:], g.nonce)
	g.nonce++
	return crypto.Keccak256Hash(g.address.Bytes(), creator.Bytes(), buf[:])
}
