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

// Package keeper periodically ends guild proposals whose end conditions are
// met. The guild itself never acts on its own; the keeper is one of possibly
// many external callers polling the terminators.
package keeper

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/omen-guild/omnguild/guild"
)

// Guild is the part of a guild the keeper drives.
type Guild interface {
	DueProposals(now uint64) []common.Hash
	PendingMarketValidations() []common.Hash
	EndProposal(ctx context.Context, tx *guild.Tx, id common.Hash) error
	EndMarketValidationProposal(ctx context.Context, tx *guild.Tx, questionID common.Hash) error
}

// Config holds the keeper settings.
type Config struct {
	Interval time.Duration  // time between sweeps
	Account  common.Address // sender of the terminator calls

	Clock func() time.Time // defaults to time.Now
}

// DefaultConfig returns the default keeper configuration
func DefaultConfig() Config {
	return Config{Interval: 15 * time.Second}
}

// Stats summarizes a single sweep.
type Stats struct {
	Ended    int // generic proposals ended
	Resolved int // validation pairs resolved
	Waiting  int // validation pairs whose oracle is still open
	Failed   int // calls failing for other reasons
}

// Keeper polls a guild and calls its terminators.
type Keeper struct {
	guild  Guild
	config Config
	now    func() time.Time
}

// New creates a keeper driving g.
func New(g Guild, config Config) *Keeper {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	return &Keeper{guild: g, config: config, now: now}
}

// Run sweeps the guild every interval until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.config.Interval)
	defer ticker.Stop()

	log.Info("Guild keeper started", "interval", k.config.Interval, "account", k.config.Account)
	for {
		select {
		case <-ticker.C:
			k.Sweep(ctx)
		case <-ctx.Done():
			log.Info("Guild keeper stopped")
			return nil
		}
	}
}

// Sweep makes a single pass over all due proposals and open validation pairs.
func (k *Keeper) Sweep(ctx context.Context) Stats {
	var (
		stats Stats
		now   = uint64(k.now().Unix())
		tx    = &guild.Tx{From: k.config.Account, Time: now}
		sweep = uuid.New()
	)
	for _, id := range k.guild.DueProposals(now) {
		err := k.guild.EndProposal(ctx, tx, id)
		switch {
		case err == nil:
			stats.Ended++
		case errors.Is(err, guild.ErrProposalAlreadyExecuted) || guild.IsTemporal(err):
			// Raced with another caller or the clock.
		default:
			stats.Failed++
			log.Warn("Failed to end proposal", "sweep", sweep, "id", id, "err", err)
		}
	}
	for _, qid := range k.guild.PendingMarketValidations() {
		err := k.guild.EndMarketValidationProposal(ctx, tx, qid)
		switch {
		case err == nil:
			stats.Resolved++
		case guild.IsTemporal(err):
			stats.Waiting++
		case errors.Is(err, guild.ErrMarketValidAlreadyExecuted), errors.Is(err, guild.ErrMarketInvalidAlreadyExecuted):
		default:
			stats.Failed++
			log.Warn("Failed to resolve market validation", "sweep", sweep, "question", qid, "err", err)
		}
	}
	if stats != (Stats{}) {
		log.Debug("Guild sweep done", "sweep", sweep, "ended", stats.Ended, "resolved", stats.Resolved, "waiting", stats.Waiting, "failed", stats.Failed)
	}
	return stats
}
