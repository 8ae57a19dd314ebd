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

// Package oracle provides the question/answer oracles guilds validate markets
// against.
package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/omen-guild/omnguild/guild"
)

var (
	ErrQuestionExists   = errors.New("question already exists")
	ErrNotOpen          = errors.New("question is not open for answers")
	ErrBondTooLow       = errors.New("bond must exceed the previous bond")
	ErrNotFinalized     = errors.New("question is not finalized")
	ErrZeroTimeout      = errors.New("timeout must be positive")
	ErrUnknownOracle    = errors.New("no oracle at address")
	ErrAlreadyFinalized = errors.New("question already finalized")
)

type question struct {
	contentHash common.Hash
	arbitrator  common.Address
	openingTS   uint64
	timeout     uint64
	finalizeTS  uint64
	bestAnswer  common.Hash
	bond        *big.Int
}

// Realitio is an in-memory bonded question/answer oracle. The last answer wins
// once it went unchallenged for the question timeout.
type Realitio struct {
	clock func() uint64

	mu        sync.RWMutex
	questions map[common.Hash]*question
}

// NewRealitio creates an oracle reading the current time from clock. A nil
// clock uses the wall clock.
func NewRealitio(clock func() uint64) *Realitio {
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Realitio{
		clock:     clock,
		questions: make(map[common.Hash]*question),
	}
}

// AskQuestion registers a question and returns its id.
func (r *Realitio) AskQuestion(asker common.Address, templateID uint32, text string, arbitrator common.Address, timeout uint64, openingTS uint64, nonce uint64) (common.Hash, error) {
	if timeout == 0 {
		return common.Hash{}, ErrZeroTimeout
	}
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], templateID)
	binary.BigEndian.PutUint32(buf[4:], uint32(openingTS))
	contentHash := crypto.Keccak256Hash(buf[:], []byte(text))

	var tail [16]byte
	binary.BigEndian.PutUint64(tail[:8], timeout)
	binary.BigEndian.PutUint64(tail[8:], nonce)
	id := crypto.Keccak256Hash(contentHash[:], arbitrator[:], asker[:], tail[:])

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.questions[id]; exists {
		return common.Hash{}, ErrQuestionExists
	}
	r.questions[id] = &question{
		contentHash: contentHash,
		arbitrator:  arbitrator,
		openingTS:   openingTS,
		timeout:     timeout,
		bond:        new(big.Int),
	}
	log.Debug("Oracle question asked", "id", id, "opening", openingTS, "timeout", timeout)
	return id, nil
}

// SubmitAnswer proposes answer backed by bond. Each answer restarts the
// finalization timeout.
func (r *Realitio) SubmitAnswer(id, answer common.Hash, bond *big.Int) error {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[id]
	if !ok {
		return guild.ErrQuestionNotFound
	}
	if now < q.openingTS {
		return ErrNotOpen
	}
	if q.finalizeTS != 0 && q.finalizeTS <= now {
		return ErrAlreadyFinalized
	}
	if bond.Cmp(q.bond) <= 0 {
		return ErrBondTooLow
	}
	q.bestAnswer = answer
	q.bond = new(big.Int).Set(bond)
	q.finalizeTS = now + q.timeout
	return nil
}

// Question implements guild.Oracle.
func (r *Realitio) Question(_ context.Context, id common.Hash) (*guild.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return nil, guild.ErrQuestionNotFound
	}
	return &guild.Question{ID: id, OpeningTS: q.openingTS, Timeout: q.timeout}, nil
}

// IsFinalized implements guild.Oracle.
func (r *Realitio) IsFinalized(_ context.Context, id common.Hash) (bool, error) {
	now := r.clock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return false, guild.ErrQuestionNotFound
	}
	return q.finalizeTS != 0 && q.finalizeTS <= now, nil
}

// FinalAnswer implements guild.Oracle.
func (r *Realitio) FinalAnswer(ctx context.Context, id common.Hash) (common.Hash, error) {
	finalized, err := r.IsFinalized(ctx, id)
	if err != nil {
		return common.Hash{}, err
	}
	if !finalized {
		return common.Hash{}, ErrNotFinalized
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.questions[id].bestAnswer, nil
}

// Registry resolves oracles by address.
type Registry struct {
	mu      sync.RWMutex
	oracles map[common.Address]guild.Oracle
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{oracles: make(map[common.Address]guild.Oracle)}
}

// Register makes o reachable at addr.
func (r *Registry) Register(addr common.Address, o guild.Oracle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oracles[addr] = o
}

// At implements guild.OracleBackend.
func (r *Registry) At(addr common.Address) (guild.Oracle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.oracles[addr]
	if !ok {
		return nil, ErrUnknownOracle
	}
	return o, nil
}
