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
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	marker    = []byte{0x01}
	errBadKey = errors.New("malformed key")
)

// readConfig retrieves the stored guild configuration, nil if the database
// holds no guild yet.
func readConfig(db ethdb.KeyValueReader) *Config {
	data, _ := db.Get(configKey)
	if len(data) == 0 {
		return nil
	}
	var cfg Config
	if err := rlp.DecodeBytes(data, &cfg); err != nil {
		log.Error("Invalid guild config RLP", "err", err)
		return nil
	}
	return &cfg
}

func writeConfig(db ethdb.KeyValueWriter, cfg *Config) {
	writeRLP(db, configKey, cfg, "config")
}

func readNonce(db ethdb.KeyValueReader) uint64 {
	data, _ := db.Get(nonceKey)
	if len(data) == 0 {
		return 0
	}
	var nonce uint64
	if err := rlp.DecodeBytes(data, &nonce); err != nil {
		log.Error("Invalid guild nonce RLP", "err", err)
		return 0
	}
	return nonce
}

func writeNonce(db ethdb.KeyValueWriter, nonce uint64) {
	writeRLP(db, nonceKey, nonce, "nonce")
}

func readTotalLocked(db ethdb.KeyValueReader) *big.Int {
	total := new(big.Int)
	data, _ := db.Get(totalLockedKey)
	if len(data) == 0 {
		return total
	}
	if err := rlp.DecodeBytes(data, total); err != nil {
		log.Error("Invalid total locked RLP", "err", err)
		return new(big.Int)
	}
	return total
}

func writeTotalLocked(db ethdb.KeyValueWriter, total *big.Int) {
	writeRLP(db, totalLockedKey, total, "total locked")
}

func writeAdmin(db ethdb.KeyValueWriter, addr common.Address) {
	if err := db.Put(adminKey(addr), marker); err != nil {
		log.Crit("Failed to store admin proposer", "err", err)
	}
}

func deleteAdmin(db ethdb.KeyValueWriter, addr common.Address) {
	if err := db.Delete(adminKey(addr)); err != nil {
		log.Crit("Failed to delete admin proposer", "err", err)
	}
}

func writeLock(db ethdb.KeyValueWriter, holder common.Address, lb *LockedBalance) {
	writeRLP(db, lockKey(holder), lb, "locked balance")
}

func writeProposal(db ethdb.KeyValueWriter, p *Proposal) {
	writeRLP(db, proposalKey(p.ID), p, "proposal")
}

func writeVote(db ethdb.KeyValueWriter, id common.Hash, voter common.Address, amount *big.Int) {
	writeRLP(db, voteKey(id, voter), amount, "vote")
}

func writeMarketValidation(db ethdb.KeyValueWriter, m *MarketValidation) {
	writeRLP(db, marketKey(m.QuestionID), m, "market validation")
}

func writeClaim(db ethdb.KeyValueWriter, id common.Hash, voter common.Address) {
	if err := db.Put(claimKey(id, voter), marker); err != nil {
		log.Crit("Failed to store reward claim", "err", err)
	}
}

func writeRLP(db ethdb.KeyValueWriter, key []byte, val interface{}, what string) {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		log.Crit("Failed to RLP encode guild record", "kind", what, "err", err)
	}
	if err := db.Put(key, data); err != nil {
		log.Crit("Failed to store guild record", "kind", what, "err", err)
	}
}

// iterate calls fn for every entry under prefix, skipping undecodable ones.
func iterate(db ethdb.Iteratee, prefix []byte, fn func(key, value []byte) error) {
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			log.Error("Skipping corrupt guild record", "key", common.Bytes2Hex(it.Key()), "err", err)
		}
	}
	if err := it.Error(); err != nil {
		log.Error("Guild database iteration failed", "prefix", string(prefix), "err", err)
	}
}

// load restores the full guild state from the database.
func (g *Guild) load() {
	g.nonce = readNonce(g.db)
	g.savedNonce = g.nonce
	g.totalLocked = readTotalLocked(g.db)

	iterate(g.db, adminPrefix, func(key, _ []byte) error {
		g.admins.Add(common.BytesToAddress(key[len(adminPrefix):]))
		return nil
	})
	iterate(g.db, lockPrefix, func(key, value []byte) error {
		var lb LockedBalance
		if err := rlp.DecodeBytes(value, &lb); err != nil {
			return err
		}
		g.locks[common.BytesToAddress(key[len(lockPrefix):])] = &lb
		return nil
	})
	iterate(g.db, proposalPrefix, func(_, value []byte) error {
		p := new(Proposal)
		if err := rlp.DecodeBytes(value, p); err != nil {
			return err
		}
		g.proposals[p.ID] = p
		return nil
	})
	iterate(g.db, votePrefix, func(key, value []byte) error {
		id, voter, ok := splitPairKey(votePrefix, key)
		if !ok {
			return errBadKey
		}
		amount := new(big.Int)
		if err := rlp.DecodeBytes(value, amount); err != nil {
			return err
		}
		g.voteSet(id)[voter] = amount
		return nil
	})
	iterate(g.db, marketPrefix, func(_, value []byte) error {
		m := new(MarketValidation)
		if err := rlp.DecodeBytes(value, m); err != nil {
			return err
		}
		g.markets[m.QuestionID] = m
		return nil
	})
	iterate(g.db, claimPrefix, func(key, _ []byte) error {
		id, voter, ok := splitPairKey(claimPrefix, key)
		if !ok {
			return errBadKey
		}
		g.claimSet(id).Add(voter)
		return nil
	})
}
