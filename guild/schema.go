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
	"github.com/ethereum/go-ethereum/common"
)

// The fields below define the low level database schema prefixing.
var (
	configKey      = []byte("GuildConfig")
	nonceKey       = []byte("GuildNonce")
	totalLockedKey = []byte("GuildTotalLocked")

	adminPrefix    = []byte("a") // adminPrefix + address -> marker
	lockPrefix     = []byte("l") // lockPrefix + address -> LockedBalance
	proposalPrefix = []byte("p") // proposalPrefix + id -> Proposal
	votePrefix     = []byte("v") // votePrefix + id + voter -> amount
	marketPrefix   = []byte("m") // marketPrefix + question id -> MarketValidation
	claimPrefix    = []byte("c") // claimPrefix + id + voter -> marker
)

func adminKey(addr common.Address) []byte {
	return append(common.CopyBytes(adminPrefix), addr.Bytes()...)
}

func lockKey(addr common.Address) []byte {
	return append(common.CopyBytes(lockPrefix), addr.Bytes()...)
}

func proposalKey(id common.Hash) []byte {
	return append(common.CopyBytes(proposalPrefix), id.Bytes()...)
}

func voteKey(id common.Hash, voter common.Address) []byte {
	key := append(common.CopyBytes(votePrefix), id.Bytes()...)
	return append(key, voter.Bytes()...)
}

func marketKey(questionID common.Hash) []byte {
	return append(common.CopyBytes(marketPrefix), questionID.Bytes()...)
}

func claimKey(id common.Hash, voter common.Address) []byte {
	key := append(common.CopyBytes(claimPrefix), id.Bytes()...)
	return append(key, voter.Bytes()...)
}

// splitPairKey extracts the proposal id and account of a vote or claim key.
func splitPairKey(prefix, key []byte) (common.Hash, common.Address, bool) {
	if len(key) != len(prefix)+common.HashLength+common.AddressLength {
		return common.Hash{}, common.Address{}, false
	}
	key = key[len(prefix):]
	return common.BytesToHash(key[:common.HashLength]), common.BytesToAddress(key[common.HashLength:]), true
}
