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

package genesis

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/omen-guild/omnguild/guild"
)

// Deployment nonces of the genesis contracts.
const (
	guildNonce  = 0
	tokenNonce  = 1
	oracleNonce = 2
)

// CalculateContractAddress returns the address of the contract deployed by
// deployer at the given nonce: keccak256(rlp([deployer, nonce]))[12:].
func CalculateContractAddress(deployer common.Address, nonce uint64) common.Address {
	data, _ := rlp.EncodeToBytes([]interface{}{deployer, nonce})
	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}

// Addresses are the predicted locations of the genesis contracts.
type Addresses struct {
	Guild  common.Address
	Vault  common.Address
	Token  common.Address
	Oracle common.Address
}

// PredictAddresses derives the genesis contract addresses of a deployer. The
// vault is created by the guild itself in its constructor.
func PredictAddresses(deployer common.Address) Addresses {
	g := CalculateContractAddress(deployer, guildNonce)
	return Addresses{
		Guild:  g,
		Vault:  guild.VaultAddress(g),
		Token:  CalculateContractAddress(deployer, tokenNonce),
		Oracle: CalculateContractAddress(deployer, oracleNonce),
	}
}
