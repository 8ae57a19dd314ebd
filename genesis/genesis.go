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
	"errors"
	"fmt"
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/omen-guild/omnguild/guild"
)

// MaxFounders bounds the number of admin proposers a guild starts with.
const MaxFounders = 5

var (
	ErrNoDeployer       = errors.New("genesis deployer not set")
	ErrTooManyFounders  = errors.New("too many genesis admin proposers")
	ErrDuplicateFounder = errors.New("duplicate genesis admin proposer")
	ErrInvalidAlloc     = errors.New("invalid genesis allocation")
)

// Allocation is an initial token balance.
type Allocation struct {
	Holder common.Address
	Amount *big.Int
}

// Genesis describes the initial state of a guild deployment.
type Genesis struct {
	Deployer common.Address
	Admins   []common.Address // initial admin proposers
	Alloc    []Allocation     // initial guild token balances
	Rewards  *big.Int         // guild token reserve paying vote rewards
	Treasury *big.Int         // native balance reimbursing voters
	Config   *guild.Config
}

// DefaultGenesis returns a genesis for deployer with the default guild
// configuration and the deployer as sole admin proposer.
func DefaultGenesis(deployer common.Address) *Genesis {
	cfg := guild.DefaultConfig()
	cfg.Oracle = PredictAddresses(deployer).Oracle

	return &Genesis{
		Deployer: deployer,
		Admins:   []common.Address{deployer},
		Rewards:  new(big.Int),
		Treasury: new(big.Int),
		Config:   cfg,
	}
}

// Addresses returns the contract addresses of the deployment.
func (g *Genesis) Addresses() Addresses {
	return PredictAddresses(g.Deployer)
}

// Validate checks the genesis for consistency.
func (g *Genesis) Validate() error {
	if g.Deployer == (common.Address{}) {
		return ErrNoDeployer
	}
	if len(g.Admins) > MaxFounders {
		return fmt.Errorf("%w: %d > %d", ErrTooManyFounders, len(g.Admins), MaxFounders)
	}
	admins := mapset.NewThreadUnsafeSet[common.Address]()
	for _, admin := range g.Admins {
		if !admins.Add(admin) {
			return fmt.Errorf("%w: %s", ErrDuplicateFounder, admin)
		}
	}
	for i, a := range g.Alloc {
		if a.Amount == nil || a.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: entry %d", ErrInvalidAlloc, i)
		}
	}
	for _, amount := range []*big.Int{g.Rewards, g.Treasury} {
		if amount != nil && amount.Sign() < 0 {
			return fmt.Errorf("%w: negative reserve", ErrInvalidAlloc)
		}
	}
	if g.Config == nil {
		return fmt.Errorf("%w: missing guild configuration", guild.ErrInvalidConfig)
	}
	return g.Config.Validate()
}

// Minter is a ledger genesis balances can be created on.
type Minter interface {
	Mint(to common.Address, amount *big.Int) error
	TotalSupply() *big.Int
}

// Apply mints the genesis balances. Ledgers already holding a supply are left
// untouched so that a restarted node keeps its state.
func (g *Genesis) Apply(token, native Minter) error {
	if err := g.Validate(); err != nil {
		return err
	}
	addrs := g.Addresses()
	if token.TotalSupply().Sign() == 0 {
		for _, a := range g.Alloc {
			if err := token.Mint(a.Holder, a.Amount); err != nil {
				return err
			}
		}
		if g.Rewards != nil && g.Rewards.Sign() > 0 {
			if err := token.Mint(addrs.Guild, g.Rewards); err != nil {
				return err
			}
		}
		log.Info("Minted genesis token balances", "holders", len(g.Alloc), "rewards", g.Rewards)
	}
	if native != nil && native.TotalSupply().Sign() == 0 && g.Treasury != nil && g.Treasury.Sign() > 0 {
		if err := native.Mint(addrs.Guild, g.Treasury); err != nil {
			return err
		}
		log.Info("Funded guild treasury", "amount", g.Treasury)
	}
	return nil
}
