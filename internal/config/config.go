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

// Package config loads the omnguild node configuration. Values are layered
// with increasing priority: built-in defaults, the TOML file, OMNGUILD_*
// environment variables and finally command line flags, which are applied by
// the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/omen-guild/omnguild/genesis"
	"github.com/omen-guild/omnguild/guild"
	"github.com/omen-guild/omnguild/keeper"
)

// Environment variables overriding the file configuration.
const (
	EnvDataDir       = "OMNGUILD_DATADIR"
	EnvHTTPAddr      = "OMNGUILD_HTTP_ADDR"
	EnvOracleRPC     = "OMNGUILD_ORACLE_RPC"
	EnvVerbosity     = "OMNGUILD_VERBOSITY"
	EnvKeeperAccount = "OMNGUILD_KEEPER_ACCOUNT"
	EnvDeployer      = "OMNGUILD_DEPLOYER"
)

var ErrInvalid = errors.New("invalid node configuration")

// Config is the node configuration.
type Config struct {
	DataDir    string
	HTTPAddr   string
	HTTPCors   []string `toml:",omitempty"` // allowed cross-origin domains
	OracleRPC  string   // remote Realitio endpoint, empty for the built-in oracle
	Verbosity  int
	LogFile    string  `toml:",omitempty"` // rotated log file, stderr only if empty
	Dev        bool    // serve the mutating dev namespace
	FaucetRate float64 // dev faucet mints per second

	Keeper  KeeperConfig
	Genesis GenesisConfig
}

// KeeperConfig configures the proposal keeper.
type KeeperConfig struct {
	Disabled bool
	Interval time.Duration
	Account  common.Address
}

// GenesisConfig describes the guild deployment created on first boot.
type GenesisConfig struct {
	Deployer common.Address
	Admins   []common.Address
	Rewards  *math.HexOrDecimal256 `toml:",omitempty"`
	Treasury *math.HexOrDecimal256 `toml:",omitempty"`
	Alloc    []AllocConfig
	Guild    GuildParams
}

// AllocConfig is an initial token balance.
type AllocConfig struct {
	Holder common.Address
	Amount *math.HexOrDecimal256
}

// GuildParams overrides the default guild parameters. Unset fields keep
// their defaults.
type GuildParams struct {
	ProposalTime           *uint64               `toml:",omitempty"`
	TimeForExecution       *uint64               `toml:",omitempty"`
	VotesForExecution      *math.HexOrDecimal256 `toml:",omitempty"`
	VotesForCreation       *math.HexOrDecimal256 `toml:",omitempty"`
	VoteGas                *uint64               `toml:",omitempty"`
	MaxGasPrice            *math.HexOrDecimal256 `toml:",omitempty"`
	LockTime               *uint64               `toml:",omitempty"`
	MaxAmountVotes         *math.HexOrDecimal256 `toml:",omitempty"`
	Oracle                 *common.Address       `toml:",omitempty"`
	SuccessfulVoteReward   *math.HexOrDecimal256 `toml:",omitempty"`
	UnsuccessfulVoteReward *math.HexOrDecimal256 `toml:",omitempty"`
}

// DefaultDeployer is the genesis deployer used when none is configured.
var DefaultDeployer = common.HexToAddress("0x00000000000000000000000000000000000c1d00")

// Default returns the built-in node configuration.
func Default() *Config {
	return &Config{
		DataDir:    "omnguild-data",
		HTTPAddr:   "127.0.0.1:8645",
		Verbosity:  3,
		FaucetRate: 1,
		Keeper: KeeperConfig{
			Interval: keeper.DefaultConfig().Interval,
		},
		Genesis: GenesisConfig{
			Deployer: DefaultDeployer,
			Admins:   []common.Address{DefaultDeployer},
		},
	}
}

// Load reads the configuration file at path over the defaults and applies
// the environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DataDir = getEnvOrDefault(EnvDataDir, c.DataDir)
	c.HTTPAddr = getEnvOrDefault(EnvHTTPAddr, c.HTTPAddr)
	c.OracleRPC = getEnvOrDefault(EnvOracleRPC, c.OracleRPC)

	if v := os.Getenv(EnvVerbosity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, EnvVerbosity, err)
		}
		c.Verbosity = n
	}
	for key, addr := range map[string]*common.Address{
		EnvKeeperAccount: &c.Keeper.Account,
		EnvDeployer:      &c.Genesis.Deployer,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%w: %s: invalid address %q", ErrInvalid, key, v)
		}
		*addr = common.HexToAddress(v)
	}
	return nil
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the node settings and the genesis they describe.
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return fmt.Errorf("%w: empty data directory", ErrInvalid)
	case c.HTTPAddr == "":
		return fmt.Errorf("%w: empty HTTP listen address", ErrInvalid)
	case c.Verbosity < 0 || c.Verbosity > 5:
		return fmt.Errorf("%w: verbosity %d out of range [0, 5]", ErrInvalid, c.Verbosity)
	case c.Keeper.Interval < 0:
		return fmt.Errorf("%w: negative keeper interval", ErrInvalid)
	case c.FaucetRate < 0:
		return fmt.Errorf("%w: negative faucet rate", ErrInvalid)
	}
	_, err := c.BuildGenesis()
	return err
}

// BuildGenesis converts the genesis section into a validated genesis.
func (c *Config) BuildGenesis() (*genesis.Genesis, error) {
	gc := &c.Genesis
	gen := genesis.DefaultGenesis(gc.Deployer)
	if gc.Admins != nil {
		gen.Admins = append([]common.Address(nil), gc.Admins...)
	}
	if gc.Rewards != nil {
		gen.Rewards = toBig(gc.Rewards)
	}
	if gc.Treasury != nil {
		gen.Treasury = toBig(gc.Treasury)
	}
	for _, a := range gc.Alloc {
		gen.Alloc = append(gen.Alloc, genesis.Allocation{Holder: a.Holder, Amount: toBig(a.Amount)})
	}
	gc.Guild.apply(gen.Config)

	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return gen, nil
}

func (p *GuildParams) apply(cfg *guild.Config) {
	for _, u := range []struct {
		src *uint64
		dst *uint64
	}{
		{p.ProposalTime, &cfg.ProposalTime},
		{p.TimeForExecution, &cfg.TimeForExecution},
		{p.VoteGas, &cfg.VoteGas},
		{p.LockTime, &cfg.LockTime},
	} {
		if u.src != nil {
			*u.dst = *u.src
		}
	}
	for _, b := range []struct {
		src *math.HexOrDecimal256
		dst **big.Int
	}{
		{p.VotesForExecution, &cfg.VotesForExecution},
		{p.VotesForCreation, &cfg.VotesForCreation},
		{p.MaxGasPrice, &cfg.MaxGasPrice},
		{p.MaxAmountVotes, &cfg.MaxAmountVotes},
		{p.SuccessfulVoteReward, &cfg.SuccessfulVoteReward},
		{p.UnsuccessfulVoteReward, &cfg.UnsuccessfulVoteReward},
	} {
		if b.src != nil {
			*b.dst = toBig(b.src)
		}
	}
	if p.Oracle != nil {
		cfg.Oracle = *p.Oracle
	}
}

func toBig(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(v))
}

// Dump writes the configuration as TOML.
func (c *Config) Dump(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
