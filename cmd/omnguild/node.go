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

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gofrs/flock"
	"github.com/omen-guild/omnguild/genesis"
	"github.com/omen-guild/omnguild/guild"
	"github.com/omen-guild/omnguild/guild/oracle"
	"github.com/omen-guild/omnguild/guild/token"
	"github.com/omen-guild/omnguild/internal/config"
	"github.com/omen-guild/omnguild/keeper"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

const (
	dbCache   = 16 // MB
	dbHandles = 16

	tokenSymbol  = "OMN"
	nativeSymbol = "ETH"
)

// clock is the node time source. The dev API may move it forward.
type clock struct {
	offset atomic.Int64 // seconds
}

func (c *clock) Now() time.Time {
	return time.Now().Add(time.Duration(c.offset.Load()) * time.Second)
}

func (c *clock) Unix() uint64 {
	return uint64(c.Now().Unix())
}

func (c *clock) Advance(seconds uint64) {
	c.offset.Add(int64(seconds))
}

// node wires a guild to its ledgers, oracle, keeper and RPC endpoint.
type node struct {
	cfg   *config.Config
	gen   *genesis.Genesis
	addrs genesis.Addresses
	clock *clock

	lock     *flock.Flock
	db       *leveldb.Database
	omn      *token.Ledger
	eth      *token.Ledger
	realitio *oracle.Realitio // nil when a remote oracle is used
	client   *ethclient.Client

	guild  *guild.Guild
	keeper *keeper.Keeper
	rpc    *rpc.Server
}

func newNode(ctx context.Context, cfg *config.Config) (*node, error) {
	gen, err := cfg.BuildGenesis()
	if err != nil {
		return nil, err
	}
	n := &node{cfg: cfg, gen: gen, addrs: gen.Addresses(), clock: new(clock)}
	if err := n.open(ctx); err != nil {
		n.close()
		return nil, err
	}
	return n, nil
}

func (n *node) open(ctx context.Context) (err error) {
	cfg, gen := n.cfg, n.gen

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}
	n.lock = flock.New(filepath.Join(cfg.DataDir, "LOCK"))
	locked, err := n.lock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("data directory %s is in use", cfg.DataDir)
	}
	n.db, err = leveldb.New(filepath.Join(cfg.DataDir, "guilddata"), dbCache, dbHandles, "omnguild/db/", false)
	if err != nil {
		return err
	}
	if n.omn, err = token.NewPersistentLedger(tokenSymbol, n.db); err != nil {
		return err
	}
	if n.eth, err = token.NewPersistentLedger(nativeSymbol, n.db); err != nil {
		return err
	}
	if err := gen.Apply(n.omn, n.eth); err != nil {
		return err
	}

	var oracles guild.OracleBackend
	if cfg.OracleRPC != "" {
		var backend *oracle.RemoteBackend
		if backend, n.client, err = oracle.DialRemoteBackend(ctx, cfg.OracleRPC); err != nil {
			return err
		}
		oracles = backend
		log.Info("Using remote oracle", "url", cfg.OracleRPC)
	} else {
		n.realitio = oracle.NewRealitio(n.clock.Unix)
		registry := oracle.NewRegistry()
		registry.Register(n.addrs.Oracle, n.realitio)
		oracles = registry
		log.Info("Using built-in oracle", "address", n.addrs.Oracle)
	}

	n.guild, err = guild.New(n.addrs.Guild, gen.Config, gen.Admins, guild.Backends{
		Token:    n.omn,
		Treasury: n.eth,
		Oracles:  oracles,
		Dispatcher: &ledgerDispatcher{
			tokenAddr: n.addrs.Token,
			token:     n.omn,
			native:    n.eth,
		},
	}, n.db)
	if err != nil {
		return err
	}

	account := cfg.Keeper.Account
	if account == (common.Address{}) {
		account = gen.Deployer
	}
	n.keeper = keeper.New(n.guild, keeper.Config{
		Interval: cfg.Keeper.Interval,
		Account:  account,
		Clock:    n.clock.Now,
	})

	n.rpc = rpc.NewServer()
	apis := n.guild.APIs()
	if cfg.Dev {
		apis = append(apis, rpc.API{Namespace: "dev", Service: newDevAPI(n)})
		log.Warn("Serving the dev namespace, every account can be impersonated")
	}
	for _, api := range apis {
		if err := n.rpc.RegisterName(api.Namespace, api.Service); err != nil {
			return fmt.Errorf("failed to register %s API: %w", api.Namespace, err)
		}
	}
	return nil
}

// run serves RPC and drives the keeper until ctx is cancelled.
func (n *node) run(ctx context.Context) error {
	listener, err := net.Listen("tcp", n.cfg.HTTPAddr)
	if err != nil {
		return err
	}
	var handler http.Handler = n.rpc
	if len(n.cfg.HTTPCors) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: n.cfg.HTTPCors,
			AllowedMethods: []string{http.MethodPost, http.MethodGet},
			AllowedHeaders: []string{"*"},
			MaxAge:         600,
		}).Handler(handler)
	}
	server := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	log.Info("HTTP server started", "endpoint", "http://"+listener.Addr().String())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if !n.cfg.Keeper.Disabled {
		group.Go(func() error { return n.keeper.Run(ctx) })
	}
	group.Go(func() error { return n.logEvents(ctx) })
	return group.Wait()
}

func (n *node) logEvents(ctx context.Context) error {
	events := make(chan guild.Event, 64)
	sub := n.guild.SubscribeEvents(events)
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-events:
			log.Info("Guild event", "event", ev.Name, "proposal", ev.ProposalID, "account", ev.Account, "amount", ev.Amount)
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func (n *node) close() {
	if n.guild != nil {
		n.guild.Close()
	}
	if n.client != nil {
		n.client.Close()
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			log.Error("Failed to close database", "err", err)
		}
	}
	if n.lock != nil {
		n.lock.Unlock()
	}
}
