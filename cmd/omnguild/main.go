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

// omnguild runs a token-weighted governance guild and serves its RPC API.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/omen-guild/omnguild/internal/config"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the guild database",
	}
	httpAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "HTTP-RPC listen address",
	}
	httpCorsFlag = &cli.StringSliceFlag{
		Name:  "http.corsdomain",
		Usage: "Domains from which to accept cross origin requests (browser enforced)",
	}
	oracleRPCFlag = &cli.StringFlag{
		Name:  "oracle.rpc",
		Usage: "Ethereum endpoint of a deployed Realitio oracle (built-in oracle if empty)",
	}
	keeperIntervalFlag = &cli.DurationFlag{
		Name:  "keeper.interval",
		Usage: "Time between keeper sweeps",
	}
	noKeeperFlag = &cli.BoolFlag{
		Name:  "keeper.disable",
		Usage: "Do not end due proposals automatically",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file in addition to stderr",
	}
	devFlag = &cli.BoolFlag{
		Name:  "dev",
		Usage: "Serve the dev namespace that impersonates arbitrary senders",
	}

	nodeFlags = []cli.Flag{
		configFlag,
		dataDirFlag,
		httpAddrFlag,
		httpCorsFlag,
		oracleRPCFlag,
		keeperIntervalFlag,
		noKeeperFlag,
		verbosityFlag,
		logFileFlag,
		devFlag,
	}
)

func main() {
	// Respect container CPU quotas.
	maxprocs.Set()

	app := &cli.App{
		Name:   "omnguild",
		Usage:  "token-weighted governance guild node",
		Flags:  nodeFlags,
		Action: runNode,
		Commands: []*cli.Command{
			{
				Name:   "dumpconfig",
				Usage:  "Print the effective configuration as TOML",
				Flags:  nodeFlags,
				Action: dumpConfig,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers the command line flags over the file and environment.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(httpAddrFlag.Name) {
		cfg.HTTPAddr = ctx.String(httpAddrFlag.Name)
	}
	if ctx.IsSet(httpCorsFlag.Name) {
		cfg.HTTPCors = ctx.StringSlice(httpCorsFlag.Name)
	}
	if ctx.IsSet(oracleRPCFlag.Name) {
		cfg.OracleRPC = ctx.String(oracleRPCFlag.Name)
	}
	if ctx.IsSet(keeperIntervalFlag.Name) {
		cfg.Keeper.Interval = ctx.Duration(keeperIntervalFlag.Name)
	}
	if ctx.IsSet(noKeeperFlag.Name) {
		cfg.Keeper.Disabled = ctx.Bool(noKeeperFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.LogFile = ctx.String(logFileFlag.Name)
	}
	if ctx.IsSet(devFlag.Name) {
		cfg.Dev = ctx.Bool(devFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	var (
		output   io.Writer = os.Stderr
		useColor           = isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	)
	if useColor {
		output = colorable.NewColorableStderr()
	}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 10,
			Compress:   true,
		}
		output, useColor = io.MultiWriter(output, rotator), false
	}
	handler := log.NewTerminalHandlerWithLevel(output, log.FromLegacyLevel(cfg.Verbosity), useColor)
	log.SetDefault(log.NewLogger(handler))
}

func runNode(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := newNode(runCtx, cfg)
	if err != nil {
		return err
	}
	defer n.close()

	log.Info("Starting guild node", "guild", n.addrs.Guild, "vault", n.addrs.Vault, "token", n.addrs.Token, "oracle", n.addrs.Oracle)
	return n.run(runCtx)
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return cfg.Dump(os.Stdout)
}
