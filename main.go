// aihub - A terminal playground for chat models behind an LLM gateway.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/aihub-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse()
	if err != nil {
		cli.Exit(cmd, args, err)
	}

	// SIGINT is left to the commands: the TUI reads Ctrl+C as a key and
	// the REPL uses it to stop a reply.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	switch cmd {
	case cli.CmdTUI:
		err = cli.HandleTUI(ctx, args)
	case cli.CmdAsk:
		err = runInterruptible(ctx, func(ctx context.Context) error {
			return cli.HandleAsk(ctx, args)
		})
	case cli.CmdChat:
		err = cli.HandleChat(ctx, args)
	case cli.CmdModels:
		err = runInterruptible(ctx, func(ctx context.Context) error {
			return cli.HandleModels(ctx, args)
		})
	case cli.CmdConfig:
		err = cli.HandleConfig(os.Stdout, args)
	case cli.CmdPresets:
		err = cli.HandlePresets(os.Stdout, args)
	case cli.CmdVersion:
		err = cli.HandleVersion(os.Stdout, args)
	default:
		err = cli.HandleHelp(os.Stdout)
	}

	stop()
	cli.Exit(cmd, args, err)
}

// runInterruptible runs fn with a context that Ctrl+C cancels.
func runInterruptible(ctx context.Context, fn func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return fn(ctx)
}
