// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the aihub command line.
//
// Without a command aihub starts the playground TUI. The other commands
// reuse the same conversation machine, generation settings and gateway
// client without Bubble Tea:
//
//   - ask: stream one completion to stdout
//   - chat: line-editing REPL with slash commands
//   - models: list gateway models with their providers
//   - config: show, locate or initialise the config file
//   - presets: list generation presets
//   - version, help
//
// # Usage
//
//	cmd, args, err := cli.Parse()
//	if err != nil {
//	    cli.Exit(cmd, args, err)
//	}
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.HandleAsk(ctx, args)
//	// ...
//	}
//
// models, presets, version and ask accept --json and answer with a
// JSONResponse envelope.
package cli
