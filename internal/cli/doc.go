// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// aigent.
//
// Every command builds a Runtime (config, logger, kernel client) and drives
// a session.Controller, so the CLI and the TUI share one set of session
// rules: context usage checks before sending, single-flight chat turns,
// telemetry aggregation and baseline job monitoring.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - Runtime: Per-invocation config, logger and kernel client
//   - JSONResponse: Envelope for --json output
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if cmd == cli.CmdTUI {
//	    // start the TUI
//	}
//	if err := cli.Run(cmd, args); err != nil {
//	    cli.HandleErrorAndExit(err, args.JSON)
//	}
//
// # Commands Overview
//
//   - ask: Send one message, print the reply
//   - chat: Line-editing REPL
//   - status: Kernel health, settings and telemetry
//   - conversations: List, show and delete conversations
//   - settings: Show and change context window settings
//   - baseline: Run benchmark jobs, browse archived runs
//   - export: Download all kernel data as JSON or YAML
//   - delete-all-data: Wipe the kernel's data
//   - config: Local configuration
//
// All commands support --json.
package cli
