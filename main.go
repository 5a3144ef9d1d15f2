// aigent - A terminal client for the AIgentOS kernel.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ifinspire/aigent/internal/cli"
	"github.com/ifinspire/aigent/internal/config"
	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/ui/chat"
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
	cmd, args := cli.Parse()

	if cmd == cli.CmdTUI {
		if err := runTUI(args); err != nil {
			cli.HandleErrorAndExit(err, args.JSON)
		}
		return
	}

	if err := cli.Run(cmd, args); err != nil {
		cli.HandleErrorAndExit(err, args.JSON)
	}
}

// runTUI starts the full-screen interface. Logs go to the log file so they
// do not corrupt the alternate screen.
func runTUI(args cli.Args) error {
	rt, err := cli.NewRuntime(args, logging.ToFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctrl := rt.Controller()
	defer ctrl.Close()

	cfgPath := args.ConfigPath
	if cfgPath == "" {
		if p, err := config.ActivePath(); err == nil {
			cfgPath = p
		}
	}

	m := chat.New(ctrl, chat.Options{
		Config:     rt.Config,
		ConfigPath: cfgPath,
		Logger:     rt.Log,
	})
	defer m.Close()

	rt.Log.Info("starting tui", "kernel", rt.Config.Kernel.BaseURL, "config", cfgPath)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running aigent: %w", err)
	}
	return nil
}
