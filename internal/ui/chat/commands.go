// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ifinspire/aigent/internal/config"
	"github.com/ifinspire/aigent/internal/export"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/session"
)

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// waitForState delivers the next published state.
func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return StateMsg{Closed: true}
		}
		return StateMsg{State: st}
	}
}

// waitForConfig delivers the next reloaded config.
func waitForConfig(ch <-chan *config.Config) tea.Cmd {
	return func() tea.Msg {
		return ConfigReloadedMsg{Config: <-ch}
	}
}

// toastTick schedules the next toast sweep.
func toastTick() tea.Cmd {
	return tea.Tick(toastTickInterval, func(t time.Time) tea.Msg {
		return ToastTickMsg(t)
	})
}

// watchConfigCmd runs config.Watch until the model closes. Reloads are
// handed to waitForConfig; a reload that arrives while one is pending
// replaces it.
func (m Model) watchConfigCmd() tea.Cmd {
	ctx, path, out, logger := m.ctx, m.cfgPath, m.reloaded, m.log
	return func() tea.Msg {
		err := config.Watch(ctx, config.WatchOptions{
			Path:   path,
			Logger: logger,
			OnReload: func(cfg *config.Config) {
				select {
				case out <- cfg:
				default:
					select {
					case <-out:
					default:
					}
					out <- cfg
				}
			},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watch stopped", "path", path, "error", err)
		}
		return nil
	}
}

// =============================================================================
// CONTROLLER CALLS
// =============================================================================

// run calls fn off the UI goroutine and reports the result as op.
func (m Model) run(op Op, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return OpDoneMsg{Op: op, Err: fn(ctx)}
	}
}

func (m Model) initCmd() tea.Cmd {
	return m.run(OpInit, m.sess.Init)
}

func (m Model) refreshCmd() tea.Cmd {
	sess := m.sess
	return m.run(OpRefresh, func(ctx context.Context) error {
		if _, err := sess.RefreshConversations(ctx); err != nil {
			return err
		}
		sess.RefreshDashboard(ctx)
		return nil
	})
}

func (m Model) warmupCmd() tea.Cmd {
	return m.run(OpWarmup, m.sess.Warmup)
}

func (m Model) selectCmd(id string) tea.Cmd {
	sess := m.sess
	return m.run(OpSelect, func(ctx context.Context) error {
		return sess.SelectConversation(ctx, id)
	})
}

func (m Model) deleteCmd(id string) tea.Cmd {
	sess := m.sess
	return m.run(OpDelete, func(ctx context.Context) error {
		return sess.DeleteConversation(ctx, id)
	})
}

func (m Model) baselineCmd() tea.Cmd {
	sess, enforce := m.sess, m.cfg.Baseline.EnforceMaxResponseTokens
	return m.run(OpBaseline, func(ctx context.Context) error {
		return sess.StartBaseline(ctx, enforce)
	})
}

func (m Model) sendCmd(text string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		return SendDoneMsg{Text: text, Err: sess.SendMessage(ctx, text)}
	}
}

func (m Model) saveSettingsCmd(in model.SettingsInput) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		saved, err := sess.SaveSettings(ctx, in)
		return SettingsSavedMsg{Settings: saved, Err: err}
	}
}

// exportCmd writes the kernel export envelope (json, yaml) or the active
// conversation transcript (md). An empty path picks a timestamped file in
// the current directory.
func (m Model) exportCmd(format, path string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	st := m.state
	opts := export.DefaultOptions()
	opts.IncludeReasoning = m.renderer.Options().ShowReasoning
	return func() tea.Msg {
		if format == "md" || format == "markdown" {
			conv, ok := st.ActiveConversation()
			if !ok {
				return ExportDoneMsg{Err: errors.New("no saved conversation to export")}
			}
			md := export.NewMarkdownExporter(opts)
			data, err := md.Export(conv, st.Messages)
			if err != nil {
				return ExportDoneMsg{Err: err}
			}
			if path == "" {
				path = filepath.Join(opts.OutputDir, export.DefaultFilename(conv.DisplayTitle(), md.FileExtension(), time.Now()))
			}
			written, err := export.WriteFile(data, path, nil, opts)
			return ExportDoneMsg{Path: written, Err: err}
		}

		exp, err := export.ForFormat(format)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		env, err := sess.ExportAll(ctx)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		data, err := exp.Export(env)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		written, err := export.WriteFile(data, path, exp, opts)
		return ExportDoneMsg{Path: written, Err: err}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) tea.Cmd

// commandHandlers maps command names to their handlers.
var commandHandlers = map[string]CommandHandler{
	"help":      handleHelpCommand,
	"?":         handleHelpCommand,
	"new":       handleNewCommand,
	"n":         handleNewCommand,
	"delete":    handleDeleteCommand,
	"settings":  handleSettingsCommand,
	"baseline":  handleBaselineCommand,
	"stats":     handleStatsCommand,
	"telemetry": handleStatsCommand,
	"reasoning": handleReasoningCommand,
	"markdown":  handleMarkdownCommand,
	"export":    handleExportCommand,
	"refresh":   handleRefreshCommand,
	"warmup":    handleWarmupCommand,
	"quit":      handleQuitCommand,
	"q":         handleQuitCommand,
}

// CommandNames returns the slash command names, sorted.
func CommandNames() []string {
	return slices.Sorted(maps.Keys(commandHandlers))
}

// commandHelp is shown in the help panel.
var commandHelp = [][2]string{
	{"/new", "start a new chat"},
	{"/delete", "delete the active conversation"},
	{"/settings", "edit context settings"},
	{"/baseline [start|stop]", "baseline benchmark panel"},
	{"/stats", "telemetry and activity"},
	{"/reasoning", "toggle reasoning display"},
	{"/markdown", "toggle markdown rendering"},
	{"/export [json|yaml|md] [path]", "export data or this transcript"},
	{"/refresh", "reload conversations and dashboard"},
	{"/warmup", "load the model"},
	{"/quit", "exit"},
}

// isCommand reports whether text is a slash command rather than a message.
func isCommand(text string) bool {
	return strings.HasPrefix(text, "/") && !strings.HasPrefix(text, "//")
}

// handleCommand runs a slash command.
func (m *Model) handleCommand(text string) tea.Cmd {
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) == 0 {
		return handleHelpCommand(m, nil)
	}
	name := strings.ToLower(fields[0])
	handler, ok := commandHandlers[name]
	if !ok {
		m.sess.Notify(session.ToastWarn, fmt.Sprintf("Unknown command /%s. Try /help", name))
		return nil
	}
	return handler(m, fields[1:])
}

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	m.openPanel(PanelHelp)
	return nil
}

func handleNewCommand(m *Model, _ []string) tea.Cmd {
	m.sess.NewChat()
	return nil
}

func handleDeleteCommand(m *Model, _ []string) tea.Cmd {
	if m.state.ActiveID == "" {
		m.sess.Notify(session.ToastInfo, "Nothing to delete; this chat has not been saved yet")
		return nil
	}
	m.confirmDelete = m.state.ActiveID
	return nil
}

func handleSettingsCommand(m *Model, _ []string) tea.Cmd {
	m.openPanel(PanelSettings)
	return nil
}

func handleBaselineCommand(m *Model, args []string) tea.Cmd {
	m.openPanel(PanelBaseline)
	if len(args) == 0 {
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "start", "run":
		return m.baselineCmd()
	case "stop":
		m.sess.DisposeBaseline()
	default:
		m.sess.Notify(session.ToastWarn, "Usage: /baseline [start|stop]")
	}
	return nil
}

func handleStatsCommand(m *Model, _ []string) tea.Cmd {
	m.openPanel(PanelTelemetry)
	return nil
}

func handleReasoningCommand(m *Model, _ []string) tea.Cmd {
	m.toggleReasoning()
	return nil
}

func handleMarkdownCommand(m *Model, _ []string) tea.Cmd {
	opts := m.renderer.Options()
	opts.Markdown = !opts.Markdown
	m.renderer.SetOptions(opts)
	m.refreshViewport()
	return nil
}

func handleExportCommand(m *Model, args []string) tea.Cmd {
	format, path := "json", ""
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	if len(args) > 1 {
		path = args[1]
	}
	return m.exportCmd(format, path)
}

func handleRefreshCommand(m *Model, _ []string) tea.Cmd {
	return m.refreshCmd()
}

func handleWarmupCommand(m *Model, _ []string) tea.Cmd {
	return m.warmupCmd()
}

func handleQuitCommand(m *Model, _ []string) tea.Cmd {
	m.Close()
	return tea.Quit
}
