// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ifinspire/aigent/internal/config"
	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and user input.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.refreshViewport()
		return m, nil

	case StateMsg:
		if msg.Closed {
			return m, nil
		}
		m.applyState(msg.State)
		return m, waitForState(m.states)

	case OpDoneMsg:
		return m.handleOpDone(msg)

	case SendDoneMsg:
		return m.handleSendDone(msg)

	case SettingsSavedMsg:
		m.settings.SetSaving(false)
		if msg.Err != nil {
			m.settings.SetError(msg.Err)
			return m, nil
		}
		if m.panel == PanelSettings {
			m.openPanel(PanelNone)
		}
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.log.Warn("export failed", "error", msg.Err)
			m.sess.Notify(session.ToastError, "Export failed: "+msg.Err.Error())
		} else {
			m.sess.Notify(session.ToastSuccess, "Exported to "+msg.Path)
		}
		return m, nil

	case ToastTickMsg:
		m.expireToasts(time.Time(msg))
		return m, toastTick()

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.applyConfig(msg.Config)
		}
		return m, waitForConfig(m.reloaded)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.pendingHere() {
			m.refreshViewport()
		}
		return m, cmd

	case tea.MouseMsg:
		if m.panel == PanelNone {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			m.follow = m.viewport.AtBottom()
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and anything else the textarea wants.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleOpDone logs failed controller calls. The controller has already
// raised a toast for anything the user needs to see.
func (m Model) handleOpDone(msg OpDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.Debug("operation failed", "op", msg.Op, "error", msg.Err)
	}
	return m, nil
}

// handleSendDone restores the draft when the send never left the client.
func (m Model) handleSendDone(msg SendDoneMsg) (tea.Model, tea.Cmd) {
	var overflow *ctxwin.OverflowError
	switch {
	case msg.Err == nil:
	case errors.As(msg.Err, &overflow):
		if m.input.Value() == "" {
			m.input.SetValue(msg.Text)
		}
	case errors.Is(msg.Err, session.ErrSendInFlight):
		if m.input.Value() == "" {
			m.input.SetValue(msg.Text)
		}
		m.sess.Notify(session.ToastInfo, "Wait for the current reply before sending again")
	default:
		m.log.Debug("send failed", "error", msg.Err)
	}
	return m, nil
}

// expireToasts dismisses toasts that have been shown long enough.
func (m *Model) expireToasts(now time.Time) {
	for _, t := range m.state.Toasts {
		if components.ToastExpired(t, now) {
			m.sess.DismissToast(t.ID)
		}
	}
}

// applyConfig applies live ui.* changes.
func (m *Model) applyConfig(cfg *config.Config) {
	themeChanged := cfg.UI.Theme != m.cfg.UI.Theme
	m.cfg = cfg
	if themeChanged {
		m.applyTheme(cfg.UI.Theme)
	} else {
		m.renderer.SetOptions(components.RenderOptions{
			Markdown:      cfg.UI.Markdown,
			ShowReasoning: cfg.UI.ShowReasoning,
		})
	}
	m.log.Info("config reloaded", "theme", cfg.UI.Theme, "markdown", cfg.UI.Markdown, "show_reasoning", cfg.UI.ShowReasoning)
	m.applyState(m.state)
}

// toggleReasoning shows or hides extracted reasoning.
func (m *Model) toggleReasoning() {
	opts := m.renderer.Options()
	opts.ShowReasoning = !opts.ShowReasoning
	m.renderer.SetOptions(opts)
	m.refreshViewport()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	if m.confirmDelete != "" {
		id := m.confirmDelete
		m.confirmDelete = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.deleteCmd(id)
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Help) {
		if m.panel == PanelHelp {
			m.openPanel(PanelNone)
		} else {
			m.openPanel(PanelHelp)
		}
		return m, nil
	}

	switch m.panel {
	case PanelSettings:
		return m.handleSettingsKey(msg)
	case PanelBaseline:
		return m.handleBaselineKey(msg)
	case PanelTelemetry, PanelHelp:
		if key.Matches(msg, m.keys.Close) {
			m.openPanel(PanelNone)
		} else if key.Matches(msg, m.keys.Refresh) {
			return m, m.refreshCmd()
		}
		return m, nil
	}

	// Global shortcuts.
	switch {
	case key.Matches(msg, m.keys.NewChat):
		m.sess.NewChat()
		m.setFocus(FocusInput)
		return m, nil
	case key.Matches(msg, m.keys.Settings):
		m.openPanel(PanelSettings)
		return m, nil
	case key.Matches(msg, m.keys.Baseline):
		m.openPanel(PanelBaseline)
		return m, nil
	case key.Matches(msg, m.keys.Telemetry):
		m.openPanel(PanelTelemetry)
		return m, nil
	case key.Matches(msg, m.keys.Reasoning):
		m.toggleReasoning()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		m.follow = m.viewport.AtBottom()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Send):
		return m.submit()
	case key.Matches(msg, m.keys.Focus):
		if m.theme.GetLayoutMode().ShowSidebar() {
			m.setFocus(FocusSidebar)
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.updateDraft(after)
	}
	return m, cmd
}

// updateDraft re-estimates usage for the draft. Slash commands are not
// messages and count as empty.
func (m *Model) updateDraft(draft string) {
	if isCommand(strings.TrimSpace(draft)) {
		draft = ""
	}
	m.state.Usage = m.sess.EstimateDraft(draft)
	m.contextBar.SetUsage(m.state.Usage, m.state.Projection, m.state.ValidationError)
}

// submit sends the draft or runs a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if isCommand(text) {
		m.input.Reset()
		m.updateDraft("")
		cmd := m.handleCommand(text)
		return m, cmd
	}
	if !m.state.CanSend() {
		if m.state.Processing {
			m.sess.Notify(session.ToastInfo, "Wait for the current reply before sending again")
		}
		return m, nil
	}

	m.input.Reset()
	m.follow = true
	return m, m.sendCmd(text)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Focus):
		m.setFocus(FocusInput)
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()
	case key.Matches(msg, m.keys.Select):
		sel, ok := m.sidebar.Selected()
		if !ok {
			return m, nil
		}
		m.setFocus(FocusInput)
		if sel.ID == m.state.ActiveID && !m.state.Loading {
			return m, nil
		}
		return m, m.selectCmd(sel.ID)
	case key.Matches(msg, m.keys.Delete):
		if sel, ok := m.sidebar.Selected(); ok {
			m.confirmDelete = sel.ID
		}
	}
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.openPanel(PanelNone)
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		m.settings.NextField()
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.settings.PrevField()
		return m, nil
	case key.Matches(msg, m.keys.Send):
		if _, ok := m.settings.Validate(); !ok {
			return m, nil
		}
		m.settings.SetSaving(true)
		return m, m.saveSettingsCmd(m.settings.Input())
	}
	return m, m.settings.Update(msg)
}

func (m Model) handleBaselineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.openPanel(PanelNone)
	case key.Matches(msg, m.keys.StartBaseline):
		if !m.state.Baseline.Phase.Active() {
			return m, m.baselineCmd()
		}
	case key.Matches(msg, m.keys.StopBaseline):
		if m.state.Baseline.Phase.Active() {
			m.sess.DisposeBaseline()
		}
	}
	return m, nil
}
