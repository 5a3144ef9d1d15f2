// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	// Input
	Send    key.Binding
	Newline key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Focus    key.Binding
	Select   key.Binding
	Delete   key.Binding

	// Panels
	NewChat   key.Binding
	Settings  key.Binding
	Baseline  key.Binding
	Telemetry key.Binding
	Reasoning key.Binding
	Refresh   key.Binding
	Close     key.Binding
	NextField key.Binding
	PrevField key.Binding

	// Baseline panel
	StartBaseline key.Binding
	StopBaseline  key.Binding

	// Confirmation
	Confirm key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("Alt+Enter", "newline"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "conversations"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "open"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Settings: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "settings"),
		),
		Baseline: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "baseline"),
		),
		Telemetry: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "telemetry"),
		),
		Reasoning: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reasoning"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("f5"),
			key.WithHelp("F5", "refresh"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("Tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("S-Tab", "previous field"),
		),
		StartBaseline: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start run"),
		),
		StopBaseline: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop following"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Focus, k.Settings, k.Baseline, k.Telemetry, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the help panel, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Input
		{k.Send, k.Newline, k.PageUp, k.PageDown},
		// Conversations
		{k.Focus, k.Up, k.Down, k.Select, k.Delete, k.NewChat},
		// Panels
		{k.Settings, k.Baseline, k.Telemetry, k.Reasoning, k.Refresh, k.Close},
		// Meta
		{k.Help, k.Quit},
	}
}

// SidebarHelp returns the bindings that apply while the sidebar has focus.
func (k KeyMap) SidebarHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Delete, k.NewChat, k.Close}
}
