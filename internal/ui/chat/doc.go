// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view for the aigent TUI.

The Model is a Bubble Tea model over a session controller. It never talks to
the kernel itself: every action is a controller call made from a tea.Cmd,
and every change comes back as a session.State from the controller's
subscription channel.

# Key Components

## Model (model.go)

Holds the latest session.State, the draft textarea, the message viewport and
the presentation components. Layout is recomputed on resize and whenever the
context bar changes height.

## Update Loop (update.go)

Routes keys by focus: the draft input, the conversation sidebar, or an open
panel (settings, baseline, telemetry, help). Slash commands typed into the
input are handled in commands.go.

## View Rendering (view.go)

Header, sidebar on wide terminals, messages or the open panel, context bar,
input, status bar, with toasts drawn over the bottom of the body.

# Keyboard Shortcuts

	Enter            Send message
	Alt+Enter        Insert newline
	Tab              Focus conversation list
	Ctrl+N           New chat
	Ctrl+S           Context settings
	Ctrl+B           Baseline benchmark
	Ctrl+T           Telemetry and activity
	Ctrl+R           Toggle reasoning
	F1               Help
	Ctrl+C           Quit
*/
package chat
