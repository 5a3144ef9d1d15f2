// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the visual UI components for the aigent TUI.

Components are plain render helpers over session state. They hold layout
settings (width, height, focus) and never talk to the kernel themselves;
the chat model feeds them the latest session.State on every update.

# Display Components

Header (header.go) - Kernel reachability, model name and warm indicator.
ContextBar (context_bar.go) - Estimated prompt size against the context
window, the compaction trigger and the projected compaction.
StatusBar (statusbar.go) - Telemetry of the newest exchange and key hints.
ConversationList (sidebar.go) - Navigable conversation sidebar.
MessageRenderer (message.go) - Chat transcript with markdown via Glamour.

# Panels

TelemetryPanel (telemetry_panel.go) - Rolling history, session totals and
the kernel's token windows.
RenderActivity (activity.go) - Capability feed of in-flight operations.
BenchmarkView (benchmark_view.go) - Baseline job progress and report.
SettingsForm (settings_form.go) - Editable context settings.

# Feedback

RenderToastStack (toast.go) - Non-blocking notifications with
auto-dismiss durations per level.
*/
package components
