// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the top-level controller for one chat session against
// the kernel.
//
// All session state lives in a single State value. Every change is an Event
// folded in by Reduce, a pure function, so each transition can be tested
// without a backend or a terminal. The Controller performs the network calls,
// turns their outcomes into events, and publishes the resulting State to
// subscribers.
//
// # Key Types
//
//   - State: conversations, active conversation, messages, settings, draft
//     usage, telemetry, baseline job, activity feed and toasts
//   - Event: one variant per transition (see events.go)
//   - Controller: Init, SendMessage, SelectConversation, NewChat,
//     DeleteConversation, EstimateDraft, SaveSettings, StartBaseline,
//     DisposeBaseline, ExportAll, DeleteAllData
//
// # Concurrency
//
// At most one SendMessage is in flight per Controller; a second call while
// one is outstanding returns ErrSendInFlight without touching the network.
// Controller methods are safe to call from multiple goroutines.
package session
