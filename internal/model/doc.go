// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the client-side data structures of a chat session.
//
// These are the types the session controller keeps in its state: they are
// converted from kernel wire types once, at the boundary, and are treated as
// immutable afterwards.
//
// # Key Types
//
//   - Message: one chat message with visible text and optional reasoning
//   - ConversationSummary: a row of the conversation list
//   - ContextSettings: the context window settings singleton
//   - Telemetry: Metrics or DegradedMetrics for one exchange
//   - PerfExchange: a rolling-history entry wrapping one exchange's telemetry
//   - CapabilityUpdate: an ephemeral activity-feed entry
//
// # Usage
//
//	msg := model.NewUserMessage("Hello!")
//	reply := model.MessageFromWire(resp.AssistantMessage)
//	tel := model.TelemetryFromWire(resp.Performance)
//	if !tel.Available() {
//	    // degraded response, warn once
//	}
package model
