// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package context predicts context window usage for the next chat turn.
//
// Everything here is a pure function of (history, draft, settings) and runs
// synchronously on every keystroke. Token counts use the same coarse
// estimator as the kernel: one token per four characters, rounded up, at
// least one.
//
// # Key Types
//
//   - Usage: projected size of the next prompt against the context window
//   - Projection: the kernel's compaction behavior replayed client-side
//   - OverflowError: a send blocked because it cannot fit
//
// # Approximation
//
// EstimateUsage is deliberately approximate. When compaction instructions are
// configured and the trigger is reached, it substitutes the instructions in
// front of the raw history, which is what the kernel sends before it starts
// dropping messages. ProjectCompaction additionally replays the drop loop and
// is used where the exact outcome matters, such as the status view.
//
// # Usage
//
//	usage := ctxwin.EstimateUsage(ctxwin.HistoryTexts(msgs), draft, settings)
//	if err := ctxwin.CheckSend(usage, settings); err != nil {
//	    // blocked: show err inline
//	}
//
// Importers alias this package (ctxwin) to avoid clashing with the standard
// library context package.
package context
