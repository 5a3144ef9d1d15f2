// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry folds per-exchange performance metrics into a bounded
// rolling history and tracks the kernel's cumulative summary.
//
// The client keeps only the last five exchanges. Day, week, month and
// all-time aggregates span more history than that, so they are always fetched
// from the kernel rather than computed locally.
//
// # Usage
//
//	agg := telemetry.NewAggregator(client)
//	agg.Record(exchange)
//	if err := agg.RefreshSummary(ctx); err != nil {
//	    // summary stays stale, not fatal
//	}
//	snap := agg.Snapshot()
package telemetry
