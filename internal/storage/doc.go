// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage archives completed baseline runs locally.
//
// The kernel keeps only the latest benchmark job in memory, so every
// completed run is copied into a small SQLite database for later comparison.
// The database uses the pure Go modernc.org/sqlite driver.
//
// # Key Types
//
//   - Archive: the SQLite-backed run archive
//   - RunMeta: lightweight listing row with precomputed totals
//   - ArchivedRun: RunMeta plus the full run payload
//
// # Usage
//
//	archive, err := storage.OpenArchive(path)
//	defer archive.Close()
//	err = archive.Save(ctx, jobID, run)
//	metas, err := archive.List(ctx, 20)
//
// # Storage Location
//
// Runs are stored in ~/.aigent/baselines.db unless configured otherwise.
package storage
