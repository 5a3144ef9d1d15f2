// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ifinspire/aigent/internal/benchmark"
	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS baseline_runs (
	id             TEXT PRIMARY KEY,
	model          TEXT NOT NULL,
	started_at     TEXT NOT NULL,
	completed_at   TEXT NOT NULL,
	duration_ms    INTEGER NOT NULL,
	total_calls    INTEGER NOT NULL,
	total_tokens   INTEGER NOT NULL,
	avg_latency_ms REAL NOT NULL,
	payload        TEXT NOT NULL,
	archived_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_baseline_runs_completed ON baseline_runs(completed_at DESC);
`

// Fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when an archived run doesn't exist.
var ErrRunNotFound = errors.New("baseline run not found")

// =============================================================================
// TYPES
// =============================================================================

// RunMeta is a listing row for an archived run.
type RunMeta struct {
	ID           string
	Model        string
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	TotalCalls   int
	TotalTokens  int
	AvgLatencyMs float64
	ArchivedAt   time.Time
}

// ArchivedRun is a stored run with its full payload.
type ArchivedRun struct {
	RunMeta
	Run *kernel.BaselineRun
}

// Archive stores completed baseline runs in SQLite.
type Archive struct {
	db *sql.DB
}

// DefaultArchivePath returns ~/.aigent/baselines.db.
func DefaultArchivePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".aigent", "baselines.db"), nil
}

// OpenArchive opens or creates the archive at path. ":memory:" opens a
// private in-memory database.
func OpenArchive(path string) (*Archive, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Save archives run under id, replacing any earlier copy. An empty id gets a
// generated one. The stored id is returned.
func (a *Archive) Save(ctx context.Context, id string, run *kernel.BaselineRun) (string, error) {
	if run == nil {
		return "", errors.New("cannot archive an empty baseline run")
	}
	if id == "" {
		id = uuid.NewString()
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to encode run: %w", err)
	}
	totals := benchmark.ComputeTotals(run)

	_, err = a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO baseline_runs
			(id, model, started_at, completed_at, duration_ms, total_calls, total_tokens, avg_latency_ms, payload, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		run.Model,
		formatTime(run.StartedAt.Time),
		formatTime(run.CompletedAt.Time),
		run.DurationMs,
		run.TotalCalls,
		totals.TotalTokens,
		totals.AvgLatencyMs(),
		string(payload),
		formatTime(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to archive run: %w", err)
	}
	return id, nil
}

// List returns up to limit runs, most recently completed first. A limit of
// zero or less returns every run.
func (a *Archive) List(ctx context.Context, limit int) ([]RunMeta, error) {
	query := `SELECT id, model, started_at, completed_at, duration_ms, total_calls, total_tokens, avg_latency_ms, archived_at
		FROM baseline_runs ORDER BY completed_at DESC, archived_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var metas []RunMeta
	for rows.Next() {
		var (
			m                            RunMeta
			started, completed, archived string
			durationMs                   int64
		)
		if err := rows.Scan(&m.ID, &m.Model, &started, &completed, &durationMs,
			&m.TotalCalls, &m.TotalTokens, &m.AvgLatencyMs, &archived); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		m.StartedAt = parseTime(started)
		m.CompletedAt = parseTime(completed)
		m.ArchivedAt = parseTime(archived)
		m.Duration = time.Duration(durationMs) * time.Millisecond
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Get loads one run with its payload.
func (a *Archive) Get(ctx context.Context, id string) (*ArchivedRun, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, model, started_at, completed_at, duration_ms, total_calls, total_tokens, avg_latency_ms, archived_at, payload
		FROM baseline_runs WHERE id = ?`, id)

	var (
		out                                   ArchivedRun
		started, completed, archived, payload string
		durationMs                            int64
	)
	err := row.Scan(&out.ID, &out.Model, &started, &completed, &durationMs,
		&out.TotalCalls, &out.TotalTokens, &out.AvgLatencyMs, &archived, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	out.StartedAt = parseTime(started)
	out.CompletedAt = parseTime(completed)
	out.ArchivedAt = parseTime(archived)
	out.Duration = time.Duration(durationMs) * time.Millisecond

	var run kernel.BaselineRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	out.Run = &run
	return &out, nil
}

// Delete removes one run.
func (a *Archive) Delete(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM baseline_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Clear removes every run and returns how many were deleted.
func (a *Archive) Clear(ctx context.Context) (int64, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM baseline_runs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear archive: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatRunList renders runs as a table.
func FormatRunList(runs []RunMeta) string {
	if len(runs) == 0 {
		return "No archived baseline runs."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 10) + " " + util.PadRight("Completed", 17) + " " +
		util.PadRight("Model", 20) + " " + util.PadRight("Calls", 6) + " " +
		util.PadRight("Tokens", 8) + " Avg latency\n")
	sb.WriteString(strings.Repeat("-", 76) + "\n")

	for _, r := range runs {
		sb.WriteString(util.PadRight(util.TruncateRunes(r.ID, 10), 10) + " " +
			util.PadRight(r.CompletedAt.Local().Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(r.Model, 20) + " " +
			util.PadRight(fmt.Sprint(r.TotalCalls), 6) + " " +
			util.PadRight(fmt.Sprint(r.TotalTokens), 8) + " " +
			benchmark.FormatMillis(r.AvgLatencyMs) + "\n")
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
