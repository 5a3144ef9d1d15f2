// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/model"
)

// HistoryLimit is the number of exchanges kept in the rolling history.
const HistoryLimit = 5

// SummaryFetcher loads cumulative aggregates from the kernel.
type SummaryFetcher interface {
	PerformanceSummary(ctx context.Context) (*kernel.PerformanceSummary, error)
}

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

// SessionTotals accumulates what this client observed since it started.
type SessionTotals struct {
	Exchanges        int
	Degraded         int
	PromptTokens     int
	CompletionTokens int
	TotalLatency     time.Duration
}

// AvgLatency returns the mean latency of exchanges with telemetry.
func (s SessionTotals) AvgLatency() time.Duration {
	n := s.Exchanges - s.Degraded
	if n <= 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(n)
}

// Snapshot is a consistent copy of the aggregator state.
type Snapshot struct {
	// History holds at most HistoryLimit exchanges, newest first.
	History []model.PerfExchange

	// Current is the telemetry of the newest exchange, nil before any.
	Current model.Telemetry

	// Summary is the last summary fetched from the kernel, nil before any.
	Summary *model.PerfSummary

	Session SessionTotals
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu             sync.RWMutex
	history        []model.PerfExchange
	current        model.Telemetry
	summary        *model.PerfSummary
	session        SessionTotals
	degradedWarned bool

	fetcher SummaryFetcher
	log     *slog.Logger
}

// NewAggregator creates an aggregator. fetcher may be nil, in which case
// RefreshSummary is a no-op.
func NewAggregator(fetcher SummaryFetcher) *Aggregator {
	return &Aggregator{
		history: make([]model.PerfExchange, 0, HistoryLimit),
		fetcher: fetcher,
		log:     slog.Default().With("component", "telemetry"),
	}
}

// Record prepends a completed exchange and makes its telemetry current.
func (a *Aggregator) Record(ex model.PerfExchange) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = prepend(a.history, ex)
	a.current = ex.Telemetry

	a.session.Exchanges++
	switch t := ex.Telemetry.(type) {
	case model.Metrics:
		a.session.TotalLatency += t.TotalLatency
		if t.PromptTokens != nil {
			a.session.PromptTokens += *t.PromptTokens
		}
		if t.CompletionTokens != nil {
			a.session.CompletionTokens += *t.CompletionTokens
		}
	default:
		a.session.Degraded++
	}
}

// Seed replaces the rolling history with exchanges loaded from the kernel,
// which arrive newest first. Session totals are not affected.
func (a *Aggregator) Seed(exchanges []model.PerfExchange) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(exchanges)
	if n > HistoryLimit {
		n = HistoryLimit
	}
	a.history = append(make([]model.PerfExchange, 0, HistoryLimit), exchanges[:n]...)
	if n > 0 {
		a.current = exchanges[0].Telemetry
	} else {
		a.current = nil
	}
}

// SetSummary stores a summary fetched elsewhere.
func (a *Aggregator) SetSummary(s model.PerfSummary) {
	a.mu.Lock()
	a.summary = &s
	a.mu.Unlock()
}

// RefreshSummary fetches cumulative aggregates from the kernel. On error the
// previous summary is kept.
func (a *Aggregator) RefreshSummary(ctx context.Context) error {
	if a.fetcher == nil {
		return nil
	}
	resp, err := a.fetcher.PerformanceSummary(ctx)
	if err != nil {
		a.log.Warn("performance summary refresh failed", "error", err)
		return fmt.Errorf("refresh performance summary: %w", err)
	}
	if resp == nil {
		return nil
	}
	a.SetSummary(model.SummaryFromWire(*resp))
	return nil
}

// NoteDegraded records a response without telemetry. It returns true only the
// first time in the aggregator's lifetime, so the user is warned once.
func (a *Aggregator) NoteDegraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.degradedWarned {
		return false
	}
	a.degradedWarned = true
	return true
}

// Reset clears everything except the degraded-warning latch.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = a.history[:0]
	a.current = nil
	a.summary = nil
	a.session = SessionTotals{}
}

// Snapshot returns a copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		History: append([]model.PerfExchange(nil), a.history...),
		Current: a.current,
		Session: a.session,
	}
	if a.summary != nil {
		s := *a.summary
		snap.Summary = &s
	}
	return snap
}

// prepend adds ex at the front and truncates to HistoryLimit. A fresh slice
// is returned so earlier snapshots never observe the change.
func prepend(history []model.PerfExchange, ex model.PerfExchange) []model.PerfExchange {
	n := len(history)
	if n >= HistoryLimit {
		n = HistoryLimit - 1
	}
	out := make([]model.PerfExchange, 0, HistoryLimit)
	out = append(out, ex)
	return append(out, history[:n]...)
}
