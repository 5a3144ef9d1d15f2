// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/model"
)

type fakeFetcher struct {
	calls   int
	summary *kernel.PerformanceSummary
	err     error
}

func (f *fakeFetcher) PerformanceSummary(context.Context) (*kernel.PerformanceSummary, error) {
	f.calls++
	return f.summary, f.err
}

func exchange(id string, latencyMs int) model.PerfExchange {
	prompt, completion := 10, 5
	return model.PerfExchange{
		ID: id,
		Telemetry: model.Metrics{
			TotalLatency:     time.Duration(latencyMs) * time.Millisecond,
			PromptTokens:     &prompt,
			CompletionTokens: &completion,
		},
	}
}

func TestRecord_BoundedNewestFirst(t *testing.T) {
	agg := NewAggregator(nil)
	for i := 1; i <= 7; i++ {
		agg.Record(exchange(fmt.Sprintf("e%d", i), 100*i))
	}

	snap := agg.Snapshot()
	require.Len(t, snap.History, HistoryLimit)
	ids := make([]string, 0, len(snap.History))
	for _, ex := range snap.History {
		ids = append(ids, ex.ID)
	}
	assert.Equal(t, []string{"e7", "e6", "e5", "e4", "e3"}, ids)

	cur, ok := snap.Current.(model.Metrics)
	require.True(t, ok)
	assert.Equal(t, 700*time.Millisecond, cur.TotalLatency)

	assert.Equal(t, 7, snap.Session.Exchanges)
	assert.Equal(t, 70, snap.Session.PromptTokens)
	assert.Equal(t, 35, snap.Session.CompletionTokens)
	assert.Equal(t, 400*time.Millisecond, snap.Session.AvgLatency())
}

func TestRecord_SnapshotIsolation(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Record(exchange("a", 1))
	before := agg.Snapshot()

	agg.Record(exchange("b", 1))
	assert.Len(t, before.History, 1)
	assert.Equal(t, "a", before.History[0].ID)
}

func TestRecord_Degraded(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Record(model.PerfExchange{ID: "d", Telemetry: model.TelemetryFromWire(nil)})

	snap := agg.Snapshot()
	assert.False(t, snap.Current.Available())
	assert.Equal(t, 1, snap.Session.Degraded)
	assert.Equal(t, time.Duration(0), snap.Session.AvgLatency())
}

func TestNoteDegraded_WarnsOnce(t *testing.T) {
	agg := NewAggregator(nil)
	assert.True(t, agg.NoteDegraded())
	assert.False(t, agg.NoteDegraded())

	agg.Reset()
	assert.False(t, agg.NoteDegraded(), "latch survives reset")
}

func TestSeed(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Record(exchange("old", 1))

	var seeded []model.PerfExchange
	for i := 0; i < 8; i++ {
		seeded = append(seeded, exchange(fmt.Sprintf("s%d", i), 1))
	}
	agg.Seed(seeded)

	snap := agg.Snapshot()
	require.Len(t, snap.History, HistoryLimit)
	assert.Equal(t, "s0", snap.History[0].ID)
	assert.Equal(t, 1, snap.Session.Exchanges)

	agg.Seed(nil)
	assert.Nil(t, agg.Snapshot().Current)
}

func TestRefreshSummary(t *testing.T) {
	f := &fakeFetcher{summary: &kernel.PerformanceSummary{
		ExchangeCount: 3,
		LatencyAvgMs:  1500.5,
		TokensDay:     kernel.TokenWindowStats{TotalTokens: 90},
	}}
	agg := NewAggregator(f)

	require.NoError(t, agg.RefreshSummary(context.Background()))
	snap := agg.Snapshot()
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 90, snap.Summary.Day.TotalTokens)
	assert.Equal(t, 1500*time.Millisecond+500*time.Microsecond, snap.Summary.LatencyAvg)

	f.err = errors.New("down")
	require.Error(t, agg.RefreshSummary(context.Background()))
	assert.NotNil(t, agg.Snapshot().Summary, "stale summary kept on error")
	assert.Equal(t, 2, f.calls)
}

func TestAggregator_Concurrent(t *testing.T) {
	agg := NewAggregator(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			agg.Record(exchange(fmt.Sprint(i), 1))
		}(i)
		go func() {
			defer wg.Done()
			_ = agg.Snapshot()
		}()
	}
	wg.Wait()
	assert.Len(t, agg.Snapshot().History, HistoryLimit)
}
