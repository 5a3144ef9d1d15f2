// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifinspire/aigent/internal/kernel"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "nested", "baselines.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func run(model string, completed time.Time) *kernel.BaselineRun {
	return &kernel.BaselineRun{
		Model:       model,
		StartedAt:   kernel.Timestamp{Time: completed.Add(-time.Minute)},
		CompletedAt: kernel.Timestamp{Time: completed},
		DurationMs:  60000,
		TotalCalls:  2,
		Categories: []kernel.BaselineCategoryResult{{
			ID: "single", Label: "Single-turn",
			Cases: []kernel.BaselineCaseResult{
				{ID: "a", Label: "A", Calls: 2, TotalTokens: 40, TotalLatencyMs: 3000},
			},
		}},
	}
}

func TestArchive_SaveGet(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := a.Save(ctx, "job-1", run("qwen3:8b", now))
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	got, err := a.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "qwen3:8b", got.Model)
	assert.Equal(t, 40, got.TotalTokens)
	assert.Equal(t, 1500.0, got.AvgLatencyMs)
	assert.Equal(t, time.Minute, got.Duration)
	assert.True(t, now.Equal(got.CompletedAt))
	require.NotNil(t, got.Run)
	require.Len(t, got.Run.Categories, 1)
	assert.Equal(t, "Single-turn", got.Run.Categories[0].Label)
}

func TestArchive_SaveGeneratesID(t *testing.T) {
	a := openTestArchive(t)
	id, err := a.Save(context.Background(), "", run("m", time.Now()))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = a.Save(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestArchive_ListOrderAndLimit(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := a.Save(ctx, "old", run("m", base))
	require.NoError(t, err)
	_, err = a.Save(ctx, "newer", run("m", base.Add(500*time.Millisecond)))
	require.NoError(t, err)
	_, err = a.Save(ctx, "newest", run("m", base.Add(time.Hour)))
	require.NoError(t, err)

	all, err := a.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"newest", "newer", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	top, err := a.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "newest", top[0].ID)
}

func TestArchive_SaveReplaces(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	_, err := a.Save(ctx, "job", run("first", time.Now()))
	require.NoError(t, err)
	_, err = a.Save(ctx, "job", run("second", time.Now()))
	require.NoError(t, err)

	all, err := a.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Model)
}

func TestArchive_DeleteAndClear(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := a.Save(ctx, id, run("m", time.Now()))
		require.NoError(t, err)
	}

	require.NoError(t, a.Delete(ctx, "a"))
	err := a.Delete(ctx, "a")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = a.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	n, err := a.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := a.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestArchive_Memory(t *testing.T) {
	a, err := OpenArchive(":memory:")
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Save(context.Background(), "m", run("m", time.Now()))
	require.NoError(t, err)
	all, err := a.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFormatRunList(t *testing.T) {
	assert.Equal(t, "No archived baseline runs.", FormatRunList(nil))

	out := FormatRunList([]RunMeta{{ID: "0123456789abcdef", Model: "qwen3:8b", TotalCalls: 34, TotalTokens: 9000, AvgLatencyMs: 1300}})
	assert.Contains(t, out, "qwen3:8b")
	assert.Contains(t, out, "1.3s")
	assert.False(t, strings.Contains(out, "0123456789abcdef"), "long ids are truncated")
}
