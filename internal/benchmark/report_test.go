// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"strings"
	"testing"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
)

func sampleRun() *kernel.BaselineRun {
	lo, hi := 800, 1400
	return &kernel.BaselineRun{
		Model:      "qwen3:8b",
		DurationMs: 65000,
		TotalCalls: 4,
		Categories: []kernel.BaselineCategoryResult{
			{
				ID:    "single",
				Label: "Single-turn",
				Cases: []kernel.BaselineCaseResult{
					{ID: "short", Label: "Short prompt", Calls: 3, PromptTokens: 30, CompletionTokens: 60, TotalTokens: 90,
						TotalLatencyMs: 3000, AvgLatencyMs: 1000, MinLatencyMs: &lo, MaxLatencyMs: &hi},
				},
			},
			{
				ID:    "multi",
				Label: "Multi-turn",
				Cases: []kernel.BaselineCaseResult{
					{ID: "long", Label: "Long conversation with a label too wide for the column", Calls: 1,
						PromptTokens: 500, CompletionTokens: 20, TotalTokens: 520, TotalLatencyMs: 2000, AvgLatencyMs: 2000},
				},
			},
		},
	}
}

func TestComputeTotals(t *testing.T) {
	tot := ComputeTotals(sampleRun())
	if tot.Cases != 2 || tot.Calls != 4 {
		t.Errorf("Cases/Calls = %d/%d, want 2/4", tot.Cases, tot.Calls)
	}
	if tot.TotalTokens != 610 {
		t.Errorf("TotalTokens = %d, want 610", tot.TotalTokens)
	}
	if got := tot.AvgLatencyMs(); got != 1250 {
		t.Errorf("AvgLatencyMs() = %v, want 1250", got)
	}
	if (Totals{}).AvgLatencyMs() != 0 {
		t.Error("empty totals should average to 0")
	}
}

func TestFormatReport(t *testing.T) {
	out := FormatReport(sampleRun())

	for _, want := range []string{
		"Model: qwen3:8b",
		"Duration: 1m 5s",
		"Single-turn",
		"Multi-turn",
		"Short prompt",
		"800ms",
		"1.4s",
		"N/A",
		"...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if FormatReport(nil) != "No baseline result." {
		t.Error("nil run should render placeholder")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "N/A"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
