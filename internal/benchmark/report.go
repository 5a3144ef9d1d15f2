// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"fmt"
	"strings"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// FormatMillis formats a millisecond count for display.
func FormatMillis(ms float64) string {
	return FormatDuration(time.Duration(ms * float64(time.Millisecond)))
}

func formatOptionalMillis(ms *int) string {
	if ms == nil {
		return "N/A"
	}
	return FormatDuration(time.Duration(*ms) * time.Millisecond)
}

// =============================================================================
// REPORT
// =============================================================================

const (
	caseColWidth = 34
	numColWidth  = 9
)

// Totals sums a run's cases.
type Totals struct {
	Cases            int
	Calls            int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	TotalLatencyMs   int
}

// AvgLatencyMs returns the mean latency per call.
func (t Totals) AvgLatencyMs() float64 {
	if t.Calls == 0 {
		return 0
	}
	return float64(t.TotalLatencyMs) / float64(t.Calls)
}

// ComputeTotals aggregates every case of run.
func ComputeTotals(run *kernel.BaselineRun) Totals {
	var t Totals
	if run == nil {
		return t
	}
	for _, cat := range run.Categories {
		for _, c := range cat.Cases {
			t.Cases++
			t.Calls += c.Calls
			t.PromptTokens += c.PromptTokens
			t.CompletionTokens += c.CompletionTokens
			t.TotalTokens += c.TotalTokens
			t.TotalLatencyMs += c.TotalLatencyMs
		}
	}
	return t
}

// Summary returns a short text summary of a run.
func Summary(run *kernel.BaselineRun) string {
	if run == nil {
		return "No baseline result."
	}
	t := ComputeTotals(run)
	return fmt.Sprintf(
		"Model: %s\n"+
			"Duration: %s\n"+
			"Calls: %d across %d cases\n"+
			"Tokens: %d prompt / %d completion / %d total\n"+
			"Avg latency: %s",
		run.Model,
		FormatDuration(time.Duration(run.DurationMs)*time.Millisecond),
		run.TotalCalls,
		t.Cases,
		t.PromptTokens,
		t.CompletionTokens,
		t.TotalTokens,
		FormatMillis(t.AvgLatencyMs()),
	)
}

// FormatReport renders a run as a per-category table of cases.
func FormatReport(run *kernel.BaselineRun) string {
	if run == nil {
		return "No baseline result."
	}

	var b strings.Builder
	b.WriteString(Summary(run))
	b.WriteString("\n")

	header := util.PadRight("Case", caseColWidth) +
		padLeft("Calls", numColWidth) +
		padLeft("Prompt", numColWidth) +
		padLeft("Compl.", numColWidth) +
		padLeft("Avg", numColWidth) +
		padLeft("Min", numColWidth) +
		padLeft("Max", numColWidth)

	for _, cat := range run.Categories {
		b.WriteString("\n")
		b.WriteString(cat.Label)
		b.WriteString("\n")
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", util.StringWidth(header)))
		b.WriteString("\n")
		for _, c := range cat.Cases {
			b.WriteString(util.PadRight(util.TruncateWidth(c.Label, caseColWidth-1), caseColWidth))
			b.WriteString(padLeft(fmt.Sprint(c.Calls), numColWidth))
			b.WriteString(padLeft(fmt.Sprint(c.PromptTokens), numColWidth))
			b.WriteString(padLeft(fmt.Sprint(c.CompletionTokens), numColWidth))
			b.WriteString(padLeft(FormatMillis(c.AvgLatencyMs), numColWidth))
			b.WriteString(padLeft(formatOptionalMillis(c.MinLatencyMs), numColWidth))
			b.WriteString(padLeft(formatOptionalMillis(c.MaxLatencyMs), numColWidth))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func padLeft(s string, width int) string {
	w := util.StringWidth(s)
	if w >= width {
		return " " + s
	}
	return strings.Repeat(" ", width-w) + s
}
