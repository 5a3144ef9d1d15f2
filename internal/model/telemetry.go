// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
)

// =============================================================================
// TELEMETRY SUM TYPE
// =============================================================================

// Telemetry is the performance record of one exchange: either Metrics, when
// the kernel reported performance, or DegradedMetrics, when it did not.
type Telemetry interface {
	// Available reports whether real measurements are present.
	Available() bool
	isTelemetry()
}

// PromptBreakdown splits the prompt by role.
type PromptBreakdown struct {
	SystemChars        int
	UserChars          int
	AssistantChars     int
	SystemTokensEst    *int
	UserTokensEst      *int
	AssistantTokensEst *int
}

// Compaction records what the kernel did to fit the prompt.
type Compaction struct {
	Applied                bool
	TriggerTokens          int
	EstimatedTokensBefore  int
	EstimatedTokensAfter   int
	DroppedHistoryMessages int
}

// Metrics are the measurements the kernel reported for an exchange. Token
// counts are nil when the model did not report them.
type Metrics struct {
	TotalLatency     time.Duration
	LLMLatency       time.Duration
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
	Breakdown        PromptBreakdown
	Compaction       *Compaction
}

func (Metrics) Available() bool { return true }
func (Metrics) isTelemetry()    {}

// DegradedMetrics stands in for a response that carried no telemetry.
type DegradedMetrics struct {
	Reason string
}

func (DegradedMetrics) Available() bool { return false }
func (DegradedMetrics) isTelemetry()    {}

// TelemetryFromWire converts optional kernel metrics into the sum type.
func TelemetryFromWire(p *kernel.PerformanceMetrics) Telemetry {
	if p == nil {
		return DegradedMetrics{Reason: "kernel response carried no performance data"}
	}
	m := Metrics{
		TotalLatency:     time.Duration(p.TotalLatencyMs) * time.Millisecond,
		LLMLatency:       time.Duration(p.LLMLatencyMs) * time.Millisecond,
		PromptTokens:     p.PromptTokens,
		CompletionTokens: p.CompletionTokens,
		TotalTokens:      p.TotalTokens,
		Breakdown: PromptBreakdown{
			SystemChars:        p.PromptBreakdown.SystemChars,
			UserChars:          p.PromptBreakdown.UserChars,
			AssistantChars:     p.PromptBreakdown.AssistantChars,
			SystemTokensEst:    p.PromptBreakdown.SystemTokensEst,
			UserTokensEst:      p.PromptBreakdown.UserTokensEst,
			AssistantTokensEst: p.PromptBreakdown.AssistantTokensEst,
		},
	}
	if cc := p.ContextCompaction; cc != nil {
		m.Compaction = &Compaction{
			Applied:                cc.Applied,
			TriggerTokens:          cc.TriggerTokens,
			EstimatedTokensBefore:  cc.EstimatedPromptTokensBefore,
			EstimatedTokensAfter:   cc.EstimatedPromptTokensAfter,
			DroppedHistoryMessages: cc.DroppedHistoryMessages,
		}
	}
	return m
}

// FormatTokens renders an optional token count.
func FormatTokens(n *int) string {
	if n == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *n)
}

// FormatStats returns a one-line description of t.
// Format: "1.2s total | 1.1s model | 120 prompt / 48 completion tok"
func FormatStats(t Telemetry) string {
	m, ok := t.(Metrics)
	if !ok {
		return "telemetry unavailable"
	}
	s := fmt.Sprintf("%.1fs total | %.1fs model | %s prompt / %s completion tok",
		m.TotalLatency.Seconds(), m.LLMLatency.Seconds(),
		FormatTokens(m.PromptTokens), FormatTokens(m.CompletionTokens))
	if m.Compaction != nil && m.Compaction.Applied {
		s += fmt.Sprintf(" | compacted %d->%d (-%d msgs)",
			m.Compaction.EstimatedTokensBefore, m.Compaction.EstimatedTokensAfter,
			m.Compaction.DroppedHistoryMessages)
	}
	return s
}

// =============================================================================
// PERF EXCHANGE
// =============================================================================

// PerfExchange is a rolling-history entry for one user/assistant pair.
type PerfExchange struct {
	ID               string
	ConversationID   string
	CreatedAt        time.Time
	UserPreview      string
	AssistantPreview string
	Telemetry        Telemetry
}

// ExchangeFromWire converts a row of the kernel's recent-performance list.
// A row without metrics becomes DegradedMetrics.
func ExchangeFromWire(e kernel.PerformanceExchange) PerfExchange {
	return PerfExchange{
		ID:               e.ID,
		ConversationID:   e.ConversationID,
		CreatedAt:        e.CreatedAt.Time,
		UserPreview:      e.UserPreview,
		AssistantPreview: e.AssistantPreview,
		Telemetry:        TelemetryFromWire(e.Metrics),
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

// TokenWindow aggregates token usage over one time window.
type TokenWindow struct {
	TotalTokens          int
	PromptTokens         int
	CompletionTokens     int
	ExchangeCount        int
	AvgTokensPerExchange float64
}

// PerfSummary holds cumulative aggregates computed by the kernel.
type PerfSummary struct {
	ExchangeCount int
	LatencyMin    time.Duration
	LatencyMax    time.Duration
	LatencyAvg    time.Duration
	Day           TokenWindow
	Week          TokenWindow
	Month         TokenWindow
	AllTime       TokenWindow
}

func windowFromWire(w kernel.TokenWindowStats) TokenWindow {
	return TokenWindow{
		TotalTokens:          w.TotalTokens,
		PromptTokens:         w.PromptTokens,
		CompletionTokens:     w.CompletionTokens,
		ExchangeCount:        w.ExchangeCount,
		AvgTokensPerExchange: w.AvgTokensPerExchange,
	}
}

// SummaryFromWire converts the kernel's performance summary.
func SummaryFromWire(s kernel.PerformanceSummary) PerfSummary {
	return PerfSummary{
		ExchangeCount: s.ExchangeCount,
		LatencyMin:    time.Duration(s.LatencyMinMs) * time.Millisecond,
		LatencyMax:    time.Duration(s.LatencyMaxMs) * time.Millisecond,
		LatencyAvg:    time.Duration(s.LatencyAvgMs * float64(time.Millisecond)),
		Day:           windowFromWire(s.TokensDay),
		Week:          windowFromWire(s.TokensWeek),
		Month:         windowFromWire(s.TokensMonth),
		AllTime:       windowFromWire(s.TokensAllTime),
	}
}
