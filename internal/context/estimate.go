// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ifinspire/aigent/internal/model"
)

// CharsPerToken is the estimator's characters-per-token ratio.
const CharsPerToken = 4

// MaxPct caps the reported percentage so the UI never shows absurd values.
const MaxPct = 999

// =============================================================================
// TOKEN ESTIMATE
// =============================================================================

// CountChars counts characters the way a user perceives them: runes of the
// NFC-normalized text, so a decomposed "é" counts once.
func CountChars(text string) int {
	if text == "" {
		return 0
	}
	if norm.NFC.IsNormalString(text) {
		return utf8.RuneCountInString(text)
	}
	return utf8.RuneCountInString(norm.NFC.String(text))
}

// EstimateTokens returns ceil(chars/4), minimum 1.
func EstimateTokens(text string) int {
	n := (CountChars(text) + CharsPerToken - 1) / CharsPerToken
	if n < 1 {
		return 1
	}
	return n
}

// HistoryTexts returns the visible text of every message that is part of the
// prompt history, in order. System and error messages are excluded.
func HistoryTexts(msgs []model.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.CountsTowardContext() {
			out = append(out, m.Content)
		}
	}
	return out
}

// =============================================================================
// USAGE
// =============================================================================

// Usage is the projected size of the next prompt.
type Usage struct {
	EstimatedTokens int
	MaxContext      int
	TriggerTokens   int

	// Pct is EstimatedTokens as a rounded percentage of MaxContext, capped at
	// MaxPct.
	Pct int

	// Exceeds is true when EstimatedTokens > MaxContext.
	Exceeds bool

	// IncludesCompactInstructions is set when the estimate assumes the kernel
	// will substitute its compaction instructions.
	IncludesCompactInstructions bool
}

// Empty reports whether there was nothing to estimate.
func (u Usage) Empty() bool {
	return u.EstimatedTokens == 0
}

// NearTrigger reports whether the estimate has reached the compaction trigger.
func (u Usage) NearTrigger() bool {
	return u.TriggerTokens > 0 && u.EstimatedTokens >= u.TriggerTokens
}

// joinNonEmpty joins the non-empty parts with newlines.
func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

// EstimateUsage projects the token cost of history plus draft against the
// context window in settings.
func EstimateUsage(history []string, draft string, settings model.ContextSettings) Usage {
	usage := Usage{
		MaxContext:    settings.MaxContextTokens,
		TriggerTokens: settings.TriggerTokens(),
	}

	joined := strings.Join(history, "\n")
	trimmed := strings.TrimSpace(draft)
	if joined == "" && trimmed == "" {
		return usage
	}

	estimate := EstimateTokens(joinNonEmpty(joined, trimmed))

	if instr := strings.TrimSpace(settings.CompactInstructions); instr != "" && estimate >= usage.TriggerTokens {
		estimate = EstimateTokens(joinNonEmpty(joinNonEmpty(instr, joined), trimmed))
		usage.IncludesCompactInstructions = true
	}

	usage.EstimatedTokens = estimate
	usage.Pct = pct(estimate, settings.MaxContextTokens)
	usage.Exceeds = estimate > settings.MaxContextTokens
	return usage
}

func pct(estimate, maxContext int) int {
	denom := maxContext
	if denom < 1 {
		denom = 1
	}
	p := int(math.Round(float64(estimate) / float64(denom) * 100))
	if p > MaxPct {
		return MaxPct
	}
	return p
}
