// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifinspire/aigent/internal/model"
)

// =============================================================================
// TOKEN ESTIMATE TESTS
// =============================================================================

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 1},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 16384), 4096},
		{strings.Repeat("e\u0301", 4), 1}, // decomposed é counts once after NFC
		{"世界世界世", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.input); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestHistoryTexts_ExcludesSystemAndErrors(t *testing.T) {
	msgs := []model.Message{
		{Role: model.RoleSystem, Content: "sys"},
		{Role: model.RoleUser, Content: "q"},
		{Role: model.RoleAssistant, Content: "a"},
		model.NewErrorMessage("failed"),
	}
	assert.Equal(t, []string{"q", "a"}, HistoryTexts(msgs))
}

// =============================================================================
// USAGE TESTS
// =============================================================================

func settings(maxCtx int, pct float64, instr string) model.ContextSettings {
	return model.ContextSettings{
		MaxContextTokens:    maxCtx,
		MaxResponseTokens:   16,
		CompactTriggerPct:   pct,
		CompactInstructions: instr,
	}
}

func TestEstimateUsage_EmptyIsZero(t *testing.T) {
	u := EstimateUsage(nil, "   ", settings(4096, 0.9, "summarize"))
	assert.True(t, u.Empty())
	assert.Equal(t, 0, u.Pct)
	assert.False(t, u.Exceeds)
	assert.False(t, u.IncludesCompactInstructions)
	assert.Equal(t, 4096, u.MaxContext)
}

func TestEstimateUsage_WhitespaceHistoryCounts(t *testing.T) {
	// History is counted as sent, so four spaces are one token.
	u := EstimateUsage([]string{"    "}, "", settings(100, 1.0, ""))
	assert.False(t, u.Empty())
	assert.Equal(t, 1, u.EstimatedTokens)
	assert.Equal(t, 1, u.Pct)
}

func TestEstimateUsage_JoinsHistoryAndDraft(t *testing.T) {
	// "abc\ndef" + "\n" + "gh" = 10 chars -> 3 tokens
	u := EstimateUsage([]string{"abc", "def"}, "  gh  ", settings(100, 1.0, ""))
	assert.Equal(t, 3, u.EstimatedTokens)
	assert.Equal(t, 3, u.Pct)
}

func TestEstimateUsage_ExceedsBoundary(t *testing.T) {
	s := settings(4096, 1.0, "")

	at := EstimateUsage(nil, strings.Repeat("x", 16384), s)
	assert.Equal(t, 4096, at.EstimatedTokens)
	assert.False(t, at.Exceeds)
	assert.Equal(t, 100, at.Pct)

	over := EstimateUsage(nil, strings.Repeat("x", 16385), s)
	assert.Equal(t, 4097, over.EstimatedTokens)
	assert.True(t, over.Exceeds)

	// Same boundary when the characters come from history.
	split := EstimateUsage([]string{strings.Repeat("x", 8000)}, strings.Repeat("y", 8384), s)
	assert.True(t, split.Exceeds, "8000 + newline + 8384 = 16385 chars")
}

func TestEstimateUsage_PctMonotonicInDraft(t *testing.T) {
	history := []string{strings.Repeat("h", 300), strings.Repeat("a", 200)}
	cases := []model.ContextSettings{
		settings(256, 1.0, ""),
		settings(256, 0.5, "Summarize older turns briefly."),
	}
	for _, s := range cases {
		prev := -1
		for n := 0; n < 2000; n += 7 {
			u := EstimateUsage(history, strings.Repeat("d", n), s)
			require.GreaterOrEqual(t, u.Pct, prev, "draft length %d", n)
			prev = u.Pct
		}
	}
}

func TestEstimateUsage_CompactionSubstitution(t *testing.T) {
	instr := strings.Repeat("i", 40) // 40 chars
	s := settings(100, 0.5, instr)   // trigger at 50 tokens

	below := EstimateUsage(nil, strings.Repeat("x", 196), s) // 49 tokens
	assert.False(t, below.IncludesCompactInstructions)
	assert.Equal(t, 49, below.EstimatedTokens)

	at := EstimateUsage(nil, strings.Repeat("x", 200), s) // 50 tokens, at the trigger
	assert.True(t, at.IncludesCompactInstructions)
	// instr + "\n" + draft = 241 chars -> 61 tokens
	assert.Equal(t, 61, at.EstimatedTokens)
	assert.True(t, at.NearTrigger())
}

func TestEstimateUsage_PctCapped(t *testing.T) {
	u := EstimateUsage(nil, strings.Repeat("x", 100000), settings(256, 1.0, ""))
	assert.Equal(t, MaxPct, u.Pct)
}

func TestEstimateUsage_ZeroMaxContext(t *testing.T) {
	u := EstimateUsage(nil, "hello", settings(0, 1.0, ""))
	assert.Equal(t, 200, u.Pct)
	assert.True(t, u.Exceeds)
}

// =============================================================================
// CHECK SEND TESTS
// =============================================================================

func TestCheckSend_BlocksOverflowWithoutInstructions(t *testing.T) {
	s := model.ContextSettings{MaxContextTokens: 100, MaxResponseTokens: 16, CompactTriggerPct: 0.5}

	u := EstimateUsage(nil, strings.Repeat("x", 500), s)
	require.Equal(t, 125, u.EstimatedTokens)
	require.True(t, u.Exceeds)

	err := CheckSend(u, s)
	require.Error(t, err)

	var overflow *OverflowError
	require.True(t, errors.As(err, &overflow))
	assert.Equal(t, 125, overflow.Estimated)
	assert.Equal(t, 100, overflow.Max)
	assert.Contains(t, err.Error(), "125")
	assert.Contains(t, err.Error(), "100")
}

func TestCheckSend_AdvisoryWithInstructions(t *testing.T) {
	s := settings(100, 0.5, "compact please")
	u := EstimateUsage(nil, strings.Repeat("x", 500), s)
	require.True(t, u.Exceeds)
	assert.NoError(t, CheckSend(u, s))
}

func TestCheckSend_FitsIsNil(t *testing.T) {
	s := settings(100, 0.5, "")
	assert.NoError(t, CheckSend(EstimateUsage(nil, "short", s), s))
}

// =============================================================================
// PROJECTION TESTS
// =============================================================================

func TestProjectCompaction_NoChangeUnderTrigger(t *testing.T) {
	p := ProjectCompaction([]string{"hello", "world"}, "next", settings(1000, 0.9, "x"), 100)
	assert.False(t, p.Compacts())
	assert.True(t, p.Fits)
	assert.Equal(t, p.EstimatedBefore, p.EstimatedAfter)
}

func TestProjectCompaction_DropsOldestHistory(t *testing.T) {
	history := []string{
		strings.Repeat("a", 200),
		strings.Repeat("b", 200),
		strings.Repeat("c", 200),
	}
	// system 40 + 600 history + 40 draft = 680 chars = 170 tokens, window 100
	p := ProjectCompaction(history, strings.Repeat("d", 40), settings(100, 0.5, strings.Repeat("i", 40)), 40)

	assert.True(t, p.Applied)
	assert.Equal(t, 50, p.TriggerTokens)
	assert.Equal(t, 170, p.EstimatedBefore)
	// with instructions: 720 chars; dropping two 200-char messages leaves 320 chars = 80 tokens
	assert.Equal(t, 2, p.DroppedMessages)
	assert.Equal(t, 80, p.EstimatedAfter)
	assert.True(t, p.Fits)
}

func TestProjectCompaction_CannotFit(t *testing.T) {
	p := ProjectCompaction(nil, strings.Repeat("d", 1000), settings(100, 1.0, ""), 0)
	assert.False(t, p.Applied)
	assert.Equal(t, 0, p.DroppedMessages)
	assert.False(t, p.Fits)
}
