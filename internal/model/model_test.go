// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifinspire/aigent/internal/kernel"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	a := NewUserMessage("Hello")
	b := NewUserMessage("Hello")

	if a.Role != RoleUser {
		t.Errorf("Role = %q, want 'user'", a.Role)
	}
	if !a.Local {
		t.Error("optimistic message should be marked Local")
	}
	if a.ID == b.ID {
		t.Error("message ids should be unique")
	}
}

func TestMessageFromWire_ParsesAssistantReasoning(t *testing.T) {
	msg := MessageFromWire(kernel.MessageResponse{
		ID:      "a1",
		Role:    "assistant",
		Content: "<think> plan </think>Answer",
	})

	assert.Equal(t, "Answer", msg.Content)
	assert.Equal(t, "plan", msg.Reasoning)
	assert.True(t, msg.HasReasoning())
}

func TestMessageFromWire_UserContentVerbatim(t *testing.T) {
	msg := MessageFromWire(kernel.MessageResponse{Role: "user", Content: "<think>literal</think>"})
	assert.Equal(t, "<think>literal</think>", msg.Content)
	assert.False(t, msg.HasReasoning())
}

func TestCountsTowardContext(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"user", Message{Role: RoleUser}, true},
		{"assistant", Message{Role: RoleAssistant}, true},
		{"system", Message{Role: RoleSystem}, false},
		{"error", NewErrorMessage("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.CountsTowardContext(); got != tt.want {
				t.Errorf("CountsTowardContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestWithoutConversation(t *testing.T) {
	list := []ConversationSummary{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	out := WithoutConversation(list, "b")
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
	assert.Len(t, list, 3, "input must not be modified")
	assert.Equal(t, -1, IndexOfConversation(out, "b"))
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestContextSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ContextSettings)
		wantErr string
	}{
		{"defaults", func(*ContextSettings) {}, ""},
		{"response too small", func(s *ContextSettings) { s.MaxResponseTokens = 15 }, "max_response_tokens"},
		{"trigger too low", func(s *ContextSettings) { s.CompactTriggerPct = 0.05 }, "compact_trigger_pct"},
		{"trigger too high", func(s *ContextSettings) { s.CompactTriggerPct = 1.01 }, "compact_trigger_pct"},
		{"trigger bounds inclusive", func(s *ContextSettings) { s.CompactTriggerPct = 0.1 }, ""},
		{"context out of range", func(s *ContextSettings) { s.MaxContextTokens = 100 }, "max_context_tokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultContextSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettingsInput_Apply(t *testing.T) {
	base := DefaultContextSettings()

	out, err := SettingsInput{MaxResponseTokens: " 512 ", CompactTriggerPct: "0.75", CompactInstructions: "summarize"}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, 512, out.MaxResponseTokens)
	assert.Equal(t, 0.75, out.CompactTriggerPct)
	assert.Equal(t, "summarize", out.CompactInstructions)
	assert.Equal(t, base.MaxContextTokens, out.MaxContextTokens)
}

func TestSettingsInput_ApplyMalformed(t *testing.T) {
	base := DefaultContextSettings()

	out, err := SettingsInput{MaxResponseTokens: "lots", CompactTriggerPct: "x"}.Apply(base)
	require.Error(t, err)
	assert.Equal(t, base, out)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestSettings_TriggerTokensFloors(t *testing.T) {
	s := ContextSettings{MaxContextTokens: 8192, CompactTriggerPct: 0.9}
	assert.Equal(t, 7372, s.TriggerTokens())
}

func TestSettings_PatchOmitsMaxContext(t *testing.T) {
	p := DefaultContextSettings().Patch()
	require.NotNil(t, p.MaxResponseTokens)
	require.NotNil(t, p.CompactTriggerPct)
	require.NotNil(t, p.CompactInstructions)
}

// =============================================================================
// TELEMETRY TESTS
// =============================================================================

func TestTelemetryFromWire_Degraded(t *testing.T) {
	tel := TelemetryFromWire(nil)
	_, degraded := tel.(DegradedMetrics)
	assert.True(t, degraded)
	assert.False(t, tel.Available())
	assert.Equal(t, "telemetry unavailable", FormatStats(tel))
}

func TestTelemetryFromWire_Metrics(t *testing.T) {
	prompt := 120
	tel := TelemetryFromWire(&kernel.PerformanceMetrics{
		TotalLatencyMs: 1200,
		LLMLatencyMs:   1100,
		PromptTokens:   &prompt,
		ContextCompaction: &kernel.ContextCompactionMetrics{
			Applied:                     true,
			EstimatedPromptTokensBefore: 900,
			EstimatedPromptTokensAfter:  400,
			DroppedHistoryMessages:      3,
		},
	})

	m, ok := tel.(Metrics)
	require.True(t, ok)
	assert.Equal(t, 1200*time.Millisecond, m.TotalLatency)
	assert.Nil(t, m.CompletionTokens)

	stats := FormatStats(tel)
	assert.True(t, strings.HasPrefix(stats, "1.2s total"))
	assert.Contains(t, stats, "120 prompt / n/a completion")
	assert.Contains(t, stats, "compacted 900->400 (-3 msgs)")
}

func TestExchangeFromWire(t *testing.T) {
	tests := []struct {
		name      string
		metrics   *kernel.PerformanceMetrics
		available bool
	}{
		{"with metrics", &kernel.PerformanceMetrics{TotalLatencyMs: 800, LLMLatencyMs: 700}, true},
		{"without metrics", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := ExchangeFromWire(kernel.PerformanceExchange{
				ID:             "p1",
				ConversationID: "c1",
				UserPreview:    "hi",
				Metrics:        tt.metrics,
			})
			assert.Equal(t, "p1", ex.ID)
			assert.Equal(t, "c1", ex.ConversationID)
			assert.Equal(t, tt.available, ex.Telemetry.Available())
			if !tt.available {
				_, degraded := ex.Telemetry.(DegradedMetrics)
				assert.True(t, degraded)
			}
		})
	}
}

func TestCapabilityFinish(t *testing.T) {
	c := NewCapability("Sending message", "")
	assert.False(t, c.Done())

	done := c.Finish(CapabilityError, "kernel unreachable")
	assert.True(t, done.Done())
	assert.Equal(t, c.ID, done.ID)
	assert.Equal(t, "kernel unreachable", done.Detail)
	assert.Equal(t, CapabilityProcessing, c.Status, "Finish returns a copy")
}
