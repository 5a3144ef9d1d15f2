// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kernel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// TIMESTAMPS
// =============================================================================

// Timestamp decodes the kernel's ISO-8601 datetimes. Values without a zone
// offset are taken as UTC.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// =============================================================================
// HEALTH & WARMUP
// =============================================================================

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	TenantID      string `json:"tenant_id"`
	Model         string `json:"model"`
	OllamaBaseURL string `json:"ollama_base_url"`
	IsWarm        bool   `json:"is_warm"`
}

// WarmupResponse is returned by POST /api/llm/warmup.
type WarmupResponse struct {
	OK        bool      `json:"ok"`
	Status    string    `json:"status"` // "warmed" or "already_warmed"
	LatencyMs int       `json:"latency_ms"`
	Model     string    `json:"model"`
	WarmedAt  Timestamp `json:"warmed_at"`
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// MessageResponse is a stored message as the kernel returns it.
type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "system", "user", "assistant"
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// ConversationSummary is one row of GET /api/conversations.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"last_message"`
	UpdatedAt    Timestamp `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ConversationDetail includes the ordered message list.
type ConversationDetail struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	UpdatedAt Timestamp         `json:"updated_at"`
	Messages  []MessageResponse `json:"messages"`
}

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	Title *string `json:"title,omitempty"`
}

// =============================================================================
// CHAT
// =============================================================================

// ChatRequest is the body of POST /api/chat. An empty ConversationID asks the
// kernel to create a new conversation.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is returned by POST /api/chat. Performance may be absent on
// older kernels; callers treat that as degraded telemetry, not an error.
type ChatResponse struct {
	ConversationID   string              `json:"conversation_id"`
	UserMessage      MessageResponse     `json:"user_message"`
	AssistantMessage MessageResponse     `json:"assistant_message"`
	Performance      *PerformanceMetrics `json:"performance,omitempty"`
}

// PromptBreakdown splits the prompt by role. Token estimates are nil when the
// model did not report a prompt token count.
type PromptBreakdown struct {
	SystemChars        int  `json:"system_chars"`
	UserChars          int  `json:"user_chars"`
	AssistantChars     int  `json:"assistant_chars"`
	SystemTokensEst    *int `json:"system_tokens_est,omitempty"`
	UserTokensEst      *int `json:"user_tokens_est,omitempty"`
	AssistantTokensEst *int `json:"assistant_tokens_est,omitempty"`
}

// ContextCompactionMetrics describes what the kernel did to fit the prompt.
type ContextCompactionMetrics struct {
	Applied                     bool `json:"applied"`
	TriggerTokens               int  `json:"trigger_tokens"`
	EstimatedPromptTokensBefore int  `json:"estimated_prompt_tokens_before"`
	EstimatedPromptTokensAfter  int  `json:"estimated_prompt_tokens_after"`
	DroppedHistoryMessages      int  `json:"dropped_history_messages"`
}

// PerformanceMetrics is the telemetry attached to one exchange.
type PerformanceMetrics struct {
	TotalLatencyMs    int                       `json:"total_latency_ms"`
	LLMLatencyMs      int                       `json:"llm_latency_ms"`
	PromptTokens      *int                      `json:"prompt_tokens,omitempty"`
	CompletionTokens  *int                      `json:"completion_tokens,omitempty"`
	TotalTokens       *int                      `json:"total_tokens,omitempty"`
	PromptBreakdown   PromptBreakdown           `json:"prompt_breakdown"`
	ContextCompaction *ContextCompactionMetrics `json:"context_compaction,omitempty"`
}

// =============================================================================
// PERFORMANCE
// =============================================================================

// PerformanceExchange is one row of GET /api/performance/recent.
type PerformanceExchange struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	CreatedAt        Timestamp `json:"created_at"`
	UserPreview      string    `json:"user_preview"`
	AssistantPreview string    `json:"assistant_preview"`
	// Metrics is nil when the row carried no metrics object.
	Metrics *PerformanceMetrics `json:"metrics"`
}

// TokenWindowStats aggregates token usage over a time window.
type TokenWindowStats struct {
	TotalTokens          int     `json:"total_tokens"`
	PromptTokens         int     `json:"prompt_tokens"`
	CompletionTokens     int     `json:"completion_tokens"`
	ExchangeCount        int     `json:"exchange_count"`
	AvgTokensPerExchange float64 `json:"avg_tokens_per_exchange"`
}

// PerformanceSummary is returned by GET /api/performance/summary.
type PerformanceSummary struct {
	ExchangeCount int              `json:"exchange_count"`
	LatencyMinMs  int              `json:"latency_min_ms"`
	LatencyMaxMs  int              `json:"latency_max_ms"`
	LatencyAvgMs  float64          `json:"latency_avg_ms"`
	TokensDay     TokenWindowStats `json:"tokens_day"`
	TokensWeek    TokenWindowStats `json:"tokens_week"`
	TokensMonth   TokenWindowStats `json:"tokens_month"`
	TokensAllTime TokenWindowStats `json:"tokens_all_time"`
}

// =============================================================================
// CONTEXT SETTINGS
// =============================================================================

// ContextSettings is returned by GET/PATCH /api/prompts/context-settings.
type ContextSettings struct {
	MaxContextTokens    int       `json:"max_context_tokens"`
	MaxResponseTokens   int       `json:"max_response_tokens"`
	CompactTriggerPct   float64   `json:"compact_trigger_pct"`
	CompactInstructions string    `json:"compact_instructions"`
	UpdatedAt           Timestamp `json:"updated_at"`
}

// ContextSettingsPatch is a partial update. Nil fields are left unchanged.
// max_context_tokens is server-declared and deliberately absent.
type ContextSettingsPatch struct {
	MaxResponseTokens   *int     `json:"max_response_tokens,omitempty"`
	CompactTriggerPct   *float64 `json:"compact_trigger_pct,omitempty"`
	CompactInstructions *string  `json:"compact_instructions,omitempty"`
}

// SystemPromptResponse is returned by GET /api/prompts/system.
type SystemPromptResponse struct {
	AgentID        string `json:"agent_id"`
	Prompt         string `json:"prompt"`
	ComponentCount int    `json:"component_count"`
	ProfileName    string `json:"profile_name"`
	IsCustom       bool   `json:"is_custom"`
}

// =============================================================================
// BASELINE JOBS
// =============================================================================

// Baseline job status values reported by the kernel.
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// BaselineStartRequest is the body of POST /api/baseline/start and /run.
type BaselineStartRequest struct {
	EnforceMaxResponseTokens bool `json:"enforce_max_response_tokens"`
}

// BaselineJobStart is returned by POST /api/baseline/start.
type BaselineJobStart struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// BaselineCaseResult holds the measurements of one benchmark case.
type BaselineCaseResult struct {
	ID                      string  `json:"id"`
	Label                   string  `json:"label"`
	Calls                   int     `json:"calls"`
	InputTokensEst          int     `json:"input_tokens_est"`
	PromptTokens            int     `json:"prompt_tokens"`
	CompletionTokens        int     `json:"completion_tokens"`
	TotalTokens             int     `json:"total_tokens"`
	TotalLatencyMs          int     `json:"total_latency_ms"`
	AvgLatencyMs            float64 `json:"avg_latency_ms"`
	MinLatencyMs            *int    `json:"min_latency_ms,omitempty"`
	MaxLatencyMs            *int    `json:"max_latency_ms,omitempty"`
	PerTurnLatencyMs        []int   `json:"per_turn_latency_ms,omitempty"`
	PerTurnPromptTokens     []int   `json:"per_turn_prompt_tokens,omitempty"`
	PerTurnCompletionTokens []int   `json:"per_turn_completion_tokens,omitempty"`
}

// BaselineCategoryResult groups related cases.
type BaselineCategoryResult struct {
	ID    string               `json:"id"`
	Label string               `json:"label"`
	Cases []BaselineCaseResult `json:"cases"`
}

// BaselineRun is the final payload of a completed baseline job.
type BaselineRun struct {
	Model       string                   `json:"model"`
	StartedAt   Timestamp                `json:"started_at"`
	CompletedAt Timestamp                `json:"completed_at"`
	DurationMs  int                      `json:"duration_ms"`
	TotalCalls  int                      `json:"total_calls"`
	Categories  []BaselineCategoryResult `json:"categories"`
}

// BaselineJobStatus is returned by GET /api/baseline/status/{job_id}.
type BaselineJobStatus struct {
	JobID          string       `json:"job_id"`
	Status         string       `json:"status"`
	Model          string       `json:"model"`
	TotalCalls     int          `json:"total_calls"`
	CompletedCalls int          `json:"completed_calls"`
	CurrentStep    string       `json:"current_step,omitempty"`
	StartedAt      Timestamp    `json:"started_at"`
	UpdatedAt      Timestamp    `json:"updated_at"`
	CompletedAt    *Timestamp   `json:"completed_at,omitempty"`
	DurationMs     *int         `json:"duration_ms,omitempty"`
	Events         []string     `json:"events"`
	Error          string       `json:"error,omitempty"`
	Result         *BaselineRun `json:"result,omitempty"`
}

// IsTerminal reports whether the job has finished, successfully or not.
func (s *BaselineJobStatus) IsTerminal() bool {
	return s.Status == JobStatusCompleted || s.Status == JobStatusFailed
}

// =============================================================================
// ADMIN
// =============================================================================

// ExportEnvelope is returned by GET /api/admin/export.
type ExportEnvelope struct {
	Version       string         `json:"version" yaml:"version"`
	Model         string         `json:"model" yaml:"model"`
	OllamaBaseURL string         `json:"ollama_base_url" yaml:"ollama_base_url"`
	Data          map[string]any `json:"data" yaml:"data"`
}

// DeleteAllDataRequest is the body of POST /api/admin/delete-all-data.
type DeleteAllDataRequest struct {
	Confirm bool `json:"confirm"`
}

// DeleteAllDataResponse is returned after a successful wipe.
type DeleteAllDataResponse struct {
	OK        bool      `json:"ok"`
	DeletedAt Timestamp `json:"deleted_at"`
}

// errorBody is the kernel's error payload. FastAPI emits either a string or a
// list of validation issues under "detail".
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}
