// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is where a locally started kernel listens.
const DefaultBaseURL = "http://127.0.0.1:8000"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// ClientConfig holds configuration options for the kernel client.
type ClientConfig struct {
	// BaseURL is the kernel API base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for ordinary requests (default: 30s)
	Timeout time.Duration

	// ChatTimeout for POST /api/chat, which waits on inference (default: 120s)
	ChatTimeout time.Duration

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64

	// Burst is the limiter bucket size (default: 4 when RateLimit is set)
	Burst int

	// HTTPClient overrides the transport. Mostly for tests.
	HTTPClient *http.Client

	// Logger receives per-request debug records (default: slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:     DefaultBaseURL,
		Timeout:     30 * time.Second,
		ChatTimeout: 120 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the kernel REST API.
//
// The Client is safe for concurrent use. Request deadlines come from the
// caller's context plus the configured per-request timeout.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a kernel client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a kernel client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Deadlines are applied per request through the context.
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 4
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		config:     &cfg,
		httpClient: httpClient,
		limiter:    limiter,
		log:        cfg.Logger.With("component", "kernel"),
	}
}

// BaseURL returns the normalized kernel base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// errEmptyBody reports a 2xx response with nothing to decode.
var errEmptyBody = errors.New("empty response body")

// do sends one request and decodes a JSON response into out.
//
// A nil in marshals no body. A zero timeout means the caller's context is the
// only deadline. When out is non-nil, a 204 or an empty body returns
// errEmptyBody and leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, in, out any, timeout time.Duration) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &ClientError{Type: ErrTypeTimeout, Message: "rate limiter wait failed", Cause: err}
		}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "error", err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &ClientError{Type: ErrTypeConnection, Message: "kernel unreachable at " + c.config.BaseURL, Cause: err}
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return httpError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent {
		return errEmptyBody
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read response", Cause: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// fetch runs do for a single JSON object. An empty response yields a nil
// result and a nil error.
func fetch[T any](c *Client, ctx context.Context, method, path string, in any, timeout time.Duration) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, in, &out, timeout); err != nil {
		if errors.Is(err, errEmptyBody) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// fetchList runs do for a JSON array. An empty response yields an empty list.
func fetchList[T any](c *Client, ctx context.Context, path string, timeout time.Duration) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, path, nil, &out, timeout); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// HEALTH & WARMUP
// =============================================================================

// Health returns the kernel status and active model.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return fetch[HealthResponse](c, ctx, http.MethodGet, "/health", nil, c.config.Timeout)
}

// Warmup asks the kernel to load the model into memory. It can take as long
// as a chat turn.
func (c *Client) Warmup(ctx context.Context) (*WarmupResponse, error) {
	return fetch[WarmupResponse](c, ctx, http.MethodPost, "/api/llm/warmup", nil, c.config.ChatTimeout)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations returns summaries, most recently updated first.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	return fetchList[ConversationSummary](c, ctx, "/api/conversations", c.config.Timeout)
}

// CreateConversation creates an empty conversation. An empty title lets the
// kernel pick one.
func (c *Client) CreateConversation(ctx context.Context, title string) (*ConversationSummary, error) {
	req := CreateConversationRequest{}
	if title != "" {
		req.Title = &title
	}
	return fetch[ConversationSummary](c, ctx, http.MethodPost, "/api/conversations", req, c.config.Timeout)
}

// GetConversation loads one conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (*ConversationDetail, error) {
	path := "/api/conversations/" + url.PathEscape(id)
	return fetch[ConversationDetail](c, ctx, http.MethodGet, path, nil, c.config.Timeout)
}

// DeleteConversation removes a conversation and its telemetry.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	path := "/api/conversations/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, c.config.Timeout)
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends one user message and waits for the assistant reply. An empty
// response returns nil with no error.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return fetch[ChatResponse](c, ctx, http.MethodPost, "/api/chat", req, c.config.ChatTimeout)
}

// =============================================================================
// PERFORMANCE
// =============================================================================

// Limits accepted by RecentPerformance.
const (
	MinRecentLimit = 1
	MaxRecentLimit = 50
)

// ClampRecentLimit bounds limit to the range the kernel accepts.
func ClampRecentLimit(limit int) int {
	if limit < MinRecentLimit {
		return MinRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}

// RecentPerformance returns the newest exchanges, newest first.
func (c *Client) RecentPerformance(ctx context.Context, limit int) ([]PerformanceExchange, error) {
	path := "/api/performance/recent?limit=" + strconv.Itoa(ClampRecentLimit(limit))
	return fetchList[PerformanceExchange](c, ctx, path, c.config.Timeout)
}

// PerformanceSummary returns latency and token aggregates.
func (c *Client) PerformanceSummary(ctx context.Context) (*PerformanceSummary, error) {
	return fetch[PerformanceSummary](c, ctx, http.MethodGet, "/api/performance/summary", nil, c.config.Timeout)
}

// =============================================================================
// CONTEXT SETTINGS
// =============================================================================

// ContextSettings returns the kernel's context window settings.
func (c *Client) ContextSettings(ctx context.Context) (*ContextSettings, error) {
	return fetch[ContextSettings](c, ctx, http.MethodGet, "/api/prompts/context-settings", nil, c.config.Timeout)
}

// UpdateContextSettings applies a partial update and returns the result.
func (c *Client) UpdateContextSettings(ctx context.Context, patch ContextSettingsPatch) (*ContextSettings, error) {
	return fetch[ContextSettings](c, ctx, http.MethodPatch, "/api/prompts/context-settings", patch, c.config.Timeout)
}

// SystemPrompt returns the composed system prompt the kernel sends first.
func (c *Client) SystemPrompt(ctx context.Context) (*SystemPromptResponse, error) {
	return fetch[SystemPromptResponse](c, ctx, http.MethodGet, "/api/prompts/system", nil, c.config.Timeout)
}

// =============================================================================
// BASELINE JOBS
// =============================================================================

// StartBaseline starts an asynchronous baseline job. An empty response
// returns nil with no error.
func (c *Client) StartBaseline(ctx context.Context, enforceMaxResponseTokens bool) (*BaselineJobStart, error) {
	req := BaselineStartRequest{EnforceMaxResponseTokens: enforceMaxResponseTokens}
	out, err := fetch[BaselineJobStart](c, ctx, http.MethodPost, "/api/baseline/start", req, c.config.Timeout)
	if err != nil || out == nil {
		return nil, err
	}
	if out.JobID == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "baseline start returned no job id"}
	}
	return out, nil
}

// BaselineStatus returns the current state of a baseline job. An empty
// response returns nil with no error.
func (c *Client) BaselineStatus(ctx context.Context, jobID string) (*BaselineJobStatus, error) {
	path := "/api/baseline/status/" + url.PathEscape(jobID)
	return fetch[BaselineJobStatus](c, ctx, http.MethodGet, path, nil, c.config.Timeout)
}

// RunBaseline runs the whole benchmark synchronously. Only the caller's
// context bounds it.
func (c *Client) RunBaseline(ctx context.Context, enforceMaxResponseTokens bool) (*BaselineRun, error) {
	req := BaselineStartRequest{EnforceMaxResponseTokens: enforceMaxResponseTokens}
	return fetch[BaselineRun](c, ctx, http.MethodPost, "/api/baseline/run", req, 0)
}

// =============================================================================
// ADMIN
// =============================================================================

// ExportVersion is the envelope version the kernel currently emits.
const ExportVersion = "aigentos-export-v1"

// Export downloads the full data export.
func (c *Client) Export(ctx context.Context) (*ExportEnvelope, error) {
	out, err := fetch[ExportEnvelope](c, ctx, http.MethodGet, "/api/admin/export", nil, c.config.ChatTimeout)
	if err != nil || out == nil {
		return nil, err
	}
	if out.Version == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "export envelope missing version"}
	}
	return out, nil
}

// DeleteAllData wipes every conversation, log and benchmark record.
func (c *Client) DeleteAllData(ctx context.Context, confirm bool) (*DeleteAllDataResponse, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	req := DeleteAllDataRequest{Confirm: true}
	out, err := fetch[DeleteAllDataResponse](c, ctx, http.MethodPost, "/api/admin/delete-all-data", req, c.config.Timeout)
	if err != nil || out == nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("delete all data: kernel reported failure")
	}
	return out, nil
}
