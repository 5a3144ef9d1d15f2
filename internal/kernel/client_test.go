// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"ok","tenant_id":"default","model":"qwen3:8b","ollama_base_url":"http://ollama:11434","is_warm":true}`)
	}))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "qwen3:8b", h.Model)
	assert.True(t, h.IsWarm)
}

func TestChat_SendsMessageAndConversation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Message)
		assert.Equal(t, "c1", req.ConversationID)

		_, _ = io.WriteString(w, `{
			"conversation_id":"c1",
			"user_message":{"id":"u1","role":"user","content":"hello","timestamp":"2025-01-02T03:04:05.123456+00:00"},
			"assistant_message":{"id":"a1","role":"assistant","content":"<think>hm</think>hi","timestamp":"2025-01-02T03:04:06+00:00"},
			"performance":{"total_latency_ms":900,"llm_latency_ms":850,"prompt_tokens":12,"completion_tokens":3,"total_tokens":15,
				"prompt_breakdown":{"system_chars":10,"user_chars":5,"assistant_chars":0}}
		}`)
	}))

	resp, err := c.Chat(context.Background(), ChatRequest{Message: "hello", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "a1", resp.AssistantMessage.ID)
	require.NotNil(t, resp.Performance)
	require.NotNil(t, resp.Performance.TotalTokens)
	assert.Equal(t, 15, *resp.Performance.TotalTokens)
	assert.Nil(t, resp.Performance.ContextCompaction)
	assert.Equal(t, 2025, resp.UserMessage.Timestamp.Year())
}

func TestChat_OmitsEmptyConversationID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, present := raw["conversation_id"]
		assert.False(t, present)
		_, _ = io.WriteString(w, `{"conversation_id":"new","user_message":{},"assistant_message":{}}`)
	}))

	resp, err := c.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Nil(t, resp.Performance)
}

func TestRecentPerformance_ClampsLimit(t *testing.T) {
	var got []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `[]`)
	}))

	for _, limit := range []int{0, 5, 500} {
		_, err := c.RecentPerformance(context.Background(), limit)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"1", "5", "50"}, got)
}

func TestUpdateContextSettings_PartialPatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, map[string]any{"max_response_tokens": float64(512)}, raw)
		_, _ = io.WriteString(w, `{"max_context_tokens":8192,"max_response_tokens":512,"compact_trigger_pct":0.9,"compact_instructions":"","updated_at":"2025-01-01T00:00:00"}`)
	}))

	n := 512
	s, err := c.UpdateContextSettings(context.Background(), ContextSettingsPatch{MaxResponseTokens: &n})
	require.NoError(t, err)
	assert.Equal(t, 512, s.MaxResponseTokens)
	assert.Equal(t, time.UTC, s.UpdatedAt.Location())
}

// =============================================================================
// ERROR CONVENTION TESTS
// =============================================================================

func TestErrors_DetailString(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Conversation not found"}`)
	}))

	_, err := c.GetConversation(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "Conversation not found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestErrors_ValidationList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"loc":["body","message"],"msg":"String should have at least 1 character"}]}`)
	}))

	_, err := c.Chat(context.Background(), ChatRequest{Message: "x"})
	require.Error(t, err)
	assert.Equal(t, "String should have at least 1 character", err.Error())
	assert.False(t, IsNotFound(err))
}

func TestErrors_FallsBackToStatusText(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `<html>bad gateway</html>`)
	}))

	_, err := c.PerformanceSummary(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Bad Gateway", err.Error())
}

func TestErrors_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: time.Second})
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestErrors_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestDeleteConversation_NoContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/conversations/a%2Fb", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.DeleteConversation(context.Background(), "a/b"))
}

func TestEmptyListResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	list, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmptyObjectResponse_IsNil(t *testing.T) {
	tests := []struct {
		name    string
		respond func(w http.ResponseWriter)
	}{
		{"no content", func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }},
		{"empty 200", func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) }},
		{"whitespace 200", func(w http.ResponseWriter) { _, _ = io.WriteString(w, " \n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.respond(w)
			}))
			ctx := context.Background()

			resp, err := c.Chat(ctx, ChatRequest{Message: "hi"})
			require.NoError(t, err)
			assert.Nil(t, resp)

			status, err := c.BaselineStatus(ctx, "j1")
			require.NoError(t, err)
			assert.Nil(t, status)

			health, err := c.Health(ctx)
			require.NoError(t, err)
			assert.Nil(t, health)

			start, err := c.StartBaseline(ctx, true)
			require.NoError(t, err)
			assert.Nil(t, start)
		})
	}
}

// =============================================================================
// BASELINE & ADMIN TESTS
// =============================================================================

func TestStartBaseline_RequiresJobID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"running"}`)
	}))

	_, err := c.StartBaseline(context.Background(), true)
	require.Error(t, err)
}

func TestBaselineStatus_Terminal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/baseline/status/job-1", r.URL.Path)
		_, _ = io.WriteString(w, `{"job_id":"job-1","status":"completed","model":"m","total_calls":34,"completed_calls":34,
			"started_at":"2025-01-01T00:00:00+00:00","updated_at":"2025-01-01T00:01:00+00:00","events":["done"],
			"result":{"model":"m","started_at":"2025-01-01T00:00:00+00:00","completed_at":"2025-01-01T00:01:00+00:00","duration_ms":60000,"total_calls":34,"categories":[]}}`)
	}))

	st, err := c.BaselineStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, st.IsTerminal())
	require.NotNil(t, st.Result)
	assert.Equal(t, 60000, st.Result.DurationMs)
}

func TestDeleteAllData_RequiresConfirmation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req DeleteAllDataRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Confirm)
		_, _ = io.WriteString(w, `{"ok":true,"deleted_at":"2025-01-01T00:00:00+00:00"}`)
	}))

	_, err := c.DeleteAllData(context.Background(), false)
	assert.True(t, errors.Is(err, ErrConfirmationRequired))
	assert.Equal(t, int32(0), calls.Load())

	resp, err := c.DeleteAllData(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExport_Envelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"version":"aigentos-export-v1","model":"m","ollama_base_url":"u","data":{"conversations":[]}}`)
	}))

	env, err := c.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExportVersion, env.Version)
	assert.Contains(t, env.Data, "conversations")
}

func TestRateLimiterCancelledContext(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://127.0.0.1:1", RateLimit: 0.001, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Health(ctx)
	require.Error(t, err)
}

func TestSystemPrompt(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/prompts/system", r.URL.Path)
		_, _ = io.WriteString(w, `{"agent_id":"basic","prompt":"You are helpful.","component_count":2,"profile_name":"Default","is_custom":false}`)
	}))

	sp, err := c.SystemPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "basic", sp.AgentID)
	assert.Equal(t, "You are helpful.", sp.Prompt)
	assert.Equal(t, 2, sp.ComponentCount)
}
