// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation.
//
// Command: status
// Short:   Show kernel health, context settings and telemetry
// Aliases: s
//
// Examples:
//
//	aigent status                 Show status
//	aigent status --json          Status in JSON format
//
// Sections:
//
//	Kernel:    Reachability, model, Ollama endpoint, warm state
//	Context:   Window size, response budget, compaction trigger
//	Telemetry: Recent exchanges and cumulative token windows
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// JSON TYPES
// =============================================================================

// StatusData is the JSON form of the status command.
type StatusData struct {
	Kernel    StatusKernel          `json:"kernel"`
	Context   model.ContextSettings `json:"context"`
	Telemetry StatusTelemetry       `json:"telemetry"`
}

// StatusKernel describes the backend.
type StatusKernel struct {
	URL           string `json:"url"`
	Reachable     bool   `json:"reachable"`
	Status        string `json:"status,omitempty"`
	Model         string `json:"model,omitempty"`
	OllamaBaseURL string `json:"ollama_base_url,omitempty"`
	Warm          bool   `json:"warm"`
	Error         string `json:"error,omitempty"`
	Conversations int    `json:"conversations"`
}

// StatusTelemetry summarizes recent performance.
type StatusTelemetry struct {
	Recent        []StatusExchange `json:"recent"`
	ExchangeCount int              `json:"exchange_count"`
	LatencyAvgMs  int64            `json:"latency_avg_ms"`
	TokensDay     int              `json:"tokens_day"`
	TokensWeek    int              `json:"tokens_week"`
	TokensMonth   int              `json:"tokens_month"`
	TokensAllTime int              `json:"tokens_all_time"`
}

// StatusExchange is one recent exchange.
type StatusExchange struct {
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UserPreview    string    `json:"user_preview"`
	Stats          string    `json:"stats"`
}

// =============================================================================
// HANDLE STATUS
// =============================================================================

// HandleStatus handles the "status" command. An unreachable kernel is
// reported in the output rather than returned as an error.
func HandleStatus(args Args) error {
	rt, err := NewRuntime(args, logging.ToStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Kernel.Timeout()*2)
	defer cancel()

	kern := StatusKernel{URL: rt.Client.BaseURL()}
	health, herr := rt.Client.Health(ctx)
	if herr == nil && health == nil {
		herr = kernel.ErrEmptyResponse
	}
	if herr != nil {
		kern.Error = herr.Error()
	} else {
		kern.Reachable = true
		kern.Status = health.Status
		kern.Model = health.Model
		kern.OllamaBaseURL = health.OllamaBaseURL
		kern.Warm = health.IsWarm
	}

	ctrl := rt.Controller()
	defer ctrl.Close()
	if kern.Reachable {
		ctrl.RefreshDashboard(ctx)
		if convs, err := ctrl.RefreshConversations(ctx); err == nil {
			kern.Conversations = len(convs)
		}
	}
	st := ctrl.State()
	data := StatusData{
		Kernel:    kern,
		Context:   st.Settings,
		Telemetry: collectTelemetry(st),
	}

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("aigent Status"))
	fmt.Println(RenderSeparator(41))

	fmt.Println(SectionStyle.Render("Kernel"))
	printField("URL", kern.URL)
	if !kern.Reachable {
		printField("Status", ErrorStyle.Render("unreachable"))
		printField("Error", kern.Error)
		fmt.Println()
		return nil
	}
	printField("Status", RenderStatus(kern.Status))
	printField("Model", kern.Model)
	printField("Ollama", kern.OllamaBaseURL)
	if kern.Warm {
		printField("Warm", SuccessStyle.Render("yes"))
	} else {
		printField("Warm", WarningStyle.Render("no"))
	}
	printField("Conversations", kern.Conversations)

	fmt.Println(SectionStyle.Render("Context"))
	printField("Max context", groupDigits(st.Settings.MaxContextTokens)+" tokens")
	printField("Max response", groupDigits(st.Settings.MaxResponseTokens)+" tokens")
	printField("Compaction trigger", fmt.Sprintf("%.0f%% (%s tokens)", st.Settings.CompactTriggerPct*100, groupDigits(st.Settings.TriggerTokens())))
	if st.Settings.HasCompactInstructions() {
		printField("Instructions", util.TruncateRunes(st.Settings.CompactInstructions, 48))
	} else {
		printField("Instructions", DimStyle.Render("(none)"))
	}
	if st.SystemPromptChars > 0 {
		printField("System prompt", fmt.Sprintf("%s chars", groupDigits(st.SystemPromptChars)))
	}

	printTelemetry(st)
	fmt.Println()
	return nil
}

func collectTelemetry(st session.State) StatusTelemetry {
	out := StatusTelemetry{Recent: []StatusExchange{}}
	for _, ex := range st.Telemetry.History {
		out.Recent = append(out.Recent, StatusExchange{
			ConversationID: ex.ConversationID,
			CreatedAt:      ex.CreatedAt,
			UserPreview:    ex.UserPreview,
			Stats:          model.FormatStats(ex.Telemetry),
		})
	}
	if s := st.Telemetry.Summary; s != nil {
		out.ExchangeCount = s.ExchangeCount
		out.LatencyAvgMs = s.LatencyAvg.Milliseconds()
		out.TokensDay = s.Day.TotalTokens
		out.TokensWeek = s.Week.TotalTokens
		out.TokensMonth = s.Month.TotalTokens
		out.TokensAllTime = s.AllTime.TotalTokens
	}
	return out
}

// printTelemetry prints the rolling history and the kernel summary.
func printTelemetry(st session.State) {
	fmt.Println(SectionStyle.Render("Telemetry"))
	snap := st.Telemetry
	if len(snap.History) == 0 {
		printField("Recent", DimStyle.Render("no exchanges yet"))
	}
	now := time.Now()
	for _, ex := range snap.History {
		label := formatAge(ex.CreatedAt, now)
		fmt.Printf("  %s %s\n", RenderLabel(label, 12), util.TruncateRunes(ex.UserPreview, 40))
		fmt.Printf("  %s %s\n", RenderLabel("", 12), DimStyle.Render(model.FormatStats(ex.Telemetry)))
	}

	s := snap.Summary
	if s == nil {
		return
	}
	printField("Exchanges", s.ExchangeCount)
	if s.ExchangeCount > 0 {
		printField("Latency", fmt.Sprintf("avg %s (min %s, max %s)",
			formatDurationShort(s.LatencyAvg), formatDurationShort(s.LatencyMin), formatDurationShort(s.LatencyMax)))
	}
	printField("Tokens 24h", formatWindow(s.Day))
	printField("Tokens 7d", formatWindow(s.Week))
	printField("Tokens 30d", formatWindow(s.Month))
	printField("Tokens all time", formatWindow(s.AllTime))
}

func formatWindow(w model.TokenWindow) string {
	if w.ExchangeCount == 0 {
		return "0"
	}
	return fmt.Sprintf("%s (%d exchanges, %.0f avg)", groupDigits(w.TotalTokens), w.ExchangeCount, w.AvgTokensPerExchange)
}
