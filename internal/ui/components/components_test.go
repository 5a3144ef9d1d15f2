// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ifinspire/aigent/internal/benchmark"
	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/telemetry"
	"github.com/ifinspire/aigent/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewThemeFor("dark")
}

func intPtr(n int) *int { return &n }

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestFmtNumber(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
		{-4096, "-4,096"},
	}
	for _, tt := range tests {
		if got := fmtNumber(tt.in); got != tt.want {
			t.Errorf("fmtNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFmtTokensShort(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{950, "950"},
		{1200, "1.2k"},
		{4096, "4.1k"},
		{32768, "32k"},
	}
	for _, tt := range tests {
		if got := fmtTokensShort(tt.in); got != tt.want {
			t.Errorf("fmtTokensShort(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFmtLatency(t *testing.T) {
	if got := fmtLatency(850 * time.Millisecond); got != "850ms" {
		t.Errorf("fmtLatency(850ms) = %q", got)
	}
	if got := fmtLatency(1250 * time.Millisecond); got != "1.2s" && got != "1.3s" {
		t.Errorf("fmtLatency(1.25s) = %q", got)
	}
}

// =============================================================================
// CONTEXT BAR TESTS
// =============================================================================

func TestContextBar_View(t *testing.T) {
	cb := NewContextBar(testTheme())
	cb.SetWidth(100)
	cb.SetUsage(ctxwin.Usage{EstimatedTokens: 1234, MaxContext: 4096, TriggerTokens: 3276, Pct: 30}, ctxwin.Projection{}, "")

	view := cb.View()
	for _, want := range []string{"Context", "1,234", "4,096", "30%", "trigger 79%"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() = %q, should contain %q", view, want)
		}
	}
	if cb.Height() != 1 {
		t.Errorf("Height() = %d, want 1", cb.Height())
	}
}

func TestContextBar_ProjectionAndValidation(t *testing.T) {
	cb := NewContextBar(testTheme())
	cb.SetWidth(120)
	cb.SetUsage(
		ctxwin.Usage{EstimatedTokens: 5000, MaxContext: 4096, Pct: 122, Exceeds: true, IncludesCompactInstructions: true},
		ctxwin.Projection{Applied: true, EstimatedBefore: 5000, EstimatedAfter: 3000, DroppedMessages: 2, Fits: true},
		"message needs ~5000 tokens",
	)

	view := cb.View()
	for _, want := range []string{"compaction instructions", "5,000 -> 3,000", "dropping 2 older messages", "needs ~5000"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() should contain %q, got %q", want, view)
		}
	}
	if cb.Height() != 2 {
		t.Errorf("Height() = %d, want 2", cb.Height())
	}
	if lines := strings.Count(view, "\n") + 1; lines != cb.Height() {
		t.Errorf("View() has %d lines, Height() = %d", lines, cb.Height())
	}
}

func TestContextBar_RenderCompact(t *testing.T) {
	cb := NewContextBar(testTheme())
	cb.SetUsage(ctxwin.Usage{EstimatedTokens: 1200, MaxContext: 32768, Pct: 4}, ctxwin.Projection{}, "")
	if got := cb.RenderCompact(); !strings.Contains(got, "ctx 1.2k/32k 4%") {
		t.Errorf("RenderCompact() = %q", got)
	}
}

// =============================================================================
// HEADER TESTS
// =============================================================================

func TestHeader_WarmLabel(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		want  string
	}{
		{"unknown", session.State{}, "connecting"},
		{"warming", session.State{Health: session.Health{Reachable: true, CheckedAt: time.Now()}, Warm: session.Warming}, "warming"},
		{"warm", session.State{Health: session.Health{Reachable: true, CheckedAt: time.Now()}, Warm: session.Warm}, "warm"},
		{"cold", session.State{Health: session.Health{Reachable: true, CheckedAt: time.Now()}, Warm: session.Cold}, "cold"},
		{"offline", session.State{Health: session.Health{Reachable: false, CheckedAt: time.Now()}, Warm: session.Warm}, "offline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeader(testTheme())
			h.SetState(tt.state)
			got, _ := h.WarmLabel()
			if !strings.Contains(got, tt.want) {
				t.Errorf("WarmLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeader_View(t *testing.T) {
	h := NewHeader(testTheme())
	h.SetWidth(100)
	h.SetState(session.State{
		Initialized:   true,
		Health:        session.Health{Reachable: true, Model: "llama3.2:3b", CheckedAt: time.Now()},
		Warm:          session.Warm,
		Conversations: []model.ConversationSummary{{ID: "c1", Title: "Trip planning"}},
		ActiveID:      "c1",
	})

	view := h.View()
	for _, want := range []string{"aigent", "Trip planning", "llama3.2:3b", "warm"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() = %q, should contain %q", view, want)
		}
	}
	if w := lipgloss.Width(view); w > 100 {
		t.Errorf("View() width = %d, want <= 100", w)
	}
}

func TestHeader_NewChatTitle(t *testing.T) {
	h := NewHeader(testTheme())
	h.SetWidth(100)
	h.SetState(session.State{Initialized: true})
	if !strings.Contains(h.View(), "New chat") {
		t.Error("an initialized session without an active conversation should show New chat")
	}
}

// =============================================================================
// STATUS BAR TESTS
// =============================================================================

func TestStatusBar_TelemetryText(t *testing.T) {
	sb := NewStatusBar(testTheme())

	if got := sb.TelemetryText(); got != "no exchanges yet" {
		t.Errorf("empty TelemetryText() = %q", got)
	}

	sb.SetTelemetry(telemetry.Snapshot{
		Current: model.Metrics{TotalLatency: 1500 * time.Millisecond, TotalTokens: intPtr(2048)},
		Session: telemetry.SessionTotals{Exchanges: 3},
	})
	got := sb.TelemetryText()
	for _, want := range []string{"1.5s", "2,048 tok", "3 this session"} {
		if !strings.Contains(got, want) {
			t.Errorf("TelemetryText() = %q, should contain %q", got, want)
		}
	}

	sb.SetTelemetry(telemetry.Snapshot{Current: model.DegradedMetrics{}})
	if got := sb.TelemetryText(); got != "telemetry unavailable" {
		t.Errorf("degraded TelemetryText() = %q", got)
	}

	sb.SetProcessing(true)
	if got := sb.TelemetryText(); !strings.Contains(got, "waiting") {
		t.Errorf("processing TelemetryText() = %q", got)
	}
}

func TestStatusBar_DropsShortcutsWhenNarrow(t *testing.T) {
	sb := NewStatusBar(testTheme())
	sb.SetShortcuts([]Shortcut{{"ctrl+s", "settings"}, {"ctrl+b", "baseline"}, {"?", "help"}})

	sb.SetWidth(200)
	if !strings.Contains(sb.View(), "baseline") {
		t.Error("wide status bar should show all shortcuts")
	}

	sb.SetWidth(30)
	view := sb.View()
	if strings.Contains(view, "help") {
		t.Errorf("narrow status bar should drop trailing shortcuts, got %q", view)
	}
	if w := lipgloss.Width(view); w > 30 {
		t.Errorf("View() width = %d, want <= 30", w)
	}
}

// =============================================================================
// CONVERSATION LIST TESTS
// =============================================================================

func sampleConversations() []model.ConversationSummary {
	return []model.ConversationSummary{
		{ID: "a", Title: "First", MessageCount: 2},
		{ID: "b", Title: "Second", MessageCount: 4},
		{ID: "c", Title: "", MessageCount: 0},
	}
}

func TestConversationList_Navigation(t *testing.T) {
	l := NewConversationList(testTheme())
	l.SetSize(30, 20)
	l.SetItems(sampleConversations(), "b")

	if l.Cursor() != 1 {
		t.Fatalf("cursor should start on the active conversation, got %d", l.Cursor())
	}
	l.MoveDown()
	l.MoveDown()
	if l.Cursor() != 2 {
		t.Errorf("cursor should stop at the last row, got %d", l.Cursor())
	}
	l.MoveUp()
	l.MoveUp()
	l.MoveUp()
	if l.Cursor() != 0 {
		t.Errorf("cursor should stop at the first row, got %d", l.Cursor())
	}
	sel, ok := l.Selected()
	if !ok || sel.ID != "a" {
		t.Errorf("Selected() = %v, %v", sel, ok)
	}
}

func TestConversationList_SetItemsKeepsCursor(t *testing.T) {
	l := NewConversationList(testTheme())
	l.SetItems(sampleConversations(), "a")
	l.MoveDown() // on "b"

	// A refresh reorders the list but keeps the same active conversation.
	reordered := []model.ConversationSummary{{ID: "c"}, {ID: "b"}, {ID: "a"}}
	l.SetItems(reordered, "a")
	if sel, _ := l.Selected(); sel.ID != "b" {
		t.Errorf("cursor should follow its conversation, got %q", sel.ID)
	}

	// Selecting another conversation moves the cursor to it.
	l.SetItems(reordered, "c")
	if sel, _ := l.Selected(); sel.ID != "c" {
		t.Errorf("cursor should jump to the new active conversation, got %q", sel.ID)
	}

	// The cursor's conversation was deleted.
	l.SetItems([]model.ConversationSummary{{ID: "a"}}, "")
	if sel, ok := l.Selected(); !ok || sel.ID != "a" {
		t.Errorf("cursor should clamp into range, got %q, %v", sel.ID, ok)
	}

	l.SetItems(nil, "")
	if _, ok := l.Selected(); ok {
		t.Error("empty list should have no selection")
	}
}

func TestConversationList_View(t *testing.T) {
	l := NewConversationList(testTheme())
	l.SetSize(30, 20)
	l.SetItems(sampleConversations(), "a")

	view := l.View()
	for _, want := range []string{"Conversations (3)", "First", "Second", "New chat", "4 msgs"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() should contain %q, got %q", want, view)
		}
	}
}

// =============================================================================
// MESSAGE RENDERER TESTS
// =============================================================================

func TestMessageRenderer_Roles(t *testing.T) {
	r := NewMessageRenderer(testTheme(), 80)
	r.SetOptions(RenderOptions{Markdown: false})

	out := r.Render([]model.Message{
		{ID: "1", Role: model.RoleUser, Content: "hello there"},
		{ID: "2", Role: model.RoleAssistant, Content: "general kenobi", Reasoning: "recognize the quote"},
		model.NewErrorMessage("Failed to send message: boom"),
	})
	for _, want := range []string{"You", "hello there", "Assistant", "general kenobi", "System", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() should contain %q", want)
		}
	}
	if strings.Contains(out, "recognize the quote") {
		t.Error("reasoning should be hidden by default")
	}

	r.SetOptions(RenderOptions{ShowReasoning: true})
	if !strings.Contains(r.RenderMessage(model.Message{ID: "2", Role: model.RoleAssistant, Content: "x", Reasoning: "recognize the quote"}), "recognize the quote") {
		t.Error("reasoning should be shown when enabled")
	}
}

func TestMessageRenderer_PendingMarker(t *testing.T) {
	r := NewMessageRenderer(testTheme(), 80)
	local := model.NewUserMessage("in flight")
	if !strings.Contains(r.RenderMessage(local), "sending...") {
		t.Error("optimistic messages should be marked as sending")
	}
	if _, cached := r.cache[local.ID]; cached {
		t.Error("optimistic messages should not be cached")
	}
}

func TestMessageRenderer_CacheInvalidatedByWidth(t *testing.T) {
	r := NewMessageRenderer(testTheme(), 80)
	r.RenderMessage(model.Message{ID: "1", Role: model.RoleUser, Content: "hi"})
	if len(r.cache) != 1 {
		t.Fatalf("cache size = %d, want 1", len(r.cache))
	}
	r.SetWidth(80)
	if len(r.cache) != 1 {
		t.Error("same width should keep the cache")
	}
	r.SetWidth(100)
	if len(r.cache) != 0 {
		t.Error("new width should drop the cache")
	}
}

// =============================================================================
// TOAST TESTS
// =============================================================================

func TestToastDuration(t *testing.T) {
	if ToastDuration(session.ToastError) != ErrorToastDuration {
		t.Error("errors should use ErrorToastDuration")
	}
	if ToastDuration(session.ToastWarn) != WarningToastDuration {
		t.Error("warnings should use WarningToastDuration")
	}
	if ToastDuration(session.ToastSuccess) != DefaultToastDuration {
		t.Error("success should use DefaultToastDuration")
	}

	now := time.Now()
	fresh := session.Toast{Level: session.ToastInfo, At: now}
	if ToastExpired(fresh, now.Add(time.Second)) {
		t.Error("fresh toast should not be expired")
	}
	if !ToastExpired(fresh, now.Add(DefaultToastDuration)) {
		t.Error("toast should expire after its duration")
	}
}

func TestRenderToastStack(t *testing.T) {
	theme := testTheme()
	if RenderToastStack(theme, nil, 80) != "" {
		t.Error("no toasts should render nothing")
	}
	out := RenderToastStack(theme, []session.Toast{
		{ID: "1", Level: session.ToastError, Text: "Send failed"},
		{ID: "2", Level: session.ToastSuccess, Text: "Settings saved"},
	}, 80)
	for _, want := range []string{"Send failed", "Settings saved", styles.StatusIndicators.Error, styles.StatusIndicators.Success} {
		if !strings.Contains(out, want) {
			t.Errorf("toast stack should contain %q", want)
		}
	}
	if strings.Index(out, "Send failed") > strings.Index(out, "Settings saved") {
		t.Error("newest toast should be at the bottom")
	}
}

func TestOverlayBottom(t *testing.T) {
	if got := OverlayBottom("a\nb\nc", ""); got != "a\nb\nc" {
		t.Errorf("empty overlay changed base: %q", got)
	}
	if got := OverlayBottom("a\nb\nc", "X"); got != "a\nb\nX" {
		t.Errorf("OverlayBottom = %q", got)
	}
	if got := OverlayBottom("a\nb", "X\nY\nZ"); got != "Y\nZ" {
		t.Errorf("tall overlay should keep base height, got %q", got)
	}
}

// =============================================================================
// PANEL TESTS
// =============================================================================

func TestRenderActivity(t *testing.T) {
	theme := testTheme()
	first := model.NewCapability("Loading conversations", "")
	second := model.NewCapability("Sending message", "hello").Finish(model.CapabilityError, "timeout")

	out := RenderActivity(theme, []model.CapabilityUpdate{first, second}, 60, 10)
	if strings.Index(out, "Sending message") > strings.Index(out, "Loading conversations") {
		t.Error("activity should list newest first")
	}
	if !strings.Contains(out, "timeout") || !strings.Contains(out, styles.StatusIndicators.Error) {
		t.Error("failed capability should show its error")
	}

	limited := RenderActivity(theme, []model.CapabilityUpdate{first, second}, 60, 1)
	if strings.Contains(limited, "Loading conversations") {
		t.Error("limit should hide older entries")
	}
}

func TestRenderTelemetry(t *testing.T) {
	snap := telemetry.Snapshot{
		Current: model.Metrics{TotalLatency: time.Second, PromptTokens: intPtr(100), CompletionTokens: intPtr(20)},
		History: []model.PerfExchange{{ID: "e1", UserPreview: "what is the weather", Telemetry: model.DegradedMetrics{}}},
		Session: telemetry.SessionTotals{Exchanges: 2, Degraded: 1, PromptTokens: 100, CompletionTokens: 20, TotalLatency: time.Second},
		Summary: &model.PerfSummary{ExchangeCount: 9, AllTime: model.TokenWindow{TotalTokens: 12000, ExchangeCount: 9}},
	}
	out := RenderTelemetry(testTheme(), snap, 90)
	for _, want := range []string{"Latest exchange", "what is the weather", "2 exchanges", "1 without telemetry", "Kernel totals", "12,000 tok"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTelemetry() should contain %q", want)
		}
	}
}

func TestBenchmarkView(t *testing.T) {
	v := NewBenchmarkView(testTheme(), 100, 30)

	idle := v.View(benchmark.State{Phase: benchmark.PhaseIdle})
	if !strings.Contains(idle, "start a baseline") {
		t.Errorf("idle view = %q", idle)
	}

	running := v.View(benchmark.State{
		Phase:  benchmark.PhaseRunning,
		JobID:  "job-1",
		Status: &kernel.BaselineJobStatus{TotalCalls: 10, CompletedCalls: 4, CurrentStep: "short prompts"},
		Events: []string{"started", "case 1 done"},
	})
	for _, want := range []string{"4/10 calls", "short prompts", "case 1 done"} {
		if !strings.Contains(running, want) {
			t.Errorf("running view should contain %q", want)
		}
	}

	done := v.View(benchmark.State{
		Phase:   benchmark.PhaseCompleted,
		Message: "Baseline completed: 10/10 calls",
		Result:  &kernel.BaselineRun{Model: "llama3.2:3b", TotalCalls: 10},
	})
	if !strings.Contains(done, "llama3.2:3b") {
		t.Error("completed view should include the report")
	}

	failed := v.View(benchmark.State{Phase: benchmark.PhaseFailed, Message: "Baseline job failed: ollama down"})
	if !strings.Contains(failed, "ollama down") {
		t.Error("failed view should show the error")
	}
}

// =============================================================================
// SETTINGS FORM TESTS
// =============================================================================

func TestSettingsForm_PrefillAndFocus(t *testing.T) {
	f := NewSettingsForm(testTheme(), model.ContextSettings{
		MaxContextTokens: 4096, MaxResponseTokens: 512, CompactTriggerPct: 0.8, CompactInstructions: "be brief",
	})

	in := f.Input()
	if in.MaxResponseTokens != "512" || in.CompactTriggerPct != "0.8" || in.CompactInstructions != "be brief" {
		t.Errorf("Input() = %+v", in)
	}

	if f.Focus() != FieldMaxResponseTokens {
		t.Errorf("initial focus = %d", f.Focus())
	}
	f.NextField()
	f.NextField()
	f.NextField()
	if f.Focus() != FieldMaxResponseTokens {
		t.Errorf("focus should wrap forward, got %d", f.Focus())
	}
	f.PrevField()
	if f.Focus() != FieldInstructions {
		t.Errorf("focus should wrap backward, got %d", f.Focus())
	}
}

func TestSettingsForm_Validate(t *testing.T) {
	base := model.ContextSettings{MaxContextTokens: 4096, MaxResponseTokens: 512, CompactTriggerPct: 0.8}
	f := NewSettingsForm(testTheme(), base)

	f.inputs[FieldTriggerPct].SetValue("abc")
	if _, ok := f.Validate(); ok {
		t.Fatal("malformed trigger should not validate")
	}
	if !f.HasErrors() {
		t.Error("validation error should be recorded")
	}
	if !strings.Contains(f.View(), "not a number") {
		t.Error("field error should be rendered")
	}

	f.inputs[FieldTriggerPct].SetValue("0.5")
	out, ok := f.Validate()
	if !ok {
		t.Fatal("valid input should validate")
	}
	if out.CompactTriggerPct != 0.5 || f.HasErrors() {
		t.Errorf("Validate() = %+v, errors %v", out, f.HasErrors())
	}

	f.SetError(errors.New("kernel unavailable"))
	if !strings.Contains(f.View(), "kernel unavailable") {
		t.Error("generic errors should be rendered")
	}
}
