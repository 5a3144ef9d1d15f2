// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ifinspire/aigent/internal/benchmark"
	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/telemetry"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSendInFlight is returned when SendMessage is called while another
	// send has not finished. Nothing is sent.
	ErrSendInFlight = errors.New("a message is already being sent")

	// ErrEmptyMessage is returned for a blank message.
	ErrEmptyMessage = errors.New("message is empty")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is the kernel surface the controller drives. *kernel.Client
// implements it.
type Backend interface {
	benchmark.JobAPI
	telemetry.SummaryFetcher

	Health(ctx context.Context) (*kernel.HealthResponse, error)
	Warmup(ctx context.Context) (*kernel.WarmupResponse, error)
	ListConversations(ctx context.Context) ([]kernel.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (*kernel.ConversationDetail, error)
	DeleteConversation(ctx context.Context, id string) error
	Chat(ctx context.Context, req kernel.ChatRequest) (*kernel.ChatResponse, error)
	RecentPerformance(ctx context.Context, limit int) ([]kernel.PerformanceExchange, error)
	ContextSettings(ctx context.Context) (*kernel.ContextSettings, error)
	UpdateContextSettings(ctx context.Context, patch kernel.ContextSettingsPatch) (*kernel.ContextSettings, error)
	SystemPrompt(ctx context.Context) (*kernel.SystemPromptResponse, error)
	Export(ctx context.Context) (*kernel.ExportEnvelope, error)
	DeleteAllData(ctx context.Context, confirm bool) (*kernel.DeleteAllDataResponse, error)
}

// RunArchiver stores completed baseline runs. *storage.Archive implements it.
type RunArchiver interface {
	Save(ctx context.Context, id string, run *kernel.BaselineRun) (string, error)
	Clear(ctx context.Context) (int64, error)
}

// Options configures a Controller. Zero values select defaults.
type Options struct {
	Logger *slog.Logger

	// Archive, if set, receives every completed baseline run.
	Archive RunArchiver

	// PollInterval and NewTicker configure the baseline monitor.
	PollInterval time.Duration
	NewTicker    benchmark.TickerFactory

	// SubscriberBuffer sizes each Subscribe channel (default 16).
	SubscriberBuffer int
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the session state and every kernel call made on its
// behalf.
type Controller struct {
	api     Backend
	agg     *telemetry.Aggregator
	monitor *benchmark.Monitor
	archive RunArchiver
	log     *slog.Logger
	subBuf  int

	sending atomic.Bool

	mu          sync.Mutex
	state       State
	subs        map[int]chan State
	nextSub     int
	baselineCap model.CapabilityUpdate
}

// New creates a controller in InitialState.
func New(api Backend, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 16
	}

	c := &Controller{
		api:     api,
		agg:     telemetry.NewAggregator(api),
		archive: opts.Archive,
		log:     logger.With("component", "session"),
		subBuf:  opts.SubscriberBuffer,
		state:   withUsage(InitialState()),
		subs:    make(map[int]chan State),
	}
	c.monitor = benchmark.NewMonitor(api, benchmark.Options{
		PollInterval: opts.PollInterval,
		NewTicker:    opts.NewTicker,
		OnEvent:      c.onBaselineEvent,
		Logger:       logger,
	})
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel that receives the state after every change.
// A slow subscriber only ever misses intermediate states: the newest state
// replaces an unread one. The returned func unsubscribes and closes the
// channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan State, c.subBuf)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops baseline monitoring and closes all subscriptions.
func (c *Controller) Close() {
	c.monitor.Dispose()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// dispatch folds events into the state and publishes the result.
func (c *Controller) dispatch(events ...Event) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(events...)
}

func (c *Controller) applyLocked(events ...Event) State {
	for _, ev := range events {
		c.state = Reduce(c.state, ev)
	}
	snap := c.state.clone()
	for _, ch := range c.subs {
		publishLatest(ch, snap)
	}
	return snap
}

func publishLatest(ch chan State, s State) {
	select {
	case ch <- s:
		return
	default:
	}
	// Full: drop the oldest unread state and retry once.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func newToast(level ToastLevel, text string) ToastRaised {
	return ToastRaised{Toast: Toast{ID: uuid.NewString(), Level: level, Text: text, At: time.Now()}}
}

func (c *Controller) toast(level ToastLevel, text string) {
	c.dispatch(newToast(level, text))
}

// Notify raises a toast from outside the controller, e.g. a UI that wrote
// an export file.
func (c *Controller) Notify(level ToastLevel, text string) {
	c.toast(level, text)
}

// DismissToast removes a toast.
func (c *Controller) DismissToast(id string) {
	c.dispatch(ToastDismissed{ID: id})
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// Init runs the startup sequence: health check, conversation list,
// dashboard data, a best-effort warmup, then the most recent conversation.
// Only the health check and the conversation list are required; every
// other failure is reported and skipped.
func (c *Controller) Init(ctx context.Context) error {
	c.log.Info("session init")

	health, err := c.api.Health(ctx)
	if err == nil && health == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		c.log.Error("kernel health check failed", "error", err)
		c.dispatch(
			HealthChecked{Health: Health{Error: err.Error(), CheckedAt: time.Now()}},
			WarmChanged{Warm: Cold},
			newToast(ToastError, "Kernel unreachable: "+err.Error()),
		)
		return fmt.Errorf("health check: %w", err)
	}
	warm := Cold
	if health.IsWarm {
		warm = Warm
	}
	c.dispatch(HealthChecked{Health: Health{
		Reachable:     true,
		Status:        health.Status,
		Model:         health.Model,
		OllamaBaseURL: health.OllamaBaseURL,
		CheckedAt:     time.Now(),
	}}, WarmChanged{Warm: warm})
	c.log.Info("kernel healthy", "model", health.Model, "warm", health.IsWarm)

	convs, err := c.RefreshConversations(ctx)
	if err != nil {
		c.toast(ToastError, "Could not load conversations: "+err.Error())
		return err
	}

	c.RefreshDashboard(ctx)

	if err := c.Warmup(ctx); err != nil {
		c.log.Warn("model warmup failed", "error", err)
	}

	if id := mostRecent(convs); id != "" {
		if err := c.SelectConversation(ctx, id); err != nil {
			c.log.Warn("loading most recent conversation failed", "conversation_id", id, "error", err)
		}
	}

	c.dispatch(Initialized{})
	c.log.Info("session ready", "conversations", len(convs))
	return nil
}

// RefreshDashboard fetches settings, recent telemetry, the summary and the
// system prompt concurrently. Failures keep the previous values.
func (c *Controller) RefreshDashboard(ctx context.Context) {
	var g errgroup.Group

	g.Go(func() error {
		if _, err := c.LoadSettings(ctx); err != nil {
			c.toast(ToastWarn, "Could not load context settings; using defaults")
		}
		return nil
	})

	g.Go(func() error {
		recent, err := c.api.RecentPerformance(ctx, telemetry.HistoryLimit)
		if err != nil {
			c.log.Warn("loading recent performance failed", "error", err)
			return nil
		}
		exchanges := make([]model.PerfExchange, 0, len(recent))
		for _, e := range recent {
			exchanges = append(exchanges, model.ExchangeFromWire(e))
		}
		c.agg.Seed(exchanges)
		return nil
	})

	g.Go(func() error {
		_ = c.agg.RefreshSummary(ctx)
		return nil
	})

	g.Go(func() error {
		sp, err := c.api.SystemPrompt(ctx)
		if err != nil || sp == nil {
			c.log.Debug("loading system prompt failed", "error", err)
			return nil
		}
		c.dispatch(SystemPromptLoaded{Chars: ctxwin.CountChars(sp.Prompt)})
		return nil
	})

	_ = g.Wait()
	c.dispatch(TelemetryUpdated{Snapshot: c.agg.Snapshot()})
}

// Warmup asks the kernel to load the model. Failure only moves the warm
// indicator to cold.
func (c *Controller) Warmup(ctx context.Context) error {
	c.dispatch(WarmChanged{Warm: Warming})
	resp, err := c.api.Warmup(ctx)
	if err == nil && resp == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		c.dispatch(WarmChanged{Warm: Cold})
		return fmt.Errorf("warmup: %w", err)
	}
	warm := Cold
	if resp.OK {
		warm = Warm
	}
	c.log.Info("model warmup finished", "status", resp.Status, "latency_ms", resp.LatencyMs)
	c.dispatch(WarmChanged{Warm: warm})
	return nil
}

func mostRecent(convs []model.ConversationSummary) string {
	best := -1
	for i, conv := range convs {
		if best < 0 || conv.UpdatedAt.After(convs[best].UpdatedAt) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return convs[best].ID
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// RefreshConversations reloads the sidebar list.
func (c *Controller) RefreshConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	list, err := c.api.ListConversations(ctx)
	if err != nil {
		c.log.Warn("listing conversations failed", "error", err)
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	convs := model.ConversationsFromWire(list)
	c.dispatch(ConversationsLoaded{Conversations: convs})
	return convs, nil
}

// SelectConversation makes id active and loads its messages. An empty id
// starts a new chat.
func (c *Controller) SelectConversation(ctx context.Context, id string) error {
	if id == "" {
		c.NewChat()
		return nil
	}
	c.log.Info("conversation selected", "conversation_id", id)
	c.dispatch(ConversationSelected{ID: id})
	return c.loadConversation(ctx, id)
}

func (c *Controller) loadConversation(ctx context.Context, id string) error {
	detail, err := c.api.GetConversation(ctx, id)
	if err == nil && detail == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		c.log.Warn("loading conversation failed", "conversation_id", id, "error", err)
		if kernel.IsNotFound(err) {
			// Gone on the kernel side; drop it and move on.
			st := c.dispatch(ConversationDeleted{ID: id}, newToast(ToastWarn, "Conversation no longer exists"))
			if st.Loading && st.ActiveID != "" {
				return c.loadConversation(ctx, st.ActiveID)
			}
			return fmt.Errorf("load conversation %s: %w", id, err)
		}
		c.dispatch(ConversationLoadFailed{ID: id, Err: err.Error()},
			newToast(ToastError, "Could not load conversation: "+err.Error()))
		return fmt.Errorf("load conversation %s: %w", id, err)
	}
	c.dispatch(ConversationLoaded{ID: id, Messages: model.MessagesFromWire(detail.Messages)})
	return nil
}

// NewChat clears the active conversation. The kernel creates the
// conversation on the first send.
func (c *Controller) NewChat() {
	c.log.Info("new chat")
	c.dispatch(NewChatStarted{})
}

// DeleteConversation deletes id on the kernel and locally. Deleting the
// active conversation loads the next one, or clears the view if none
// remain. A conversation the kernel no longer has is removed as well.
func (c *Controller) DeleteConversation(ctx context.Context, id string) error {
	before := c.State()
	title := id
	if i := model.IndexOfConversation(before.Conversations, id); i >= 0 {
		title = before.Conversations[i].DisplayTitle()
	}
	capUpd := model.NewCapability("Deleting conversation", title)
	c.dispatch(CapabilityChanged{Update: capUpd})

	if err := c.api.DeleteConversation(ctx, id); err != nil && !kernel.IsNotFound(err) {
		c.log.Warn("delete conversation failed", "conversation_id", id, "error", err)
		c.dispatch(CapabilityChanged{Update: capUpd.Finish(model.CapabilityError, err.Error())},
			newToast(ToastError, "Delete failed: "+err.Error()))
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}

	st := c.dispatch(ConversationDeleted{ID: id},
		CapabilityChanged{Update: capUpd.Finish(model.CapabilitySuccess, "Deleted "+title)})
	c.log.Info("conversation deleted", "conversation_id", id, "next_active", st.ActiveID)

	if id == before.ActiveID && st.ActiveID != "" {
		return c.loadConversation(ctx, st.ActiveID)
	}
	return nil
}

// =============================================================================
// SENDING
// =============================================================================

// EstimateDraft records the draft and returns its usage estimate.
func (c *Controller) EstimateDraft(draft string) ctxwin.Usage {
	return c.dispatch(DraftChanged{Draft: draft}).Usage
}

// SendMessage sends one chat turn. It returns ErrSendInFlight, without any
// network call, while another send is outstanding, and a
// *ctxwin.OverflowError when the message cannot fit and no compaction
// instructions are configured. The user's message stays visible even when
// the send fails.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !c.sending.CompareAndSwap(false, true) {
		c.log.Debug("send ignored, another send in flight")
		return ErrSendInFlight
	}

	resp, err := c.send(ctx, text)
	c.sending.Store(false)
	if err != nil || resp == nil {
		return err
	}

	if _, err := c.RefreshConversations(ctx); err != nil {
		c.log.Warn("refresh after send failed", "error", err)
	}
	if err := c.agg.RefreshSummary(ctx); err == nil {
		c.dispatch(TelemetryUpdated{Snapshot: c.agg.Snapshot()})
	}
	return nil
}

func (c *Controller) send(ctx context.Context, text string) (*kernel.ChatResponse, error) {
	st := c.State()
	usage := ctxwin.EstimateUsage(ctxwin.HistoryTexts(st.Messages), text, st.Settings)
	if err := ctxwin.CheckSend(usage, st.Settings); err != nil {
		c.log.Info("send blocked", "estimated_tokens", usage.EstimatedTokens, "max_context", usage.MaxContext)
		c.dispatch(DraftChanged{Draft: text}, SendBlocked{Reason: err.Error()})
		return nil, err
	}

	origin := st.ActiveID
	user := model.NewUserMessage(text)
	capUpd := model.NewCapability("Sending message", user.Preview(60))
	c.log.Info("send start", "conversation_id", origin, "estimated_tokens", usage.EstimatedTokens)
	c.dispatch(SendStarted{Origin: origin, User: user, Capability: capUpd})

	started := time.Now()
	resp, err := c.api.Chat(ctx, kernel.ChatRequest{Message: text, ConversationID: origin})
	if err == nil && resp == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		c.log.Warn("send failed", "conversation_id", origin, "error", err)
		c.dispatch(
			SendFailed{
				Origin:     origin,
				Error:      model.NewErrorMessage("Failed to send message: " + err.Error()),
				Capability: capUpd.Finish(model.CapabilityError, err.Error()),
			},
			newToast(ToastError, "Send failed: "+err.Error()),
		)
		return nil, fmt.Errorf("send message: %w", err)
	}

	assistant := model.MessageFromWire(resp.AssistantMessage)
	tele := model.TelemetryFromWire(resp.Performance)
	c.agg.Record(model.PerfExchange{
		ID:               resp.AssistantMessage.ID,
		ConversationID:   resp.ConversationID,
		CreatedAt:        assistant.Timestamp,
		UserPreview:      util.Preview(text, 80),
		AssistantPreview: assistant.Preview(80),
		Telemetry:        tele,
	})

	events := []Event{
		SendSucceeded{
			Origin:         origin,
			ConversationID: resp.ConversationID,
			LocalUserID:    user.ID,
			User:           model.MessageFromWire(resp.UserMessage),
			Assistant:      assistant,
			Capability:     capUpd.Finish(model.CapabilitySuccess, model.FormatStats(tele)),
		},
		TelemetryUpdated{Snapshot: c.agg.Snapshot()},
	}
	if m, ok := tele.(model.Metrics); ok && m.Breakdown.SystemChars > 0 {
		events = append(events, SystemPromptLoaded{Chars: m.Breakdown.SystemChars})
	}
	if !tele.Available() {
		c.log.Warn("response carried no telemetry", "conversation_id", resp.ConversationID)
		if c.agg.NoteDegraded() {
			events = append(events, newToast(ToastWarn, "Telemetry unavailable for this response; showing empty metrics"))
		}
	}
	c.dispatch(events...)

	c.log.Info("send finished", "conversation_id", resp.ConversationID, "elapsed", time.Since(started))
	return resp, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// LoadSettings fetches the context settings. On error the current settings
// are kept.
func (c *Controller) LoadSettings(ctx context.Context) (model.ContextSettings, error) {
	resp, err := c.api.ContextSettings(ctx)
	if err == nil && resp == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		c.log.Warn("loading context settings failed", "error", err)
		return c.State().Settings, fmt.Errorf("load settings: %w", err)
	}
	settings := model.SettingsFromWire(*resp)
	c.dispatch(SettingsLoaded{Settings: settings})
	return settings, nil
}

// SaveSettings validates in against the current settings and persists the
// editable fields. Invalid input never reaches the kernel.
func (c *Controller) SaveSettings(ctx context.Context, in model.SettingsInput) (model.ContextSettings, error) {
	current := c.State().Settings
	next, err := in.Apply(current)
	if err != nil {
		c.dispatch(SettingsRejected{Reason: err.Error()})
		return current, err
	}

	resp, err := c.api.UpdateContextSettings(ctx, next.Patch())
	if err == nil && resp == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		c.log.Warn("saving context settings failed", "error", err)
		c.dispatch(SettingsRejected{Reason: err.Error()},
			newToast(ToastError, "Could not save settings: "+err.Error()))
		return current, fmt.Errorf("save settings: %w", err)
	}

	saved := model.SettingsFromWire(*resp)
	c.dispatch(SettingsLoaded{Settings: saved}, newToast(ToastSuccess, "Context settings saved"))
	c.log.Info("context settings saved",
		"max_response_tokens", saved.MaxResponseTokens,
		"compact_trigger_pct", saved.CompactTriggerPct)
	return saved, nil
}

// =============================================================================
// BASELINE
// =============================================================================

// StartBaseline starts a baseline job and follows it in the background.
// It returns benchmark.ErrAlreadyRunning while a job is being followed.
func (c *Controller) StartBaseline(ctx context.Context, enforceMaxResponseTokens bool) error {
	err := c.monitor.Start(ctx, enforceMaxResponseTokens)
	switch {
	case errors.Is(err, benchmark.ErrAlreadyRunning):
		c.toast(ToastInfo, "A baseline job is already running")
	case err != nil:
		c.toast(ToastError, "Baseline failed to start: "+err.Error())
	}
	return err
}

// DisposeBaseline stops following the current job. The kernel job itself
// keeps running.
func (c *Controller) DisposeBaseline() {
	c.monitor.Dispose()
}

// WaitBaseline blocks until the followed job stops polling.
func (c *Controller) WaitBaseline(ctx context.Context) (benchmark.State, error) {
	return c.monitor.Wait(ctx)
}

// onBaselineEvent mirrors the monitor into the session state. It runs on the
// monitor's goroutines, never while the monitor holds its own lock.
func (c *Controller) onBaselineEvent(ev benchmark.Event) {
	c.mu.Lock()
	snap := c.monitor.Snapshot()
	events := []Event{BaselineUpdated{State: snap}}

	switch {
	case ev.Phase == benchmark.PhaseStarting:
		c.baselineCap = model.NewCapability("Baseline benchmark", ev.Message)
		events = append(events, CapabilityChanged{Update: c.baselineCap})
	case c.baselineCap.ID != "" && !c.baselineCap.Done():
		switch ev.Phase {
		case benchmark.PhaseCompleted:
			c.baselineCap = c.baselineCap.Finish(model.CapabilitySuccess, ev.Message)
		case benchmark.PhaseFailed, benchmark.PhaseIdle:
			c.baselineCap = c.baselineCap.Finish(model.CapabilityError, ev.Message)
		default:
			c.baselineCap.Detail = ev.Message
			c.baselineCap.UpdatedAt = ev.At
		}
		events = append(events, CapabilityChanged{Update: c.baselineCap})
	}

	if ev.Terminal {
		if snap.Phase == benchmark.PhaseCompleted {
			events = append(events, newToast(ToastSuccess, ev.Message))
		} else {
			events = append(events, newToast(ToastError, ev.Message))
		}
	}
	c.applyLocked(events...)
	c.mu.Unlock()

	if ev.Terminal && snap.Phase == benchmark.PhaseCompleted && snap.Result != nil && c.archive != nil {
		c.archiveRun(snap.JobID, snap.Result)
	}
}

func (c *Controller) archiveRun(jobID string, run *kernel.BaselineRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := c.archive.Save(ctx, jobID, run)
	if err != nil {
		c.log.Warn("archiving baseline run failed", "job_id", jobID, "error", err)
		return
	}
	c.log.Info("baseline run archived", "id", id)
}

// =============================================================================
// DATA
// =============================================================================

// ExportAll downloads the kernel's full data export.
func (c *Controller) ExportAll(ctx context.Context) (*kernel.ExportEnvelope, error) {
	capUpd := model.NewCapability("Exporting data", "Downloading export")
	c.dispatch(CapabilityChanged{Update: capUpd})

	env, err := c.api.Export(ctx)
	if err == nil && env == nil {
		err = kernel.ErrEmptyResponse
	}
	if err != nil {
		c.log.Warn("export failed", "error", err)
		c.dispatch(CapabilityChanged{Update: capUpd.Finish(model.CapabilityError, err.Error())},
			newToast(ToastError, "Export failed: "+err.Error()))
		return nil, fmt.Errorf("export: %w", err)
	}

	c.dispatch(CapabilityChanged{Update: capUpd.Finish(model.CapabilitySuccess, "Export ready ("+env.Version+")")})
	return env, nil
}

// DeleteAllData wipes the kernel's data, the local baseline archive and the
// session's telemetry. It requires confirm; without it nothing is sent.
func (c *Controller) DeleteAllData(ctx context.Context, confirm bool) (*kernel.DeleteAllDataResponse, error) {
	if !confirm {
		return nil, kernel.ErrConfirmationRequired
	}
	capUpd := model.NewCapability("Deleting all data", "")
	c.dispatch(CapabilityChanged{Update: capUpd})

	resp, err := c.api.DeleteAllData(ctx, true)
	if err != nil {
		c.log.Warn("delete all data failed", "error", err)
		c.dispatch(CapabilityChanged{Update: capUpd.Finish(model.CapabilityError, err.Error())},
			newToast(ToastError, "Delete failed: "+err.Error()))
		return nil, fmt.Errorf("delete all data: %w", err)
	}
	if resp == nil {
		resp = &kernel.DeleteAllDataResponse{OK: true}
	}

	c.monitor.Dispose()
	if c.archive != nil {
		if n, err := c.archive.Clear(ctx); err != nil {
			c.log.Warn("clearing baseline archive failed", "error", err)
		} else {
			c.log.Info("baseline archive cleared", "runs", n)
		}
	}
	c.agg.Reset()

	c.dispatch(DataCleared{},
		CapabilityChanged{Update: capUpd.Finish(model.CapabilitySuccess, "Kernel data deleted")},
		newToast(ToastSuccess, "All data deleted"))
	c.log.Info("all data deleted")
	return resp, nil
}
