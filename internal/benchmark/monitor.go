// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
)

// DefaultPollInterval is how often a running job is polled.
const DefaultPollInterval = 1200 * time.Millisecond

// MaxEvents bounds the retained job event log.
const MaxEvents = 100

// ErrAlreadyRunning is returned by Start while a job is starting or running.
var ErrAlreadyRunning = errors.New("baseline job already running")

// ErrNoJob is returned by Start when the kernel accepted the request but
// returned no job.
var ErrNoJob = errors.New("kernel returned no baseline job")

// =============================================================================
// STATE
// =============================================================================

// Phase is the monitor's lifecycle state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStarting  Phase = "starting"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether p ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Active reports whether a run is in progress.
func (p Phase) Active() bool {
	return p == PhaseStarting || p == PhaseRunning
}

// State is a snapshot of the monitor.
type State struct {
	Phase  Phase
	JobID  string
	Status *kernel.BaselineJobStatus
	Result *kernel.BaselineRun

	// Error describes why the run failed or could not start.
	Error string

	// Message is the latest human-readable status line.
	Message string

	// Events is the job's event log, at most MaxEvents entries.
	Events []string
}

// Progress returns completed/total calls as a fraction in [0, 1].
func (s State) Progress() float64 {
	if s.Status == nil || s.Status.TotalCalls <= 0 {
		if s.Phase == PhaseCompleted {
			return 1
		}
		return 0
	}
	f := float64(s.Status.CompletedCalls) / float64(s.Status.TotalCalls)
	if f > 1 {
		return 1
	}
	return f
}

func (s State) clone() State {
	out := s
	if s.Status != nil {
		st := *s.Status
		out.Status = &st
	}
	out.Events = append([]string(nil), s.Events...)
	return out
}

// Event is emitted on every transition and on every poll.
type Event struct {
	Phase    Phase
	JobID    string
	Message  string
	Terminal bool
	At       time.Time
}

// =============================================================================
// DEPENDENCIES
// =============================================================================

// JobAPI is the subset of the kernel client the monitor needs.
type JobAPI interface {
	StartBaseline(ctx context.Context, enforceMaxResponseTokens bool) (*kernel.BaselineJobStart, error)
	BaselineStatus(ctx context.Context, jobID string) (*kernel.BaselineJobStatus, error)
}

// Ticker abstracts time.Ticker so tests can drive polling.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker is the production TickerFactory.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Options configures a Monitor. Zero values select defaults.
type Options struct {
	PollInterval time.Duration
	NewTicker    TickerFactory

	// OnEvent, if set, is called for every event outside the monitor's lock.
	OnEvent func(Event)

	// EventBuffer sizes the Events channel (default 64).
	EventBuffer int

	Logger *slog.Logger
}

// =============================================================================
// MONITOR
// =============================================================================

// Monitor owns the lifecycle of one baseline job at a time. It is safe for
// concurrent use.
type Monitor struct {
	api       JobAPI
	interval  time.Duration
	newTicker TickerFactory
	onEvent   func(Event)
	events    chan Event
	log       *slog.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates an idle monitor.
func NewMonitor(api JobAPI, opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewRealTicker
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Monitor{
		api:       api,
		interval:  opts.PollInterval,
		newTicker: opts.NewTicker,
		onEvent:   opts.OnEvent,
		events:    make(chan Event, opts.EventBuffer),
		log:       opts.Logger.With("component", "benchmark"),
		state:     State{Phase: PhaseIdle},
	}
}

// Events returns the event stream. Events are dropped, with a warning, when
// the buffer is full.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Start creates a job on the kernel and begins polling it. It returns
// ErrAlreadyRunning while a run is active. Job creation happens before Start
// returns; polling continues in the background until the job ends, ctx is
// cancelled, or Dispose is called.
func (m *Monitor) Start(ctx context.Context, enforceMaxResponseTokens bool) error {
	m.mu.Lock()
	if m.state.Phase.Active() {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.state = State{Phase: PhaseStarting, Message: "Starting baseline benchmark..."}
	ev := m.eventLocked(false)
	m.mu.Unlock()
	m.emit(ev)

	resp, err := m.api.StartBaseline(runCtx, enforceMaxResponseTokens)
	if err == nil && resp == nil {
		err = ErrNoJob
	}

	m.mu.Lock()
	if gen != m.gen || runCtx.Err() != nil {
		// Disposed while the create call was in flight.
		if gen == m.gen {
			m.done = nil
		}
		m.mu.Unlock()
		cancel()
		close(done)
		m.abandon(gen)
		if err == nil {
			err = context.Canceled
		}
		return fmt.Errorf("start baseline: %w", err)
	}
	if err != nil {
		m.state.Phase = PhaseIdle
		m.state.Error = err.Error()
		m.state.Message = "Failed to start baseline: " + err.Error()
		m.cancel = nil
		m.done = nil
		ev = m.eventLocked(false)
		m.mu.Unlock()
		cancel()
		close(done)
		m.log.Warn("baseline start failed", "error", err)
		m.emit(ev)
		return fmt.Errorf("start baseline: %w", err)
	}

	m.state.Phase = PhaseRunning
	m.state.JobID = resp.JobID
	m.state.Message = fmt.Sprintf("Baseline job %s running", resp.JobID)
	ev = m.eventLocked(false)
	m.mu.Unlock()

	m.log.Info("baseline job started", "job_id", resp.JobID)
	m.emit(ev)

	go m.poll(runCtx, gen, resp.JobID, done)
	return nil
}

// Dispose stops observing the current job. In-flight polls are discarded and
// no further polls are issued. A run that already reached a terminal state is
// left as is.
func (m *Monitor) Dispose() {
	m.mu.Lock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if !m.state.Phase.Active() {
		m.mu.Unlock()
		return
	}
	jobID := m.state.JobID
	m.state.Phase = PhaseIdle
	m.state.Message = "Stopped watching baseline job"
	ev := m.eventLocked(false)
	m.mu.Unlock()

	m.log.Info("baseline monitoring disposed", "job_id", jobID)
	m.emit(ev)
}

// Wait blocks until the current run stops polling or ctx is done, and
// returns the resulting state.
func (m *Monitor) Wait(ctx context.Context) (State, error) {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return m.Snapshot(), ctx.Err()
		}
	}
	return m.Snapshot(), nil
}

// poll runs until the job is terminal or runCtx is cancelled.
func (m *Monitor) poll(runCtx context.Context, gen uint64, jobID string, done chan struct{}) {
	defer close(done)

	ticker := m.newTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			m.abandon(gen)
			return
		case <-ticker.C():
		}

		status, err := m.api.BaselineStatus(runCtx, jobID)
		if stop := m.apply(runCtx, gen, status, err); stop {
			return
		}
	}
}

// apply folds one poll result into state. It returns true when polling must
// stop.
func (m *Monitor) apply(runCtx context.Context, gen uint64, status *kernel.BaselineJobStatus, err error) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return true
	}
	if runCtx.Err() != nil {
		m.mu.Unlock()
		m.abandon(gen)
		return true
	}

	switch {
	case err != nil:
		m.state.Phase = PhaseFailed
		m.state.Error = err.Error()
		m.state.Message = "Baseline status check failed: " + err.Error()
	case status == nil:
		m.state.Phase = PhaseFailed
		m.state.Error = "empty status response"
		m.state.Message = "Baseline status check failed: empty status response"
	default:
		st := *status
		m.state.Status = &st
		m.state.Events = capEvents(st.Events)
		switch st.Status {
		case kernel.JobStatusCompleted:
			m.state.Phase = PhaseCompleted
			m.state.Result = st.Result
			m.state.Message = fmt.Sprintf("Baseline completed: %d/%d calls", st.CompletedCalls, st.TotalCalls)
		case kernel.JobStatusFailed:
			m.state.Phase = PhaseFailed
			m.state.Error = st.Error
			if m.state.Error == "" {
				m.state.Error = "job reported failure"
			}
			m.state.Message = "Baseline job failed: " + m.state.Error
		default:
			step := st.CurrentStep
			if step == "" {
				step = "running"
			}
			m.state.Message = fmt.Sprintf("Baseline %d/%d: %s", st.CompletedCalls, st.TotalCalls, step)
		}
	}

	terminal := m.state.Phase.Terminal()
	if terminal && m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	ev := m.eventLocked(terminal)
	m.mu.Unlock()

	if terminal {
		m.log.Info("baseline job finished", "job_id", ev.JobID, "phase", ev.Phase)
	}
	m.emit(ev)
	return terminal
}

// abandon moves an active run back to idle after the caller's context was
// cancelled. Runs superseded by Dispose or a newer Start are ignored.
func (m *Monitor) abandon(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.state.Phase.Active() {
		m.mu.Unlock()
		return
	}
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state.Phase = PhaseIdle
	m.state.Message = "Stopped watching baseline job"
	ev := m.eventLocked(false)
	m.mu.Unlock()
	m.emit(ev)
}

func (m *Monitor) eventLocked(terminal bool) Event {
	return Event{
		Phase:    m.state.Phase,
		JobID:    m.state.JobID,
		Message:  m.state.Message,
		Terminal: terminal,
		At:       time.Now(),
	}
}

func (m *Monitor) emit(ev Event) {
	if m.onEvent != nil {
		m.onEvent(ev)
	}
	select {
	case m.events <- ev:
	default:
		m.log.Warn("benchmark event dropped, channel full", "phase", ev.Phase)
	}
}

func capEvents(events []string) []string {
	if len(events) > MaxEvents {
		events = events[len(events)-MaxEvents:]
	}
	return append([]string(nil), events...)
}
