// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifinspire/aigent/internal/kernel"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

// tick fires the ticker without blocking if nobody is listening.
func (f *fakeTicker) tick() {
	select {
	case f.ch <- time.Now():
	default:
	}
}

type fakeAPI struct {
	mu          sync.Mutex
	startErr    error
	startEmpty  bool
	startGate   chan struct{}
	statuses    []*kernel.BaselineJobStatus
	statusErr   error
	statusGate  chan struct{}
	startCalls  int
	statusCalls int
	entered     chan struct{}
}

func (f *fakeAPI) StartBaseline(ctx context.Context, enforce bool) (*kernel.BaselineJobStart, error) {
	f.mu.Lock()
	f.startCalls++
	gate := f.startGate
	err := f.startErr
	empty := f.startEmpty
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil || empty {
		return nil, err
	}
	return &kernel.BaselineJobStart{JobID: "job-1", Status: "running"}, nil
}

func (f *fakeAPI) BaselineStatus(ctx context.Context, jobID string) (*kernel.BaselineJobStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	idx := f.statusCalls - 1
	gate := f.statusGate
	entered := f.entered
	err := f.statusErr
	var st *kernel.BaselineJobStatus
	if len(f.statuses) > 0 {
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		st = f.statuses[idx]
	}
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return st, err
}

func (f *fakeAPI) calls() (start, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.statusCalls
}

func running(done int) *kernel.BaselineJobStatus {
	return &kernel.BaselineJobStatus{
		JobID: "job-1", Status: kernel.JobStatusRunning,
		TotalCalls: 34, CompletedCalls: done, CurrentStep: fmt.Sprintf("case %d", done),
	}
}

func completed() *kernel.BaselineJobStatus {
	return &kernel.BaselineJobStatus{
		JobID: "job-1", Status: kernel.JobStatusCompleted,
		TotalCalls: 34, CompletedCalls: 34,
		Result: &kernel.BaselineRun{Model: "qwen3:8b", TotalCalls: 34},
	}
}

type harness struct {
	mon     *Monitor
	api     *fakeAPI
	tickers chan *fakeTicker
	events  chan Event
}

func newHarness(api *fakeAPI) *harness {
	h := &harness{
		api:     api,
		tickers: make(chan *fakeTicker, 4),
		events:  make(chan Event, 256),
	}
	h.mon = NewMonitor(api, Options{
		PollInterval: time.Millisecond,
		NewTicker: func(time.Duration) Ticker {
			tk := &fakeTicker{ch: make(chan time.Time, 1)}
			h.tickers <- tk
			return tk
		},
		OnEvent: func(ev Event) { h.events <- ev },
	})
	return h
}

func (h *harness) ticker(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-h.tickers:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("poller never created a ticker")
		return nil
	}
}

// next waits for the next event.
func (h *harness) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (h *harness) drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func waitDone(t *testing.T, m *Monitor) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := m.Wait(ctx)
	require.NoError(t, err)
	return st
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestMonitor_RunToCompletion(t *testing.T) {
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{running(5), completed()}}
	h := newHarness(api)

	require.NoError(t, h.mon.Start(context.Background(), true))
	assert.Equal(t, PhaseStarting, h.next(t).Phase)
	ev := h.next(t)
	assert.Equal(t, PhaseRunning, ev.Phase)
	assert.Equal(t, "job-1", ev.JobID)

	tk := h.ticker(t)
	tk.tick()
	progress := h.next(t)
	assert.Equal(t, PhaseRunning, progress.Phase)
	assert.Contains(t, progress.Message, "5/34")

	tk.tick()
	final := h.next(t)
	assert.Equal(t, PhaseCompleted, final.Phase)
	assert.True(t, final.Terminal)

	st := waitDone(t, h.mon)
	assert.Equal(t, PhaseCompleted, st.Phase)
	require.NotNil(t, st.Result)
	assert.Equal(t, "qwen3:8b", st.Result.Model)
	assert.Equal(t, 1.0, st.Progress())
	assert.True(t, tk.stopped.Load())
}

func TestMonitor_NoPollsAfterTerminal(t *testing.T) {
	for _, last := range []*kernel.BaselineJobStatus{
		completed(),
		{JobID: "job-1", Status: kernel.JobStatusFailed, Error: "ollama down"},
	} {
		t.Run(last.Status, func(t *testing.T) {
			api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{running(1), last}}
			h := newHarness(api)
			require.NoError(t, h.mon.Start(context.Background(), true))

			tk := h.ticker(t)
			tk.tick()
			h.next(t) // starting
			h.next(t) // running
			h.next(t) // progress
			tk.tick()
			require.True(t, h.next(t).Terminal)
			waitDone(t, h.mon)

			// Advance simulated time well past the terminal state.
			for i := 0; i < 10; i++ {
				tk.tick()
			}
			time.Sleep(20 * time.Millisecond)

			_, statusCalls := api.calls()
			assert.Equal(t, 2, statusCalls)

			terminal := 0
			for _, ev := range h.drain() {
				if ev.Terminal {
					terminal++
				}
			}
			assert.Equal(t, 0, terminal, "exactly one terminal event")
		})
	}
}

func TestMonitor_RejectsStartWhileRunning(t *testing.T) {
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{running(1)}}
	h := newHarness(api)

	require.NoError(t, h.mon.Start(context.Background(), true))
	err := h.mon.Start(context.Background(), true)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	start, _ := api.calls()
	assert.Equal(t, 1, start)
	assert.Equal(t, PhaseRunning, h.mon.Snapshot().Phase)
	h.mon.Dispose()
}

func TestMonitor_RejectsStartWhileStarting(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{startGate: gate}
	h := newHarness(api)

	errc := make(chan error, 1)
	go func() { errc <- h.mon.Start(context.Background(), false) }()
	require.Equal(t, PhaseStarting, h.next(t).Phase)

	assert.True(t, errors.Is(h.mon.Start(context.Background(), false), ErrAlreadyRunning))

	close(gate)
	require.NoError(t, <-errc)
	h.mon.Dispose()
}

func TestMonitor_StartFailureReturnsToIdle(t *testing.T) {
	api := &fakeAPI{startErr: &kernel.ClientError{Type: kernel.ErrTypeHTTP, StatusCode: 500, Message: "Internal Server Error"}}
	h := newHarness(api)

	err := h.mon.Start(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Internal Server Error")

	st := h.mon.Snapshot()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, "Internal Server Error", st.Error)
	assert.Empty(t, st.JobID)

	phases := []Phase{h.next(t).Phase, h.next(t).Phase}
	assert.Equal(t, []Phase{PhaseStarting, PhaseIdle}, phases, "never enters running")
	assert.Len(t, h.tickers, 0, "no poller started")

	// The monitor is usable again.
	api.mu.Lock()
	api.startErr = nil
	api.mu.Unlock()
	require.NoError(t, h.mon.Start(context.Background(), true))
	h.mon.Dispose()
}

func TestMonitor_JobFailed(t *testing.T) {
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{
		{JobID: "job-1", Status: kernel.JobStatusFailed, Error: "model not loaded"},
	}}
	h := newHarness(api)
	require.NoError(t, h.mon.Start(context.Background(), true))
	h.ticker(t).tick()

	st := waitDone(t, h.mon)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "model not loaded", st.Error)
	assert.Equal(t, "Baseline job failed: model not loaded", st.Message)
}

func TestMonitor_PollErrorFails(t *testing.T) {
	api := &fakeAPI{statusErr: errors.New("connection refused")}
	h := newHarness(api)
	require.NoError(t, h.mon.Start(context.Background(), true))
	h.ticker(t).tick()

	st := waitDone(t, h.mon)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "connection refused", st.Error)
	assert.True(t, strings.HasPrefix(st.Message, "Baseline status check failed"))
}

func TestMonitor_EmptyStatusFails(t *testing.T) {
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{running(1), nil}}
	h := newHarness(api)
	require.NoError(t, h.mon.Start(context.Background(), true))

	tk := h.ticker(t)
	tk.tick()
	h.next(t) // starting
	h.next(t) // running
	h.next(t) // progress
	tk.tick()
	require.True(t, h.next(t).Terminal)

	st := waitDone(t, h.mon)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "empty status response", st.Error)

	for i := 0; i < 10; i++ {
		tk.tick()
	}
	time.Sleep(20 * time.Millisecond)
	_, statusCalls := api.calls()
	assert.Equal(t, 2, statusCalls)
}

func TestMonitor_EmptyStartReturnsToIdle(t *testing.T) {
	api := &fakeAPI{startEmpty: true}
	h := newHarness(api)

	err := h.mon.Start(context.Background(), true)
	require.ErrorIs(t, err, ErrNoJob)

	st := h.mon.Snapshot()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.JobID)
	_, statusCalls := api.calls()
	assert.Equal(t, 0, statusCalls)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestMonitor_DisposeDiscardsInFlightPoll(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	api := &fakeAPI{
		statuses:   []*kernel.BaselineJobStatus{completed()},
		statusGate: gate,
		entered:    entered,
	}
	h := newHarness(api)
	require.NoError(t, h.mon.Start(context.Background(), true))

	tk := h.ticker(t)
	tk.tick()
	<-entered // poll is in flight

	h.mon.Dispose()
	close(gate) // the stale response arrives after teardown

	st := waitDone(t, h.mon)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Nil(t, st.Result, "stale poll must not mutate state")
	assert.Nil(t, st.Status)

	for _, ev := range h.drain() {
		assert.False(t, ev.Terminal)
	}

	tk.tick()
	time.Sleep(20 * time.Millisecond)
	_, statusCalls := api.calls()
	assert.Equal(t, 1, statusCalls)
}

func TestMonitor_DisposeIdleIsNoop(t *testing.T) {
	h := newHarness(&fakeAPI{})
	h.mon.Dispose()
	assert.Equal(t, PhaseIdle, h.mon.Snapshot().Phase)
	assert.Empty(t, h.drain())
}

func TestMonitor_DisposeKeepsTerminalState(t *testing.T) {
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{completed()}}
	h := newHarness(api)
	require.NoError(t, h.mon.Start(context.Background(), true))
	h.ticker(t).tick()
	waitDone(t, h.mon)

	h.mon.Dispose()
	assert.Equal(t, PhaseCompleted, h.mon.Snapshot().Phase)
}

func TestMonitor_ParentContextCancel(t *testing.T) {
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{running(1)}}
	h := newHarness(api)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.mon.Start(ctx, true))
	h.ticker(t)
	cancel()

	st := waitDone(t, h.mon)
	assert.Equal(t, PhaseIdle, st.Phase)

	require.NoError(t, h.mon.Start(context.Background(), true), "restart after cancel")
	h.mon.Dispose()
}

func TestMonitor_RestartClearsPreviousResult(t *testing.T) {
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{completed()}}
	h := newHarness(api)
	require.NoError(t, h.mon.Start(context.Background(), true))
	h.ticker(t).tick()
	require.NotNil(t, waitDone(t, h.mon).Result)

	api.mu.Lock()
	api.startGate = make(chan struct{})
	gate := api.startGate
	api.mu.Unlock()

	go func() { _ = h.mon.Start(context.Background(), true) }()
	require.Eventually(t, func() bool {
		return h.mon.Snapshot().Phase == PhaseStarting
	}, 2*time.Second, time.Millisecond)
	assert.Nil(t, h.mon.Snapshot().Result)

	close(gate)
	h.mon.Dispose()
}

func TestMonitor_EventLogCapped(t *testing.T) {
	st := running(3)
	for i := 0; i < 150; i++ {
		st.Events = append(st.Events, fmt.Sprintf("e%d", i))
	}
	api := &fakeAPI{statuses: []*kernel.BaselineJobStatus{st}}
	h := newHarness(api)
	require.NoError(t, h.mon.Start(context.Background(), true))
	h.ticker(t).tick()

	require.Eventually(t, func() bool {
		return h.mon.Snapshot().Status != nil
	}, 2*time.Second, time.Millisecond)

	snap := h.mon.Snapshot()
	require.Len(t, snap.Events, MaxEvents)
	assert.Equal(t, "e149", snap.Events[MaxEvents-1])
	assert.InDelta(t, 3.0/34.0, snap.Progress(), 1e-9)
	h.mon.Dispose()
}

func TestMonitor_EventsChannelDropsWhenFull(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("nope")}
	mon := NewMonitor(api, Options{EventBuffer: 1})

	_ = mon.Start(context.Background(), true)
	_ = mon.Start(context.Background(), true)

	// Four events were emitted; only the first fits.
	assert.Len(t, mon.Events(), 1)
}
