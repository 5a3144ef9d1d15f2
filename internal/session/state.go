// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/ifinspire/aigent/internal/benchmark"
	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/telemetry"
)

// Feed limits.
const (
	CapabilityLimit = 20
	ToastLimit      = 5
)

// =============================================================================
// SUPPORTING TYPES
// =============================================================================

// WarmState is the model warm indicator.
type WarmState int

const (
	WarmUnknown WarmState = iota
	Warming
	Warm
	Cold
)

func (w WarmState) String() string {
	switch w {
	case Warming:
		return "warming"
	case Warm:
		return "warm"
	case Cold:
		return "cold"
	default:
		return "unknown"
	}
}

// Health is the last health-check outcome.
type Health struct {
	Reachable     bool
	Status        string
	Model         string
	OllamaBaseURL string
	Error         string
	CheckedAt     time.Time
}

// ToastLevel is the severity of a toast.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarn
	ToastError
)

func (l ToastLevel) String() string {
	switch l {
	case ToastSuccess:
		return "success"
	case ToastWarn:
		return "warn"
	case ToastError:
		return "error"
	default:
		return "info"
	}
}

// Toast is a transient notification.
type Toast struct {
	ID    string
	Level ToastLevel
	Text  string
	At    time.Time
}

// =============================================================================
// STATE
// =============================================================================

// State is everything the session shows. Values returned by the Controller
// are copies and safe to keep.
type State struct {
	Initialized bool
	Health      Health
	Warm        WarmState

	// Conversations is the sidebar list in kernel order.
	Conversations []model.ConversationSummary
	// ActiveID is empty for a new, not yet created conversation.
	ActiveID string
	// Messages belong to ActiveID, in insertion order.
	Messages []model.Message
	// Loading is set while the active conversation's messages are fetched.
	Loading bool

	// Processing is set while a chat turn is in flight.
	Processing bool
	// PendingOrigin is the conversation a processing send belongs to.
	PendingOrigin string

	Settings          model.ContextSettings
	SystemPromptChars int

	// Draft and its usage estimate, recomputed whenever history or
	// settings change.
	Draft      string
	Usage      ctxwin.Usage
	Projection ctxwin.Projection

	// ValidationError blocks sending until the draft or settings change.
	ValidationError string
	// SettingsError is the last settings validation failure.
	SettingsError string

	Telemetry telemetry.Snapshot
	Baseline  benchmark.State

	// Capabilities is the activity feed, oldest first.
	Capabilities []model.CapabilityUpdate
	// Toasts are newest last.
	Toasts []Toast
}

// ActiveConversation returns the summary for ActiveID.
func (s State) ActiveConversation() (model.ConversationSummary, bool) {
	i := model.IndexOfConversation(s.Conversations, s.ActiveID)
	if i < 0 {
		return model.ConversationSummary{}, false
	}
	return s.Conversations[i], true
}

// CanSend reports whether a send would be accepted right now.
func (s State) CanSend() bool {
	return !s.Processing && s.ValidationError == ""
}

// InitialState is the state before Init.
func InitialState() State {
	return State{
		Settings: model.DefaultContextSettings(),
		Baseline: benchmark.State{Phase: benchmark.PhaseIdle},
	}
}

// clone deep-copies the slices so callers cannot alias controller state.
func (s State) clone() State {
	s.Conversations = append([]model.ConversationSummary(nil), s.Conversations...)
	s.Messages = append([]model.Message(nil), s.Messages...)
	s.Capabilities = append([]model.CapabilityUpdate(nil), s.Capabilities...)
	s.Toasts = append([]Toast(nil), s.Toasts...)
	s.Telemetry.History = append([]model.PerfExchange(nil), s.Telemetry.History...)
	s.Baseline.Events = append([]string(nil), s.Baseline.Events...)
	return s
}
