// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/ifinspire/aigent/internal/benchmark"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/telemetry"
)

// Event is one state transition. The set is closed; Reduce handles every
// variant.
type Event interface {
	isEvent()
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// HealthChecked records a health-check outcome.
type HealthChecked struct{ Health Health }

// WarmChanged moves the warm indicator.
type WarmChanged struct{ Warm WarmState }

// ConversationsLoaded replaces the sidebar list.
type ConversationsLoaded struct {
	Conversations []model.ConversationSummary
}

// SettingsLoaded replaces the context settings and clears SettingsError.
type SettingsLoaded struct{ Settings model.ContextSettings }

// SystemPromptLoaded records the system prompt size for projections.
type SystemPromptLoaded struct{ Chars int }

// Initialized marks the end of the init sequence.
type Initialized struct{}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ConversationSelected makes ID active and starts loading its messages.
type ConversationSelected struct{ ID string }

// ConversationLoaded fills in messages for ID. Ignored unless ID is still
// active.
type ConversationLoaded struct {
	ID       string
	Messages []model.Message
}

// ConversationLoadFailed ends loading for ID.
type ConversationLoadFailed struct {
	ID  string
	Err string
}

// NewChatStarted clears the active conversation.
type NewChatStarted struct{}

// ConversationDeleted removes ID. Deleting the active conversation selects
// the next one in the list, or clears the selection when none remain.
type ConversationDeleted struct{ ID string }

// =============================================================================
// SENDING
// =============================================================================

// DraftChanged updates the draft and its usage estimate.
type DraftChanged struct{ Draft string }

// SendBlocked records a local validation failure for the draft.
type SendBlocked struct{ Reason string }

// SendStarted appends the optimistic user message.
type SendStarted struct {
	Origin     string
	User       model.Message
	Capability model.CapabilityUpdate
}

// SendSucceeded appends the reply. When the user has moved to a different
// conversation in the meantime, only the feed and the processing flag
// change.
type SendSucceeded struct {
	Origin         string
	ConversationID string
	LocalUserID    string
	User           model.Message
	Assistant      model.Message
	Capability     model.CapabilityUpdate
}

// SendFailed keeps the optimistic user message and appends an error message
// after it.
type SendFailed struct {
	Origin     string
	Error      model.Message
	Capability model.CapabilityUpdate
}

// =============================================================================
// SETTINGS, TELEMETRY, BASELINE, FEED
// =============================================================================

// SettingsRejected records a settings validation or save failure.
type SettingsRejected struct{ Reason string }

// TelemetryUpdated replaces the telemetry snapshot.
type TelemetryUpdated struct{ Snapshot telemetry.Snapshot }

// BaselineUpdated replaces the baseline job state.
type BaselineUpdated struct{ State benchmark.State }

// CapabilityChanged inserts or replaces a feed entry by ID.
type CapabilityChanged struct{ Update model.CapabilityUpdate }

// ToastRaised appends a toast.
type ToastRaised struct{ Toast Toast }

// ToastDismissed removes a toast by ID.
type ToastDismissed struct{ ID string }

// DataCleared resets everything the kernel deleted.
type DataCleared struct{}

func (HealthChecked) isEvent()          {}
func (WarmChanged) isEvent()            {}
func (ConversationsLoaded) isEvent()    {}
func (SettingsLoaded) isEvent()         {}
func (SystemPromptLoaded) isEvent()     {}
func (Initialized) isEvent()            {}
func (ConversationSelected) isEvent()   {}
func (ConversationLoaded) isEvent()     {}
func (ConversationLoadFailed) isEvent() {}
func (NewChatStarted) isEvent()         {}
func (ConversationDeleted) isEvent()    {}
func (DraftChanged) isEvent()           {}
func (SendBlocked) isEvent()            {}
func (SendStarted) isEvent()            {}
func (SendSucceeded) isEvent()          {}
func (SendFailed) isEvent()             {}
func (SettingsRejected) isEvent()       {}
func (TelemetryUpdated) isEvent()       {}
func (BaselineUpdated) isEvent()        {}
func (CapabilityChanged) isEvent()      {}
func (ToastRaised) isEvent()            {}
func (ToastDismissed) isEvent()         {}
func (DataCleared) isEvent()            {}
