// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/ifinspire/aigent/internal/benchmark"
	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/telemetry"
)

// Reduce returns the state after ev. It never mutates s: slices are copied
// before they change, so earlier States stay valid.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case HealthChecked:
		s.Health = ev.Health

	case WarmChanged:
		s.Warm = ev.Warm

	case ConversationsLoaded:
		s.Conversations = append([]model.ConversationSummary(nil), ev.Conversations...)

	case SettingsLoaded:
		s.Settings = ev.Settings
		s.SettingsError = ""
		s = withUsage(s)

	case SystemPromptLoaded:
		s.SystemPromptChars = ev.Chars
		s = withUsage(s)

	case Initialized:
		s.Initialized = true

	case ConversationSelected:
		s.ActiveID = ev.ID
		s.Messages = nil
		s.Loading = true
		s.ValidationError = ""
		s = withUsage(s)

	case ConversationLoaded:
		if ev.ID != s.ActiveID {
			return s
		}
		s.Messages = mergeLoaded(ev.Messages, s.Messages)
		s.Loading = false
		s = withUsage(s)

	case ConversationLoadFailed:
		if ev.ID == s.ActiveID {
			s.Loading = false
		}

	case NewChatStarted:
		s.ActiveID = ""
		s.Messages = nil
		s.Loading = false
		s.ValidationError = ""
		s = withUsage(s)

	case ConversationDeleted:
		s = deleteConversation(s, ev.ID)

	case DraftChanged:
		s.Draft = ev.Draft
		s = withUsage(s)

	case SendBlocked:
		s.ValidationError = ev.Reason

	case SendStarted:
		s.Processing = true
		s.PendingOrigin = ev.Origin
		if s.ActiveID == ev.Origin {
			s.Messages = appendMessages(s.Messages, ev.User)
		}
		s.Draft = ""
		s.ValidationError = ""
		s.Capabilities = upsertCapability(s.Capabilities, ev.Capability)
		s = withUsage(s)

	case SendSucceeded:
		s.Processing = false
		s.PendingOrigin = ""
		s.Capabilities = upsertCapability(s.Capabilities, ev.Capability)
		if s.ActiveID != ev.Origin {
			return s
		}
		s.ActiveID = ev.ConversationID
		msgs := make([]model.Message, 0, len(s.Messages)+1)
		for _, m := range s.Messages {
			if m.ID == ev.LocalUserID && ev.User.ID != "" {
				m = ev.User
			}
			msgs = append(msgs, m)
		}
		s.Messages = append(msgs, ev.Assistant)
		s = withUsage(s)

	case SendFailed:
		s.Processing = false
		s.PendingOrigin = ""
		s.Capabilities = upsertCapability(s.Capabilities, ev.Capability)
		if s.ActiveID == ev.Origin {
			s.Messages = appendMessages(s.Messages, ev.Error)
		}

	case SettingsRejected:
		s.SettingsError = ev.Reason

	case TelemetryUpdated:
		s.Telemetry = ev.Snapshot

	case BaselineUpdated:
		s.Baseline = ev.State

	case CapabilityChanged:
		s.Capabilities = upsertCapability(s.Capabilities, ev.Update)

	case ToastRaised:
		toasts := append(append([]Toast(nil), s.Toasts...), ev.Toast)
		if len(toasts) > ToastLimit {
			toasts = toasts[len(toasts)-ToastLimit:]
		}
		s.Toasts = toasts

	case ToastDismissed:
		toasts := make([]Toast, 0, len(s.Toasts))
		for _, t := range s.Toasts {
			if t.ID != ev.ID {
				toasts = append(toasts, t)
			}
		}
		s.Toasts = toasts

	case DataCleared:
		s.Conversations = nil
		s.ActiveID = ""
		s.Messages = nil
		s.Loading = false
		s.Warm = WarmUnknown
		s.Telemetry = telemetry.Snapshot{}
		s.Baseline = benchmark.State{Phase: benchmark.PhaseIdle}
		s = withUsage(s)
	}
	return s
}

// withUsage recomputes the draft estimate and clears a validation error the
// new estimate no longer supports.
func withUsage(s State) State {
	history := ctxwin.HistoryTexts(s.Messages)
	s.Usage = ctxwin.EstimateUsage(history, s.Draft, s.Settings)
	s.Projection = ctxwin.ProjectCompaction(history, s.Draft, s.Settings, s.SystemPromptChars)
	if s.ValidationError != "" && ctxwin.CheckSend(s.Usage, s.Settings) == nil {
		s.ValidationError = ""
	}
	return s
}

func deleteConversation(s State, id string) State {
	idx := model.IndexOfConversation(s.Conversations, id)
	s.Conversations = model.WithoutConversation(s.Conversations, id)
	if id != s.ActiveID {
		return s
	}

	s.Messages = nil
	s.ValidationError = ""
	if len(s.Conversations) == 0 {
		s.ActiveID = ""
		s.Loading = false
		return withUsage(s)
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.Conversations) {
		idx = len(s.Conversations) - 1
	}
	s.ActiveID = s.Conversations[idx].ID
	s.Loading = true
	return withUsage(s)
}

// mergeLoaded keeps optimistic local messages that the loaded history does
// not contain yet.
func mergeLoaded(loaded, current []model.Message) []model.Message {
	out := append([]model.Message(nil), loaded...)
	for _, m := range current {
		if m.Local {
			out = append(out, m)
		}
	}
	return out
}

func appendMessages(msgs []model.Message, add ...model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs)+len(add))
	out = append(out, msgs...)
	return append(out, add...)
}

func upsertCapability(feed []model.CapabilityUpdate, u model.CapabilityUpdate) []model.CapabilityUpdate {
	out := append([]model.CapabilityUpdate(nil), feed...)
	for i := range out {
		if out[i].ID == u.ID {
			out[i] = u
			return out
		}
	}
	out = append(out, u)
	if len(out) > CapabilityLimit {
		out = out[len(out)-CapabilityLimit:]
	}
	return out
}
