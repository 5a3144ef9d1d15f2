// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/reasoning"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat message. Values are never mutated once created.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`             // visible text
	Reasoning string    `json:"reasoning,omitempty"` // extracted reasoning, empty when none
	Timestamp time.Time `json:"timestamp"`

	// IsError marks synthetic system messages that report a failed send.
	IsError bool `json:"is_error,omitempty"`

	// Local is set on optimistic messages that the kernel has not echoed yet.
	Local bool `json:"-"`
}

// NewUserMessage creates the optimistic local copy of a message being sent.
func NewUserMessage(content string) Message {
	return Message{
		ID:        "local-" + uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Local:     true,
	}
}

// NewErrorMessage creates the synthetic system message shown after a failed
// send.
func NewErrorMessage(text string) Message {
	return Message{
		ID:        "error-" + uuid.NewString(),
		Role:      RoleSystem,
		Content:   text,
		Timestamp: time.Now(),
		IsError:   true,
		Local:     true,
	}
}

// MessageFromWire converts a stored kernel message. Assistant content is run
// through the reasoning parser; other roles are kept verbatim.
func MessageFromWire(m kernel.MessageResponse) Message {
	msg := Message{
		ID:        m.ID,
		Role:      Role(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp.Time,
	}
	if msg.Role == RoleAssistant {
		parsed := reasoning.Parse(m.Content)
		msg.Content = parsed.Visible
		msg.Reasoning = parsed.Reasoning
	}
	return msg
}

// MessagesFromWire converts a stored message list, preserving order.
func MessagesFromWire(in []kernel.MessageResponse) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		out = append(out, MessageFromWire(m))
	}
	return out
}

// HasReasoning reports whether reasoning text was extracted.
func (m Message) HasReasoning() bool {
	return m.Reasoning != ""
}

// CountsTowardContext reports whether the message is part of the prompt
// history the kernel sends to the model. System and error messages are not.
func (m Message) CountsTowardContext() bool {
	return !m.IsError && (m.Role == RoleUser || m.Role == RoleAssistant)
}

// Preview returns a single-line truncated preview of the visible content.
func (m Message) Preview(maxLen int) string {
	return util.Preview(m.Content, maxLen)
}
