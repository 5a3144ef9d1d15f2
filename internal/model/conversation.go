// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
)

// ConversationSummary is one entry of the conversation list. Whether it is
// active is derived from the session's active id and never stored here.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"last_message"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ConversationFromWire converts a kernel summary.
func ConversationFromWire(c kernel.ConversationSummary) ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		LastMessage:  c.LastMessage,
		UpdatedAt:    c.UpdatedAt.Time,
		MessageCount: c.MessageCount,
	}
}

// ConversationsFromWire converts a list, keeping the kernel's ordering (most
// recently updated first).
func ConversationsFromWire(in []kernel.ConversationSummary) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(in))
	for _, c := range in {
		out = append(out, ConversationFromWire(c))
	}
	return out
}

// IndexOfConversation returns the position of id in list, or -1.
func IndexOfConversation(list []ConversationSummary, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// WithoutConversation returns a copy of list with id removed.
func WithoutConversation(list []ConversationSummary, id string) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(list))
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// DisplayTitle returns the title, or a fallback for untitled conversations.
func (c ConversationSummary) DisplayTitle() string {
	if c.Title == "" {
		return "New chat"
	}
	return c.Title
}
