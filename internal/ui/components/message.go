// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// RenderOptions controls how the transcript is drawn.
type RenderOptions struct {
	Markdown      bool
	ShowReasoning bool
}

// MessageRenderer draws the chat transcript. Rendered messages are cached by
// ID, so redraws on every state update stay cheap; messages never change
// once created.
type MessageRenderer struct {
	theme    *styles.Theme
	width    int
	markdown *glamour.TermRenderer
	cache    map[string]string
	opts     RenderOptions
	now      func() time.Time
}

// NewMessageRenderer creates a renderer for the given width.
func NewMessageRenderer(theme *styles.Theme, width int) *MessageRenderer {
	r := &MessageRenderer{
		theme: theme,
		cache: make(map[string]string),
		opts:  RenderOptions{Markdown: true},
		now:   time.Now,
	}
	r.SetWidth(width)
	return r
}

// SetWidth changes the wrap width and drops the cache when it differs.
func (r *MessageRenderer) SetWidth(width int) {
	width = clampWidth(width, 20)
	if width == r.width && r.markdown != nil {
		return
	}
	r.width = width
	r.cache = make(map[string]string)

	style := "light"
	if r.theme.IsDark {
		style = "dark"
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(r.contentWidth()),
	)
	if err != nil {
		md = nil
	}
	r.markdown = md
}

// SetOptions changes rendering options and drops the cache when they differ.
func (r *MessageRenderer) SetOptions(opts RenderOptions) {
	if opts != r.opts {
		r.opts = opts
		r.cache = make(map[string]string)
	}
}

// Options returns the current rendering options.
func (r *MessageRenderer) Options() RenderOptions {
	return r.opts
}

func (r *MessageRenderer) contentWidth() int {
	return clampWidth(r.width-4, 16)
}

// Render draws msgs in order, separated by blank lines.
func (r *MessageRenderer) Render(msgs []model.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.RenderMessage(m))
	}
	return strings.Join(parts, "\n\n")
}

// RenderMessage draws one message. Optimistic local messages are not cached
// because the kernel's echo replaces them under a new ID.
func (r *MessageRenderer) RenderMessage(m model.Message) string {
	if !m.Local {
		if out, ok := r.cache[m.ID]; ok {
			return out
		}
	}
	out := r.render(m)
	if !m.Local && m.ID != "" {
		r.cache[m.ID] = out
	}
	return out
}

func (r *MessageRenderer) render(m model.Message) string {
	var bubble lipgloss.Style
	var labelColor lipgloss.AdaptiveColor
	switch {
	case m.IsError:
		bubble, labelColor = r.theme.ErrorBubble, styles.Rose
	case m.Role == model.RoleUser:
		bubble, labelColor = r.theme.UserBubble, styles.Cyan
	case m.Role == model.RoleAssistant:
		bubble, labelColor = r.theme.AssistantBubble, styles.Purple
	default:
		bubble, labelColor = r.theme.SystemBubble, styles.Amber
	}

	header := r.theme.RoleLabel.Foreground(labelColor).Render(m.Role.DisplayName())
	if ts := fmtClock(m.Timestamp, r.now()); ts != "" {
		header += " " + r.theme.Timestamp.Render(ts)
	}
	if m.Local && !m.IsError {
		header += " " + r.theme.PendingMarker.Render("sending...")
	}

	var body strings.Builder
	if r.opts.ShowReasoning && m.HasReasoning() {
		body.WriteString(r.theme.Reasoning.Width(r.contentWidth()).Render("thinking: " + m.Reasoning))
		body.WriteString("\n")
	}
	body.WriteString(r.renderContent(m))

	return header + "\n" + bubble.Width(r.width-2).Render(body.String())
}

func (r *MessageRenderer) renderContent(m model.Message) string {
	content := m.Content
	if content == "" {
		content = "(empty)"
	}
	if m.Role == model.RoleAssistant && r.opts.Markdown && r.markdown != nil {
		if out, err := r.markdown.Render(content); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return lipgloss.NewStyle().Width(r.contentWidth()).Render(content)
}
