// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/ui/styles"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// ConversationList is the sidebar of conversations with a cursor. The
// cursor is independent of the active conversation until Enter is pressed.
type ConversationList struct {
	items    []model.ConversationSummary
	activeID string
	cursor   int
	offset   int
	focused  bool

	width  int
	height int
	theme  *styles.Theme
	now    func() time.Time
}

// NewConversationList creates an empty list.
func NewConversationList(theme *styles.Theme) *ConversationList {
	return &ConversationList{width: 28, height: 10, theme: theme, now: time.Now}
}

// SetSize sets the outer width and the number of visible rows.
func (l *ConversationList) SetSize(width, height int) {
	l.width = width
	l.height = max(1, height)
	l.scrollToCursor()
}

// SetFocused toggles keyboard focus.
func (l *ConversationList) SetFocused(focused bool) {
	l.focused = focused
}

// Focused reports whether the list has keyboard focus.
func (l *ConversationList) Focused() bool {
	return l.focused
}

// SetItems replaces the list. The cursor follows the conversation it was
// on, or falls back to the active one.
func (l *ConversationList) SetItems(items []model.ConversationSummary, activeID string) {
	var current string
	if l.cursor >= 0 && l.cursor < len(l.items) {
		current = l.items[l.cursor].ID
	}
	activeChanged := activeID != l.activeID

	l.items = items
	l.activeID = activeID

	switch {
	case activeChanged && activeID != "":
		l.cursor = model.IndexOfConversation(items, activeID)
	case current != "":
		l.cursor = model.IndexOfConversation(items, current)
	}
	if l.cursor < 0 {
		l.cursor = model.IndexOfConversation(items, activeID)
	}
	l.cursor = max(0, min(l.cursor, len(items)-1))
	l.scrollToCursor()
}

// Len returns the number of conversations.
func (l *ConversationList) Len() int {
	return len(l.items)
}

// Cursor returns the cursor index.
func (l *ConversationList) Cursor() int {
	return l.cursor
}

// MoveUp moves the cursor up one row.
func (l *ConversationList) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
		l.scrollToCursor()
	}
}

// MoveDown moves the cursor down one row.
func (l *ConversationList) MoveDown() {
	if l.cursor < len(l.items)-1 {
		l.cursor++
		l.scrollToCursor()
	}
}

// Selected returns the conversation under the cursor.
func (l *ConversationList) Selected() (model.ConversationSummary, bool) {
	if l.cursor < 0 || l.cursor >= len(l.items) {
		return model.ConversationSummary{}, false
	}
	return l.items[l.cursor], true
}

func (l *ConversationList) visibleRows() int {
	// Title line plus its margin.
	return max(1, (l.height-2)/2)
}

func (l *ConversationList) scrollToCursor() {
	rows := l.visibleRows()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
	l.offset = max(0, l.offset)
}

// View renders the sidebar. Each conversation takes two lines: title, then
// message count and age.
func (l *ConversationList) View() string {
	inner := clampWidth(l.width-l.theme.Sidebar.GetHorizontalFrameSize(), 8)

	title := fmt.Sprintf("Conversations (%d)", len(l.items))
	lines := []string{l.theme.SidebarTitle.Render(util.TruncateWidth(title, inner))}

	if len(l.items) == 0 {
		lines = append(lines, l.theme.SessionMeta.Render("none yet"))
	}

	end := min(len(l.items), l.offset+l.visibleRows())
	for i := l.offset; i < end; i++ {
		c := l.items[i]
		marker := "  "
		if c.ID == l.activeID {
			marker = "> "
		}
		name := util.PadRight(util.TruncateWidth(marker+c.DisplayTitle(), inner), inner)

		style := l.theme.SessionItem
		switch {
		case i == l.cursor && l.focused:
			style = l.theme.SessionItemSelected
		case c.ID == l.activeID:
			style = l.theme.SessionItemActive
		}
		lines = append(lines, style.Render(name))

		meta := fmt.Sprintf("  %d msgs", c.MessageCount)
		if !c.UpdatedAt.IsZero() {
			meta += " | " + fmtClock(c.UpdatedAt, l.now())
		}
		lines = append(lines, l.theme.SessionMeta.Render(util.TruncateWidth(meta, inner)))
	}

	return l.theme.Sidebar.Height(l.height).Render(strings.Join(lines, "\n"))
}
