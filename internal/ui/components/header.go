// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/ui/styles"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: brand, active conversation, model and warm state.
type Header struct {
	Title     string // Brand (default: "aigent")
	KernelURL string
	Width     int

	health session.Health
	warm   session.WarmState
	active string
	theme  *styles.Theme
}

// NewHeader creates a Header with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "aigent",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetState copies what the header shows from session state.
func (h *Header) SetState(st session.State) {
	h.health = st.Health
	h.warm = st.Warm
	h.active = ""
	if conv, ok := st.ActiveConversation(); ok {
		h.active = conv.DisplayTitle()
	} else if st.Initialized {
		h.active = "New chat"
	}
}

// WarmLabel returns the indicator text and style for the warm state.
func (h *Header) WarmLabel() (string, lipgloss.Style) {
	if !h.health.Reachable && !h.health.CheckedAt.IsZero() {
		return styles.StatusIndicators.Error + " offline", h.theme.WarmCold
	}
	switch h.warm {
	case session.Warm:
		return styles.StatusIndicators.Active + " warm", h.theme.WarmOK
	case session.Warming:
		return styles.StatusIndicators.Pending + " warming", h.theme.WarmPending
	case session.Cold:
		return styles.StatusIndicators.Warning + " cold", h.theme.WarmCold
	default:
		return styles.StatusIndicators.Pending + " connecting", h.theme.HeaderMeta
	}
}

// View renders the header as a single line.
func (h *Header) View() string {
	width := clampWidth(h.Width, 20)
	inner := width - h.theme.Header.GetHorizontalFrameSize()

	brand := h.theme.HeaderBrand.Render(h.Title)

	warmText, warmStyle := h.WarmLabel()
	right := warmStyle.Render(warmText)
	if h.health.Model != "" {
		right = h.theme.HeaderMeta.Render(h.health.Model) + "  " + right
	}

	used := lipgloss.Width(brand) + lipgloss.Width(right) + 4
	title := ""
	if h.active != "" && inner-used > 4 {
		title = h.theme.HeaderTitle.Render(util.TruncateWidth(h.active, inner-used))
	}

	left := brand
	if title != "" {
		left += h.theme.HeaderMeta.Render(" / ") + title
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Narrow terminal: drop the model name first.
		right = warmStyle.Render(warmText)
		gap = max(1, inner-lipgloss.Width(left)-lipgloss.Width(right))
	}

	line := left + strings.Repeat(" ", gap) + right
	return h.theme.Header.Width(width).MaxWidth(width).Render(line)
}
