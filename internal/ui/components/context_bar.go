// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/ui/styles"
)

// =============================================================================
// CONTEXT BAR COMPONENT
// =============================================================================

// ContextBar renders the prompt size estimate for the current draft.
type ContextBar struct {
	usage      ctxwin.Usage
	projection ctxwin.Projection
	validation string
	width      int
	theme      *styles.Theme
}

// NewContextBar creates a context bar component.
func NewContextBar(theme *styles.Theme) *ContextBar {
	return &ContextBar{width: 80, theme: theme}
}

// SetWidth updates the width of the context bar.
func (cb *ContextBar) SetWidth(width int) {
	cb.width = width
}

// SetUsage updates the estimate, projection and blocking message.
func (cb *ContextBar) SetUsage(u ctxwin.Usage, p ctxwin.Projection, validation string) {
	cb.usage = u
	cb.projection = p
	cb.validation = validation
}

// triggerPct is the compaction trigger as a percentage of the window.
func (cb *ContextBar) triggerPct() int {
	if cb.usage.MaxContext <= 0 {
		return 0
	}
	return cb.usage.TriggerTokens * 100 / cb.usage.MaxContext
}

// RenderCompact renders "ctx 1.2k/4k 30%" for the status bar.
func (cb *ContextBar) RenderCompact() string {
	color := styles.UsageColor(cb.usage.Pct, cb.triggerPct())
	text := fmt.Sprintf("ctx %s/%s %d%%",
		fmtTokensShort(cb.usage.EstimatedTokens), fmtTokensShort(cb.usage.MaxContext), cb.usage.Pct)
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

// View renders the full bar, plus a second line when the kernel is projected
// to compact or the send is blocked.
func (cb *ContextBar) View() string {
	width := clampWidth(cb.width, 30)
	color := styles.UsageColor(cb.usage.Pct, cb.triggerPct())

	label := cb.theme.ContextLabel.Render("Context ")
	numbers := fmt.Sprintf(" %s / %s tok (%d%%)",
		fmtNumber(cb.usage.EstimatedTokens), fmtNumber(cb.usage.MaxContext), cb.usage.Pct)
	if cb.usage.TriggerTokens > 0 {
		numbers += fmt.Sprintf("  trigger %d%%", cb.triggerPct())
	}
	tail := cb.theme.ContextValue.Render(numbers)

	barWidth := width - lipgloss.Width(label) - lipgloss.Width(tail) - 2
	barWidth = max(0, min(barWidth, 40))
	bar := lipgloss.NewStyle().Foreground(color).
		Render("[" + styles.RenderProgressBar(barWidth, float64(min(cb.usage.Pct, 100))) + "]")

	lines := []string{label + bar + tail}

	var notes []string
	if cb.usage.IncludesCompactInstructions {
		notes = append(notes, cb.theme.ContextInstructions.Render("includes compaction instructions"))
	}
	if cb.projection.Compacts() {
		notes = append(notes, cb.theme.ContextProjection.Render(cb.describeProjection()))
	}
	if cb.validation != "" {
		notes = append(notes, cb.theme.ValidationMessage.Render(styles.StatusIndicators.Error+" "+cb.validation))
	}
	if len(notes) > 0 {
		lines = append(lines, lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(notes, "  ")))
	}
	return strings.Join(lines, "\n")
}

// Height returns the number of lines View will produce.
func (cb *ContextBar) Height() int {
	if cb.usage.IncludesCompactInstructions || cb.projection.Compacts() || cb.validation != "" {
		return 2
	}
	return 1
}

func (cb *ContextBar) describeProjection() string {
	p := cb.projection
	s := fmt.Sprintf("kernel will compact %s -> %s tok",
		fmtNumber(p.EstimatedBefore), fmtNumber(p.EstimatedAfter))
	if p.DroppedMessages > 0 {
		s += fmt.Sprintf(", dropping %d older message", p.DroppedMessages)
		if p.DroppedMessages != 1 {
			s += "s"
		}
	}
	if !p.Fits {
		s += " (still too large)"
	}
	return s
}
