// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ifinspire/aigent/internal/benchmark"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/telemetry"
	"github.com/ifinspire/aigent/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Shortcut is one key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar renders the bottom line: latest telemetry, baseline phase,
// context usage and key hints.
type StatusBar struct {
	width      int
	processing bool
	telemetry  telemetry.Snapshot
	baseline   benchmark.Phase
	context    string
	shortcuts  []Shortcut
	theme      *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{width: 80, baseline: benchmark.PhaseIdle, theme: theme}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// SetTelemetry sets the aggregator snapshot to summarize.
func (s *StatusBar) SetTelemetry(snap telemetry.Snapshot) {
	s.telemetry = snap
}

// SetProcessing marks a chat turn in flight.
func (s *StatusBar) SetProcessing(processing bool) {
	s.processing = processing
}

// SetBaseline sets the baseline job phase.
func (s *StatusBar) SetBaseline(phase benchmark.Phase) {
	s.baseline = phase
}

// SetContext sets the pre-rendered compact context indicator.
func (s *StatusBar) SetContext(rendered string) {
	s.context = rendered
}

// SetShortcuts sets the key hints shown on the right.
func (s *StatusBar) SetShortcuts(shortcuts []Shortcut) {
	s.shortcuts = shortcuts
}

// TelemetryText is the left-hand summary of the newest exchange.
func (s *StatusBar) TelemetryText() string {
	if s.processing {
		return "waiting for reply..."
	}
	switch t := s.telemetry.Current.(type) {
	case nil:
		return "no exchanges yet"
	case model.Metrics:
		text := fmtLatency(t.TotalLatency)
		if t.TotalTokens != nil {
			text += " | " + fmtNumber(*t.TotalTokens) + " tok"
		}
		if t.Compaction != nil && t.Compaction.Applied {
			text += " | compacted"
		}
		if n := s.telemetry.Session.Exchanges; n > 0 {
			text += fmt.Sprintf(" | %d this session", n)
		}
		return text
	default:
		return "telemetry unavailable"
	}
}

// View renders the status bar, dropping key hints first as width shrinks.
func (s *StatusBar) View() string {
	width := clampWidth(s.width, 20)
	inner := width - s.theme.StatusBar.GetHorizontalFrameSize()

	leftParts := []string{s.theme.StatsValue.Render(s.TelemetryText())}
	if s.baseline.Active() {
		leftParts = append(leftParts, s.theme.WarningStyle.Render("baseline "+string(s.baseline)))
	}
	if s.context != "" {
		leftParts = append(leftParts, s.context)
	}
	left := strings.Join(leftParts, s.theme.StatsLabel.Render("  "))

	right := ""
	for i := len(s.shortcuts); i >= 0; i-- {
		right = s.renderShortcuts(s.shortcuts[:i])
		if lipgloss.Width(left)+lipgloss.Width(right)+2 <= inner {
			break
		}
	}

	gap := max(1, inner-lipgloss.Width(left)-lipgloss.Width(right))
	return s.theme.StatusBar.Width(width).MaxWidth(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderShortcuts(shortcuts []Shortcut) string {
	parts := make([]string, 0, len(shortcuts))
	for _, sc := range shortcuts {
		parts = append(parts, s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}
	return strings.Join(parts, "  ")
}
