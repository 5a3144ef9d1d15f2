// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/telemetry"
	"github.com/ifinspire/aigent/internal/ui/styles"
	"github.com/ifinspire/aigent/internal/util"
)

// RenderTelemetry renders the telemetry panel: newest exchange, rolling
// history, this session's totals and the kernel's cumulative windows.
func RenderTelemetry(theme *styles.Theme, snap telemetry.Snapshot, width int) string {
	inner := clampWidth(width-theme.Panel.GetHorizontalFrameSize(), 20)
	var lines []string

	lines = append(lines, theme.PanelTitle.Render("Latest exchange"))
	if snap.Current == nil {
		lines = append(lines, theme.Muted.Render("No exchanges yet."))
	} else {
		lines = append(lines, util.TruncateWidth(model.FormatStats(snap.Current), inner))
		if m, ok := snap.Current.(model.Metrics); ok {
			b := m.Breakdown
			lines = append(lines, theme.Muted.Render(fmt.Sprintf(
				"prompt chars: %s system / %s user / %s assistant",
				fmtNumber(b.SystemChars), fmtNumber(b.UserChars), fmtNumber(b.AssistantChars))))
		}
	}

	lines = append(lines, "", theme.PanelTitle.Render("Recent"))
	if len(snap.History) == 0 {
		lines = append(lines, theme.Muted.Render("-"))
	}
	for _, ex := range snap.History {
		stats := "n/a"
		if m, ok := ex.Telemetry.(model.Metrics); ok {
			stats = fmtLatency(m.TotalLatency)
			if m.TotalTokens != nil {
				stats += " " + fmtTokensShort(*m.TotalTokens) + " tok"
			}
		}
		preview := util.TruncateWidth(ex.UserPreview, max(8, inner-len(stats)-3))
		lines = append(lines, theme.StatsValue.Render(util.PadRight(preview, inner-len(stats)-1))+" "+theme.Muted.Render(stats))
	}

	s := snap.Session
	lines = append(lines, "", theme.PanelTitle.Render("This session"))
	lines = append(lines, fmt.Sprintf("%d exchanges | avg %s | %s prompt / %s completion tok",
		s.Exchanges, fmtLatency(s.AvgLatency()), fmtNumber(s.PromptTokens), fmtNumber(s.CompletionTokens)))
	if s.Degraded > 0 {
		lines = append(lines, theme.WarningStyle.Render(fmt.Sprintf("%d without telemetry", s.Degraded)))
	}

	if sum := snap.Summary; sum != nil {
		lines = append(lines, "", theme.PanelTitle.Render("Kernel totals"))
		lines = append(lines, fmt.Sprintf("%d exchanges | latency %s min / %s avg / %s max",
			sum.ExchangeCount, fmtLatency(sum.LatencyMin), fmtLatency(sum.LatencyAvg), fmtLatency(sum.LatencyMax)))
		for _, w := range []struct {
			name string
			win  model.TokenWindow
		}{
			{"24h", sum.Day}, {"7d", sum.Week}, {"30d", sum.Month}, {"all", sum.AllTime},
		} {
			lines = append(lines, theme.StatsLabel.Render(util.PadRight(w.name, 5))+
				fmt.Sprintf("%s tok in %d exchanges", fmtNumber(w.win.TotalTokens), w.win.ExchangeCount))
		}
	}

	return theme.Panel.Width(width - theme.Panel.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}
