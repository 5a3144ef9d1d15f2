// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/ifinspire/aigent/internal/benchmark"
	"github.com/ifinspire/aigent/internal/ui/styles"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// BENCHMARK VIEW
// =============================================================================

// BenchmarkEventLines is how many job events the view shows.
const BenchmarkEventLines = 6

// BenchmarkView renders the baseline job: phase, progress, recent events
// and, once completed, the report.
type BenchmarkView struct {
	width  int
	height int
	bar    progress.Model
	theme  *styles.Theme
}

// NewBenchmarkView creates a benchmark view.
func NewBenchmarkView(theme *styles.Theme, width, height int) *BenchmarkView {
	v := &BenchmarkView{
		bar:   progress.New(progress.WithDefaultGradient()),
		theme: theme,
	}
	v.SetSize(width, height)
	return v
}

// SetSize updates the view dimensions.
func (v *BenchmarkView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.bar.Width = max(10, min(width-12, 60))
}

// View renders st.
func (v *BenchmarkView) View(st benchmark.State) string {
	inner := clampWidth(v.width-v.theme.Panel.GetHorizontalFrameSize(), 20)
	var lines []string

	title := "Baseline benchmark"
	if st.JobID != "" {
		title += " " + v.theme.Muted.Render(util.TruncateWidth(st.JobID, 12))
	}
	lines = append(lines, v.theme.PanelTitle.Render(title))

	switch st.Phase {
	case benchmark.PhaseIdle:
		if st.Error != "" {
			lines = append(lines, v.theme.ErrorStyle.Render(styles.StatusIndicators.Error+" "+st.Error))
		}
		lines = append(lines, v.theme.Muted.Render("Press s to start a baseline run."))
	case benchmark.PhaseStarting:
		lines = append(lines, v.theme.WarningStyle.Render(styles.StatusIndicators.Pending+" "+st.Message))
	case benchmark.PhaseRunning:
		lines = append(lines, v.bar.ViewAs(st.Progress()))
		lines = append(lines, v.progressLine(st))
	case benchmark.PhaseCompleted:
		lines = append(lines, v.bar.ViewAs(1))
		lines = append(lines, v.theme.SuccessStyle.Render(styles.StatusIndicators.Success+" "+st.Message))
	case benchmark.PhaseFailed:
		lines = append(lines, v.theme.ErrorStyle.Render(styles.StatusIndicators.Error+" "+st.Message))
	}

	if st.Phase == benchmark.PhaseCompleted && st.Result != nil {
		lines = append(lines, "", benchmark.FormatReport(st.Result))
	} else if len(st.Events) > 0 {
		lines = append(lines, "", v.theme.StatsLabel.Render("Events"))
		start := max(0, len(st.Events)-BenchmarkEventLines)
		for _, ev := range st.Events[start:] {
			lines = append(lines, v.theme.Muted.Render(util.TruncateWidth("  "+ev, inner)))
		}
	}

	return v.theme.Panel.Width(v.width - v.theme.Panel.GetHorizontalBorderSize()).
		Render(strings.Join(lines, "\n"))
}

func (v *BenchmarkView) progressLine(st benchmark.State) string {
	if st.Status == nil {
		return st.Message
	}
	step := st.Status.CurrentStep
	if step == "" {
		step = st.Status.Status
	}
	return fmt.Sprintf("%d/%d calls | %s", st.Status.CompletedCalls, st.Status.TotalCalls, step)
}
