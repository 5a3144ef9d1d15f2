// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/ui/styles"
	"github.com/ifinspire/aigent/internal/util"
)

// RenderActivity renders the newest limit capability updates, newest first.
func RenderActivity(theme *styles.Theme, caps []model.CapabilityUpdate, width, limit int) string {
	inner := clampWidth(width-theme.Panel.GetHorizontalFrameSize(), 16)
	lines := []string{theme.PanelTitle.Render("Activity")}

	if len(caps) == 0 {
		lines = append(lines, theme.Muted.Render("Nothing yet."))
	}
	shown := 0
	for i := len(caps) - 1; i >= 0 && (limit <= 0 || shown < limit); i-- {
		lines = append(lines, renderCapability(theme, caps[i], inner))
		shown++
	}
	return theme.Panel.Width(width - theme.Panel.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

func renderCapability(theme *styles.Theme, c model.CapabilityUpdate, width int) string {
	var status string
	switch c.Status {
	case model.CapabilitySuccess:
		status = theme.SuccessStyle.Render(styles.StatusIndicators.Success)
	case model.CapabilityError:
		status = theme.ErrorStyle.Render(styles.StatusIndicators.Error)
	default:
		status = theme.WarningStyle.Render(styles.StatusIndicators.Pending)
	}

	elapsed := c.UpdatedAt.Sub(c.StartedAt)
	if !c.Done() {
		elapsed = time.Since(c.StartedAt)
	}
	title := c.Title + " " + theme.Muted.Render("("+fmtLatency(elapsed)+")")
	line := status + " " + title
	if c.Detail != "" {
		line += "\n    " + theme.Muted.Render(util.TruncateWidth(c.Detail, width-4))
	}
	return line
}
