// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Toasts are non-blocking notifications inspired by lazygit's popup/toast
// system. They stack in the corner and auto-dismiss, so the user keeps
// typing while an error is on screen.

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/ui/styles"
)

// Auto-dismiss durations. Errors stay longer so they can be read.
const (
	DefaultToastDuration = 4 * time.Second
	WarningToastDuration = 6 * time.Second
	ErrorToastDuration   = 8 * time.Second
)

// ToastDuration returns how long a toast of the given level stays visible.
func ToastDuration(level session.ToastLevel) time.Duration {
	switch level {
	case session.ToastError:
		return ErrorToastDuration
	case session.ToastWarn:
		return WarningToastDuration
	default:
		return DefaultToastDuration
	}
}

// ToastExpired reports whether t should be dismissed at now.
func ToastExpired(t session.Toast, now time.Time) bool {
	return now.Sub(t.At) >= ToastDuration(t.Level)
}

// RenderToast renders a single toast, at most 60 columns wide.
func RenderToast(theme *styles.Theme, t session.Toast, width int) string {
	maxWidth := 60
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	maxWidth = clampWidth(maxWidth, 24)

	var style lipgloss.Style
	var icon string
	switch t.Level {
	case session.ToastError:
		style, icon = theme.ToastError, theme.ErrorStyle.Render(styles.StatusIndicators.Error)
	case session.ToastWarn:
		style, icon = theme.ToastWarn, theme.WarningStyle.Render(styles.StatusIndicators.Warning)
	case session.ToastSuccess:
		style, icon = theme.ToastSuccess, theme.SuccessStyle.Render(styles.StatusIndicators.Success)
	default:
		style, icon = theme.ToastInfo, theme.InfoStyle.Render(styles.StatusIndicators.Info)
	}

	textWidth := maxWidth - style.GetHorizontalFrameSize() - lipgloss.Width(icon) - 1
	text := lipgloss.NewStyle().Width(clampWidth(textWidth, 10)).Render(t.Text)
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, icon+" ", text))
}

// RenderToastStack renders toasts right-aligned, newest at the bottom.
func RenderToastStack(theme *styles.Theme, toasts []session.Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, RenderToast(theme, t, width))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width <= 0 {
		return stack
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}

// OverlayBottom replaces the last lines of base with overlay, keeping the
// total line count. Used to float toasts above the transcript.
func OverlayBottom(base, overlay string) string {
	if overlay == "" {
		return base
	}
	baseLines := strings.Split(base, "\n")
	overLines := strings.Split(overlay, "\n")
	if len(overLines) >= len(baseLines) {
		return strings.Join(overLines[len(overLines)-len(baseLines):], "\n")
	}
	copy(baseLines[len(baseLines)-len(overLines):], overLines)
	return strings.Join(baseLines, "\n")
}
