// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/ui/components"
	"github.com/ifinspire/aigent/internal/ui/styles"
	"github.com/ifinspire/aigent/internal/util"
)

// activityLimit is how many capability updates the telemetry panel lists.
const activityLimit = 8

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat interface.
func (m Model) View() string {
	if !m.ready {
		return m.theme.Muted.Render("Connecting to the kernel...")
	}

	body := m.renderBody()
	if toasts := components.RenderToastStack(m.theme, m.state.Toasts, m.mainWidth()); toasts != "" {
		body = components.OverlayBottom(body, toasts)
	}

	main := lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
	if m.theme.GetLayoutMode().ShowSidebar() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), main, m.statusBar.View())
}

func (m Model) mainWidth() int {
	if m.theme.GetLayoutMode().ShowSidebar() {
		return m.width - sidebarWidth
	}
	return m.width
}

// renderBody renders the message viewport or the open panel, padded to the
// viewport height.
func (m Model) renderBody() string {
	var content string
	switch m.panel {
	case PanelSettings:
		content = m.settings.View()
	case PanelBaseline:
		content = m.bench.View(m.state.Baseline)
	case PanelTelemetry:
		content = m.renderTelemetryPanel()
	case PanelHelp:
		content = m.renderHelp()
	default:
		return m.viewport.View()
	}
	return lipgloss.NewStyle().
		Width(m.viewport.Width).
		Height(m.viewport.Height).
		MaxHeight(m.viewport.Height).
		Render(content)
}

// renderFooter renders the context bar and the input box.
func (m Model) renderFooter() string {
	var parts []string
	if m.contextBarHeight() > 0 {
		parts = append(parts, m.contextBar.View())
	}
	parts = append(parts, m.renderInput())
	return strings.Join(parts, "\n")
}

// renderInput renders the draft box, or the delete confirmation in its place.
func (m Model) renderInput() string {
	container := m.theme.InputContainer
	if m.pendingHere() {
		container = m.theme.InputContainerBusy
	}
	width := m.mainWidth() - container.GetHorizontalBorderSize()

	if m.confirmDelete != "" {
		title := m.confirmDelete
		if i := model.IndexOfConversation(m.state.Conversations, m.confirmDelete); i >= 0 {
			title = m.state.Conversations[i].DisplayTitle()
		}
		prompt := m.theme.WarningStyle.Render(fmt.Sprintf(
			"%s Delete %q? y to confirm, any other key to cancel", styles.StatusIndicators.Warning, util.TruncateWidth(title, 40)))
		return container.Width(width).Height(inputLines).Render(prompt)
	}
	return container.Width(width).Render(m.input.View())
}

// renderMessages renders the viewport content for the active conversation.
func (m Model) renderMessages() string {
	st := m.state
	width := max(10, m.viewport.Width)

	if st.Loading {
		return m.theme.Muted.Render(m.spinner.View() + " Loading conversation...")
	}
	if len(st.Messages) == 0 {
		return m.renderWelcome(width)
	}

	out := m.renderer.Render(st.Messages)
	if m.pendingHere() {
		out += "\n\n" + m.theme.PendingMarker.Render(m.spinner.View()+" thinking...")
	}
	return out
}

func (m Model) renderWelcome(width int) string {
	lines := []string{m.theme.PanelTitle.Render("New chat")}
	if name := m.state.Health.Model; name != "" {
		lines = append(lines, m.theme.Muted.Render("Model: "+name))
	}
	if !m.state.Health.Reachable && m.state.Health.Error != "" {
		lines = append(lines, m.theme.ErrorStyle.Render(styles.StatusIndicators.Error+" "+m.state.Health.Error))
		lines = append(lines, m.theme.Muted.Render("Press F5 to retry."))
	} else {
		lines = append(lines, m.theme.Muted.Render("Type a message and press Enter. /help lists commands."))
	}
	return lipgloss.NewStyle().Width(width).Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// renderTelemetryPanel shows telemetry and the activity feed, side by side
// when there is room.
func (m Model) renderTelemetryPanel() string {
	width := m.mainWidth()
	if width >= 110 {
		left := width * 3 / 5
		return lipgloss.JoinHorizontal(lipgloss.Top,
			components.RenderTelemetry(m.theme, m.state.Telemetry, left),
			components.RenderActivity(m.theme, m.state.Capabilities, width-left, activityLimit),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		components.RenderTelemetry(m.theme, m.state.Telemetry, width),
		components.RenderActivity(m.theme, m.state.Capabilities, width, activityLimit/2),
	)
}

// renderHelp lists key bindings and slash commands.
func (m Model) renderHelp() string {
	lines := []string{m.theme.PanelTitle.Render("Keys")}
	for _, group := range m.keys.FullHelp() {
		var parts []string
		for _, b := range group {
			h := b.Help()
			parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
		lines = append(lines, strings.Join(parts, "  "))
	}

	lines = append(lines, "", m.theme.PanelTitle.Render("Commands"))
	for _, c := range commandHelp {
		lines = append(lines, m.theme.ShortcutKey.Render(util.PadRight(c[0], 32))+m.theme.ShortcutDesc.Render(c[1]))
	}
	return m.theme.Panel.Width(m.mainWidth() - m.theme.Panel.GetHorizontalBorderSize()).
		Render(strings.Join(lines, "\n"))
}
