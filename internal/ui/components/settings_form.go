// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/ui/styles"
)

// =============================================================================
// SETTINGS FORM
// =============================================================================

// Settings form field indices.
const (
	FieldMaxResponseTokens = iota
	FieldTriggerPct
	FieldInstructions
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Max response tokens",
	"Compaction trigger",
	"Compaction instructions",
}

var fieldHints = [fieldCount]string{
	fmt.Sprintf("%d to %d", model.MinResponseTokens, model.MaxResponseTokens),
	fmt.Sprintf("fraction of the window, %.1f to %.1f", model.MinTriggerPct, model.MaxTriggerPct),
	"optional; empty disables compaction",
}

// SettingsForm edits the context settings. Values stay raw strings until
// Input is applied, so malformed numbers surface as validation errors.
type SettingsForm struct {
	inputs   [fieldCount]textinput.Model
	focus    int
	base     model.ContextSettings
	errors   map[string]string
	errorMsg string
	saving   bool
	width    int
	theme    *styles.Theme
}

// NewSettingsForm creates a form pre-filled from s.
func NewSettingsForm(theme *styles.Theme, s model.ContextSettings) *SettingsForm {
	f := &SettingsForm{theme: theme, width: 60}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.PlaceholderStyle = theme.InputPlaceholder
		ti.CharLimit = 512
		f.inputs[i] = ti
	}
	f.inputs[FieldMaxResponseTokens].CharLimit = 8
	f.inputs[FieldTriggerPct].CharLimit = 6
	f.inputs[FieldInstructions].Placeholder = "e.g. Summarize earlier turns in three bullet points"
	f.Reset(s)
	return f
}

// Reset discards edits and errors and re-fills from s.
func (f *SettingsForm) Reset(s model.ContextSettings) {
	f.base = s
	in := model.InputFromSettings(s)
	f.inputs[FieldMaxResponseTokens].SetValue(in.MaxResponseTokens)
	f.inputs[FieldTriggerPct].SetValue(in.CompactTriggerPct)
	f.inputs[FieldInstructions].SetValue(in.CompactInstructions)
	f.errors = nil
	f.errorMsg = ""
	f.saving = false
	f.setFocus(0)
}

// SetWidth sets the form width.
func (f *SettingsForm) SetWidth(width int) {
	f.width = width
	w := clampWidth(width-f.theme.Panel.GetHorizontalFrameSize()-f.theme.FieldLabel.GetWidth()-2, 10)
	for i := range f.inputs {
		f.inputs[i].Width = w
	}
}

// Focus returns the focused field index.
func (f *SettingsForm) Focus() int {
	return f.focus
}

func (f *SettingsForm) setFocus(i int) {
	f.focus = (i + fieldCount) % fieldCount
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// NextField moves focus forward, wrapping around.
func (f *SettingsForm) NextField() {
	f.setFocus(f.focus + 1)
}

// PrevField moves focus back, wrapping around.
func (f *SettingsForm) PrevField() {
	f.setFocus(f.focus - 1)
}

// Input returns the raw values as typed.
func (f *SettingsForm) Input() model.SettingsInput {
	return model.SettingsInput{
		MaxResponseTokens:   f.inputs[FieldMaxResponseTokens].Value(),
		CompactTriggerPct:   f.inputs[FieldTriggerPct].Value(),
		CompactInstructions: f.inputs[FieldInstructions].Value(),
	}
}

// Validate applies the input locally. Errors are kept for display.
func (f *SettingsForm) Validate() (model.ContextSettings, bool) {
	out, err := f.Input().Apply(f.base)
	f.SetError(err)
	return out, err == nil
}

// SetSaving marks a save in flight.
func (f *SettingsForm) SetSaving(saving bool) {
	f.saving = saving
}

// SetError records a validation or save error. Field errors are shown next
// to their field.
func (f *SettingsForm) SetError(err error) {
	f.errors = nil
	f.errorMsg = ""
	if err == nil {
		return
	}
	var list model.ValidateErrors
	var single model.ValidationError
	switch {
	case errors.As(err, &list):
	case errors.As(err, &single):
		list = model.ValidateErrors{single}
	default:
		f.errorMsg = err.Error()
		return
	}
	f.errors = make(map[string]string, len(list))
	for _, ve := range list {
		f.errors[ve.Field] = ve.Message
	}
}

// HasErrors reports whether any error is shown.
func (f *SettingsForm) HasErrors() bool {
	return len(f.errors) > 0 || f.errorMsg != ""
}

// Update forwards key input to the focused field.
func (f *SettingsForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

var fieldNames = [fieldCount]string{
	"max_response_tokens",
	"compact_trigger_pct",
	"compact_instructions",
}

// View renders the form.
func (f *SettingsForm) View() string {
	lines := []string{f.theme.PanelTitle.Render("Context settings"), ""}

	lines = append(lines, f.theme.FieldLabel.Render("Max context tokens")+
		f.theme.StatsValue.Render(fmtNumber(f.base.MaxContextTokens))+
		f.theme.FieldHint.Render("  (set by the kernel)"))

	for i := range f.inputs {
		label := f.theme.FieldLabel
		if i == f.focus {
			label = f.theme.FieldFocused
		}
		lines = append(lines, label.Render(fieldLabels[i])+f.inputs[i].View())
		if msg, ok := f.errors[fieldNames[i]]; ok {
			lines = append(lines, strings.Repeat(" ", f.theme.FieldLabel.GetWidth())+
				f.theme.ValidationMessage.Render(styles.StatusIndicators.Error+" "+msg))
		} else if i == f.focus {
			lines = append(lines, strings.Repeat(" ", f.theme.FieldLabel.GetWidth())+
				f.theme.FieldHint.Render(fieldHints[i]))
		}
	}

	if f.base.TriggerTokens() > 0 {
		lines = append(lines, "", f.theme.Muted.Render(fmt.Sprintf(
			"Compaction starts at %s tokens.", fmtNumber(f.base.TriggerTokens()))))
	}
	for _, field := range slices.Sorted(maps.Keys(f.errors)) {
		if !slices.Contains(fieldNames[:], field) {
			lines = append(lines, f.theme.ValidationMessage.Render(styles.StatusIndicators.Error+" "+field+": "+f.errors[field]))
		}
	}
	if f.errorMsg != "" {
		lines = append(lines, f.theme.ValidationMessage.Render(styles.StatusIndicators.Error+" "+f.errorMsg))
	}

	footer := "enter save | tab next field | esc close"
	if f.saving {
		footer = "saving..."
	}
	lines = append(lines, "", f.theme.ShortcutDesc.Render(footer))

	return f.theme.Panel.Width(f.width - f.theme.Panel.GetHorizontalBorderSize()).
		Render(strings.Join(lines, "\n"))
}
