// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
)

// =============================================================================
// CONTEXT SETTINGS
// =============================================================================

// Bounds accepted by the kernel for context settings.
const (
	MinContextTokens  = 256
	MaxContextTokens  = 262144
	MinResponseTokens = 16
	MaxResponseTokens = 262144
	MinTriggerPct     = 0.1
	MaxTriggerPct     = 1.0
)

// ContextSettings is the context window configuration singleton.
// MaxContextTokens is declared by the kernel and read-only to the client.
type ContextSettings struct {
	MaxContextTokens    int       `json:"max_context_tokens"`
	MaxResponseTokens   int       `json:"max_response_tokens"`
	CompactTriggerPct   float64   `json:"compact_trigger_pct"`
	CompactInstructions string    `json:"compact_instructions"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DefaultContextSettings mirrors the kernel's defaults. It is only used until
// the real settings are loaded.
func DefaultContextSettings() ContextSettings {
	return ContextSettings{
		MaxContextTokens:  8192,
		MaxResponseTokens: 1024,
		CompactTriggerPct: 0.9,
	}
}

// SettingsFromWire converts the kernel representation.
func SettingsFromWire(s kernel.ContextSettings) ContextSettings {
	return ContextSettings{
		MaxContextTokens:    s.MaxContextTokens,
		MaxResponseTokens:   s.MaxResponseTokens,
		CompactTriggerPct:   s.CompactTriggerPct,
		CompactInstructions: s.CompactInstructions,
		UpdatedAt:           s.UpdatedAt.Time,
	}
}

// HasCompactInstructions reports whether compaction instructions are set.
func (s ContextSettings) HasCompactInstructions() bool {
	return strings.TrimSpace(s.CompactInstructions) != ""
}

// TriggerTokens is the estimated prompt size at which the kernel compacts.
func (s ContextSettings) TriggerTokens() int {
	return int(float64(s.MaxContextTokens) * s.CompactTriggerPct)
}

// Validate checks the client-editable fields against the kernel's bounds.
func (s ContextSettings) Validate() error {
	var errs ValidateErrors

	if s.MaxResponseTokens < MinResponseTokens || s.MaxResponseTokens > MaxResponseTokens {
		errs = append(errs, ValidationError{
			Field:   "max_response_tokens",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinResponseTokens, MaxResponseTokens, s.MaxResponseTokens),
		})
	}
	if s.CompactTriggerPct < MinTriggerPct || s.CompactTriggerPct > MaxTriggerPct {
		errs = append(errs, ValidationError{
			Field:   "compact_trigger_pct",
			Message: fmt.Sprintf("must be between %.1f and %.1f, got %g", MinTriggerPct, MaxTriggerPct, s.CompactTriggerPct),
		})
	}
	// Only checked when known; zero means the kernel has not reported it yet.
	if s.MaxContextTokens != 0 && (s.MaxContextTokens < MinContextTokens || s.MaxContextTokens > MaxContextTokens) {
		errs = append(errs, ValidationError{
			Field:   "max_context_tokens",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinContextTokens, MaxContextTokens, s.MaxContextTokens),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Patch returns the partial update that persists the editable fields.
func (s ContextSettings) Patch() kernel.ContextSettingsPatch {
	resp := s.MaxResponseTokens
	pct := s.CompactTriggerPct
	instr := s.CompactInstructions
	return kernel.ContextSettingsPatch{
		MaxResponseTokens:   &resp,
		CompactTriggerPct:   &pct,
		CompactInstructions: &instr,
	}
}

// =============================================================================
// SETTINGS INPUT
// =============================================================================

// SettingsInput holds raw, user-typed settings values.
type SettingsInput struct {
	MaxResponseTokens   string
	CompactTriggerPct   string
	CompactInstructions string
}

// InputFromSettings pre-fills an input form from current settings.
func InputFromSettings(s ContextSettings) SettingsInput {
	return SettingsInput{
		MaxResponseTokens:   strconv.Itoa(s.MaxResponseTokens),
		CompactTriggerPct:   strconv.FormatFloat(s.CompactTriggerPct, 'f', -1, 64),
		CompactInstructions: s.CompactInstructions,
	}
}

// Apply parses in on top of base and validates the result. Malformed numbers
// are reported as validation errors, never silently defaulted.
func (in SettingsInput) Apply(base ContextSettings) (ContextSettings, error) {
	var errs ValidateErrors
	out := base

	if v := strings.TrimSpace(in.MaxResponseTokens); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "max_response_tokens", Message: fmt.Sprintf("not a whole number: %q", v)})
		} else {
			out.MaxResponseTokens = n
		}
	}
	if v := strings.TrimSpace(in.CompactTriggerPct); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, ValidationError{Field: "compact_trigger_pct", Message: fmt.Sprintf("not a number: %q", v)})
		} else {
			out.CompactTriggerPct = f
		}
	}
	out.CompactInstructions = in.CompactInstructions

	if len(errs) > 0 {
		return base, errs
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// ValidationError is a locally detected problem with user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
