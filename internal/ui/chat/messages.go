// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/ifinspire/aigent/internal/config"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/session"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// StateMsg carries a state published by the session controller.
type StateMsg struct {
	State session.State
	// Closed is set when the subscription ended.
	Closed bool
}

// OpDoneMsg reports that a controller call returned.
type OpDoneMsg struct {
	Op  Op
	Err error
}

// Op names a controller call made from the UI.
type Op string

const (
	OpInit     Op = "init"
	OpRefresh  Op = "refresh"
	OpWarmup   Op = "warmup"
	OpSelect   Op = "select"
	OpDelete   Op = "delete"
	OpBaseline Op = "baseline"
)

// SendDoneMsg reports that a send returned. Text is the submitted draft.
type SendDoneMsg struct {
	Text string
	Err  error
}

// SettingsSavedMsg reports the outcome of a settings save.
type SettingsSavedMsg struct {
	Settings model.ContextSettings
	Err      error
}

// ExportDoneMsg reports a finished export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// TIMER AND CONFIG MESSAGES
// =============================================================================

// ToastTickMsg drives toast expiry.
type ToastTickMsg time.Time

// ConfigReloadedMsg carries a config reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}
