// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"fmt"

	"github.com/ifinspire/aigent/internal/model"
)

// OverflowError blocks a send whose prompt cannot fit the context window and
// that the kernel has no instructions to compact.
type OverflowError struct {
	Estimated int
	Max       int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("message too long: estimated %d tokens exceeds the %d-token context window "+
		"(shorten the message, start a new chat, or set compaction instructions)", e.Estimated, e.Max)
}

// CheckSend validates usage before a send. Overflow is a hard error only when
// no compaction instructions are configured; otherwise the kernel compacts and
// the overflow is advisory.
func CheckSend(usage Usage, settings model.ContextSettings) error {
	if !usage.Exceeds || settings.HasCompactInstructions() {
		return nil
	}
	return &OverflowError{Estimated: usage.EstimatedTokens, Max: usage.MaxContext}
}
