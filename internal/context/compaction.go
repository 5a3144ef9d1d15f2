// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package context

import (
	"strings"

	"github.com/ifinspire/aigent/internal/model"
)

// =============================================================================
// COMPACTION PROJECTION
// =============================================================================

// Projection is the kernel's prompt assembly for the next turn, replayed on
// the client.
type Projection struct {
	// Applied is true when compaction instructions will be inserted.
	Applied bool

	TriggerTokens   int
	EstimatedBefore int
	EstimatedAfter  int

	// DroppedMessages counts history messages the kernel will discard to fit.
	DroppedMessages int

	// Fits is false when even the minimal prompt exceeds the window.
	Fits bool
}

// Compacts reports whether the kernel will alter the history at all.
func (p Projection) Compacts() bool {
	return p.Applied || p.DroppedMessages > 0
}

// ProjectCompaction replays how the kernel builds the prompt: system prompt,
// optional compaction instructions, then history including the draft. While
// the estimate exceeds the window and more than two messages remain, the
// message at position two is dropped.
//
// systemChars is the size of the kernel's system prompt, from /api/prompts/system
// or the last exchange's prompt breakdown; pass 0 when unknown.
func ProjectCompaction(history []string, draft string, settings model.ContextSettings, systemChars int) Projection {
	sizes := make([]int, 0, len(history)+3)
	sizes = append(sizes, systemChars)
	for _, h := range history {
		sizes = append(sizes, CountChars(h))
	}
	if d := strings.TrimSpace(draft); d != "" {
		sizes = append(sizes, CountChars(d))
	}

	proj := Projection{TriggerTokens: settings.TriggerTokens()}
	proj.EstimatedBefore = estimateSizes(sizes)

	if instr := strings.TrimSpace(settings.CompactInstructions); instr != "" && proj.EstimatedBefore >= proj.TriggerTokens {
		sizes = append(sizes[:1], append([]int{CountChars(instr)}, sizes[1:]...)...)
		proj.Applied = true
	}

	for len(sizes) > 2 && estimateSizes(sizes) > settings.MaxContextTokens {
		sizes = append(sizes[:2], sizes[3:]...)
		proj.DroppedMessages++
	}

	proj.EstimatedAfter = estimateSizes(sizes)
	proj.Fits = proj.EstimatedAfter <= settings.MaxContextTokens
	return proj
}

func estimateSizes(sizes []int) int {
	total := 0
	for _, n := range sizes {
		total += n
	}
	n := (total + CharsPerToken - 1) / CharsPerToken
	if n < 1 {
		return 1
	}
	return n
}
