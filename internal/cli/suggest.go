// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Command suggestion for typo correction.
package cli

import (
	"strings"
)

// validCommands lists top-level commands and their aliases.
var validCommands = []string{
	"tui",
	"ask",
	"chat",
	"status",
	"conversations",
	"settings",
	"baseline",
	"export",
	"delete-all-data",
	"config",
	"version",
	"help",
	// Aliases
	"s",
	"conv",
	"conversation",
	"bench",
}

// SuggestCommand returns the closest known command within a few edits of
// input, or "" when nothing is close.
func SuggestCommand(input string) string {
	return suggestFrom(strings.ToLower(input), validCommands)
}

// SuggestSlashCommand does the same for chat slash commands.
func SuggestSlashCommand(input string) string {
	return suggestFrom("/"+strings.TrimPrefix(strings.ToLower(input), "/"), slashCommands)
}

func suggestFrom(input string, candidates []string) string {
	// Very short inputs are likely intentional.
	if len([]rune(input)) < 2 {
		return ""
	}

	// 1 edit up to 3 chars, 2 up to 8, 3 beyond.
	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	bestMatch := ""
	bestDistance := -1
	for _, cmd := range candidates {
		distance := levenshteinDistance(input, cmd)
		if distance == 0 {
			return ""
		}
		if distance <= maxDistance && (bestDistance == -1 || distance < bestDistance) {
			bestDistance = distance
			bestMatch = cmd
		}
	}
	return bestMatch
}

// levenshteinDistance is the number of single-rune insertions, deletions or
// substitutions needed to turn s1 into s2.
func levenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows instead of the full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
