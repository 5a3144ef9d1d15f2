// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reasoning separates hidden reasoning spans from model output.
//
// Models such as qwen3 and deepseek-r1 emit their chain of thought between
// <think> and </think> tags ahead of the answer. Parse removes every such span
// from the visible text and returns the spans' contents separately.
//
// Matching is case-insensitive. Nested spans are flattened into their
// outermost span. An opening tag without a matching close yields no reasoning;
// stray or unmatched tags are always removed from the visible text.
// A span holding only whitespace counts as no reasoning.
package reasoning

import (
	"strings"
)

// Placeholder is shown when the output contained reasoning but no answer.
const Placeholder = "(no final response text)"

const (
	openTag  = "<think>"
	closeTag = "</think>"
)

// Result is the outcome of parsing one model output.
type Result struct {
	// Visible is the text with reasoning spans and tags removed, trimmed.
	Visible string

	// Reasoning is the trimmed contents of all spans joined by a blank line.
	// Empty when no non-empty span was found.
	Reasoning string
}

// HasReasoning reports whether reasoning text was extracted.
func (r Result) HasReasoning() bool {
	return r.Reasoning != ""
}

type tagKind int

const (
	tagOpen tagKind = iota
	tagClose
)

type tag struct {
	kind  tagKind
	start int // byte offset of '<'
	end   int // byte offset just past '>'
}

// scanTags finds every delimiter in raw, in order.
func scanTags(raw string) []tag {
	// ASCII lowering keeps byte offsets aligned with raw.
	lower := asciiLower(raw)
	var tags []tag
	for i := 0; i < len(lower); {
		j := strings.IndexByte(lower[i:], '<')
		if j < 0 {
			break
		}
		pos := i + j
		switch {
		case strings.HasPrefix(lower[pos:], openTag):
			tags = append(tags, tag{kind: tagOpen, start: pos, end: pos + len(openTag)})
			i = pos + len(openTag)
		case strings.HasPrefix(lower[pos:], closeTag):
			tags = append(tags, tag{kind: tagClose, start: pos, end: pos + len(closeTag)})
			i = pos + len(closeTag)
		default:
			i = pos + 1
		}
	}
	return tags
}

// Parse splits raw model output into visible text and reasoning.
func Parse(raw string) Result {
	tags := scanTags(raw)
	if len(tags) == 0 {
		return Result{Visible: strings.TrimSpace(raw)}
	}

	var (
		visible   strings.Builder
		spans     []string
		depth     int
		spanStart int // start of outermost span content
		cursor    int // next byte of raw not yet consumed
	)

	for _, t := range tags {
		switch t.kind {
		case tagOpen:
			if depth == 0 {
				visible.WriteString(raw[cursor:t.start])
				spanStart = t.end
			}
			depth++
			cursor = t.end
		case tagClose:
			if depth == 0 {
				// Stray close tag.
				visible.WriteString(raw[cursor:t.start])
				cursor = t.end
				continue
			}
			depth--
			cursor = t.end
			if depth == 0 {
				if s := strings.TrimSpace(stripTags(raw[spanStart:t.start])); s != "" {
					spans = append(spans, s)
				}
			}
		}
	}

	if depth > 0 {
		// Unterminated span: not reasoning. Keep its text, drop its tags.
		visible.WriteString(stripTags(raw[spanStart:]))
	} else {
		visible.WriteString(raw[cursor:])
	}

	res := Result{
		Visible:   strings.TrimSpace(visible.String()),
		Reasoning: strings.Join(spans, "\n\n"),
	}
	if res.Visible == "" && len(spans) > 0 {
		res.Visible = Placeholder
	}
	return res
}

// stripTags removes every delimiter from s.
func stripTags(s string) string {
	tags := scanTags(s)
	if len(tags) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	cursor := 0
	for _, t := range tags {
		b.WriteString(s[cursor:t.start])
		cursor = t.end
	}
	b.WriteString(s[cursor:])
	return b.String()
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
