// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Printing messages and usage for ask and chat.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/model"
)

var (
	markdownOnce     sync.Once
	markdownRenderer *glamour.TermRenderer
)

// renderMarkdown renders content for the terminal, or returns it unchanged
// when the renderer is unavailable.
func renderMarkdown(content string) string {
	markdownOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(GetTerminalWidth()-4),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// replyOptions controls printReply.
type replyOptions struct {
	Markdown  bool
	Reasoning bool
	Stats     bool
}

// printReply prints an assistant message. Markdown is only rendered on a TTY
// so piped output stays verbatim.
func printReply(w io.Writer, msg model.Message, tele model.Telemetry, opts replyOptions) {
	if opts.Reasoning && msg.HasReasoning() {
		fmt.Fprintln(w, DimStyle.Render("Reasoning:"))
		fmt.Fprintln(w, ReasoningStyle.Render(WrapText(msg.Reasoning, 0)))
		fmt.Fprintln(w)
	}

	if opts.Markdown && IsStdoutTTY() {
		fmt.Fprint(w, renderMarkdown(msg.Content))
	} else {
		fmt.Fprintln(w, msg.Content)
	}

	if opts.Stats && tele != nil {
		fmt.Fprintln(w, DimStyle.Render(model.FormatStats(tele)))
	}
}

// formatUsage returns a one-line context usage summary.
// Format: "1,234 / 8,192 tokens (15%) | compaction instructions active"
func formatUsage(u ctxwin.Usage) string {
	s := fmt.Sprintf("%s / %s tokens (%d%%)", groupDigits(u.EstimatedTokens), groupDigits(u.MaxContext), u.Pct)
	if u.IncludesCompactInstructions {
		s += " | compaction instructions active"
	}
	if u.Exceeds {
		s += " | exceeds window"
	}
	return s
}

// formatProjection describes what the kernel would drop on the next send.
func formatProjection(p ctxwin.Projection) string {
	if !p.Compacts() {
		return "no compaction expected"
	}
	s := fmt.Sprintf("compaction at %s tokens: ~%s -> ~%s, dropping %d message(s)",
		groupDigits(p.TriggerTokens), groupDigits(p.EstimatedBefore), groupDigits(p.EstimatedAfter), p.DroppedMessages)
	if !p.Fits {
		s += ", still over the window"
	}
	return s
}

func groupDigits(n int) string {
	s := fmt.Sprint(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
