// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ifinspire/aigent/internal/model"
)

// =============================================================================
// MARKDOWN TRANSCRIPT
// =============================================================================

// MarkdownExporter writes one conversation as a Markdown transcript.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// frontmatter is the YAML header of a transcript.
type frontmatter struct {
	Title          string `yaml:"title"`
	ConversationID string `yaml:"conversation_id"`
	Updated        string `yaml:"updated,omitempty"`
	Messages       int    `yaml:"messages"`
	Exported       string `yaml:"exported"`
	Generator      string `yaml:"generator"`
}

// Export renders a conversation. Error bubbles are skipped; they never
// reached the kernel.
func (e *MarkdownExporter) Export(conv model.ConversationSummary, msgs []model.Message) ([]byte, error) {
	if conv.ID == "" {
		return nil, fmt.Errorf("conversation has no id")
	}

	kept := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsError {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	fm := frontmatter{
		Title:          conv.DisplayTitle(),
		ConversationID: conv.ID,
		Messages:       len(kept),
		Exported:       e.now().UTC().Format(time.RFC3339),
		Generator:      "aigent",
	}
	if !conv.UpdatedAt.IsZero() {
		fm.Updated = conv.UpdatedAt.UTC().Format(time.RFC3339)
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(header)
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.DisplayTitle())))

	for i, msg := range kept {
		label := roleLabel(msg.Role)
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, msg.Timestamp.Local().Format("Jan 2 15:04:05")))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		if e.options.IncludeReasoning && msg.HasReasoning() {
			sb.WriteString("<details>\n<summary>Reasoning</summary>\n\n")
			sb.WriteString(strings.TrimSpace(msg.Reasoning))
			sb.WriteString("\n\n</details>\n\n")
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(kept)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "You"
	case model.RoleAssistant:
		return "Assistant"
	case model.RoleSystem:
		return "System"
	default:
		if role == "" {
			return "Unknown"
		}
		r := []rune(string(role))
		return strings.ToUpper(string(r[0])) + string(r[1:])
	}
}

// escapeMarkdown escapes characters that would break headings.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
