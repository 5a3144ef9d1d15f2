// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot "aigent ask" command.
//
// Examples:
//
//	aigent ask "What changed in the last release?"
//	aigent ask -C 6f1c2d "and the breaking changes?"
//	git diff | aigent ask "review this diff"
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/model"
)

// maxStdinBytes bounds how much piped input is read.
const maxStdinBytes = 256 * 1024

// AskResult is the JSON shape of an ask reply.
type AskResult struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	Reasoning      string `json:"reasoning,omitempty"`
	Stats          string `json:"stats"`
	UsagePct       int    `json:"usage_pct"`
}

// buildQuery combines the query argument with piped stdin.
func buildQuery(query string, stdin io.Reader, piped bool) (string, error) {
	if !piped {
		return strings.TrimSpace(query), nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxStdinBytes+1))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > maxStdinBytes {
		return "", NewValidationError("stdin", formatBytes(int64(len(data)))+"+", fmt.Sprintf("input larger than %s", formatBytes(maxStdinBytes)))
	}
	input := strings.TrimSpace(string(data))
	query = strings.TrimSpace(query)
	switch {
	case input == "":
		return query, nil
	case query == "":
		return input, nil
	default:
		return query + "\n\n" + input, nil
	}
}

// HandleAsk sends one message and prints the reply.
func HandleAsk(args Args) error {
	query, err := buildQuery(args.Query, os.Stdin, !IsTTY())
	if err != nil {
		return err
	}
	if query == "" {
		return NewValidationErrorWithExample("query", "", "nothing to ask", `aigent ask "What is the kernel's model?"`)
	}

	rt, err := NewRuntime(args, logging.ToStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ctrl := rt.Controller()
	defer ctrl.Close()

	ctrl.RefreshDashboard(ctx)
	if args.Conversation != "" {
		if err := ctrl.SelectConversation(ctx, args.Conversation); err != nil {
			return err
		}
	}

	if err := ctrl.SendMessage(ctx, query); err != nil {
		var overflow *ctxwin.OverflowError
		if errors.As(err, &overflow) && !args.JSON {
			StderrPrint("%s\n", DimStyle.Render("Set compaction instructions with 'aigent settings set --instructions ...' to let the kernel compact history."))
		}
		return err
	}

	st := ctrl.State()
	reply, ok := lastAssistant(st.Messages)
	if !ok {
		return NewCommandError("ask", "send", "kernel returned no reply", nil)
	}

	if args.JSON {
		return NewJSONResponse("ask", AskResult{
			ConversationID: st.ActiveID,
			Reply:          reply.Content,
			Reasoning:      reply.Reasoning,
			Stats:          model.FormatStats(st.Telemetry.Current),
			UsagePct:       st.Usage.Pct,
		}).Print()
	}

	printReply(os.Stdout, reply, st.Telemetry.Current, replyOptions{
		Markdown:  rt.Config.UI.Markdown && !args.NoMarkdown,
		Reasoning: args.Reasoning || rt.Config.UI.ShowReasoning,
		Stats:     !args.Quiet,
	})
	if !args.Quiet {
		StderrPrint("%s\n", DimStyle.Render("conversation "+st.ActiveID+" | "+formatUsage(st.Usage)))
	}
	return nil
}

func lastAssistant(msgs []model.Message) (model.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i], true
		}
	}
	return model.Message{}, false
}
