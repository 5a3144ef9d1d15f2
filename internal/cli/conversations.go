// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - Conversation listing and management.
//
// Command: conversations [subcommand]
// Aliases: conv
//
// Subcommands:
//
//	list (default)      List conversations, most recent first
//	show <n|id>         Print a conversation's messages
//	delete <n|id>       Delete a conversation
//
// Examples:
//
//	aigent conv
//	aigent conv show 1
//	aigent conv show 6f1c --format markdown -o chat.md
//	aigent conv delete 2 -y
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ifinspire/aigent/internal/export"
	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/util"
)

// ConversationMessage is the JSON form of one message.
type ConversationMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Reasoning string    `json:"reasoning,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationDetail is the JSON form of "conversations show".
type ConversationDetail struct {
	Conversation model.ConversationSummary `json:"conversation"`
	Messages     []ConversationMessage     `json:"messages"`
}

// HandleConversations handles the "conversations" command.
func HandleConversations(args Args) error {
	rt, err := NewRuntime(args, logging.ToStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctrl := rt.Controller()
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Kernel.Timeout()*2)
	defer cancel()

	convs, err := ctrl.RefreshConversations(ctx)
	if err != nil {
		return err
	}

	sub := strings.ToLower(args.Subcommand)
	arg := ""
	if len(args.Raw) > 0 {
		arg = args.Raw[0]
	}

	switch sub {
	case "", "list", "ls":
		if args.Limit > 0 && len(convs) > args.Limit {
			convs = convs[:args.Limit]
		}
		if args.JSON {
			if convs == nil {
				convs = []model.ConversationSummary{}
			}
			return NewJSONResponse("conversations", convs).Print()
		}
		printConversationList(convs, "")
		return nil

	case "show", "cat":
		id, err := resolveConversation(arg, convs)
		if err != nil {
			return err
		}
		if err := ctrl.SelectConversation(ctx, id); err != nil {
			return err
		}
		st := ctrl.State()
		conv, _ := st.ActiveConversation()
		return showConversation(args, conv, st.Messages)

	case "delete", "rm":
		id, err := resolveConversation(arg, convs)
		if err != nil {
			return err
		}
		ok, err := RequireConfirmation("delete conversation "+id, ConfirmationOptions{Yes: args.Yes, JSONMode: args.JSON})
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := ctrl.DeleteConversation(ctx, id); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("conversations delete", map[string]string{"deleted": id}).Print()
		}
		fmt.Println(SuccessStyle.Render("Deleted conversation " + id))
		return nil

	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown conversations subcommand", "aigent conversations [list|show|delete]")
	}
}

func showConversation(args Args, conv model.ConversationSummary, msgs []model.Message) error {
	if strings.EqualFold(args.Format, "markdown") || strings.EqualFold(args.Format, "md") {
		opts := export.DefaultOptions()
		opts.IncludeReasoning = args.Reasoning
		exp := export.NewMarkdownExporter(opts)
		data, err := exp.Export(conv, msgs)
		if err != nil {
			return err
		}
		if args.Output != "" {
			if err := util.AtomicWriteFile(args.Output, data, 0600); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", args.Output)
			return nil
		}
		if IsStdoutTTY() {
			return export.Highlight(os.Stdout, data, "markdown")
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	if args.JSON {
		detail := ConversationDetail{Conversation: conv, Messages: []ConversationMessage{}}
		for _, m := range msgs {
			detail.Messages = append(detail.Messages, ConversationMessage{
				ID:        m.ID,
				Role:      m.Role.String(),
				Content:   m.Content,
				Reasoning: m.Reasoning,
				Timestamp: m.Timestamp,
			})
		}
		return NewJSONResponse("conversations show", detail).Print()
	}

	fmt.Println(TitleStyle.Render(conv.DisplayTitle()))
	printField("ID", conv.ID)
	printField("Updated", formatAge(conv.UpdatedAt, time.Now()))
	fmt.Println(RenderSeparator(41))
	for _, m := range msgs {
		switch m.Role {
		case model.RoleUser:
			fmt.Println(PromptStyle.Render("you>"))
			fmt.Println(m.Content)
		case model.RoleAssistant:
			fmt.Println(AssistantStyle.Render("assistant>"))
			printReply(os.Stdout, m, nil, replyOptions{Markdown: !args.NoMarkdown, Reasoning: args.Reasoning})
		default:
			fmt.Println(DimStyle.Render(m.Role.DisplayName() + "> " + m.Content))
		}
		fmt.Println()
	}
	return nil
}

// printConversationList prints a numbered list. The numbers are accepted by
// "show", "delete" and the chat /open command.
func printConversationList(convs []model.ConversationSummary, activeID string) {
	if len(convs) == 0 {
		fmt.Println(DimStyle.Render("No conversations."))
		return
	}
	now := time.Now()
	width := GetTerminalWidth()
	for i, c := range convs {
		marker := " "
		if c.ID == activeID {
			marker = "*"
		}
		head := fmt.Sprintf("%s%3d  %s  %s", marker, i+1, util.PadRight(util.TruncateWidth(c.DisplayTitle(), 36), 36), DimStyle.Render(util.PadRight(formatAge(c.UpdatedAt, now), 10)))
		fmt.Println(head)
		if c.LastMessage != "" {
			fmt.Println("       " + DimStyle.Render(util.TruncateWidth(util.Preview(c.LastMessage, 200), width-8)))
		}
	}
}
