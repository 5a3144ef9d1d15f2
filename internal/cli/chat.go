// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Examples:
//
//	aigent chat                   Continue the most recent conversation
//	aigent chat --new             Start a new conversation
//	aigent chat -C 6f1c2d         Continue a specific conversation
//
// Interactive Commands (during chat):
//
//	/help, /h           Show available commands
//	/new                Start a new conversation
//	/list, /ls          List conversations
//	/open <n|id>        Switch conversation
//	/delete <n|id>      Delete a conversation
//	/usage              Context window usage and compaction projection
//	/stats              Telemetry for recent exchanges
//	/reasoning          Toggle reasoning display
//	/quit, /q           Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/ifinspire/aigent/internal/config"
	ctxwin "github.com/ifinspire/aigent/internal/context"
	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/model"
	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.line.SetCompleter(completeSlash)
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

var slashCommands = []string{"/help", "/new", "/list", "/open", "/delete", "/usage", "/stats", "/reasoning", "/quit"}

func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// CHAT SESSION
// =============================================================================

type chatSession struct {
	ctrl      *session.Controller
	cfg       *config.Config
	quiet     bool
	reasoning bool
	started   time.Time
	sent      int
}

// HandleChat runs the interactive REPL.
func HandleChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	rt, err := NewRuntime(args, logging.ToFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctrl := rt.Controller()
	defer ctrl.Close()

	cs := &chatSession{
		ctrl:      ctrl,
		cfg:       rt.Config,
		quiet:     args.Quiet,
		reasoning: args.Reasoning || rt.Config.UI.ShowReasoning,
		started:   time.Now(),
	}

	initCtx, cancel := context.WithTimeout(context.Background(), rt.Config.Kernel.ChatTimeout())
	err = ctrl.Init(initCtx)
	cancel()
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch {
	case args.NewChat:
		ctrl.NewChat()
	case args.Conversation != "":
		if err := ctrl.SelectConversation(ctx, args.Conversation); err != nil {
			return err
		}
	}

	if !cs.quiet {
		cs.printWelcome()
	}

	input := NewChatCLI()
	defer input.Close()

	for {
		line, err := input.ReadInput(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted) and Ctrl+D both exit.
			fmt.Println()
			cs.printExitSummary()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			cs.printExitSummary()
			return nil
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := cs.handleSlashCommand(ctx, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				cs.printExitSummary()
				return nil
			}
			continue
		}

		if err := cs.send(line); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// send delivers one message. Ctrl+C while waiting cancels the request.
func (cs *chatSession) send(text string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if !cs.quiet {
		fmt.Println(DimStyle.Render("thinking..."))
	}
	err := cs.ctrl.SendMessage(ctx, text)
	if err != nil {
		var overflow *ctxwin.OverflowError
		if errors.As(err, &overflow) {
			return fmt.Errorf("%w (shorten the message, start /new, or set compaction instructions)", err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return errors.New("cancelled")
		}
		return err
	}
	cs.sent++

	st := cs.ctrl.State()
	if reply, ok := lastAssistant(st.Messages); ok {
		fmt.Println(AssistantStyle.Render("assistant>"))
		printReply(os.Stdout, reply, st.Telemetry.Current, replyOptions{
			Markdown:  cs.cfg.UI.Markdown,
			Reasoning: cs.reasoning,
			Stats:     !cs.quiet && cs.cfg.UI.ShowTelemetry,
		})
	}
	if !cs.quiet && st.Usage.NearTrigger() {
		fmt.Println(WarningStyle.Render("context: " + formatUsage(st.Usage)))
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// parseSlashCommand splits "/open 3" into ("open", "3").
func parseSlashCommand(input string) (name, arg string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, arg, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// resolveConversation accepts a 1-based list index, a full id, or a unique
// id prefix.
func resolveConversation(arg string, convs []model.ConversationSummary) (string, error) {
	if arg == "" {
		return "", NewValidationError("conversation", "", "missing index or id")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(convs) {
			return "", NewValidationError("conversation", arg, fmt.Sprintf("index out of range 1..%d", len(convs)))
		}
		return convs[n-1].ID, nil
	}

	var match string
	for _, c := range convs {
		if c.ID == arg {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, arg) {
			if match != "" {
				return "", NewValidationError("conversation", arg, "ambiguous id prefix")
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", &NotFoundError{Resource: "conversation", ID: arg}
	}
	return match, nil
}

func (cs *chatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	name, arg := parseSlashCommand(input)
	switch name {
	case "help", "h", "?":
		printChatHelp()

	case "quit", "q", "exit":
		return false, nil

	case "new", "n":
		cs.ctrl.NewChat()
		fmt.Println(SuccessStyle.Render("New conversation. It is created on your first message."))

	case "list", "ls":
		convs, err := cs.ctrl.RefreshConversations(ctx)
		if err != nil {
			return true, err
		}
		printConversationList(convs, cs.ctrl.State().ActiveID)

	case "open", "o":
		id, err := resolveConversation(arg, cs.ctrl.State().Conversations)
		if err != nil {
			return true, err
		}
		if err := cs.ctrl.SelectConversation(ctx, id); err != nil {
			return true, err
		}
		cs.printHistory()

	case "delete", "rm":
		st := cs.ctrl.State()
		id, err := resolveConversation(arg, st.Conversations)
		if err != nil {
			return true, err
		}
		ok, err := RequireConfirmation("delete conversation "+id, ConfirmationOptions{})
		if err != nil || !ok {
			return true, err
		}
		if err := cs.ctrl.DeleteConversation(ctx, id); err != nil {
			return true, err
		}
		fmt.Println(SuccessStyle.Render("Deleted."))

	case "usage", "u":
		st := cs.ctrl.State()
		printField("Context", formatUsage(st.Usage))
		printField("Trigger", fmt.Sprintf("%s tokens (%.0f%%)", groupDigits(st.Usage.TriggerTokens), st.Settings.CompactTriggerPct*100))
		printField("Projection", formatProjection(st.Projection))

	case "stats":
		printTelemetry(cs.ctrl.State())

	case "reasoning", "r":
		cs.reasoning = !cs.reasoning
		fmt.Printf("Reasoning display %s\n", map[bool]string{true: "on", false: "off"}[cs.reasoning])

	default:
		example := "/help"
		if s := SuggestSlashCommand(name); s != "" {
			example = s
		}
		return true, NewValidationErrorWithExample("command", "/"+name, "unknown chat command", example)
	}
	return true, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func printChatHelp() {
	fmt.Println(TitleStyle.Render("Chat commands"))
	rows := [][2]string{
		{"/new", "Start a new conversation"},
		{"/list", "List conversations"},
		{"/open <n|id>", "Switch conversation"},
		{"/delete <n|id>", "Delete a conversation"},
		{"/usage", "Context window usage"},
		{"/stats", "Recent telemetry"},
		{"/reasoning", "Toggle reasoning display"},
		{"/quit", "Exit (also Ctrl+D)"},
	}
	for _, r := range rows {
		fmt.Printf("  %s %s\n", InfoStyle.Render(util.PadRight(r[0], 16)), r[1])
	}
}

func (cs *chatSession) printWelcome() {
	st := cs.ctrl.State()
	fmt.Println(TitleStyle.Render("aigent chat"))
	printField("Kernel", cs.cfg.Kernel.BaseURL)
	printField("Model", st.Health.Model+" ("+st.Warm.String()+")")
	if conv, ok := st.ActiveConversation(); ok {
		printField("Conversation", conv.DisplayTitle())
		cs.printHistoryTail(4)
	} else {
		printField("Conversation", "new")
	}
	printField("Context", formatUsage(st.Usage))
	fmt.Println(DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Println()
}

func (cs *chatSession) printHistory() {
	cs.printHistoryTail(0)
}

// printHistoryTail prints the last n messages, or all when n is 0.
func (cs *chatSession) printHistoryTail(n int) {
	msgs := cs.ctrl.State().Messages
	if n > 0 && len(msgs) > n {
		fmt.Println(DimStyle.Render(fmt.Sprintf("... %d earlier message(s)", len(msgs)-n)))
		msgs = msgs[len(msgs)-n:]
	}
	for _, m := range msgs {
		switch m.Role {
		case model.RoleUser:
			fmt.Printf("%s %s\n", PromptStyle.Render("you>"), m.Content)
		case model.RoleAssistant:
			fmt.Printf("%s %s\n", AssistantStyle.Render("assistant>"), m.Preview(200))
		default:
			fmt.Printf("%s %s\n", DimStyle.Render("system>"), m.Content)
		}
	}
}

func (cs *chatSession) printExitSummary() {
	if cs.quiet {
		return
	}
	st := cs.ctrl.State()
	fmt.Println(RenderSeparator(40))
	printField("Messages sent", cs.sent)
	printField("Session time", formatDurationShort(time.Since(cs.started)))
	if st.Telemetry.Session.Exchanges > 0 {
		printField("Avg latency", formatDurationShort(st.Telemetry.Session.AvgLatency()))
		printField("Tokens", fmt.Sprintf("%d prompt / %d completion", st.Telemetry.Session.PromptTokens, st.Telemetry.Session.CompletionTokens))
	}
}
