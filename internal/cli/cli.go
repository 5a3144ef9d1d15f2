// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for aigent.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdConversations
	CmdSettings
	CmdBaseline
	CmdExport
	CmdDeleteAll
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdStatus:
		return "status"
	case CmdConversations:
		return "conversations"
	case CmdSettings:
		return "settings"
	case CmdBaseline:
		return "baseline"
	case CmdExport:
		return "export"
	case CmdDeleteAll:
		return "delete-all-data"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	BaseURL    string
	LogLevel   string
	JSON       bool
	Verbose    bool
	Quiet      bool

	// Conversation selection
	Conversation string
	NewChat      bool

	// Output
	Reasoning  bool
	NoMarkdown bool
	Format     string
	Output     string

	// Baseline
	Sync      bool
	NoEnforce bool
	Limit     int

	// Settings
	MaxResponseTokens   string
	TriggerPct          string
	Instructions        string
	ClearInstructions   bool
	instructionsChanged bool

	// Confirmation for destructive commands
	Yes bool

	// Command-specific
	Query      string
	Subcommand string

	// Raw holds positional arguments after the command and subcommand.
	Raw []string
}

// HasSettingsChanges reports whether any settings flag was given.
func (a Args) HasSettingsChanges() bool {
	return a.MaxResponseTokens != "" || a.TriggerPct != "" || a.instructionsChanged || a.ClearInstructions
}

const usageText = `aigent - terminal client for the AIgentOS kernel

Usage:
  aigent                              Start the TUI (default)
  aigent ask "question"               Send one message and print the reply
  aigent chat                         Line-editing chat REPL
  aigent status, s                    Kernel health, model and context settings
  aigent conversations [list|show|delete] <id>
  aigent settings [show|set]          Context window settings
  aigent baseline [start|history|show] <id>
  aigent export                       Download all kernel data
  aigent delete-all-data              Delete every conversation and metric
  aigent config [show|get|set|path]   Local configuration
  aigent version                      Version information

Global Flags:
  -c, --config PATH        Config file (default ~/.aigent/config.toml)
      --url URL            Kernel base URL (overrides kernel.base_url)
      --log-level LEVEL    debug, info, warn or error
      --json               Machine-readable output
  -v, --verbose            Debug logging to stderr
  -q, --quiet              Minimal output

Ask and Chat:
  -C, --conversation ID    Continue an existing conversation
      --new                Start a new conversation (chat)
  -r, --reasoning          Show extracted reasoning
      --no-markdown        Print replies as plain text

Settings:
  aigent settings set --max-response-tokens 1024 --trigger 0.8
      --max-response-tokens N
      --trigger PCT          Compaction trigger fraction (0.1-1.0)
      --instructions TEXT    Compaction instructions
      --clear-instructions   Remove compaction instructions

Baseline:
  aigent baseline start                Start a job and follow its progress
      --sync                           Run synchronously on the kernel
      --no-enforce                     Do not enforce max response tokens
  aigent baseline history [-n N]       Archived runs
  aigent baseline show <id>            Report for an archived run

Export:
  -f, --format json|yaml   Export format (default json)
  -o, --output PATH        Write to a file instead of stdout

Delete All Data:
  -y, --yes                Skip the interactive confirmation

Examples:
  aigent ask "Summarize the last meeting notes"
  aigent ask -C 6f1c... "and the action items?"
  aigent export -f yaml -o backup.yaml
  aigent config set ui.theme dark

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("aigent version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args. A usage error prints the message and exits with
// ExitUsageError.
func Parse() (Command, Args) {
	cmd, args, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n\n", ErrorStyle.Render("[ERROR]"), err)
		fmt.Fprintln(os.Stderr, "Run 'aigent help' for usage.")
		os.Exit(ExitUsageError)
	}
	return cmd, args
}

// ParseArgs parses argv (without the program name). Flags may appear
// anywhere on the line.
func ParseArgs(argv []string) (Command, Args, error) {
	var args Args
	var help, version bool

	fs := pflag.NewFlagSet("aigent", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(true)

	fs.StringVarP(&args.ConfigPath, "config", "c", "", "config file")
	fs.StringVar(&args.BaseURL, "url", "", "kernel base URL")
	fs.StringVar(&args.LogLevel, "log-level", "", "log level")
	fs.BoolVar(&args.JSON, "json", false, "JSON output")
	fs.BoolVarP(&args.Verbose, "verbose", "v", false, "verbose output")
	fs.BoolVarP(&args.Quiet, "quiet", "q", false, "minimal output")

	fs.StringVarP(&args.Conversation, "conversation", "C", "", "conversation id")
	fs.BoolVar(&args.NewChat, "new", false, "start a new conversation")
	fs.BoolVarP(&args.Reasoning, "reasoning", "r", false, "show reasoning")
	fs.BoolVar(&args.NoMarkdown, "no-markdown", false, "plain text output")
	fs.StringVarP(&args.Format, "format", "f", "", "export format")
	fs.StringVarP(&args.Output, "output", "o", "", "output file")

	fs.BoolVar(&args.Sync, "sync", false, "run baseline synchronously")
	fs.BoolVar(&args.NoEnforce, "no-enforce", false, "do not enforce max response tokens")
	fs.IntVarP(&args.Limit, "limit", "n", 20, "number of entries")

	fs.StringVar(&args.MaxResponseTokens, "max-response-tokens", "", "max response tokens")
	fs.StringVar(&args.TriggerPct, "trigger", "", "compaction trigger fraction")
	fs.StringVar(&args.Instructions, "instructions", "", "compaction instructions")
	fs.BoolVar(&args.ClearInstructions, "clear-instructions", false, "remove compaction instructions")

	fs.BoolVarP(&args.Yes, "yes", "y", false, "skip confirmation")
	fs.BoolVarP(&help, "help", "h", false, "show help")
	fs.BoolVar(&version, "version", false, "show version")

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return CmdHelp, args, nil
		}
		return CmdHelp, args, &ValidationError{Field: "flags", Reason: err.Error()}
	}
	args.instructionsChanged = fs.Changed("instructions")

	if help {
		return CmdHelp, args, nil
	}
	if version {
		return CmdVersion, args, nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(rest[0])
	rest = rest[1:]

	var cmd Command
	switch name {
	case "tui":
		cmd = CmdTUI
	case "ask":
		args.Query = strings.TrimSpace(strings.Join(rest, " "))
		return CmdAsk, args, nil
	case "chat":
		cmd = CmdChat
	case "status", "s":
		cmd = CmdStatus
	case "conversations", "conversation", "conv":
		cmd = CmdConversations
	case "settings":
		cmd = CmdSettings
	case "baseline", "bench":
		cmd = CmdBaseline
	case "export":
		cmd = CmdExport
	case "delete-all-data":
		cmd = CmdDeleteAll
	case "config":
		cmd = CmdConfig
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		example := "aigent help"
		if s := SuggestCommand(name); s != "" {
			example = "aigent " + s
		}
		return CmdHelp, args, &ValidationError{
			Field:   "command",
			Value:   name,
			Reason:  "unknown command",
			Example: example,
		}
	}

	if len(rest) > 0 {
		args.Subcommand = strings.ToLower(rest[0])
		rest = rest[1:]
	}
	args.Raw = rest
	return cmd, args, nil
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// Run executes a non-TUI command and returns its error. The TUI is started
// by the caller.
func Run(cmd Command, args Args) error {
	switch cmd {
	case CmdAsk:
		return HandleAsk(args)
	case CmdChat:
		return HandleChat(args)
	case CmdStatus:
		return HandleStatus(args)
	case CmdConversations:
		return HandleConversations(args)
	case CmdSettings:
		return HandleSettings(args)
	case CmdBaseline:
		return HandleBaseline(args)
	case CmdExport:
		return HandleExport(args)
	case CmdDeleteAll:
		return HandleDeleteAllData(args)
	case CmdConfig:
		return HandleConfig(args)
	case CmdVersion:
		HandleVersion(args)
		return nil
	default:
		PrintUsage()
		return nil
	}
}
