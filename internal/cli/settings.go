// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// settings.go - Context window settings.
//
// Command: settings [show|set]
//
// Examples:
//
//	aigent settings
//	aigent settings set --max-response-tokens 1024
//	aigent settings set --trigger 0.75 --instructions "Summarize older turns."
//	aigent settings set --clear-instructions
//
// max_context_tokens is declared by the kernel and cannot be changed here.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/model"
)

// HandleSettings handles the "settings" command.
func HandleSettings(args Args) error {
	rt, err := NewRuntime(args, logging.ToStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctrl := rt.Controller()
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Kernel.Timeout()*2)
	defer cancel()

	current, err := ctrl.LoadSettings(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(args.Subcommand) {
	case "", "show", "get":
		if args.HasSettingsChanges() {
			return NewValidationErrorWithExample("subcommand", args.Subcommand, "settings flags need the set subcommand",
				"aigent settings set --max-response-tokens 1024")
		}
		return printSettings(args, current)

	case "set":
		if !args.HasSettingsChanges() {
			return NewValidationErrorWithExample("settings", "", "nothing to change",
				"aigent settings set --trigger 0.8")
		}
		saved, err := ctrl.SaveSettings(ctx, settingsInputFromArgs(current, args))
		if err != nil {
			return err
		}
		if !args.Quiet && !args.JSON {
			fmt.Println(SuccessStyle.Render("Settings saved."))
		}
		return printSettings(args, saved)

	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown settings subcommand", "aigent settings [show|set]")
	}
}

// settingsInputFromArgs starts from the current values and overlays the
// flags that were given.
func settingsInputFromArgs(current model.ContextSettings, args Args) model.SettingsInput {
	in := model.InputFromSettings(current)
	if args.MaxResponseTokens != "" {
		in.MaxResponseTokens = args.MaxResponseTokens
	}
	if args.TriggerPct != "" {
		in.CompactTriggerPct = strings.TrimSuffix(args.TriggerPct, "%")
		if pct, ok := percentToFraction(in.CompactTriggerPct); ok {
			in.CompactTriggerPct = pct
		}
	}
	switch {
	case args.ClearInstructions:
		in.CompactInstructions = ""
	case args.instructionsChanged:
		in.CompactInstructions = args.Instructions
	}
	return in
}

// percentToFraction turns "80" into "0.8". Values already in (0, 1] and
// anything unparseable are left for validation.
func percentToFraction(s string) (string, bool) {
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil || f <= 1 || f > 100 {
		return "", false
	}
	return fmt.Sprintf("%g", f/100), true
}

func printSettings(args Args, s model.ContextSettings) error {
	if args.JSON {
		return NewJSONResponse("settings", s).Print()
	}
	fmt.Println(TitleStyle.Render("Context Settings"))
	printField("Max context tokens", groupDigits(s.MaxContextTokens)+DimStyle.Render("  (kernel)"))
	printField("Max response tokens", groupDigits(s.MaxResponseTokens))
	printField("Compaction trigger", fmt.Sprintf("%g (%s tokens)", s.CompactTriggerPct, groupDigits(s.TriggerTokens())))
	if s.HasCompactInstructions() {
		printField("Instructions", "")
		fmt.Println(WrapText(s.CompactInstructions, 0))
	} else {
		printField("Instructions", DimStyle.Render("(none)"))
	}
	return nil
}
