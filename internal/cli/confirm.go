// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation handling for destructive commands.
//
//  1. --yes skips the prompt.
//  2. --json requires --yes (no interactive prompts in JSON mode).
//  3. A non-TTY stdin requires --yes.
//  4. Otherwise the user is prompted.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmationOptions controls how a destructive action is confirmed.
type ConfirmationOptions struct {
	// Yes is set when --yes was passed.
	Yes bool
	// JSONMode is set when --json was passed.
	JSONMode bool

	// In and Out default to stdin and stdout.
	In  io.Reader
	Out io.Writer
	// Interactive overrides TTY detection when non-nil.
	Interactive *bool
}

func (o ConfirmationOptions) streams() (io.Reader, io.Writer, bool) {
	in, out := o.In, o.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	interactive := IsTTY()
	if o.Interactive != nil {
		interactive = *o.Interactive
	}
	return in, out, interactive
}

// RequireConfirmation asks "[y/N]" for action.
func RequireConfirmation(action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, NewValidationError("confirmation", "", "use --yes for destructive actions in JSON mode")
	}
	in, out, interactive := opts.streams()
	if !interactive {
		return false, NewValidationError("confirmation", "", "stdin is not a terminal; use --yes")
	}

	fmt.Fprintf(out, "Are you sure you want to %s? [y/N]: ", action)
	response, err := readLine(in)
	if err != nil {
		return false, err
	}
	response = strings.ToLower(response)
	return response == "y" || response == "yes", nil
}

// ConfirmDangerousAction requires typing phrase exactly.
func ConfirmDangerousAction(action, phrase string, details []string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, NewValidationError("confirmation", "", "use --yes for destructive actions in JSON mode")
	}
	in, out, interactive := opts.streams()
	if !interactive {
		return false, NewValidationError("confirmation", "", "stdin is not a terminal; use --yes")
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s This will %s.\n", WarningStyle.Render("WARNING:"), action)
	for _, d := range details {
		fmt.Fprintf(out, "  - %s\n", d)
	}
	fmt.Fprintf(out, "\nType '%s' to confirm: ", phrase)

	response, err := readLine(in)
	if err != nil {
		return false, err
	}
	return response == phrase, nil
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.TrimSpace(line), nil
}
