// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// data.go - Irreversible deletion of all kernel data.
//
// Command: delete-all-data
//
// Deletes every conversation, message and performance record on the kernel,
// and clears the local baseline archive. The interactive confirmation asks
// for the word "delete"; --yes skips it.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ifinspire/aigent/internal/logging"
)

// DeleteConfirmPhrase must be typed to confirm delete-all-data.
const DeleteConfirmPhrase = "delete"

// HandleDeleteAllData handles the "delete-all-data" command.
func HandleDeleteAllData(args Args) error {
	rt, err := NewRuntime(args, logging.ToStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ok, err := ConfirmDangerousAction("delete ALL kernel data", DeleteConfirmPhrase, []string{
		"Kernel:  " + rt.Client.BaseURL(),
		"Removes every conversation, message and performance record.",
		"Clears the local baseline archive.",
		"This cannot be undone. Run 'aigent export' first to keep a copy.",
	}, ConfirmationOptions{Yes: args.Yes, JSONMode: args.JSON})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled.")
		return nil
	}

	ctrl := rt.Controller()
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Kernel.ChatTimeout())
	defer cancel()

	resp, err := ctrl.DeleteAllData(ctx, true)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("delete-all-data", resp).Print()
	}
	at := resp.DeletedAt.Time
	if at.IsZero() {
		at = time.Now()
	}
	fmt.Println(SuccessStyle.Render("All data deleted") + DimStyle.Render(" at "+at.Local().Format(time.RFC3339)))
	return nil
}
