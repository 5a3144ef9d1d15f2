// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Full data export.
//
// Command: export
//
// Examples:
//
//	aigent export                       JSON to stdout
//	aigent export -f yaml -o backup.yaml
//	aigent export -o .                  Timestamped file in the current dir
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ifinspire/aigent/internal/export"
	"github.com/ifinspire/aigent/internal/logging"
)

// HandleExport handles the "export" command.
func HandleExport(args Args) error {
	exp, err := export.ForFormat(args.Format)
	if err != nil {
		return NewValidationErrorWithExample("format", args.Format, err.Error(), "aigent export -f yaml")
	}

	rt, err := NewRuntime(args, logging.ToStderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctrl := rt.Controller()
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Kernel.ChatTimeout())
	defer cancel()

	env, err := ctrl.ExportAll(ctx)
	if err != nil {
		return err
	}
	data, err := exp.Export(env)
	if err != nil {
		return err
	}

	if args.Output == "" {
		if IsStdoutTTY() && ColorsEnabled() {
			return export.Highlight(os.Stdout, data, export.LanguageFor(exp))
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	opts := export.DefaultOptions()
	path := args.Output
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		opts.OutputDir = path
		path = ""
	}
	written, err := export.WriteFile(data, path, exp, opts)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("export", map[string]any{
			"path":   written,
			"format": filepath.Ext(written),
			"bytes":  len(data),
		}).Print()
	}
	if !args.Quiet {
		fmt.Fprintf(os.Stderr, "%s %s (%s)\n", SuccessStyle.Render("Exported to"), written, formatBytes(int64(len(data))))
	}
	return nil
}
