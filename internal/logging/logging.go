// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the process logger from config.
//
// The TUI owns stdout and stderr while it runs, so interactive sessions log
// to a file. One-shot commands may log to stderr instead.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ifinspire/aigent/internal/config"
)

// Target selects where records go.
type Target int

const (
	// ToFile writes to the configured log file.
	ToFile Target = iota
	// ToStderr writes to standard error.
	ToStderr
	// Discard drops everything.
	Discard
)

// Setup creates a logger for cfg and installs it as slog's default.
// The returned closer releases the log file; it is never nil.
// If the log file cannot be opened, Setup falls back to stderr and
// returns the open error alongside a usable logger.
func Setup(cfg *config.Config, target Target) (*slog.Logger, io.Closer, error) {
	level, _ := config.ParseLevel(cfg.Logging.Level)

	var (
		w       io.Writer = os.Stderr
		closer  io.Closer = nopCloser{}
		openErr error
	)

	switch target {
	case Discard:
		w = io.Discard
	case ToFile:
		f, err := openLogFile(cfg)
		if err != nil {
			openErr = err
		} else {
			w = f
			closer = f
		}
	}

	logger := New(w, level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return logger, closer, openErr
}

// New builds a logger writing to w in the given format ("text" or "json").
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openLogFile(cfg *config.Config) (*os.File, error) {
	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
