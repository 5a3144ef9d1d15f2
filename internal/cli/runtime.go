// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runtime.go - Shared setup for commands that talk to the kernel.

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ifinspire/aigent/internal/config"
	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/logging"
	"github.com/ifinspire/aigent/internal/session"
	"github.com/ifinspire/aigent/internal/storage"
)

// Runtime bundles what a command needs: config, logger and kernel client.
type Runtime struct {
	Config *config.Config
	Log    *slog.Logger
	Client *kernel.Client

	logCloser io.Closer
	archive   *storage.Archive
}

// LoadConfig loads the config named by --config, or the global config, and
// applies command-line overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	if args.ConfigPath != "" {
		loaded, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Global().Clone()
	}

	if args.BaseURL != "" {
		cfg.Kernel.BaseURL = args.BaseURL
	}
	if args.LogLevel != "" {
		cfg.Logging.Level = args.LogLevel
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Migrate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRuntime sets up logging and the kernel client. One-shot commands log
// to stderr at warn level unless --verbose or a log file is configured; the
// TUI always logs to the file.
func NewRuntime(args Args, target logging.Target) (*Runtime, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}

	if target == logging.ToStderr && cfg.Logging.File != "" {
		target = logging.ToFile
	}
	if target == logging.ToStderr && !args.Verbose && args.LogLevel == "" {
		cfg.Logging.Level = "warn"
	}
	logger, closer, logErr := logging.Setup(cfg, target)
	if logErr != nil {
		logger.Warn("log file unavailable, logging to stderr", "error", logErr)
	}

	client := kernel.NewClientWithConfig(&kernel.ClientConfig{
		BaseURL:     cfg.Kernel.BaseURL,
		Timeout:     cfg.Kernel.Timeout(),
		ChatTimeout: cfg.Kernel.ChatTimeout(),
		RateLimit:   cfg.Kernel.RateLimit,
		Burst:       cfg.Kernel.Burst,
		Logger:      logger,
	})

	return &Runtime{
		Config:    cfg,
		Log:       logger,
		Client:    client,
		logCloser: closer,
	}, nil
}

// Archive opens the baseline archive on first use.
func (r *Runtime) Archive() (*storage.Archive, error) {
	if r.archive != nil {
		return r.archive, nil
	}
	path, err := r.Config.ArchivePath()
	if err != nil {
		return nil, err
	}
	a, err := storage.OpenArchive(path)
	if err != nil {
		return nil, err
	}
	r.archive = a
	return a, nil
}

// Controller builds a session controller. Completed baseline runs are
// archived when baseline.archive is on; an archive that cannot be opened
// is logged and skipped.
func (r *Runtime) Controller() *session.Controller {
	opts := session.Options{
		Logger:       r.Log,
		PollInterval: r.Config.Baseline.PollInterval(),
	}
	if r.Config.Baseline.Archive {
		if a, err := r.Archive(); err != nil {
			r.Log.Warn("baseline archive unavailable", "error", err)
		} else {
			opts.Archive = a
		}
	}
	return session.New(r.Client, opts)
}

// Close releases the archive and the log file.
func (r *Runtime) Close() {
	if r.archive != nil {
		if err := r.archive.Close(); err != nil {
			r.Log.Warn("closing baseline archive", "error", err)
		}
	}
	if r.logCloser != nil {
		_ = r.logCloser.Close()
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
