// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// LIVE RELOAD
// =============================================================================

// DefaultReloadDebounce coalesces bursts of editor writes.
const DefaultReloadDebounce = 200 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Path is the config file to watch. Default: ActivePath()
	Path string
	// Debounce delays reload after the last change. Default: 200ms
	Debounce time.Duration
	// OnReload receives each successfully loaded config.
	OnReload func(*Config)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Watch reloads the config whenever the file changes, updates Global(), and
// calls opts.OnReload. The parent directory is watched so editors that
// replace the file by rename are seen. Watch blocks until ctx is done.
// A file that fails to load or validate leaves the current config in place.
func Watch(ctx context.Context, opts WatchOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := opts.Path
	if path == "" {
		p, err := ActivePath()
		if err != nil {
			return err
		}
		path = p
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	reload := func() {
		cfg, err := LoadFromPath(path)
		if err != nil {
			logger.Warn("config hot-reload failed", "path", path, "error", err)
			return
		}
		SetGlobal(cfg)
		if opts.OnReload != nil {
			opts.OnReload(cfg)
		}
		logger.Info("config hot-reloaded", "path", path)
	}

	target := filepath.Clean(path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
