// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp HOME and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{"AIGENT_BASE_URL", "AIGENT_LOG_LEVEL", "AIGENT_POLL_INTERVAL_MS", "AIGENT_SHOW_REASONING"} {
		t.Setenv(k, "")
	}
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)
	return home
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_ConcurrentMixedOperations tests a mix of all global operations
// happening concurrently.
func TestConfig_ConcurrentMixedOperations(t *testing.T) {
	isolate(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		switch i % 3 {
		case 0:
			go func() {
				defer wg.Done()
				if Global() == nil {
					t.Error("Global() returned nil")
				}
			}()
		case 1:
			go func() {
				defer wg.Done()
				c := Default()
				c.Version = "concurrent-test"
				SetGlobal(c)
			}()
		case 2:
			go func() {
				defer wg.Done()
				_ = ReloadGlobal()
			}()
		}
	}

	wg.Wait()
}

// TestConfig_SetGlobalOverwrites tests that SetGlobal properly overwrites
// the existing global config.
func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	_ = Global()

	custom := Default()
	custom.Version = "custom-version"
	SetGlobal(custom)

	if got := Global().Version; got != "custom-version" {
		t.Errorf("Expected version 'custom-version', got '%s'", got)
	}
}

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.Kernel.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("unexpected base URL %q", cfg.Kernel.BaseURL)
	}
	if cfg.Baseline.PollInterval() != 1200*time.Millisecond {
		t.Errorf("unexpected poll interval %v", cfg.Baseline.PollInterval())
	}
	if !cfg.Baseline.EnforceMaxResponseTokens {
		t.Error("enforce_max_response_tokens should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"https base url", func(c *Config) { c.Kernel.BaseURL = "https://kernel.local" }, false},
		{"base url without scheme", func(c *Config) { c.Kernel.BaseURL = "127.0.0.1:8000" }, true},
		{"base url ftp", func(c *Config) { c.Kernel.BaseURL = "ftp://host" }, true},
		{"zero timeout", func(c *Config) { c.Kernel.TimeoutSecs = 0 }, true},
		{"negative rate limit", func(c *Config) { c.Kernel.RateLimit = -1 }, true},
		{"zero burst", func(c *Config) { c.Kernel.Burst = 0 }, true},
		{"poll interval too small", func(c *Config) { c.Baseline.PollIntervalMs = 50 }, true},
		{"poll interval at minimum", func(c *Config) { c.Baseline.PollIntervalMs = 100 }, false},
		{"invalid theme", func(c *Config) { c.UI.Theme = "invalid" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	c := Default()
	c.UI.Theme = "neon"
	c.Kernel.Burst = 0

	err := c.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "; ")
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("kernel.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", val)

	require.NoError(t, cfg.Set("baseline.poll_interval_ms", "2500"))
	assert.Equal(t, 2500, cfg.Baseline.PollIntervalMs)

	require.NoError(t, cfg.Set("ui.show_reasoning", "yes"))
	assert.True(t, cfg.UI.ShowReasoning)

	require.NoError(t, cfg.Set("kernel.rate_limit", 2.5))
	assert.Equal(t, 2.5, cfg.Kernel.RateLimit)

	assert.Error(t, cfg.Set("kernel.timeout_secs", "soon"))
	_, err = cfg.Get("invalid.key")
	assert.Error(t, err)
	_, err = cfg.Get("kernel.base_url.host")
	assert.Error(t, err)
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

// =============================================================================
// FILE TESTS
// =============================================================================

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Kernel, cfg.Kernel)
}

func TestLoad_TOMLAndEnv(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".aigent")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[kernel]
base_url = "http://kernel.internal:9000/"

[ui]
theme = "Dark"
`), 0600))
	t.Setenv("AIGENT_POLL_INTERVAL_MS", "500")
	t.Setenv("AIGENT_SHOW_REASONING", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://kernel.internal:9000", cfg.Kernel.BaseURL)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 500, cfg.Baseline.PollIntervalMs)
	assert.True(t, cfg.UI.ShowReasoning)
	// untouched keys keep their defaults
	assert.Equal(t, 120, cfg.Kernel.ChatTimeoutSecs)
	assert.True(t, cfg.UI.Markdown)
}

func TestLoad_JSONFallback(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".aigent")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"logging": {"level": "debug"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	active, err := ActivePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), active)
}

func TestLoad_BrokenTOMLFallsBackToDefaults(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".aigent")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[kernel\n"), 0600))

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Kernel.BaseURL, cfg.Kernel.BaseURL)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Kernel.BaseURL = "http://10.0.0.2:8000"
	cfg.Storage.ArchivePath = "/tmp/runs.db"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Kernel, loaded.Kernel)
	assert.Equal(t, "/tmp/runs.db", loaded.Storage.ArchivePath)
}

func TestPaths_ExpandHome(t *testing.T) {
	home := isolate(t)
	cfg := Default()

	logPath, err := cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".aigent", "aigent.log"), logPath)

	cfg.Storage.ArchivePath = "~/data/runs.db"
	archive, err := cfg.ArchivePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "runs.db"), archive)
}

// =============================================================================
// WATCH TESTS
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, WatchOptions{
			Path:     path,
			Debounce: 20 * time.Millisecond,
			OnReload: func(c *Config) { reloaded <- c },
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	cfg := Default()
	cfg.UI.Theme = "light"
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case c := <-reloaded:
		assert.Equal(t, "light", c.UI.Theme)
		assert.Equal(t, "light", Global().UI.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
