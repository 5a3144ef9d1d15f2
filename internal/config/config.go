// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aigent configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Kernel is the backend connection.
	Kernel KernelConfig `toml:"kernel" json:"kernel"`

	// Baseline controls benchmark jobs.
	Baseline BaselineConfig `toml:"baseline" json:"baseline"`

	UI      UIConfig      `toml:"ui" json:"ui"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// KernelConfig contains the REST backend settings.
type KernelConfig struct {
	// BaseURL is the kernel root, e.g. http://127.0.0.1:8000
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds ordinary requests.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// ChatTimeoutSecs bounds chat, warmup and export requests.
	ChatTimeoutSecs int `toml:"chat_timeout_secs" json:"chat_timeout_secs"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// Burst is the limiter bucket size.
	Burst int `toml:"burst" json:"burst"`
}

// BaselineConfig contains benchmark job settings.
type BaselineConfig struct {
	// PollIntervalMs is the status poll period.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms"`
	// EnforceMaxResponseTokens caps each baseline answer at max_response_tokens.
	EnforceMaxResponseTokens bool `toml:"enforce_max_response_tokens" json:"enforce_max_response_tokens"`
	// Archive stores completed runs locally.
	Archive bool `toml:"archive" json:"archive"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowReasoning expands reasoning blocks by default.
	ShowReasoning bool `toml:"show_reasoning" json:"show_reasoning"`
	// Markdown renders assistant replies with glamour.
	Markdown bool `toml:"markdown" json:"markdown"`
	// ShowTelemetry shows the stats line under assistant replies.
	ShowTelemetry bool `toml:"show_telemetry" json:"show_telemetry"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// File is the log path. Empty means <config dir>/aigent.log.
	File string `toml:"file" json:"file"`
	// Format is "text" or "json".
	Format string `toml:"format" json:"format"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	// ArchivePath is the baseline archive database.
	// Empty means <config dir>/baselines.db.
	ArchivePath string `toml:"archive_path" json:"archive_path"`
}

// Timeout returns the ordinary request timeout.
func (k KernelConfig) Timeout() time.Duration {
	return time.Duration(k.TimeoutSecs) * time.Second
}

// ChatTimeout returns the chat request timeout.
func (k KernelConfig) ChatTimeout() time.Duration {
	return time.Duration(k.ChatTimeoutSecs) * time.Second
}

// PollInterval returns the baseline poll period.
func (b BaselineConfig) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalMs) * time.Millisecond
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Kernel: KernelConfig{
			BaseURL:         "http://127.0.0.1:8000",
			TimeoutSecs:     30,
			ChatTimeoutSecs: 120,
			RateLimit:       0, // unlimited
			Burst:           4,
		},

		Baseline: BaselineConfig{
			PollIntervalMs:           1200,
			EnforceMaxResponseTokens: true,
			Archive:                  true,
		},

		UI: UIConfig{
			Theme:         "auto",
			ShowReasoning: false,
			Markdown:      true,
			ShowTelemetry: true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the aigent configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aigent"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ActivePath returns the config file Load would read: the TOML file if it
// exists, else the JSON file if it exists, else the TOML path.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// LogPath resolves the log file location.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return expandHome(c.Logging.File)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "aigent.log"), nil
}

// ArchivePath resolves the baseline archive location.
func (c *Config) ArchivePath() (string, error) {
	if c.Storage.ArchivePath != "" {
		return expandHome(c.Storage.ArchivePath)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "baselines.db"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	// Defaults, with any load error for informational purposes.
	cfg, err = finish(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish runs env overrides, migration, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
// Keys missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# aigent configuration file\n")
	sb.WriteString("# Generated by aigent - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Kernel
	if u, err := url.Parse(c.Kernel.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "kernel.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Kernel.BaseURL),
		})
	}
	if c.Kernel.TimeoutSecs < 1 || c.Kernel.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "kernel.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 3600, got %d", c.Kernel.TimeoutSecs),
		})
	}
	if c.Kernel.ChatTimeoutSecs < 1 || c.Kernel.ChatTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "kernel.chat_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 3600, got %d", c.Kernel.ChatTimeoutSecs),
		})
	}
	if c.Kernel.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "kernel.rate_limit",
			Message: fmt.Sprintf("must not be negative, got %g", c.Kernel.RateLimit),
		})
	}
	if c.Kernel.Burst < 1 {
		errs = append(errs, ValidationError{
			Field:   "kernel.burst",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Kernel.Burst),
		})
	}

	// Baseline
	if c.Baseline.PollIntervalMs < 100 || c.Baseline.PollIntervalMs > 60000 {
		errs = append(errs, ValidationError{
			Field:   "baseline.poll_interval_ms",
			Message: fmt.Sprintf("must be between 100 and 60000, got %d", c.Baseline.PollIntervalMs),
		})
	}

	// UI
	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	// Logging
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s', must be text or json", c.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level '%s', must be one of: debug, info, warn, error", level)
	}
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Kernel.BaseURL == "" {
		c.Kernel.BaseURL = defaults.Kernel.BaseURL
	}
	if c.Kernel.TimeoutSecs == 0 {
		c.Kernel.TimeoutSecs = defaults.Kernel.TimeoutSecs
	}
	if c.Kernel.ChatTimeoutSecs == 0 {
		c.Kernel.ChatTimeoutSecs = defaults.Kernel.ChatTimeoutSecs
	}
	if c.Kernel.Burst == 0 {
		c.Kernel.Burst = defaults.Kernel.Burst
	}

	if c.Baseline.PollIntervalMs == 0 {
		c.Baseline.PollIntervalMs = defaults.Baseline.PollIntervalMs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
}

// Migrate handles migration from old configuration formats to new ones.
func (c *Config) Migrate() error {
	// A trailing slash doubles up with the /api/... paths.
	c.Kernel.BaseURL = strings.TrimRight(strings.TrimSpace(c.Kernel.BaseURL), "/")

	c.UI.Theme = strings.ToLower(c.UI.Theme)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AIGENT_BASE_URL: overrides kernel.base_url
//   - AIGENT_LOG_LEVEL: overrides logging.level
//   - AIGENT_POLL_INTERVAL_MS: overrides baseline.poll_interval_ms
//   - AIGENT_SHOW_REASONING: "1" or "true" expands reasoning blocks
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("AIGENT_BASE_URL"); base != "" {
		c.Kernel.BaseURL = base
	}

	if level := os.Getenv("AIGENT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if ms := os.Getenv("AIGENT_POLL_INTERVAL_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil {
			c.Baseline.PollIntervalMs = n
		}
	}

	if show := os.Getenv("AIGENT_SHOW_REASONING"); show != "" {
		c.UI.ShowReasoning = show == "1" || strings.ToLower(show) == "true"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "kernel.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"kernel.base_url",
		"kernel.timeout_secs",
		"kernel.chat_timeout_secs",
		"kernel.rate_limit",
		"kernel.burst",
		"baseline.poll_interval_ms",
		"baseline.enforce_max_response_tokens",
		"baseline.archive",
		"ui.theme",
		"ui.show_reasoning",
		"ui.markdown",
		"ui.show_telemetry",
		"logging.level",
		"logging.file",
		"logging.format",
		"storage.archive_path",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			slog.Warn("config load failed, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
