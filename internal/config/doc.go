// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for aigent.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - KernelConfig: backend URL, timeouts and request rate limit
//   - BaselineConfig: benchmark poll interval and archiving
//   - UIConfig, LoggingConfig, StorageConfig
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AIGENT_*)
//   - ~/.aigent/config.toml
//   - ~/.aigent/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := kernel.NewClientWithConfig(&kernel.ClientConfig{
//	    BaseURL: cfg.Kernel.BaseURL,
//	    Timeout: cfg.Kernel.Timeout(),
//	})
//
// Watch runs a live reload loop on top of Global().
package config
