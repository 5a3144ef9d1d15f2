// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config and version commands.
//
// Command: config [subcommand]
//
// Subcommands:
//
//	show (default)      Display the configuration
//	get <key>           Print one value
//	set <key> <value>   Change a value and save the file
//	reset               Write the default configuration
//	path                Show the configuration file path
//
// Examples:
//
//	aigent config set kernel.base_url http://10.0.0.5:8000
//	aigent config set ui.theme light
//	aigent config get baseline.poll_interval_ms
//
// Keys use dot notation; run "aigent config show" for the full list. A
// running TUI picks up ui.* changes without a restart.
package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ifinspire/aigent/internal/config"
)

// HandleConfig handles the "config" command. It reads and writes the file
// directly; --url and --log-level overrides are never persisted.
func HandleConfig(args Args) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}

	switch strings.ToLower(args.Subcommand) {
	case "", "show", "list":
		cfg, err := loadConfigFile(args)
		if err != nil {
			return err
		}
		return handleConfigShow(args, cfg, path)

	case "get":
		if len(args.Raw) != 1 {
			return NewValidationErrorWithExample("key", "", "expected one key", "aigent config get ui.theme")
		}
		cfg, err := loadConfigFile(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.Raw[0])
		if err != nil {
			return NewValidationError("key", args.Raw[0], err.Error())
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]any{"key": args.Raw[0], "value": v}).Print()
		}
		fmt.Println(v)
		return nil

	case "set":
		if len(args.Raw) != 2 {
			return NewValidationErrorWithExample("key", "", "expected a key and a value", "aigent config set ui.theme dark")
		}
		cfg, err := loadConfigFile(args)
		if err != nil {
			return err
		}
		key, value := args.Raw[0], args.Raw[1]
		if err := cfg.Set(key, value); err != nil {
			return NewValidationError(key, value, err.Error())
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := saveConfigFile(cfg, path); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config set", map[string]any{"key": key, "value": value, "path": path}).Print()
		}
		fmt.Printf("%s %s = %s\n", SuccessStyle.Render("Set"), key, value)
		return nil

	case "reset":
		ok, err := RequireConfirmation("reset "+path+" to defaults", ConfirmationOptions{Yes: args.Yes, JSONMode: args.JSON})
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := saveConfigFile(config.Default(), path); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Configuration reset: " + path))
		return nil

	case "path":
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Print()
		}
		fmt.Println(path)
		return nil

	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown config subcommand",
			"aigent config [show|get|set|reset|path]")
	}
}

func configFilePath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ActivePath()
}

func loadConfigFile(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	// A file that failed to parse falls back to defaults; say so rather
	// than silently overwriting it on set.
	if err != nil {
		StderrPrint("%s %v\n", WarningStyle.Render("warning:"), err)
	}
	return cfg, nil
}

func saveConfigFile(cfg *config.Config, path string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

func handleConfigShow(args Args, cfg *config.Config, path string) error {
	if args.JSON {
		return NewJSONResponse("config", map[string]any{"path": path, "config": cfg}).Print()
	}
	fmt.Println(TitleStyle.Render("aigent Configuration"))
	printField("File", path)
	fmt.Println(RenderSeparator(41))
	section := ""
	for _, key := range config.GetAllKeys() {
		if head, _, ok := strings.Cut(key, "."); ok && head != section {
			section = head
			fmt.Println(SectionStyle.Render(head))
		}
		v, err := cfg.Get(key)
		if err != nil {
			continue
		}
		s := fmt.Sprint(v)
		if s == "" {
			s = DimStyle.Render("(default)")
		}
		printField(key, s)
	}
	return nil
}

// =============================================================================
// VERSION
// =============================================================================

// VersionInfo is the JSON form of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if args.JSON {
		_ = NewJSONResponse("version", VersionInfo{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}).Print()
		return
	}
	PrintVersion()
}
