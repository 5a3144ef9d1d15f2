// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter encodes a kernel export envelope.
type Exporter interface {
	// Export converts the envelope to the target format.
	Export(env *kernel.ExportEnvelope) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".json".
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// Supported envelope formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ForFormat returns the exporter for a format name.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return NewJSONExporter(nil), nil
	case FormatYAML, "yml":
		return NewYAMLExporter(nil), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want json or yaml)", format)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where generated filenames are placed.
	// Default: current working directory
	OutputDir string

	// IncludeReasoning keeps extracted reasoning in Markdown transcripts.
	IncludeReasoning bool

	// IncludeTimestamps adds per-message timestamps to transcripts.
	IncludeTimestamps bool

	// Indent is the JSON indentation. Default: two spaces
	Indent string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeTimestamps: true,
		Indent:            "  ",
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile writes data atomically. An empty path generates a timestamped
// filename in opts.OutputDir. The written path is returned.
func WriteFile(data []byte, path string, exp Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if path == "" {
		ext := ".json"
		if exp != nil {
			ext = exp.FileExtension()
		}
		path = filepath.Join(opts.OutputDir, DefaultFilename("aigent-export", ext, time.Now()))
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// DefaultFilename builds "<prefix>_<timestamp><ext>".
func DefaultFilename(prefix, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s%s", sanitizeFilename(prefix), at.Format("20060102_150405"), ext)
}

// sanitizeFilename keeps letters, digits, '-' and '_', mapping everything
// else to '_' and collapsing runs.
func sanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "export"
	}
	return util.TruncateRunes(out, 50)
}

func validateEnvelope(env *kernel.ExportEnvelope) error {
	if env == nil {
		return fmt.Errorf("export envelope is nil")
	}
	if env.Version == "" {
		return fmt.Errorf("export envelope has no version")
	}
	return nil
}
