// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/ifinspire/aigent/internal/kernel"
)

// JSONExporter writes the envelope as indented JSON, exactly as the kernel
// produced it.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts the envelope to JSON.
func (e *JSONExporter) Export(env *kernel.ExportEnvelope) ([]byte, error) {
	if err := validateEnvelope(env); err != nil {
		return nil, err
	}
	indent := e.options.Indent
	if indent == "" {
		indent = "  "
	}
	data, err := json.MarshalIndent(env, "", indent)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
