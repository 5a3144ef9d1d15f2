// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes kernel data exports and conversation transcripts.
//
// A full export is the kernel's envelope ({version, model, ollama_base_url,
// data}) written as JSON or YAML. Single conversations can also be written as
// Markdown transcripts with optional reasoning blocks.
//
// # Key Types
//
//   - Exporter: envelope encoder for one format
//   - MarkdownExporter: conversation transcript writer
//   - Options: output location and formatting switches
//
// # Usage
//
//	exp, err := export.ForFormat("yaml")
//	data, err := exp.Export(envelope)
//	path, err := export.WriteFile(data, "", exp, nil)
package export
