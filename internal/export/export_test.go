// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ifinspire/aigent/internal/kernel"
	"github.com/ifinspire/aigent/internal/model"
)

func sampleEnvelope() *kernel.ExportEnvelope {
	return &kernel.ExportEnvelope{
		Version:       kernel.ExportVersion,
		Model:         "qwen3:4b",
		OllamaBaseURL: "http://127.0.0.1:11434",
		Data: map[string]any{
			"conversations": []any{
				map[string]any{"id": "c1", "title": "Hello"},
			},
		},
	}
}

// =============================================================================
// ENVELOPE TESTS
// =============================================================================

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
		ok     bool
	}{
		{"", ".json", true},
		{"json", ".json", true},
		{"YAML", ".yaml", true},
		{"yml", ".yaml", true},
		{"xml", "", false},
	}
	for _, tt := range tests {
		exp, err := ForFormat(tt.format)
		if !tt.ok {
			assert.Error(t, err, tt.format)
			continue
		}
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.ext, exp.FileExtension())
	}
}

func TestJSONExporter_KeepsKernelKeys(t *testing.T) {
	data, err := NewJSONExporter(nil).Export(sampleEnvelope())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "aigentos-export-v1", decoded["version"])
	assert.Equal(t, "http://127.0.0.1:11434", decoded["ollama_base_url"])
	assert.Contains(t, decoded, "data")
	assert.True(t, bytes.HasSuffix(data, []byte("\n")))
}

func TestYAMLExporter_KeepsKernelKeys(t *testing.T) {
	data, err := NewYAMLExporter(nil).Export(sampleEnvelope())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "qwen3:4b", decoded["model"])
	assert.Equal(t, "http://127.0.0.1:11434", decoded["ollama_base_url"])
}

func TestExporters_RejectInvalidEnvelope(t *testing.T) {
	for _, exp := range []Exporter{NewJSONExporter(nil), NewYAMLExporter(nil)} {
		_, err := exp.Export(nil)
		assert.Error(t, err)
		_, err = exp.Export(&kernel.ExportEnvelope{})
		assert.Error(t, err)
	}
}

// =============================================================================
// FILE TESTS
// =============================================================================

func TestWriteFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "export.json")
	got, err := WriteFile([]byte("{}\n"), path, NewJSONExporter(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestWriteFile_GeneratedName(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	got, err := WriteFile([]byte("version: x\n"), "", NewYAMLExporter(nil), opts)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(got))
	assert.True(t, strings.HasPrefix(filepath.Base(got), "aigent-export_"))
	assert.Equal(t, ".yaml", filepath.Ext(got))
}

func TestDefaultFilename(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "My_chat_20250304_050607.md", DefaultFilename("My chat!", ".md", at))
	assert.Equal(t, "export_20250304_050607.json", DefaultFilename("???", ".json", at))
}

// =============================================================================
// MARKDOWN TESTS
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	conv := model.ConversationSummary{ID: "c1", Title: "Go #1"}
	msgs := []model.Message{
		{ID: "1", Role: model.RoleUser, Content: "hi"},
		{ID: "2", Role: model.RoleAssistant, Content: "hello", Reasoning: "greet back"},
		model.NewErrorMessage("network down"),
	}

	t.Run("without reasoning", func(t *testing.T) {
		opts := DefaultOptions()
		opts.IncludeTimestamps = false
		data, err := NewMarkdownExporter(opts).Export(conv, msgs)
		require.NoError(t, err)

		out := string(data)
		assert.True(t, strings.HasPrefix(out, "---\n"))
		assert.Contains(t, out, "conversation_id: c1")
		assert.Contains(t, out, "messages: 2")
		assert.Contains(t, out, "# Go \\#1")
		assert.Contains(t, out, "### You\n\nhi")
		assert.Contains(t, out, "### Assistant\n\nhello")
		assert.NotContains(t, out, "greet back")
		assert.NotContains(t, out, "network down")
	})

	t.Run("with reasoning", func(t *testing.T) {
		opts := DefaultOptions()
		opts.IncludeReasoning = true
		data, err := NewMarkdownExporter(opts).Export(conv, msgs)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<summary>Reasoning</summary>\n\ngreet back")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewMarkdownExporter(nil).Export(conv, []model.Message{model.NewErrorMessage("x")})
		assert.Error(t, err)
	})
}

func TestHighlight(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Highlight(&buf, []byte(`{"version": "x"}`), "json"))
	assert.Contains(t, buf.String(), "version")
	assert.Contains(t, buf.String(), "\x1b[")

	assert.Equal(t, "yaml", LanguageFor(NewYAMLExporter(nil)))
	assert.Equal(t, "json", LanguageFor(NewJSONExporter(nil)))
}
