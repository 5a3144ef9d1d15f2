// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// Highlight writes data to w with terminal syntax colors. language is a
// chroma lexer name ("json", "yaml", "markdown"); unknown names fall back
// to content analysis. On any formatter failure the raw bytes are written.
func Highlight(w io.Writer, data []byte, language string) error {
	code := string(data)

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		_, werr := w.Write(data)
		return werr
	}
	return formatter.Format(w, style, iterator)
}

// LanguageFor maps an exporter to its chroma lexer name.
func LanguageFor(exp Exporter) string {
	switch exp.(type) {
	case *YAMLExporter:
		return "yaml"
	default:
		return "json"
	}
}
