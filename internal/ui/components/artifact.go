// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/forgemind/forgemind-tui/internal/ui/styles"
)

// =============================================================================
// ARTIFACT VIEWER
// =============================================================================

// ExtractCode returns the body of the first fenced block in text and its
// language tag. Text without a fence is returned whole.
func ExtractCode(text string) (code, language string) {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}
		if start < 0 {
			start = i
			language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			continue
		}
		return strings.Join(lines[start+1:i], "\n"), language
	}
	if start >= 0 {
		// Unclosed fence: everything after it.
		return strings.Join(lines[start+1:], "\n"), language
	}
	return text, ""
}

// Highlight applies chroma syntax highlighting. An unknown language is
// detected from the code; on any failure the code is returned unchanged.
func Highlight(code, language string) string {
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
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// DetectLanguage names the language chroma guesses for code, or "".
func DetectLanguage(code string) string {
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}

// RenderArtifact draws a suppressed reply as a highlighted, line-numbered
// code block for the artifact viewer.
func RenderArtifact(theme *styles.Theme, raw string, width int) string {
	code, language := ExtractCode(raw)
	code = strings.Trim(code, "\n")
	if language == "" {
		language = DetectLanguage(code)
	}

	lines := strings.Split(Highlight(code, language), "\n")
	var b strings.Builder
	if language != "" {
		b.WriteString(theme.ModalStep.Render(language))
		b.WriteString("\n")
	}
	for i, line := range lines {
		b.WriteString(theme.CodeLineNum.Render(fmt.Sprint(i + 1)))
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}

	block := theme.CodeBlock
	if width > 24 {
		block = block.MaxWidth(width - 4)
	}
	return block.Render(b.String())
}
