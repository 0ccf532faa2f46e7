// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"log"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// ArtifactHint follows an assistant message whose raw reply was suppressed.
const ArtifactHint = "(script kept, ctrl+a to view)"

// Markdown renders assistant replies through glamour. The renderer is built
// lazily and rebuilt when the width or style changes.
type Markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown returns a renderer for the given glamour standard style.
func NewMarkdown(style string) *Markdown {
	return &Markdown{style: style}
}

// SetStyle switches the glamour style.
func (m *Markdown) SetStyle(style string) {
	if style != m.style {
		m.style = style
		m.renderer = nil
	}
}

// Render converts markdown to ANSI text wrapped at width. Rendering errors
// fall back to the plain text.
func (m *Markdown) Render(text string, width int) string {
	if width < 20 {
		width = 20
	}
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Printf("ui: markdown renderer unavailable: %v", err)
			return text
		}
		m.renderer = r
		m.width = width
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// TranscriptProps is everything the transcript shows.
type TranscriptProps struct {
	Width    int
	Messages []model.Message
	Loading  bool
	Dots     int
	// Markdown is nil when markdown rendering is disabled.
	Markdown *Markdown
}

// RenderTranscript draws the messages of the active chat, with the loading
// line appended while a reply is pending. The result is meant for a
// viewport.
func RenderTranscript(theme *styles.Theme, p TranscriptProps) string {
	bodyWidth := p.Width - theme.MessageBody.GetHorizontalPadding()
	var blocks []string
	var lastPrompt string

	for _, msg := range p.Messages {
		label := theme.AssistantLabel
		switch msg.Role {
		case model.RoleUser:
			label = theme.UserLabel
			lastPrompt = msg.Content
		case model.RoleSystem:
			label = theme.SystemLabel
		}

		var body string
		if msg.Role == model.RoleAssistant && p.Markdown != nil {
			body = p.Markdown.Render(msg.Content, bodyWidth)
		} else {
			body = theme.MessageBody.Width(p.Width).Render(msg.Content)
		}

		block := label.Render(msg.Role.DisplayName()) + "\n" + body
		if msg.HasArtifact() {
			block += "\n" + theme.ArtifactHint.Render(ArtifactHint)
		}
		blocks = append(blocks, block)
	}

	if p.Loading {
		blocks = append(blocks, RenderLoading(theme, lastPrompt, p.Dots))
	}
	return strings.Join(blocks, "\n\n")
}
