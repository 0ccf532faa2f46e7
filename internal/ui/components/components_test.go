// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/cad"
	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
	"github.com/forgemind/forgemind-tui/internal/wizard"
)

func testTheme(t *testing.T) *styles.Theme {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	return styles.NewTheme(styles.ModeDark)
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoadingVerb(t *testing.T) {
	tests := map[string]string{
		"design a bracket":     "Designing",
		"  Design a flange":    "Designing",
		"designer notes":       "Reasoning",
		"why is this failing?": "Reasoning",
		"":                     "Reasoning",
	}
	for prompt, want := range tests {
		assert.Equal(t, want, LoadingVerb(prompt), prompt)
	}
}

func TestLoadingDotsCycle(t *testing.T) {
	dots := 0
	var seen []string
	for i := 0; i < 5; i++ {
		seen = append(seen, LoadingText("design a part", dots))
		dots = NextDots(dots)
	}
	assert.Equal(t, []string{"Designing", "Designing.", "Designing..", "Designing...", "Designing"}, seen)
	assert.Equal(t, "Reasoning", LoadingText("hi", 9))
}

func TestEmptyState(t *testing.T) {
	assert.Contains(t, RenderEmptyState(testTheme(t), 40, 5), EmptyPrompt)
}

// =============================================================================
// PLUGIN INDICATOR
// =============================================================================

func TestRenderPluginIndicator(t *testing.T) {
	theme := testTheme(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	unknown := RenderPluginIndicator(theme, plugin.Unknown(now), now)
	assert.Contains(t, unknown, "Plugin status unknown")

	connected := plugin.Derive(backend.PluginStatusResponse{IsConnected: true, IsActive: true}, now)
	assert.Contains(t, RenderPluginIndicator(theme, connected, now), "Plugin Connected")

	idle := plugin.Derive(backend.PluginStatusResponse{
		IsConnected: true,
		LastSeen:    backend.Timestamp{Time: now.Add(-5 * time.Minute)},
	}, now)
	out := RenderPluginIndicator(theme, idle, now)
	assert.Contains(t, out, "Plugin Inactive")
	assert.Contains(t, out, "5m ago")

	offline := plugin.Derive(backend.PluginStatusResponse{IsConnected: true, IsLoggedOut: true}, now)
	out = RenderPluginIndicator(theme, offline, now)
	assert.Contains(t, out, "Plugin Offline")
	assert.Contains(t, out, styles.StatusIndicators.Error)
}

// =============================================================================
// SIDEBAR / HEADER / STATUS BAR
// =============================================================================

func TestRenderSidebar(t *testing.T) {
	theme := testTheme(t)
	broken := model.NewChat("Broken")
	broken.Error = true

	out := RenderSidebar(theme, SidebarProps{
		Width:  28,
		Chats:  []model.Chat{model.NewChat("Chat 1"), broken, model.NewChat("a very long chat name that will not fit")},
		Active: 0,
	})
	assert.Contains(t, out, "Chat 1")
	assert.Contains(t, out, "! Broken")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "Optimize Tolerances")
	assert.Contains(t, out, "Connect CAD")

	empty := RenderSidebar(theme, SidebarProps{Width: 28, Active: -1})
	assert.Contains(t, empty, "No chats yet")
}

func TestRenderHeader(t *testing.T) {
	theme := testTheme(t)
	now := time.Now()
	out := RenderHeader(theme, HeaderProps{
		Width:  120,
		Route:  "/dashboard/chat/abc123",
		CAD:    "CATIA",
		Plugin: plugin.Unknown(now),
		Now:    now,
	})
	assert.Contains(t, out, Brand)
	assert.Contains(t, out, "/dashboard/chat/abc123")
	assert.Contains(t, out, "CAD: CATIA")

	out = RenderHeader(theme, HeaderProps{Width: 120, Route: "/dashboard", Plugin: plugin.Unknown(now), Now: now})
	assert.Contains(t, out, "No CAD")
}

// =============================================================================
// TRANSCRIPT / ARTIFACT
// =============================================================================

func TestRenderTranscript(t *testing.T) {
	theme := testTheme(t)
	now := time.Now()
	reply := model.NewAssistantMessage("Done, do you need anything else?", now)
	reply.Artifact = "import adsk.core"

	out := RenderTranscript(theme, TranscriptProps{
		Width:    60,
		Messages: []model.Message{model.NewUserMessage("design a bracket", now), reply},
		Loading:  true,
		Dots:     2,
	})
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "design a bracket")
	assert.Contains(t, out, "ForgeMind")
	assert.Contains(t, out, ArtifactHint)
	assert.Contains(t, out, "Designing..")
	assert.NotContains(t, out, "import adsk.core")
}

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdown("ascii")
	out := md.Render("# Title\n\nsome text", 40)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "some text")

	md.SetStyle("dark")
	assert.Contains(t, md.Render("plain words", 40), "plain")
}

func TestExtractCode(t *testing.T) {
	code, lang := ExtractCode("Here:\n```python\nimport adsk.core\nprint(1)\n```\nbye")
	assert.Equal(t, "python", lang)
	assert.Equal(t, "import adsk.core\nprint(1)", code)

	code, lang = ExtractCode("```\nx = 1")
	assert.Equal(t, "", lang)
	assert.Equal(t, "x = 1", code)

	code, lang = ExtractCode("no fences here")
	assert.Equal(t, "no fences here", code)
	assert.Equal(t, "", lang)
}

func TestRenderArtifact(t *testing.T) {
	out := RenderArtifact(testTheme(t), "```python\ndef f():\n    return 1\n```", 80)
	assert.Contains(t, out, "python")
	assert.Contains(t, out, "return")
	assert.Contains(t, out, "1")
}

// =============================================================================
// MODALS
// =============================================================================

func TestRenderWizard_StepsAndFields(t *testing.T) {
	theme := testTheme(t)
	m := wizard.New(wizard.Relations).Open().Advance()
	require.Equal(t, 2, m.Step())

	out := RenderWizard(theme, WizardProps{Machine: m})
	assert.Contains(t, out, "View Part Relations")
	assert.Contains(t, out, "Step 2 of 3")
	assert.Contains(t, out, "In the assembly")
	assert.NotContains(t, out, "Please explain...")

	m = m.SetField("relation", wizard.RelationOther)
	out = RenderWizard(theme, WizardProps{Machine: m})
	assert.Contains(t, out, "(*) Other")
	assert.Contains(t, out, "Please explain...")

	m = m.Advance()
	out = RenderWizard(theme, WizardProps{Machine: m})
	assert.Contains(t, out, "Running analysis...")
	assert.NotContains(t, out, "Send")
}

func TestRenderCADPicker(t *testing.T) {
	theme := testTheme(t)
	sel := cad.Selector{}.Select(cad.Other)
	out := RenderCADPicker(theme, CADPickerProps{Selector: sel, Cursor: 3})
	assert.Contains(t, out, "Connect to CAD")
	assert.Contains(t, out, "CATIA")
	assert.Contains(t, out, "(*) Other")
	assert.Contains(t, out, "Name your CAD software")

	out = RenderCADPicker(theme, CADPickerProps{Selector: cad.Selector{}.Select("NX")})
	assert.Contains(t, out, "(*) NX")
	assert.NotContains(t, out, "Name your CAD software")
}

func TestRenderConfirm(t *testing.T) {
	out := RenderConfirm(testTheme(t), DeleteConfirm("Bracket", false))
	assert.Contains(t, out, "Delete chat?")
	assert.Contains(t, out, `"Bracket"`)
	assert.Contains(t, out, "Cancel")
	assert.Contains(t, out, "Delete")
}
