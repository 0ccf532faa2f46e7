// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgemind/forgemind-tui/internal/ui/styles"
	"github.com/forgemind/forgemind-tui/internal/util"
)

// =============================================================================
// LOADING INDICATOR
// =============================================================================

// EmptyPrompt is shown in a chat with no messages.
const EmptyPrompt = "What can I help with?"

// LoadingTickInterval is how often another dot is added.
const LoadingTickInterval = 500 * time.Millisecond

// maxDots is where the dot cycle wraps back to zero.
const maxDots = 3

// LoadingTickMsg advances the loading dots.
type LoadingTickMsg struct{}

// LoadingTick schedules the next dot.
func LoadingTick() tea.Cmd {
	return tea.Tick(LoadingTickInterval, func(time.Time) tea.Msg {
		return LoadingTickMsg{}
	})
}

// NextDots advances the dot count, wrapping after three.
func NextDots(dots int) int {
	return (dots + 1) % (maxDots + 1)
}

// LoadingVerb picks the word shown while waiting for a reply: "Designing"
// when the first word of the prompt is "design", "Reasoning" otherwise.
func LoadingVerb(prompt string) string {
	if util.FirstWord(prompt) == "design" {
		return "Designing"
	}
	return "Reasoning"
}

// LoadingText is the verb followed by 0 to 3 dots.
func LoadingText(prompt string, dots int) string {
	if dots < 0 || dots > maxDots {
		dots = 0
	}
	return LoadingVerb(prompt) + strings.Repeat(".", dots)
}

// RenderLoading styles LoadingText.
func RenderLoading(theme *styles.Theme, prompt string, dots int) string {
	return theme.LoadingText.Render(LoadingText(prompt, dots))
}

// RenderEmptyState centers the empty-chat prompt in the given box.
func RenderEmptyState(theme *styles.Theme, width, height int) string {
	text := theme.EmptyState.Render(EmptyPrompt)
	if width <= 0 || height <= 0 {
		return text
	}
	return placeCenter(width, height, text)
}
