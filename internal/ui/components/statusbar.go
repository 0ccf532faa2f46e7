// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/forgemind/forgemind-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBarProps is everything the bottom bar shows.
type StatusBarProps struct {
	Width    int
	Message  string // transient status text, shown left
	Bindings []key.Binding
}

// RenderStatusBar draws the transient message and as many key hints as
// fit.
func RenderStatusBar(theme *styles.Theme, p StatusBarProps) string {
	width := p.Width
	if width < 20 {
		width = 20
	}
	inner := width - theme.StatusBar.GetHorizontalPadding()

	left := ""
	if p.Message != "" {
		left = theme.StatusMessage.Render(p.Message)
	}

	var hints []string
	used := lipgloss.Width(left) + 2
	for _, b := range p.Bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		part := theme.ShortcutKey.Render(h.Key) + " " + theme.ShortcutDesc.Render(h.Desc)
		w := lipgloss.Width(part) + 2
		if used+w > inner {
			break
		}
		used += w
		hints = append(hints, part)
	}
	right := strings.Join(hints, "  ")

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
