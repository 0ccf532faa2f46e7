// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import "github.com/charmbracelet/lipgloss"

// placeCenter centers content in a width x height box.
func placeCenter(width, height int, content string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Overlay centers a modal over the screen area.
func Overlay(width, height int, modal string) string {
	return placeCenter(width, height, modal)
}
