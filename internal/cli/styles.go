// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// =============================================================================
// REPORT STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208")).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// RenderSeparator renders a horizontal rule, 60 columns unless given.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("=", w))
}

// RenderStatus renders a bracketed status tag.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "online":
		return SuccessStyle.Render("[OK]")
	case "error", "offline":
		return ErrorStyle.Render("[X]")
	case "warning", "pending":
		return WarningStyle.Render("[!]")
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}

// RenderRow renders "label  value".
func RenderRow(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

// =============================================================================
// CONVERSATION COLORS
// =============================================================================

// Line-mode chat output. color.NoColor is managed in terminal.go.
var (
	youColor       = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgHiYellow, color.Bold)
	noticeColor    = color.New(color.FgHiBlack)
	errorColor     = color.New(color.FgRed, color.Bold)
	okColor        = color.New(color.FgGreen)
	codeColor      = color.New(color.FgGreen)
)
