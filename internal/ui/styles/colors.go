// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the ForgeMind TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// BRAND COLORS
// =============================================================================

// Forge - Primary accent: brand, selections, focused borders
var Forge = lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#FB923C"}

// ForgeDeep - Darker brand tone for backgrounds
var ForgeDeep = lipgloss.AdaptiveColor{Light: "#9A3412", Dark: "#7C2D12"}

// Steel - Secondary accent: user messages, routes, key hints
var Steel = lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#7DD3FC"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Emerald - Plugin connected, success
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Amber - Plugin inactive, warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Rose - Plugin offline, errors, destructive actions
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1C1917"}
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F4", Dark: "#161412"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E7E5E4", Dark: "#44403C"}

// SelectionBg highlights the sidebar cursor.
var SelectionBg = lipgloss.AdaptiveColor{Light: "#FED7AA", Dark: "#431407"}

// =============================================================================
// TEXT COLORS
// =============================================================================

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1C1917", Dark: "#E7E5E4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#A8A29E"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#A8A29E", Dark: "#78716C"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1C1917"}

// =============================================================================
// ACCESSIBILITY
// =============================================================================

// StatusIndicatorSet pairs each status with an ASCII shape so state is not
// conveyed by color alone.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
	Active  string
}

// StatusIndicators are the ASCII shapes used next to colored status text.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
	Active:  "[*]",
}

// RenderSuccess renders a message with the success indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).Render(StatusIndicators.Success + " " + message)
}

// RenderError renders a message with the error indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a message with the warning indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders a message with the info indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Steel).Render(StatusIndicators.Info + " " + message)
}
