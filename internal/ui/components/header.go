// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
	"github.com/forgemind/forgemind-tui/internal/util"
)

// =============================================================================
// HEADER
// =============================================================================

// Brand is the product name shown in the header.
const Brand = "ForgeMind"

// HeaderProps is everything the header shows.
type HeaderProps struct {
	Width  int
	Route  string
	User   string
	CAD    string // connected CAD label, empty when disconnected
	Plugin plugin.Status
	Now    time.Time
}

// RenderHeader draws the single-line title bar: brand and route on the left,
// CAD badge and plugin indicator on the right.
func RenderHeader(theme *styles.Theme, p HeaderProps) string {
	width := p.Width
	if width < 40 {
		width = 40
	}

	left := theme.HeaderBrand.Render(Brand) + " " + theme.HeaderRoute.Render(p.Route)
	if p.User != "" {
		left += theme.MutedStyle.Render("  " + util.TruncateWidth(p.User, 24))
	}

	var cadPart string
	if p.CAD != "" {
		cadPart = theme.CADBadge.Render("CAD: " + util.TruncateWidth(p.CAD, 20))
	} else {
		cadPart = theme.CADNone.Render("No CAD")
	}
	right := cadPart + "  " + RenderPluginIndicator(theme, p.Plugin, p.Now)

	inner := width - theme.Header.GetHorizontalPadding()
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Narrow terminal: the route goes first.
		left = theme.HeaderBrand.Render(Brand)
		gap = inner - lipgloss.Width(left) - lipgloss.Width(right)
	}
	if gap < 1 {
		gap = 1
	}
	return theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
