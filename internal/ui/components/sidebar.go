// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
	"github.com/forgemind/forgemind-tui/internal/util"
)

// =============================================================================
// SIDEBAR
// =============================================================================

// QuickTool is one entry of the sidebar tool list.
type QuickTool struct {
	Key   string
	Label string
}

// QuickTools are the wizard and CAD shortcuts listed under the chats.
var QuickTools = []QuickTool{
	{Key: "ctrl+o", Label: "Optimize Tolerances"},
	{Key: "ctrl+e", Label: "Refine Surfaces"},
	{Key: "ctrl+t", Label: "Part Relations"},
	{Key: "ctrl+k", Label: "Connect CAD"},
}

// SidebarProps is everything the sidebar shows.
type SidebarProps struct {
	Width   int
	Height  int
	Chats   []model.Chat // visible chats in display order
	Active  int          // index of the active chat, -1 for none
	Cursor  int          // keyboard cursor while focused
	Focused bool
	Loading bool // chats are being fetched
}

// RenderSidebar draws the chat list followed by the quick tools.
func RenderSidebar(theme *styles.Theme, p SidebarProps) string {
	width := p.Width
	if width < 12 {
		width = 12
	}
	inner := width - 3 // border + padding + marker column

	var b strings.Builder
	b.WriteString(theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	switch {
	case p.Loading:
		b.WriteString(theme.MutedStyle.Render("Loading chats..."))
		b.WriteString("\n")
	case len(p.Chats) == 0:
		b.WriteString(theme.MutedStyle.Render("No chats yet"))
		b.WriteString("\n")
	}

	for i, c := range p.Chats {
		name := c.Name
		if c.Error {
			name = "! " + name
		}
		line := util.PadWidth(name, inner)

		marker := " "
		if i == p.Active {
			marker = ">"
		}

		style := theme.SidebarItem
		switch {
		case p.Focused && i == p.Cursor:
			style = theme.SidebarItemSelected
		case c.Error:
			style = theme.SidebarItemError
		case i == p.Active:
			style = theme.SidebarItemActive
		}
		b.WriteString(marker + style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.SidebarTitle.Render("Quick tools"))
	b.WriteString("\n")
	for _, t := range QuickTools {
		key := theme.ShortcutKey.Render(t.Key)
		label := util.TruncateWidth(t.Label, inner-len(t.Key)-1)
		b.WriteString(" " + key + " " + theme.SidebarTool.Render(label))
		b.WriteString("\n")
	}

	frame := theme.Sidebar
	if p.Focused {
		frame = theme.SidebarFocused
	}
	frame = frame.Width(width - 1)
	if p.Height > 0 {
		frame = frame.Height(p.Height)
	}
	return frame.Render(strings.TrimRight(b.String(), "\n"))
}
