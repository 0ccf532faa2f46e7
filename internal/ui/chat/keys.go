// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Send       key.Binding
	NewChat    key.Binding
	Focus      key.Binding
	Up         key.Binding
	Down       key.Binding
	Delete     key.Binding
	DeleteAlt  key.Binding
	Optimize   key.Binding
	Refine     key.Binding
	Relations  key.Binding
	ConnectCAD key.Binding
	Disconnect key.Binding
	Refresh    key.Binding
	Artifact   key.Binding
	Copy       key.Binding
	Export     key.Binding
	SignOut    key.Binding
	Close      key.Binding
	Quit       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "chats"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "next"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "delete chat"),
		),
		// Only honored while the sidebar has focus; in the input the
		// delete key edits text.
		DeleteAlt: key.NewBinding(
			key.WithKeys("delete"),
			key.WithHelp("del", "delete chat"),
		),
		Optimize: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "optimize"),
		),
		Refine: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "refine"),
		),
		Relations: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "relations"),
		),
		ConnectCAD: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "connect CAD"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "disconnect CAD"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "plugin status"),
		),
		Artifact: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "view script"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "export chat"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "sign out"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar, most used first.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Send, k.NewChat, k.Focus, k.Delete,
		k.Optimize, k.Refine, k.Relations, k.ConnectCAD,
		k.Refresh, k.Artifact, k.Copy, k.SignOut, k.Quit,
	}
}

// FullHelp returns the bindings grouped for a help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Chats
		{k.Send, k.NewChat, k.Focus, k.Up, k.Down, k.Delete},
		// Tools
		{k.Optimize, k.Refine, k.Relations, k.ConnectCAD, k.Disconnect},
		// Replies
		{k.Artifact, k.Copy, k.Export, k.PageUp, k.PageDown},
		// Session
		{k.Refresh, k.SignOut, k.Close, k.Quit},
	}
}
