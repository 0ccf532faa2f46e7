// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/forgemind/forgemind-tui/internal/config"
	"github.com/forgemind/forgemind-tui/internal/exchange"
	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/plugin"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// ChatsLoadedMsg carries the result of loading a user's chats.
type ChatsLoadedMsg struct {
	UserID string
	Chats  []model.Chat
	Err    error
}

// =============================================================================
// EXCHANGE MESSAGES
// =============================================================================

// ExchangeResultMsg carries the outcome of one turn.
type ExchangeResultMsg struct {
	UserID string
	Result exchange.Result
}

// DeleteResultMsg carries the outcome of a confirmed remote delete.
type DeleteResultMsg struct {
	UserID  string
	LocalID string
	Name    string
	Err     error
}

// =============================================================================
// BACKGROUND MESSAGES
// =============================================================================

// PluginUpdateMsg forwards a poller update into the program.
type PluginUpdateMsg struct {
	plugin.Update
}

// ClipboardResultMsg reports a finished copy.
type ClipboardResultMsg struct {
	What string
	Err  error
}

// ExportResultMsg reports a finished transcript export.
type ExportResultMsg struct {
	Path string
	Err  error
}

// ConfigReloadedMsg delivers a config reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// IdentitySavedMsg reports whether the identity change was persisted.
type IdentitySavedMsg struct {
	Err error
}
