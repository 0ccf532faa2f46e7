// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgemind/forgemind-tui/internal/exchange"
	"github.com/forgemind/forgemind-tui/internal/export"
	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/session"
)

// =============================================================================
// SESSION COMMANDS
// =============================================================================

// beginSession starts the poller and loads chats for the current identity.
func (m *Model) beginSession() tea.Cmd {
	if !m.identity.SignedIn() {
		return nil
	}
	if m.deps.Poller != nil {
		m.deps.Poller.Start(m.ctx, m.identity.UserID)
	}
	m.loadingChats = true
	return m.loadChatsCmd()
}

func (m Model) loadChatsCmd() tea.Cmd {
	id := m.identity
	ld := m.loader
	ctx := m.ctx
	return func() tea.Msg {
		chats, err := ld.Load(ctx, id)
		return ChatsLoadedMsg{UserID: id.UserID, Chats: chats, Err: err}
	}
}

func (m Model) saveIdentityCmd(id session.Identity) tea.Cmd {
	save := m.deps.SaveIdentity
	if save == nil {
		return nil
	}
	return func() tea.Msg {
		return IdentitySavedMsg{Err: save(id)}
	}
}

// =============================================================================
// EXCHANGE COMMANDS
// =============================================================================

func (m Model) sendCmd(req exchange.Request) tea.Cmd {
	sender := m.sender
	ctx := m.ctx
	userID := m.identity.UserID
	return func() tea.Msg {
		return ExchangeResultMsg{UserID: userID, Result: sender.Dispatch(ctx, req)}
	}
}

func (m Model) deleteCmd(localID, chatID, name string) tea.Cmd {
	b := m.deps.Backend
	ctx := m.ctx
	userID := m.identity.UserID
	return func() tea.Msg {
		_, err := b.DeleteChat(ctx, chatID, userID)
		return DeleteResultMsg{UserID: userID, LocalID: localID, Name: name, Err: err}
	}
}

func (m Model) copyCmd(text, what string) tea.Cmd {
	write := m.deps.Clipboard
	return func() tea.Msg {
		return ClipboardResultMsg{What: what, Err: write(text)}
	}
}

// exportCmd writes chat as Markdown with its scripts.
func (m Model) exportCmd(chat model.Chat) tea.Cmd {
	opts := export.DefaultOptions()
	opts.Now = m.now
	if m.deps.ExportDir != "" {
		opts.OutputDir = m.deps.ExportDir
	}
	return func() tea.Msg {
		path, err := export.ExportToFile(chat, export.NewMarkdownExporter(opts), opts)
		return ExportResultMsg{Path: path, Err: err}
	}
}
