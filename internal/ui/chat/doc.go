// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the root Bubble Tea model of the ForgeMind TUI.
//
// The model owns every piece of client state: the session store, the
// in-flight exchange, the three wizards, the CAD selector and the latest
// plugin status. All of it is held as immutable values and replaced on each
// transition, so a snapshot handed to the view is never mutated behind its
// back.
//
// Network work runs in tea.Cmds and comes back as messages:
//   - ChatsLoadedMsg: result of loading the user's chats
//   - ExchangeResultMsg: reply (or failure) for one turn
//   - DeleteResultMsg: outcome of a confirmed remote delete
//   - PluginUpdateMsg: plugin status pushed by the poller
//   - ClipboardResultMsg: outcome of a copy
//   - ConfigReloadedMsg: settings changed on disk
//
// Messages carrying a user id are dropped when that user is no longer the
// signed-in one, so results from before a sign-out never leak into the
// next session.
package chat
