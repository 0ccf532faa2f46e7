// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// Values in this package are treated as immutable. Every helper that
// "changes" a Chat returns a new Chat and leaves the receiver untouched, so
// snapshots handed to the UI can never be mutated behind its back.
//
// # Key Types
//
//   - Chat: One conversation with its message log and remote identifiers
//   - Message: A single user, assistant or system message
//   - Role: Message role enumeration
//
// # Usage
//
//	chat := model.NewChat("Chat 1")
//	chat = chat.WithMessage(model.NewUserMessage("design a bracket", time.Now()))
//	visible := model.VisibleChats(chats)
package model
