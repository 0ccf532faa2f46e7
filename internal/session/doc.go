// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat collection of a signed-in user.
//
// A Store is an immutable snapshot: every operation returns a new Store and
// leaves the old one valid. The UI keeps exactly one current snapshot and
// replaces it on each event, so no two goroutines ever mutate chat state.
//
// # Key Types
//
//   - Store: the ordered chats, the active selection and the current route
//   - Identity: the signed-in user, passed explicitly to collaborators
//   - DeleteDecision: what a delete request requires before it can proceed
//
// # Active Selection
//
// The active selection is a chat LocalID or the empty "no chat" sentinel.
// It always names a visible chat or is the sentinel; hiding the active chat
// moves the selection to the nearest visible neighbour, creating a fresh
// "Chat 1" when none remain.
//
// # Usage
//
//	store := session.NewStore()
//	store, _ = store.CreateChat(false)
//	store, _ = store.SelectChat(id)
//	fmt.Println(store.Route())
package session
