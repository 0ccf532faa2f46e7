// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package exchange mediates one user turn with the chat backend.
//
// A turn is split into three steps so the UI can keep every state change on
// its own event loop:
//
//	Begin     validate input, append the user message, mark in flight
//	Dispatch  optional plugin check, then POST /chat (runs off the loop)
//	Complete  fold the Result back into the store and clear the in-flight flag
//
// Begin and Complete are pure functions over session.Store snapshots.
package exchange
