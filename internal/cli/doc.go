// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the forgemind command line and runs everything that is
// not the full-screen TUI: the line-mode chat, the one-shot status, chats,
// login and logout commands, and the development backend.
//
// Line mode drives the same session store and exchange operations as the
// TUI, one blocking turn at a time, with liner for history and editing.
package cli
