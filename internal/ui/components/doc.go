// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual building blocks of the ForgeMind
// TUI: header, sidebar, transcript, modals, plugin indicator and the
// artifact viewer.
//
// Components are stateless render functions over value props. The chat
// model owns all state and passes in what to draw.
package components
