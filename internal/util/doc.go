// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across forgemind.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for sidebar columns
//   - FirstWord: lower-cased first word of a line
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	name := util.TruncateRunes(prompt, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
