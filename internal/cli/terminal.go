// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY reports whether stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Interactive reports whether the full-screen TUI can run.
func Interactive() bool {
	return IsTTY() && IsStdoutTTY()
}

const (
	DefaultTerminalWidth = 80
	MinTerminalWidth     = 40
)

// TerminalWidth returns the stdout width, or DefaultTerminalWidth.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled honors NO_COLOR, then FORCE_COLOR, then stdout TTY.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsEnabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsEnabled = true
		default:
			colorsEnabled = IsStdoutTTY()
		}
	})
	return colorsEnabled
}

// SetColorsEnabled overrides detection. Tests use it to get plain output.
func SetColorsEnabled(enabled bool) {
	colorsEnabledOnce.Do(func() {})
	colorsEnabled = enabled
	applyColorProfile()
}

// applyColorProfile pushes the decision to both color libraries.
func applyColorProfile() {
	if !ColorsEnabled() {
		lipgloss.SetColorProfile(termenv.Ascii)
		color.NoColor = true
		return
	}
	lipgloss.SetColorProfile(termenv.ColorProfile())
	color.NoColor = false
}

func init() {
	applyColorProfile()
}
