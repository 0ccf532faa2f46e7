// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plugin

import (
	"fmt"
	"time"

	"github.com/forgemind/forgemind-tui/internal/backend"
)

// Level is the coarse state used for display.
type Level int

const (
	LevelUnknown Level = iota
	LevelOffline
	LevelInactive
	LevelConnected
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelOffline:
		return "offline"
	case LevelInactive:
		return "inactive"
	case LevelConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Status is the derived plugin state.
type Status struct {
	// Known is false when the last fetch failed or none has completed.
	Known bool

	LoggedIn  bool
	Active    bool
	LoggedOut bool

	LastSeen  time.Time
	CheckedAt time.Time
	Message   string
}

// Derive computes the status from a backend answer. An explicit logout
// overrides a connected flag.
func Derive(resp backend.PluginStatusResponse, now time.Time) Status {
	return Status{
		Known:     true,
		LoggedIn:  resp.IsConnected && !resp.IsLoggedOut,
		Active:    resp.IsActive,
		LoggedOut: resp.IsLoggedOut,
		LastSeen:  resp.LastSeen.Time,
		CheckedAt: now,
		Message:   resp.StatusMessage,
	}
}

// Unknown is the state after a failed fetch.
func Unknown(now time.Time) Status {
	return Status{CheckedAt: now}
}

// Online reports whether prompts may rely on the plugin.
func (s Status) Online() bool {
	return s.Known && s.LoggedIn
}

// Level returns the display level.
func (s Status) Level() Level {
	switch {
	case !s.Known:
		return LevelUnknown
	case !s.LoggedIn:
		return LevelOffline
	case s.Active:
		return LevelConnected
	default:
		return LevelInactive
	}
}

// Label is the short indicator text.
func (s Status) Label() string {
	switch s.Level() {
	case LevelUnknown:
		return "Plugin status unknown"
	case LevelOffline:
		return "Plugin Offline"
	case LevelConnected:
		return "Plugin Connected"
	default:
		return "Plugin Inactive"
	}
}

// ShowLastSeen reports whether the last-seen hint is worth displaying: the
// plugin is signed in but idle and has been seen at least once.
func (s Status) ShowLastSeen() bool {
	return s.Known && s.LoggedIn && !s.Active && !s.LastSeen.IsZero()
}

// LastSeenText renders LastSeen relative to now.
func (s Status) LastSeenText(now time.Time) string {
	if s.LastSeen.IsZero() {
		return "Never"
	}
	diff := now.Sub(s.LastSeen)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
}
