// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
)

// =============================================================================
// PLUGIN INDICATOR
// =============================================================================

// pluginShape pairs each level with an ASCII shape so the state does not
// depend on color alone.
func pluginShape(l plugin.Level) string {
	switch l {
	case plugin.LevelConnected:
		return styles.StatusIndicators.Success
	case plugin.LevelInactive:
		return styles.StatusIndicators.Warning
	case plugin.LevelOffline:
		return styles.StatusIndicators.Error
	default:
		return styles.StatusIndicators.Pending
	}
}

func pluginStyle(theme *styles.Theme, l plugin.Level) lipgloss.Style {
	switch l {
	case plugin.LevelConnected:
		return theme.PluginConnected
	case plugin.LevelInactive:
		return theme.PluginInactive
	case plugin.LevelOffline:
		return theme.PluginOffline
	default:
		return theme.PluginUnknown
	}
}

// RenderPluginIndicator draws the plugin status label, followed by the
// last-seen time while the plugin is signed in but idle.
func RenderPluginIndicator(theme *styles.Theme, st plugin.Status, now time.Time) string {
	level := st.Level()
	out := pluginStyle(theme, level).Render(pluginShape(level) + " " + st.Label())
	if st.ShowLastSeen() {
		out += theme.PluginLastSeen.Render(" (last seen " + st.LastSeenText(now) + ")")
	}
	return out
}
