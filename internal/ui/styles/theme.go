// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderRoute lipgloss.Style
	CADBadge    lipgloss.Style
	CADNone     lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar             lipgloss.Style
	SidebarFocused      lipgloss.Style
	SidebarTitle        lipgloss.Style
	SidebarItem         lipgloss.Style
	SidebarItemActive   lipgloss.Style
	SidebarItemSelected lipgloss.Style
	SidebarItemError    lipgloss.Style
	SidebarTool         lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	ArtifactHint   lipgloss.Style
	EmptyState     lipgloss.Style
	LoadingText    lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	StatusMessage  lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style

	// ==========================================================================
	// PLUGIN INDICATOR
	// ==========================================================================

	PluginConnected lipgloss.Style
	PluginInactive  lipgloss.Style
	PluginOffline   lipgloss.Style
	PluginUnknown   lipgloss.Style
	PluginLastSeen  lipgloss.Style

	// ==========================================================================
	// MODALS
	// ==========================================================================

	Modal          lipgloss.Style
	ModalDanger    lipgloss.Style
	ModalTitle     lipgloss.Style
	ModalPrompt    lipgloss.Style
	ModalStep      lipgloss.Style
	Button         lipgloss.Style
	ButtonActive   lipgloss.Style
	OptionItem     lipgloss.Style
	OptionSelected lipgloss.Style
	CodeBlock      lipgloss.Style
	CodeLineNum    lipgloss.Style

	// ==========================================================================
	// STATUS
	// ==========================================================================

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	MutedStyle   lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light" or "auto" (detect from
// the terminal).
func NewTheme(mode string) *Theme {
	t := &Theme{
		Mode:         mode,
		ColorProfile: termenv.ColorProfile(),
	}
	switch mode {
	case ModeDark:
		t.IsDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		t.IsDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		t.Mode = ModeAuto
		t.IsDark = termenv.HasDarkBackground()
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Forge)

	t.HeaderRoute = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.CADBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Steel).
		Padding(0, 1)

	t.CADNone = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	t.SidebarFocused = t.Sidebar.
		BorderForeground(Forge)

	t.SidebarTitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true).
		MarginBottom(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SidebarItemActive = lipgloss.NewStyle().
		Foreground(Forge).
		Bold(true)

	t.SidebarItemSelected = lipgloss.NewStyle().
		Background(SelectionBg).
		Foreground(TextPrimary)

	t.SidebarItemError = lipgloss.NewStyle().
		Foreground(Rose)

	t.SidebarTool = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Transcript
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Steel).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Forge).
		Bold(true)

	t.SystemLabel = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.MessageBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.ArtifactHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		PaddingLeft(2)

	t.EmptyState = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.LoadingText = lipgloss.NewStyle().
		Foreground(Forge).
		Italic(true).
		PaddingLeft(2)

	// Input and status
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Forge).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusMessage = lipgloss.NewStyle().
		Foreground(Amber)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Steel).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Plugin indicator
	t.PluginConnected = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.PluginInactive = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.PluginOffline = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.PluginUnknown = lipgloss.NewStyle().Foreground(TextMuted)
	t.PluginLastSeen = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	// Modals
	t.Modal = lipgloss.NewStyle().
		Background(Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Forge).
		Padding(1, 2)

	t.ModalDanger = t.Modal.
		BorderForeground(Rose)

	t.ModalTitle = lipgloss.NewStyle().
		Foreground(Forge).
		Bold(true).
		MarginBottom(1)

	t.ModalPrompt = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ModalStep = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Button = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		Padding(0, 2)

	t.ButtonActive = t.Button.
		Foreground(Forge).
		BorderForeground(Forge).
		Bold(true)

	t.OptionItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.OptionSelected = lipgloss.NewStyle().
		Foreground(Forge).
		Bold(true).
		PaddingLeft(2)

	t.CodeBlock = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.CodeLineNum = lipgloss.NewStyle().
		Foreground(TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	// Status
	t.SuccessStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.MutedStyle = lipgloss.NewStyle().Foreground(TextMuted)
}
