// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/forgemind/forgemind-tui/internal/ui/components"
)

// View renders the current screen.
func (m Model) View() string {
	if m.screen == ScreenSignIn {
		return components.Overlay(m.width, m.height,
			components.RenderSignIn(m.theme, m.signIn.View(), m.signInErr))
	}

	body := m.renderBody()
	if modal := m.renderModal(); modal != "" {
		body = components.Overlay(m.width, m.bodyHeight(), modal)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

func (m Model) bodyHeight() int {
	h := m.height - headerHeight - statusHeight
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) renderHeader() string {
	cadLabel := ""
	if m.cad.Connected() {
		cadLabel = m.cad.Label()
	}
	return components.RenderHeader(m.theme, components.HeaderProps{
		Width:  m.width,
		Route:  m.store.Route(),
		User:   m.identity.Display(),
		CAD:    cadLabel,
		Plugin: m.pluginStatus,
		Now:    m.now(),
	})
}

func (m Model) renderBody() string {
	sidebar := components.RenderSidebar(m.theme, components.SidebarProps{
		Width:   m.sidebarWidth(),
		Height:  m.bodyHeight(),
		Chats:   m.store.Visible(),
		Active:  m.store.ActiveIndex(),
		Cursor:  m.store.ActiveIndex(),
		Focused: m.focus == FocusSidebar,
		Loading: m.loadingChats,
	})

	var transcript string
	chat, ok := m.store.Active()
	if !ok || (len(chat.Messages) == 0 && !m.waitingOn(chat.LocalID)) {
		transcript = components.RenderEmptyState(m.theme, m.viewport.Width, m.viewport.Height)
	} else {
		transcript = m.viewport.View()
	}

	input := m.theme.InputContainer.Width(m.viewport.Width).Render(m.input.View())
	main := lipgloss.JoinVertical(lipgloss.Left, transcript, input)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)
}

// renderModal draws the topmost overlay, or "" when none is open.
func (m Model) renderModal() string {
	switch {
	case m.confirm != nil:
		return components.RenderConfirm(m.theme,
			components.DeleteConfirm(m.confirm.name, m.confirm.confirmFocused))
	case m.picker != nil:
		return components.RenderCADPicker(m.theme, components.CADPickerProps{
			Selector: m.cad,
			Cursor:   m.picker.cursor,
			Editing:  m.picker.editing,
			Input:    m.cadInput.View(),
		})
	case m.artifact != "":
		return components.RenderArtifactModal(m.theme, m.artifact, m.width)
	}
	if w, ok := m.wizards.FirstOpen(); ok {
		return components.RenderWizard(m.theme, components.WizardProps{
			Machine: w,
			Focus:   m.wizFocus,
			Input:   m.wizInput.View(),
		})
	}
	return ""
}

func (m Model) renderStatusBar() string {
	return components.RenderStatusBar(m.theme, components.StatusBarProps{
		Width:    m.width,
		Message:  m.statusMsg,
		Bindings: m.keys.ShortHelp(),
	})
}
