// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgemind/forgemind-tui/internal/cad"
	"github.com/forgemind/forgemind-tui/internal/exchange"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/session"
	"github.com/forgemind/forgemind-tui/internal/ui/components"
	"github.com/forgemind/forgemind-tui/internal/wizard"
)

// =============================================================================
// KEY DISPATCH
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.screen == ScreenSignIn {
		return m.handleSignInKey(msg)
	}

	switch {
	case m.confirm != nil:
		return m.handleConfirmKey(msg)
	case m.picker != nil:
		return m.handleCADKey(msg)
	case m.artifact != "":
		return m.handleArtifactKey(msg)
	case m.wizards.AnyOpen():
		return m.handleWizardKey(msg)
	}

	if mm, cmd, ok := m.handleGlobalKey(msg); ok {
		return mm, cmd
	}
	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

// handleGlobalKey handles the chat-screen shortcuts that work in either
// pane. ok is false when msg is not one of them.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	m.statusMsg = ""
	switch {
	case key.Matches(msg, m.keys.NewChat):
		next, ok := m.store.CreateChat(m.xstate.Sending)
		if !ok {
			m.statusMsg = "Wait for the reply before starting a new chat"
			return m, nil, true
		}
		m.store = next
		m.focus = FocusInput
		m.input.Focus()
		m.refreshTranscript()
		return m, nil, true

	case key.Matches(msg, m.keys.Focus):
		if m.focus == FocusInput {
			m.focus = FocusSidebar
			m.input.Blur()
			return m, nil, true
		}
		m.focus = FocusInput
		return m, m.input.Focus(), true

	case key.Matches(msg, m.keys.Delete):
		mm, cmd := m.requestDelete()
		return mm.(Model), cmd, true

	case key.Matches(msg, m.keys.Optimize):
		return m.openWizard(wizard.Optimize), nil, true
	case key.Matches(msg, m.keys.Refine):
		return m.openWizard(wizard.Refine), nil, true
	case key.Matches(msg, m.keys.Relations):
		return m.openWizard(wizard.Relations), nil, true

	case key.Matches(msg, m.keys.ConnectCAD):
		return m.openPicker(), nil, true

	case key.Matches(msg, m.keys.Disconnect):
		if m.cad.Connected() {
			m.statusMsg = "Disconnected from " + m.cad.Label()
		}
		m.cad = m.cad.Disconnect()
		return m, nil, true

	case key.Matches(msg, m.keys.Refresh):
		if m.deps.Poller == nil || !m.deps.Poller.Refresh() {
			m.statusMsg = "Plugin status was just checked"
		} else {
			m.statusMsg = "Checking plugin status..."
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Artifact):
		chat, ok := m.store.Active()
		if !ok {
			return m, nil, true
		}
		if raw, ok := chat.LastArtifact(); ok {
			m.artifact = raw
		} else {
			m.statusMsg = "No generated script in this chat"
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Copy):
		mm, cmd := m.copyLastReply()
		return mm.(Model), cmd, true

	case key.Matches(msg, m.keys.Export):
		chat, ok := m.store.Active()
		if !ok || len(chat.Messages) == 0 {
			m.statusMsg = "Nothing to export"
			return m, nil, true
		}
		return m, m.exportCmd(chat), true

	case key.Matches(msg, m.keys.SignOut):
		mm, cmd := m.signOut()
		return mm.(Model), cmd, true

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil, true
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil, true
	}
	return m, nil, false
}

// =============================================================================
// INPUT AND SIDEBAR
// =============================================================================

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Send):
		return m.send()
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.store.Visible()
	idx := m.store.ActiveIndex()

	switch {
	case key.Matches(msg, m.keys.Up):
		if len(visible) == 0 {
			return m, nil
		}
		if idx <= 0 {
			idx = 0
		} else {
			idx--
		}
		return m.selectChat(visible[idx].LocalID), nil

	case key.Matches(msg, m.keys.Down):
		if len(visible) == 0 {
			return m, nil
		}
		if idx < len(visible)-1 {
			idx++
		}
		return m.selectChat(visible[idx].LocalID), nil

	case key.Matches(msg, m.keys.DeleteAlt):
		return m.requestDelete()

	case key.Matches(msg, m.keys.Send), key.Matches(msg, m.keys.Close):
		m.focus = FocusInput
		return m, m.input.Focus()
	}
	return m, nil
}

func (m Model) selectChat(localID string) Model {
	if next, ok := m.store.SelectChat(localID); ok {
		m.store = next
		m.viewport.GotoBottom()
		m.refreshTranscript()
	}
	return m
}

// send starts a turn from the input buffer.
func (m Model) send() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.xstate.Sending {
		m.statusMsg = "Still waiting for the last reply"
		return m, nil
	}

	store, st, req, ok := exchange.Begin(m.store, m.xstate, exchange.Turn{
		Text:       text,
		Identity:   m.identity,
		CADContext: m.cad.PromptContext(),
		Now:        m.now(),
	})
	if !ok {
		return m, nil
	}
	m.store, m.xstate = store, st
	m.input.Reset()
	m.dots = 0
	m.viewport.GotoBottom()
	m.refreshTranscript()

	cmds := []tea.Cmd{m.sendCmd(req)}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, components.LoadingTick())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	chat, ok := m.store.Active()
	if !ok {
		return m, nil
	}
	if raw, ok := chat.LastArtifact(); ok {
		return m, m.copyCmd(raw, "script")
	}
	if reply, ok := chat.LastAssistantMessage(); ok {
		return m, m.copyCmd(reply.Content, "reply")
	}
	m.statusMsg = "Nothing to copy yet"
	return m, nil
}

// =============================================================================
// DELETE
// =============================================================================

func (m Model) requestDelete() (tea.Model, tea.Cmd) {
	chat, ok := m.store.Active()
	if !ok {
		return m, nil
	}
	switch m.store.RequestDelete(chat.LocalID) {
	case session.DeleteLocal:
		m.store = m.store.HideChat(chat.LocalID)
		m.refreshTranscript()
	case session.DeleteNeedsConfirm:
		m.confirm = &pendingDelete{localID: chat.LocalID, name: chat.Name}
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.confirm = nil
		return m, nil
	case "tab", "left", "right", "shift+tab":
		c := *m.confirm
		c.confirmFocused = !c.confirmFocused
		m.confirm = &c
		return m, nil
	case "y":
		return m.confirmDelete()
	case "enter":
		if m.confirm.confirmFocused {
			return m.confirmDelete()
		}
		m.confirm = nil
		return m, nil
	}
	return m, nil
}

func (m Model) confirmDelete() (tea.Model, tea.Cmd) {
	pd := m.confirm
	m.confirm = nil
	chat, ok := m.store.Chat(pd.localID)
	if !ok || !chat.Visible || !chat.Persisted() {
		return m, nil
	}
	m.statusMsg = "Deleting " + chat.Name + "..."
	return m, m.deleteCmd(chat.LocalID, chat.ID, chat.Name)
}

// =============================================================================
// WIZARDS
// =============================================================================

func (m Model) openWizard(k wizard.Kind) Model {
	m.wizards = m.wizards.Update(k, wizard.Machine.Open)
	m.wizFocus = 0
	m.syncWizardInput()
	return m
}

// wizardSlots is the number of focus stops of the open wizard: its visible
// fields plus the action button.
func wizardSlots(w wizard.Machine) int {
	n := len(w.VisibleFields())
	if w.Current().Action != "" {
		n++
	}
	return n
}

// syncWizardInput loads the focused text field into the shared input.
func (m *Model) syncWizardInput() {
	m.wizInput.Blur()
	w, ok := m.wizards.FirstOpen()
	if !ok {
		return
	}
	fields := w.VisibleFields()
	if m.wizFocus >= len(fields) {
		return
	}
	f := fields[m.wizFocus]
	if f.Kind == wizard.FieldChoice {
		return
	}
	m.wizInput.Placeholder = f.Placeholder
	m.wizInput.SetValue(w.Field(f.Name))
	m.wizInput.CursorEnd()
	m.wizInput.Focus()
}

func (m Model) handleWizardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w, _ := m.wizards.FirstOpen()
	k := w.Kind()
	fields := w.VisibleFields()

	switch {
	case key.Matches(msg, m.keys.Close):
		m.wizards = m.wizards.Update(k, wizard.Machine.Cancel)
		m.wizFocus = 0
		m.wizInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Optimize):
		return m.openWizard(wizard.Optimize), nil
	case key.Matches(msg, m.keys.Refine):
		return m.openWizard(wizard.Refine), nil
	case key.Matches(msg, m.keys.Relations):
		return m.openWizard(wizard.Relations), nil

	case msg.Type == tea.KeyTab, msg.Type == tea.KeyShiftTab:
		if n := wizardSlots(w); n > 0 {
			if msg.Type == tea.KeyTab {
				m.wizFocus = (m.wizFocus + 1) % n
			} else {
				m.wizFocus = (m.wizFocus + n - 1) % n
			}
		}
		m.syncWizardInput()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		m.wizards = m.wizards.Update(k, wizard.Machine.Advance)
		m.wizFocus = 0
		m.syncWizardInput()
		return m, nil
	}

	if m.wizFocus >= len(fields) {
		return m, nil
	}
	f := fields[m.wizFocus]

	if f.Kind == wizard.FieldChoice {
		step := 0
		switch {
		case key.Matches(msg, m.keys.Up):
			step = -1
		case key.Matches(msg, m.keys.Down):
			step = 1
		default:
			return m, nil
		}
		next := cycleChoice(f.Choices, w.Field(f.Name), step)
		m.wizards = m.wizards.Update(k, func(w wizard.Machine) wizard.Machine {
			return w.SetField(f.Name, next)
		})
		return m, nil
	}

	var cmd tea.Cmd
	m.wizInput, cmd = m.wizInput.Update(msg)
	value := m.wizInput.Value()
	m.wizards = m.wizards.Update(k, func(w wizard.Machine) wizard.Machine {
		return w.SetField(f.Name, value)
	})
	return m, cmd
}

// cycleChoice moves from current by step through choices, wrapping. An
// unset choice starts from the first (or last) option.
func cycleChoice(choices []wizard.Choice, current string, step int) string {
	if len(choices) == 0 {
		return current
	}
	idx := -1
	for i, c := range choices {
		if c.Value == current {
			idx = i
		}
	}
	if idx < 0 {
		if step < 0 {
			return choices[len(choices)-1].Value
		}
		return choices[0].Value
	}
	n := len(choices)
	return choices[((idx+step)%n+n)%n].Value
}

// =============================================================================
// CAD PICKER
// =============================================================================

func (m Model) openPicker() Model {
	cursor := 0
	for i, o := range cad.Options {
		if o.Name == m.cad.Chosen() {
			cursor = i
		}
	}
	m.picker = &cadPicker{cursor: cursor}
	return m
}

func (m Model) handleCADKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := *m.picker

	if p.editing {
		switch msg.Type {
		case tea.KeyEnter:
			m.cad = m.cad.SetCustomText(strings.TrimSpace(m.cadInput.Value()))
			m.cadInput.Blur()
			m.picker = nil
			m.statusMsg = "Connected to " + m.cad.Label()
			return m, nil
		case tea.KeyEsc:
			p.editing = false
			m.cadInput.Blur()
			m.picker = &p
			return m, nil
		}
		var cmd tea.Cmd
		m.cadInput, cmd = m.cadInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Close):
		m.picker = nil
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if p.cursor < len(cad.Options)-1 {
			p.cursor++
		}
	case key.Matches(msg, m.keys.Disconnect):
		m.cad = m.cad.Disconnect()
		m.picker = nil
		m.statusMsg = "CAD disconnected"
		return m, nil
	case key.Matches(msg, m.keys.Send):
		name := cad.Options[p.cursor].Name
		m.cad = m.cad.Select(name)
		if m.cad.AcceptsText() {
			p.editing = true
			m.cadInput.SetValue("")
			m.picker = &p
			return m, m.cadInput.Focus()
		}
		m.picker = nil
		m.statusMsg = "Connected to " + m.cad.Label()
		return m, nil
	}
	m.picker = &p
	return m, nil
}

// =============================================================================
// ARTIFACT VIEWER
// =============================================================================

func (m Model) handleArtifactKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Artifact):
		m.artifact = ""
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd(m.artifact, "script")
	}
	return m, nil
}

// =============================================================================
// SIGN IN / SIGN OUT
// =============================================================================

func (m Model) handleSignInKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.signIn, cmd = m.signIn.Update(msg)
		return m, cmd
	}

	id := session.Identity{UserID: strings.TrimSpace(m.signIn.Value())}
	if !id.SignedIn() {
		m.signInErr = "Enter your user id to continue"
		return m, nil
	}
	m.identity = id
	m.signInErr = ""
	m.signIn.Reset()
	m.signIn.Blur()
	m.screen = ScreenChat
	m.focus = FocusInput
	m.logger.Printf("ui: signed in as %s", id.UserID)

	cmds := []tea.Cmd{m.input.Focus(), m.saveIdentityCmd(id)}
	cmds = append(cmds, m.beginSession())
	return m, tea.Batch(cmds...)
}

// signOut stops the poller and drops every piece of per-user state.
func (m Model) signOut() (tea.Model, tea.Cmd) {
	if m.deps.Poller != nil {
		m.deps.Poller.Stop()
	}
	m.logger.Printf("ui: signed out %s", m.identity.UserID)

	m.identity = session.Identity{}
	m.store = m.store.Reset()
	m.xstate = exchange.State{}
	m.wizards = m.wizards.Reset()
	m.cad = m.cad.Disconnect()
	m.pluginStatus = plugin.Unknown(m.now())
	m.loadingChats = false
	m.confirm = nil
	m.picker = nil
	m.artifact = ""
	m.statusMsg = ""
	m.focus = FocusInput
	m.input.Reset()
	m.input.Blur()
	m.screen = ScreenSignIn
	m.refreshTranscript()

	return m, tea.Batch(m.signIn.Focus(), m.saveIdentityCmd(session.Identity{}))
}
