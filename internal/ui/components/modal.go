// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forgemind/forgemind-tui/internal/cad"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
	"github.com/forgemind/forgemind-tui/internal/wizard"
)

// =============================================================================
// SHARED
// =============================================================================

// modalWidth is the content width of every dialog.
const modalWidth = 56

func renderButtons(theme *styles.Theme, labels []string, active int) string {
	var out []string
	for i, l := range labels {
		style := theme.Button
		if i == active {
			style = theme.ButtonActive
		}
		out = append(out, style.Render(l))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func hint(theme *styles.Theme, pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, theme.ShortcutKey.Render(pairs[i])+" "+theme.ShortcutDesc.Render(pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}

// =============================================================================
// CONFIRM DIALOG
// =============================================================================

// ConfirmProps describes a yes/no dialog.
type ConfirmProps struct {
	Title   string
	Message string
	Confirm string
	Cancel  string
	// ConfirmFocused selects the confirm button; cancel is the default.
	ConfirmFocused bool
}

// DeleteConfirm builds the dialog shown before deleting a persisted chat.
func DeleteConfirm(chatName string, confirmFocused bool) ConfirmProps {
	return ConfirmProps{
		Title:          "Delete chat?",
		Message:        fmt.Sprintf("%q and its messages will be deleted for good.", chatName),
		Confirm:        "Delete",
		Cancel:         "Cancel",
		ConfirmFocused: confirmFocused,
	}
}

// RenderConfirm draws a confirm dialog with cancel on the left.
func RenderConfirm(theme *styles.Theme, p ConfirmProps) string {
	active := 0
	if p.ConfirmFocused {
		active = 1
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		theme.ModalTitle.Render(p.Title),
		theme.ModalPrompt.Width(modalWidth).Render(p.Message),
		"",
		renderButtons(theme, []string{p.Cancel, p.Confirm}, active),
		hint(theme, "tab", "switch", "enter", "choose", "esc", "cancel"),
	)
	return theme.ModalDanger.Render(body)
}

// =============================================================================
// WIZARD
// =============================================================================

// WizardProps describes the open wizard.
type WizardProps struct {
	Machine wizard.Machine
	// Focus indexes VisibleFields; len(VisibleFields) means the action
	// button.
	Focus int
	// Input is the rendered text input of the focused text or path field.
	Input string
}

// RenderWizard draws the current step of an open wizard.
func RenderWizard(theme *styles.Theme, p WizardProps) string {
	m := p.Machine
	step := m.Current()

	lines := []string{
		theme.ModalTitle.Render(m.Definition().Title),
		theme.ModalStep.Render(fmt.Sprintf("Step %d of %d", m.Step(), m.Steps())),
		"",
	}

	prompt := step.Prompt
	if m.Terminal() {
		prompt = theme.LoadingText.UnsetPaddingLeft().Render(prompt)
	} else {
		prompt = theme.ModalPrompt.Width(modalWidth).Render(prompt)
	}
	lines = append(lines, prompt)

	fields := m.VisibleFields()
	for i, f := range fields {
		lines = append(lines, "", renderField(theme, m, f, i == p.Focus, p.Input))
	}

	lines = append(lines, "")
	if step.Action != "" {
		active := -1
		if p.Focus >= len(fields) {
			active = 0
		}
		lines = append(lines,
			renderButtons(theme, []string{step.Action}, active),
			hint(theme, "tab", "next field", "enter", strings.ToLower(step.Action), "esc", "close"))
	} else {
		lines = append(lines, hint(theme, "esc", "close"))
	}

	return theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderField(theme *styles.Theme, m wizard.Machine, f wizard.FieldDef, focused bool, input string) string {
	label := theme.ModalStep.Render(f.Label)
	if focused {
		label = theme.ModalTitle.UnsetMarginBottom().Render(f.Label)
	}

	switch f.Kind {
	case wizard.FieldChoice:
		current := m.Field(f.Name)
		var opts []string
		for _, c := range f.Choices {
			if c.Value == current {
				opts = append(opts, theme.OptionSelected.Render("(*) "+c.Label))
			} else {
				opts = append(opts, theme.OptionItem.Render("( ) "+c.Label))
			}
		}
		return label + "\n" + strings.Join(opts, "\n")
	default:
		value := m.Field(f.Name)
		if focused && input != "" {
			value = input
		} else if value == "" {
			value = theme.MutedStyle.Render(f.Placeholder)
		}
		return label + "\n" + value
	}
}

// =============================================================================
// CAD PICKER
// =============================================================================

// CADPickerProps describes the Connect to CAD dialog.
type CADPickerProps struct {
	Selector cad.Selector
	Cursor   int // index into cad.Options
	// Editing is true while the free-text box for Other has focus.
	Editing bool
	Input   string
}

// RenderCADPicker draws the CAD option list.
func RenderCADPicker(theme *styles.Theme, p CADPickerProps) string {
	lines := []string{
		theme.ModalTitle.Render("Connect to CAD"),
		theme.ModalPrompt.Render("Choose a CAD software:"),
		"",
	}
	for i, opt := range cad.Options {
		mark := "( )"
		if opt.Name == p.Selector.Chosen() {
			mark = "(*)"
		}
		style := theme.OptionItem
		if i == p.Cursor && !p.Editing {
			style = theme.OptionSelected
		}
		lines = append(lines, style.Render(mark+" "+opt.Name))
	}

	if p.Selector.AcceptsText() {
		text := p.Selector.CustomText()
		if p.Editing {
			text = p.Input
		} else if text == "" {
			text = theme.MutedStyle.Render("Name your CAD software")
		}
		lines = append(lines, "", theme.ModalStep.Render("Other"), text)
	}

	lines = append(lines, "", hint(theme, "enter", "connect", "ctrl+x", "disconnect", "esc", "close"))
	return theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// ARTIFACT DIALOG
// =============================================================================

// RenderArtifactModal frames a suppressed reply for viewing.
func RenderArtifactModal(theme *styles.Theme, raw string, width int) string {
	lines := []string{
		theme.ModalTitle.Render("Generated script"),
		RenderArtifact(theme, raw, width-8),
		"",
		hint(theme, "ctrl+y", "copy", "esc", "close"),
	}
	return theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// SIGN IN
// =============================================================================

// RenderSignIn draws the sign-in screen. input is the rendered user id
// text input; errMsg is shown when the last attempt failed.
func RenderSignIn(theme *styles.Theme, input, errMsg string) string {
	lines := []string{
		theme.HeaderBrand.Render(Brand),
		"",
		theme.ModalPrompt.Render("Sign in with your ForgeMind user id."),
		"",
		input,
	}
	if errMsg != "" {
		lines = append(lines, "", theme.ErrorStyle.Render(errMsg))
	}
	lines = append(lines, "", hint(theme, "enter", "sign in", "ctrl+c", "quit"))
	return theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
