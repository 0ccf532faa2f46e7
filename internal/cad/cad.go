// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cad holds the user's chosen CAD application.
//
// The choice is informational: it is shown in the header and mentioned in
// outbound prompts, nothing else reads it.
package cad

import (
	"fmt"
	"strings"
)

// Other is the sentinel option that enables free-text entry.
const Other = "Other"

// Option is one selectable CAD application.
type Option struct {
	Name string
	// Plugin is the companion plugin identifier, when one exists.
	Plugin string
}

// Options lists the built-in choices in display order.
var Options = []Option{
	{Name: "CATIA", Plugin: "forge-catia_v1"},
	{Name: "Solidworks"},
	{Name: "NX"},
	{Name: Other},
}

// Lookup finds a built-in option by case-insensitive name.
func Lookup(name string) (Option, bool) {
	for _, o := range Options {
		if strings.EqualFold(o.Name, strings.TrimSpace(name)) {
			return o, true
		}
	}
	return Option{}, false
}

// Selector is the current CAD choice. The zero value is disconnected.
type Selector struct {
	chosen string
	custom string
}

// Select sets the chosen name. Selecting Other clears the free text.
// Names outside Options are accepted as-is.
func (s Selector) Select(name string) Selector {
	name = strings.TrimSpace(name)
	if o, ok := Lookup(name); ok {
		name = o.Name
	}
	s.chosen = name
	if name == Other {
		s.custom = ""
	}
	return s
}

// SetCustomText updates the free text. Ignored unless Other is chosen.
func (s Selector) SetCustomText(text string) Selector {
	if s.chosen == Other {
		s.custom = text
	}
	return s
}

// Disconnect clears both the choice and the free text.
func (s Selector) Disconnect() Selector {
	return Selector{}
}

// Chosen returns the selected option name.
func (s Selector) Chosen() string { return s.chosen }

// CustomText returns the free text.
func (s Selector) CustomText() string { return s.custom }

// AcceptsText reports whether free-text entry is enabled.
func (s Selector) AcceptsText() bool { return s.chosen == Other }

// Connected reports whether any CAD is chosen.
func (s Selector) Connected() bool { return s.chosen != "" }

// Label is the name to display: the free text for Other when present.
func (s Selector) Label() string {
	if s.chosen == Other && strings.TrimSpace(s.custom) != "" {
		return strings.TrimSpace(s.custom)
	}
	return s.chosen
}

// PromptContext is the informational line prefixed to outbound prompts.
// It is empty when no CAD is chosen.
func (s Selector) PromptContext() string {
	if !s.Connected() {
		return ""
	}
	return fmt.Sprintf("You are currently connected to %s.", s.Label())
}
