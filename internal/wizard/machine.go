// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package wizard implements the fixed-step guided dialogs. None of them
// performs real work: the last step of each is a "running" placeholder that
// can only be cancelled.
package wizard

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the state of one wizard. It is a value; every transition
// returns a new Machine.
type Machine struct {
	def    *Definition
	open   bool
	step   int
	fields map[string]string
}

// New returns a closed machine for k.
func New(k Kind) Machine {
	return Machine{def: DefinitionFor(k), step: 1}
}

// Kind returns which wizard this is.
func (m Machine) Kind() Kind { return m.def.Kind }

// Definition returns the wizard definition.
func (m Machine) Definition() *Definition { return m.def }

// IsOpen reports whether the wizard is showing.
func (m Machine) IsOpen() bool { return m.open }

// Step returns the 1-based current step. A closed wizard reports 1.
func (m Machine) Step() int {
	if m.step < 1 {
		return 1
	}
	return m.step
}

// Steps returns the number of steps.
func (m Machine) Steps() int { return len(m.def.Steps) }

// Current returns the current step definition.
func (m Machine) Current() Step {
	return m.def.Steps[m.Step()-1]
}

// Terminal reports whether the wizard is open on its last step.
func (m Machine) Terminal() bool {
	return m.open && m.Step() == m.Steps()
}

// Open shows the wizard at step 1 with all fields cleared, whatever state
// it was in before.
func (m Machine) Open() Machine {
	return Machine{def: m.def, open: true, step: 1}
}

// Advance moves to the next step. No field is validated. It is a no-op on
// a closed wizard or on the terminal step.
func (m Machine) Advance() Machine {
	if !m.open || m.Terminal() {
		return m
	}
	m.step++
	return m
}

// Cancel closes the wizard, resets it to step 1 and clears its fields.
func (m Machine) Cancel() Machine {
	return New(m.def.Kind)
}

// Field returns a field value.
func (m Machine) Field(name string) string {
	return m.fields[name]
}

// SetField stores a field value. Unknown fields, values outside a choice
// list, and edits to a closed wizard are ignored.
func (m Machine) SetField(name, value string) Machine {
	if !m.open {
		return m
	}
	def, ok := m.def.field(name)
	if !ok {
		return m
	}
	if def.Kind == FieldChoice && !hasChoice(def.Choices, value) {
		return m
	}

	fields := make(map[string]string, len(m.fields)+1)
	for k, v := range m.fields {
		fields[k] = v
	}
	fields[name] = value
	m.fields = fields
	return m
}

// VisibleFields returns the current step's fields whose conditions hold.
func (m Machine) VisibleFields() []FieldDef {
	var out []FieldDef
	for _, f := range m.Current().Fields {
		if f.ShownWhen != nil && m.Field(f.ShownWhen.Field) != f.ShownWhen.Value {
			continue
		}
		out = append(out, f)
	}
	return out
}

func hasChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// =============================================================================
// SET
// =============================================================================

// Set holds the three wizards. Nothing stops more than one from being open.
type Set struct {
	machines [3]Machine
}

// NewSet returns all wizards closed.
func NewSet() Set {
	var s Set
	for _, k := range Kinds {
		s.machines[k] = New(k)
	}
	return s
}

// Get returns the machine for k.
func (s Set) Get(k Kind) Machine {
	return s.machines[k]
}

// With returns a copy of s with k's machine replaced.
func (s Set) With(k Kind, m Machine) Set {
	s.machines[k] = m
	return s
}

// Update applies fn to k's machine.
func (s Set) Update(k Kind, fn func(Machine) Machine) Set {
	return s.With(k, fn(s.Get(k)))
}

// FirstOpen returns the first open wizard in Kinds order.
func (s Set) FirstOpen() (Machine, bool) {
	for _, k := range Kinds {
		if s.machines[k].IsOpen() {
			return s.machines[k], true
		}
	}
	return Machine{}, false
}

// AnyOpen reports whether any wizard is showing.
func (s Set) AnyOpen() bool {
	_, ok := s.FirstOpen()
	return ok
}

// Reset closes every wizard.
func (s Set) Reset() Set {
	return NewSet()
}
