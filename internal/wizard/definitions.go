// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wizard

// Kind identifies one of the built-in wizards.
type Kind int

const (
	Optimize Kind = iota
	Refine
	Relations
)

// Kinds lists the wizards in render priority order.
var Kinds = []Kind{Optimize, Refine, Relations}

// String returns the wizard title.
func (k Kind) String() string {
	return DefinitionFor(k).Title
}

// FieldKind is how a field is edited.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldPath
	FieldChoice
)

// Choice is one option of a FieldChoice.
type Choice struct {
	Value string
	Label string
}

// FieldDef describes one per-wizard field.
type FieldDef struct {
	Name        string
	Kind        FieldKind
	Label       string
	Placeholder string
	Choices     []Choice
	// ShownWhen, if set, names another field and the value it must hold for
	// this field to be shown.
	ShownWhen *Condition
}

// Condition is a field-equals-value test.
type Condition struct {
	Field string
	Value string
}

// Step is one page of a wizard.
type Step struct {
	Prompt string
	Fields []FieldDef
	// Action labels the button that advances; empty on the terminal step.
	Action string
}

// Definition is a complete wizard.
type Definition struct {
	Kind  Kind
	Title string
	Steps []Step
}

// Relation choices.
const (
	RelationBody     = "body"
	RelationAssembly = "assembly"
	RelationOther    = "other"
)

var definitions = map[Kind]*Definition{
	Optimize: {
		Kind:  Optimize,
		Title: "Optimize Tolerances",
		Steps: []Step{
			{
				Prompt: "Upload your engineering drawings or connect to CAD for cloud access.",
				Fields: []FieldDef{{Name: "drawing", Kind: FieldPath, Label: "Drawing", Placeholder: "path/to/drawing.pdf"}},
				Action: "Submit",
			},
			{
				Prompt: "Any critical features or tolerances that can't change?",
				Fields: []FieldDef{{Name: "constraints", Kind: FieldText, Label: "Constraints"}},
				Action: "Send",
			},
			{Prompt: "Running analysis..."},
		},
	},
	Refine: {
		Kind:  Refine,
		Title: "Refine Curved Surfaces",
		Steps: []Step{
			{
				Prompt: "Which surfaces do you want to refine? Our software automatically understands your CAD surfaces.",
				Action: "Submit",
			},
			{Prompt: "Refining surfaces..."},
		},
	},
	Relations: {
		Kind:  Relations,
		Title: "View Part Relations",
		Steps: []Step{
			{
				Prompt: "Which parts do you want to see relations for? Choose from your CAD please!",
				Action: "Submit",
			},
			{
				Prompt: "Do you want to see relations in the body, in the assembly, or Other?",
				Fields: []FieldDef{
					{
						Name:  "relation",
						Kind:  FieldChoice,
						Label: "Relations",
						Choices: []Choice{
							{Value: RelationBody, Label: "In the body"},
							{Value: RelationAssembly, Label: "In the assembly"},
							{Value: RelationOther, Label: "Other"},
						},
					},
					{
						Name:        "other",
						Kind:        FieldText,
						Label:       "Other",
						Placeholder: "Please explain...",
						ShownWhen:   &Condition{Field: "relation", Value: RelationOther},
					},
				},
				Action: "Send",
			},
			{Prompt: "Running analysis..."},
		},
	},
}

// DefinitionFor returns the definition of a built-in wizard.
func DefinitionFor(k Kind) *Definition {
	if d, ok := definitions[k]; ok {
		return d
	}
	return definitions[Optimize]
}

// field finds a field definition anywhere in the wizard.
func (d *Definition) field(name string) (FieldDef, bool) {
	for _, s := range d.Steps {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return FieldDef{}, false
}
