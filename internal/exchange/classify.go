// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"regexp"
	"strings"
)

// CodeAcknowledgment replaces replies that look like generated code. The
// code itself is delivered to the CAD plugin, not the transcript.
const CodeAcknowledgment = "Done, do you need anything else?"

// minCodeLength is the shortest reply the pattern triggers consider.
const minCodeLength = 10

// Trigger is one rule of the code-reply classifier.
type Trigger struct {
	Name  string
	Match func(reply string) bool
}

func contains(token string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, token) }
}

func matches(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return func(s string) bool { return len(s) >= minCodeLength && re.MatchString(s) }
}

var indentedCodeLine = regexp.MustCompile(
	`^\s+(?:(?:if|for|while|def|class|return|import|from|try|except)\b|[A-Za-z0-9_]+\s*=|#)`)

// indentedCode fires on three or more indented Python-looking lines.
func indentedCode(s string) bool {
	if len(s) < minCodeLength {
		return false
	}
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if indentedCodeLine.MatchString(line) {
			n++
			if n >= 3 {
				return true
			}
		}
	}
	return false
}

// Triggers is the ordered rule table. The plain substring tokens match
// anywhere, including inside longer words.
var Triggers = []Trigger{
	{"token:function", contains("function")},
	{"token:import", contains("import")},
	{"token:const", contains("const ")},
	{"token:let", contains("let ")},
	{"token:var", contains("var ")},
	{"token:def", contains("def ")},
	{"fence:python", contains("```python")},
	{"fence:import", matches("```\\s*\\n[\\s\\S]*?import\\s+")},
	{"fence:def", matches("```\\s*\\n[\\s\\S]*?def\\s+")},
	{"signature:def", matches(`def\s+\w+\s*\([^)]*\)\s*:`)},
	{"signature:class", matches(`class\s+\w+\s*\([^)]*\)\s*:`)},
	{"import:adsk", matches(`import\s+adsk|from\s+adsk\s+import`)},
	{"import:math", matches(`import\s+math`)},
	{"import:multi", matches(`import\s+[a-zA-Z0-9_]+\s*,\s*[a-zA-Z0-9_]+`)},
	{"api:fusion", matches(`adsk\.core\.|adsk\.fusion\.`)},
	{"api:call", matches(`\.get\(\)|\.add\(|\.create\(`)},
	{"indent:python", indentedCode},
}

// Classification is the outcome of ClassifyReply.
type Classification struct {
	// IsCode is true when any trigger matched.
	IsCode bool
	// Trigger names the first matching rule.
	Trigger string
	// Display is what the transcript shows.
	Display string
}

// ClassifyReply decides whether a reply is shown verbatim or replaced by
// CodeAcknowledgment. Any matching trigger means replace.
func ClassifyReply(reply string) Classification {
	for _, t := range Triggers {
		if t.Match(reply) {
			return Classification{IsCode: true, Trigger: t.Name, Display: CodeAcknowledgment}
		}
	}
	return Classification{Display: reply}
}
