// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits raw arguments into flags and positionals.
//
// Supported forms:
//
//	--flag value     long flag with a value
//	--flag=value     long flag with equals sign
//	-f value         short flag with a value
//	--flag           boolean flag
//
// A value that itself starts with "-" must use the equals form.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// boolOnly names flags that never take a value, so "--json chats" does not
// swallow the positional.
var boolOnly = map[string]bool{
	"json":    true,
	"verbose": true,
	"v":       true,
	"help":    true,
	"h":       true,
	"plain":   true,
	"version": true,
}

// NewArgParser parses raw.
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{
		flags:      make(map[string]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0, len(raw)),
		raw:        raw,
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if b, err := strconv.ParseBool(v); err == nil && boolOnly[k] {
				p.boolFlags[k] = b
			} else {
				p.flags[k] = v
			}
			continue
		}

		if !boolOnly[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}
	return p
}

// Subcommand returns the first positional argument.
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns a string flag value, or "" when absent.
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[strings.TrimLeft(n, "-")]; ok {
			return v
		}
	}
	return ""
}

// FlagOrDefault returns the flag value or def.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return def
}

// BoolFlag reports whether any of the named boolean flags is set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, n := range names {
		if p.boolFlags[strings.TrimLeft(n, "-")] {
			return true
		}
	}
	return false
}

// HasFlag reports whether the flag was given in either form.
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, s := p.flags[name]
	_, b := p.boolFlags[name]
	return s || b
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns positionals starting at index.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positionals.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// Raw returns the unparsed arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}
