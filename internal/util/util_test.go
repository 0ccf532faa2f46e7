// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := []byte("[backend]\nurl = \"http://localhost:5000\"\n")

	if err := AtomicWriteFile(path, data, 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", content, data)
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	if err := AtomicWriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	if err := AtomicWriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "second" {
		t.Errorf("content = %q, want %q", content, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"design a bracket for the frame", 10, "design ..."},
		{"abcdef", 3, "abc"},
		{"héllo wörld", 8, "héllo..."},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("Chat 1", 20); got != "Chat 1" {
		t.Errorf("TruncateWidth short = %q", got)
	}
	// Each CJK rune is two columns wide.
	if got := TruncateWidth("设计支架设计支架", 7); got != "设计..." {
		t.Errorf("TruncateWidth CJK = %q, want %q", got, "设计...")
	}
}

func TestPadWidth(t *testing.T) {
	if got := PadWidth("ab", 4); got != "ab  " {
		t.Errorf("PadWidth = %q, want %q", got, "ab  ")
	}
}

func TestFirstWord(t *testing.T) {
	tests := map[string]string{
		"Design a bracket": "design",
		"  hello   world":  "hello",
		"":                 "",
		"\n\t":             "",
	}
	for in, want := range tests {
		if got := FirstWord(in); got != want {
			t.Errorf("FirstWord(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a\n\nb   c "); got != "a b c" {
		t.Errorf("CollapseSpace = %q", got)
	}
}
