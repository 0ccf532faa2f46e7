// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to Markdown or JSON.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/util"
)

// ErrEmptyChat is returned for a chat without messages.
var ErrEmptyChat = errors.New("chat has no messages")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a chat to one file format.
type Exporter interface {
	Export(chat model.Chat) ([]byte, error)
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string
	// IncludeArtifacts appends suppressed scripts after the acknowledgment.
	IncludeArtifacts bool
	// Now stamps the export. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:        ".",
		IncludeArtifacts: true,
		Now:              time.Now,
	}
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// ForFormat returns the exporter for "md"/"markdown" or "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (use md or json)", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes chat through exporter and returns the file path.
// The file name is the sanitized chat name plus a timestamp.
func ExportToFile(chat model.Chat, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	content, err := exporter.Export(chat)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("forgemind_%s_%s%s",
		sanitizeFilename(chat.Name),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	path := filepath.Join(dir, name)
	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names on
// Windows or Unix, and caps the length at 50 runes.
func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 50 {
		runes = runes[:50]
	}

	var b strings.Builder
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
