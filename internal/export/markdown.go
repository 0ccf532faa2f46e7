// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/forgemind/forgemind-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes a chat as Markdown with YAML frontmatter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders chat.
func (e *MarkdownExporter) Export(chat model.Chat) ([]byte, error) {
	if len(chat.Messages) == 0 {
		return nil, ErrEmptyChat
	}

	var sb strings.Builder

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", escapeYAML(chat.Name))
	if chat.ID != "" {
		fmt.Fprintf(&sb, "chat_id: %s\n", escapeYAML(chat.ID))
	}
	if !chat.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "updated: %s\n", chat.UpdatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "messages: %d\n", len(chat.Messages))
	fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
	sb.WriteString("generator: forgemind\n")
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(chat.Name))

	for i, msg := range chat.Messages {
		if msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s\n\n", msg.Role.DisplayName())
		} else {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", msg.Role.DisplayName(), formatTimestamp(msg.CreatedAt))
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.HasArtifact() && e.options.IncludeArtifacts {
			sb.WriteString("<details><summary>Generated script</summary>\n\n")
			sb.WriteString(fence(msg.Artifact))
			sb.WriteString("\n</details>\n\n")
		}

		if i < len(chat.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// fence keeps an already fenced reply as is and wraps anything else.
func fence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "```") {
		return raw + "\n"
	}
	return "```\n" + raw + "\n```\n"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that break headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeYAML quotes values that would otherwise change the frontmatter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
