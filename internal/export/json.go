// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/forgemind/forgemind-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the chat as an indented JSON document.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	Generator string          `json:"generator"`
	Exported  time.Time       `json:"exported"`
	ChatID    string          `json:"chat_id,omitempty"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Name      string          `json:"name"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
	Messages  []model.Message `json:"messages"`
}

// Export encodes chat. Artifacts are dropped unless IncludeArtifacts.
func (e *JSONExporter) Export(chat model.Chat) ([]byte, error) {
	if len(chat.Messages) == 0 {
		return nil, ErrEmptyChat
	}

	msgs := make([]model.Message, len(chat.Messages))
	copy(msgs, chat.Messages)
	if !e.options.IncludeArtifacts {
		for i := range msgs {
			msgs[i].Artifact = ""
		}
	}

	return json.MarshalIndent(jsonDocument{
		Generator: "forgemind",
		Exported:  e.options.now(),
		ChatID:    chat.ID,
		ThreadID:  chat.ThreadID,
		Name:      chat.Name,
		UpdatedAt: chat.UpdatedAt,
		Messages:  msgs,
	}, "", "  ")
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
