// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "ForgeMind"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole maps a wire role onto a Role. Unknown roles are treated as
// assistant output.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleSystem:
		return Role(s)
	default:
		return RoleAssistant
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a chat's log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Artifact holds the raw reply when the displayed Content was replaced
	// by the code-reply acknowledgment. Never rendered in the transcript.
	Artifact string `json:"artifact,omitempty"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string, at time.Time) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: at}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string, at time.Time) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: at}
}

// HasArtifact reports whether the message carries a suppressed reply.
func (m Message) HasArtifact() bool {
	return m.Artifact != ""
}
