// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is one conversation.
//
// LocalID is assigned on creation and never changes; it is the identity used
// for selection and deletion. ID is the durable id minted by the backend and
// stays empty until the first successful exchange.
type Chat struct {
	LocalID   string    `json:"local_id"`
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Messages  []Message `json:"messages"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Visible   bool      `json:"visible"`
	Error     bool      `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewChat creates an empty, visible, not yet persisted chat.
func NewChat(name string) Chat {
	return Chat{
		LocalID:  uuid.NewString(),
		Name:     name,
		Messages: []Message{},
		Visible:  true,
	}
}

// Persisted reports whether the backend has issued a durable id.
func (c Chat) Persisted() bool {
	return c.ID != ""
}

// WithMessage returns a copy of c with m appended. The receiver's backing
// array is never written to.
func (c Chat) WithMessage(m Message) Chat {
	msgs := make([]Message, len(c.Messages), len(c.Messages)+1)
	copy(msgs, c.Messages)
	c.Messages = append(msgs, m)
	return c
}

// WithThread returns a copy of c carrying the thread handle. An existing
// handle is kept.
func (c Chat) WithThread(threadID string) Chat {
	if c.ThreadID == "" {
		c.ThreadID = threadID
	}
	return c
}

// WithID returns a copy of c carrying the durable id. An existing id is kept.
func (c Chat) WithID(id string) Chat {
	if c.ID == "" {
		c.ID = id
	}
	return c
}

// Hidden returns a soft-deleted copy of c.
func (c Chat) Hidden() Chat {
	c.Visible = false
	return c
}

// Touched returns a copy of c with UpdatedAt set to at.
func (c Chat) Touched(at time.Time) Chat {
	c.UpdatedAt = at
	return c
}

// LastUserMessage returns the most recent user message.
func (c Chat) LastUserMessage() (Message, bool) {
	return c.last(func(m Message) bool { return m.Role == RoleUser })
}

// LastAssistantMessage returns the most recent assistant message.
func (c Chat) LastAssistantMessage() (Message, bool) {
	return c.last(func(m Message) bool { return m.Role == RoleAssistant })
}

// LastArtifact returns the most recent suppressed reply.
func (c Chat) LastArtifact() (string, bool) {
	m, ok := c.last(Message.HasArtifact)
	return m.Artifact, ok
}

func (c Chat) last(match func(Message) bool) (Message, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if match(c.Messages[i]) {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// =============================================================================
// COLLECTION HELPERS
// =============================================================================

// VisibleChats returns the chats that have not been soft-deleted, in order.
func VisibleChats(chats []Chat) []Chat {
	out := make([]Chat, 0, len(chats))
	for _, c := range chats {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// SortByActivity returns a new slice ordered most recently active first.
// Chats without a timestamp keep their relative order after the rest.
func SortByActivity(chats []Chat) []Chat {
	out := make([]Chat, len(chats))
	copy(out, chats)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].UpdatedAt, out[j].UpdatedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
	return out
}

// IndexOf returns the index of the chat with the given local id, or -1.
func IndexOf(chats []Chat, localID string) int {
	for i, c := range chats {
		if c.LocalID == localID {
			return i
		}
	}
	return -1
}
