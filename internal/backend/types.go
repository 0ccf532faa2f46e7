// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Text     string `json:"text"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id,omitempty"`
	// Context is informational for the model and is not part of the
	// conversation, so the backend neither stores nor titles from it.
	Context  string `json:"context,omitempty"`
}

// ChatResponse is the body returned by POST /chat. ChatID is only present
// the first time a conversation is persisted.
type ChatResponse struct {
	Response Text   `json:"response"`
	ThreadID string `json:"thread_id,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
}

// ChatSummary is one entry of GET /get_chats.
type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ThreadID  string    `json:"thread_id"`
	UpdatedAt Timestamp `json:"updated_at"`
}

type chatsResponse struct {
	Status Status        `json:"status"`
	Chats  []ChatSummary `json:"chats"`
}

// WireMessage is one entry of GET /get_messages.
type WireMessage struct {
	Role      string    `json:"role"`
	Content   Text      `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
}

type messagesResponse struct {
	Messages []WireMessage `json:"messages"`
}

type deleteRequest struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// DeleteResponse is the body returned by DELETE /delete_chat.
type DeleteResponse struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// PluginStatusResponse is the body returned by GET /check_plugin_login.
type PluginStatusResponse struct {
	Status        Status    `json:"status"`
	PluginLogin   bool      `json:"plugin_login"`
	IsConnected   bool      `json:"is_connected"`
	IsLoggedOut   bool      `json:"is_logged_out"`
	IsActive      bool      `json:"is_active"`
	LastSeen      Timestamp `json:"last_seen_timestamp"`
	StatusMessage string    `json:"status_message,omitempty"`
}

// =============================================================================
// FLEXIBLE FIELD TYPES
// =============================================================================

// Text is message content. The service has sent both a bare string and an
// object of the form {"user_facing_response": "..."}; both decode to the
// same plain string.
type Text string

// String returns the plain text.
func (t Text) String() string {
	return string(t)
}

// UnmarshalJSON accepts a string, null, or an object carrying
// user_facing_response.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			UserFacingResponse *string `json:"user_facing_response"`
			Content            *string `json:"content"`
			Text               *string `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for _, s := range []*string{obj.UserFacingResponse, obj.Content, obj.Text} {
			if s != nil {
				*t = Text(*s)
				return nil
			}
		}
		*t = ""
		return nil
	}
	return fmt.Errorf("unsupported content shape: %s", truncate(string(data), 40))
}

// Status is the "status" field, which the service sends either as a bool
// or as a word such as "success".
type Status struct {
	OK  bool
	Raw string
}

// UnmarshalJSON accepts true/false or a string.
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = Status{}
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		ok := data[0] == 't'
		*s = Status{OK: ok, Raw: string(data)}
	default:
		var word string
		if err := json.Unmarshal(data, &word); err != nil {
			return fmt.Errorf("unsupported status: %s", truncate(string(data), 40))
		}
		switch strings.ToLower(word) {
		case "success", "ok", "deleted", "true":
			*s = Status{OK: true, Raw: word}
		default:
			*s = Status{Raw: word}
		}
	}
	return nil
}

// MarshalJSON writes the raw value back, preferring a string.
func (s Status) MarshalJSON() ([]byte, error) {
	if s.Raw == "true" || s.Raw == "false" {
		return []byte(s.Raw), nil
	}
	if s.Raw == "" {
		return json.Marshal(s.OK)
	}
	return json.Marshal(s.Raw)
}

// Timestamp is a point in time sent either as an RFC 3339 style string or as
// unix seconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999-07:00",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts null, a string in one of several layouts, or a
// number of seconds since the epoch.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		ts.Time = time.Time{}
		return nil
	}
	if data[0] != '"' {
		secs, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("unsupported timestamp: %s", truncate(string(data), 40))
		}
		ts.Time = time.Unix(0, int64(secs*float64(time.Second))).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp: %q", truncate(s, 40))
}

// MarshalJSON writes RFC 3339, or null for the zero time.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
