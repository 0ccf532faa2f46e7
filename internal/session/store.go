// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/forgemind/forgemind-tui/internal/model"
)

// BaseRoute is the route shown when no persisted chat is active.
const BaseRoute = "/dashboard"

// ChatRoute returns the navigable route of a persisted chat.
func ChatRoute(id string) string {
	return BaseRoute + "/chat/" + id
}

// =============================================================================
// STORE
// =============================================================================

// Store is an immutable snapshot of the user's chats.
type Store struct {
	chats    []model.Chat
	activeID string
	route    string
}

// NewStore returns an empty store in "no chat" mode.
func NewStore() Store {
	return Store{route: BaseRoute}
}

// clone returns a copy with its own chats slice.
func (s Store) clone() Store {
	chats := make([]model.Chat, len(s.chats))
	copy(chats, s.chats)
	s.chats = chats
	return s
}

// Chats returns every chat, hidden ones included, in display order.
func (s Store) Chats() []model.Chat {
	out := make([]model.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// Visible returns the chats shown in the sidebar, in display order.
func (s Store) Visible() []model.Chat {
	return model.VisibleChats(s.chats)
}

// Route returns the route that reflects the current selection.
func (s Store) Route() string {
	if s.route == "" {
		return BaseRoute
	}
	return s.route
}

// Chat looks up a chat by local id.
func (s Store) Chat(localID string) (model.Chat, bool) {
	if i := model.IndexOf(s.chats, localID); i >= 0 {
		return s.chats[i], true
	}
	return model.Chat{}, false
}

// ActiveID returns the local id of the active chat, or "" for none.
func (s Store) ActiveID() string {
	return s.activeID
}

// Active returns the active chat.
func (s Store) Active() (model.Chat, bool) {
	if s.activeID == "" {
		return model.Chat{}, false
	}
	c, ok := s.Chat(s.activeID)
	if !ok || !c.Visible {
		return model.Chat{}, false
	}
	return c, true
}

// ActiveIndex returns the index of the active chat among visible chats, or
// -1 for the "no chat" sentinel.
func (s Store) ActiveIndex() int {
	if s.activeID == "" {
		return -1
	}
	return model.IndexOf(s.Visible(), s.activeID)
}

// NextChatName returns the name CreateChat would assign.
func (s Store) NextChatName() string {
	return NextChatName(s.chats)
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateChat appends a new empty chat named "Chat N" and makes it active.
// It is a no-op while a send is in flight. The route is left alone because
// the new chat has no durable id yet.
func (s Store) CreateChat(sending bool) (Store, bool) {
	if sending {
		return s, false
	}
	return s.AddChat(model.NewChat(s.NextChatName())), true
}

// AddChat appends c and makes it active.
func (s Store) AddChat(c model.Chat) Store {
	s = s.clone()
	s.chats = append(s.chats, c)
	return s.activate(c)
}

// SelectChat makes the chat active. Selecting a persisted chat points the
// route at it; selecting a temporary chat keeps the current route.
func (s Store) SelectChat(localID string) (Store, bool) {
	c, ok := s.Chat(localID)
	if !ok || !c.Visible {
		return s, false
	}
	return s.activate(c), true
}

// ClearSelection switches to "no chat" mode.
func (s Store) ClearSelection() Store {
	s.activeID = ""
	s.route = BaseRoute
	return s
}

func (s Store) activate(c model.Chat) Store {
	s.activeID = c.LocalID
	if c.Persisted() {
		s.route = ChatRoute(c.ID)
	}
	return s
}

// UpdateChat replaces the chat with the same LocalID. Unknown chats are
// ignored.
func (s Store) UpdateChat(c model.Chat) Store {
	i := model.IndexOf(s.chats, c.LocalID)
	if i < 0 {
		return s
	}
	s = s.clone()
	s.chats[i] = c
	if c.LocalID == s.activeID && c.Persisted() {
		s.route = ChatRoute(c.ID)
	}
	return s
}

// Resort orders chats most recently active first. The selection follows
// the chat, not the position.
func (s Store) Resort() Store {
	s.chats = model.SortByActivity(s.chats)
	return s
}

// ReplaceChats installs a freshly loaded collection and clears the
// selection.
func (s Store) ReplaceChats(chats []model.Chat) Store {
	next := NewStore()
	next.chats = model.SortByActivity(chats)
	return next
}

// Reset drops all chat state. Used on sign-out.
func (s Store) Reset() Store {
	return NewStore()
}

// =============================================================================
// DELETION
// =============================================================================

// DeleteDecision tells the caller what a delete request needs.
type DeleteDecision int

const (
	// DeleteIgnored means the chat is unknown or already hidden.
	DeleteIgnored DeleteDecision = iota
	// DeleteLocal means the chat was never persisted; hide it directly.
	DeleteLocal
	// DeleteNeedsConfirm means the user must confirm before the remote
	// delete is issued.
	DeleteNeedsConfirm
)

// String returns the decision name.
func (d DeleteDecision) String() string {
	switch d {
	case DeleteLocal:
		return "local"
	case DeleteNeedsConfirm:
		return "needs-confirm"
	default:
		return "ignored"
	}
}

// RequestDelete classifies a delete request.
func (s Store) RequestDelete(localID string) DeleteDecision {
	c, ok := s.Chat(localID)
	if !ok || !c.Visible {
		return DeleteIgnored
	}
	if c.Persisted() {
		return DeleteNeedsConfirm
	}
	return DeleteLocal
}

// HideChat soft-deletes a chat. If it was active, the selection moves to
// the visible chat that took its place, else the one before it, else a
// fresh "Chat 1".
func (s Store) HideChat(localID string) Store {
	before := s.Visible()
	pos := model.IndexOf(before, localID)
	if pos < 0 {
		return s
	}

	s = s.clone()
	s.chats[model.IndexOf(s.chats, localID)] = before[pos].Hidden()

	if s.activeID != localID {
		return s
	}

	s.route = BaseRoute
	after := s.Visible()
	switch {
	case pos < len(after):
		return s.activate(after[pos])
	case pos-1 >= 0 && pos-1 < len(after):
		return s.activate(after[pos-1])
	default:
		return s.AddChat(model.NewChat(s.NextChatName()))
	}
}
