// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/session"
)

var (
	alice = session.Identity{UserID: "u1", Email: "alice@example.com"}
	t0    = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
)

type fakeBackend struct {
	sends   int32
	checks  int32
	last    backend.ChatRequest
	resp    *backend.ChatResponse
	err     error
	plugin  *backend.PluginStatusResponse
	plugErr error
	panic   bool
}

func (f *fakeBackend) SendPrompt(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	atomic.AddInt32(&f.sends, 1)
	if f.panic {
		panic("boom")
	}
	f.last = req
	return f.resp, f.err
}

func (f *fakeBackend) PluginStatus(ctx context.Context, userID string) (*backend.PluginStatusResponse, error) {
	atomic.AddInt32(&f.checks, 1)
	return f.plugin, f.plugErr
}

func reply(t *testing.T, raw string) *backend.ChatResponse {
	t.Helper()
	var resp backend.ChatResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return &resp
}

func sender(b Backend) *Sender {
	return &Sender{Backend: b, Logger: log.New(io.Discard, "", 0)}
}

// =============================================================================
// BEGIN
// =============================================================================

func TestBegin_RejectsBlank(t *testing.T) {
	store := session.NewStore()
	for _, text := range []string{"", "   ", "\n\t"} {
		next, st, _, ok := Begin(store, State{}, Turn{Text: text, Identity: alice, Now: t0})
		assert.False(t, ok)
		assert.False(t, st.Sending)
		assert.Empty(t, next.Chats())
	}
}

func TestBegin_RejectsWhileSending(t *testing.T) {
	store, st, _, ok := Begin(session.NewStore(), State{}, Turn{Text: "first", Identity: alice, Now: t0})
	require.True(t, ok)

	next, st2, _, ok := Begin(store, st, Turn{Text: "second", Identity: alice, Now: t0})
	assert.False(t, ok)
	assert.Equal(t, st, st2)

	active, _ := next.Active()
	assert.Len(t, active.Messages, 1)
}

func TestBegin_UsesActiveChat(t *testing.T) {
	store, _ := session.NewStore().CreateChat(false)
	active, _ := store.Active()
	active = active.WithThread("th_1")
	store = store.UpdateChat(active)

	store, st, req, ok := Begin(store, State{Input: "draft"}, Turn{Text: "hello", Identity: alice, CADContext: "ctx", Now: t0})
	require.True(t, ok)

	assert.Len(t, store.Visible(), 1)
	assert.Equal(t, "", st.Input)
	assert.Equal(t, active.LocalID, req.ChatLocalID)
	assert.Equal(t, "th_1", req.ThreadID)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "hello", req.Text)
	assert.Equal(t, "ctx", req.CADContext)
}

func TestBegin_NormalizesInput(t *testing.T) {
	decomposed := "cafe\u0301"
	store, _, req, ok := Begin(session.NewStore(), State{}, Turn{Text: decomposed, Identity: alice, Now: t0})
	require.True(t, ok)
	assert.Equal(t, "caf\u00e9", req.Text)

	active, _ := store.Active()
	assert.Equal(t, "caf\u00e9", active.Messages[0].Content)
}

func TestBegin_LongTextNamesChat(t *testing.T) {
	store, _, _, ok := Begin(session.NewStore(), State{}, Turn{
		Text:     "design a   bracket that holds a 40mm shaft with two M6 bolts",
		Identity: alice,
		Now:      t0,
	})
	require.True(t, ok)

	active, _ := store.Active()
	assert.LessOrEqual(t, len([]rune(active.Name)), autoNameRunes+3)
	assert.Contains(t, active.Name, "design a bracket")
}

func TestBegin_DefaultLookingTextTakesNextNumber(t *testing.T) {
	loaded := session.NewStore().ReplaceChats([]model.Chat{model.NewChat("Chat 1").WithID("c1")})

	store, _, _, ok := Begin(loaded, State{}, Turn{Text: "Chat 1", Identity: alice, Now: t0})
	require.True(t, ok)

	active, _ := store.Active()
	assert.Equal(t, "Chat 2", active.Name)
	assert.Equal(t, "Chat 1", active.Messages[0].Content)
	assert.Len(t, store.Visible(), 2)
}

// =============================================================================
// FULL TURN
// =============================================================================

func TestTurn_DesignABracket(t *testing.T) {
	store, st, req, ok := Begin(session.NewStore(), State{}, Turn{Text: "design a bracket", Identity: alice, Now: t0})
	require.True(t, ok)

	active, _ := store.Active()
	assert.Equal(t, "design a bracket", active.Name)
	require.Len(t, active.Messages, 1)
	assert.Equal(t, model.RoleUser, active.Messages[0].Role)
	assert.True(t, st.Sending)
	assert.Equal(t, "", req.ThreadID)

	fb := &fakeBackend{resp: reply(t, `{"response":"Sure, here's a bracket.","chat_id":"abc123","thread_id":"th_1"}`)}
	res := sender(fb).Dispatch(context.Background(), req)
	require.NoError(t, res.Err)
	assert.Equal(t, "", fb.last.ThreadID)
	assert.Equal(t, "u1", fb.last.UserID)

	store, st = Complete(store, st, res, t0.Add(time.Second))
	assert.False(t, st.Sending)

	active, _ = store.Active()
	assert.Equal(t, "abc123", active.ID)
	assert.Equal(t, "th_1", active.ThreadID)
	require.Len(t, active.Messages, 2)
	assert.Equal(t, model.RoleAssistant, active.Messages[1].Role)
	assert.Equal(t, "Sure, here's a bracket.", active.Messages[1].Content)
	assert.Equal(t, session.ChatRoute("abc123"), store.Route())
}

func TestTurn_KeepsExistingIDs(t *testing.T) {
	chat := model.NewChat("Saved").WithID("c1").WithThread("th_1")
	store := session.NewStore().AddChat(chat)

	store, st, req, ok := Begin(store, State{}, Turn{Text: "again", Identity: alice, Now: t0})
	require.True(t, ok)
	assert.Equal(t, "th_1", req.ThreadID)

	res := Result{ChatLocalID: req.ChatLocalID, Response: reply(t, `{"response":"ok","chat_id":"other","thread_id":"th_2"}`)}
	store, _ = Complete(store, st, res, t0)

	active, _ := store.Active()
	assert.Equal(t, "c1", active.ID)
	assert.Equal(t, "th_1", active.ThreadID)
}

func TestTurn_MovesChatToFront(t *testing.T) {
	older := model.NewChat("older").WithID("a").Touched(t0)
	newer := model.NewChat("newer").WithID("b").Touched(t0.Add(time.Hour))
	store := session.NewStore().ReplaceChats([]model.Chat{older, newer})
	store, _ = store.SelectChat(older.LocalID)

	store, st, req, _ := Begin(store, State{}, Turn{Text: "hi", Identity: alice, Now: t0})
	res := Result{ChatLocalID: req.ChatLocalID, Response: reply(t, `{"response":"hello"}`)}
	store, _ = Complete(store, st, res, t0.Add(2*time.Hour))

	assert.Equal(t, older.LocalID, store.Visible()[0].LocalID)
	assert.Equal(t, 0, store.ActiveIndex())
}

func TestTurn_FailureAppendsOneError(t *testing.T) {
	store, st, req, _ := Begin(session.NewStore(), State{}, Turn{Text: "hi", Identity: alice, Now: t0})

	fb := &fakeBackend{err: errors.New("connection refused")}
	res := sender(fb).Dispatch(context.Background(), req)
	store, st = Complete(store, st, res, t0)

	assert.False(t, st.Sending)
	active, _ := store.Active()
	require.Len(t, active.Messages, 2)
	assert.Equal(t, FailureMessage, active.Messages[1].Content)
	assert.Equal(t, "", active.ID)
}

func TestTurn_PanicBecomesFailure(t *testing.T) {
	store, st, req, _ := Begin(session.NewStore(), State{}, Turn{Text: "hi", Identity: alice, Now: t0})

	res := sender(&fakeBackend{panic: true}).Dispatch(context.Background(), req)
	require.Error(t, res.Err)

	store, st = Complete(store, st, res, t0)
	assert.False(t, st.Sending)
	active, _ := store.Active()
	assert.Equal(t, FailureMessage, active.Messages[1].Content)
}

func TestTurn_CodeReplyIsSuppressed(t *testing.T) {
	store, st, req, _ := Begin(session.NewStore(), State{}, Turn{Text: "make a cube", Identity: alice, Now: t0})

	raw := "import adsk.core\ndef run(context):\n    pass"
	res := Result{ChatLocalID: req.ChatLocalID, Response: &backend.ChatResponse{Response: backend.Text(raw)}}
	store, _ = Complete(store, st, res, t0)

	active, _ := store.Active()
	last := active.Messages[1]
	assert.Equal(t, CodeAcknowledgment, last.Content)
	assert.Equal(t, raw, last.Artifact)
}

func TestComplete_DeletedChatIsDropped(t *testing.T) {
	store, st, req, _ := Begin(session.NewStore(), State{}, Turn{Text: "hi", Identity: alice, Now: t0})
	store = store.HideChat(req.ChatLocalID)

	res := Result{ChatLocalID: req.ChatLocalID, Response: reply(t, `{"response":"late"}`)}
	next, st := Complete(store, st, res, t0)

	assert.False(t, st.Sending)
	hidden, _ := next.Chat(req.ChatLocalID)
	assert.Len(t, hidden.Messages, 1)
}

// =============================================================================
// PLUGIN PRECONDITION
// =============================================================================

func TestDispatch_PluginOfflineSkipsChat(t *testing.T) {
	tests := []struct {
		name   string
		status *backend.PluginStatusResponse
		err    error
	}{
		{"logged out", &backend.PluginStatusResponse{IsConnected: true, IsLoggedOut: true}, nil},
		{"not connected", &backend.PluginStatusResponse{}, nil},
		{"status unavailable", nil, errors.New("timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, st, req, _ := Begin(session.NewStore(), State{}, Turn{Text: "hi", Identity: alice, Now: t0})

			fb := &fakeBackend{plugin: tt.status, plugErr: tt.err}
			s := sender(fb)
			s.RequirePlugin = true

			res := s.Dispatch(context.Background(), req)
			assert.True(t, res.PluginBlocked())
			assert.Equal(t, int32(0), atomic.LoadInt32(&fb.sends))

			store, st = Complete(store, st, res, t0)
			assert.False(t, st.Sending)
			active, _ := store.Active()
			require.Len(t, active.Messages, 2)
			assert.Equal(t, "hi", active.Messages[0].Content)
			assert.Equal(t, PluginOfflineMessage, active.Messages[1].Content)
		})
	}
}

func TestDispatch_PluginOnlineSends(t *testing.T) {
	_, _, req, _ := Begin(session.NewStore(), State{}, Turn{Text: "hi", Identity: alice, Now: t0})

	fb := &fakeBackend{
		plugin: &backend.PluginStatusResponse{IsConnected: true},
		resp:   &backend.ChatResponse{Response: "hello"},
	}
	s := sender(fb)
	s.RequirePlugin = true

	res := s.Dispatch(context.Background(), req)
	require.NoError(t, res.Err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fb.checks))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fb.sends))
}

func TestDispatch_PluginCheckOffByDefault(t *testing.T) {
	_, _, req, _ := Begin(session.NewStore(), State{}, Turn{Text: "hi", Identity: alice, Now: t0})

	fb := &fakeBackend{resp: &backend.ChatResponse{Response: "hello"}}
	sender(fb).Dispatch(context.Background(), req)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fb.checks))
}
