// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/session"
	"github.com/forgemind/forgemind-tui/internal/util"
)

// User-visible failure texts.
const (
	FailureMessage       = "Sorry, something went wrong."
	PluginOfflineMessage = "Your CAD plugin is offline. Open it and sign in, then try again."
)

// autoNameRunes bounds the name of a chat created by sending.
const autoNameRunes = 30

// ErrPluginOffline is the Result error when the plugin check blocks a send.
var ErrPluginOffline = errors.New("cad plugin offline")

// =============================================================================
// STATE
// =============================================================================

// State is the exchange state that lives next to the store.
type State struct {
	// Sending is true while a request is in flight.
	Sending bool
	// Input is the unsent input buffer.
	Input string
	// ChatLocalID names the chat waiting for a reply.
	ChatLocalID string
}

// Turn is one send attempt.
type Turn struct {
	Text       string
	Identity   session.Identity
	CADContext string
	Now        time.Time
}

// Request is what Dispatch sends.
type Request struct {
	ChatLocalID string
	Text        string
	UserID      string
	ThreadID    string
	CADContext  string
}

// Begin starts a turn. It returns ok=false and leaves everything unchanged
// when the text is blank or a send is already in flight. Otherwise the
// user message is appended to the active chat, creating one named after
// the text when none is active.
func Begin(store session.Store, st State, turn Turn) (session.Store, State, Request, bool) {
	text := strings.TrimSpace(norm.NFC.String(turn.Text))
	if text == "" || st.Sending {
		return store, st, Request{}, false
	}
	if turn.Now.IsZero() {
		turn.Now = time.Now()
	}

	chat, ok := store.Active()
	if !ok {
		chat = model.NewChat(chatNameFor(store, text))
		store = store.AddChat(chat)
	}

	chat = chat.WithMessage(model.NewUserMessage(text, turn.Now))
	store = store.UpdateChat(chat)

	st = State{Sending: true, ChatLocalID: chat.LocalID}
	req := Request{
		ChatLocalID: chat.LocalID,
		Text:        text,
		UserID:      turn.Identity.UserID,
		ThreadID:    chat.ThreadID,
		CADContext:  turn.CADContext,
	}
	return store, st, req, true
}

// chatNameFor names a chat after its first prompt. A prompt that looks like
// a numbered default name takes the next free number instead, so it cannot
// duplicate a visible chat's name.
func chatNameFor(store session.Store, text string) string {
	name := util.TruncateRunes(util.CollapseSpace(text), autoNameRunes)
	if session.IsDefaultName(name) {
		return store.NextChatName()
	}
	return name
}

// =============================================================================
// DISPATCH
// =============================================================================

// Backend is the part of the backend client a turn needs.
type Backend interface {
	SendPrompt(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	PluginStatus(ctx context.Context, userID string) (*backend.PluginStatusResponse, error)
}

// Result is the outcome of Dispatch.
type Result struct {
	ChatLocalID string
	Response    *backend.ChatResponse
	Err         error
	Duration    time.Duration
}

// PluginBlocked reports whether the plugin check stopped the send.
func (r Result) PluginBlocked() bool {
	return errors.Is(r.Err, ErrPluginOffline)
}

// Sender performs the network half of a turn.
type Sender struct {
	Backend Backend
	// RequirePlugin enables the plugin-online precondition.
	RequirePlugin bool
	// Timeout bounds the whole dispatch; zero means no extra bound.
	Timeout time.Duration
	Logger  *log.Logger
}

// Dispatch sends req and never panics. When RequirePlugin is set and the
// plugin is not signed in (or its status cannot be fetched), /chat is not
// called and the Result carries ErrPluginOffline.
func (s *Sender) Dispatch(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	res.ChatLocalID = req.ChatLocalID
	defer func() {
		if r := recover(); r != nil {
			res.Response = nil
			res.Err = fmt.Errorf("dispatch panic: %v", r)
		}
		res.Duration = time.Since(start)
		s.logf("exchange: turn for %s finished in %v (err=%v)", req.ChatLocalID, res.Duration.Round(time.Millisecond), res.Err)
	}()

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if s.RequirePlugin {
		status, err := plugin.Check(ctx, s.Backend, req.UserID, time.Now)
		if err != nil {
			s.logf("exchange: plugin check failed: %v", err)
		}
		if !status.Online() {
			res.Err = ErrPluginOffline
			return res
		}
	}

	resp, err := s.Backend.SendPrompt(ctx, backend.ChatRequest{
		Text:     req.Text,
		UserID:   req.UserID,
		ThreadID: req.ThreadID,
		Context:  req.CADContext,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Response = resp
	return res
}

func (s *Sender) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// =============================================================================
// COMPLETE
// =============================================================================

// Complete folds a Result into the store. The in-flight flag is cleared on
// every path. A reply for a chat deleted meanwhile is dropped.
func Complete(store session.Store, st State, res Result, now time.Time) (session.Store, State) {
	st.Sending = false
	st.ChatLocalID = ""
	if now.IsZero() {
		now = time.Now()
	}

	chat, ok := store.Chat(res.ChatLocalID)
	if !ok || !chat.Visible {
		return store, st
	}

	if res.Err != nil || res.Response == nil {
		text := FailureMessage
		if res.PluginBlocked() {
			text = PluginOfflineMessage
		}
		return store.UpdateChat(chat.WithMessage(model.NewAssistantMessage(text, now))), st
	}

	reply := res.Response.Response.String()
	cls := ClassifyReply(reply)
	msg := model.NewAssistantMessage(cls.Display, now)
	if cls.IsCode {
		msg.Artifact = reply
	}

	chat = chat.
		WithThread(res.Response.ThreadID).
		WithID(res.Response.ChatID).
		WithMessage(msg).
		Touched(now)
	return store.UpdateChat(chat).Resort(), st
}
