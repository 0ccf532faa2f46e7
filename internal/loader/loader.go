// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package loader fetches a user's chats and their message logs.
package loader

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/exchange"
	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/session"
)

// DefaultConcurrency bounds parallel message fetches.
const DefaultConcurrency = 4

// UntitledName names chats the server sent without a title.
const UntitledName = "Untitled chat"

// Source is the part of the backend client the loader needs.
type Source interface {
	UserChats(ctx context.Context, userID string) ([]backend.ChatSummary, error)
	ChatMessages(ctx context.Context, chatID string) ([]backend.WireMessage, error)
}

// Loader builds the chat collection for a signed-in user.
type Loader struct {
	source      Source
	concurrency int
	logger      *log.Logger
}

// New creates a loader. A concurrency below 1 uses DefaultConcurrency.
func New(source Source, concurrency int) *Loader {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Loader{source: source, concurrency: concurrency, logger: log.Default()}
}

// WithLogger routes loader logging to l.
func (l *Loader) WithLogger(logger *log.Logger) *Loader {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Load lists the user's chats and fetches every message log in parallel.
//
// Only a failure to list chats fails the load. A chat whose messages cannot
// be fetched is still returned, flagged Error with an empty log; nothing is
// retried. The result is ordered most recently active first.
func (l *Loader) Load(ctx context.Context, id session.Identity) ([]model.Chat, error) {
	if !id.SignedIn() {
		return nil, backend.ErrNoUser
	}

	summaries, err := l.source.UserChats(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	chats := make([]model.Chat, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, sum := range summaries {
		g.Go(func() error {
			chats[i] = l.loadOne(gctx, sum)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, c := range chats {
		if c.Error {
			failed++
		}
	}
	l.logger.Printf("loader: loaded %d chats (%d with errors)", len(chats), failed)

	return model.SortByActivity(chats), nil
}

// loadOne never fails; errors are folded into the chat.
func (l *Loader) loadOne(ctx context.Context, sum backend.ChatSummary) model.Chat {
	name := strings.TrimSpace(sum.Title)
	if name == "" {
		name = UntitledName
	}

	chat := model.NewChat(name).
		WithID(sum.ID).
		WithThread(sum.ThreadID).
		Touched(sum.UpdatedAt.Time)

	wire, err := l.source.ChatMessages(ctx, sum.ID)
	if err != nil {
		l.logger.Printf("loader: messages for chat %s unavailable: %v", sum.ID, err)
		chat.Error = true
		chat.Messages = []model.Message{}
		return chat
	}

	msgs := make([]model.Message, 0, len(wire))
	for _, w := range wire {
		msgs = append(msgs, convert(w))
	}
	chat.Messages = msgs
	return chat
}

// convert maps a wire message onto the model. Stored assistant replies go
// through the same code-reply classifier as live ones.
func convert(w backend.WireMessage) model.Message {
	role := model.ParseRole(w.Role)
	content := w.Content.String()
	msg := model.Message{Role: role, Content: content, CreatedAt: w.CreatedAt.Time}
	if role == model.RoleAssistant {
		if cls := exchange.ClassifyReply(content); cls.IsCode {
			msg.Content = cls.Display
			msg.Artifact = content
		}
	}
	return msg
}
