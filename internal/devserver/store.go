// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("not found")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	thread_id  TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, id);

CREATE TABLE IF NOT EXISTS plugin_status (
	user_id       TEXT PRIMARY KEY,
	is_connected  INTEGER NOT NULL DEFAULT 0,
	is_logged_out INTEGER NOT NULL DEFAULT 0,
	is_active     INTEGER NOT NULL DEFAULT 0,
	last_seen     INTEGER NOT NULL DEFAULT 0
);
`

// =============================================================================
// RECORDS
// =============================================================================

// ChatRecord is one stored chat.
type ChatRecord struct {
	ID        string
	UserID    string
	Title     string
	ThreadID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecord is one stored message.
type MessageRecord struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// PluginRecord is the stored plugin state of a user.
type PluginRecord struct {
	UserID      string
	IsConnected bool
	IsLoggedOut bool
	IsActive    bool
	LastSeen    time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store persists dev server state in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (creating if needed) the database at path. ":memory:"
// gives a throwaway database.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateChat stores a new chat with fresh chat and thread ids.
func (s *Store) CreateChat(ctx context.Context, userID, title string) (ChatRecord, error) {
	now := s.now().UTC()
	c := ChatRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		ThreadID:  "thread_" + uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, user_id, title, thread_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.ThreadID, c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano())
	if err != nil {
		return ChatRecord{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return c, nil
}

// ChatByThread finds a user's chat by thread id.
func (s *Store) ChatByThread(ctx context.Context, userID, threadID string) (ChatRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, thread_id, created_at, updated_at FROM chats WHERE user_id = ? AND thread_id = ?`,
		userID, threadID)
	return scanChat(row)
}

// ChatByID finds a chat by id.
func (s *Store) ChatByID(ctx context.Context, chatID string) (ChatRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, thread_id, created_at, updated_at FROM chats WHERE id = ?`, chatID)
	return scanChat(row)
}

func scanChat(row *sql.Row) (ChatRecord, error) {
	var c ChatRecord
	var created, updated int64
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.ThreadID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatRecord{}, ErrNotFound
	}
	if err != nil {
		return ChatRecord{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return c, nil
}

// Chats lists a user's chats, most recently updated first.
func (s *Store) Chats(ctx context.Context, userID string) ([]ChatRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, thread_id, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	out := []ChatRecord{}
	for rows.Next() {
		var c ChatRecord
		var created, updated int64
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.ThreadID, &created, &updated); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		c.CreatedAt = time.Unix(0, created).UTC()
		c.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessages adds messages to a chat and bumps its updated_at, in one
// transaction.
func (s *Store) AppendMessages(ctx context.Context, chatID string, msgs ...MessageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	for _, m := range msgs {
		at := m.CreatedAt
		if at.IsZero() {
			at = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			chatID, m.Role, m.Content, at.UnixNano()); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, now.UnixNano(), chatID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return tx.Commit()
}

// Messages returns a chat's log in insertion order.
func (s *Store) Messages(ctx context.Context, chatID string) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	out := []MessageRecord{}
	for rows.Next() {
		var m MessageRecord
		var at int64
		if err := rows.Scan(&m.Role, &m.Content, &at); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		m.CreatedAt = time.Unix(0, at).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteChat removes a user's chat and its messages.
func (s *Store) DeleteChat(ctx context.Context, chatID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PluginStatus returns the plugin record of a user. Users never seen get a
// zero record.
func (s *Store) PluginStatus(ctx context.Context, userID string) (PluginRecord, error) {
	p := PluginRecord{UserID: userID}
	var seen int64
	err := s.db.QueryRowContext(ctx,
		`SELECT is_connected, is_logged_out, is_active, last_seen FROM plugin_status WHERE user_id = ?`, userID).
		Scan(&p.IsConnected, &p.IsLoggedOut, &p.IsActive, &seen)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return PluginRecord{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if seen > 0 {
		p.LastSeen = time.Unix(seen, 0).UTC()
	}
	return p, nil
}

// SetPluginStatus upserts a plugin record. A connected or active plugin
// counts as seen now.
func (s *Store) SetPluginStatus(ctx context.Context, p PluginRecord) (PluginRecord, error) {
	if p.IsConnected || p.IsActive {
		p.LastSeen = s.now().UTC().Truncate(time.Second)
	} else if prev, err := s.PluginStatus(ctx, p.UserID); err == nil {
		p.LastSeen = prev.LastSeen
	}

	var seen int64
	if !p.LastSeen.IsZero() {
		seen = p.LastSeen.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plugin_status (user_id, is_connected, is_logged_out, is_active, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			is_connected = excluded.is_connected,
			is_logged_out = excluded.is_logged_out,
			is_active = excluded.is_active,
			last_seen = excluded.last_seen`,
		p.UserID, p.IsConnected, p.IsLoggedOut, p.IsActive, seen)
	if err != nil {
		return PluginRecord{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return p, nil
}
