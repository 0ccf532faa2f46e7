// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/forgemind/forgemind-tui/internal/config"
	"github.com/forgemind/forgemind-tui/internal/devserver"
	"github.com/forgemind/forgemind-tui/internal/loader"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/session"
)

// ErrNotSignedIn is returned by commands that need a user id.
var ErrNotSignedIn = errors.New("not signed in: run 'forgemind login <user-id>' first")

// IdentityFromConfig reads the remembered identity.
func IdentityFromConfig(cfg *config.Config) session.Identity {
	return session.Identity{UserID: strings.TrimSpace(cfg.Auth.UserID), Email: cfg.Auth.Email}
}

// writeJSON prints v indented.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// STATUS
// =============================================================================

// StatusReport is the JSON form of the status command.
type StatusReport struct {
	Backend   string `json:"backend"`
	UserID    string `json:"user_id,omitempty"`
	CAD       string `json:"cad,omitempty"`
	Plugin    string `json:"plugin"`
	LastSeen  string `json:"last_seen,omitempty"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// RunStatus checks the plugin for the remembered user and prints a
// summary.
func RunStatus(ctx context.Context, out io.Writer, b plugin.Fetcher, baseURL string, cfg *config.Config, args Args) error {
	id := IdentityFromConfig(cfg)
	now := time.Now

	report := StatusReport{Backend: baseURL, UserID: id.UserID, Plugin: plugin.Unknown(now()).Label()}
	if cfg.CAD.Default != "" {
		report.CAD = cfg.CAD.Default
	}

	tag := "unknown"
	if id.SignedIn() {
		status, err := plugin.Check(ctx, b, id.UserID, now)
		report.Plugin = status.Label()
		report.Reachable = err == nil
		if err != nil {
			report.Error = err.Error()
		}
		tag = statusTag(status.Level(), err)
		if status.ShowLastSeen() {
			report.LastSeen = status.LastSeenText(now())
		}
	}

	if args.JSON {
		return writeJSON(out, report)
	}

	fmt.Fprintln(out, TitleStyle.Render("ForgeMind status"))
	fmt.Fprintln(out, RenderRow("Backend", report.Backend))
	if !id.SignedIn() {
		fmt.Fprintln(out, RenderRow("User", "not signed in"))
		return nil
	}
	fmt.Fprintln(out, RenderRow("User", id.Display()))
	if report.CAD != "" {
		fmt.Fprintln(out, RenderRow("CAD", report.CAD))
	}

	plug := RenderStatus(tag) + " " + report.Plugin
	if report.LastSeen != "" {
		plug += " (last seen " + report.LastSeen + ")"
	}
	fmt.Fprintln(out, RenderRow("Plugin", plug))
	if report.Error != "" {
		fmt.Fprintln(out, RenderRow("Error", ErrorStyle.Render(report.Error)))
	}
	return nil
}

func statusTag(l plugin.Level, err error) string {
	switch {
	case err != nil:
		return "error"
	case l == plugin.LevelConnected:
		return "ok"
	case l == plugin.LevelOffline:
		return "offline"
	case l == plugin.LevelInactive:
		return "warning"
	default:
		return "unknown"
	}
}

// =============================================================================
// CHATS
// =============================================================================

// ChatRow is the JSON form of one listed chat.
type ChatRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Messages  int       `json:"messages"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Error     bool      `json:"error,omitempty"`
}

// RunChats lists the remembered user's chats, most recent first.
func RunChats(ctx context.Context, out io.Writer, src loader.Source, cfg *config.Config, args Args) error {
	id := IdentityFromConfig(cfg)
	if !id.SignedIn() {
		return ErrNotSignedIn
	}

	chats, err := loader.New(src, cfg.Backend.LoadConcurrency).
		WithLogger(log.New(io.Discard, "", 0)).
		Load(ctx, id)
	if err != nil {
		return err
	}

	rows := make([]ChatRow, 0, len(chats))
	for _, c := range chats {
		rows = append(rows, ChatRow{
			ID:        c.ID,
			Name:      c.Name,
			Messages:  len(c.Messages),
			UpdatedAt: c.UpdatedAt,
			Error:     c.Error,
		})
	}

	if args.JSON {
		return writeJSON(out, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No chats yet"))
		return nil
	}
	for i, r := range rows {
		when := "-"
		if !r.UpdatedAt.IsZero() {
			when = r.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		name := r.Name
		if r.Error {
			name = ErrorStyle.Render("! ") + name
		}
		fmt.Fprintf(out, "%3d. %s  %s  %s\n", i+1, DimStyle.Render(when), name, DimStyle.Render(fmt.Sprintf("(%d messages)", r.Messages)))
	}
	return nil
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// RunLogin remembers a user id through save.
func RunLogin(out io.Writer, cfg *config.Config, args Args, save func(*config.Config) error) error {
	if args.UserID == "" {
		return errors.New("usage: forgemind login <user-id> [--email <addr>]")
	}
	cfg.Auth.UserID = args.UserID
	cfg.Auth.Email = args.Email
	if err := save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "%s Signed in as %s\n", RenderStatus("ok"), IdentityFromConfig(cfg).Display())
	return nil
}

// RunLogout forgets the user id.
func RunLogout(out io.Writer, cfg *config.Config, save func(*config.Config) error) error {
	cfg.Auth = config.AuthConfig{}
	if err := save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "%s Signed out\n", RenderStatus("ok"))
	return nil
}

// =============================================================================
// DEV SERVER
// =============================================================================

// RunServeDev serves the development backend until ctx is cancelled.
func RunServeDev(ctx context.Context, out io.Writer, cfg *config.Config, args Args, logger *log.Logger) error {
	addr := args.Addr
	if addr == "" {
		addr = cfg.DevServer.Addr
	}
	dbPath := args.DBPath
	if dbPath == "" {
		p, err := cfg.DevDBPath()
		if err != nil {
			return err
		}
		dbPath = p
	}

	store, err := devserver.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := devserver.New(addr, store).WithLogger(logger)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-srv.Ready():
		fmt.Fprintf(out, "%s Dev backend on http://%s (db %s)\n", RenderStatus("ok"), srv.Addr(), dbPath)
	case err := <-errc:
		return err
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
