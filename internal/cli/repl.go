// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/cad"
	"github.com/forgemind/forgemind-tui/internal/config"
	"github.com/forgemind/forgemind-tui/internal/exchange"
	"github.com/forgemind/forgemind-tui/internal/export"
	"github.com/forgemind/forgemind-tui/internal/loader"
	"github.com/forgemind/forgemind-tui/internal/model"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/session"
	"github.com/forgemind/forgemind-tui/internal/ui/components"
)

// ArtifactHint replaces the TUI hint in line mode.
const ArtifactHint = "(script kept, /artifact to print)"

// ErrQuit ends the loop without an error.
var ErrQuit = errors.New("quit")

// Backend is the part of the backend client line mode calls.
type Backend interface {
	exchange.Backend
	loader.Source
	DeleteChat(ctx context.Context, chatID, userID string) (*backend.DeleteResponse, error)
}

// LineReader reads one line per prompt. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// History wraps liner with a history file in the config directory.
type History struct {
	*liner.State
	path string
}

// OpenHistory starts a liner session and loads saved history.
func OpenHistory() *History {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	h := &History{State: line, path: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(h.path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return h
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (h *History) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			h.WriteHistory(f)
			f.Close()
		}
	}
	return h.State.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPLOptions configures NewREPL.
type REPLOptions struct {
	Backend  Backend
	Config   *config.Config
	Identity session.Identity
	Reader   LineReader
	Out      io.Writer
	Logger   *log.Logger
	Now      func() time.Time
	// SaveIdentity persists a sign-in made at the prompt. Optional.
	SaveIdentity func(session.Identity) error
	// ExportDir receives /export files. Defaults to the working directory.
	ExportDir string
}

// REPL is the line-mode chat. It drives the same store and exchange
// operations as the TUI, one blocking turn at a time.
type REPL struct {
	opts     REPLOptions
	sender   *exchange.Sender
	loader   *loader.Loader
	identity session.Identity
	store    session.Store
	xstate   exchange.State
	cad      cad.Selector
	now      func() time.Time
}

// NewREPL creates a line-mode session.
func NewREPL(opts REPLOptions) *REPL {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cfg := opts.Config
	selector := cad.Selector{}
	if cfg.CAD.Default != "" {
		selector = selector.Select(cfg.CAD.Default).SetCustomText(cfg.CAD.Custom)
	}

	return &REPL{
		opts: opts,
		sender: &exchange.Sender{
			Backend:       opts.Backend,
			RequirePlugin: cfg.Plugin.RequireOnline,
			Timeout:       cfg.Backend.Timeout(),
			Logger:        opts.Logger,
		},
		loader:   loader.New(opts.Backend, cfg.Backend.LoadConcurrency).WithLogger(opts.Logger),
		identity: opts.Identity,
		store:    session.NewStore(),
		cad:      selector,
		now:      now,
	}
}

// Store returns the current chat snapshot.
func (r *REPL) Store() session.Store { return r.store }

// CAD returns the current CAD choice.
func (r *REPL) CAD() cad.Selector { return r.cad }

// Identity returns the signed-in user.
func (r *REPL) Identity() session.Identity { return r.identity }

// Run signs in if needed, loads chats and reads lines until /quit, EOF or
// ctrl+c.
func (r *REPL) Run(ctx context.Context) error {
	if !r.identity.SignedIn() {
		if err := r.signIn(); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
	}

	r.printWelcome()
	if err := r.Load(ctx); err != nil {
		r.errorf("Could not load your chats: %v", err)
	}

	for {
		line, err := r.opts.Reader.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.opts.Out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.opts.Reader.AppendHistory(line)

		if err := r.Handle(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
	}
}

// Load replaces the store with the user's saved chats.
func (r *REPL) Load(ctx context.Context) error {
	chats, err := r.loader.Load(ctx, r.identity)
	if err != nil {
		return err
	}
	r.store = r.store.ReplaceChats(chats)
	if n := len(r.store.Visible()); n > 0 {
		r.noticef("Loaded %d chat(s). /chats lists them, /use <n> opens one.", n)
	}
	return nil
}

// Handle runs one input line: a slash command or a prompt.
func (r *REPL) Handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		r.Send(ctx, line)
		return nil
	}

	fields := strings.Fields(line)
	cmd, rest := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "/quit", "/exit", "/q":
		return ErrQuit
	case "/help", "/?":
		r.printCommands()
	case "/new", "/n":
		r.newChat()
	case "/chats", "/ls":
		r.listChats()
	case "/use":
		r.useChat(rest)
	case "/delete", "/rm":
		r.deleteChat(ctx, rest)
	case "/cad":
		r.setCAD(rest)
	case "/status":
		r.checkPlugin(ctx)
	case "/artifact", "/script":
		r.printArtifact()
	case "/export":
		r.exportChat(rest)
	default:
		r.errorf("Unknown command %s. Type /help for the list.", fields[0])
	}
	return nil
}

// =============================================================================
// SENDING
// =============================================================================

// Send runs one blocking turn and prints the reply.
func (r *REPL) Send(ctx context.Context, text string) {
	store, st, req, ok := exchange.Begin(r.store, r.xstate, exchange.Turn{
		Text:       text,
		Identity:   r.identity,
		CADContext: r.cad.PromptContext(),
		Now:        r.now(),
	})
	if !ok {
		return
	}
	r.store, r.xstate = store, st

	noticeColor.Fprintf(r.opts.Out, "%s...\n", components.LoadingVerb(text))
	res := r.sender.Dispatch(ctx, req)
	r.store, r.xstate = exchange.Complete(r.store, r.xstate, res, r.now())

	chat, ok := r.store.Chat(req.ChatLocalID)
	if !ok {
		return
	}
	if msg, ok := chat.LastAssistantMessage(); ok {
		r.printMessage(msg)
	}
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

func (r *REPL) newChat() {
	next, ok := r.store.CreateChat(r.xstate.Sending)
	if !ok {
		return
	}
	r.store = next
	active, _ := r.store.Active()
	okColor.Fprintf(r.opts.Out, "Started %s\n", active.Name)
}

func (r *REPL) listChats() {
	visible := r.store.Visible()
	if len(visible) == 0 {
		noticeColor.Fprintln(r.opts.Out, "No chats yet")
		return
	}
	active := r.store.ActiveID()
	for i, c := range visible {
		marker := "  "
		if c.LocalID == active {
			marker = "> "
		}
		name := c.Name
		if c.Error {
			name = "! " + name
		}
		fmt.Fprintf(r.opts.Out, "%s%2d. %s\n", marker, i+1, name)
	}
}

// chatAt resolves a 1-based chat number.
func (r *REPL) chatAt(args []string) (model.Chat, bool) {
	if len(args) == 0 {
		r.errorf("Give a chat number. /chats lists them.")
		return model.Chat{}, false
	}
	n, err := strconv.Atoi(args[0])
	visible := r.store.Visible()
	if err != nil || n < 1 || n > len(visible) {
		r.errorf("No chat number %s", args[0])
		return model.Chat{}, false
	}
	return visible[n-1], true
}

func (r *REPL) useChat(args []string) {
	c, ok := r.chatAt(args)
	if !ok {
		return
	}
	r.store, _ = r.store.SelectChat(c.LocalID)
	okColor.Fprintf(r.opts.Out, "Switched to %s\n", c.Name)
	if c.Error {
		r.errorf("Messages for this chat could not be loaded.")
	}
	for _, m := range c.Messages {
		r.printMessage(m)
	}
}

func (r *REPL) deleteChat(ctx context.Context, args []string) {
	c, ok := r.chatAt(args)
	if !ok {
		return
	}

	switch r.store.RequestDelete(c.LocalID) {
	case session.DeleteLocal:
		r.store = r.store.HideChat(c.LocalID)
		okColor.Fprintf(r.opts.Out, "Deleted %s\n", c.Name)
	case session.DeleteNeedsConfirm:
		answer, err := r.opts.Reader.Prompt(fmt.Sprintf("Delete %q and its messages for good? [y/N] ", c.Name))
		if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
			noticeColor.Fprintln(r.opts.Out, "Kept")
			return
		}
		if _, err := r.opts.Backend.DeleteChat(ctx, c.ID, r.identity.UserID); err != nil {
			r.opts.Logger.Printf("cli: delete %s failed: %v", c.ID, err)
			r.errorf("Could not delete %s: %v", c.Name, err)
			return
		}
		r.store = r.store.HideChat(c.LocalID)
		okColor.Fprintf(r.opts.Out, "Deleted %s\n", c.Name)
	}
}

// setCAD handles "/cad", "/cad off", "/cad <name>" and "/cad other <text>".
func (r *REPL) setCAD(args []string) {
	if len(args) == 0 {
		if !r.cad.Connected() {
			noticeColor.Fprintln(r.opts.Out, "No CAD")
		} else {
			fmt.Fprintf(r.opts.Out, "CAD: %s\n", r.cad.Label())
		}
		names := make([]string, 0, len(cad.Options))
		for _, o := range cad.Options {
			names = append(names, o.Name)
		}
		noticeColor.Fprintf(r.opts.Out, "Choices: %s\n", strings.Join(names, ", "))
		return
	}

	if strings.EqualFold(args[0], "off") || strings.EqualFold(args[0], "none") {
		r.cad = r.cad.Disconnect()
		okColor.Fprintln(r.opts.Out, "Disconnected from CAD")
		return
	}

	if o, ok := cad.Lookup(args[0]); ok && o.Name == cad.Other {
		r.cad = r.cad.Select(cad.Other).SetCustomText(strings.Join(args[1:], " "))
	} else {
		r.cad = r.cad.Select(strings.Join(args, " "))
	}
	okColor.Fprintf(r.opts.Out, "Connected to %s\n", r.cad.Label())
}

func (r *REPL) checkPlugin(ctx context.Context) {
	status, err := plugin.Check(ctx, r.opts.Backend, r.identity.UserID, r.now)
	if err != nil {
		r.opts.Logger.Printf("cli: plugin check failed: %v", err)
	}
	line := status.Label()
	if status.ShowLastSeen() {
		line += " (last seen " + status.LastSeenText(r.now()) + ")"
	}
	switch status.Level() {
	case plugin.LevelConnected:
		okColor.Fprintln(r.opts.Out, line)
	case plugin.LevelOffline:
		errorColor.Fprintln(r.opts.Out, line)
	default:
		noticeColor.Fprintln(r.opts.Out, line)
	}
}

func (r *REPL) printArtifact() {
	c, ok := r.store.Active()
	if !ok {
		noticeColor.Fprintln(r.opts.Out, "No generated script in this chat")
		return
	}
	raw, ok := c.LastArtifact()
	if !ok {
		noticeColor.Fprintln(r.opts.Out, "No generated script in this chat")
		return
	}
	code, _ := components.ExtractCode(raw)
	codeColor.Fprintln(r.opts.Out, code)
}

// exportChat writes the active chat as Markdown, or JSON with "/export json".
func (r *REPL) exportChat(args []string) {
	c, ok := r.store.Active()
	if !ok {
		r.errorf("No chat selected")
		return
	}
	format := ""
	if len(args) > 0 {
		format = args[0]
	}

	opts := export.DefaultOptions()
	opts.Now = r.now
	if r.opts.ExportDir != "" {
		opts.OutputDir = r.opts.ExportDir
	}
	exp, err := export.ForFormat(format, opts)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	path, err := export.ExportToFile(c, exp, opts)
	if err != nil {
		r.errorf("Could not export %s: %v", c.Name, err)
		return
	}
	okColor.Fprintf(r.opts.Out, "Saved %s to %s\n", c.Name, path)
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *REPL) prompt() string {
	if c, ok := r.store.Active(); ok {
		return c.Name + " > "
	}
	return "> "
}

func (r *REPL) printMessage(m model.Message) {
	switch m.Role {
	case model.RoleUser:
		youColor.Fprint(r.opts.Out, m.Role.DisplayName()+": ")
	default:
		assistantColor.Fprint(r.opts.Out, m.Role.DisplayName()+": ")
	}
	fmt.Fprintln(r.opts.Out, m.Content)
	if m.HasArtifact() {
		noticeColor.Fprintln(r.opts.Out, ArtifactHint)
	}
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.opts.Out, TitleStyle.Render(components.Brand))
	fmt.Fprintf(r.opts.Out, "Signed in as %s\n", r.identity.Display())
	if r.cad.Connected() {
		fmt.Fprintf(r.opts.Out, "CAD: %s\n", r.cad.Label())
	}
	noticeColor.Fprintln(r.opts.Out, "Type a prompt, or /help for commands.")
}

func (r *REPL) printCommands() {
	cmds := [][2]string{
		{"/new", "Start a new chat"},
		{"/chats", "List chats"},
		{"/use <n>", "Switch to chat n"},
		{"/delete <n>", "Delete chat n"},
		{"/cad [name|off]", "Show or set the CAD software"},
		{"/status", "Check the CAD plugin"},
		{"/artifact", "Print the last generated script"},
		{"/export [md|json]", "Save the chat to a file"},
		{"/quit", "Leave"},
	}
	for _, c := range cmds {
		fmt.Fprintln(r.opts.Out, RenderRow(c[0], c[1]))
	}
}

func (r *REPL) noticef(format string, args ...any) {
	noticeColor.Fprintf(r.opts.Out, format+"\n", args...)
}

func (r *REPL) errorf(format string, args ...any) {
	errorColor.Fprintf(r.opts.Out, format+"\n", args...)
}

// signIn asks for a user id until one is given.
func (r *REPL) signIn() error {
	fmt.Fprintln(r.opts.Out, "Sign in with your ForgeMind user id.")
	for {
		line, err := r.opts.Reader.Prompt("User id: ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return ErrQuit
			}
			return err
		}
		id := session.Identity{UserID: strings.TrimSpace(line)}
		if !id.SignedIn() {
			r.errorf("Enter your user id to continue")
			continue
		}
		r.identity = id
		if r.opts.SaveIdentity != nil {
			if err := r.opts.SaveIdentity(id); err != nil {
				r.opts.Logger.Printf("cli: could not save identity: %v", err)
			}
		}
		return nil
	}
}
