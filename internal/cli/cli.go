// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the top-level command to run.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdStatus
	CmdChats
	CmdLogin
	CmdLogout
	CmdServeDev
	CmdVersion
	CmdHelp
)

// String returns the command word.
func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdStatus:
		return "status"
	case CmdChats:
		return "chats"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdServeDev:
		return "serve-dev"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "tui"
	}
}

// Args holds parsed arguments.
type Args struct {
	// Global flags
	Verbose bool
	JSON    bool
	// Plain forces line mode even on a terminal.
	Plain      bool
	BackendURL string
	ConfigPath string

	// Command-specific
	UserID string
	Email  string
	Addr   string
	DBPath string

	// Unknown is set when the command word was not recognized.
	Unknown string

	Raw []string
}

var commandWords = map[string]Command{
	"tui":       CmdTUI,
	"chat":      CmdChat,
	"status":    CmdStatus,
	"s":         CmdStatus,
	"chats":     CmdChats,
	"ls":        CmdChats,
	"login":     CmdLogin,
	"logout":    CmdLogout,
	"serve-dev": CmdServeDev,
	"dev":       CmdServeDev,
	"version":   CmdVersion,
	"help":      CmdHelp,
}

// Parse reads argv (without the program name).
func Parse(argv []string) (Command, Args) {
	p := NewArgParser(argv)
	args := Args{
		Verbose:    p.BoolFlag("verbose", "v"),
		JSON:       p.BoolFlag("json"),
		Plain:      p.BoolFlag("plain"),
		BackendURL: p.Flag("backend", "b"),
		ConfigPath: p.Flag("config", "c"),
		Addr:       p.Flag("addr"),
		DBPath:     p.Flag("db"),
		Email:      p.Flag("email"),
		Raw:        argv,
	}

	if p.BoolFlag("help", "h") {
		return CmdHelp, args
	}
	if p.BoolFlag("version") {
		return CmdVersion, args
	}

	word := strings.ToLower(p.Subcommand())
	if word == "" {
		if args.Plain {
			return CmdChat, args
		}
		return CmdTUI, args
	}

	cmd, ok := commandWords[word]
	if !ok {
		args.Unknown = p.Subcommand()
		return CmdHelp, args
	}
	if cmd == CmdLogin {
		args.UserID = strings.TrimSpace(p.Positional(1))
	}
	return cmd, args
}

// =============================================================================
// HELP AND VERSION
// =============================================================================

const usageText = `forgemind - chat with the ForgeMind CAD assistant from your terminal

Usage:
  forgemind                      Start the TUI (default)
  forgemind chat                 Line-mode chat
  forgemind status, s            Show backend and plugin status
  forgemind chats, ls            List your saved chats
  forgemind login <user-id>      Remember a user id
  forgemind logout               Forget the user id
  forgemind serve-dev            Run a local development backend
  forgemind version              Show version
  forgemind help                 Show this help

Global flags:
  --backend, -b <url>   Backend base URL (overrides config)
  --config, -c <path>   Config file to load
  --plain               Use line mode even on a terminal
  --json                JSON output for status and chats
  --verbose, -v         Log to stderr as well as the log file

Command flags:
  login --email <addr>        Email shown in the header
  serve-dev --addr <host:port> --db <path>

Line-mode commands:
  /new            Start a new chat
  /chats          List chats
  /use <n>        Switch to chat n
  /delete <n>     Delete chat n
  /cad [name]     Show or set the CAD software (/cad off disconnects)
  /status         Check the CAD plugin
  /artifact       Print the last generated script
  /export [json]  Save the chat as Markdown or JSON
  /help           Show these commands
  /quit           Leave

Environment:
  FORGEMIND_BACKEND_URL, FORGEMIND_USER_ID, FORGEMIND_REQUIRE_PLUGIN,
  FORGEMIND_POLL_INTERVAL, FORGEMIND_THEME, NO_COLOR
`

// PrintHelp writes usage, noting an unknown command first.
func PrintHelp(w io.Writer, args Args) {
	if args.Unknown != "" {
		fmt.Fprintf(w, "Unknown command %q\n\n", args.Unknown)
	}
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "forgemind %s\n", Version)
	fmt.Fprintf(w, "  commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
