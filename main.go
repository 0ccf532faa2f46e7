// ForgeMind TUI - chat with the ForgeMind CAD assistant from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/cli"
	"github.com/forgemind/forgemind-tui/internal/config"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/session"
	"github.com/forgemind/forgemind-tui/internal/ui/chat"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Program reference for goroutines that report into the TUI.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func send(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	switch cmd {
	case cli.CmdHelp:
		cli.PrintHelp(os.Stdout, args)
		if args.Unknown != "" {
			os.Exit(2)
		}
		return
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return
	}

	cfg, cfgPath := loadConfig(args)
	closeLog := setupLogging(cfg, args, cmd)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.Backend.URL).
		WithTimeout(cfg.Backend.Timeout()).
		WithLogger(log.Default())
	save := saver(cfgPath)

	var err error
	switch cmd {
	case cli.CmdTUI:
		if cli.Interactive() {
			err = runTUI(ctx, cfg, cfgPath, client, save)
		} else {
			err = runLineMode(ctx, cfg, client, save)
		}
	case cli.CmdChat:
		err = runLineMode(ctx, cfg, client, save)
	case cli.CmdStatus:
		err = cli.RunStatus(ctx, os.Stdout, client, client.BaseURL(), cfg, args)
	case cli.CmdChats:
		err = cli.RunChats(ctx, os.Stdout, client, cfg, args)
	case cli.CmdLogin:
		err = cli.RunLogin(os.Stdout, cfg, args, save)
	case cli.CmdLogout:
		err = cli.RunLogout(os.Stdout, cfg, save)
	case cli.CmdServeDev:
		err = cli.RunServeDev(ctx, os.Stdout, cfg, args, log.Default())
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error: ")+err.Error())
		closeLog()
		os.Exit(1)
	}
}

// =============================================================================
// SETUP
// =============================================================================

// loadConfig reads --config when given, else the default files. The
// returned path is where saves and the watcher go.
func loadConfig(args cli.Args) (*config.Config, string) {
	var (
		cfg  *config.Config
		path = args.ConfigPath
	)
	if path != "" {
		loaded, err := config.LoadFromPath(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			loaded = config.Default()
		}
		cfg = loaded
		config.SetGlobal(cfg)
	} else {
		cfg = config.Global()
		if p, err := config.ConfigPathTOML(); err == nil {
			path = p
		}
	}

	if args.BackendURL != "" {
		cfg.Backend.URL = args.BackendURL
	}
	if args.Verbose {
		cfg.Logging.Verbose = true
	}
	return cfg, path
}

// setupLogging sends the standard logger to the log file. The TUI owns the
// terminal, so stderr only joins in for line-mode commands with --verbose.
func setupLogging(cfg *config.Config, args cli.Args, cmd cli.Command) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var sinks []io.Writer
	if cfg.Logging.Verbose && cmd != cli.CmdTUI {
		sinks = append(sinks, os.Stderr)
	}

	var file *os.File
	if path, err := cfg.LogPath(); err == nil {
		if err := config.EnsureConfigDir(); err == nil {
			file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err == nil {
				sinks = append(sinks, file)
			}
		}
	}

	switch len(sinks) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(sinks[0])
	default:
		log.SetOutput(io.MultiWriter(sinks...))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if file != nil {
				file.Close()
			}
		})
	}
}

// saver persists the config to path, or the default file.
func saver(path string) func(*config.Config) error {
	return func(cfg *config.Config) error {
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
		if path == "" {
			return config.Save(cfg)
		}
		return config.SaveTOML(cfg, path)
	}
}

// identitySaver writes a sign-in or sign-out over the live config, so a
// file edit picked up by the watcher is not reverted.
func identitySaver(save func(*config.Config) error) func(session.Identity) error {
	return func(id session.Identity) error {
		return config.UpdateAuth(config.AuthConfig{UserID: id.UserID, Email: id.Email}, save)
	}
}

// =============================================================================
// RUNNERS
// =============================================================================

func runTUI(ctx context.Context, cfg *config.Config, cfgPath string, client *backend.Client, save func(*config.Config) error) error {
	poller := plugin.NewPoller(client, cfg.Plugin.PollInterval(), func(u plugin.Update) {
		send(chat.PluginUpdateMsg{Update: u})
	}).
		WithRefreshInterval(cfg.Plugin.RefreshMinInterval()).
		WithLogger(log.Default())
	defer poller.Close()

	if cfgPath != "" {
		if w, err := config.NewWatcher(cfgPath, func(next *config.Config, err error) {
			if err != nil {
				return
			}
			config.SetGlobal(next)
			send(chat.ConfigReloadedMsg{Config: next})
		}); err == nil {
			if err := w.Start(); err != nil {
				log.Printf("config: not watching %s: %v", cfgPath, err)
			}
			defer w.Close()
		}
	}

	m := chat.New(styles.NewTheme(cfg.UI.Theme), chat.Deps{
		Backend:  client,
		Config:   cfg,
		Identity: cli.IdentityFromConfig(cfg),
		Poller:   poller,
		SaveIdentity: identitySaver(save),
		Logger:  log.Default(),
		Context: ctx,
	})

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)

	programMu.Lock()
	programRef = p
	programMu.Unlock()
	defer func() {
		programMu.Lock()
		programRef = nil
		programMu.Unlock()
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running forgemind: %w", err)
	}
	return nil
}

func runLineMode(ctx context.Context, cfg *config.Config, client *backend.Client, save func(*config.Config) error) error {
	history := cli.OpenHistory()
	defer history.Close()

	repl := cli.NewREPL(cli.REPLOptions{
		Backend:  client,
		Config:   cfg,
		Identity: cli.IdentityFromConfig(cfg),
		Reader:   history,
		Out:      os.Stdout,
		Logger:   log.Default(),
		SaveIdentity: identitySaver(save),
	})
	return repl.Run(ctx)
}
