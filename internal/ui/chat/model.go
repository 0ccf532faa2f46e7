// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/cad"
	"github.com/forgemind/forgemind-tui/internal/config"
	"github.com/forgemind/forgemind-tui/internal/exchange"
	"github.com/forgemind/forgemind-tui/internal/loader"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/session"
	"github.com/forgemind/forgemind-tui/internal/ui/components"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
	"github.com/forgemind/forgemind-tui/internal/wizard"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is the part of the backend client the TUI calls.
type Backend interface {
	exchange.Backend
	loader.Source
	DeleteChat(ctx context.Context, chatID, userID string) (*backend.DeleteResponse, error)
}

// Poller is the plugin status poller as the TUI drives it.
type Poller interface {
	Start(ctx context.Context, userID string)
	Stop()
	Refresh() bool
}

// Deps are the collaborators handed to New.
type Deps struct {
	Backend  Backend
	Config   *config.Config
	Identity session.Identity
	Poller   Poller

	// Clipboard writes text to the system clipboard. Defaults to
	// atotto/clipboard.
	Clipboard func(string) error
	// ExportDir receives ctrl+s transcripts. Defaults to the working
	// directory.
	ExportDir string
	// SaveIdentity persists a sign-in or sign-out. Optional.
	SaveIdentity func(session.Identity) error
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *log.Logger
	// Context bounds every request; defaults to context.Background.
	Context context.Context
}

// =============================================================================
// STATE
// =============================================================================

// Screen is the top-level view.
type Screen int

const (
	ScreenSignIn Screen = iota
	ScreenChat
)

// Focus is the pane that receives keys on the chat screen.
type Focus int

const (
	FocusInput Focus = iota
	FocusSidebar
)

// pendingDelete is an open delete confirmation.
type pendingDelete struct {
	localID        string
	name           string
	confirmFocused bool
}

// cadPicker is the open Connect to CAD dialog.
type cadPicker struct {
	cursor  int
	editing bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model.
type Model struct {
	deps   Deps
	ctx    context.Context
	sender *exchange.Sender
	loader *loader.Loader
	logger *log.Logger
	now    func() time.Time

	theme    *styles.Theme
	keys     KeyMap
	markdown *components.Markdown

	width  int
	height int

	// Session
	screen       Screen
	identity     session.Identity
	store        session.Store
	xstate       exchange.State
	wizards      wizard.Set
	cad          cad.Selector
	pluginStatus plugin.Status
	loadingChats bool

	// Loading animation
	dots    int
	ticking bool

	// Widgets
	focus     Focus
	input     textinput.Model
	signIn    textinput.Model
	wizInput  textinput.Model
	cadInput  textinput.Model
	viewport  viewport.Model
	wizFocus  int
	signInErr string
	statusMsg string

	// Overlays
	confirm  *pendingDelete
	picker   *cadPicker
	artifact string
}

// New creates the root model. With a signed-in identity the chat screen is
// shown right away; otherwise the sign-in screen asks for a user id.
func New(theme *styles.Theme, deps Deps) Model {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	cfg := deps.Config

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Start designing with ForgeMind..."
	input.CharLimit = 8192
	input.Focus()

	signIn := textinput.New()
	signIn.Prompt = "user id: "
	signIn.CharLimit = 256

	wizInput := textinput.New()
	wizInput.Prompt = ""
	wizInput.CharLimit = 2048

	cadInput := textinput.New()
	cadInput.Prompt = ""
	cadInput.Placeholder = "Name your CAD software"
	cadInput.CharLimit = 128

	m := Model{
		deps: deps,
		ctx:  deps.Context,
		sender: &exchange.Sender{
			Backend:       deps.Backend,
			RequirePlugin: cfg.Plugin.RequireOnline,
			Timeout:       cfg.Backend.Timeout(),
			Logger:        deps.Logger,
		},
		loader:       loader.New(deps.Backend, cfg.Backend.LoadConcurrency).WithLogger(deps.Logger),
		logger:       deps.Logger,
		now:          deps.Now,
		theme:        theme,
		keys:         DefaultKeyMap(),
		width:        80,
		height:       24,
		store:        session.NewStore(),
		wizards:      wizard.NewSet(),
		cad:          initialCAD(cfg.CAD),
		pluginStatus: plugin.Unknown(deps.Now()),
		input:        input,
		signIn:       signIn,
		wizInput:     wizInput,
		cadInput:     cadInput,
		viewport:     viewport.New(80, 20),
	}
	if cfg.UI.Markdown {
		m.markdown = components.NewMarkdown(theme.GlamourStyle())
	}

	if deps.Identity.SignedIn() {
		m.identity = deps.Identity
		m.screen = ScreenChat
		m.loadingChats = true
	} else {
		m.screen = ScreenSignIn
		m.input.Blur()
		m.signIn.Focus()
	}
	m.resize()
	return m
}

func initialCAD(c config.CADConfig) cad.Selector {
	if c.Default == "" {
		return cad.Selector{}
	}
	return cad.Selector{}.Select(c.Default).SetCustomText(c.Custom)
}

// Init starts the session of an already signed-in user.
func (m Model) Init() tea.Cmd {
	if m.screen == ScreenChat {
		return tea.Batch(textinput.Blink, m.beginSession())
	}
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ChatsLoadedMsg:
		return m.handleChatsLoaded(msg)

	case ExchangeResultMsg:
		return m.handleExchangeResult(msg)

	case DeleteResultMsg:
		return m.handleDeleteResult(msg)

	case PluginUpdateMsg:
		return m.handlePluginUpdate(msg)

	case components.LoadingTickMsg:
		if !m.xstate.Sending {
			m.ticking = false
			m.dots = 0
			return m, nil
		}
		m.dots = components.NextDots(m.dots)
		m.refreshTranscript()
		return m, components.LoadingTick()

	case ClipboardResultMsg:
		if msg.Err != nil {
			m.logger.Printf("ui: copy failed: %v", msg.Err)
			m.statusMsg = "Clipboard unavailable"
		} else {
			m.statusMsg = "Copied " + msg.What
		}
		return m, nil

	case ExportResultMsg:
		if msg.Err != nil {
			m.logger.Printf("ui: export failed: %v", msg.Err)
			m.statusMsg = "Export failed"
		} else {
			m.statusMsg = "Saved " + msg.Path
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case IdentitySavedMsg:
		if msg.Err != nil {
			m.logger.Printf("ui: could not save identity: %v", msg.Err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch {
	case m.screen == ScreenSignIn:
		m.signIn, cmd = m.signIn.Update(msg)
	case m.focus == FocusInput && !m.overlayOpen():
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Store returns the current session snapshot.
func (m Model) Store() session.Store { return m.store }

// Exchange returns the in-flight exchange state.
func (m Model) Exchange() exchange.State { return m.xstate }

// Wizards returns the wizard set.
func (m Model) Wizards() wizard.Set { return m.wizards }

// CAD returns the CAD selector.
func (m Model) CAD() cad.Selector { return m.cad }

// PluginStatus returns the last delivered plugin status.
func (m Model) PluginStatus() plugin.Status { return m.pluginStatus }

// Identity returns the signed-in user.
func (m Model) Identity() session.Identity { return m.identity }

// Screen returns the visible screen.
func (m Model) Screen() Screen { return m.screen }

// StatusMessage returns the transient status line text.
func (m Model) StatusMessage() string { return m.statusMsg }

func (m Model) overlayOpen() bool {
	return m.confirm != nil || m.picker != nil || m.artifact != "" || m.wizards.AnyOpen()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleChatsLoaded(msg ChatsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.UserID != m.identity.UserID {
		return m, nil
	}
	m.loadingChats = false
	if msg.Err != nil {
		m.logger.Printf("ui: loading chats failed: %v", msg.Err)
		m.statusMsg = "Could not load chats"
		return m, nil
	}

	// A turn started while loading keeps its chat.
	pending, hasPending := m.store.Chat(m.xstate.ChatLocalID)
	m.store = m.store.ReplaceChats(msg.Chats)
	if m.xstate.Sending && hasPending {
		m.store = m.store.AddChat(pending)
	}
	m.refreshTranscript()
	return m, nil
}

func (m Model) handleExchangeResult(msg ExchangeResultMsg) (tea.Model, tea.Cmd) {
	if msg.UserID != m.identity.UserID || msg.Result.ChatLocalID != m.xstate.ChatLocalID {
		return m, nil
	}
	res := msg.Result
	if res.Err != nil {
		m.logger.Printf("ui: turn failed: %v", res.Err)
	}
	m.store, m.xstate = exchange.Complete(m.store, m.xstate, res, m.now())
	m.refreshTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleDeleteResult(msg DeleteResultMsg) (tea.Model, tea.Cmd) {
	if msg.UserID != m.identity.UserID {
		return m, nil
	}
	if msg.Err != nil {
		m.logger.Printf("ui: delete of %q failed: %v", msg.Name, msg.Err)
		m.statusMsg = "Could not delete " + msg.Name
		return m, nil
	}
	m.store = m.store.HideChat(msg.LocalID)
	m.statusMsg = "Deleted " + msg.Name
	m.refreshTranscript()
	return m, nil
}

func (m Model) handlePluginUpdate(msg PluginUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.UserID != m.identity.UserID {
		return m, nil
	}
	m.pluginStatus = msg.Status
	if msg.Manual {
		m.statusMsg = msg.Status.Label()
	}
	return m, nil
}

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}
	m.theme = styles.NewTheme(cfg.UI.Theme)
	switch {
	case !cfg.UI.Markdown:
		m.markdown = nil
	case m.markdown == nil:
		m.markdown = components.NewMarkdown(m.theme.GlamourStyle())
	default:
		m.markdown.SetStyle(m.theme.GlamourStyle())
	}
	m.sender.RequirePlugin = cfg.Plugin.RequireOnline
	m.statusMsg = "Settings reloaded"
	m.resize()
	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 1
	inputHeight  = 2 // border + input line
	statusHeight = 1
)

func (m Model) sidebarWidth() int {
	w := m.deps.Config.UI.SidebarWidth
	if w > m.width/2 {
		w = m.width / 2
	}
	return w
}

func (m *Model) resize() {
	m.viewport.Width = m.width - m.sidebarWidth() - 1
	if m.viewport.Width < 10 {
		m.viewport.Width = 10
	}
	m.viewport.Height = m.height - headerHeight - inputHeight - statusHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.input.Width = m.viewport.Width - 4
	m.refreshTranscript()
}

// refreshTranscript re-renders the active chat into the viewport.
func (m *Model) refreshTranscript() {
	chat, ok := m.store.Active()
	if !ok || (len(chat.Messages) == 0 && !m.waitingOn(chat.LocalID)) {
		m.viewport.SetContent("")
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(components.RenderTranscript(m.theme, components.TranscriptProps{
		Width:    m.viewport.Width - 2,
		Messages: chat.Messages,
		Loading:  m.waitingOn(chat.LocalID),
		Dots:     m.dots,
		Markdown: m.markdown,
	}))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// waitingOn reports whether the reply for localID is pending.
func (m Model) waitingOn(localID string) bool {
	return m.xstate.Sending && m.xstate.ChatLocalID == localID
}
