// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemind/forgemind-tui/internal/backend"
	"github.com/forgemind/forgemind-tui/internal/config"
	"github.com/forgemind/forgemind-tui/internal/exchange"
	"github.com/forgemind/forgemind-tui/internal/plugin"
	"github.com/forgemind/forgemind-tui/internal/session"
	"github.com/forgemind/forgemind-tui/internal/ui/components"
	"github.com/forgemind/forgemind-tui/internal/ui/styles"
	"github.com/forgemind/forgemind-tui/internal/wizard"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	mu        sync.Mutex
	chats     []backend.ChatSummary
	messages  map[string][]backend.WireMessage
	reply     *backend.ChatResponse
	sendErr   error
	plugin    *backend.PluginStatusResponse
	deleteErr error

	prompts []backend.ChatRequest
	deleted []string
}

func (f *fakeBackend) SendPrompt(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.reply != nil {
		return f.reply, nil
	}
	return &backend.ChatResponse{Response: "ok"}, nil
}

func (f *fakeBackend) PluginStatus(ctx context.Context, userID string) (*backend.PluginStatusResponse, error) {
	if f.plugin == nil {
		return nil, errors.New("unreachable")
	}
	return f.plugin, nil
}

func (f *fakeBackend) UserChats(ctx context.Context, userID string) ([]backend.ChatSummary, error) {
	return f.chats, nil
}

func (f *fakeBackend) ChatMessages(ctx context.Context, chatID string) ([]backend.WireMessage, error) {
	return f.messages[chatID], nil
}

func (f *fakeBackend) DeleteChat(ctx context.Context, chatID, userID string) (*backend.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, chatID)
	return &backend.DeleteResponse{}, nil
}

type fakePoller struct {
	started   []string
	stopped   int
	refreshOK bool
	refreshes int
}

func (p *fakePoller) Start(ctx context.Context, userID string) { p.started = append(p.started, userID) }
func (p *fakePoller) Stop()                                    { p.stopped++ }
func (p *fakePoller) Refresh() bool {
	p.refreshes++
	return p.refreshOK
}

// =============================================================================
// HELPERS
// =============================================================================

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	t       *testing.T
	m       Model
	backend *fakeBackend
	poller  *fakePoller
	copied  []string
	saved   []session.Identity
	dir     string
}

func newHarness(t *testing.T, id session.Identity, configure func(*config.Config)) *harness {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)

	cfg := config.Default()
	cfg.UI.Markdown = false
	if configure != nil {
		configure(cfg)
	}

	h := &harness{t: t, backend: &fakeBackend{messages: map[string][]backend.WireMessage{}}, poller: &fakePoller{}, dir: t.TempDir()}
	h.m = New(styles.NewTheme(styles.ModeDark), Deps{
		Backend:  h.backend,
		Config:   cfg,
		Identity: id,
		Poller:   h.poller,
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
		SaveIdentity: func(id session.Identity) error {
			h.saved = append(h.saved, id)
			return nil
		},
		Now:       func() time.Time { return fixedNow },
		ExportDir: h.dir,
	})
	h.m, _ = h.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// exec runs cmd and returns the messages it produces, expanding batches.
// Commands that do not finish quickly (timers, cursor blink) are skipped.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, exec(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func (h *harness) update(msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := h.m.Update(msg)
	return next.(Model), cmd
}

// send delivers msg and then every message its commands produce.
func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	var cmd tea.Cmd
	h.m, cmd = h.update(msg)
	for _, out := range exec(cmd) {
		switch out.(type) {
		case tea.QuitMsg, components.LoadingTickMsg:
			continue
		}
		h.send(out)
	}
}

// sendAsync delivers msg but returns its command's messages undelivered.
func (h *harness) sendAsync(msg tea.Msg) []tea.Msg {
	var cmd tea.Cmd
	h.m, cmd = h.update(msg)
	return exec(cmd)
}

func (h *harness) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) key(k tea.KeyType) {
	h.send(tea.KeyMsg{Type: k})
}

var signedIn = session.Identity{UserID: "u1"}

// =============================================================================
// SESSION
// =============================================================================

func TestNew_SignedInLoadsChatsAndStartsPoller(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.backend.chats = []backend.ChatSummary{
		{ID: "c1", Title: "Bracket", UpdatedAt: backend.Timestamp{Time: fixedNow.Add(-time.Hour)}},
		{ID: "c2", Title: "Flange", UpdatedAt: backend.Timestamp{Time: fixedNow}},
	}

	for _, msg := range exec(h.m.Init()) {
		h.send(msg)
	}

	assert.Equal(t, []string{"u1"}, h.poller.started)
	visible := h.m.Store().Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, "Flange", visible[0].Name)
	assert.Equal(t, -1, h.m.Store().ActiveIndex(), "loading clears the selection")
	assert.Contains(t, h.m.View(), components.EmptyPrompt)
}

func TestSignIn_Flow(t *testing.T) {
	h := newHarness(t, session.Identity{}, nil)
	require.Equal(t, ScreenSignIn, h.m.Screen())
	assert.Contains(t, h.m.View(), "Sign in")

	h.key(tea.KeyEnter)
	assert.Equal(t, ScreenSignIn, h.m.Screen())
	assert.Contains(t, h.m.View(), "Enter your user id")

	h.typeText("alice")
	h.key(tea.KeyEnter)

	assert.Equal(t, ScreenChat, h.m.Screen())
	assert.Equal(t, "alice", h.m.Identity().UserID)
	assert.Equal(t, []string{"alice"}, h.poller.started)
	require.Len(t, h.saved, 1)
	assert.Equal(t, "alice", h.saved[0].UserID)
}

func TestSignOut_ResetsEverything(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.key(tea.KeyCtrlN)
	h.key(tea.KeyCtrlO)
	h.m.cad = h.m.cad.Select("NX")
	h.m.pluginStatus = plugin.Derive(backend.PluginStatusResponse{IsConnected: true, IsActive: true}, fixedNow)
	require.True(t, h.m.Wizards().AnyOpen())

	// Close the wizard first; ctrl+l is a chat-screen key.
	h.key(tea.KeyEsc)
	h.key(tea.KeyCtrlL)

	assert.Equal(t, ScreenSignIn, h.m.Screen())
	assert.Equal(t, 1, h.poller.stopped)
	assert.False(t, h.m.Identity().SignedIn())
	assert.Empty(t, h.m.Store().Chats())
	assert.False(t, h.m.Wizards().AnyOpen())
	assert.False(t, h.m.CAD().Connected())
	assert.False(t, h.m.PluginStatus().Known)
	assert.Equal(t, session.Identity{}, h.saved[len(h.saved)-1])
}

func TestStaleMessagesAfterSignOutAreDropped(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.key(tea.KeyCtrlL)

	h.send(ChatsLoadedMsg{UserID: "u1", Chats: nil})
	h.send(PluginUpdateMsg{Update: plugin.Update{UserID: "u1", Status: plugin.Status{Known: true, LoggedIn: true}}})

	assert.False(t, h.m.PluginStatus().Known)
	assert.Empty(t, h.m.Store().Chats())
}

// =============================================================================
// EXCHANGE
// =============================================================================

func TestSend_FirstTurnAdoptsChatID(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.backend.reply = &backend.ChatResponse{Response: "Sure, here's a bracket.", ThreadID: "th_1", ChatID: "abc123"}

	h.typeText("design a bracket")
	h.key(tea.KeyEnter)

	assert.False(t, h.m.Exchange().Sending)
	active, ok := h.m.Store().Active()
	require.True(t, ok)
	assert.Equal(t, "design a bracket", active.Name)
	assert.Equal(t, "abc123", active.ID)
	assert.Equal(t, "/dashboard/chat/abc123", h.m.Store().Route())
	require.Len(t, active.Messages, 2)
	assert.Equal(t, "Sure, here's a bracket.", active.Messages[1].Content)

	require.Len(t, h.backend.prompts, 1)
	assert.Equal(t, "design a bracket", h.backend.prompts[0].Text)
	assert.Equal(t, "u1", h.backend.prompts[0].UserID)
}

func TestSend_ShowsLoadingAndRejectsSecondSend(t *testing.T) {
	h := newHarness(t, signedIn, nil)

	h.typeText("design a flange")
	pending := h.sendAsync(tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, h.m.Exchange().Sending)
	assert.Equal(t, "", h.m.input.Value(), "input is cleared on send")
	assert.Contains(t, h.m.View(), "Designing")

	h.typeText("again")
	h.key(tea.KeyEnter)
	assert.Equal(t, "Still waiting for the last reply", h.m.StatusMessage())
	assert.Equal(t, "again", h.m.input.Value())

	h.key(tea.KeyCtrlN)
	assert.Len(t, h.m.Store().Visible(), 1, "no new chat while sending")

	for _, msg := range pending {
		h.send(msg)
	}
	assert.False(t, h.m.Exchange().Sending)
	assert.Len(t, h.backend.prompts, 1)
}

func TestSend_FailureAppendsApology(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.backend.sendErr = errors.New("boom")

	h.typeText("hello")
	h.key(tea.KeyEnter)

	active, _ := h.m.Store().Active()
	require.Len(t, active.Messages, 2)
	assert.Equal(t, exchange.FailureMessage, active.Messages[1].Content)
	assert.False(t, h.m.Exchange().Sending)
}

func TestSend_CADContextSentSeparately(t *testing.T) {
	h := newHarness(t, signedIn, func(c *config.Config) { c.CAD.Default = "catia" })
	require.Equal(t, "CATIA", h.m.CAD().Label())

	h.typeText("make a hole")
	h.key(tea.KeyEnter)

	require.Len(t, h.backend.prompts, 1)
	assert.Equal(t, "make a hole", h.backend.prompts[0].Text)
	assert.Equal(t, "You are currently connected to CATIA.", h.backend.prompts[0].Context)
	active, _ := h.m.Store().Active()
	assert.Equal(t, "make a hole", active.Messages[0].Content, "the transcript keeps the typed text")
}

func TestSend_PluginRequired(t *testing.T) {
	h := newHarness(t, signedIn, func(c *config.Config) { c.Plugin.RequireOnline = true })
	h.backend.plugin = &backend.PluginStatusResponse{IsConnected: true, IsLoggedOut: true}

	h.typeText("design a bracket")
	h.key(tea.KeyEnter)

	assert.Empty(t, h.backend.prompts)
	active, _ := h.m.Store().Active()
	assert.Equal(t, exchange.PluginOfflineMessage, active.Messages[len(active.Messages)-1].Content)
}

func TestCodeReply_ArtifactViewAndCopy(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	script := "```python\nimport adsk.core\n```"
	h.backend.reply = &backend.ChatResponse{Response: backend.Text(script)}

	h.typeText("write a script")
	h.key(tea.KeyEnter)

	active, _ := h.m.Store().Active()
	assert.Equal(t, exchange.CodeAcknowledgment, active.Messages[1].Content)
	assert.NotContains(t, h.m.View(), "import adsk.core")

	h.key(tea.KeyCtrlA)
	assert.Contains(t, h.m.View(), "Generated script")
	assert.Contains(t, h.m.View(), "adsk")

	h.key(tea.KeyCtrlY)
	assert.Equal(t, []string{script}, h.copied)
	assert.Equal(t, "Copied script", h.m.StatusMessage())

	h.key(tea.KeyEsc)
	assert.NotContains(t, h.m.View(), "Generated script")
}

func TestExportActiveChat(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "Nothing to export", h.m.StatusMessage())

	h.typeText("design a bracket")
	h.key(tea.KeyEnter)
	h.send(tea.KeyMsg{Type: tea.KeyCtrlS})

	path := filepath.Join(h.dir, "forgemind_design_a_bracket_20250301_120000.md")
	assert.Equal(t, "Saved "+path, h.m.StatusMessage())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "design a bracket")
}

// =============================================================================
// CHATS
// =============================================================================

func TestNewChatAndSidebarSelection(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.key(tea.KeyCtrlN)
	h.key(tea.KeyCtrlN)

	visible := h.m.Store().Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, "Chat 2", visible[1].Name)
	assert.Equal(t, 1, h.m.Store().ActiveIndex())

	h.key(tea.KeyTab)
	h.key(tea.KeyUp)
	assert.Equal(t, 0, h.m.Store().ActiveIndex())
	h.key(tea.KeyUp)
	assert.Equal(t, 0, h.m.Store().ActiveIndex())
	h.key(tea.KeyDown)
	assert.Equal(t, 1, h.m.Store().ActiveIndex())

	h.key(tea.KeyEnter)
	assert.Equal(t, FocusInput, h.m.focus)
}

func TestDelete_LocalChatHidesImmediately(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.key(tea.KeyCtrlN)
	first, _ := h.m.Store().Active()

	h.key(tea.KeyCtrlD)

	assert.Nil(t, h.m.confirm)
	assert.Empty(t, h.backend.deleted)
	active, ok := h.m.Store().Active()
	require.True(t, ok)
	assert.NotEqual(t, first.LocalID, active.LocalID)
	assert.Equal(t, "Chat 1", active.Name)
}

func TestDelete_PersistedChatNeedsConfirmation(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.backend.reply = &backend.ChatResponse{Response: "ok", ChatID: "c9"}
	h.typeText("hello")
	h.key(tea.KeyEnter)
	saved, _ := h.m.Store().Active()
	require.Equal(t, "c9", saved.ID)

	// Cancel leaves the chat alone.
	h.key(tea.KeyCtrlD)
	require.NotNil(t, h.m.confirm)
	assert.Contains(t, h.m.View(), "Delete chat?")
	h.key(tea.KeyEsc)
	assert.Nil(t, h.m.confirm)
	assert.Empty(t, h.backend.deleted)

	// Enter on the default (cancel) button also cancels.
	h.key(tea.KeyCtrlD)
	h.key(tea.KeyEnter)
	assert.Empty(t, h.backend.deleted)

	h.key(tea.KeyCtrlD)
	h.key(tea.KeyTab)
	h.key(tea.KeyEnter)

	assert.Equal(t, []string{"c9"}, h.backend.deleted)
	c, _ := h.m.Store().Chat(saved.LocalID)
	assert.False(t, c.Visible)
	assert.Equal(t, "/dashboard", h.m.Store().Route())
}

func TestDelete_RemoteFailureKeepsChat(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.backend.reply = &backend.ChatResponse{Response: "ok", ChatID: "c9"}
	h.typeText("hello")
	h.key(tea.KeyEnter)
	h.backend.deleteErr = errors.New("Chat not found")

	h.key(tea.KeyCtrlD)
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})

	active, ok := h.m.Store().Active()
	require.True(t, ok)
	assert.Equal(t, "c9", active.ID)
	assert.True(t, strings.HasPrefix(h.m.StatusMessage(), "Could not delete"))
}

// =============================================================================
// WIZARDS / CAD / PLUGIN
// =============================================================================

func TestWizard_AdvanceAndCancel(t *testing.T) {
	h := newHarness(t, signedIn, nil)

	h.key(tea.KeyCtrlO)
	w := h.m.Wizards().Get(wizard.Optimize)
	require.True(t, w.IsOpen())
	assert.Equal(t, 1, w.Step())

	h.key(tea.KeyEnter)
	h.typeText("keep the bore")
	assert.Equal(t, "keep the bore", h.m.Wizards().Get(wizard.Optimize).Field("constraints"))

	h.key(tea.KeyEnter)
	w = h.m.Wizards().Get(wizard.Optimize)
	assert.Equal(t, 3, w.Step())
	assert.True(t, w.Terminal())

	h.key(tea.KeyEnter)
	assert.Equal(t, 3, h.m.Wizards().Get(wizard.Optimize).Step(), "terminal step only exits by cancel")

	h.key(tea.KeyEsc)
	w = h.m.Wizards().Get(wizard.Optimize)
	assert.False(t, w.IsOpen())
	assert.Equal(t, 1, w.Step())
	assert.Equal(t, "", w.Field("constraints"))
}

func TestWizard_RelationsChoice(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	h.key(tea.KeyCtrlT)
	h.key(tea.KeyEnter)

	h.key(tea.KeyUp) // unset choice wraps to the last option
	assert.Equal(t, wizard.RelationOther, h.m.Wizards().Get(wizard.Relations).Field("relation"))

	h.key(tea.KeyTab)
	h.typeText("mates")
	assert.Equal(t, "mates", h.m.Wizards().Get(wizard.Relations).Field("other"))

	h.key(tea.KeyShiftTab)
	h.key(tea.KeyDown)
	assert.Equal(t, wizard.RelationBody, h.m.Wizards().Get(wizard.Relations).Field("relation"))
}

func TestCADPicker(t *testing.T) {
	h := newHarness(t, signedIn, nil)

	h.key(tea.KeyCtrlK)
	require.NotNil(t, h.m.picker)
	h.key(tea.KeyDown)
	h.key(tea.KeyEnter)
	assert.Equal(t, "Solidworks", h.m.CAD().Label())
	assert.Nil(t, h.m.picker)
	assert.Contains(t, h.m.View(), "CAD: Solidworks")

	h.key(tea.KeyCtrlK)
	h.key(tea.KeyDown)
	h.key(tea.KeyDown)
	h.key(tea.KeyEnter)
	require.NotNil(t, h.m.picker)
	assert.True(t, h.m.picker.editing)
	assert.Equal(t, "Other", h.m.CAD().Chosen())
	h.typeText("Onshape")
	h.key(tea.KeyEnter)
	assert.Equal(t, "Onshape", h.m.CAD().Label())

	h.key(tea.KeyCtrlX)
	assert.False(t, h.m.CAD().Connected())
	assert.Contains(t, h.m.View(), "No CAD")
}

func TestPluginUpdatesAndRefresh(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	assert.Contains(t, h.m.View(), "Plugin status unknown")

	h.send(PluginUpdateMsg{Update: plugin.Update{
		UserID: "u1",
		Status: plugin.Derive(backend.PluginStatusResponse{IsConnected: true, IsActive: true}, fixedNow),
	}})
	assert.Contains(t, h.m.View(), "Plugin Connected")

	h.key(tea.KeyCtrlR)
	assert.Equal(t, "Plugin status was just checked", h.m.StatusMessage())
	h.poller.refreshOK = true
	h.key(tea.KeyCtrlR)
	assert.Equal(t, "Checking plugin status...", h.m.StatusMessage())
	assert.Equal(t, 2, h.poller.refreshes)
}

func TestConfigReload(t *testing.T) {
	h := newHarness(t, signedIn, nil)
	cfg := config.Default()
	cfg.UI.Theme = "light"
	cfg.Plugin.RequireOnline = true

	h.send(ConfigReloadedMsg{Config: cfg})

	assert.False(t, h.m.theme.IsDark)
	assert.NotNil(t, h.m.markdown)
	assert.True(t, h.m.sender.RequirePlugin)
	assert.Equal(t, "Settings reloaded", h.m.StatusMessage())
}
