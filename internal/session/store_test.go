// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemind/forgemind-tui/internal/model"
)

func mustCreate(t *testing.T, s Store) Store {
	t.Helper()
	next, ok := s.CreateChat(false)
	require.True(t, ok)
	return next
}

func visibleNames(s Store) []string {
	var names []string
	for _, c := range s.Visible() {
		names = append(names, c.Name)
	}
	return names
}

// assertSelectionValid checks the active selection names a visible chat or
// is the sentinel.
func assertSelectionValid(t *testing.T, s Store) {
	t.Helper()
	if s.ActiveID() == "" {
		assert.Equal(t, -1, s.ActiveIndex())
		return
	}
	c, ok := s.Active()
	require.True(t, ok, "active id %q does not name a visible chat", s.ActiveID())
	assert.True(t, c.Visible)
	assert.GreaterOrEqual(t, s.ActiveIndex(), 0)
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateChat_FirstIsChat1(t *testing.T) {
	s := mustCreate(t, NewStore())

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "Chat 1", active.Name)
	assert.Equal(t, 0, s.ActiveIndex())
	assert.Equal(t, BaseRoute, s.Route(), "temporary chat keeps the route")
}

func TestCreateChat_NoOpWhileSending(t *testing.T) {
	s := mustCreate(t, NewStore())
	next, ok := s.CreateChat(true)

	assert.False(t, ok)
	assert.Len(t, next.Visible(), 1)
	assert.Equal(t, s.ActiveID(), next.ActiveID())
}

func TestCreateChat_FillsSmallestGap(t *testing.T) {
	s := NewStore()
	for i := 0; i < 3; i++ {
		s = mustCreate(t, s)
	}
	chat2 := s.Visible()[1]
	s = s.HideChat(chat2.LocalID)

	s = mustCreate(t, s)
	assert.Equal(t, []string{"Chat 1", "Chat 3", "Chat 2"}, visibleNames(s))
}

func TestIsDefaultName(t *testing.T) {
	assert.True(t, IsDefaultName("Chat 1"))
	assert.True(t, IsDefaultName("Chat   12"))
	assert.False(t, IsDefaultName("Chat about gears"))
	assert.False(t, IsDefaultName("my Chat 1"))
}

func TestNextChatName_IgnoresCustomAndHidden(t *testing.T) {
	chats := []model.Chat{
		model.NewChat("Chat 1"),
		model.NewChat("design a bracket"),
		model.NewChat("Chat 2").Hidden(),
		model.NewChat("Chat   3"),
		model.NewChat("Chat 4b"),
	}
	assert.Equal(t, "Chat 2", NextChatName(chats))
}

func TestCreateChat_NamesNeverCollide(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewStore()

	for step := 0; step < 300; step++ {
		visible := s.Visible()
		if len(visible) > 0 && rng.Intn(3) == 0 {
			s = s.HideChat(visible[rng.Intn(len(visible))].LocalID)
		} else {
			s = mustCreate(t, s)
		}

		seen := map[string]bool{}
		for _, name := range visibleNames(s) {
			require.False(t, seen[name], "duplicate visible name %q at step %d", name, step)
			seen[name] = true
		}
		assertSelectionValid(t, s)
	}
}

// =============================================================================
// SELECT
// =============================================================================

func TestSelectChat_RouteSync(t *testing.T) {
	s := mustCreate(t, NewStore())
	temp, _ := s.Active()

	persisted := model.NewChat("Saved").WithID("abc123")
	s = s.AddChat(persisted)
	assert.Equal(t, ChatRoute("abc123"), s.Route())
	assert.Equal(t, "/dashboard/chat/abc123", s.Route())

	s, ok := s.SelectChat(temp.LocalID)
	require.True(t, ok)
	assert.Equal(t, "/dashboard/chat/abc123", s.Route(), "temporary chat does not change the route")
	assert.Equal(t, temp.LocalID, s.ActiveID())
}

func TestSelectChat_UnknownOrHidden(t *testing.T) {
	s := mustCreate(t, NewStore())
	s = mustCreate(t, s)
	first := s.Visible()[0]
	s = s.HideChat(first.LocalID)

	_, ok := s.SelectChat(first.LocalID)
	assert.False(t, ok)
	_, ok = s.SelectChat("nope")
	assert.False(t, ok)
}

func TestSnapshotsAreIndependent(t *testing.T) {
	before := mustCreate(t, NewStore())
	after := mustCreate(t, before)

	assert.Len(t, before.Visible(), 1)
	assert.Len(t, after.Visible(), 2)

	chats := after.Chats()
	chats[0].Name = "mutated"
	assert.Equal(t, "Chat 1", after.Visible()[0].Name)
}

// =============================================================================
// DELETE
// =============================================================================

func TestRequestDelete(t *testing.T) {
	s := mustCreate(t, NewStore())
	temp, _ := s.Active()
	saved := model.NewChat("Saved").WithID("c1")
	s = s.AddChat(saved)

	assert.Equal(t, DeleteLocal, s.RequestDelete(temp.LocalID))
	assert.Equal(t, DeleteNeedsConfirm, s.RequestDelete(saved.LocalID))
	assert.Equal(t, DeleteIgnored, s.RequestDelete("missing"))

	s = s.HideChat(temp.LocalID)
	assert.Equal(t, DeleteIgnored, s.RequestDelete(temp.LocalID))
}

func TestHideChat_ActiveFallsBackToNearest(t *testing.T) {
	s := NewStore()
	for i := 0; i < 3; i++ {
		s = mustCreate(t, s)
	}
	v := s.Visible()

	// Middle chat active: the next one takes its place.
	s, _ = s.SelectChat(v[1].LocalID)
	s = s.HideChat(v[1].LocalID)
	assert.Equal(t, v[2].LocalID, s.ActiveID())

	// Last chat active: fall back to the previous one.
	s = s.HideChat(v[2].LocalID)
	assert.Equal(t, v[0].LocalID, s.ActiveID())
	assertSelectionValid(t, s)
}

func TestHideChat_LastChatCreatesDefault(t *testing.T) {
	s := mustCreate(t, NewStore())
	only, _ := s.Active()

	s = s.HideChat(only.LocalID)

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "Chat 1", active.Name)
	assert.NotEqual(t, only.LocalID, active.LocalID)
	assert.Len(t, s.Chats(), 2, "hidden chat is kept as a soft delete")
}

func TestHideChat_InactiveKeepsSelection(t *testing.T) {
	s := mustCreate(t, NewStore())
	s = mustCreate(t, s)
	first := s.Visible()[0]
	active := s.ActiveID()

	s = s.HideChat(first.LocalID)
	assert.Equal(t, active, s.ActiveID())
}

func TestHideChat_PersistedActiveResetsRoute(t *testing.T) {
	s := mustCreate(t, NewStore())
	saved := model.NewChat("Saved").WithID("c1")
	s = s.AddChat(saved)
	require.Equal(t, ChatRoute("c1"), s.Route())

	s = s.HideChat(saved.LocalID)
	assert.Equal(t, BaseRoute, s.Route())
	assertSelectionValid(t, s)
}

// =============================================================================
// UPDATE / LOAD / RESET
// =============================================================================

func TestUpdateChat_AdoptingIDMovesRoute(t *testing.T) {
	s := mustCreate(t, NewStore())
	c, _ := s.Active()

	s = s.UpdateChat(c.WithID("abc123"))
	assert.Equal(t, ChatRoute("abc123"), s.Route())
}

func TestResort_SelectionFollowsChat(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore().ReplaceChats([]model.Chat{
		model.NewChat("a").WithID("a").Touched(base.Add(2 * time.Hour)),
		model.NewChat("b").WithID("b").Touched(base.Add(time.Hour)),
	})
	b := s.Visible()[1]
	s, _ = s.SelectChat(b.LocalID)

	s = s.UpdateChat(b.Touched(base.Add(3 * time.Hour))).Resort()

	assert.Equal(t, []string{"b", "a"}, visibleNames(s))
	assert.Equal(t, 0, s.ActiveIndex())
	assert.Equal(t, b.LocalID, s.ActiveID())
}

func TestReplaceChats_ClearsSelection(t *testing.T) {
	s := mustCreate(t, NewStore())
	s = s.ReplaceChats([]model.Chat{model.NewChat("loaded").WithID("x")})

	assert.Equal(t, "", s.ActiveID())
	assert.Equal(t, -1, s.ActiveIndex())
	assert.Equal(t, BaseRoute, s.Route())
}

func TestReset(t *testing.T) {
	s := mustCreate(t, NewStore())
	s = s.Reset()

	assert.Empty(t, s.Chats())
	assert.Equal(t, BaseRoute, s.Route())
}

func TestDeleteDecisionString(t *testing.T) {
	for d, want := range map[DeleteDecision]string{
		DeleteIgnored:      "ignored",
		DeleteLocal:        "local",
		DeleteNeedsConfirm: "needs-confirm",
	} {
		assert.Equal(t, want, fmt.Sprint(d))
	}
}

func TestIdentity(t *testing.T) {
	assert.False(t, Identity{}.SignedIn())
	assert.False(t, Identity{UserID: "  "}.SignedIn())
	assert.True(t, Identity{UserID: "u1"}.SignedIn())
	assert.Equal(t, "a@b.c", Identity{UserID: "u1", Email: "a@b.c"}.Display())
	assert.Equal(t, "u1", Identity{UserID: "u1"}.Display())
}
