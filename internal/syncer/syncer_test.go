package syncer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc/mock"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/syncer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSyncer(t *testing.T, caller *mock.Caller) *syncer.Syncer {
	t.Helper()
	s := syncer.New(caller, syncer.Config{
		RateLimit: time.Millisecond,
		Debounce:  time.Millisecond,
	}, quietLogger(), nil)
	t.Cleanup(s.Close)
	return s
}

// seedRemote configures a coherent remote snapshot on the mock.
func seedRemote(caller *mock.Caller) {
	caller.SetResult("list_characters", []any{
		map[string]any{"id": "ch-1", "name": "Aela"},
		map[string]any{"id": "ch-2", "name": "Borin"},
	})
	caller.SetResult("get_world_state", map[string]any{"id": "w-1", "name": "Faerun"})
	caller.SetResult("get_quest_log", map[string]any{"quests": []any{
		map[string]any{"id": "q1", "title": "Rescue the smith"},
	}})
	caller.SetResult("get_inventory", map[string]any{"items": []any{
		map[string]any{"id": "it-1", "name": "rope", "quantity": float64(1)},
	}})
	caller.SetResult("list_parties", []any{map[string]any{"id": "p-1", "name": "The Wardens"}})
	caller.SetResult("get_party_members", map[string]any{"members": []any{
		map[string]any{"characterId": "ch-1", "role": "leader"},
		map[string]any{"characterId": "ch-2", "role": "member", "isActive": true},
	}})
}

func TestSyncAllPopulatesCaches(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	seedRemote(caller)

	s := newSyncer(t, caller)
	s.Coordinator().RestoreActiveParty("p-1")

	if !s.SyncAll(context.Background(), true) {
		t.Fatal("expected the forced sync to be admitted")
	}

	if got := s.Roster().Len(); got != 2 {
		t.Errorf("roster: expected 2 records, got %d", got)
	}
	if got := s.Parties().Len(); got != 1 {
		t.Errorf("parties: expected 1 record, got %d", got)
	}
	if got := s.Quests().Len(); got != 1 {
		t.Errorf("quests: expected 1 record, got %d", got)
	}
	if !s.Worlds().Has("w-1") {
		t.Error("worlds: expected w-1 present")
	}
	if got := s.Memberships().Len(); got != 2 {
		t.Errorf("memberships: expected 2 records, got %d", got)
	}
	if got := s.Inventory().Len(); got != 1 {
		t.Errorf("inventory: expected 1 item, got %d", got)
	}

	if id, ok := s.Coordinator().ActivePartyID(); !ok || id != "p-1" {
		t.Errorf("expected active party p-1, got %q (ok=%v)", id, ok)
	}
	// The membership detail names ch-2 as point of view.
	if id, ok := s.Coordinator().ActiveCharacterID(); !ok || id != "ch-2" {
		t.Errorf("expected active character ch-2, got %q (ok=%v)", id, ok)
	}

	if !s.Synced() {
		t.Error("expected the synced readiness signal")
	}

	// Leader first, then the active character.
	if got := s.PartyRoster().MemberIDs(); len(got) != 2 || got[0] != "ch-1" || got[1] != "ch-2" {
		t.Errorf("unexpected party projection: %v", got)
	}
}

func TestSyncWorldWithoutPartyFallsBackToFirstCharacter(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	seedRemote(caller)

	s := newSyncer(t, caller)
	if !s.SyncWorld(context.Background(), true) {
		t.Fatal("expected the forced sync to be admitted")
	}

	if id, ok := s.Coordinator().ActiveCharacterID(); !ok || id != "ch-1" {
		t.Fatalf("expected the first roster character active, got %q (ok=%v)", id, ok)
	}
	if got := caller.LastArgs("get_inventory"); got["character_id"] != "ch-1" {
		t.Errorf("expected the inventory fetched for ch-1, got %v", got)
	}
}

func TestSyncWorldPartialFailure(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	seedRemote(caller)
	caller.SetError("get_world_state", errors.New("connection reset"))

	s := newSyncer(t, caller)
	if !s.SyncWorld(context.Background(), true) {
		t.Fatal("expected the forced sync to be admitted")
	}

	if got := s.Roster().Len(); got != 2 {
		t.Errorf("roster should survive a sibling failure, got %d records", got)
	}
	if got := s.Worlds().Len(); got != 0 {
		t.Errorf("failed fetch must not populate its cache, got %d records", got)
	}
	if !s.Synced() {
		t.Error("a partially successful sync still counts as synced")
	}
}

func TestSyncWorldTotalFailureKeepsPreviousCaches(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	seedRemote(caller)

	s := newSyncer(t, caller)
	if !s.SyncWorld(context.Background(), true) {
		t.Fatal("expected the first sync to be admitted")
	}
	rosterV := s.Roster().Version()

	// The transport dies; every subsequent call fails.
	caller.Reset()
	caller.Err = errors.New("transport down")

	if !s.SyncWorld(context.Background(), true) {
		t.Fatal("a failing sync is still admitted by the scheduler")
	}
	if got := s.Roster().Len(); got != 2 {
		t.Errorf("caches must keep their previous contents, got %d records", got)
	}
	if got := s.Roster().Version(); got != rosterV {
		t.Errorf("a failed sync must not touch the cache version: %d -> %d", rosterV, got)
	}
}

func TestSyncPartyRequiresDirectory(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	caller.Err = errors.New("transport down")

	s := newSyncer(t, caller)
	if !s.SyncParty(context.Background(), true) {
		t.Fatal("expected the forced sync to be admitted")
	}
	if got := s.Parties().Len(); got != 0 {
		t.Errorf("expected no parties, got %d", got)
	}
	if s.Synced() {
		t.Error("a party-scope sync must not flip the readiness signal")
	}
}

func TestSetActiveCharacterReconciles(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	seedRemote(caller)

	s := newSyncer(t, caller)
	s.Coordinator().RestoreActiveParty("p-1")
	if !s.SyncAll(context.Background(), true) {
		t.Fatal("expected the forced sync to be admitted")
	}

	// The remote flips the active flag when asked.
	caller.SetResult("get_party_members", map[string]any{"members": []any{
		map[string]any{"characterId": "ch-1", "role": "leader", "isActive": true},
		map[string]any{"characterId": "ch-2", "role": "member"},
	}})

	if err := s.SetActiveCharacter(context.Background(), "ch-1"); err != nil {
		t.Fatalf("SetActiveCharacter: %v", err)
	}

	args := caller.LastArgs("set_active_character")
	if args["party_id"] != "p-1" || args["character_id"] != "ch-1" {
		t.Errorf("unexpected set_active_character args: %v", args)
	}
	if id, _ := s.Coordinator().ActiveCharacterID(); id != "ch-1" {
		t.Errorf("expected active character ch-1, got %q", id)
	}

	mem, err := s.Memberships().Get("p-1/ch-1")
	if err != nil {
		t.Fatalf("membership p-1/ch-1: %v", err)
	}
	if !mem.IsActive {
		t.Error("expected the refetched membership to carry the active flag")
	}
}

func TestMutations(t *testing.T) {
	t.Parallel()

	t.Run("success issues the tool call", func(t *testing.T) {
		t.Parallel()
		caller := &mock.Caller{}
		s := newSyncer(t, caller)

		if err := s.AddPartyMember(context.Background(), "p-1", "ch-3", "companion"); err != nil {
			t.Fatalf("AddPartyMember: %v", err)
		}
		args := caller.LastArgs("add_party_member")
		if args["party_id"] != "p-1" || args["character_id"] != "ch-3" || args["role"] != "companion" {
			t.Errorf("unexpected args: %v", args)
		}
	})

	t.Run("embedded error surfaces as advisory", func(t *testing.T) {
		t.Parallel()
		caller := &mock.Caller{}
		caller.SetResult("create_party", map[string]any{"error": "name already taken"})
		s := newSyncer(t, caller)

		err := s.CreateParty(context.Background(), map[string]any{"name": "The Wardens"})
		if err == nil {
			t.Fatal("expected an error for a rejected mutation")
		}
	})

	t.Run("transport error is wrapped", func(t *testing.T) {
		t.Parallel()
		caller := &mock.Caller{}
		caller.SetError("delete_character", errors.New("transport down"))
		s := newSyncer(t, caller)

		if err := s.DeleteCharacter(context.Background(), "ch-1"); err == nil {
			t.Fatal("expected an error for a failed mutation")
		}
	})

	t.Run("update merges the identity argument", func(t *testing.T) {
		t.Parallel()
		caller := &mock.Caller{}
		s := newSyncer(t, caller)

		if err := s.UpdateParty(context.Background(), "p-1", map[string]any{"name": "New Name"}); err != nil {
			t.Fatalf("UpdateParty: %v", err)
		}
		args := caller.LastArgs("update_party")
		if args["party_id"] != "p-1" || args["name"] != "New Name" {
			t.Errorf("unexpected args: %v", args)
		}
	})
}

func TestRequestSyncCollapsesBursts(t *testing.T) {
	t.Parallel()

	caller := &mock.Caller{}
	seedRemote(caller)
	s := syncer.New(caller, syncer.Config{
		RateLimit: time.Millisecond,
		Debounce:  50 * time.Millisecond,
	}, quietLogger(), nil)
	t.Cleanup(s.Close)

	for range 5 {
		s.RequestSync(true)
	}

	deadline := time.Now().Add(2 * time.Second)
	for caller.CallCount("list_characters") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Let any superseded trigger misfire before counting.
	time.Sleep(50 * time.Millisecond)

	if got := caller.CallCount("list_characters"); got != 1 {
		t.Fatalf("expected one collapsed sync, got %d roster fetches", got)
	}
}
