// Package syncer orchestrates synchronization between the remote game-state
// service and the local caches.
//
// Two independent scheduler scopes exist: the world scope (roster, world
// state, quest log, inventory) and the party scope (party directory and the
// active party's membership detail). Within a scope executions are strictly
// serialised by the scheduler; across scopes there is no ordering guarantee
// and the consistency coordinator tolerates either arriving first.
//
// Sync failures are partial by design: every successful batch item is
// processed and failed ones are logged and skipped, leaving the affected
// cache at its previous value. A cache is never cleared on a transient
// failure.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/cache"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/coordinator"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/gamestate"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/observe"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/scheduler"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/view"
)

// Named operations consumed from the remote service. The exact list is an
// external contract owned by the service.
const (
	toolListCharacters     = "list_characters"
	toolGetWorldState      = "get_world_state"
	toolGetQuestLog        = "get_quest_log"
	toolGetInventory       = "get_inventory"
	toolListParties        = "list_parties"
	toolGetPartyMembers    = "get_party_members"
	toolSetActiveCharacter = "set_active_character"
	toolSetPartyLeader     = "set_party_leader"
	toolAddPartyMember     = "add_party_member"
	toolRemovePartyMember  = "remove_party_member"
	toolCreateParty        = "create_party"
	toolUpdateParty        = "update_party"
	toolDeleteParty        = "delete_party"
	toolCreateCharacter    = "create_character"
	toolUpdateCharacter    = "update_character"
	toolDeleteCharacter    = "delete_character"
)

// defaultSyncTimeout bounds one debounced background sync execution.
const defaultSyncTimeout = 30 * time.Second

// Config tunes the syncer's scheduler guards.
type Config struct {
	// RateLimit is the minimum spacing between unforced syncs per scope.
	// Zero means [scheduler.DefaultRateLimit].
	RateLimit time.Duration

	// Debounce is the quiet period for [Syncer.RequestSync].
	// Zero means [scheduler.DefaultDebounce].
	Debounce time.Duration

	// SyncTimeout bounds one background sync execution. Zero means 30s.
	SyncTimeout time.Duration

	// PersistActiveParty durably records the active party id. May be nil.
	PersistActiveParty func(partyID string) error
}

// Syncer owns the caches, the consistency coordinator, the two sync
// schedulers and the debounced refresh trigger. Views read through the cache
// accessors and the [Syncer.PartyRoster] projection; they never reach the
// remote service directly.
//
// Create instances with [New]; the zero value is not usable.
type Syncer struct {
	caller  rpc.Caller
	logger  *slog.Logger
	metrics *observe.Metrics

	roster      *cache.Store[gamestate.CharacterRecord]
	parties     *cache.Store[gamestate.PartyRecord]
	memberships *cache.Store[gamestate.PartyMembership]
	inventory   *cache.Store[gamestate.InventoryItem]
	quests      *cache.Store[gamestate.Quest]
	worlds      *cache.Store[gamestate.WorldState]

	coord     *coordinator.Coordinator
	partyView *view.PartyRoster

	worldSched  *scheduler.Scheduler
	partySched  *scheduler.Scheduler
	debounce    *scheduler.Debouncer
	syncTimeout time.Duration

	synced atomic.Bool
}

// New builds a fully wired Syncer on top of caller.
func New(caller rpc.Caller, cfg Config, logger *slog.Logger, metrics *observe.Metrics) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaultSyncTimeout
	}

	s := &Syncer{
		caller:      caller,
		logger:      logger,
		metrics:     metrics,
		roster:      cache.New[gamestate.CharacterRecord](),
		parties:     cache.New[gamestate.PartyRecord](),
		memberships: cache.New[gamestate.PartyMembership](),
		inventory:   cache.New[gamestate.InventoryItem](),
		quests:      cache.New[gamestate.Quest](),
		worlds:      cache.New[gamestate.WorldState](),
		worldSched:  scheduler.New(cfg.RateLimit, scheduler.WithLogger(logger)),
		partySched:  scheduler.New(cfg.RateLimit, scheduler.WithLogger(logger)),
		debounce:    scheduler.NewDebouncer(cfg.Debounce),
		syncTimeout: cfg.SyncTimeout,
	}

	s.coord = coordinator.New(s.roster, s.parties, s.memberships, coordinator.Hooks{
		RefetchCharacterScope: s.refetchCharacterScope,
		RefetchPartyDetail:    s.refetchPartyDetail,
		SetActiveRemote:       s.setActiveRemote,
		PersistActiveParty:    cfg.PersistActiveParty,
		OnRepair: func(kind string) {
			metrics.RecordRepair(context.Background(), kind)
		},
	}, logger)

	s.partyView = view.NewPartyRoster(s.roster, s.memberships,
		s.coord.ActivePartyID, s.coord.ActiveCharacterID)

	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Sync entry points
// ─────────────────────────────────────────────────────────────────────────────

// RequestSync is the debounced refresh trigger exposed to views and timers.
// Rapid calls collapse into a single execution after the quiet period; the
// scheduler guards then decide whether that execution is admitted.
func (s *Syncer) RequestSync(force bool) {
	s.debounce.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()
		s.SyncAll(ctx, force)
	})
}

// SyncAll runs both sync scopes back to back and reports whether at least one
// was admitted.
func (s *Syncer) SyncAll(ctx context.Context, force bool) bool {
	world := s.SyncWorld(ctx, force)
	party := s.SyncParty(ctx, force)
	return world || party
}

// SyncWorld synchronises the world scope: roster, world state, quest log and
// the active character's inventory. Returns false when the scheduler dropped
// the request.
func (s *Syncer) SyncWorld(ctx context.Context, force bool) bool {
	admitted := s.worldSched.Run(ctx, force, func(ctx context.Context) error {
		start := time.Now()
		err := s.syncWorldScope(ctx)
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordSync(ctx, "world", status, time.Since(start))
		return err
	})
	if !admitted {
		s.metrics.RecordSyncRejected(ctx, "world")
	}
	return admitted
}

// SyncParty synchronises the party scope: the party directory and the active
// party's membership detail. Returns false when the scheduler dropped the
// request.
func (s *Syncer) SyncParty(ctx context.Context, force bool) bool {
	admitted := s.partySched.Run(ctx, force, func(ctx context.Context) error {
		start := time.Now()
		err := s.syncPartyScope(ctx)
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordSync(ctx, "party", status, time.Since(start))
		return err
	})
	if !admitted {
		s.metrics.RecordSyncRejected(ctx, "party")
	}
	return admitted
}

// Synced reports whether at least one world-scope sync has completed. Used
// as a readiness signal: cache contents are not assumed valid after a
// restart until this turns true.
func (s *Syncer) Synced() bool { return s.synced.Load() }

// Close cancels any pending debounced trigger.
func (s *Syncer) Close() { s.debounce.Stop() }

// ─────────────────────────────────────────────────────────────────────────────
// Sync bodies
// ─────────────────────────────────────────────────────────────────────────────

func (s *Syncer) syncWorldScope(ctx context.Context) error {
	// The three root fetches are independent of each other; only the
	// inventory fetch below depends on a result (the active character).
	results := rpc.ExecuteBatch(ctx, s.caller, []rpc.Call{
		{Name: toolListCharacters},
		{Name: toolGetWorldState},
		{Name: toolGetQuestLog},
	})

	failed := 0
	if raw, ok := s.usable(ctx, results[0]); ok {
		s.roster.ReplaceAll(gamestate.ParseCharacters(rpc.Normalize[any](raw, nil)))
		s.metrics.RecordCacheSize(ctx, "roster", s.roster.Len())
	} else {
		failed++
	}
	if raw, ok := s.usable(ctx, results[1]); ok {
		if w, valid := gamestate.ParseWorldState(rpc.Normalize(raw, map[string]any{})); valid {
			s.worlds.ReplaceAll([]gamestate.WorldState{w})
		}
	} else {
		failed++
	}
	if raw, ok := s.usable(ctx, results[2]); ok {
		s.quests.ReplaceAll(gamestate.ParseQuestLog(rpc.Normalize[any](raw, nil)))
		s.metrics.RecordCacheSize(ctx, "quests", s.quests.Len())
	} else {
		failed++
	}

	if failed == len(results) {
		return fmt.Errorf("syncer: world sync produced no usable results")
	}

	// Pointer validity is recomputed against the freshest roster, then the
	// character-scoped inventory follows whatever pointer survived.
	s.coord.Heal(ctx)
	if id, ok := s.coord.ActiveCharacterID(); ok {
		s.syncInventory(ctx, id)
	}

	s.synced.Store(true)
	return nil
}

func (s *Syncer) syncPartyScope(ctx context.Context) error {
	raw, ok := s.call(ctx, toolListParties, nil)
	if !ok {
		return fmt.Errorf("syncer: party sync produced no usable results")
	}
	s.parties.ReplaceAll(gamestate.ParseParties(rpc.Normalize[any](raw, nil)))
	s.metrics.RecordCacheSize(ctx, "parties", s.parties.Len())

	s.coord.Heal(ctx)
	if partyID, active := s.coord.ActivePartyID(); active {
		s.refetchPartyDetail(ctx, partyID)
	}
	return nil
}

// syncInventory replaces the inventory cache for the given character. The
// detailed endpoint is canonical; its whole item set replaces the cache.
func (s *Syncer) syncInventory(ctx context.Context, characterID string) {
	raw, ok := s.call(ctx, toolGetInventory, map[string]any{"character_id": characterID})
	if !ok {
		return
	}
	s.inventory.ReplaceAll(gamestate.ParseInventory(rpc.Normalize[any](raw, nil)))
	s.metrics.RecordCacheSize(ctx, "inventory", s.inventory.Len())
}

// refetchCharacterScope re-pulls the caches that follow the active
// character: inventory and quest log. Invoked by the coordinator on pointer
// changes. Both calls are independent, so they run as one batch.
func (s *Syncer) refetchCharacterScope(ctx context.Context, characterID string) {
	results := rpc.ExecuteBatch(ctx, s.caller, []rpc.Call{
		{Name: toolGetInventory, Args: map[string]any{"character_id": characterID}},
		{Name: toolGetQuestLog, Args: map[string]any{"character_id": characterID}},
	})
	if raw, ok := s.usable(ctx, results[0]); ok {
		s.inventory.ReplaceAll(gamestate.ParseInventory(rpc.Normalize[any](raw, nil)))
	}
	if raw, ok := s.usable(ctx, results[1]); ok {
		s.quests.ReplaceAll(gamestate.ParseQuestLog(rpc.Normalize[any](raw, nil)))
	}
}

// refetchPartyDetail re-pulls membership detail for one party and hands the
// result to the coordinator for active-pointer reconciliation.
func (s *Syncer) refetchPartyDetail(ctx context.Context, partyID string) {
	raw, ok := s.call(ctx, toolGetPartyMembers, map[string]any{"party_id": partyID})
	if !ok {
		return
	}
	members := gamestate.ParseMemberships(rpc.Normalize[any](raw, nil), partyID)
	s.memberships.ReplaceAll(members)
	s.coord.ApplyMemberships(ctx, partyID, members)
}

// setActiveRemote performs the remote set-active-character mutation.
func (s *Syncer) setActiveRemote(ctx context.Context, partyID, characterID string) error {
	if _, ok := s.call(ctx, toolSetActiveCharacter, map[string]any{
		"party_id":     partyID,
		"character_id": characterID,
	}); !ok {
		return fmt.Errorf("syncer: %s failed", toolSetActiveCharacter)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Call helpers
// ─────────────────────────────────────────────────────────────────────────────

// call issues one tool call and classifies the outcome. A transport failure
// or an embedded error payload yields ok=false after logging; the caller
// skips the affected cache, leaving its previous contents intact.
func (s *Syncer) call(ctx context.Context, tool string, args map[string]any) (any, bool) {
	start := time.Now()
	raw, err := s.caller.CallTool(ctx, tool, args)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.RecordToolCall(ctx, tool, "transport_error", elapsed)
		s.logger.Warn("tool call failed", "tool", tool, "error", err)
		return nil, false
	}
	if rpc.IsErrorResponse(raw) {
		s.metrics.RecordToolCall(ctx, tool, "domain_error", elapsed)
		s.logger.Warn("tool returned error", "tool", tool, "message", rpc.ErrorMessage(raw))
		return nil, false
	}
	s.metrics.RecordToolCall(ctx, tool, "ok", elapsed)
	return raw, true
}

// usable applies the same classification to one batch slot.
func (s *Syncer) usable(ctx context.Context, r rpc.BatchResult) (any, bool) {
	if !r.OK() {
		s.metrics.RecordToolCall(ctx, r.Name, "transport_error", r.Duration)
		s.logger.Warn("tool call failed", "tool", r.Name, "error", r.Err)
		return nil, false
	}
	if rpc.IsErrorResponse(r.Result) {
		s.metrics.RecordToolCall(ctx, r.Name, "domain_error", r.Duration)
		s.logger.Warn("tool returned error", "tool", r.Name, "message", rpc.ErrorMessage(r.Result))
		return nil, false
	}
	s.metrics.RecordToolCall(ctx, r.Name, "ok", r.Duration)
	return r.Result, true
}
