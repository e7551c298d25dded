// Package coordinator owns the two process-wide active pointers — the active
// character id and the active party id — and keeps every cache that depends
// on them coherent.
//
// The pointers are references, never copies: display objects are always
// re-derived from the caches on read. All mutations go through this
// package's entry points; no cache or view writes the pointers directly.
// The invariant maintained here: each pointer is either unset or names a
// record currently present in its owning cache, and at most one character is
// active system-wide.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/cache"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/gamestate"
)

// Hooks are the coordinator's outbound edges. They are injected rather than
// imported so the coordinator stays decoupled from the sync orchestration
// that also calls into it. Any hook may be nil, in which case that edge is
// skipped.
type Hooks struct {
	// RefetchCharacterScope re-pulls the caches that follow the active
	// character: inventory and quest log.
	RefetchCharacterScope func(ctx context.Context, characterID string)

	// RefetchPartyDetail re-pulls membership detail for the given party.
	RefetchPartyDetail func(ctx context.Context, partyID string)

	// SetActiveRemote performs the remote "set active character" mutation for
	// the given party.
	SetActiveRemote func(ctx context.Context, partyID, characterID string) error

	// PersistActiveParty durably records the active party id ("" clears it).
	PersistActiveParty func(partyID string) error

	// OnRepair is invoked once per self-healed consistency violation.
	OnRepair func(kind string)
}

// Coordinator propagates active-pointer changes across caches. Create
// instances with [New]; the zero value is not usable.
type Coordinator struct {
	roster      *cache.Store[gamestate.CharacterRecord]
	parties     *cache.Store[gamestate.PartyRecord]
	memberships *cache.Store[gamestate.PartyMembership]

	hooks  Hooks
	logger *slog.Logger

	mu                sync.Mutex
	activeCharacterID string
	activePartyID     string
}

// New returns a Coordinator bound to the given caches.
func New(
	roster *cache.Store[gamestate.CharacterRecord],
	parties *cache.Store[gamestate.PartyRecord],
	memberships *cache.Store[gamestate.PartyMembership],
	hooks Hooks,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		roster:      roster,
		parties:     parties,
		memberships: memberships,
		hooks:       hooks,
		logger:      logger,
	}
}

// ActiveCharacterID returns the active character pointer. ok is false when
// no character is active.
func (c *Coordinator) ActiveCharacterID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeCharacterID, c.activeCharacterID != ""
}

// ActivePartyID returns the active party pointer. ok is false when no party
// is active.
func (c *Coordinator) ActivePartyID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activePartyID, c.activePartyID != ""
}

// RestoreActiveParty seeds the active party pointer from persisted state
// without validation or propagation. Called once at startup, before the
// first sync; the first Heal pass clears it if the party no longer exists.
func (c *Coordinator) RestoreActiveParty(partyID string) {
	c.mu.Lock()
	c.activePartyID = partyID
	c.mu.Unlock()
}

// SetActiveParty switches the active party. The id must name a party present
// in the directory ("" clears the pointer). The change is persisted and
// party membership detail is refetched.
func (c *Coordinator) SetActiveParty(ctx context.Context, partyID string) error {
	if partyID != "" && !c.parties.Has(partyID) {
		return fmt.Errorf("coordinator: party %q not in directory", partyID)
	}

	c.mu.Lock()
	changed := c.activePartyID != partyID
	c.activePartyID = partyID
	c.mu.Unlock()

	if !changed {
		return nil
	}

	if c.hooks.PersistActiveParty != nil {
		if err := c.hooks.PersistActiveParty(partyID); err != nil {
			c.logger.Warn("failed to persist active party", "party_id", partyID, "error", err)
		}
	}
	if partyID != "" && c.hooks.RefetchPartyDetail != nil {
		c.hooks.RefetchPartyDetail(ctx, partyID)
	}
	return nil
}

// ApplyMemberships reconciles the active character pointer after a membership
// write for partyID. When exactly one membership carries the active flag and
// its character exists in the roster, the pointer follows it and the
// character-scoped caches (inventory, quest log) are refetched — but only on
// an actual change, so repeated syncs of identical data stay quiet.
//
// Stale party data naming a character absent from the roster is a recoverable
// condition: the previous pointer is kept and the inconsistency logged.
func (c *Coordinator) ApplyMemberships(ctx context.Context, partyID string, members []gamestate.PartyMembership) {
	var active string
	for _, m := range members {
		if m.IsActive {
			active = m.CharacterID
			break
		}
	}
	if active == "" {
		return
	}

	if !c.roster.Has(active) {
		c.logger.Warn("party membership names unknown character; keeping previous active pointer",
			"party_id", partyID, "character_id", active)
		if c.hooks.OnRepair != nil {
			c.hooks.OnRepair("stale_membership")
		}
		return
	}

	c.mu.Lock()
	changed := c.activeCharacterID != active
	c.activeCharacterID = active
	c.mu.Unlock()

	if changed && c.hooks.RefetchCharacterScope != nil {
		c.hooks.RefetchCharacterScope(ctx, active)
	}
}

// SetActiveCharacter switches the point-of-view character directly. The id
// must exist in the roster. The change propagates to the active party's
// membership via the remote set-active-character mutation, after which the
// party detail is re-pulled so the local membership flags match.
//
// The pointer change is authoritative immediately: a failed remote
// propagation or refetch leaves dependents stale until the next sync but
// does not roll the pointer back. The returned error is advisory.
func (c *Coordinator) SetActiveCharacter(ctx context.Context, characterID string) error {
	if !c.roster.Has(characterID) {
		return fmt.Errorf("coordinator: character %q not in roster", characterID)
	}

	c.mu.Lock()
	changed := c.activeCharacterID != characterID
	c.activeCharacterID = characterID
	partyID := c.activePartyID
	c.mu.Unlock()

	if !changed {
		return nil
	}

	if c.hooks.RefetchCharacterScope != nil {
		c.hooks.RefetchCharacterScope(ctx, characterID)
	}

	if partyID == "" {
		return nil
	}
	if c.hooks.SetActiveRemote != nil {
		if err := c.hooks.SetActiveRemote(ctx, partyID, characterID); err != nil {
			c.logger.Warn("remote set-active-character failed; local pointer kept",
				"party_id", partyID, "character_id", characterID, "error", err)
			return fmt.Errorf("coordinator: propagate active character: %w", err)
		}
	}
	if c.hooks.RefetchPartyDetail != nil {
		c.hooks.RefetchPartyDetail(ctx, partyID)
	}
	return nil
}

// Heal revalidates both pointers against the freshest caches. Called after
// every successful full sync.
//
// A dangling character pointer is recomputed: the active party's active
// membership wins when its character exists, otherwise the first roster
// character, otherwise unset. A dangling party pointer is cleared and the
// cleared value persisted.
func (c *Coordinator) Heal(ctx context.Context) {
	c.mu.Lock()
	charID := c.activeCharacterID
	partyID := c.activePartyID
	c.mu.Unlock()

	// An empty directory means the party scope has not synced yet, not that
	// the party is gone; validation waits for real data.
	if partyID != "" && c.parties.Len() > 0 && !c.parties.Has(partyID) {
		c.logger.Warn("active party no longer exists; clearing pointer", "party_id", partyID)
		c.mu.Lock()
		c.activePartyID = ""
		c.mu.Unlock()
		partyID = ""
		if c.hooks.PersistActiveParty != nil {
			if err := c.hooks.PersistActiveParty(""); err != nil {
				c.logger.Warn("failed to persist cleared active party", "error", err)
			}
		}
		if c.hooks.OnRepair != nil {
			c.hooks.OnRepair("dangling_party")
		}
	}

	if charID != "" && c.roster.Has(charID) {
		return
	}
	if c.roster.Len() == 0 {
		if charID != "" {
			c.mu.Lock()
			c.activeCharacterID = ""
			c.mu.Unlock()
		}
		return
	}

	replacement := c.pickActiveCharacter(partyID)
	if replacement == charID {
		return
	}

	c.logger.Warn("active character repaired", "was", charID, "now", replacement)
	c.mu.Lock()
	c.activeCharacterID = replacement
	c.mu.Unlock()
	if c.hooks.OnRepair != nil {
		c.hooks.OnRepair("dangling_character")
	}
	if c.hooks.RefetchCharacterScope != nil {
		c.hooks.RefetchCharacterScope(ctx, replacement)
	}
}

// pickActiveCharacter recomputes a valid active id from the freshest data:
// the active membership of partyID when its character is known, else the
// first roster character.
func (c *Coordinator) pickActiveCharacter(partyID string) string {
	if partyID != "" {
		for _, m := range c.memberships.List() {
			if m.PartyID == partyID && m.IsActive && c.roster.Has(m.CharacterID) {
				return m.CharacterID
			}
		}
	}
	roster := c.roster.List()
	if len(roster) == 0 {
		return ""
	}
	return roster[0].ID
}
