package syncer

import (
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/cache"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/coordinator"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/gamestate"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/view"
)

// Read surface for views. Views consume these accessors and the derived
// projection; they never issue remote calls themselves.

// Roster returns the character roster cache.
func (s *Syncer) Roster() *cache.Store[gamestate.CharacterRecord] { return s.roster }

// Parties returns the party directory cache.
func (s *Syncer) Parties() *cache.Store[gamestate.PartyRecord] { return s.parties }

// Memberships returns the active party's membership detail cache.
func (s *Syncer) Memberships() *cache.Store[gamestate.PartyMembership] { return s.memberships }

// Inventory returns the active character's inventory cache.
func (s *Syncer) Inventory() *cache.Store[gamestate.InventoryItem] { return s.inventory }

// Quests returns the quest log cache.
func (s *Syncer) Quests() *cache.Store[gamestate.Quest] { return s.quests }

// Worlds returns the world state cache.
func (s *Syncer) Worlds() *cache.Store[gamestate.WorldState] { return s.worlds }

// Coordinator returns the consistency coordinator owning the active pointers.
func (s *Syncer) Coordinator() *coordinator.Coordinator { return s.coord }

// PartyRoster returns the memoized active-party display projection.
func (s *Syncer) PartyRoster() *view.PartyRoster { return s.partyView }
