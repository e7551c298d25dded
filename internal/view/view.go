// Package view computes read-only projections over the caches for the UI.
//
// Projections are memoized on the versions of their declared inputs. Views
// may re-invoke a projection on every paint tick; returning a freshly built
// container each time would feed a recompute loop in layered reactive
// systems, so an unchanged input set must yield the identical result value.
package view

import (
	"sort"
	"sync"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/cache"
	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/gamestate"
)

// ActivePointer reports the current active pointer of some scope.
type ActivePointer func() (id string, ok bool)

// PartyRoster projects "characters in the active party, in display order":
// the leader sorts first, the active character second, and the remaining
// members by their stored position ascending. Memberships whose character is
// not (or no longer) known to the roster are omitted rather than failing the
// projection.
//
// Safe for concurrent use. Create instances with [NewPartyRoster].
type PartyRoster struct {
	roster      *cache.Store[gamestate.CharacterRecord]
	memberships *cache.Store[gamestate.PartyMembership]
	activeParty ActivePointer
	activeChar  ActivePointer

	mu sync.Mutex
	// memo inputs: recompute only when one of these changes.
	rosterVersion     uint64
	membershipVersion uint64
	partyID           string
	characterID       string
	valid             bool
	cached            []gamestate.CharacterRecord
}

// NewPartyRoster returns a projection over the given caches and pointers.
func NewPartyRoster(
	roster *cache.Store[gamestate.CharacterRecord],
	memberships *cache.Store[gamestate.PartyMembership],
	activeParty, activeChar ActivePointer,
) *PartyRoster {
	return &PartyRoster{
		roster:      roster,
		memberships: memberships,
		activeParty: activeParty,
		activeChar:  activeChar,
	}
}

// Members returns the projected member list. Repeated calls with unchanged
// inputs return the identical slice — callers must treat it as read-only.
func (p *PartyRoster) Members() []gamestate.CharacterRecord {
	rosterV := p.roster.Version()
	membershipV := p.memberships.Version()
	partyID, _ := p.activeParty()
	characterID, _ := p.activeChar()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.valid &&
		p.rosterVersion == rosterV &&
		p.membershipVersion == membershipV &&
		p.partyID == partyID &&
		p.characterID == characterID {
		return p.cached
	}

	p.cached = p.compute(partyID, characterID)
	p.rosterVersion = rosterV
	p.membershipVersion = membershipV
	p.partyID = partyID
	p.characterID = characterID
	p.valid = true
	return p.cached
}

// MemberIDs returns the projected member ids in display order.
func (p *PartyRoster) MemberIDs() []string {
	members := p.Members()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

func (p *PartyRoster) compute(partyID, characterID string) []gamestate.CharacterRecord {
	if partyID == "" {
		return []gamestate.CharacterRecord{}
	}

	var members []gamestate.PartyMembership
	for _, m := range p.memberships.List() {
		if m.PartyID == partyID && p.roster.Has(m.CharacterID) {
			members = append(members, m)
		}
	}

	sort.SliceStable(members, func(i, j int) bool {
		ri, rj := displayRank(members[i], characterID), displayRank(members[j], characterID)
		if ri != rj {
			return ri < rj
		}
		return members[i].Position < members[j].Position
	})

	out := make([]gamestate.CharacterRecord, 0, len(members))
	for _, m := range members {
		if record, err := p.roster.Get(m.CharacterID); err == nil {
			out = append(out, record)
		}
	}
	return out
}

// displayRank orders the leader first, the active character second, everyone
// else after.
func displayRank(m gamestate.PartyMembership, activeCharacterID string) int {
	switch {
	case m.Role == gamestate.RoleLeader:
		return 0
	case m.CharacterID == activeCharacterID:
		return 1
	default:
		return 2
	}
}
