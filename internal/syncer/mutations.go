package syncer

import (
	"context"
	"fmt"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc"
)

// Mutations are performed remotely and reflected locally only after a
// reconciling refetch — there is no optimistic field patching. Each wrapper
// calls its tool, surfaces an embedded error as an advisory message, and
// schedules a debounced resync on success.

// mutate runs one remote mutation and schedules the reconciling sync.
func (s *Syncer) mutate(ctx context.Context, tool string, args map[string]any) error {
	raw, err := s.caller.CallTool(ctx, tool, args)
	if err != nil {
		s.logger.Warn("mutation failed", "tool", tool, "error", err)
		return fmt.Errorf("syncer: %s: %w", tool, err)
	}
	if rpc.IsErrorResponse(raw) {
		msg := rpc.ErrorMessage(raw)
		s.logger.Warn("mutation rejected", "tool", tool, "message", msg)
		return fmt.Errorf("syncer: %s: %s", tool, msg)
	}
	s.RequestSync(false)
	return nil
}

// SetActiveCharacter switches the point-of-view character through the
// coordinator, which propagates the change to the active party remotely.
func (s *Syncer) SetActiveCharacter(ctx context.Context, characterID string) error {
	return s.coord.SetActiveCharacter(ctx, characterID)
}

// SetActiveParty switches the active party through the coordinator.
func (s *Syncer) SetActiveParty(ctx context.Context, partyID string) error {
	return s.coord.SetActiveParty(ctx, partyID)
}

// SetPartyLeader promotes a member to party leader.
func (s *Syncer) SetPartyLeader(ctx context.Context, partyID, characterID string) error {
	return s.mutate(ctx, toolSetPartyLeader, map[string]any{
		"party_id":     partyID,
		"character_id": characterID,
	})
}

// AddPartyMember adds a character to a party with the given role.
func (s *Syncer) AddPartyMember(ctx context.Context, partyID, characterID, role string) error {
	return s.mutate(ctx, toolAddPartyMember, map[string]any{
		"party_id":     partyID,
		"character_id": characterID,
		"role":         role,
	})
}

// RemovePartyMember removes a character from a party.
func (s *Syncer) RemovePartyMember(ctx context.Context, partyID, characterID string) error {
	return s.mutate(ctx, toolRemovePartyMember, map[string]any{
		"party_id":     partyID,
		"character_id": characterID,
	})
}

// CreateParty creates a new party.
func (s *Syncer) CreateParty(ctx context.Context, fields map[string]any) error {
	return s.mutate(ctx, toolCreateParty, fields)
}

// UpdateParty updates fields on an existing party.
func (s *Syncer) UpdateParty(ctx context.Context, partyID string, fields map[string]any) error {
	args := map[string]any{"party_id": partyID}
	for k, v := range fields {
		args[k] = v
	}
	return s.mutate(ctx, toolUpdateParty, args)
}

// DeleteParty deletes a party.
func (s *Syncer) DeleteParty(ctx context.Context, partyID string) error {
	return s.mutate(ctx, toolDeleteParty, map[string]any{"party_id": partyID})
}

// CreateCharacter creates a new character.
func (s *Syncer) CreateCharacter(ctx context.Context, fields map[string]any) error {
	return s.mutate(ctx, toolCreateCharacter, fields)
}

// UpdateCharacter updates fields on an existing character.
func (s *Syncer) UpdateCharacter(ctx context.Context, characterID string, fields map[string]any) error {
	args := map[string]any{"character_id": characterID}
	for k, v := range fields {
		args[k] = v
	}
	return s.mutate(ctx, toolUpdateCharacter, args)
}

// DeleteCharacter deletes a character.
func (s *Syncer) DeleteCharacter(ctx context.Context, characterID string) error {
	return s.mutate(ctx, toolDeleteCharacter, map[string]any{"character_id": characterID})
}
