// Package gamestate defines the record types held by the local caches and the
// defensive parsers that build them from remote tool payloads.
//
// Records mirror the canonical game-state service. They are replaced wholesale
// on each sync; nothing in this package mutates a record after it has been
// parsed.
package gamestate

// CharacterType classifies a roster entry.
type CharacterType string

const (
	CharacterPC      CharacterType = "pc"
	CharacterNPC     CharacterType = "npc"
	CharacterEnemy   CharacterType = "enemy"
	CharacterNeutral CharacterType = "neutral"
)

// IsValid reports whether t is a recognised character type.
func (t CharacterType) IsValid() bool {
	switch t {
	case CharacterPC, CharacterNPC, CharacterEnemy, CharacterNeutral:
		return true
	}
	return false
}

// Pool is a current/max pair used for hit points and experience.
type Pool struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// AbilityScores holds the six standard ability scores.
type AbilityScores struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Equipment is the worn and carried gear summary on a character record.
type Equipment struct {
	Armor   string   `json:"armor"`
	Weapons []string `json:"weapons"`
	Other   []string `json:"other"`
}

// CharacterRecord is one roster entry. Records are overwritten wholesale on
// each roster refetch; individual mutations (level-up etc.) happen remotely
// and show up here only after the next sync.
type CharacterRecord struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Level     int           `json:"level"`
	Class     string        `json:"class"`
	HP        Pool          `json:"hp"`
	XP        Pool          `json:"xp"`
	AC        int           `json:"ac"`
	Abilities AbilityScores `json:"abilities"`
	Equipment Equipment     `json:"equipment"`
	Type      CharacterType `json:"characterType"`
}

// Key returns the cache key for the record.
func (c CharacterRecord) Key() string { return c.ID }

// PartyStatus is the lifecycle state of a party.
type PartyStatus string

const (
	PartyActive   PartyStatus = "active"
	PartyDormant  PartyStatus = "dormant"
	PartyArchived PartyStatus = "archived"
)

// IsValid reports whether s is a recognised party status.
func (s PartyStatus) IsValid() bool {
	switch s {
	case PartyActive, PartyDormant, PartyArchived:
		return true
	}
	return false
}

// PartyRecord is one entry in the party directory.
type PartyRecord struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Status      PartyStatus `json:"status"`
	Formation   string      `json:"formation"`
	Location    string      `json:"location"`
	Region      string      `json:"region"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt"`
}

// Key returns the cache key for the record.
func (p PartyRecord) Key() string { return p.ID }

// MemberRole is a character's function within a party.
type MemberRole string

const (
	RoleLeader    MemberRole = "leader"
	RoleMember    MemberRole = "member"
	RoleCompanion MemberRole = "companion"
	RoleHireling  MemberRole = "hireling"
	RolePrisoner  MemberRole = "prisoner"
	RoleMount     MemberRole = "mount"
)

// IsValid reports whether r is a recognised member role.
func (r MemberRole) IsValid() bool {
	switch r {
	case RoleLeader, RoleMember, RoleCompanion, RoleHireling, RolePrisoner, RoleMount:
		return true
	}
	return false
}

// PartyMembership joins a party to a character. At most one membership exists
// per (party, character) pair and at most one membership per party carries
// IsActive (the point-of-view character).
type PartyMembership struct {
	PartyID     string     `json:"partyId"`
	CharacterID string     `json:"characterId"`
	Role        MemberRole `json:"role"`
	IsActive    bool       `json:"isActive"`
	Position    int        `json:"position"`
	SharePct    float64    `json:"sharePct"`
}

// Key returns the cache key for the membership: the (party, character) pair.
func (m PartyMembership) Key() string { return m.PartyID + "/" + m.CharacterID }

// InventoryItem belongs to exactly one character at a time (the active one).
// The whole item set is replaced on each fetch, never merged.
type InventoryItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Type        string  `json:"type"`
	Weight      float64 `json:"weight,omitempty"`
	Value       float64 `json:"value,omitempty"`
	Equipped    bool    `json:"equipped"`
}

// Key returns the cache key for the item.
func (i InventoryItem) Key() string { return i.ID }

// QuestStatus is the progression state of a quest.
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

// IsValid reports whether s is a recognised quest status.
func (s QuestStatus) IsValid() bool {
	switch s {
	case QuestActive, QuestCompleted, QuestFailed:
		return true
	}
	return false
}

// Objective is one step of a quest, ordered by its slice position.
type Objective struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Current     int    `json:"current"`
	Required    int    `json:"required"`
	Completed   bool   `json:"completed"`
}

// Quest is one quest-log entry. Legacy payloads may carry only an id and a
// status; those still parse into a valid record with empty objectives.
type Quest struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Status     QuestStatus `json:"status"`
	Objectives []Objective `json:"objectives"`
	Reward     string      `json:"reward"`
}

// Key returns the cache key for the quest.
func (q Quest) Key() string { return q.ID }

// WorldState is the environment snapshot for one world, replaced wholesale
// per active world. Environment, NPCs and Events are open-ended maps owned by
// the remote service; this layer stores them opaquely.
type WorldState struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Location    string         `json:"location"`
	Time        string         `json:"time"`
	Weather     string         `json:"weather"`
	Date        string         `json:"date"`
	Environment map[string]any `json:"environment"`
	NPCs        map[string]any `json:"npcs"`
	Events      map[string]any `json:"events"`
}

// Key returns the cache key for the world.
func (w WorldState) Key() string { return w.ID }
