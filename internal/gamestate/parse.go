package gamestate

import (
	"strconv"
)

// Parsing in this file is deliberately forgiving. The remote service has
// shipped several endpoint revisions with diverging field names (camelCase vs
// snake_case, "hp" vs "hitPoints"), so every field lookup walks an ordered
// alias list and falls back to a documented default instead of failing the
// record. A record missing its identity field is dropped from the batch; the
// only exception is the legacy id-only quest stub handled by ParseQuestLog.

const (
	defaultAC    = 10
	defaultLevel = 1
)

// ParseCharacter builds a CharacterRecord from a decoded payload map.
// ok is false when the payload carries no usable id.
func ParseCharacter(m map[string]any) (CharacterRecord, bool) {
	id := getString(m, "id", "characterId", "character_id")
	if id == "" {
		return CharacterRecord{}, false
	}

	c := CharacterRecord{
		ID:    id,
		Name:  getString(m, "name", "characterName", "character_name"),
		Level: getInt(m, defaultLevel, "level", "lvl"),
		Class: getString(m, "class", "characterClass", "character_class"),
		AC:    getInt(m, defaultAC, "ac", "armorClass", "armor_class"),
		HP:    parsePool(m, "hp", "hitPoints", "hit_points"),
		XP:    parsePool(m, "xp", "experience"),
		Type:  CharacterType(getString(m, "characterType", "character_type", "type")),
	}
	if !c.Type.IsValid() {
		c.Type = CharacterPC
	}

	if ab, ok := getMap(m, "abilities", "abilityScores", "ability_scores", "stats"); ok {
		c.Abilities = AbilityScores{
			Strength:     getInt(ab, 0, "strength", "str"),
			Dexterity:    getInt(ab, 0, "dexterity", "dex"),
			Constitution: getInt(ab, 0, "constitution", "con"),
			Intelligence: getInt(ab, 0, "intelligence", "int"),
			Wisdom:       getInt(ab, 0, "wisdom", "wis"),
			Charisma:     getInt(ab, 0, "charisma", "cha"),
		}
	}

	if eq, ok := getMap(m, "equipment", "gear"); ok {
		c.Equipment = Equipment{
			Armor:   getString(eq, "armor"),
			Weapons: getStringSlice(eq, "weapons"),
			Other:   getStringSlice(eq, "other", "items"),
		}
	}

	return c, true
}

// parsePool reads a {current,max} pair. The pair may appear as a nested map
// under one of the given keys, or flattened at the top level as
// current<Key>/max<Key> (and snake_case variants).
func parsePool(m map[string]any, keys ...string) Pool {
	for _, key := range keys {
		if nested, ok := getMap(m, key); ok {
			return Pool{
				Current: getInt(nested, 0, "current", "value"),
				Max:     getInt(nested, 0, "max", "maximum"),
			}
		}
	}
	// Flattened variants: currentHp / maxHp / current_hp / max_hp etc.
	key := keys[0]
	upper := titleCase(key)
	return Pool{
		Current: getInt(m, 0, "current"+upper, "current_"+key, key),
		Max:     getInt(m, 0, "max"+upper, "max_"+key),
	}
}

// ParseCharacters parses a list payload, dropping entries without an id.
func ParseCharacters(raw any) []CharacterRecord {
	items := asMapSlice(raw, "characters", "roster")
	out := make([]CharacterRecord, 0, len(items))
	for _, m := range items {
		if c, ok := ParseCharacter(m); ok {
			out = append(out, c)
		}
	}
	return out
}

// ParseParty builds a PartyRecord from a decoded payload map.
func ParseParty(m map[string]any) (PartyRecord, bool) {
	id := getString(m, "id", "partyId", "party_id")
	if id == "" {
		return PartyRecord{}, false
	}
	p := PartyRecord{
		ID:          id,
		Name:        getString(m, "name", "partyName", "party_name"),
		Description: getString(m, "description"),
		Status:      PartyStatus(getString(m, "status")),
		Formation:   getString(m, "formation"),
		Location:    getString(m, "location", "currentLocation", "current_location"),
		Region:      getString(m, "region"),
		CreatedAt:   getString(m, "createdAt", "created_at"),
		UpdatedAt:   getString(m, "updatedAt", "updated_at"),
	}
	if !p.Status.IsValid() {
		p.Status = PartyActive
	}
	return p, true
}

// ParseParties parses a list payload, dropping entries without an id.
func ParseParties(raw any) []PartyRecord {
	items := asMapSlice(raw, "parties")
	out := make([]PartyRecord, 0, len(items))
	for _, m := range items {
		if p, ok := ParseParty(m); ok {
			out = append(out, p)
		}
	}
	return out
}

// ParseMembership builds a PartyMembership. partyID is the fallback when the
// payload omits its own party reference (per-party detail endpoints do).
func ParseMembership(m map[string]any, partyID string) (PartyMembership, bool) {
	characterID := getString(m, "characterId", "character_id", "memberId", "member_id")
	if characterID == "" {
		return PartyMembership{}, false
	}
	pid := getString(m, "partyId", "party_id")
	if pid == "" {
		pid = partyID
	}
	if pid == "" {
		return PartyMembership{}, false
	}
	mem := PartyMembership{
		PartyID:     pid,
		CharacterID: characterID,
		Role:        MemberRole(getString(m, "role")),
		IsActive:    getBool(m, "isActive", "is_active"),
		Position:    getInt(m, 0, "position", "order"),
		SharePct:    getFloat(m, "sharePct", "share_pct", "share"),
	}
	if !mem.Role.IsValid() {
		mem.Role = RoleMember
	}
	return mem, true
}

// ParseMemberships parses a membership list payload for one party. Duplicate
// (party, character) pairs keep the first occurrence.
func ParseMemberships(raw any, partyID string) []PartyMembership {
	items := asMapSlice(raw, "members", "memberships")
	out := make([]PartyMembership, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, m := range items {
		mem, ok := ParseMembership(m, partyID)
		if !ok || seen[mem.Key()] {
			continue
		}
		seen[mem.Key()] = true
		out = append(out, mem)
	}
	return out
}

// ParseInventory parses the detailed inventory payload, which is the
// canonical shape for the equipment-slot view. Quantity is clamped at zero.
func ParseInventory(raw any) []InventoryItem {
	items := asMapSlice(raw, "items", "inventory")
	out := make([]InventoryItem, 0, len(items))
	for _, m := range items {
		id := getString(m, "id", "itemId", "item_id")
		if id == "" {
			continue
		}
		qty := getInt(m, 0, "quantity", "qty", "count")
		if qty < 0 {
			qty = 0
		}
		out = append(out, InventoryItem{
			ID:          id,
			Name:        getString(m, "name", "itemName", "item_name"),
			Description: getString(m, "description"),
			Quantity:    qty,
			Type:        getString(m, "type", "itemType", "item_type"),
			Weight:      getFloat(m, "weight"),
			Value:       getFloat(m, "value", "cost"),
			Equipped:    getBool(m, "equipped", "isEquipped", "is_equipped"),
		})
	}
	return out
}

// ParseQuest builds a Quest from a decoded payload map.
func ParseQuest(m map[string]any) (Quest, bool) {
	id := getString(m, "id", "questId", "quest_id")
	if id == "" {
		return Quest{}, false
	}
	q := Quest{
		ID:     id,
		Title:  getString(m, "title", "name"),
		Status: QuestStatus(getString(m, "status")),
		Reward: getString(m, "reward", "rewards"),
	}
	if !q.Status.IsValid() {
		q.Status = QuestActive
	}
	q.Objectives = parseObjectives(m)
	return q, true
}

func parseObjectives(m map[string]any) []Objective {
	items := asMapSlice(m["objectives"])
	out := make([]Objective, 0, len(items))
	for _, om := range items {
		out = append(out, Objective{
			ID:          getString(om, "id", "objectiveId", "objective_id"),
			Description: getString(om, "description", "text"),
			Current:     getInt(om, 0, "current", "currentCount", "current_count"),
			Required:    getInt(om, 0, "required", "requiredCount", "required_count"),
			Completed:   getBool(om, "completed", "isCompleted", "is_completed"),
		})
	}
	return out
}

// ParseQuestLog parses a quest-log payload. Two generations of the endpoint
// exist: the current one returns full quest objects under "quests", the
// legacy one lists bare ids under "activeQuests". Legacy ids degrade to valid
// stub records (status active, no objectives). A quest appearing in both
// lists keeps the full record.
func ParseQuestLog(raw any) []Quest {
	out := []Quest{}
	seen := make(map[string]bool)

	m, isMap := raw.(map[string]any)

	var full any = raw
	if isMap {
		full = m["quests"]
	}
	for _, qm := range asMapSlice(full) {
		if q, ok := ParseQuest(qm); ok && !seen[q.ID] {
			seen[q.ID] = true
			out = append(out, q)
		}
	}

	if isMap {
		if stubs, ok := m["activeQuests"].([]any); ok {
			for _, s := range stubs {
				id, ok := s.(string)
				if !ok || id == "" || seen[id] {
					continue
				}
				seen[id] = true
				out = append(out, Quest{ID: id, Status: QuestActive, Objectives: []Objective{}})
			}
		}
	}

	return out
}

// ParseWorldState builds a WorldState from a decoded payload map.
func ParseWorldState(m map[string]any) (WorldState, bool) {
	id := getString(m, "id", "worldId", "world_id")
	if id == "" {
		return WorldState{}, false
	}
	w := WorldState{
		ID:       id,
		Name:     getString(m, "name", "worldName", "world_name"),
		Location: getString(m, "location", "currentLocation", "current_location"),
		Time:     getString(m, "time", "timeOfDay", "time_of_day"),
		Weather:  getString(m, "weather"),
		Date:     getString(m, "date", "calendarDate", "calendar_date"),
	}
	if env, ok := getMap(m, "environment"); ok {
		w.Environment = env
	}
	if npcs, ok := getMap(m, "npcs"); ok {
		w.NPCs = npcs
	}
	if events, ok := getMap(m, "events"); ok {
		w.Events = events
	}
	return w, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Field helpers
// ─────────────────────────────────────────────────────────────────────────────

// getString returns the first non-empty string found under the given keys.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// getInt returns the first numeric value found under the given keys, or def.
// JSON numbers decode as float64; numeric strings are also accepted because
// some endpoint revisions quote their counters.
func getInt(m map[string]any, def int, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return def
}

// getFloat returns the first numeric value found under the given keys, or 0.
func getFloat(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// getBool returns the first boolean found under the given keys, or false.
func getBool(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if b, ok := m[k].(bool); ok {
			return b
		}
	}
	return false
}

// getMap returns the first nested object found under the given keys.
func getMap(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if nested, ok := m[k].(map[string]any); ok {
			return nested, true
		}
	}
	return nil, false
}

// getStringSlice returns the first array of strings found under the given
// keys. Non-string elements are skipped.
func getStringSlice(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		arr, ok := m[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// asMapSlice coerces raw into a slice of object maps. raw may be the slice
// itself or an object wrapping the slice under one of the given keys.
// Non-object elements are skipped.
func asMapSlice(raw any, wrapperKeys ...string) []map[string]any {
	arr, ok := raw.([]any)
	if !ok {
		if m, isMap := raw.(map[string]any); isMap {
			for _, k := range wrapperKeys {
				if nested, found := m[k].([]any); found {
					arr = nested
					ok = true
					break
				}
			}
		}
	}
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, isMap := v.(map[string]any); isMap {
			out = append(out, m)
		}
	}
	return out
}

// titleCase upper-cases the first byte of an ASCII key ("hp" → "Hp").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
