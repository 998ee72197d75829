// Package gamestate defines the persistable session record: party,
// inventory, quest log, world state and campaign progress.
//
// A GameState refers to campaign content only by string identifiers, so it
// can be saved and restored without the campaign document.
package gamestate

import (
	"maps"
	"slices"

	"github.com/louisbranch/campaign-viewer/internal/campaign/progress"
)

// GameState is the mutable session record. The zero value is usable but
// Default is preferred because its collections encode as empty, not null.
type GameState struct {
	CurrentCampaign  string                    `json:"currentCampaign"`
	CurrentScene     string                    `json:"currentScene"`
	Party            []PartyMember             `json:"party"`
	Inventory        []InventoryItem           `json:"inventory"`
	QuestLog         []Quest                   `json:"questLog"`
	WorldState       map[string]Value          `json:"worldState"`
	CampaignProgress progress.CampaignProgress `json:"campaignProgress"`
}

// Default returns the empty state a session starts with.
func Default() GameState {
	return GameState{
		Party:            []PartyMember{},
		Inventory:        []InventoryItem{},
		QuestLog:         []Quest{},
		WorldState:       map[string]Value{},
		CampaignProgress: progress.New(),
	}
}

type PartyMember struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Class     string         `json:"class"`
	Level     int            `json:"level"`
	HP        HitPoints      `json:"hp"`
	AC        int            `json:"ac"`
	Stats     Stats          `json:"stats"`
	Skills    map[string]int `json:"skills"`
	Equipment Equipment      `json:"equipment"`
}

type HitPoints struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

type Stats struct {
	Str int `json:"str"`
	Dex int `json:"dex"`
	Con int `json:"con"`
	Int int `json:"int"`
	Wis int `json:"wis"`
	Cha int `json:"cha"`
}

type Equipment struct {
	Weapon      *InventoryItem  `json:"weapon"`
	Armor       *InventoryItem  `json:"armor"`
	Shield      *InventoryItem  `json:"shield"`
	Accessories []InventoryItem `json:"accessories"`
}

// ItemType classifies inventory items.
type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemConsumable ItemType = "consumable"
	ItemQuest      ItemType = "quest_item"
	ItemMisc       ItemType = "misc"
)

type InventoryItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Quantity    int            `json:"quantity"`
	Type        ItemType       `json:"type"`
	Rarity      string         `json:"rarity"`
	Properties  map[string]any `json:"properties"`
}

// QuestStatus is the lifecycle of a quest.
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

type Quest struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      QuestStatus      `json:"status"`
	Objectives  []QuestObjective `json:"objectives"`
	Rewards     []QuestReward    `json:"rewards"`
}

type QuestObjective struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Type        string `json:"type"`
	Target      string `json:"target,omitempty"`
	Current     int    `json:"current,omitempty"`
	Required    int    `json:"required,omitempty"`
}

type QuestReward struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
	ItemID string `json:"itemId,omitempty"`
}

// Clone returns a deep copy of gs. Nil collections stay nil.
func (gs GameState) Clone() GameState {
	out := gs
	out.Party = cloneSlice(gs.Party, PartyMember.clone)
	out.Inventory = cloneSlice(gs.Inventory, InventoryItem.clone)
	out.QuestLog = cloneSlice(gs.QuestLog, Quest.clone)
	if gs.WorldState != nil {
		out.WorldState = make(map[string]Value, len(gs.WorldState))
		for k, v := range gs.WorldState {
			out.WorldState[k] = v.clone()
		}
	}
	out.CampaignProgress = gs.CampaignProgress.Clone()
	return out
}

func (m PartyMember) clone() PartyMember {
	out := m
	out.Skills = maps.Clone(m.Skills)
	out.Equipment.Weapon = cloneItemPtr(m.Equipment.Weapon)
	out.Equipment.Armor = cloneItemPtr(m.Equipment.Armor)
	out.Equipment.Shield = cloneItemPtr(m.Equipment.Shield)
	out.Equipment.Accessories = cloneSlice(m.Equipment.Accessories, InventoryItem.clone)
	return out
}

func (it InventoryItem) clone() InventoryItem {
	out := it
	if it.Properties != nil {
		out.Properties = cloneAny(it.Properties).(map[string]any)
	}
	return out
}

func (q Quest) clone() Quest {
	out := q
	out.Objectives = slices.Clone(q.Objectives)
	out.Rewards = slices.Clone(q.Rewards)
	return out
}

func cloneItemPtr(it *InventoryItem) *InventoryItem {
	if it == nil {
		return nil
	}
	c := it.clone()
	return &c
}

func cloneSlice[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

// cloneAny copies the containers produced by JSON decoding.
func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneAny(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return v
	}
}

// Patch names the fields UpdateGameState may replace. Nil fields are left
// unchanged. Campaign and scene identifiers are not patchable.
type Patch struct {
	Party            []PartyMember              `json:"party,omitempty"`
	Inventory        []InventoryItem            `json:"inventory,omitempty"`
	QuestLog         []Quest                    `json:"questLog,omitempty"`
	WorldState       map[string]Value           `json:"worldState,omitempty"`
	CampaignProgress *progress.CampaignProgress `json:"campaignProgress,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Party == nil && p.Inventory == nil && p.QuestLog == nil &&
		p.WorldState == nil && p.CampaignProgress == nil
}

// Apply shallow-merges p into a copy of gs.
func Apply(gs GameState, p Patch) GameState {
	out := gs.Clone()
	patch := GameState{
		Party:      p.Party,
		Inventory:  p.Inventory,
		QuestLog:   p.QuestLog,
		WorldState: p.WorldState,
	}.Clone()
	if p.Party != nil {
		out.Party = patch.Party
	}
	if p.Inventory != nil {
		out.Inventory = patch.Inventory
	}
	if p.QuestLog != nil {
		out.QuestLog = patch.QuestLog
	}
	if p.WorldState != nil {
		out.WorldState = patch.WorldState
	}
	if p.CampaignProgress != nil {
		out.CampaignProgress = p.CampaignProgress.Clone()
	}
	return out
}
