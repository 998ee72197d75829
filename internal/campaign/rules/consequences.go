package rules

import (
	"fmt"
	"slices"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/progress"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

// World state counters touched by consequences.
const (
	GoldKey       = "gold"
	ExperienceKey = "experience"
)

// ApplyConsequences applies cs in order to a copy of gs. Items named in the
// campaign's quest item list are added as quest items; c may be nil.
// If any consequence is invalid, gs is returned unchanged with an
// INVALID_ARGUMENT error.
func ApplyConsequences(c *document.Campaign, gs gamestate.GameState, cs []document.Consequence) (gamestate.GameState, error) {
	out := gs.Clone()
	for i, cons := range cs {
		next, err := apply(c, out, cons)
		if err != nil {
			return gs, apperrors.WrapWithMetadata(
				apperrors.CodeInvalidArgument,
				fmt.Sprintf("consequence %d", i),
				map[string]string{"Field": fmt.Sprintf("consequences[%d]", i)},
				err,
			)
		}
		out = next
	}
	return out, nil
}

func apply(c *document.Campaign, gs gamestate.GameState, cons document.Consequence) (gamestate.GameState, error) {
	value := cons.Value.String()
	switch cons.Type {
	case document.ConsequenceAddQuest:
		if value == "" {
			return gs, fmt.Errorf("add_quest needs a quest id")
		}
		gs.QuestLog = gamestate.AddQuest(gs.QuestLog, gamestate.Quest{ID: value, Title: value})

	case document.ConsequenceAddItem:
		if value == "" {
			return gs, fmt.Errorf("add_item needs an item id")
		}
		itemType := gamestate.ItemMisc
		if c != nil && slices.Contains(c.GlobalData.QuestItems, value) {
			itemType = gamestate.ItemQuest
		}
		gs.Inventory = gamestate.AddItem(gs.Inventory, gamestate.InventoryItem{
			ID:       value,
			Name:     value,
			Quantity: 1,
			Type:     itemType,
			Rarity:   "common",
		})

	case document.ConsequenceAddClue:
		if value == "" {
			return gs, fmt.Errorf("add_clue needs a clue id")
		}
		gs.CampaignProgress = progress.RecordClue(gs.CampaignProgress, value)

	case document.ConsequenceRelationshipChange:
		delta, ok := cons.Value.Int()
		if !ok {
			return gs, fmt.Errorf("relationship_change value %q is not a number", value)
		}
		if cons.Target == "" {
			return gs, fmt.Errorf("relationship_change needs a target")
		}
		gs.CampaignProgress = progress.AdjustRelationship(gs.CampaignProgress, cons.Target, delta)

	case document.ConsequenceAddGold, document.ConsequenceAddExperience:
		amount, ok := cons.Value.Int()
		if !ok {
			return gs, fmt.Errorf("%s value %q is not a number", cons.Type, value)
		}
		key := GoldKey
		if cons.Type == document.ConsequenceAddExperience {
			key = ExperienceKey
		}
		if gs.WorldState == nil {
			gs.WorldState = map[string]gamestate.Value{}
		}
		gs.WorldState[key] = gamestate.Counter(gs.WorldState[key].Counter + amount)

	default:
		return gs, fmt.Errorf("unknown consequence type %q", cons.Type)
	}
	return gs, nil
}
