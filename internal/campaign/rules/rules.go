// Package rules evaluates transition triggers and requirements against game
// state, and applies dialogue consequences. Evaluation is pure.
package rules

import (
	"fmt"
	"strings"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

// ExploredKey is the world state flag marking a scene as explored.
func ExploredKey(sceneID string) string {
	return "explored." + sceneID
}

// Traversable reports whether tr, leaving fromSceneID, may be taken.
func Traversable(fromSceneID string, tr document.Transition, gs gamestate.GameState) bool {
	return CheckTransition(fromSceneID, tr, gs) == nil
}

// CheckTransition returns a TRANSITION_BLOCKED error naming the first unmet
// trigger or requirement, or nil when the edge may be taken.
func CheckTransition(fromSceneID string, tr document.Transition, gs gamestate.GameState) error {
	if !TriggerSatisfied(fromSceneID, tr, gs) {
		return blocked(fromSceneID, tr.To, fmt.Sprintf("trigger %s not satisfied", tr.Trigger))
	}
	for _, req := range tr.Requirements {
		if !RequirementMet(req, gs) {
			return blocked(fromSceneID, tr.To, fmt.Sprintf("requires %s %s", req.Type, req.Value))
		}
	}
	return nil
}

// TriggerSatisfied evaluates the transition trigger alone.
func TriggerSatisfied(fromSceneID string, tr document.Transition, gs gamestate.GameState) bool {
	switch tr.Trigger {
	case document.TriggerAutomatic, "":
		return true

	case document.TriggerQuestCompleted:
		referenced := false
		for _, req := range tr.Requirements {
			if req.Type != document.RequireQuest {
				continue
			}
			referenced = true
			q, ok := gamestate.FindQuest(gs.QuestLog, req.Value.String())
			if !ok || q.Status != gamestate.QuestCompleted {
				return false
			}
		}
		if referenced {
			return true
		}
		for _, q := range gs.QuestLog {
			if q.Status == gamestate.QuestCompleted {
				return true
			}
		}
		return false

	case document.TriggerItemFound:
		referenced := false
		for _, req := range tr.Requirements {
			if req.Type != document.RequireItem {
				continue
			}
			referenced = true
			if !gamestate.HasItem(gs.Inventory, req.Value.String()) {
				return false
			}
		}
		return referenced || gamestate.HasItemType(gs.Inventory, gamestate.ItemQuest)

	case document.TriggerAreaExplored:
		return gs.WorldState[ExploredKey(fromSceneID)].Truthy()

	case document.TriggerChoiceMade:
		for decision := range gs.CampaignProgress.ChoicesMade {
			if decision == fromSceneID || strings.HasPrefix(decision, fromSceneID+".") {
				return true
			}
		}
		return false

	default:
		return false
	}
}

// RequirementMet evaluates a single requirement. Unknown types never pass.
func RequirementMet(req document.Requirement, gs gamestate.GameState) bool {
	switch req.Type {
	case document.RequireQuest:
		q, ok := gamestate.FindQuest(gs.QuestLog, req.Value.String())
		return ok && q.Status != gamestate.QuestFailed
	case document.RequireItem:
		return gamestate.HasItem(gs.Inventory, req.Value.String())
	case document.RequireClue:
		return gs.CampaignProgress.HasClue(req.Value.String())
	case document.RequireLevelMinimum:
		minLevel, ok := req.Value.Int()
		if !ok || len(gs.Party) == 0 {
			return false
		}
		for _, member := range gs.Party {
			if member.Level < minLevel {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// RequirementsMet reports whether every requirement passes.
func RequirementsMet(reqs []document.Requirement, gs gamestate.GameState) bool {
	for _, req := range reqs {
		if !RequirementMet(req, gs) {
			return false
		}
	}
	return true
}

func blocked(from, to, reason string) error {
	return apperrors.WithMetadata(
		apperrors.CodeTransitionBlocked,
		fmt.Sprintf("transition %s -> %s blocked: %s", from, to, reason),
		map[string]string{"SceneID": to, "Reason": reason},
	)
}
