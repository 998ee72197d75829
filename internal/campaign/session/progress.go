package session

import (
	"fmt"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/progress"
	"github.com/louisbranch/campaign-viewer/internal/campaign/rules"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

var checkTransition = rules.CheckTransition

// RecordClue adds clueID to the discovered clues.
func (s *Session) RecordClue(clueID string) error {
	if clueID == "" {
		return invalidArgument("clue id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameState.CampaignProgress = progress.RecordClue(s.gameState.CampaignProgress, clueID)
	s.publishLocked()
	return nil
}

// AdjustRelationship adds delta to the relationship score with npcID.
func (s *Session) AdjustRelationship(npcID string, delta int) error {
	if npcID == "" {
		return invalidArgument("npc id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameState.CampaignProgress = progress.AdjustRelationship(s.gameState.CampaignProgress, npcID, delta)
	s.publishLocked()
	return nil
}

// RecordChoice stores optionID as the answer to decisionID.
func (s *Session) RecordChoice(decisionID, optionID string) error {
	if decisionID == "" {
		return invalidArgument("decision id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameState.CampaignProgress = progress.RecordChoice(s.gameState.CampaignProgress, decisionID, optionID)
	s.publishLocked()
	return nil
}

// AdvanceTime moves the clock forward by minutes. Negative deltas return
// INVALID_TIME_DELTA and change nothing.
func (s *Session) AdvanceTime(minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := progress.AdvanceTime(s.gameState.CampaignProgress, minutes)
	if err != nil {
		return err
	}
	s.gameState.CampaignProgress = next
	s.publishLocked()
	return nil
}

// Explore flags the current scene as explored, which opens its
// area_explored exits.
func (s *Session) Explore() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCampaignLocked("explore"); err != nil {
		return err
	}
	world := make(map[string]gamestate.Value, len(s.gameState.WorldState)+1)
	for k, v := range s.gameState.WorldState {
		world[k] = v
	}
	world[rules.ExploredKey(s.scene.ID)] = gamestate.Flag(true)
	s.gameState = gamestate.Apply(s.gameState, gamestate.Patch{WorldState: world})
	s.publishLocked()
	return nil
}

// Choose takes a dialogue choice offered by an NPC of the current scene.
// The choice's requirements must pass; its consequences are applied as a
// whole and the choice is recorded under "<scene>.<npc>".
func (s *Session) Choose(npcID, choiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCampaignLocked("choose"); err != nil {
		return err
	}
	npc, ok := s.scene.NPC(npcID)
	if !ok {
		return invalidArgument("npc " + npcID)
	}
	choice, ok := npc.Dialogue.Choice(choiceID)
	if !ok {
		return invalidArgument("choice " + choiceID)
	}
	if !rules.RequirementsMet(choice.Requirements, s.gameState) {
		return apperrors.WithMetadata(
			apperrors.CodeInvalidArgument,
			fmt.Sprintf("requirements for %s not met", choiceID),
			map[string]string{"Field": "choice " + choiceID},
		)
	}
	next, err := rules.ApplyConsequences(s.campaign, s.gameState, choice.Consequences)
	if err != nil {
		return err
	}
	next.CampaignProgress = progress.RecordChoice(next.CampaignProgress, DecisionID(s.scene.ID, npcID), choiceID)
	s.gameState = next
	s.publishLocked()
	return nil
}

// ApplyConsequences applies cs to the game state. Nothing changes when any
// consequence is invalid.
func (s *Session) ApplyConsequences(cs []document.Consequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := rules.ApplyConsequences(s.campaign, s.gameState, cs)
	if err != nil {
		return err
	}
	s.gameState = next
	s.publishLocked()
	return nil
}

// DecisionID names the choice made talking to npcID in sceneID.
func DecisionID(sceneID, npcID string) string {
	return sceneID + "." + npcID
}

func invalidArgument(field string) error {
	return apperrors.WithMetadata(
		apperrors.CodeInvalidArgument,
		"invalid "+field,
		map[string]string{"Field": field},
	)
}
