// Package progress tracks what a party has done in a campaign: scenes
// completed, clues found, NPC relationships, choices and elapsed time.
//
// Every function takes a CampaignProgress by value and returns a new one.
// Slices and maps are copied before they are changed, so the argument is
// never modified.
package progress

import (
	"maps"
	"math"
	"slices"
	"strconv"

	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

// CampaignProgress is the accumulating record of a playthrough.
type CampaignProgress struct {
	CompletedScenes  []string          `json:"completedScenes"`
	DiscoveredClues  []string          `json:"discoveredClues"`
	NPCRelationships map[string]int    `json:"npcRelationships"`
	ChoicesMade      map[string]string `json:"choicesMade"`
	// TimeElapsed is in minutes and never decreases.
	TimeElapsed int `json:"timeElapsed"`
}

// New returns empty progress with non-nil collections.
func New() CampaignProgress {
	return CampaignProgress{
		CompletedScenes:  []string{},
		DiscoveredClues:  []string{},
		NPCRelationships: map[string]int{},
		ChoicesMade:      map[string]string{},
	}
}

// Clone returns a deep copy. Nil collections stay nil.
func (p CampaignProgress) Clone() CampaignProgress {
	return CampaignProgress{
		CompletedScenes:  slices.Clone(p.CompletedScenes),
		DiscoveredClues:  slices.Clone(p.DiscoveredClues),
		NPCRelationships: maps.Clone(p.NPCRelationships),
		ChoicesMade:      maps.Clone(p.ChoicesMade),
		TimeElapsed:      p.TimeElapsed,
	}
}

// HasCompleted reports whether sceneID was recorded as completed.
func (p CampaignProgress) HasCompleted(sceneID string) bool {
	return slices.Contains(p.CompletedScenes, sceneID)
}

// HasClue reports whether clueID was discovered.
func (p CampaignProgress) HasClue(clueID string) bool {
	return slices.Contains(p.DiscoveredClues, clueID)
}

// Relationship returns the score for npcID, 0 when never adjusted.
func (p CampaignProgress) Relationship(npcID string) int {
	return p.NPCRelationships[npcID]
}

// Choice returns the option recorded for decisionID.
func (p CampaignProgress) Choice(decisionID string) (string, bool) {
	option, ok := p.ChoicesMade[decisionID]
	return option, ok
}

// RecordSceneCompleted appends sceneID unless it is already present.
// First-arrival order is preserved.
func RecordSceneCompleted(p CampaignProgress, sceneID string) CampaignProgress {
	next := p.Clone()
	next.CompletedScenes = appendIfAbsent(next.CompletedScenes, sceneID)
	return next
}

// RecordClue appends clueID unless it is already present.
func RecordClue(p CampaignProgress, clueID string) CampaignProgress {
	next := p.Clone()
	next.DiscoveredClues = appendIfAbsent(next.DiscoveredClues, clueID)
	return next
}

// AdjustRelationship adds delta to the npc's score. Scores are not clamped.
func AdjustRelationship(p CampaignProgress, npcID string, delta int) CampaignProgress {
	next := p.Clone()
	if next.NPCRelationships == nil {
		next.NPCRelationships = map[string]int{}
	}
	next.NPCRelationships[npcID] += delta
	return next
}

// RecordChoice stores optionID for decisionID, replacing any earlier choice.
func RecordChoice(p CampaignProgress, decisionID, optionID string) CampaignProgress {
	next := p.Clone()
	if next.ChoicesMade == nil {
		next.ChoicesMade = map[string]string{}
	}
	next.ChoicesMade[decisionID] = optionID
	return next
}

// AdvanceTime adds delta minutes. A negative delta, or one that would
// overflow the elapsed time, fails with INVALID_TIME_DELTA and returns p
// unchanged.
func AdvanceTime(p CampaignProgress, delta int) (CampaignProgress, error) {
	if delta < 0 {
		return p, apperrors.WithMetadata(
			apperrors.CodeInvalidTimeDelta,
			"time delta must not be negative",
			map[string]string{"Delta": strconv.Itoa(delta)},
		)
	}
	if delta > math.MaxInt-p.TimeElapsed {
		return p, apperrors.WithMetadata(
			apperrors.CodeInvalidTimeDelta,
			"time delta overflows elapsed time",
			map[string]string{"Delta": strconv.Itoa(delta)},
		)
	}
	next := p.Clone()
	next.TimeElapsed += delta
	return next, nil
}

func appendIfAbsent(values []string, value string) []string {
	if slices.Contains(values, value) {
		return values
	}
	return append(values, value)
}
