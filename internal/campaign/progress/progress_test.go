package progress

import (
	"math"
	"reflect"
	"testing"

	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

func TestRecordSceneCompletedDeduplicatesInFirstVisitOrder(t *testing.T) {
	p := New()
	for _, id := range []string{"town_square", "forest_road", "town_square", "merchant_camp", "forest_road"} {
		p = RecordSceneCompleted(p, id)
	}
	want := []string{"town_square", "forest_road", "merchant_camp"}
	if !reflect.DeepEqual(p.CompletedScenes, want) {
		t.Fatalf("completed = %v, want %v", p.CompletedScenes, want)
	}
}

func TestRecordSceneCompletedDoesNotMutateArgument(t *testing.T) {
	base := New()
	base.CompletedScenes = make([]string, 1, 8)
	base.CompletedScenes[0] = "a"

	first := RecordSceneCompleted(base, "b")
	second := RecordSceneCompleted(base, "c")

	if len(base.CompletedScenes) != 1 {
		t.Fatalf("argument changed: %v", base.CompletedScenes)
	}
	if first.CompletedScenes[1] != "b" || second.CompletedScenes[1] != "c" {
		t.Fatalf("results share storage: %v %v", first.CompletedScenes, second.CompletedScenes)
	}
}

func TestRecordClue(t *testing.T) {
	p := RecordClue(RecordClue(RecordClue(New(), "torn_ledger"), "cart_tracks"), "torn_ledger")
	if !reflect.DeepEqual(p.DiscoveredClues, []string{"torn_ledger", "cart_tracks"}) {
		t.Fatalf("clues = %v", p.DiscoveredClues)
	}
	if !p.HasClue("cart_tracks") || p.HasClue("signet_ring") {
		t.Fatal("HasClue mismatch")
	}
}

func TestAdjustRelationshipIsAdditive(t *testing.T) {
	var p CampaignProgress
	p = AdjustRelationship(p, "captain_reyna", 2)
	p = AdjustRelationship(p, "captain_reyna", -5)
	if got := p.Relationship("captain_reyna"); got != -3 {
		t.Fatalf("relationship = %d, want -3", got)
	}
	if got := p.Relationship("aldric"); got != 0 {
		t.Fatalf("unknown npc relationship = %d, want 0", got)
	}
}

func TestAdjustRelationshipDoesNotMutateArgument(t *testing.T) {
	base := AdjustRelationship(New(), "aldric", 1)
	_ = AdjustRelationship(base, "aldric", 10)
	if got := base.Relationship("aldric"); got != 1 {
		t.Fatalf("argument changed to %d", got)
	}
}

func TestRecordChoiceLastWriteWins(t *testing.T) {
	p := RecordChoice(New(), "town_square.job", "demand_pay")
	p = RecordChoice(p, "town_square.job", "accept_job")
	if got, ok := p.Choice("town_square.job"); !ok || got != "accept_job" {
		t.Fatalf("choice = %q, %v, want accept_job", got, ok)
	}
}

func TestAdvanceTime(t *testing.T) {
	p := New()
	p.TimeElapsed = 30

	same, err := AdvanceTime(p, 0)
	if err != nil {
		t.Fatalf("AdvanceTime(0): %v", err)
	}
	if same.TimeElapsed != 30 {
		t.Fatalf("time = %d, want 30", same.TimeElapsed)
	}

	later, err := AdvanceTime(p, 45)
	if err != nil {
		t.Fatalf("AdvanceTime(45): %v", err)
	}
	if later.TimeElapsed != 75 || p.TimeElapsed != 30 {
		t.Fatalf("time = %d (argument %d), want 75 (30)", later.TimeElapsed, p.TimeElapsed)
	}

	back, err := AdvanceTime(p, -1)
	if !apperrors.HasCode(err, apperrors.CodeInvalidTimeDelta) {
		t.Fatalf("AdvanceTime(-1) error = %v, want INVALID_TIME_DELTA", err)
	}
	if back.TimeElapsed != 30 {
		t.Fatalf("time after rejected delta = %d, want 30", back.TimeElapsed)
	}
}

func TestAdvanceTimeRejectsOverflow(t *testing.T) {
	p := New()
	p.TimeElapsed = math.MaxInt - 10

	edge, err := AdvanceTime(p, 10)
	if err != nil {
		t.Fatalf("AdvanceTime(10): %v", err)
	}
	if edge.TimeElapsed != math.MaxInt {
		t.Fatalf("time = %d, want %d", edge.TimeElapsed, math.MaxInt)
	}

	over, err := AdvanceTime(edge, 1)
	if !apperrors.HasCode(err, apperrors.CodeInvalidTimeDelta) {
		t.Fatalf("AdvanceTime(1) error = %v, want INVALID_TIME_DELTA", err)
	}
	if over.TimeElapsed != math.MaxInt {
		t.Fatalf("time after rejected delta = %d, want %d", over.TimeElapsed, math.MaxInt)
	}
}

func TestCloneKeepsNilCollections(t *testing.T) {
	var p CampaignProgress
	c := p.Clone()
	if c.CompletedScenes != nil || c.NPCRelationships != nil {
		t.Fatalf("clone = %+v, want nil collections", c)
	}
}
