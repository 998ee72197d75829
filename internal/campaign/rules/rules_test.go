package rules

import (
	"testing"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/progress"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

func req(t document.RequirementType, v document.Scalar) document.Requirement {
	return document.Requirement{Type: t, Value: v}
}

func TestTriggerSatisfied(t *testing.T) {
	completed := gamestate.Default()
	completed.QuestLog = []gamestate.Quest{{ID: "find_merchant", Status: gamestate.QuestCompleted}}

	active := gamestate.Default()
	active.QuestLog = []gamestate.Quest{{ID: "find_merchant", Status: gamestate.QuestActive}}

	explored := gamestate.Default()
	explored.WorldState[ExploredKey("forest_road")] = gamestate.Flag(true)

	chose := gamestate.Default()
	chose.CampaignProgress = progress.RecordChoice(chose.CampaignProgress, "festival_grounds.enter", "enter_contest")

	keyHolder := gamestate.Default()
	keyHolder.Inventory = []gamestate.InventoryItem{{ID: "mill_key", Quantity: 1, Type: gamestate.ItemQuest}}

	questReq := []document.Requirement{req(document.RequireQuest, document.Text("find_merchant"))}
	itemReq := []document.Requirement{req(document.RequireItem, document.Text("mill_key"))}

	tests := []struct {
		name string
		from string
		tr   document.Transition
		gs   gamestate.GameState
		want bool
	}{
		{name: "automatic", tr: document.Transition{Trigger: document.TriggerAutomatic}, gs: gamestate.Default(), want: true},
		{name: "quest referenced completed", tr: document.Transition{Trigger: document.TriggerQuestCompleted, Requirements: questReq}, gs: completed, want: true},
		{name: "quest referenced active", tr: document.Transition{Trigger: document.TriggerQuestCompleted, Requirements: questReq}, gs: active, want: false},
		{name: "any quest completed", tr: document.Transition{Trigger: document.TriggerQuestCompleted}, gs: completed, want: true},
		{name: "no quest completed", tr: document.Transition{Trigger: document.TriggerQuestCompleted}, gs: active, want: false},
		{name: "explored", from: "forest_road", tr: document.Transition{Trigger: document.TriggerAreaExplored}, gs: explored, want: true},
		{name: "not explored", from: "town_square", tr: document.Transition{Trigger: document.TriggerAreaExplored}, gs: explored, want: false},
		{name: "choice under scene", from: "festival_grounds", tr: document.Transition{Trigger: document.TriggerChoiceMade}, gs: chose, want: true},
		{name: "choice elsewhere", from: "festival", tr: document.Transition{Trigger: document.TriggerChoiceMade}, gs: chose, want: false},
		{name: "item referenced", tr: document.Transition{Trigger: document.TriggerItemFound, Requirements: itemReq}, gs: keyHolder, want: true},
		{name: "item missing", tr: document.Transition{Trigger: document.TriggerItemFound, Requirements: itemReq}, gs: gamestate.Default(), want: false},
		{name: "any quest item", tr: document.Transition{Trigger: document.TriggerItemFound}, gs: keyHolder, want: true},
		{name: "unknown trigger", tr: document.Transition{Trigger: "moon_phase"}, gs: gamestate.Default(), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TriggerSatisfied(tt.from, tt.tr, tt.gs); got != tt.want {
				t.Fatalf("TriggerSatisfied = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequirementMet(t *testing.T) {
	gs := gamestate.Default()
	gs.Party = []gamestate.PartyMember{{ID: "a", Level: 3}, {ID: "b", Level: 2}}
	gs.QuestLog = []gamestate.Quest{{ID: "lost", Status: gamestate.QuestFailed}, {ID: "find_merchant", Status: gamestate.QuestActive}}
	gs.CampaignProgress = progress.RecordClue(gs.CampaignProgress, "cart_tracks")

	tests := []struct {
		req  document.Requirement
		gs   gamestate.GameState
		want bool
	}{
		{req(document.RequireQuest, document.Text("find_merchant")), gs, true},
		{req(document.RequireQuest, document.Text("lost")), gs, false},
		{req(document.RequireClue, document.Text("cart_tracks")), gs, true},
		{req(document.RequireClue, document.Text("torn_ledger")), gs, false},
		{req(document.RequireItem, document.Text("rope")), gs, false},
		{req(document.RequireLevelMinimum, document.Number(2)), gs, true},
		{req(document.RequireLevelMinimum, document.Number(3)), gs, false},
		{req(document.RequireLevelMinimum, document.Text("2")), gs, true},
		{req(document.RequireLevelMinimum, document.Number(1)), gamestate.Default(), false},
		{req("has_charm", document.Text("x")), gs, false},
	}
	for _, tt := range tests {
		if got := RequirementMet(tt.req, tt.gs); got != tt.want {
			t.Fatalf("RequirementMet(%s %s) = %v, want %v", tt.req.Type, tt.req.Value, got, tt.want)
		}
	}
}

func TestCheckTransitionReportsBlocked(t *testing.T) {
	tr := document.Transition{
		To:           "contest_tent",
		Trigger:      document.TriggerAutomatic,
		Requirements: []document.Requirement{req(document.RequireLevelMinimum, document.Number(2))},
	}
	err := CheckTransition("festival_grounds", tr, gamestate.Default())
	if !apperrors.HasCode(err, apperrors.CodeTransitionBlocked) {
		t.Fatalf("CheckTransition error = %v, want TRANSITION_BLOCKED", err)
	}

	gs := gamestate.Default()
	gs.Party = []gamestate.PartyMember{{ID: "a", Level: 2}}
	if !Traversable("festival_grounds", tr, gs) {
		t.Fatal("expected level 2 party to pass")
	}
}

func TestApplyConsequences(t *testing.T) {
	c := &document.Campaign{GlobalData: document.GlobalData{QuestItems: []string{"signet_ring"}}}
	gs := gamestate.Default()
	cs := []document.Consequence{
		{Type: document.ConsequenceAddQuest, Value: document.Text("find_merchant")},
		{Type: document.ConsequenceRelationshipChange, Value: document.Number(2), Target: "captain_reyna"},
		{Type: document.ConsequenceAddItem, Value: document.Text("signet_ring")},
		{Type: document.ConsequenceAddItem, Value: document.Text("signet_ring")},
		{Type: document.ConsequenceAddClue, Value: document.Text("torn_ledger")},
		{Type: document.ConsequenceAddGold, Value: document.Number(25)},
		{Type: document.ConsequenceAddGold, Value: document.Text("5")},
		{Type: document.ConsequenceAddExperience, Value: document.Number(100)},
	}
	out, err := ApplyConsequences(c, gs, cs)
	if err != nil {
		t.Fatalf("ApplyConsequences: %v", err)
	}
	if q, ok := gamestate.FindQuest(out.QuestLog, "find_merchant"); !ok || q.Status != gamestate.QuestActive {
		t.Fatalf("quest = %+v, %v", q, ok)
	}
	if got := out.CampaignProgress.Relationship("captain_reyna"); got != 2 {
		t.Fatalf("relationship = %d, want 2", got)
	}
	if len(out.Inventory) != 1 || out.Inventory[0].Quantity != 2 || out.Inventory[0].Type != gamestate.ItemQuest {
		t.Fatalf("inventory = %+v", out.Inventory)
	}
	if !out.CampaignProgress.HasClue("torn_ledger") {
		t.Fatal("expected clue")
	}
	if out.WorldState[GoldKey].Counter != 30 || out.WorldState[ExperienceKey].Counter != 100 {
		t.Fatalf("world = %+v", out.WorldState)
	}
	if len(gs.QuestLog) != 0 || len(gs.WorldState) != 0 {
		t.Fatal("ApplyConsequences mutated its argument")
	}
}

func TestApplyConsequencesIsAllOrNothing(t *testing.T) {
	gs := gamestate.Default()
	cs := []document.Consequence{
		{Type: document.ConsequenceAddClue, Value: document.Text("torn_ledger")},
		{Type: document.ConsequenceRelationshipChange, Value: document.Text("lots"), Target: "aldric"},
	}
	out, err := ApplyConsequences(nil, gs, cs)
	if !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
	if out.CampaignProgress.HasClue("torn_ledger") {
		t.Fatal("partial consequences were applied")
	}
}
