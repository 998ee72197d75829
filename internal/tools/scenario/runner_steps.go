package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
)

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	ctx, span := r.tracer.Start(ctx, "scenario.step", trace.WithAttributes(
		attribute.String("scenario.step.kind", step.Kind),
	))
	defer span.End()

	switch step.Kind {
	case "load":
		return r.runLoadStep(ctx, state, step)
	case "transition":
		scene := requiredString(step.Args, "scene")
		return r.checkOutcome(state, step.Args, r.session.TransitionToScene(ctx, scene))
	case "travel":
		scene := requiredString(step.Args, "scene")
		return r.checkOutcome(state, step.Args, r.session.Travel(ctx, scene))
	case "explore":
		return r.checkOutcome(state, step.Args, r.session.Explore())
	case "talk":
		npc := requiredString(step.Args, "npc")
		choice := requiredString(step.Args, "choice")
		return r.checkOutcome(state, step.Args, r.session.Choose(npc, choice))
	case "clue":
		return r.checkOutcome(state, step.Args, r.session.RecordClue(requiredString(step.Args, "clue")))
	case "relationship":
		npc := requiredString(step.Args, "npc")
		delta := optionalInt(step.Args, "delta", 0)
		return r.checkOutcome(state, step.Args, r.session.AdjustRelationship(npc, delta))
	case "decide":
		decision := requiredString(step.Args, "decision")
		option := optionalString(step.Args, "option", "")
		return r.checkOutcome(state, step.Args, r.session.RecordChoice(decision, option))
	case "wait":
		minutes := optionalInt(step.Args, "minutes", 0)
		return r.checkOutcome(state, step.Args, r.session.AdvanceTime(minutes))
	case "patch":
		return r.runPatchStep(state, step)
	case "save":
		return r.runSaveStep(ctx, state, step)
	case "restore":
		return r.runRestoreStep(ctx, state, step)
	case "reset":
		r.session.ResetCampaign()
		state.lastErr = nil
		return nil
	case "retry":
		return r.checkOutcome(state, step.Args, r.session.Retry(ctx))
	case "expect":
		return r.runExpectStep(step)
	case "expect_exit":
		return r.runExpectExitStep(step)
	default:
		return r.failf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runLoadStep(ctx context.Context, state *scenarioState, step Step) error {
	campaignID := requiredString(step.Args, "campaign")
	if campaignID == "" {
		return r.failf("load requires a campaign id")
	}
	return r.checkOutcome(state, step.Args, r.session.LoadCampaign(ctx, campaignID))
}

// runPatchStep decodes the Lua table through JSON so it takes the same
// shape as a gamestate patch sent over HTTP.
func (r *Runner) runPatchStep(state *scenarioState, step Step) error {
	raw, err := json.Marshal(step.Args["patch"])
	if err != nil {
		return r.failf("encode patch: %v", err)
	}
	var patch gamestate.Patch
	if err := json.Unmarshal(raw, &patch); err != nil {
		return r.failf("decode patch: %v", err)
	}
	r.session.UpdateGameState(patch)
	state.lastErr = nil
	return nil
}

func (r *Runner) runSaveStep(ctx context.Context, state *scenarioState, step Step) error {
	state.saved = r.session.SaveProgress(ctx)
	state.lastErr = nil
	want, ok := readBool(step.Args, "expect_saved")
	if !ok {
		want = true
	}
	if state.saved != want {
		return r.assertf("saved = %v, want %v", state.saved, want)
	}
	return nil
}

func (r *Runner) runRestoreStep(ctx context.Context, state *scenarioState, step Step) error {
	restored, err := r.session.LoadProgress(ctx)
	state.restored = restored
	if err := r.checkOutcome(state, step.Args, err); err != nil {
		return err
	}
	if want, ok := readBool(step.Args, "expect_restored"); ok && restored != want {
		return r.assertf("restored = %v, want %v", restored, want)
	}
	return nil
}

func (r *Runner) runExpectStep(step Step) error {
	view := r.session.View()
	progress := view.GameState.CampaignProgress

	if want := requiredString(step.Args, "state"); want != "" && string(view.State) != want {
		if err := r.assertf("state = %s, want %s", view.State, want); err != nil {
			return err
		}
	}
	if want, ok := step.Args["scene"]; ok {
		got := ""
		if view.Scene != nil {
			got = view.Scene.ID
		}
		if text, _ := want.(string); got != text {
			if err := r.assertf("scene = %q, want %q", got, text); err != nil {
				return err
			}
		}
	}
	if want, ok := step.Args["campaign"]; ok {
		got := ""
		if view.Campaign != nil {
			got = view.Campaign.ID
		}
		if text, _ := want.(string); got != text {
			if err := r.assertf("campaign = %q, want %q", got, text); err != nil {
				return err
			}
		}
	}
	if want, ok := step.Args["error"]; ok {
		got := ""
		if view.Error != nil {
			got = string(view.Error.Code)
		}
		text, _ := want.(string)
		if text == "none" {
			text = ""
		}
		if got != text {
			if err := r.assertf("error = %q, want %q", got, text); err != nil {
				return err
			}
		}
	}

	clues, ok, err := readStrings(step.Args, "clues")
	if err != nil {
		return r.failf("%v", err)
	}
	if ok {
		if absent := missing(progress.DiscoveredClues, clues); len(absent) > 0 {
			if err := r.assertf("clues %v not discovered (have %v)", absent, progress.DiscoveredClues); err != nil {
				return err
			}
		}
	}

	completed, ok, err := readStrings(step.Args, "completed")
	if err != nil {
		return r.failf("%v", err)
	}
	if ok && !slices.Equal(progress.CompletedScenes, completed) {
		if err := r.assertf("completed = %v, want %v", progress.CompletedScenes, completed); err != nil {
			return err
		}
	}

	if want, ok := readInt(step.Args, "time"); ok && progress.TimeElapsed != want {
		if err := r.assertf("time elapsed = %d, want %d", progress.TimeElapsed, want); err != nil {
			return err
		}
	}

	relationships, _, err := readMap(step.Args, "relationships")
	if err != nil {
		return r.failf("%v", err)
	}
	for npc := range relationships {
		want, valid := readInt(relationships, npc)
		if !valid {
			return r.failf("relationship %s must be a number", npc)
		}
		if got := progress.Relationship(npc); got != want {
			if err := r.assertf("relationship %s = %d, want %d", npc, got, want); err != nil {
				return err
			}
		}
	}

	choices, _, err := readMap(step.Args, "choices")
	if err != nil {
		return r.failf("%v", err)
	}
	for decision := range choices {
		want := requiredString(choices, decision)
		if got, _ := progress.Choice(decision); got != want {
			if err := r.assertf("choice %s = %q, want %q", decision, got, want); err != nil {
				return err
			}
		}
	}

	world, _, err := readMap(step.Args, "world")
	if err != nil {
		return r.failf("%v", err)
	}
	for key, want := range world {
		var got any
		if value, ok := view.GameState.WorldState[key]; ok {
			got = value
		}
		equal, err := sameJSON(got, want)
		if err != nil {
			return r.failf("compare world %s: %v", key, err)
		}
		if !equal {
			if err := r.assertf("world %s = %v, want %v", key, got, want); err != nil {
				return err
			}
		}
	}

	if want, ok := readInt(step.Args, "inventory"); ok && len(view.GameState.Inventory) != want {
		if err := r.assertf("inventory size = %d, want %d", len(view.GameState.Inventory), want); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runExpectExitStep(step Step) error {
	to := requiredString(step.Args, "to")
	options, err := r.session.AvailableTransitions()
	if err != nil {
		return r.failf("list exits: %v", err)
	}
	var found *session.TransitionOption
	for i := range options {
		if options[i].Transition.To == to {
			found = &options[i]
			break
		}
	}
	present, ok := readBool(step.Args, "present")
	if !ok {
		present = true
	}
	if found == nil {
		if present {
			return r.assertf("no exit to %s", to)
		}
		return nil
	}
	if !present {
		return r.assertf("unexpected exit to %s", to)
	}
	if want, ok := readBool(step.Args, "traversable"); ok && found.Traversable != want {
		return r.assertf("exit to %s traversable = %v, want %v (%s)", to, found.Traversable, want, found.Reason)
	}
	if want := requiredString(step.Args, "reason"); want != "" && found.Reason != want {
		return r.assertf("exit to %s reason = %q, want %q", to, found.Reason, want)
	}
	return nil
}

// describeView renders the session for verbose logs.
func describeView(view session.View) string {
	scene := "-"
	if view.Scene != nil {
		scene = view.Scene.ID
	}
	return fmt.Sprintf("state=%s scene=%s version=%d", view.State, scene, view.Version)
}
