package session

import (
	"bytes"
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/campaign-viewer/data"
	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	"github.com/louisbranch/campaign-viewer/internal/storage/filesystem"
	"github.com/louisbranch/campaign-viewer/internal/storage/memory"
)

func bundled() storage.CampaignSource {
	return filesystem.NewCampaignDir(data.Campaigns())
}

func newSession(t *testing.T, fetcher storage.CampaignFetcher, opts ...Option) *Session {
	t.Helper()
	s, err := New(fetcher, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func loaded(t *testing.T, id string, opts ...Option) *Session {
	t.Helper()
	s := newSession(t, bundled(), opts...)
	if err := s.LoadCampaign(context.Background(), id); err != nil {
		t.Fatalf("LoadCampaign(%s): %v", id, err)
	}
	return s
}

func sceneID(v View) string {
	if v.Scene == nil {
		return ""
	}
	return v.Scene.ID
}

// gatedFetcher blocks each fetch until its id is released. With
// ignoreCancel it behaves like a slow network that finishes anyway.
type gatedFetcher struct {
	inner        storage.CampaignFetcher
	ignoreCancel bool

	mu      sync.Mutex
	gates   map[string]chan error
	started chan string
}

func newGatedFetcher(ignoreCancel bool) *gatedFetcher {
	return &gatedFetcher{
		inner:        bundled(),
		ignoreCancel: ignoreCancel,
		gates:        make(map[string]chan error),
		started:      make(chan string, 8),
	}
}

func (f *gatedFetcher) gate(id string) chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[id]
	if !ok {
		ch = make(chan error, 1)
		f.gates[id] = ch
	}
	return ch
}

func (f *gatedFetcher) release(id string, err error) {
	f.gate(id) <- err
}

func (f *gatedFetcher) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	gate := f.gate(id)
	f.started <- id
	if f.ignoreCancel {
		if err := <-gate; err != nil {
			return document.Campaign{}, err
		}
	} else {
		select {
		case err := <-gate:
			if err != nil {
				return document.Campaign{}, err
			}
		case <-ctx.Done():
			return document.Campaign{}, ctx.Err()
		}
	}
	return f.inner.FetchCampaign(context.Background(), id)
}

func (f *gatedFetcher) waitStarted(t *testing.T, id string) {
	t.Helper()
	select {
	case got := <-f.started:
		if got != id {
			t.Fatalf("fetch started for %s, want %s", got, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for %s never started", id)
	}
}

// staticFetcher serves one document as-is, skipping the validation the
// storage adapters do.
type staticFetcher struct {
	doc document.Campaign
}

func (f staticFetcher) FetchCampaign(_ context.Context, id string) (document.Campaign, error) {
	if id != f.doc.ID {
		return document.Campaign{}, storage.CampaignNotFound(id, storage.ErrNotFound)
	}
	return f.doc, nil
}

func goLoad(s *Session, id string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.LoadCampaign(context.Background(), id) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("load did not finish")
		return nil
	}
}

func TestNewRequiresFetcher(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSessionIsEmpty(t *testing.T) {
	s := newSession(t, bundled())
	v := s.View()
	if v.State != StateEmpty || v.Campaign != nil || v.Scene != nil || v.Error != nil {
		t.Fatalf("view = %+v, want empty", v)
	}
	if !reflect.DeepEqual(v.GameState, gamestate.Default()) {
		t.Fatalf("game state = %+v, want defaults", v.GameState)
	}
	if s.ID() == "" || v.SessionID != s.ID() {
		t.Fatalf("session id = %q / %q", s.ID(), v.SessionID)
	}
}

func TestLoadCampaignStartsAtFirstScene(t *testing.T) {
	for id, first := range map[string]string{
		"missing_merchant": "town_square",
		"village_festival": "festival_grounds",
	} {
		s := loaded(t, id)
		v := s.View()
		if v.State != StateActive {
			t.Fatalf("%s: state = %s, want active", id, v.State)
		}
		if sceneID(v) != first {
			t.Fatalf("%s: scene = %s, want %s", id, sceneID(v), first)
		}
		if v.GameState.CurrentCampaign != id || v.GameState.CurrentScene != first {
			t.Fatalf("%s: game state ids = %s/%s", id, v.GameState.CurrentCampaign, v.GameState.CurrentScene)
		}
		if v.Loading {
			t.Fatalf("%s: still loading", id)
		}
	}
}

func TestMissingMerchantScenario(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "missing_merchant")
	if got := sceneID(s.View()); got != "town_square" {
		t.Fatalf("scene = %s, want town_square", got)
	}

	if err := s.TransitionToScene(ctx, "forest_road"); err != nil {
		t.Fatalf("TransitionToScene(forest_road): %v", err)
	}
	v := s.View()
	if want := []string{"town_square"}; !reflect.DeepEqual(v.GameState.CampaignProgress.CompletedScenes, want) {
		t.Fatalf("completed = %v, want %v", v.GameState.CampaignProgress.CompletedScenes, want)
	}

	if err := s.TransitionToScene(ctx, "merchant_camp"); err != nil {
		t.Fatalf("TransitionToScene(merchant_camp): %v", err)
	}
	v = s.View()
	if want := []string{"town_square", "forest_road"}; !reflect.DeepEqual(v.GameState.CampaignProgress.CompletedScenes, want) {
		t.Fatalf("completed = %v, want %v", v.GameState.CampaignProgress.CompletedScenes, want)
	}

	err := s.TransitionToScene(ctx, "nonexistent_scene")
	if !apperrors.HasCode(err, apperrors.CodeSceneNotFound) {
		t.Fatalf("error = %v, want SCENE_NOT_FOUND", err)
	}
	v = s.View()
	if v.State != StateError {
		t.Fatalf("state = %s, want error", v.State)
	}
	if sceneID(v) != "merchant_camp" || v.GameState.CurrentScene != "merchant_camp" {
		t.Fatalf("scene = %s/%s, want merchant_camp", sceneID(v), v.GameState.CurrentScene)
	}
	if v.Error == nil || v.Error.Code != apperrors.CodeSceneNotFound {
		t.Fatalf("error view = %+v", v.Error)
	}
	if msg := v.Error.Localized("en-US"); !strings.Contains(msg, "nonexistent_scene") {
		t.Fatalf("localized message = %q", msg)
	}
}

func TestErrorRecoversOnValidTransition(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "missing_merchant")
	_ = s.TransitionToScene(ctx, "forest_road")
	_ = s.TransitionToScene(ctx, "missing")
	if err := s.TransitionToScene(ctx, "town_square"); err != nil {
		t.Fatalf("TransitionToScene: %v", err)
	}
	v := s.View()
	if v.State != StateActive || v.Error != nil {
		t.Fatalf("view = %s / %+v, want active without error", v.State, v.Error)
	}
}

func TestCompletedScenesAreFirstVisitOrdered(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "missing_merchant")
	for _, id := range []string{"forest_road", "town_square", "forest_road", "merchant_camp", "town_square"} {
		if err := s.TransitionToScene(ctx, id); err != nil {
			t.Fatalf("TransitionToScene(%s): %v", id, err)
		}
	}
	want := []string{"town_square", "forest_road", "merchant_camp"}
	if got := s.View().GameState.CampaignProgress.CompletedScenes; !reflect.DeepEqual(got, want) {
		t.Fatalf("completed = %v, want %v", got, want)
	}
}

func TestTransitionRequiresCampaign(t *testing.T) {
	s := newSession(t, bundled())
	err := s.TransitionToScene(context.Background(), "town_square")
	if !apperrors.HasCode(err, apperrors.CodeSessionInvalidState) {
		t.Fatalf("error = %v, want SESSION_INVALID_STATE", err)
	}
	if s.State() != StateEmpty {
		t.Fatalf("state = %s, want empty", s.State())
	}
	if err := s.Travel(context.Background(), "town_square"); !apperrors.HasCode(err, apperrors.CodeSessionInvalidState) {
		t.Fatalf("travel error = %v, want SESSION_INVALID_STATE", err)
	}
}

func TestTransitionRejectedWhileLoading(t *testing.T) {
	f := newGatedFetcher(false)
	s := newSession(t, f)
	done := goLoad(s, "missing_merchant")
	f.waitStarted(t, "missing_merchant")

	err := s.TransitionToScene(context.Background(), "town_square")
	if !apperrors.HasCode(err, apperrors.CodeSessionInvalidState) {
		t.Fatalf("error = %v, want SESSION_INVALID_STATE", err)
	}
	if v := s.View(); v.State != StateLoading || !v.Loading {
		t.Fatalf("state = %s loading=%v, want loading", v.State, v.Loading)
	}
	f.release("missing_merchant", nil)
	if err := wait(t, done); err != nil {
		t.Fatalf("LoadCampaign: %v", err)
	}
}

func TestLoadFailureKeepsPriorCampaign(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "missing_merchant")
	_ = s.TransitionToScene(ctx, "forest_road")

	err := s.LoadCampaign(ctx, "nope")
	if !apperrors.HasCode(err, apperrors.CodeCampaignNotFound) {
		t.Fatalf("error = %v, want CAMPAIGN_NOT_FOUND", err)
	}
	v := s.View()
	if v.State != StateError {
		t.Fatalf("state = %s, want error", v.State)
	}
	if v.Campaign == nil || v.Campaign.ID != "missing_merchant" || sceneID(v) != "forest_road" {
		t.Fatalf("campaign/scene changed: %+v / %s", v.Campaign, sceneID(v))
	}
	if v.GameState.CurrentCampaign != "missing_merchant" {
		t.Fatalf("current campaign = %s", v.GameState.CurrentCampaign)
	}
	if msg := v.Error.Localized("pt-BR"); !strings.Contains(msg, "nope") {
		t.Fatalf("localized = %q", msg)
	}

	// Retry re-runs the failed load.
	if err := s.Retry(ctx); !apperrors.HasCode(err, apperrors.CodeCampaignNotFound) {
		t.Fatalf("retry error = %v", err)
	}

	// Navigation still works against the displayed campaign.
	if err := s.TransitionToScene(ctx, "merchant_camp"); err != nil {
		t.Fatalf("TransitionToScene: %v", err)
	}
	if s.State() != StateActive {
		t.Fatalf("state = %s, want active", s.State())
	}
}

func TestRetryRecoversLoad(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher(false)
	s := newSession(t, f)

	done := goLoad(s, "missing_merchant")
	f.waitStarted(t, "missing_merchant")
	f.release("missing_merchant", errors.New("network down"))
	if err := wait(t, done); err == nil {
		t.Fatal("expected load failure")
	}
	if s.State() != StateError {
		t.Fatalf("state = %s, want error", s.State())
	}

	f.release("missing_merchant", nil)
	if err := s.Retry(ctx); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if v := s.View(); v.State != StateActive || sceneID(v) != "town_square" {
		t.Fatalf("view = %s / %s", v.State, sceneID(v))
	}
	if err := s.Retry(ctx); !apperrors.HasCode(err, apperrors.CodeSessionInvalidState) {
		t.Fatalf("retry when active = %v, want SESSION_INVALID_STATE", err)
	}
}

func TestSupersededLoadIsDiscarded(t *testing.T) {
	tests := []struct {
		name       string
		firstOut   string
		olderErr   error
		newerErr   error
		wantState  State
		wantCamp   string
		wantErrCod apperrors.Code
	}{
		{name: "newer resolves first", firstOut: "village_festival", wantState: StateActive, wantCamp: "village_festival"},
		{name: "older resolves first", firstOut: "missing_merchant", wantState: StateActive, wantCamp: "village_festival"},
		{name: "older fails late", firstOut: "village_festival", olderErr: errors.New("boom"), wantState: StateActive, wantCamp: "village_festival"},
		{name: "newer fails", firstOut: "missing_merchant", newerErr: errors.New("boom"), wantState: StateError, wantErrCod: apperrors.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatedFetcher(true)
			s := newSession(t, f)

			older := goLoad(s, "missing_merchant")
			f.waitStarted(t, "missing_merchant")
			newer := goLoad(s, "village_festival")
			f.waitStarted(t, "village_festival")

			errs := map[string]error{"missing_merchant": tt.olderErr, "village_festival": tt.newerErr}
			done := map[string]<-chan error{"missing_merchant": older, "village_festival": newer}
			second := "missing_merchant"
			if tt.firstOut == second {
				second = "village_festival"
			}
			f.release(tt.firstOut, errs[tt.firstOut])
			firstErr := wait(t, done[tt.firstOut])
			f.release(second, errs[second])
			secondErr := wait(t, done[second])

			olderErr, newerErr := firstErr, secondErr
			if tt.firstOut == "village_festival" {
				olderErr, newerErr = secondErr, firstErr
			}
			if !apperrors.HasCode(olderErr, apperrors.CodeSuperseded) {
				t.Fatalf("older load error = %v, want SUPERSEDED", olderErr)
			}
			if (tt.newerErr == nil) != (newerErr == nil) {
				t.Fatalf("newer load error = %v", newerErr)
			}

			v := s.View()
			if v.State != tt.wantState {
				t.Fatalf("state = %s, want %s", v.State, tt.wantState)
			}
			if tt.wantCamp != "" && (v.Campaign == nil || v.Campaign.ID != tt.wantCamp) {
				t.Fatalf("campaign = %+v, want %s", v.Campaign, tt.wantCamp)
			}
			if tt.wantCamp == "" && v.Campaign != nil {
				t.Fatalf("campaign = %s, want none", v.Campaign.ID)
			}
			if tt.wantErrCod == "" && v.Error != nil {
				t.Fatalf("error view = %+v, want none", v.Error)
			}
			if tt.wantErrCod != "" && (v.Error == nil || v.Error.Code != tt.wantErrCod) {
				t.Fatalf("error view = %+v, want %s", v.Error, tt.wantErrCod)
			}
			if v.Error != nil && v.Error.Code == apperrors.CodeSuperseded {
				t.Fatal("superseded error leaked into the view")
			}
		})
	}
}

func TestNewerLoadCancelsOlderFetch(t *testing.T) {
	f := newGatedFetcher(false)
	s := newSession(t, f)

	older := goLoad(s, "missing_merchant")
	f.waitStarted(t, "missing_merchant")
	newer := goLoad(s, "village_festival")
	f.waitStarted(t, "village_festival")

	// The older fetch returns as soon as its context is cancelled.
	if err := wait(t, older); !apperrors.HasCode(err, apperrors.CodeSuperseded) {
		t.Fatalf("older error = %v, want SUPERSEDED", err)
	}
	f.release("village_festival", nil)
	if err := wait(t, newer); err != nil {
		t.Fatalf("newer error = %v", err)
	}
	if v := s.View(); v.Campaign == nil || v.Campaign.ID != "village_festival" {
		t.Fatalf("campaign = %+v", v.Campaign)
	}
}

func TestResetInvalidatesInFlightLoad(t *testing.T) {
	f := newGatedFetcher(true)
	s := newSession(t, f)
	done := goLoad(s, "missing_merchant")
	f.waitStarted(t, "missing_merchant")

	s.ResetCampaign()
	f.release("missing_merchant", nil)
	if err := wait(t, done); !apperrors.HasCode(err, apperrors.CodeSuperseded) {
		t.Fatalf("error = %v, want SUPERSEDED", err)
	}
	v := s.View()
	if v.State != StateEmpty || v.Campaign != nil {
		t.Fatalf("view = %s / %+v, want empty", v.State, v.Campaign)
	}
}

func TestResetCampaign(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "missing_merchant")
	_ = s.TransitionToScene(ctx, "nope")
	_ = s.RecordClue("torn_ledger")

	s.ResetCampaign()
	v := s.View()
	if v.State != StateEmpty || v.Campaign != nil || v.Scene != nil || v.Error != nil {
		t.Fatalf("view = %+v, want empty", v)
	}
	if !reflect.DeepEqual(v.GameState, gamestate.Default()) {
		t.Fatalf("game state = %+v, want defaults", v.GameState)
	}
}

func TestTravelEvaluatesExits(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "missing_merchant")

	err := s.Travel(ctx, "merchant_camp")
	if !apperrors.HasCode(err, apperrors.CodeTransitionBlocked) {
		t.Fatalf("error = %v, want TRANSITION_BLOCKED", err)
	}
	if v := s.View(); v.State != StateActive || sceneID(v) != "town_square" {
		t.Fatalf("view = %s / %s", v.State, sceneID(v))
	}

	if err := s.Travel(ctx, "missing_scene"); !apperrors.HasCode(err, apperrors.CodeSceneNotFound) {
		t.Fatalf("error = %v, want SCENE_NOT_FOUND", err)
	}
	if s.State() != StateError {
		t.Fatalf("state = %s, want error", s.State())
	}

	for _, id := range []string{"forest_road", "merchant_camp"} {
		if err := s.Travel(ctx, id); err != nil {
			t.Fatalf("Travel(%s): %v", id, err)
		}
	}

	// merchant_camp -> town_square needs the find_merchant quest completed.
	if err := s.Travel(ctx, "town_square"); !apperrors.HasCode(err, apperrors.CodeTransitionBlocked) {
		t.Fatalf("error = %v, want TRANSITION_BLOCKED", err)
	}
	opts, err := s.AvailableTransitions()
	if err != nil {
		t.Fatalf("AvailableTransitions: %v", err)
	}
	if len(opts) != 1 || opts[0].Traversable || opts[0].Reason == "" || opts[0].Title == "" {
		t.Fatalf("options = %+v", opts)
	}

	s.UpdateGameState(gamestate.Patch{QuestLog: []gamestate.Quest{{
		ID:     "find_merchant",
		Title:  "Find the merchant",
		Status: gamestate.QuestCompleted,
	}}})
	if err := s.Travel(ctx, "town_square"); err != nil {
		t.Fatalf("Travel(town_square): %v", err)
	}
}

func TestAvailableTransitionsRequiresCampaign(t *testing.T) {
	s := newSession(t, bundled())
	if _, err := s.AvailableTransitions(); !apperrors.HasCode(err, apperrors.CodeSessionInvalidState) {
		t.Fatalf("error = %v, want SESSION_INVALID_STATE", err)
	}
}

func TestUpdateGameStateKeepsPointers(t *testing.T) {
	s := loaded(t, "missing_merchant")
	s.UpdateGameState(gamestate.Patch{
		Party:      []gamestate.PartyMember{{ID: "hero", Name: "Hero", Level: 2}},
		WorldState: map[string]gamestate.Value{"weather": gamestate.TextValue("rain")},
	})
	v := s.View()
	if v.GameState.CurrentCampaign != "missing_merchant" || v.GameState.CurrentScene != "town_square" {
		t.Fatalf("ids = %s/%s", v.GameState.CurrentCampaign, v.GameState.CurrentScene)
	}
	if len(v.GameState.Party) != 1 || v.GameState.WorldState["weather"].Text != "rain" {
		t.Fatalf("game state = %+v", v.GameState)
	}

	// Views are copies.
	v.GameState.Party[0].Name = "changed"
	if s.View().GameState.Party[0].Name != "Hero" {
		t.Fatal("view mutation leaked into the session")
	}

	empty := newSession(t, bundled())
	empty.UpdateGameState(gamestate.Patch{Party: []gamestate.PartyMember{{ID: "solo"}}})
	if empty.State() != StateEmpty || len(empty.View().GameState.Party) != 1 {
		t.Fatalf("update from empty = %s / %+v", empty.State(), empty.View().GameState.Party)
	}
}

func TestProgressPassThroughs(t *testing.T) {
	s := loaded(t, "missing_merchant")

	if err := s.AdjustRelationship("captain_reyna", 2); err != nil {
		t.Fatalf("AdjustRelationship: %v", err)
	}
	if err := s.AdjustRelationship("captain_reyna", -5); err != nil {
		t.Fatalf("AdjustRelationship: %v", err)
	}
	if got := s.View().GameState.CampaignProgress.Relationship("captain_reyna"); got != -3 {
		t.Fatalf("relationship = %d, want -3", got)
	}

	_ = s.RecordClue("torn_ledger")
	_ = s.RecordClue("cart_tracks")
	_ = s.RecordClue("torn_ledger")
	if got := s.View().GameState.CampaignProgress.DiscoveredClues; !reflect.DeepEqual(got, []string{"torn_ledger", "cart_tracks"}) {
		t.Fatalf("clues = %v", got)
	}

	_ = s.RecordChoice("gate", "left")
	_ = s.RecordChoice("gate", "right")
	if got, _ := s.View().GameState.CampaignProgress.Choice("gate"); got != "right" {
		t.Fatalf("choice = %s, want right", got)
	}

	if err := s.AdvanceTime(-1); !apperrors.HasCode(err, apperrors.CodeInvalidTimeDelta) {
		t.Fatalf("error = %v, want INVALID_TIME_DELTA", err)
	}
	if err := s.AdvanceTime(0); err != nil {
		t.Fatalf("AdvanceTime(0): %v", err)
	}
	if err := s.AdvanceTime(30); err != nil {
		t.Fatalf("AdvanceTime(30): %v", err)
	}
	if got := s.View().GameState.CampaignProgress.TimeElapsed; got != 30 {
		t.Fatalf("time = %d, want 30", got)
	}

	if err := s.RecordClue(""); !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestChooseAppliesConsequences(t *testing.T) {
	s := loaded(t, "missing_merchant")
	if err := s.Choose("captain_reyna", "demand_pay"); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	gs := s.View().GameState
	if _, ok := gamestate.FindQuest(gs.QuestLog, "find_merchant"); !ok {
		t.Fatalf("quest log = %+v", gs.QuestLog)
	}
	if gs.WorldState["gold"].Counter != 25 {
		t.Fatalf("gold = %+v, want 25", gs.WorldState["gold"])
	}
	if got := gs.CampaignProgress.Relationship("captain_reyna"); got != -1 {
		t.Fatalf("relationship = %d, want -1", got)
	}
	if got, _ := gs.CampaignProgress.Choice(DecisionID("town_square", "captain_reyna")); got != "demand_pay" {
		t.Fatalf("choice = %q", got)
	}

	if err := s.Choose("captain_reyna", "missing"); !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
	if err := s.Choose("aldric", "take_ring"); !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("npc from another scene error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestExploreOpensAreaExits(t *testing.T) {
	s := loaded(t, "missing_merchant")
	if err := s.Explore(); err != nil {
		t.Fatalf("Explore: %v", err)
	}
	if !s.View().GameState.WorldState["explored.town_square"].Truthy() {
		t.Fatalf("world state = %+v", s.View().GameState.WorldState)
	}
	if err := newSession(t, bundled()).Explore(); !apperrors.HasCode(err, apperrors.CodeSessionInvalidState) {
		t.Fatalf("error = %v, want SESSION_INVALID_STATE", err)
	}
}

func TestSaveAndLoadProgressRoundTrip(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSnapshot()
	s := loaded(t, "missing_merchant", WithSnapshots(slot))
	_ = s.Choose("captain_reyna", "accept_job")
	_ = s.TransitionToScene(ctx, "forest_road")
	_ = s.RecordClue("cart_tracks")
	_ = s.AdvanceTime(45)
	if !s.SaveProgress(ctx) {
		t.Fatal("SaveProgress failed")
	}
	saved := s.View().GameState

	fresh := newSession(t, bundled(), WithSnapshots(slot))
	restored, err := fresh.LoadProgress(ctx)
	if err != nil || !restored {
		t.Fatalf("LoadProgress = %v, %v", restored, err)
	}
	v := fresh.View()
	if !reflect.DeepEqual(v.GameState, saved) {
		t.Fatalf("restored = %+v\nwant %+v", v.GameState, saved)
	}
	if v.State != StateActive || sceneID(v) != "forest_road" {
		t.Fatalf("view = %s / %s, want active on forest_road", v.State, sceneID(v))
	}
}

func TestSaveAndLoadProgressThroughSnapshotFile(t *testing.T) {
	ctx := context.Background()
	file, err := filesystem.NewSnapshotFile(t.TempDir() + "/save.json")
	if err != nil {
		t.Fatalf("NewSnapshotFile: %v", err)
	}

	// Default state survives the round trip.
	s := newSession(t, bundled(), WithSnapshots(file))
	if !s.SaveProgress(ctx) {
		t.Fatal("SaveProgress failed")
	}
	fresh := newSession(t, bundled(), WithSnapshots(file))
	restored, err := fresh.LoadProgress(ctx)
	if err != nil || !restored {
		t.Fatalf("LoadProgress = %v, %v", restored, err)
	}
	if !reflect.DeepEqual(fresh.View().GameState, gamestate.Default()) {
		t.Fatalf("restored = %+v, want defaults", fresh.View().GameState)
	}
	if fresh.State() != StateEmpty {
		t.Fatalf("state = %s, want empty", fresh.State())
	}

	s = loaded(t, "missing_merchant", WithSnapshots(file))
	_ = s.TransitionToScene(ctx, "forest_road")
	_ = s.AdjustRelationship("aldric", 3)
	s.UpdateGameState(gamestate.Patch{WorldState: map[string]gamestate.Value{
		"explored.town_square": gamestate.Flag(true),
		"gold":                 gamestate.Counter(12),
	}})
	if !s.SaveProgress(ctx) {
		t.Fatal("SaveProgress failed")
	}
	fresh = newSession(t, bundled(), WithSnapshots(file))
	if _, err := fresh.LoadProgress(ctx); err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if !reflect.DeepEqual(fresh.View().GameState, s.View().GameState) {
		t.Fatalf("restored = %+v\nwant %+v", fresh.View().GameState, s.View().GameState)
	}
}

func TestLoadProgressResumesEntryWhenSceneIsGone(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSnapshot()
	gs := gamestate.Default()
	gs.CurrentCampaign = "missing_merchant"
	gs.CurrentScene = "demolished_inn"
	_ = slot.WriteSnapshot(ctx, gs)

	s := newSession(t, bundled(), WithSnapshots(slot))
	if _, err := s.LoadProgress(ctx); err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	v := s.View()
	if sceneID(v) != "town_square" || v.GameState.CurrentScene != "town_square" {
		t.Fatalf("scene = %s / %s, want town_square", sceneID(v), v.GameState.CurrentScene)
	}
}

func TestLoadProgressUnknownCampaignEntersError(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSnapshot()
	gs := gamestate.Default()
	gs.CurrentCampaign = "retired_campaign"
	_ = slot.WriteSnapshot(ctx, gs)

	s := newSession(t, bundled(), WithSnapshots(slot))
	restored, err := s.LoadProgress(ctx)
	if !restored || !apperrors.HasCode(err, apperrors.CodeCampaignNotFound) {
		t.Fatalf("LoadProgress = %v, %v", restored, err)
	}
	v := s.View()
	if v.State != StateError || v.Error == nil || v.Error.Code != apperrors.CodeCampaignNotFound {
		t.Fatalf("view = %s / %+v", v.State, v.Error)
	}
}

func TestPersistenceFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	slot := memory.NewSnapshot()
	slot.SetFailures(errors.New("corrupt"), errors.New("disk full"))
	s := loaded(t, "missing_merchant", WithSnapshots(slot), WithLogger(log.New(&logs, "", 0)))

	if s.SaveProgress(ctx) {
		t.Fatal("SaveProgress reported success")
	}
	if v := s.View(); v.State != StateActive || v.Error != nil {
		t.Fatalf("view after failed save = %s / %+v", v.State, v.Error)
	}
	if !strings.Contains(logs.String(), "disk full") {
		t.Fatalf("logs = %q", logs.String())
	}

	fresh := newSession(t, bundled(), WithSnapshots(slot), WithLogger(log.New(&logs, "", 0)))
	restored, err := fresh.LoadProgress(ctx)
	if restored || err != nil {
		t.Fatalf("LoadProgress = %v, %v, want no saved progress", restored, err)
	}
	if fresh.State() != StateEmpty {
		t.Fatalf("state = %s, want empty", fresh.State())
	}
}

func TestWithoutSnapshots(t *testing.T) {
	s := newSession(t, bundled())
	if s.SaveProgress(context.Background()) {
		t.Fatal("SaveProgress without a slot reported success")
	}
	if restored, err := s.LoadProgress(context.Background()); restored || err != nil {
		t.Fatalf("LoadProgress = %v, %v", restored, err)
	}
}

func TestSubscribeStreamsLatestView(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := loaded(t, "missing_merchant")
	ch := s.Subscribe(ctx)

	first := <-ch
	if sceneID(first) != "town_square" {
		t.Fatalf("initial scene = %s", sceneID(first))
	}

	_ = s.TransitionToScene(context.Background(), "forest_road")
	_ = s.TransitionToScene(context.Background(), "merchant_camp")
	latest := <-ch
	if sceneID(latest) != "merchant_camp" {
		t.Fatalf("latest scene = %s, want merchant_camp", sceneID(latest))
	}
	if latest.Version <= first.Version {
		t.Fatalf("version %d not after %d", latest.Version, first.Version)
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed after cancel")
		}
	}
}

func TestLoadRejectsMalformedCampaign(t *testing.T) {
	tests := map[string][]document.Scene{
		"duplicate scene ids": {{ID: "a"}, {ID: "a"}},
		"dangling transition": {{ID: "a", Transitions: []document.Transition{{To: "ghost"}}}},
		"dotted scene id":     {{ID: "a.b"}},
	}
	for name, scenes := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSession(t, staticFetcher{doc: document.Campaign{ID: "broken", Scenes: scenes}})
			err := s.LoadCampaign(context.Background(), "broken")
			if !apperrors.HasCode(err, apperrors.CodeCampaignMalformed) {
				t.Fatalf("error = %v, want CAMPAIGN_MALFORMED", err)
			}
			v := s.View()
			if v.State != StateError || v.Campaign != nil || v.Scene != nil {
				t.Fatalf("view = %s campaign=%v scene=%v, want error without campaign", v.State, v.Campaign, v.Scene)
			}
		})
	}
}

func TestLoadProgressWithoutCampaignClearsSession(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSnapshot()
	saved := gamestate.Default()
	saved.CampaignProgress.DiscoveredClues = []string{"cart_tracks"}
	if err := slot.WriteSnapshot(ctx, saved); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	s := loaded(t, "missing_merchant", WithSnapshots(slot))
	restored, err := s.LoadProgress(ctx)
	if err != nil || !restored {
		t.Fatalf("LoadProgress = %v, %v", restored, err)
	}
	v := s.View()
	if v.State != StateEmpty || v.Campaign != nil || v.Scene != nil {
		t.Fatalf("view = %s campaign=%v scene=%v, want empty", v.State, v.Campaign, v.Scene)
	}
	if !reflect.DeepEqual(v.GameState, saved) {
		t.Fatalf("game state = %+v, want %+v", v.GameState, saved)
	}
	if err := s.TransitionToScene(ctx, "forest_road"); !apperrors.HasCode(err, apperrors.CodeSessionInvalidState) {
		t.Fatalf("transition error = %v, want SESSION_INVALID_STATE", err)
	}
}

func TestLoadingClearsPreviousError(t *testing.T) {
	ctx := context.Background()
	f := newGatedFetcher(false)
	s := newSession(t, f)

	done := goLoad(s, "missing_merchant")
	f.waitStarted(t, "missing_merchant")
	f.release("missing_merchant", nil)
	if err := wait(t, done); err != nil {
		t.Fatalf("LoadCampaign: %v", err)
	}
	_ = s.TransitionToScene(ctx, "crypt")
	if v := s.View(); v.State != StateError || v.Error == nil {
		t.Fatalf("view = %s error=%v, want error", v.State, v.Error)
	}

	done = goLoad(s, "missing_merchant")
	f.waitStarted(t, "missing_merchant")
	if v := s.View(); v.State != StateLoading || v.Error != nil {
		t.Fatalf("view = %s error=%v, want loading without error", v.State, v.Error)
	}
	f.release("missing_merchant", nil)
	if err := wait(t, done); err != nil {
		t.Fatalf("LoadCampaign: %v", err)
	}
}

func TestSaveAndLoadProgressKeepsLargeCounters(t *testing.T) {
	ctx := context.Background()
	file, err := filesystem.NewSnapshotFile(t.TempDir() + "/save.json")
	if err != nil {
		t.Fatalf("NewSnapshotFile: %v", err)
	}
	s := loaded(t, "missing_merchant", WithSnapshots(file))
	s.UpdateGameState(gamestate.Patch{WorldState: map[string]gamestate.Value{
		"gold": gamestate.Counter(3_000_000_000),
	}})
	if !s.SaveProgress(ctx) {
		t.Fatal("SaveProgress failed")
	}

	fresh := newSession(t, bundled(), WithSnapshots(file))
	if _, err := fresh.LoadProgress(ctx); err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	got := fresh.View().GameState
	if gold := got.WorldState["gold"]; gold.Kind != gamestate.KindCounter || gold.Counter != 3_000_000_000 {
		t.Fatalf("gold = %+v, want counter 3000000000", gold)
	}
	if !reflect.DeepEqual(got, s.View().GameState) {
		t.Fatalf("restored = %+v\nwant %+v", got, s.View().GameState)
	}
}
