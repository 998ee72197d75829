package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/navigator"
	"github.com/louisbranch/campaign-viewer/internal/campaign/progress"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	platformotel "github.com/louisbranch/campaign-viewer/internal/platform/otel"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for session spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithSnapshots sets the snapshot slot used by SaveProgress and LoadProgress.
func WithSnapshots(store storage.SnapshotStore) Option {
	return func(s *Session) {
		s.snapshots = store
	}
}

// Session is safe for concurrent use. The mutex is never held while a
// campaign is being fetched or a snapshot is being read or written.
type Session struct {
	id        string
	fetcher   storage.CampaignFetcher
	snapshots storage.SnapshotStore
	logger    *log.Logger
	tracer    trace.Tracer

	mu         sync.Mutex
	state      State
	campaign   *document.Campaign
	scene      *document.Scene
	gameState  gamestate.GameState
	lastErr    error
	retry      func(context.Context) error
	loadSeq    uint64
	cancelLoad context.CancelFunc
	version    uint64
	subs       map[int]chan View
	nextSub    int
}

// New creates an empty session backed by fetcher.
func New(fetcher storage.CampaignFetcher, opts ...Option) (*Session, error) {
	if fetcher == nil {
		return nil, errors.New("campaign fetcher is required")
	}
	s := &Session{
		id:        uuid.NewString(),
		fetcher:   fetcher,
		logger:    log.Default(),
		tracer:    platformotel.Tracer(),
		state:     StateEmpty,
		gameState: gamestate.Default(),
		subs:      make(map[int]chan View),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the session instance id.
func (s *Session) ID() string {
	return s.id
}

// View returns a copy of the current session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe streams a View after every change until ctx ends. The channel
// holds only the latest View; a slow reader skips intermediate ones. The
// current View is delivered immediately.
func (s *Session) Subscribe(ctx context.Context) <-chan View {
	ch := make(chan View, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.viewLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// LoadCampaign fetches id and makes its first scene current. A newer load,
// or a reset, supersedes this one: the older fetch is cancelled and this
// call returns a SUPERSEDED error without touching the session.
func (s *Session) LoadCampaign(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "session.LoadCampaign", trace.WithAttributes(
		attribute.String("campaign.id", id),
		attribute.String("session.id", s.id),
	))
	defer span.End()

	err := s.load(ctx, id, "")
	recordSpanError(span, err)
	return err
}

// load fetches id outside the lock. When resumeScene resolves in the
// fetched campaign it becomes current instead of scenes[0].
func (s *Session) load(ctx context.Context, id, resumeScene string) error {
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	s.state = StateLoading
	s.lastErr = nil
	s.retry = nil
	s.publishLocked()
	s.mu.Unlock()

	c, err := s.fetcher.FetchCampaign(fetchCtx, id)
	if err == nil && c.ID != id {
		err = storage.FetchFailure(id, fmt.Errorf("fetched campaign %q", c.ID))
	}
	if err == nil {
		err = document.Validate(&c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()
	if seq != s.loadSeq {
		return superseded(id)
	}
	s.cancelLoad = nil

	var entry document.Scene
	if err == nil {
		entry, err = navigator.Entry(&c)
	}
	if err != nil {
		s.failLocked(err, func(ctx context.Context) error { return s.load(ctx, id, resumeScene) })
		return err
	}

	if resumeScene != "" {
		if scene, ok := c.Scene(resumeScene); ok {
			entry = scene
		}
	}
	s.campaign = &c
	s.scene = &entry
	s.gameState.CurrentCampaign = c.ID
	s.gameState.CurrentScene = entry.ID
	s.succeedLocked()
	return nil
}

// TransitionToScene makes sceneID current without evaluating transition
// rules. The scene being left is recorded as completed. An unknown scene
// puts the session in Error and keeps the current scene.
func (s *Session) TransitionToScene(ctx context.Context, sceneID string) error {
	_, span := s.tracer.Start(ctx, "session.TransitionToScene", trace.WithAttributes(
		attribute.String("scene.id", sceneID),
		attribute.String("session.id", s.id),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCampaignLocked("transition"); err != nil {
		recordSpanError(span, err)
		return err
	}
	scene, err := navigator.Resolve(s.campaign, sceneID)
	if err != nil {
		s.failLocked(err, func(ctx context.Context) error { return s.TransitionToScene(ctx, sceneID) })
		recordSpanError(span, err)
		return err
	}
	s.enterLocked(scene)
	return nil
}

// Travel follows an exit of the current scene. The exit must exist and its
// trigger and requirements must pass; otherwise TRANSITION_BLOCKED is
// returned and the session is unchanged.
func (s *Session) Travel(ctx context.Context, sceneID string) error {
	_, span := s.tracer.Start(ctx, "session.Travel", trace.WithAttributes(
		attribute.String("scene.id", sceneID),
		attribute.String("session.id", s.id),
	))
	defer span.End()

	err := s.travel(sceneID)
	recordSpanError(span, err)
	return err
}

func (s *Session) travel(sceneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCampaignLocked("travel"); err != nil {
		return err
	}
	scene, err := navigator.Resolve(s.campaign, sceneID)
	if err != nil {
		s.failLocked(err, func(ctx context.Context) error { return s.Travel(ctx, sceneID) })
		return err
	}
	from := s.scene.ID
	tr, ok := navigator.Outgoing(s.campaign, from, sceneID)
	if !ok {
		return apperrors.WithMetadata(
			apperrors.CodeTransitionBlocked,
			fmt.Sprintf("no exit from %s to %s", from, sceneID),
			map[string]string{"SceneID": sceneID, "Reason": "no exit"},
		)
	}
	if err := checkTransition(from, tr, s.gameState); err != nil {
		return err
	}
	s.enterLocked(scene)
	return nil
}

// AvailableTransitions lists the exits of the current scene.
func (s *Session) AvailableTransitions() ([]TransitionOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.campaign == nil || s.scene == nil {
		return nil, invalidState("list exits", s.state)
	}
	out := make([]TransitionOption, 0, len(s.scene.Transitions))
	for _, tr := range s.scene.Transitions {
		opt := TransitionOption{Transition: tr, Traversable: true}
		if target, ok := s.campaign.Scene(tr.To); ok {
			opt.Title = target.Title
		}
		if err := checkTransition(s.scene.ID, tr, s.gameState); err != nil {
			opt.Traversable = false
			if domainErr, ok := apperrors.As(err); ok {
				opt.Reason = domainErr.Metadata["Reason"]
			}
		}
		out = append(out, opt)
	}
	return out, nil
}

// UpdateGameState shallow-merges patch into the game state. It is valid in
// any state and never moves the campaign or scene pointers.
func (s *Session) UpdateGameState(patch gamestate.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Empty() {
		return
	}
	s.gameState = gamestate.Apply(s.gameState, patch)
	s.publishLocked()
}

// ResetCampaign returns to Empty with default game state. In-flight loads
// are cancelled and their results dropped.
func (s *Session) ResetCampaign() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(gamestate.Default())
}

// clearLocked drops the campaign and any in-flight load and leaves the
// session Empty holding gs.
func (s *Session) clearLocked(gs gamestate.GameState) {
	s.loadSeq++
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.state = StateEmpty
	s.campaign = nil
	s.scene = nil
	s.gameState = gs
	s.lastErr = nil
	s.retry = nil
	s.publishLocked()
}

// Retry re-runs the operation that put the session in Error.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	retry := s.retry
	state := s.state
	s.mu.Unlock()
	if state != StateError || retry == nil {
		return invalidState("retry", state)
	}
	return retry(ctx)
}

func (s *Session) enterLocked(scene document.Scene) {
	if s.scene != nil {
		s.gameState.CampaignProgress = progress.RecordSceneCompleted(s.gameState.CampaignProgress, s.scene.ID)
	}
	s.scene = &scene
	s.gameState.CurrentScene = scene.ID
	s.succeedLocked()
}

func (s *Session) succeedLocked() {
	s.state = StateActive
	s.lastErr = nil
	s.retry = nil
	s.publishLocked()
}

func (s *Session) failLocked(err error, retry func(context.Context) error) {
	s.state = StateError
	s.lastErr = err
	s.retry = retry
	s.publishLocked()
}

// requireCampaignLocked allows navigation from Active, or from Error when a
// campaign is still on display.
func (s *Session) requireCampaignLocked(op string) error {
	if s.campaign == nil || s.scene == nil {
		return invalidState(op, s.state)
	}
	if s.state != StateActive && s.state != StateError {
		return invalidState(op, s.state)
	}
	return nil
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID: s.id,
		Version:   s.version,
		State:     s.state,
		Loading:   s.state == StateLoading,
		Campaign:  s.campaign,
		GameState: s.gameState.Clone(),
		Error:     newErrorView(s.lastErr),
	}
	if s.scene != nil {
		scene := *s.scene
		v.Scene = &scene
	}
	return v
}

func (s *Session) publishLocked() {
	s.version++
	if len(s.subs) == 0 {
		return
	}
	v := s.viewLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func invalidState(op string, state State) error {
	return apperrors.WithMetadata(
		apperrors.CodeSessionInvalidState,
		fmt.Sprintf("cannot %s while %s", op, state),
		map[string]string{"Operation": op, "State": string(state)},
	)
}

func superseded(id string) error {
	return apperrors.WithMetadata(
		apperrors.CodeSuperseded,
		fmt.Sprintf("load of %s superseded", id),
		map[string]string{"CampaignID": id},
	)
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
}
