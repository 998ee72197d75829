package session

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/campaign-viewer/internal/platform/timeouts"
)

// SaveProgress writes the game state to the snapshot slot. Failures are
// logged and reported as false; the session itself never changes.
func (s *Session) SaveProgress(ctx context.Context) bool {
	ctx, span := s.tracer.Start(ctx, "session.SaveProgress", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	if s.snapshots == nil {
		return false
	}
	s.mu.Lock()
	gs := s.gameState.Clone()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeouts.SnapshotWrite)
	defer cancel()
	if err := s.snapshots.WriteSnapshot(ctx, gs); err != nil {
		recordSpanError(span, err)
		s.logger.Printf("session %s: save progress: %v", s.id, err)
		return false
	}
	return true
}

// LoadProgress restores the saved game state. It reports whether a snapshot
// was found; read failures count as no snapshot. When the snapshot names a
// campaign, that campaign is loaded and the saved scene resumed if it still
// exists. A snapshot without a campaign leaves the session Empty. A failed
// load leaves the session in Error like any other load.
func (s *Session) LoadProgress(ctx context.Context) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.LoadProgress", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	if s.snapshots == nil {
		return false, nil
	}
	gs, ok, err := s.snapshots.ReadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		s.logger.Printf("session %s: load progress: %v", s.id, err)
		return false, nil
	}
	if !ok {
		return false, nil
	}

	campaignID := gs.CurrentCampaign
	sceneID := gs.CurrentScene
	s.mu.Lock()
	if campaignID == "" {
		s.clearLocked(gs.Clone())
		s.mu.Unlock()
		return true, nil
	}
	s.gameState = gs.Clone()
	s.publishLocked()
	s.mu.Unlock()

	span.SetAttributes(attribute.String("campaign.id", campaignID))
	err = s.load(ctx, campaignID, sceneID)
	recordSpanError(span, err)
	return true, err
}
