package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

// SnapshotSlot is the well-known key of the saved game state.
const SnapshotSlot = "dnd-campaign-save"

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// CampaignFetcher returns validated campaign documents.
type CampaignFetcher interface {
	FetchCampaign(ctx context.Context, id string) (document.Campaign, error)
}

// CampaignLister lists the campaigns a fetcher can serve.
type CampaignLister interface {
	ListCampaigns(ctx context.Context) ([]document.Summary, error)
}

// CampaignSource is a fetcher that can also list its campaigns.
type CampaignSource interface {
	CampaignFetcher
	CampaignLister
}

// CampaignWriter stores raw campaign documents, validating them first.
type CampaignWriter interface {
	PutCampaign(ctx context.Context, c document.Campaign) error
}

// SnapshotStore reads and writes the single saved game state slot.
// ReadSnapshot reports false when nothing usable is saved.
type SnapshotStore interface {
	ReadSnapshot(ctx context.Context) (gamestate.GameState, bool, error)
	WriteSnapshot(ctx context.Context, gs gamestate.GameState) error
}

// CampaignNotFound builds the CAMPAIGN_NOT_FOUND error for id.
func CampaignNotFound(id string, cause error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeCampaignNotFound,
		fmt.Sprintf("Campaign %s not found", id),
		map[string]string{"CampaignID": id},
		cause,
	)
}

// PersistenceFailure builds the PERSISTENCE_FAILURE error for op.
func PersistenceFailure(op string, cause error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodePersistenceFailure,
		op,
		map[string]string{"Operation": op},
		cause,
	)
}

// FetchFailure classifies an adapter error from fetching id. Domain errors
// pass through, ErrNotFound becomes CAMPAIGN_NOT_FOUND, context errors are
// returned as is and anything else is a PERSISTENCE_FAILURE.
func FetchFailure(id string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return CampaignNotFound(id, err)
	}
	return PersistenceFailure("fetch campaign "+id, err)
}

// ImportCampaigns copies every campaign src lists into dst and reports how
// many were written.
func ImportCampaigns(ctx context.Context, dst CampaignWriter, src CampaignSource) (int, error) {
	summaries, err := src.ListCampaigns(ctx)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, sum := range summaries {
		c, err := src.FetchCampaign(ctx, sum.ID)
		if err != nil {
			return imported, fmt.Errorf("import %s: %w", sum.ID, err)
		}
		if err := dst.PutCampaign(ctx, c); err != nil {
			return imported, fmt.Errorf("import %s: %w", sum.ID, err)
		}
		imported++
	}
	return imported, nil
}
