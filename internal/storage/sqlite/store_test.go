package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/louisbranch/campaign-viewer/data"
	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/progress"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	"github.com/louisbranch/campaign-viewer/internal/storage/filesystem"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "viewer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
}

func TestImportAndFetchCampaigns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	n, err := storage.ImportCampaigns(ctx, store, filesystem.NewCampaignDir(data.Campaigns()))
	if err != nil {
		t.Fatalf("ImportCampaigns: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported = %d, want 2", n)
	}

	c, err := store.FetchCampaign(ctx, "missing_merchant")
	if err != nil {
		t.Fatalf("FetchCampaign: %v", err)
	}
	road, ok := c.Scene("forest_road")
	if !ok || road.Encounters[0].Data.SkillCheck == nil {
		t.Fatalf("forest_road = %+v", road)
	}

	summaries, err := store.ListCampaigns(ctx)
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "missing_merchant" || summaries[1].Difficulty != document.DifficultyIntermediate {
		t.Fatalf("summaries = %+v", summaries)
	}

	// Re-import replaces rows instead of duplicating them.
	if _, err := storage.ImportCampaigns(ctx, store, filesystem.NewCampaignDir(data.Campaigns())); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	summaries, _ = store.ListCampaigns(ctx)
	if len(summaries) != 2 {
		t.Fatalf("summaries after re-import = %d, want 2", len(summaries))
	}
}

func TestFetchCampaignNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.FetchCampaign(context.Background(), "nope")
	if !apperrors.HasCode(err, apperrors.CodeCampaignNotFound) {
		t.Fatalf("error = %v, want CAMPAIGN_NOT_FOUND", err)
	}
}

func TestPutCampaignValidates(t *testing.T) {
	store := openTestStore(t)
	err := store.PutCampaign(context.Background(), document.Campaign{ID: "empty"})
	if !apperrors.HasCode(err, apperrors.CodeCampaignMalformed) {
		t.Fatalf("error = %v, want CAMPAIGN_MALFORMED", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.ReadSnapshot(ctx); err != nil || ok {
		t.Fatalf("empty slot = %v, %v", ok, err)
	}

	first := gamestate.Default()
	if err := store.WriteSnapshot(ctx, first); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, ok, err := store.ReadSnapshot(ctx)
	if err != nil || !ok || !reflect.DeepEqual(got, first) {
		t.Fatalf("ReadSnapshot = %+v, %v, %v", got, ok, err)
	}

	second := gamestate.Default()
	second.CurrentCampaign = "missing_merchant"
	second.CurrentScene = "merchant_camp"
	second.CampaignProgress = progress.RecordSceneCompleted(second.CampaignProgress, "town_square")
	if err := store.WriteSnapshot(ctx, second); err != nil {
		t.Fatalf("overwrite snapshot: %v", err)
	}
	got, _, _ = store.ReadSnapshot(ctx)
	if !reflect.DeepEqual(got, second) {
		t.Fatalf("snapshot = %+v, want %+v", got, second)
	}

	var rows int
	if err := store.sqlDB.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&rows); err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	if rows != 1 {
		t.Fatalf("snapshot rows = %d, want 1", rows)
	}
}

func TestSnapshotUnknownVersionIsAbsent(t *testing.T) {
	store := openTestStore(t)
	_, err := store.sqlDB.Exec(
		"INSERT INTO snapshots (slot, schema_version, saved_at, payload) VALUES (?, 9, 0, ?)",
		store.slot, `{"schemaVersion":9,"state":{}}`,
	)
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	if _, ok, err := store.ReadSnapshot(context.Background()); err != nil || ok {
		t.Fatalf("ReadSnapshot = %v, %v, want absent", ok, err)
	}
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil store: %v", err)
	}
	if _, err := store.FetchCampaign(context.Background(), "x"); err == nil {
		t.Fatal("expected not configured error")
	}
}
