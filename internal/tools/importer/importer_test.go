package importer

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	boltstore "github.com/louisbranch/campaign-viewer/internal/storage/bbolt"
	sqlitestore "github.com/louisbranch/campaign-viewer/internal/storage/sqlite"
)

func bundledDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "..", "data", "campaigns"))
	if err != nil {
		t.Fatalf("resolve data dir: %v", err)
	}
	return dir
}

func TestParseConfigRequiresDir(t *testing.T) {
	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error without dir")
	}
}

func TestParseConfigDefaultsDBPath(t *testing.T) {
	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-dir", "x", "-store", "bbolt"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != filepath.Join("data", "campaigns.bolt") {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}

func TestParseConfigReadsEnv(t *testing.T) {
	t.Setenv("CAMPAIGN_VIEWER_IMPORT_DIR", "/srv/campaigns")
	t.Setenv("CAMPAIGN_VIEWER_IMPORT_DRY_RUN", "true")
	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Dir != "/srv/campaigns" || !cfg.DryRun || cfg.Store != StoreSQLite {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.DBPath != filepath.Join("data", "campaigns.db") {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}

func TestParseConfigRejectsStore(t *testing.T) {
	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	if _, err := ParseConfig(fs, []string{"-dir", "x", "-store", "postgres"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestRunDryRun(t *testing.T) {
	var out bytes.Buffer
	dbPath := filepath.Join(t.TempDir(), "campaigns.db")
	err := Run(context.Background(), Config{Dir: bundledDir(t), Store: StoreSQLite, DBPath: dbPath, DryRun: true}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "validated 2 campaign(s)") {
		t.Fatalf("output = %q", out.String())
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("dry run created database: %v", err)
	}
}

func TestRunImportsIntoSQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "campaigns.db")
	if err := Run(ctx, Config{Dir: bundledDir(t), Store: StoreSQLite, DBPath: dbPath}, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	store, err := sqlitestore.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	summaries, err := store.ListCampaigns(ctx)
	if err != nil {
		t.Fatalf("list campaigns: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("campaigns = %d, want 2", len(summaries))
	}
}

func TestRunImportsIntoBolt(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "campaigns.bolt")
	if err := Run(ctx, Config{Dir: bundledDir(t), Store: StoreBolt, DBPath: dbPath}, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	store, err := boltstore.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if _, err := store.FetchCampaign(ctx, "missing_merchant"); err != nil {
		t.Fatalf("fetch campaign: %v", err)
	}
}

func TestRunFailsWithoutValidDocuments(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"campaignId": "broken"`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := Run(context.Background(), Config{Dir: dir, Store: StoreSQLite, DryRun: true}, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunRejectsEmptyDir(t *testing.T) {
	if err := Run(context.Background(), Config{Dir: t.TempDir(), Store: StoreSQLite, DryRun: true}, nil); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
