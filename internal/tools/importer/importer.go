// Package importer copies campaign documents from a directory into a
// campaign database.
package importer

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/platform/config"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	boltstore "github.com/louisbranch/campaign-viewer/internal/storage/bbolt"
	"github.com/louisbranch/campaign-viewer/internal/storage/filesystem"
	sqlitestore "github.com/louisbranch/campaign-viewer/internal/storage/sqlite"
)

// Target database kinds.
const (
	StoreSQLite = "sqlite"
	StoreBolt   = "bbolt"
)

// Config holds configuration for the campaign importer.
type Config struct {
	Dir    string `env:"IMPORT_DIR"`
	Store  string `env:"IMPORT_STORE"   envDefault:"sqlite"`
	DBPath string `env:"IMPORT_DB_PATH"`
	DryRun bool   `env:"IMPORT_DRY_RUN"`
}

// ParseConfig reads CAMPAIGN_VIEWER_IMPORT_* defaults and then CLI flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvWithPrefix(&cfg, config.EnvPrefix); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "directory of campaign .json/.yaml files")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "target database: sqlite or bbolt")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "database path (default data/campaigns.<ext>)")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "validate without writing to the database")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.Dir) == "" {
		return Config{}, errors.New("dir is required")
	}
	switch cfg.Store {
	case StoreSQLite, StoreBolt:
	default:
		return Config{}, fmt.Errorf("store %q is not supported", cfg.Store)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath(cfg.Store)
	}
	return cfg, nil
}

func defaultDBPath(store string) string {
	if store == StoreBolt {
		return filepath.Join("data", "campaigns.bolt")
	}
	return filepath.Join("data", "campaigns.db")
}

// Run imports every campaign under cfg.Dir. Each document is decoded and
// validated before anything is written.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}

	src, err := filesystem.OpenCampaignDir(strings.TrimSpace(cfg.Dir))
	if err != nil {
		return err
	}
	validated, err := storage.ImportCampaigns(ctx, discardWriter{}, src)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if validated == 0 {
		return fmt.Errorf("no campaigns found in %s", cfg.Dir)
	}
	if cfg.DryRun {
		_, err = fmt.Fprintf(out, "validated %d campaign(s)\n", validated)
		return err
	}

	dst, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	imported, err := storage.ImportCampaigns(ctx, dst, src)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "imported %d campaign(s) into %s\n", imported, cfg.DBPath)
	return err
}

func openStore(ctx context.Context, cfg Config) (storage.CampaignWriter, func(), error) {
	switch cfg.Store {
	case StoreBolt:
		store, err := boltstore.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bbolt store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		store, err := sqlitestore.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
}

type discardWriter struct{}

func (discardWriter) PutCampaign(context.Context, document.Campaign) error { return nil }
