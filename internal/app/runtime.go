// Package app wires campaign sources, snapshot slots and the session shared
// by every command.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/louisbranch/campaign-viewer/data"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	boltstore "github.com/louisbranch/campaign-viewer/internal/storage/bbolt"
	"github.com/louisbranch/campaign-viewer/internal/storage/cache"
	"github.com/louisbranch/campaign-viewer/internal/storage/filesystem"
	"github.com/louisbranch/campaign-viewer/internal/storage/httpfetch"
	sqlitestore "github.com/louisbranch/campaign-viewer/internal/storage/sqlite"
)

// Campaign source kinds.
const (
	SourceBundled = "bundled"
	SourceDir     = "dir"
	SourceHTTP    = "http"
	SourceSQLite  = "sqlite"
	SourceBolt    = "bbolt"
)

// Snapshot slot kinds.
const (
	SnapshotFile   = "file"
	SnapshotSQLite = "sqlite"
	SnapshotBolt   = "bbolt"
	SnapshotNone   = "none"
)

// Config selects where campaigns come from and where progress is saved.
type Config struct {
	CampaignSource string `env:"CAMPAIGN_VIEWER_CAMPAIGN_SOURCE" envDefault:"bundled"`
	CampaignDir    string `env:"CAMPAIGN_VIEWER_CAMPAIGN_DIR"`
	CampaignURL    string `env:"CAMPAIGN_VIEWER_CAMPAIGN_URL"`
	SQLitePath     string `env:"CAMPAIGN_VIEWER_SQLITE_PATH"     envDefault:"campaign-viewer.db"`
	BoltPath       string `env:"CAMPAIGN_VIEWER_BOLT_PATH"       envDefault:"campaign-viewer.bolt"`
	SnapshotStore  string `env:"CAMPAIGN_VIEWER_SNAPSHOT_STORE"  envDefault:"file"`
	SnapshotPath   string `env:"CAMPAIGN_VIEWER_SNAPSHOT_PATH"`
	CacheSize      int    `env:"CAMPAIGN_VIEWER_CACHE_SIZE"      envDefault:"32"`
	SeedBundled    bool   `env:"CAMPAIGN_VIEWER_SEED_BUNDLED"    envDefault:"true"`
}

// BindFlags registers flags that override the environment values in c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.CampaignSource, "source", c.CampaignSource, "campaign source: bundled, dir, http, sqlite or bbolt")
	fs.StringVar(&c.CampaignDir, "campaign-dir", c.CampaignDir, "directory of campaign documents (source=dir)")
	fs.StringVar(&c.CampaignURL, "campaign-url", c.CampaignURL, "base URL serving data/campaigns (source=http)")
	fs.StringVar(&c.SQLitePath, "sqlite-path", c.SQLitePath, "SQLite database path")
	fs.StringVar(&c.BoltPath, "bolt-path", c.BoltPath, "bbolt database path")
	fs.StringVar(&c.SnapshotStore, "snapshot-store", c.SnapshotStore, "snapshot slot: file, sqlite, bbolt or none")
	fs.StringVar(&c.SnapshotPath, "snapshot-path", c.SnapshotPath, "snapshot file path (snapshot-store=file)")
	fs.IntVar(&c.CacheSize, "cache-size", c.CacheSize, "campaign documents kept in memory (0 disables caching)")
	fs.BoolVar(&c.SeedBundled, "seed", c.SeedBundled, "import bundled campaigns into an empty database")
}

// Runtime holds the opened stores and the session built on them.
type Runtime struct {
	Campaigns storage.CampaignSource
	Snapshots storage.SnapshotStore
	Session   *session.Session

	closers []io.Closer
}

// Open builds the stores named by cfg and a session over them.
func Open(ctx context.Context, cfg Config, opts ...session.Option) (*Runtime, error) {
	rt := &Runtime{}
	var (
		sqliteDB *sqlitestore.Store
		boltDB   *boltstore.Store
	)
	openSQLite := func() (*sqlitestore.Store, error) {
		if sqliteDB != nil {
			return sqliteDB, nil
		}
		store, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqliteDB = store
		rt.closers = append(rt.closers, store)
		return store, nil
	}
	openBolt := func() (*boltstore.Store, error) {
		if boltDB != nil {
			return boltDB, nil
		}
		store, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		boltDB = store
		rt.closers = append(rt.closers, store)
		return store, nil
	}

	source, err := openSource(ctx, cfg, openSQLite, openBolt)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if cfg.CacheSize > 0 {
		cached, err := cache.New(source, cfg.CacheSize)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Campaigns = cached
	} else {
		rt.Campaigns = source
	}

	switch strings.ToLower(strings.TrimSpace(cfg.SnapshotStore)) {
	case SnapshotFile, "":
		path := cfg.SnapshotPath
		if path == "" {
			path = filesystem.DefaultSnapshotPath()
		}
		file, err := filesystem.NewSnapshotFile(path)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Snapshots = file
	case SnapshotSQLite:
		store, err := openSQLite()
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Snapshots = store
	case SnapshotBolt:
		store, err := openBolt()
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Snapshots = store
	case SnapshotNone:
	default:
		_ = rt.Close()
		return nil, fmt.Errorf("unknown snapshot store %q", cfg.SnapshotStore)
	}

	if rt.Snapshots != nil {
		opts = append([]session.Option{session.WithSnapshots(rt.Snapshots)}, opts...)
	}
	sess, err := session.New(rt.Campaigns, opts...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Session = sess
	return rt, nil
}

func openSource(
	ctx context.Context,
	cfg Config,
	openSQLite func() (*sqlitestore.Store, error),
	openBolt func() (*boltstore.Store, error),
) (storage.CampaignSource, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CampaignSource)) {
	case SourceBundled, "":
		return filesystem.NewCampaignDir(data.Campaigns()), nil
	case SourceDir:
		if cfg.CampaignDir == "" {
			return nil, errors.New("campaign directory is required for source=dir")
		}
		return filesystem.OpenCampaignDir(cfg.CampaignDir)
	case SourceHTTP:
		if cfg.CampaignURL == "" {
			return nil, errors.New("campaign URL is required for source=http")
		}
		return httpfetch.New(cfg.CampaignURL, nil)
	case SourceSQLite:
		store, err := openSQLite()
		if err != nil {
			return nil, err
		}
		if cfg.SeedBundled {
			if err := seedIfEmpty(ctx, store); err != nil {
				return nil, err
			}
		}
		return store, nil
	case SourceBolt:
		store, err := openBolt()
		if err != nil {
			return nil, err
		}
		if cfg.SeedBundled {
			if err := seedIfEmpty(ctx, store); err != nil {
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown campaign source %q", cfg.CampaignSource)
	}
}

type campaignStore interface {
	storage.CampaignLister
	storage.CampaignWriter
}

// seedIfEmpty imports the bundled campaigns into a store with none.
func seedIfEmpty(ctx context.Context, dst campaignStore) error {
	existing, err := dst.ListCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("list stored campaigns: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	n, err := storage.ImportCampaigns(ctx, dst, filesystem.NewCampaignDir(data.Campaigns()))
	if err != nil {
		return fmt.Errorf("seed bundled campaigns: %w", err)
	}
	log.Printf("seeded %d bundled campaigns", n)
	return nil
}

// Close releases every opened store.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
