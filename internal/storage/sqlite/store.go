// Package sqlite stores campaign documents and the snapshot slot in a
// SQLite database using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	"github.com/louisbranch/campaign-viewer/internal/storage/snapshot"
	"github.com/louisbranch/campaign-viewer/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Store provides the SQLite-backed campaign source and snapshot store.
type Store struct {
	sqlDB *sql.DB
	slot  string
	now   func() time.Time
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, slot: storage.SnapshotSlot, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutCampaign validates c and stores it, replacing any document with the
// same id.
func (s *Store) PutCampaign(ctx context.Context, c document.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := document.Validate(&c); err != nil {
		return err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal campaign: %w", err)
	}
	sum := c.Summarize()
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO campaigns (id, title, description, difficulty, estimated_duration, min_level, max_level, scene_count, document, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    difficulty = excluded.difficulty,
    estimated_duration = excluded.estimated_duration,
    min_level = excluded.min_level,
    max_level = excluded.max_level,
    scene_count = excluded.scene_count,
    document = excluded.document,
    updated_at = excluded.updated_at`,
		sum.ID, sum.Title, sum.Description, string(sum.Difficulty), sum.EstimatedDuration,
		sum.MinLevel, sum.MaxLevel, sum.SceneCount, string(payload), toMillis(s.now()),
	)
	if err != nil {
		return storage.PersistenceFailure("put campaign "+c.ID, err)
	}
	return nil
}

// FetchCampaign loads and re-validates the stored document for id.
func (s *Store) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return document.Campaign{}, err
	}
	if s == nil || s.sqlDB == nil {
		return document.Campaign{}, fmt.Errorf("storage is not configured")
	}
	var payload string
	err := s.sqlDB.QueryRowContext(ctx, "SELECT document FROM campaigns WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Campaign{}, storage.CampaignNotFound(id, storage.ErrNotFound)
	}
	if err != nil {
		return document.Campaign{}, storage.FetchFailure(id, err)
	}
	return document.Parse(id, []byte(payload), document.FormatJSON)
}

// ListCampaigns returns the stored summaries ordered by id.
func (s *Store) ListCampaigns(ctx context.Context) ([]document.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, title, description, difficulty, estimated_duration, min_level, max_level, scene_count
FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, storage.PersistenceFailure("list campaigns", err)
	}
	defer rows.Close()

	var out []document.Summary
	for rows.Next() {
		var sum document.Summary
		var difficulty string
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Description, &difficulty, &sum.EstimatedDuration,
			&sum.MinLevel, &sum.MaxLevel, &sum.SceneCount); err != nil {
			return nil, storage.PersistenceFailure("list campaigns", err)
		}
		sum.Difficulty = document.Difficulty(difficulty)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.PersistenceFailure("list campaigns", err)
	}
	return out, nil
}

// ReadSnapshot loads the snapshot slot.
func (s *Store) ReadSnapshot(ctx context.Context) (gamestate.GameState, bool, error) {
	if err := ctx.Err(); err != nil {
		return gamestate.GameState{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return gamestate.GameState{}, false, fmt.Errorf("storage is not configured")
	}
	var payload string
	err := s.sqlDB.QueryRowContext(ctx, "SELECT payload FROM snapshots WHERE slot = ?", s.slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return gamestate.GameState{}, false, nil
	}
	if err != nil {
		return gamestate.GameState{}, false, storage.PersistenceFailure("read snapshot", err)
	}
	gs, ok, err := snapshot.Decode([]byte(payload))
	if err != nil {
		return gamestate.GameState{}, false, storage.PersistenceFailure("read snapshot", err)
	}
	return gs, ok, nil
}

// WriteSnapshot replaces the slot inside one transaction.
func (s *Store) WriteSnapshot(ctx context.Context, gs gamestate.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	now := s.now()
	payload, err := snapshot.Encode(gs, now)
	if err != nil {
		return storage.PersistenceFailure("write snapshot", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.PersistenceFailure("write snapshot", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO snapshots (slot, schema_version, saved_at, payload) VALUES (?, ?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET
    schema_version = excluded.schema_version,
    saved_at = excluded.saved_at,
    payload = excluded.payload`,
		s.slot, snapshot.SchemaVersion, toMillis(now), string(payload),
	)
	if err != nil {
		_ = tx.Rollback()
		return storage.PersistenceFailure("write snapshot", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.PersistenceFailure("write snapshot", err)
	}
	return nil
}
