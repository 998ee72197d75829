// Package bbolt keeps campaign documents and the snapshot slot in a
// single BoltDB file.
package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	"github.com/louisbranch/campaign-viewer/internal/storage/snapshot"
	"go.etcd.io/bbolt"
)

const (
	campaignBucket = "campaign"
	snapshotBucket = "snapshot"
)

// Store provides a BoltDB-backed campaign source and snapshot store.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutCampaign validates and persists a campaign document.
func (s *Store) PutCampaign(ctx context.Context, c document.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := document.Validate(&c); err != nil {
		return err
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal campaign: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(campaignBucket))
		if bucket == nil {
			return fmt.Errorf("campaign bucket is missing")
		}
		return bucket.Put([]byte(c.ID), payload)
	})
	if err != nil {
		return storage.PersistenceFailure("put campaign "+c.ID, err)
	}
	return nil
}

// FetchCampaign loads and re-validates a campaign document by id.
func (s *Store) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return document.Campaign{}, err
	}
	if s == nil || s.db == nil {
		return document.Campaign{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return document.Campaign{}, storage.CampaignNotFound(id, storage.ErrNotFound)
	}

	var payload []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(campaignBucket))
		if bucket == nil {
			return fmt.Errorf("campaign bucket is missing")
		}
		value := bucket.Get([]byte(id))
		if value == nil {
			return storage.ErrNotFound
		}
		// Bolt values are only valid inside the transaction.
		payload = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return document.Campaign{}, storage.FetchFailure(id, err)
	}
	return document.Parse(id, payload, document.FormatJSON)
}

// ListCampaigns summarises stored campaigns in key order. Entries that no
// longer validate are logged and skipped.
func (s *Store) ListCampaigns(ctx context.Context) ([]document.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	var out []document.Summary
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(campaignBucket))
		if bucket == nil {
			return fmt.Errorf("campaign bucket is missing")
		}
		return bucket.ForEach(func(k, v []byte) error {
			c, err := document.Parse(string(k), v, document.FormatJSON)
			if err != nil {
				log.Printf("skip stored campaign %s: %v", k, err)
				return nil
			}
			out = append(out, c.Summarize())
			return nil
		})
	})
	if err != nil {
		return nil, storage.PersistenceFailure("list campaigns", err)
	}
	return out, nil
}

// ReadSnapshot loads the snapshot slot.
func (s *Store) ReadSnapshot(ctx context.Context) (gamestate.GameState, bool, error) {
	if err := ctx.Err(); err != nil {
		return gamestate.GameState{}, false, err
	}
	if s == nil || s.db == nil {
		return gamestate.GameState{}, false, fmt.Errorf("storage is not configured")
	}
	var payload []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket is missing")
		}
		if value := bucket.Get([]byte(storage.SnapshotSlot)); value != nil {
			payload = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return gamestate.GameState{}, false, storage.PersistenceFailure("read snapshot", err)
	}
	if payload == nil {
		return gamestate.GameState{}, false, nil
	}
	gs, ok, err := snapshot.Decode(payload)
	if err != nil {
		return gamestate.GameState{}, false, storage.PersistenceFailure("read snapshot", err)
	}
	return gs, ok, nil
}

// WriteSnapshot replaces the slot in a single update transaction.
func (s *Store) WriteSnapshot(ctx context.Context, gs gamestate.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	payload, err := snapshot.Encode(gs, s.now())
	if err != nil {
		return storage.PersistenceFailure("write snapshot", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return errors.New("snapshot bucket is missing")
		}
		return bucket.Put([]byte(storage.SnapshotSlot), payload)
	})
	if err != nil {
		return storage.PersistenceFailure("write snapshot", err)
	}
	return nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{campaignBucket, snapshotBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
