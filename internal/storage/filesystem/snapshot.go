package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/storage"
	"github.com/louisbranch/campaign-viewer/internal/storage/snapshot"
)

// SnapshotFile keeps the snapshot slot in one file. Writes go to a temp
// file in the same directory which is then renamed over the slot, so a
// reader sees either the previous snapshot or the new one.
type SnapshotFile struct {
	path string
	now  func() time.Time
}

// NewSnapshotFile stores the slot at path.
func NewSnapshotFile(path string) (*SnapshotFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	return &SnapshotFile{path: filepath.Clean(path), now: time.Now}, nil
}

// DefaultSnapshotPath places the slot under the user config directory.
func DefaultSnapshotPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "campaign-viewer", storage.SnapshotSlot+".json")
}

// Path returns the slot file location.
func (f *SnapshotFile) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// ReadSnapshot loads the slot. A missing file is not an error.
func (f *SnapshotFile) ReadSnapshot(ctx context.Context) (gamestate.GameState, bool, error) {
	if err := ctx.Err(); err != nil {
		return gamestate.GameState{}, false, err
	}
	if f == nil {
		return gamestate.GameState{}, false, fmt.Errorf("storage is not configured")
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return gamestate.GameState{}, false, nil
	}
	if err != nil {
		return gamestate.GameState{}, false, storage.PersistenceFailure("read snapshot", err)
	}
	gs, ok, err := snapshot.Decode(data)
	if err != nil {
		return gamestate.GameState{}, false, storage.PersistenceFailure("read snapshot", err)
	}
	return gs, ok, nil
}

// WriteSnapshot replaces the slot atomically.
func (f *SnapshotFile) WriteSnapshot(ctx context.Context, gs gamestate.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("storage is not configured")
	}
	data, err := snapshot.Encode(gs, f.now())
	if err != nil {
		return storage.PersistenceFailure("write snapshot", err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return storage.PersistenceFailure("write snapshot", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
