// Package memory provides in-memory campaign and snapshot stores for tests
// and scripted scenarios.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

// ErrCampaignIDRequired indicates a missing campaign id.
var ErrCampaignIDRequired = errors.New("campaign id is required")

// Campaigns stores validated campaign documents in memory.
type Campaigns struct {
	mu        sync.Mutex
	campaigns map[string]document.Campaign
	fetches   map[string]int
}

// NewCampaigns creates a store seeded with docs. Invalid documents are
// rejected.
func NewCampaigns(docs ...document.Campaign) (*Campaigns, error) {
	c := &Campaigns{
		campaigns: make(map[string]document.Campaign),
		fetches:   make(map[string]int),
	}
	for _, doc := range docs {
		if err := c.PutCampaign(context.Background(), doc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PutCampaign validates and stores doc, replacing any previous version.
func (c *Campaigns) PutCampaign(ctx context.Context, doc document.Campaign) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if c == nil {
		return errors.New("campaign store is required")
	}
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return ErrCampaignIDRequired
	}
	if err := document.Validate(&doc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.campaigns[id] = doc
	return nil
}

// FetchCampaign returns the document stored under id.
func (c *Campaigns) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return document.Campaign{}, err
		}
	}
	if c == nil {
		return document.Campaign{}, errors.New("campaign store is required")
	}
	id = strings.TrimSpace(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches[id]++
	doc, ok := c.campaigns[id]
	if !ok {
		return document.Campaign{}, storage.CampaignNotFound(id, storage.ErrNotFound)
	}
	return doc, nil
}

// ListCampaigns returns summaries sorted by id.
func (c *Campaigns) ListCampaigns(ctx context.Context) ([]document.Summary, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if c == nil {
		return nil, errors.New("campaign store is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]document.Summary, 0, len(c.campaigns))
	for _, doc := range c.campaigns {
		out = append(out, doc.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Fetches reports how many times id was fetched.
func (c *Campaigns) Fetches(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches[id]
}

// Snapshot holds the single saved game state slot in memory.
type Snapshot struct {
	mu      sync.Mutex
	state   *gamestate.GameState
	savedAt time.Time
	writes  int

	// ReadErr and WriteErr, when set, are returned by the next calls.
	ReadErr  error
	WriteErr error
}

// NewSnapshot creates an empty snapshot slot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// ReadSnapshot returns a copy of the saved state.
func (s *Snapshot) ReadSnapshot(ctx context.Context) (gamestate.GameState, bool, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return gamestate.GameState{}, false, err
		}
	}
	if s == nil {
		return gamestate.GameState{}, false, errors.New("snapshot store is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return gamestate.GameState{}, false, storage.PersistenceFailure("read snapshot", s.ReadErr)
	}
	if s.state == nil {
		return gamestate.GameState{}, false, nil
	}
	return s.state.Clone(), true, nil
}

// WriteSnapshot replaces the saved state with a copy of gs.
func (s *Snapshot) WriteSnapshot(ctx context.Context, gs gamestate.GameState) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if s == nil {
		return errors.New("snapshot store is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return storage.PersistenceFailure("write snapshot", s.WriteErr)
	}
	cloned := gs.Clone()
	s.state = &cloned
	s.savedAt = time.Now().UTC()
	s.writes++
	return nil
}

// Writes reports the number of successful writes.
func (s *Snapshot) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// SetFailures sets the errors returned by subsequent reads and writes.
func (s *Snapshot) SetFailures(readErr, writeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadErr = readErr
	s.WriteErr = writeErr
}
