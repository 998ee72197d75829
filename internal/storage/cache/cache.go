// Package cache decorates a campaign fetcher with an LRU of validated
// documents and per-id request deduplication.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/platform/timeouts"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

// DefaultSize is the number of documents kept when New is given size <= 0.
const DefaultSize = 32

// Fetcher caches successful fetches from next. Failures are never cached.
type Fetcher struct {
	next   storage.CampaignFetcher
	cache  *lru.Cache
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps next with a cache of size documents.
func New(next storage.CampaignFetcher, size int) (*Fetcher, error) {
	if next == nil {
		return nil, fmt.Errorf("campaign fetcher is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create campaign cache: %w", err)
	}
	return &Fetcher{next: next, cache: cache}, nil
}

// FetchCampaign returns the cached document for id or fetches it once for
// all concurrent callers. The shared fetch is detached from any single
// caller's cancellation; each caller still returns as soon as its own
// context ends.
func (f *Fetcher) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return document.Campaign{}, err
	}
	if cached, ok := f.cache.Get(id); ok {
		f.hits.Add(1)
		return cached.(document.Campaign), nil
	}
	f.misses.Add(1)

	ch := f.group.DoChan(id, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.CampaignFetch)
		defer cancel()
		c, err := f.next.FetchCampaign(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		f.cache.Add(id, c)
		return c, nil
	})

	select {
	case <-ctx.Done():
		return document.Campaign{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return document.Campaign{}, res.Err
		}
		return res.Val.(document.Campaign), nil
	}
}

// ListCampaigns passes through to the wrapped fetcher when it can list.
func (f *Fetcher) ListCampaigns(ctx context.Context) ([]document.Summary, error) {
	lister, ok := f.next.(storage.CampaignLister)
	if !ok {
		return nil, nil
	}
	return lister.ListCampaigns(ctx)
}

// Invalidate drops id from the cache.
func (f *Fetcher) Invalidate(id string) {
	f.cache.Remove(id)
}

// Purge empties the cache.
func (f *Fetcher) Purge() {
	f.cache.Purge()
}

// Stats reports cache hits and misses since construction.
func (f *Fetcher) Stats() (hits, misses int64) {
	return f.hits.Load(), f.misses.Load()
}
