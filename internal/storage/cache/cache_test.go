package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

type countingFetcher struct {
	calls   atomic.Int64
	release chan struct{}
	err     error
}

func (f *countingFetcher) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return document.Campaign{}, ctx.Err()
		}
	}
	if f.err != nil {
		return document.Campaign{}, f.err
	}
	return document.Campaign{ID: id, Scenes: []document.Scene{{ID: "start"}}}, nil
}

func TestFetchCampaignCachesSuccess(t *testing.T) {
	next := &countingFetcher{}
	f, err := New(next, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		c, err := f.FetchCampaign(context.Background(), "a")
		if err != nil || c.ID != "a" {
			t.Fatalf("FetchCampaign = %+v, %v", c, err)
		}
	}
	if got := next.calls.Load(); got != 1 {
		t.Fatalf("underlying calls = %d, want 1", got)
	}
	if hits, misses := f.Stats(); hits != 2 || misses != 1 {
		t.Fatalf("stats = %d hits %d misses", hits, misses)
	}

	f.Invalidate("a")
	_, _ = f.FetchCampaign(context.Background(), "a")
	if got := next.calls.Load(); got != 2 {
		t.Fatalf("calls after invalidate = %d, want 2", got)
	}
}

func TestFetchCampaignEvictsLeastRecentlyUsed(t *testing.T) {
	next := &countingFetcher{}
	f, _ := New(next, 2)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "a"} {
		if _, err := f.FetchCampaign(ctx, id); err != nil {
			t.Fatalf("FetchCampaign(%s): %v", id, err)
		}
	}
	if got := next.calls.Load(); got != 4 {
		t.Fatalf("calls = %d, want 4 (a evicted by c)", got)
	}
}

func TestFetchCampaignDoesNotCacheErrors(t *testing.T) {
	next := &countingFetcher{err: storage.CampaignNotFound("x", storage.ErrNotFound)}
	f, _ := New(next, 2)
	for i := 0; i < 2; i++ {
		if _, err := f.FetchCampaign(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := next.calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestFetchCampaignDeduplicatesConcurrentCalls(t *testing.T) {
	next := &countingFetcher{release: make(chan struct{})}
	f, _ := New(next, 2)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.FetchCampaign(context.Background(), "a")
			errs <- err
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for next.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Give the remaining callers time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(next.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("FetchCampaign: %v", err)
		}
	}
	if got := next.calls.Load(); got != 1 {
		t.Fatalf("underlying calls = %d, want 1", got)
	}
}

func TestFetchCampaignCallerCancellation(t *testing.T) {
	next := &countingFetcher{release: make(chan struct{})}
	f, _ := New(next, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.FetchCampaign(ctx, "slow")
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}
	close(next.release)
}

func TestNewRequiresFetcher(t *testing.T) {
	if _, err := New(nil, 1); err == nil {
		t.Fatal("expected error")
	}
}
