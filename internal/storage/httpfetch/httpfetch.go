// Package httpfetch fetches campaign documents from a static web host laid
// out as <base>/data/campaigns/<id>.json.
package httpfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/platform/timeouts"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

const (
	campaignsPath = "data/campaigns/"
	indexFile     = "index.json"
	maxDocument   = 8 << 20
)

// Fetcher reads campaign documents over HTTP.
type Fetcher struct {
	base   *url.URL
	client *http.Client
}

// New builds a fetcher rooted at baseURL. A nil client gets one bounded by
// timeouts.CampaignFetch.
func New(baseURL string, client *http.Client) (*Fetcher, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: timeouts.CampaignFetch}
	}
	return &Fetcher{base: base, client: client}, nil
}

// CampaignURL returns the document location for id.
func (f *Fetcher) CampaignURL(id string) string {
	return f.base.JoinPath(campaignsPath, url.PathEscape(id)+".json").String()
}

// FetchCampaign downloads and validates the document for id.
func (f *Fetcher) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return document.Campaign{}, err
	}
	if f == nil || f.client == nil {
		return document.Campaign{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return document.Campaign{}, storage.CampaignNotFound(id, storage.ErrNotFound)
	}
	body, err := f.get(ctx, f.CampaignURL(id))
	if err != nil {
		return document.Campaign{}, storage.FetchFailure(id, err)
	}
	return document.Parse(id, body, document.FormatJSON)
}

// ListCampaigns reads <base>/data/campaigns/index.json, a JSON array of
// summaries. A host without an index lists nothing.
func (f *Fetcher) ListCampaigns(ctx context.Context) ([]document.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	body, err := f.get(ctx, f.base.JoinPath(campaignsPath, indexFile).String())
	if err == storage.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, storage.PersistenceFailure("list campaigns", err)
	}
	var out []document.Summary
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, storage.PersistenceFailure("list campaigns", fmt.Errorf("decode index: %w", err))
	}
	return out, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, storage.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("get %s: unexpected status %s", target, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if len(body) > maxDocument {
		return nil, fmt.Errorf("get %s: document exceeds %d bytes", target, maxDocument)
	}
	return body, nil
}
