package catalog

import (
	"sort"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"github.com/louisbranch/campaign-viewer/internal/storage/cursor"
)

const (
	// DefaultPageSize is used when a request asks for zero items.
	DefaultPageSize = 20
	// MaxPageSize caps a single page.
	MaxPageSize = 100
)

// Request selects a page of campaign summaries.
type Request struct {
	Filter    string
	PageSize  int
	PageToken string
}

// Page is one page of matching summaries.
type Page struct {
	Campaigns     []document.Summary `json:"campaigns"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
	TotalSize     int                `json:"totalSize"`
}

// List filters summaries, orders them by id and returns the requested page.
func List(summaries []document.Summary, req Request) (Page, error) {
	pred, err := ParseFilter(req.Filter)
	if err != nil {
		return Page{}, err
	}

	offset := 0
	if req.PageToken != "" {
		c, err := cursor.Decode(req.PageToken)
		if err != nil {
			return Page{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid page token", err)
		}
		if err := cursor.ValidateFilterHash(c, req.Filter); err != nil {
			return Page{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid page token", err)
		}
		offset = c.Offset
	}

	size := req.PageSize
	switch {
	case size < 0:
		return Page{}, apperrors.New(apperrors.CodeInvalidArgument, "page size must not be negative")
	case size == 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}

	matched := make([]document.Summary, 0, len(summaries))
	for _, s := range summaries {
		if pred(s) {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := Page{TotalSize: len(matched), Campaigns: []document.Summary{}}
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + size
	if end > len(matched) {
		end = len(matched)
	}
	page.Campaigns = matched[offset:end]
	if end < len(matched) {
		token, err := cursor.Encode(cursor.NewPageCursor(end, req.Filter))
		if err != nil {
			return Page{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}
