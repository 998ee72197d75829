// Package filesystem serves campaign documents from a directory and keeps
// the snapshot slot in a local file.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

var extensions = []string{".json", ".yaml", ".yml"}

// CampaignDir reads <id>.json, <id>.yaml or <id>.yml documents from a
// directory tree.
type CampaignDir struct {
	fsys fs.FS
}

// NewCampaignDir serves campaigns from fsys.
func NewCampaignDir(fsys fs.FS) *CampaignDir {
	return &CampaignDir{fsys: fsys}
}

// OpenCampaignDir serves campaigns from the directory at path.
func OpenCampaignDir(path string) (*CampaignDir, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("campaign directory is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open campaign directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("campaign directory %s is not a directory", path)
	}
	return NewCampaignDir(os.DirFS(path)), nil
}

// FetchCampaign reads and validates the document for id.
func (d *CampaignDir) FetchCampaign(ctx context.Context, id string) (document.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return document.Campaign{}, err
	}
	if d == nil || d.fsys == nil {
		return document.Campaign{}, fmt.Errorf("storage is not configured")
	}
	if !validID(id) {
		return document.Campaign{}, storage.CampaignNotFound(id, storage.ErrNotFound)
	}
	for _, ext := range extensions {
		data, err := fs.ReadFile(d.fsys, id+ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return document.Campaign{}, storage.PersistenceFailure("read campaign "+id, err)
		}
		format, _ := document.FormatForPath(ext)
		return document.Parse(id, data, format)
	}
	return document.Campaign{}, storage.CampaignNotFound(id, storage.ErrNotFound)
}

// ListCampaigns summarises every valid document in the directory, sorted by
// id. Documents that fail validation are logged and skipped.
func (d *CampaignDir) ListCampaigns(ctx context.Context) ([]document.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d == nil || d.fsys == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	entries, err := fs.ReadDir(d.fsys, ".")
	if err != nil {
		return nil, storage.PersistenceFailure("list campaigns", err)
	}
	seen := make(map[string]struct{})
	var out []document.Summary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := document.FormatForPath(entry.Name())
		if !ok {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), entryExt(entry.Name()))
		if _, dup := seen[id]; dup {
			continue
		}
		data, err := fs.ReadFile(d.fsys, entry.Name())
		if err != nil {
			return nil, storage.PersistenceFailure("read campaign "+id, err)
		}
		c, err := document.Parse(id, data, format)
		if err != nil {
			log.Printf("skip campaign %s: %v", entry.Name(), err)
			continue
		}
		seen[id] = struct{}{}
		out = append(out, c.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func entryExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func validID(id string) bool {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return false
	}
	return fs.ValidPath(id)
}
