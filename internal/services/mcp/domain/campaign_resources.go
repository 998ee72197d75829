package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

// ResourceUpdateNotifier tells subscribed clients that uri changed.
type ResourceUpdateNotifier func(ctx context.Context, uri string)

// NotifyResourceUpdates sends one notification per non-empty uri.
func NotifyResourceUpdates(ctx context.Context, notify ResourceUpdateNotifier, uris ...string) {
	if notify == nil {
		return
	}
	for _, uri := range uris {
		if strings.TrimSpace(uri) == "" {
			continue
		}
		notify(ctx, uri)
	}
}

// SessionResource describes the current session view.
func SessionResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "session_current",
		Title:       "Current Session",
		Description: "Readable session view: state, loaded campaign, current scene, game state and last error",
		MIMEType:    "application/json",
		URI:         "session://current",
	}
}

// CampaignListResource describes the campaign catalog.
func CampaignListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "campaign_list",
		Title:       "Campaigns",
		Description: "Readable listing of every campaign that can be loaded",
		MIMEType:    "application/json",
		URI:         "campaigns://list",
	}
}

// CampaignListPayload represents the MCP resource payload for the catalog.
type CampaignListPayload struct {
	Campaigns []document.Summary `json:"campaigns"`
}

// SessionResourceHandler returns the current session view.
func SessionResourceHandler(sess *session.Session) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if sess == nil {
			return nil, fmt.Errorf("session is not configured")
		}
		uri := SessionResource().URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}
		if uri != SessionResource().URI {
			return nil, fmt.Errorf("invalid URI: expected %s, got %q", SessionResource().URI, uri)
		}
		return jsonResource(uri, sess.View())
	}
}

// CampaignListResourceHandler returns every campaign summary.
func CampaignListResourceHandler(lister storage.CampaignLister) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if lister == nil {
			return nil, fmt.Errorf("campaign catalog is not configured")
		}
		summaries, err := lister.ListCampaigns(ctx)
		if err != nil {
			return nil, fmt.Errorf("campaign list failed: %w", err)
		}
		payload := CampaignListPayload{Campaigns: summaries}
		if payload.Campaigns == nil {
			payload.Campaigns = []document.Summary{}
		}
		return jsonResource(CampaignListResource().URI, payload)
	}
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
