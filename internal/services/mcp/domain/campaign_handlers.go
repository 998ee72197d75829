package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/campaign-viewer/internal/campaign/catalog"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"github.com/louisbranch/campaign-viewer/internal/platform/i18n"
	"github.com/louisbranch/campaign-viewer/internal/storage"
)

// ToolError reports a failed tool call with the session error code and a
// player-facing message.
type ToolError struct {
	Op  string
	Err error
}

func (e *ToolError) Error() string {
	code := apperrors.CodeOf(e.Err)
	return fmt.Sprintf("%s failed (%s): %s", e.Op, code, apperrors.Localize(e.Err, i18n.DefaultTag().String()))
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func toolError(op string, err error) error {
	return &ToolError{Op: op, Err: err}
}

// CampaignListTool defines the MCP tool schema for browsing the catalog.
func CampaignListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "campaign_list",
		Description: "Lists the campaigns that can be loaded, with optional filtering and paging",
	}
}

// CampaignLoadTool defines the MCP tool schema for loading a campaign.
func CampaignLoadTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "campaign_load",
		Description: "Loads a campaign by id and enters its starting scene, replacing any loaded campaign",
	}
}

// CampaignListHandler pages through the catalog.
func CampaignListHandler(lister storage.CampaignLister) mcp.ToolHandlerFor[CampaignListInput, CampaignListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CampaignListInput) (*mcp.CallToolResult, CampaignListResult, error) {
		if lister == nil {
			return nil, CampaignListResult{}, fmt.Errorf("campaign catalog is not configured")
		}
		summaries, err := lister.ListCampaigns(ctx)
		if err != nil {
			return nil, CampaignListResult{}, toolError("campaign list", err)
		}
		page, err := catalog.List(summaries, catalog.Request{
			Filter:    input.Filter,
			PageSize:  input.PageSize,
			PageToken: input.PageToken,
		})
		if err != nil {
			return nil, CampaignListResult{}, toolError("campaign list", err)
		}

		result := CampaignListResult{
			Campaigns:     make([]CampaignListEntry, 0, len(page.Campaigns)),
			NextPageToken: page.NextPageToken,
			TotalSize:     page.TotalSize,
		}
		for _, summary := range page.Campaigns {
			result.Campaigns = append(result.Campaigns, campaignListEntry(summary))
		}
		return &mcp.CallToolResult{}, result, nil
	}
}

// CampaignLoadHandler loads a campaign into the session.
func CampaignLoadHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[CampaignLoadInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CampaignLoadInput) (*mcp.CallToolResult, SessionResult, error) {
		campaignID := strings.TrimSpace(input.CampaignID)
		if campaignID == "" {
			return nil, SessionResult{}, fmt.Errorf("campaign_id is required")
		}
		err := sess.LoadCampaign(ctx, campaignID)
		// A failed load still changes the view to the error state.
		NotifyResourceUpdates(ctx, notify, SessionResource().URI)
		if err != nil {
			return nil, SessionResult{}, toolError("campaign load", err)
		}
		return &mcp.CallToolResult{}, sessionResult(sess.View()), nil
	}
}
