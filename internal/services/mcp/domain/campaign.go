package domain

import (
	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
)

// CampaignListInput represents the MCP tool input for listing campaigns.
type CampaignListInput struct {
	Filter    string `json:"filter,omitempty" jsonschema:"AIP-160 filter over id, title, difficulty, min_level, max_level, scene_count"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum campaigns to return (default 20, max 100)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// CampaignListEntry represents a readable campaign catalog entry.
type CampaignListEntry struct {
	ID                string `json:"id" jsonschema:"campaign identifier"`
	Title             string `json:"title" jsonschema:"campaign title"`
	Description       string `json:"description" jsonschema:"campaign description"`
	Difficulty        string `json:"difficulty" jsonschema:"beginner, intermediate or advanced"`
	EstimatedDuration string `json:"estimated_duration" jsonschema:"free-form play time estimate"`
	MinLevel          int    `json:"min_level" jsonschema:"minimum party level"`
	MaxLevel          int    `json:"max_level" jsonschema:"maximum party level"`
	SceneCount        int    `json:"scene_count" jsonschema:"number of scenes"`
}

// CampaignListResult represents the MCP tool output for listing campaigns.
type CampaignListResult struct {
	Campaigns     []CampaignListEntry `json:"campaigns" jsonschema:"matching campaigns ordered by id"`
	NextPageToken string              `json:"next_page_token,omitempty" jsonschema:"token for the next page, empty on the last page"`
	TotalSize     int                 `json:"total_size" jsonschema:"number of campaigns matching the filter"`
}

// CampaignLoadInput represents the MCP tool input for loading a campaign.
type CampaignLoadInput struct {
	CampaignID string `json:"campaign_id" jsonschema:"campaign identifier"`
}

// SessionResult is the compact session summary returned by mutating tools.
// The complete view is readable from session://current.
type SessionResult struct {
	SessionID       string   `json:"session_id" jsonschema:"session identifier"`
	Version         uint64   `json:"version" jsonschema:"view version, increases on every change"`
	State           string   `json:"state" jsonschema:"empty, loading, active or error"`
	CampaignID      string   `json:"campaign_id,omitempty" jsonschema:"loaded campaign identifier"`
	CampaignTitle   string   `json:"campaign_title,omitempty" jsonschema:"loaded campaign title"`
	SceneID         string   `json:"scene_id,omitempty" jsonschema:"current scene identifier"`
	SceneTitle      string   `json:"scene_title,omitempty" jsonschema:"current scene title"`
	Description     string   `json:"description,omitempty" jsonschema:"current scene description"`
	CompletedScenes []string `json:"completed_scenes,omitempty" jsonschema:"scenes left behind, in order"`
	DiscoveredClues []string `json:"discovered_clues,omitempty" jsonschema:"clues found so far"`
	TimeElapsed     int      `json:"time_elapsed" jsonschema:"in-game minutes elapsed"`
	ErrorCode       string   `json:"error_code,omitempty" jsonschema:"code of the last failure when state is error"`
	ErrorMessage    string   `json:"error_message,omitempty" jsonschema:"message of the last failure when state is error"`
}

func campaignListEntry(s document.Summary) CampaignListEntry {
	return CampaignListEntry{
		ID:                s.ID,
		Title:             s.Title,
		Description:       s.Description,
		Difficulty:        string(s.Difficulty),
		EstimatedDuration: s.EstimatedDuration,
		MinLevel:          s.MinLevel,
		MaxLevel:          s.MaxLevel,
		SceneCount:        s.SceneCount,
	}
}

func sessionResult(v session.View) SessionResult {
	result := SessionResult{
		SessionID:       v.SessionID,
		Version:         v.Version,
		State:           string(v.State),
		CompletedScenes: v.GameState.CampaignProgress.CompletedScenes,
		DiscoveredClues: v.GameState.CampaignProgress.DiscoveredClues,
		TimeElapsed:     v.GameState.CampaignProgress.TimeElapsed,
	}
	if v.Campaign != nil {
		result.CampaignID = v.Campaign.ID
		result.CampaignTitle = v.Campaign.Title
	}
	if v.Scene != nil {
		result.SceneID = v.Scene.ID
		result.SceneTitle = v.Scene.Title
		result.Description = v.Scene.Description
	}
	if v.Error != nil {
		result.ErrorCode = string(v.Error.Code)
		result.ErrorMessage = v.Error.Message
	}
	return result
}
