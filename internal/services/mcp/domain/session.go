package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/campaign-viewer/internal/campaign/gamestate"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
)

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

// SceneInput represents the MCP tool input for moving between scenes.
type SceneInput struct {
	SceneID string `json:"scene_id" jsonschema:"target scene identifier"`
}

// ClueInput represents the MCP tool input for recording a clue.
type ClueInput struct {
	ClueID string `json:"clue_id" jsonschema:"clue identifier"`
}

// RelationshipInput represents the MCP tool input for adjusting an NPC relationship.
type RelationshipInput struct {
	NPCID string `json:"npc_id" jsonschema:"npc identifier"`
	Delta int    `json:"delta" jsonschema:"signed change to the relationship score"`
}

// ChoiceInput represents the MCP tool input for recording a decision.
type ChoiceInput struct {
	DecisionID string `json:"decision_id" jsonschema:"decision identifier"`
	OptionID   string `json:"option_id" jsonschema:"chosen option identifier"`
}

// TimeInput represents the MCP tool input for advancing in-game time.
type TimeInput struct {
	Minutes int `json:"minutes" jsonschema:"minutes to add, never negative"`
}

// DialogueInput represents the MCP tool input for answering an NPC.
type DialogueInput struct {
	NPCID    string `json:"npc_id" jsonschema:"npc identifier in the current scene"`
	ChoiceID string `json:"choice_id" jsonschema:"dialogue choice identifier"`
}

// GameStatePatchInput represents the MCP tool input for patching game state.
type GameStatePatchInput struct {
	Patch string `json:"patch" jsonschema:"JSON object with any of party, inventory, questLog, worldState, campaignProgress"`
}

// ExitEntry is one exit from the current scene.
type ExitEntry struct {
	To          string `json:"to" jsonschema:"target scene identifier"`
	Title       string `json:"title" jsonschema:"target scene title"`
	Label       string `json:"label" jsonschema:"exit label"`
	Traversable bool   `json:"traversable" jsonschema:"whether the exit can be taken now"`
	Reason      string `json:"reason,omitempty" jsonschema:"why the exit is blocked"`
}

// ExitsResult represents the MCP tool output for listing exits.
type ExitsResult struct {
	Exits []ExitEntry `json:"exits" jsonschema:"exits from the current scene"`
}

// SaveResult represents the MCP tool output for saving progress.
type SaveResult struct {
	Saved bool `json:"saved" jsonschema:"whether the snapshot was written"`
}

// RestoreResult represents the MCP tool output for restoring progress.
type RestoreResult struct {
	Restored bool          `json:"restored" jsonschema:"whether a saved snapshot was applied"`
	Session  SessionResult `json:"session" jsonschema:"session after the restore"`
}

// SceneTransitionTool defines the MCP tool schema for scene transitions.
func SceneTransitionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "scene_transition",
		Description: "Moves to any scene of the loaded campaign, marking the current scene completed",
	}
}

// SceneTravelTool defines the MCP tool schema for gated travel.
func SceneTravelTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "scene_travel",
		Description: "Takes an exit of the current scene when its requirements are met",
	}
}

// SceneExitsTool defines the MCP tool schema for listing exits.
func SceneExitsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "scene_exits",
		Description: "Lists the exits of the current scene and whether each can be taken",
	}
}

// SceneExploreTool defines the MCP tool schema for exploring a scene.
func SceneExploreTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "scene_explore",
		Description: "Explores the current scene, discovering its clues and passing time",
	}
}

// SessionStateTool defines the MCP tool schema for reading the session.
func SessionStateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_state",
		Description: "Summarizes the session; read session://current for the full view",
	}
}

// ClueRecordTool defines the MCP tool schema for recording clues.
func ClueRecordTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "progress_clue",
		Description: "Records a discovered clue",
	}
}

// RelationshipAdjustTool defines the MCP tool schema for relationship changes.
func RelationshipAdjustTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "progress_relationship",
		Description: "Adjusts the relationship score with an NPC",
	}
}

// ChoiceRecordTool defines the MCP tool schema for recording decisions.
func ChoiceRecordTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "progress_choice",
		Description: "Records the option taken for a decision",
	}
}

// TimeAdvanceTool defines the MCP tool schema for passing time.
func TimeAdvanceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "progress_time",
		Description: "Advances in-game time by a number of minutes",
	}
}

// DialogueChooseTool defines the MCP tool schema for dialogue choices.
func DialogueChooseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "dialogue_choose",
		Description: "Answers an NPC in the current scene and applies the choice consequences",
	}
}

// GameStatePatchTool defines the MCP tool schema for game state patches.
func GameStatePatchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "gamestate_patch",
		Description: "Shallow-merges a game state patch into the session",
	}
}

// ProgressSaveTool defines the MCP tool schema for saving progress.
func ProgressSaveTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "progress_save",
		Description: "Saves the game state to the snapshot slot",
	}
}

// ProgressRestoreTool defines the MCP tool schema for restoring progress.
func ProgressRestoreTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "progress_restore",
		Description: "Restores the saved game state and reloads its campaign",
	}
}

// CampaignResetTool defines the MCP tool schema for resetting the session.
func CampaignResetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "campaign_reset",
		Description: "Unloads the campaign and clears all progress",
	}
}

// SessionRetryTool defines the MCP tool schema for retrying a failed load.
func SessionRetryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_retry",
		Description: "Retries the operation that left the session in the error state",
	}
}

// respond notifies subscribers and returns the session summary, or the
// wrapped error when the operation failed.
func respond(ctx context.Context, sess *session.Session, notify ResourceUpdateNotifier, op string, err error) (*mcp.CallToolResult, SessionResult, error) {
	if err != nil {
		if sess.State() == session.StateError {
			NotifyResourceUpdates(ctx, notify, SessionResource().URI)
		}
		return nil, SessionResult{}, toolError(op, err)
	}
	NotifyResourceUpdates(ctx, notify, SessionResource().URI)
	return &mcp.CallToolResult{}, sessionResult(sess.View()), nil
}

// SceneTransitionHandler moves to any scene.
func SceneTransitionHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SceneInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SceneInput) (*mcp.CallToolResult, SessionResult, error) {
		return respond(ctx, sess, notify, "scene transition", sess.TransitionToScene(ctx, strings.TrimSpace(input.SceneID)))
	}
}

// SceneTravelHandler takes an exit of the current scene.
func SceneTravelHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SceneInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SceneInput) (*mcp.CallToolResult, SessionResult, error) {
		return respond(ctx, sess, notify, "scene travel", sess.Travel(ctx, strings.TrimSpace(input.SceneID)))
	}
}

// SceneExitsHandler lists exits of the current scene.
func SceneExitsHandler(sess *session.Session) mcp.ToolHandlerFor[EmptyInput, ExitsResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, ExitsResult, error) {
		options, err := sess.AvailableTransitions()
		if err != nil {
			return nil, ExitsResult{}, toolError("scene exits", err)
		}
		result := ExitsResult{Exits: make([]ExitEntry, 0, len(options))}
		for _, option := range options {
			result.Exits = append(result.Exits, ExitEntry{
				To:          option.Transition.To,
				Title:       option.Title,
				Label:       option.Transition.Label,
				Traversable: option.Traversable,
				Reason:      option.Reason,
			})
		}
		return &mcp.CallToolResult{}, result, nil
	}
}

// SceneExploreHandler explores the current scene.
func SceneExploreHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[EmptyInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, SessionResult, error) {
		return respond(ctx, sess, notify, "scene explore", sess.Explore())
	}
}

// SessionStateHandler summarizes the session without changing it.
func SessionStateHandler(sess *session.Session) mcp.ToolHandlerFor[EmptyInput, SessionResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, SessionResult, error) {
		return &mcp.CallToolResult{}, sessionResult(sess.View()), nil
	}
}

// ClueRecordHandler records a clue.
func ClueRecordHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[ClueInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ClueInput) (*mcp.CallToolResult, SessionResult, error) {
		return respond(ctx, sess, notify, "clue record", sess.RecordClue(strings.TrimSpace(input.ClueID)))
	}
}

// RelationshipAdjustHandler adjusts an NPC relationship.
func RelationshipAdjustHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[RelationshipInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RelationshipInput) (*mcp.CallToolResult, SessionResult, error) {
		return respond(ctx, sess, notify, "relationship adjust", sess.AdjustRelationship(strings.TrimSpace(input.NPCID), input.Delta))
	}
}

// ChoiceRecordHandler records a decision.
func ChoiceRecordHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[ChoiceInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ChoiceInput) (*mcp.CallToolResult, SessionResult, error) {
		err := sess.RecordChoice(strings.TrimSpace(input.DecisionID), strings.TrimSpace(input.OptionID))
		return respond(ctx, sess, notify, "choice record", err)
	}
}

// TimeAdvanceHandler passes in-game time.
func TimeAdvanceHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[TimeInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TimeInput) (*mcp.CallToolResult, SessionResult, error) {
		return respond(ctx, sess, notify, "time advance", sess.AdvanceTime(input.Minutes))
	}
}

// DialogueChooseHandler answers an NPC.
func DialogueChooseHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[DialogueInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DialogueInput) (*mcp.CallToolResult, SessionResult, error) {
		err := sess.Choose(strings.TrimSpace(input.NPCID), strings.TrimSpace(input.ChoiceID))
		return respond(ctx, sess, notify, "dialogue choose", err)
	}
}

// GameStatePatchHandler merges a patch into the game state.
func GameStatePatchHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[GameStatePatchInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GameStatePatchInput) (*mcp.CallToolResult, SessionResult, error) {
		var patch gamestate.Patch
		if err := json.Unmarshal([]byte(input.Patch), &patch); err != nil {
			return nil, SessionResult{}, fmt.Errorf("parse patch: %w", err)
		}
		sess.UpdateGameState(patch)
		return respond(ctx, sess, notify, "game state patch", nil)
	}
}

// ProgressSaveHandler writes the snapshot.
func ProgressSaveHandler(sess *session.Session) mcp.ToolHandlerFor[EmptyInput, SaveResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, SaveResult, error) {
		return &mcp.CallToolResult{}, SaveResult{Saved: sess.SaveProgress(ctx)}, nil
	}
}

// ProgressRestoreHandler applies the snapshot. A restored campaign that
// fails to load is reported through the session summary.
func ProgressRestoreHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[EmptyInput, RestoreResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, RestoreResult, error) {
		restored, err := sess.LoadProgress(ctx)
		if err != nil && !restored {
			return nil, RestoreResult{}, toolError("progress restore", err)
		}
		if restored {
			NotifyResourceUpdates(ctx, notify, SessionResource().URI)
		}
		return &mcp.CallToolResult{}, RestoreResult{Restored: restored, Session: sessionResult(sess.View())}, nil
	}
}

// CampaignResetHandler unloads the campaign.
func CampaignResetHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[EmptyInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, SessionResult, error) {
		sess.ResetCampaign()
		return respond(ctx, sess, notify, "campaign reset", nil)
	}
}

// SessionRetryHandler retries the failed operation.
func SessionRetryHandler(sess *session.Session, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[EmptyInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, SessionResult, error) {
		return respond(ctx, sess, notify, "session retry", sess.Retry(ctx))
	}
}
