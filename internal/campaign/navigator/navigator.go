// Package navigator resolves scene identifiers against a campaign and walks
// its transition graph. It never evaluates requirements and never mutates
// game state.
package navigator

import (
	"fmt"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"github.com/zyedidia/generic/mapset"
)

// Resolve returns the scene with exactly the given id.
func Resolve(c *document.Campaign, sceneID string) (document.Scene, error) {
	if scene, ok := c.Scene(sceneID); ok {
		return scene, nil
	}
	campaignID := ""
	if c != nil {
		campaignID = c.ID
	}
	return document.Scene{}, apperrors.WithMetadata(
		apperrors.CodeSceneNotFound,
		fmt.Sprintf("scene %s not found", sceneID),
		map[string]string{"SceneID": sceneID, "CampaignID": campaignID},
	)
}

// Entry returns the scene a freshly loaded campaign starts on: scenes[0].
func Entry(c *document.Campaign) (document.Scene, error) {
	if c == nil || len(c.Scenes) == 0 {
		campaignID := ""
		if c != nil {
			campaignID = c.ID
		}
		return document.Scene{}, apperrors.WithMetadata(
			apperrors.CodeCampaignMalformed,
			"campaign has no scenes",
			map[string]string{"CampaignID": campaignID, "Reason": "scenes must not be empty"},
		)
	}
	return c.Scenes[0], nil
}

// Outgoing returns the first edge from fromID to toID.
func Outgoing(c *document.Campaign, fromID, toID string) (document.Transition, bool) {
	from, ok := c.Scene(fromID)
	if !ok {
		return document.Transition{}, false
	}
	for _, tr := range from.Transitions {
		if tr.To == toID {
			return tr, true
		}
	}
	return document.Transition{}, false
}

// Reachable returns the scene ids reachable from the entry scene by
// following transitions, ignoring triggers and requirements.
func Reachable(c *document.Campaign) mapset.Set[string] {
	reachable := mapset.New[string]()
	if c == nil || len(c.Scenes) == 0 {
		return reachable
	}
	queue := []string{c.Scenes[0].ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if reachable.Has(current) {
			continue
		}
		scene, ok := c.Scene(current)
		if !ok {
			continue
		}
		reachable.Put(current)
		for _, tr := range scene.Transitions {
			if !reachable.Has(tr.To) {
				queue = append(queue, tr.To)
			}
		}
	}
	return reachable
}

// Unreachable lists, in document order, the scenes Reachable cannot reach.
func Unreachable(c *document.Campaign) []string {
	if c == nil {
		return nil
	}
	reachable := Reachable(c)
	var out []string
	for _, scene := range c.Scenes {
		if !reachable.Has(scene.ID) {
			out = append(out, scene.ID)
		}
	}
	return out
}
