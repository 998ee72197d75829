package document

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// Format is a campaign document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(name string) (Format, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// Decode parses a campaign document without validating it.
func Decode(data []byte, format Format) (Campaign, error) {
	var c Campaign
	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(data, &c); err != nil {
			return Campaign{}, err
		}
	case FormatYAML:
		// YAML is normalised through JSON so both formats share one set of
		// field names and variant decoders.
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return Campaign{}, err
		}
		raw, err := json.Marshal(tree)
		if err != nil {
			return Campaign{}, fmt.Errorf("yaml document: %w", err)
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return Campaign{}, err
		}
	default:
		return Campaign{}, fmt.Errorf("unsupported format %q", format)
	}
	return c, nil
}

// Parse decodes and validates the document fetched for campaignID.
// Every failure is a CAMPAIGN_MALFORMED error.
func Parse(campaignID string, data []byte, format Format) (Campaign, error) {
	c, err := Decode(data, format)
	if err != nil {
		return Campaign{}, apperrors.WrapWithMetadata(
			apperrors.CodeCampaignMalformed,
			fmt.Sprintf("decode campaign %s", campaignID),
			map[string]string{"CampaignID": campaignID, "Reason": err.Error()},
			err,
		)
	}
	if c.ID != campaignID {
		reason := fmt.Sprintf("document declares campaignId %q", c.ID)
		return Campaign{}, apperrors.WithMetadata(
			apperrors.CodeCampaignMalformed,
			fmt.Sprintf("campaign %s: %s", campaignID, reason),
			map[string]string{"CampaignID": campaignID, "Reason": reason},
		)
	}
	if err := Validate(&c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

// Validate checks the shape invariants a session relies on: an id, at
// least one scene, unique non-empty scene ids and transition targets that
// resolve inside the campaign.
func Validate(c *Campaign) error {
	if c == nil {
		return malformed("", []string{"document is empty"})
	}
	var problems []string
	if strings.TrimSpace(c.ID) == "" {
		problems = append(problems, "campaignId is required")
	}
	if len(c.Scenes) == 0 {
		problems = append(problems, "scenes must not be empty")
	}

	ids := make(map[string]struct{}, len(c.Scenes))
	for i, scene := range c.Scenes {
		if strings.TrimSpace(scene.ID) == "" {
			problems = append(problems, fmt.Sprintf("scene %d has no id", i))
			continue
		}
		// Decision ids are "<scene>.<npc>", so a dot would make them ambiguous.
		if strings.Contains(scene.ID, ".") {
			problems = append(problems, fmt.Sprintf("scene id %q must not contain '.'", scene.ID))
		}
		if _, dup := ids[scene.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate scene id %q", scene.ID))
		}
		ids[scene.ID] = struct{}{}
	}
	for _, scene := range c.Scenes {
		for _, tr := range scene.Transitions {
			if _, ok := ids[tr.To]; !ok {
				problems = append(problems, fmt.Sprintf("scene %q transitions to unknown scene %q", scene.ID, tr.To))
			}
		}
	}

	if len(problems) > 0 {
		return malformed(c.ID, problems)
	}
	return nil
}

func malformed(campaignID string, problems []string) error {
	reason := strings.Join(problems, "; ")
	return apperrors.WithMetadata(
		apperrors.CodeCampaignMalformed,
		fmt.Sprintf("campaign %s is malformed: %s", campaignID, reason),
		map[string]string{"CampaignID": campaignID, "Reason": reason},
	)
}
