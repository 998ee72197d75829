package player

import (
	"context"

	"github.com/sahilm/fuzzy"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
)

// sceneSource exposes scene ids to fuzzy.FindFrom.
type sceneSource []document.Scene

func (s sceneSource) String(i int) string { return s[i].ID }
func (s sceneSource) Len() int            { return len(s) }

// summarySource exposes campaign ids to fuzzy.FindFrom.
type summarySource []document.Summary

func (s summarySource) String(i int) string { return s[i].ID }
func (s summarySource) Len() int            { return len(s) }

// closest picks the best fuzzy match for typed. Abbreviations match as
// subsequences of a candidate; overlong input falls back to candidates that
// are subsequences of it.
func closest(typed string, src fuzzy.Source) (string, bool) {
	if src.Len() == 0 || typed == "" {
		return "", false
	}
	if matches := fuzzy.FindFrom(typed, src); len(matches) > 0 {
		return matches[0].Str, true
	}
	best, bestScore := "", 0
	for i := 0; i < src.Len(); i++ {
		candidate := src.String(i)
		matches := fuzzy.Find(candidate, []string{typed})
		if len(matches) == 0 {
			continue
		}
		if best == "" || matches[0].Score > bestScore {
			best, bestScore = candidate, matches[0].Score
		}
	}
	return best, best != ""
}

func suggestCommand(typed string, names []string) (string, bool) {
	return closest(typed, stringSource(names))
}

type stringSource []string

func (s stringSource) String(i int) string { return s[i] }
func (s stringSource) Len() int            { return len(s) }

func (p *Player) suggestScene(typed string) {
	v := p.session.View()
	if v.Campaign == nil {
		return
	}
	if match, ok := closest(typed, sceneSource(v.Campaign.Scenes)); ok {
		p.println(p.printer.Sprintf("player.did_you_mean", match))
	}
}

func (p *Player) suggestCampaign(ctx context.Context, typed string) {
	if p.campaigns == nil {
		return
	}
	summaries, err := p.campaigns.ListCampaigns(ctx)
	if err != nil {
		p.logger.Printf("list campaigns: %v", err)
		return
	}
	if match, ok := closest(typed, summarySource(summaries)); ok {
		p.println(p.printer.Sprintf("player.did_you_mean", match))
	}
}
