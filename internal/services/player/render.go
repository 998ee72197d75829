package player

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gookit/color"

	"github.com/louisbranch/campaign-viewer/internal/campaign/document"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
)

type styles struct {
	title   color.Style
	heading color.Style
	id      color.Style
	ok      color.Style
	warn    color.Style
	err     color.Style
	muted   color.Style
	prompt  color.Style
}

// newStyles returns the palette. Empty styles render plain text.
func newStyles(enabled bool) styles {
	if !enabled {
		return styles{}
	}
	return styles{
		title:   color.Style{color.FgCyan, color.OpBold},
		heading: color.Style{color.FgYellow, color.OpBold},
		id:      color.Style{color.FgCyan},
		ok:      color.Style{color.FgGreen},
		warn:    color.Style{color.FgYellow},
		err:     color.Style{color.FgRed, color.OpBold},
		muted:   color.Style{color.FgGray},
		prompt:  color.Style{color.FgMagenta, color.OpBold},
	}
}

func (p *Player) renderScene(v session.View) {
	if v.Scene == nil {
		return
	}
	scene := v.Scene
	p.println("")
	p.println(p.styles.title.Sprint(scene.Title) + p.styles.muted.Sprintf(" [%s]", scene.ID))
	p.printWrapped(scene.Description)
	if len(scene.NPCs) > 0 {
		names := make([]string, 0, len(scene.NPCs))
		for _, npc := range scene.NPCs {
			names = append(names, fmt.Sprintf("%s (%s)", npc.Name, npc.ID))
		}
		p.printWrapped(p.printer.Sprintf("player.npcs", strings.Join(names, ", ")))
	}
	if len(scene.Encounters) > 0 {
		names := make([]string, 0, len(scene.Encounters))
		for _, enc := range scene.Encounters {
			names = append(names, fmt.Sprintf("%s (%s)", enc.ID, enc.Kind))
		}
		p.printWrapped(p.printer.Sprintf("player.encounters", strings.Join(names, ", ")))
	}
	_ = p.renderExits()
}

func (p *Player) renderExits() error {
	options, err := p.session.AvailableTransitions()
	if err != nil {
		return err
	}
	if len(options) == 0 {
		p.println(p.printer.Sprintf("player.no_exits"))
		return nil
	}
	p.println(p.styles.heading.Sprint(p.printer.Sprintf("player.exits")))
	for _, opt := range options {
		line := fmt.Sprintf("  %s -> %s", opt.Transition.Label, p.styles.id.Sprint(opt.Transition.To))
		if opt.Title != "" {
			line += " (" + opt.Title + ")"
		}
		if !opt.Traversable {
			line = p.styles.muted.Sprint(line + " " + p.printer.Sprintf("player.blocked"))
		}
		p.println(line)
	}
	return nil
}

func (p *Player) renderDialogue(npc document.NPC) {
	p.println(p.styles.heading.Sprint(npc.Name) + ": " + npc.Dialogue.Greeting)
	for _, node := range npc.Dialogue.Nodes {
		p.printWrapped(node.Text)
		if len(node.Choices) == 0 {
			continue
		}
		p.println(p.printer.Sprintf("player.choices"))
		for _, choice := range node.Choices {
			p.println("  " + p.styles.id.Sprint(choice.ID) + "  " + choice.Text)
		}
	}
	if npc.Dialogue.Farewell != "" {
		p.println(p.styles.muted.Sprint(npc.Dialogue.Farewell))
	}
}

func (p *Player) renderState(v session.View) {
	p.println(p.printer.Sprintf("player.state", v.State))
	if v.Error != nil {
		p.renderError()
	}
	gs := v.GameState
	none := p.printer.Sprintf("player.none")

	party := make([]string, 0, len(gs.Party))
	for _, m := range gs.Party {
		party = append(party, fmt.Sprintf("%s (%s %d, %d/%d hp)", m.Name, m.Class, m.Level, m.HP.Current, m.HP.Max))
	}
	items := make([]string, 0, len(gs.Inventory))
	for _, it := range gs.Inventory {
		if it.Quantity > 1 {
			items = append(items, fmt.Sprintf("%s x%d", it.ID, it.Quantity))
			continue
		}
		items = append(items, it.ID)
	}
	quests := make([]string, 0, len(gs.QuestLog))
	for _, q := range gs.QuestLog {
		quests = append(quests, fmt.Sprintf("%s (%s)", q.ID, q.Status))
	}
	cp := gs.CampaignProgress
	npcs := make([]string, 0, len(cp.NPCRelationships))
	for npc := range cp.NPCRelationships {
		npcs = append(npcs, npc)
	}
	sort.Strings(npcs)
	rels := make([]string, 0, len(npcs))
	for _, npc := range npcs {
		rels = append(rels, fmt.Sprintf("%s %+d", npc, cp.NPCRelationships[npc]))
	}

	p.printWrapped(p.printer.Sprintf("player.party", joinOr(party, none)))
	p.printWrapped(p.printer.Sprintf("player.inventory", joinOr(items, none)))
	p.printWrapped(p.printer.Sprintf("player.quests", joinOr(quests, none)))
	p.printWrapped(p.printer.Sprintf("player.completed", joinOr(cp.CompletedScenes, none)))
	p.printWrapped(p.printer.Sprintf("player.clues", joinOr(cp.DiscoveredClues, none)))
	p.printWrapped(p.printer.Sprintf("player.relationships", joinOr(rels, none)))
	p.println(p.printer.Sprintf("player.time", cp.TimeElapsed))
}

func (p *Player) renderError() {
	v := p.session.View()
	if v.Error == nil {
		return
	}
	p.println(p.styles.err.Sprint(p.printer.Sprintf("player.error", v.Error.Localized(p.locale))))
}

// printWrapped writes s folded at the terminal width.
func (p *Player) printWrapped(s string) {
	for _, line := range wrap(s, p.width) {
		p.println(line)
	}
}

func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len([]rune(current))+1+len([]rune(w)) > width {
			lines = append(lines, current)
			current = w
			continue
		}
		current += " " + w
	}
	return append(lines, current)
}

func joinOr(values []string, empty string) string {
	if len(values) == 0 {
		return empty
	}
	return strings.Join(values, ", ")
}
