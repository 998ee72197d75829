package player

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/louisbranch/campaign-viewer/internal/campaign/catalog"
	"github.com/louisbranch/campaign-viewer/internal/campaign/navigator"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	apperrors "github.com/louisbranch/campaign-viewer/internal/platform/errors"
)

type command struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, args []string) error
}

func (p *Player) commandTable() map[string]command {
	return map[string]command{
		"help":    {usage: "help", run: p.help},
		"list":    {usage: "list [filter]", run: p.list},
		"load":    {usage: "load <campaign>", minArgs: 1, run: p.load},
		"look":    {usage: "look", run: p.look},
		"exits":   {usage: "exits", run: p.exits},
		"go":      {usage: "go <scene>", minArgs: 1, run: p.goTo},
		"travel":  {usage: "travel <scene>", minArgs: 1, run: p.travel},
		"explore": {usage: "explore", run: p.explore},
		"talk":    {usage: "talk <npc>", minArgs: 1, run: p.talk},
		"choose":  {usage: "choose <npc> <choice>", minArgs: 2, run: p.choose},
		"decide":  {usage: "decide <decision> <option>", minArgs: 2, run: p.decide},
		"clue":    {usage: "clue <id>", minArgs: 1, run: p.clue},
		"rel":     {usage: "rel <npc> <delta>", minArgs: 2, run: p.relationship},
		"wait":    {usage: "wait <minutes>", minArgs: 1, run: p.wait},
		"state":   {usage: "state", run: p.state},
		"map":     {usage: "map", run: p.unreachable},
		"save":    {usage: "save", run: p.save},
		"restore": {usage: "restore", run: p.restore},
		"reset":   {usage: "reset", run: p.reset},
		"retry":   {usage: "retry", run: p.retry},
	}
}

func (p *Player) commandNames() []string {
	names := make([]string, 0, len(p.commands)+1)
	for name := range p.commands {
		names = append(names, name)
	}
	names = append(names, "quit")
	sort.Strings(names)
	return names
}

func (p *Player) help(context.Context, []string) error {
	p.printWrapped(p.printer.Sprintf("player.help"))
	return nil
}

func (p *Player) list(ctx context.Context, args []string) error {
	if p.campaigns == nil {
		p.println(p.printer.Sprintf("player.no_campaigns"))
		return nil
	}
	summaries, err := p.campaigns.ListCampaigns(ctx)
	if err != nil {
		return err
	}
	page, err := catalog.List(summaries, catalog.Request{
		Filter:   strings.Join(args, " "),
		PageSize: catalog.MaxPageSize,
	})
	if err != nil {
		return err
	}
	if len(page.Campaigns) == 0 {
		p.println(p.printer.Sprintf("player.no_campaigns"))
		return nil
	}
	p.println(p.styles.heading.Sprint(p.printer.Sprintf("player.campaigns")))
	for _, c := range page.Campaigns {
		p.println("  " + p.styles.id.Sprint(c.ID) + "  " + c.Title +
			p.styles.muted.Sprintf(" (%s, %s, %d-%d)", c.Difficulty, c.EstimatedDuration, c.MinLevel, c.MaxLevel))
	}
	return nil
}

func (p *Player) load(ctx context.Context, args []string) error {
	id := args[0]
	p.println(p.styles.muted.Sprint(p.printer.Sprintf("player.loading", id)))
	if err := p.session.LoadCampaign(ctx, id); err != nil {
		if apperrors.HasCode(err, apperrors.CodeCampaignNotFound) {
			p.fail(err)
			p.suggestCampaign(ctx, id)
			return nil
		}
		return err
	}
	v := p.session.View()
	p.println(p.styles.ok.Sprint(p.printer.Sprintf("player.loaded", v.Campaign.Title)))
	p.autosave(ctx)
	p.renderScene(v)
	return nil
}

func (p *Player) look(context.Context, []string) error {
	v := p.session.View()
	if v.Campaign == nil {
		p.println(p.printer.Sprintf("player.no_campaign"))
		return nil
	}
	if v.Error != nil {
		p.renderError()
	}
	if v.Scene != nil {
		p.renderScene(v)
	}
	return nil
}

func (p *Player) exits(context.Context, []string) error {
	return p.renderExits()
}

func (p *Player) goTo(ctx context.Context, args []string) error {
	return p.move(ctx, args[0], p.session.TransitionToScene)
}

func (p *Player) travel(ctx context.Context, args []string) error {
	return p.move(ctx, args[0], p.session.Travel)
}

func (p *Player) move(ctx context.Context, sceneID string, step func(context.Context, string) error) error {
	if err := step(ctx, sceneID); err != nil {
		if apperrors.HasCode(err, apperrors.CodeSceneNotFound) {
			p.fail(err)
			p.suggestScene(sceneID)
			return nil
		}
		return err
	}
	p.autosave(ctx)
	p.renderScene(p.session.View())
	return nil
}

func (p *Player) explore(ctx context.Context, _ []string) error {
	if err := p.session.Explore(); err != nil {
		return err
	}
	p.println(p.printer.Sprintf("player.explored"))
	p.autosave(ctx)
	return p.renderExits()
}

func (p *Player) talk(_ context.Context, args []string) error {
	v := p.session.View()
	if v.Scene == nil {
		p.println(p.printer.Sprintf("player.no_campaign"))
		return nil
	}
	npc, ok := v.Scene.NPC(args[0])
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "unknown npc "+args[0], map[string]string{"Field": "npc"})
	}
	p.renderDialogue(npc)
	return nil
}

func (p *Player) choose(ctx context.Context, args []string) error {
	if err := p.session.Choose(args[0], args[1]); err != nil {
		return err
	}
	p.println(p.printer.Sprintf("player.noted"))
	p.autosave(ctx)
	return nil
}

func (p *Player) decide(ctx context.Context, args []string) error {
	if err := p.session.RecordChoice(args[0], args[1]); err != nil {
		return err
	}
	p.println(p.printer.Sprintf("player.noted"))
	p.autosave(ctx)
	return nil
}

func (p *Player) clue(ctx context.Context, args []string) error {
	if err := p.session.RecordClue(args[0]); err != nil {
		return err
	}
	p.println(p.printer.Sprintf("player.noted"))
	p.autosave(ctx)
	return nil
}

func (p *Player) relationship(ctx context.Context, args []string) error {
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "delta must be an integer", map[string]string{"Field": "delta"})
	}
	if err := p.session.AdjustRelationship(args[0], delta); err != nil {
		return err
	}
	p.println(p.printer.Sprintf("player.noted"))
	p.autosave(ctx)
	return nil
}

func (p *Player) wait(ctx context.Context, args []string) error {
	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "minutes must be an integer", map[string]string{"Field": "minutes"})
	}
	if err := p.session.AdvanceTime(minutes); err != nil {
		return err
	}
	gs := p.session.View().GameState
	p.println(p.printer.Sprintf("player.time", gs.CampaignProgress.TimeElapsed))
	p.autosave(ctx)
	return nil
}

func (p *Player) state(context.Context, []string) error {
	p.renderState(p.session.View())
	return nil
}

func (p *Player) unreachable(context.Context, []string) error {
	v := p.session.View()
	if v.Campaign == nil {
		p.println(p.printer.Sprintf("player.no_campaign"))
		return nil
	}
	ids := navigator.Unreachable(v.Campaign)
	if len(ids) == 0 {
		p.println(p.printer.Sprintf("player.all_reachable"))
		return nil
	}
	p.println(p.styles.warn.Sprint(p.printer.Sprintf("player.unreachable", strings.Join(ids, ", "))))
	return nil
}

func (p *Player) save(ctx context.Context, _ []string) error {
	if !p.session.SaveProgress(ctx) {
		p.println(p.styles.warn.Sprint(p.printer.Sprintf("player.save_failed")))
		return nil
	}
	p.println(p.printer.Sprintf("player.saved"))
	return nil
}

func (p *Player) restore(ctx context.Context, _ []string) error {
	restored, err := p.session.LoadProgress(ctx)
	if !restored {
		if err != nil {
			return err
		}
		p.println(p.printer.Sprintf("player.nothing_restored"))
		return nil
	}
	p.println(p.printer.Sprintf("player.restored"))
	p.renderAfter()
	return nil
}

func (p *Player) reset(ctx context.Context, _ []string) error {
	p.session.ResetCampaign()
	p.println(p.printer.Sprintf("player.reset"))
	p.autosave(ctx)
	return nil
}

func (p *Player) retry(ctx context.Context, _ []string) error {
	if err := p.session.Retry(ctx); err != nil {
		return err
	}
	p.autosave(ctx)
	p.renderAfter()
	return nil
}

// autosave persists after every successful change, the way the browser
// client wrote its save slot on each state update.
func (p *Player) autosave(ctx context.Context) {
	if !p.autoSave {
		return
	}
	if !p.session.SaveProgress(ctx) {
		p.println(p.styles.warn.Sprint(p.printer.Sprintf("player.save_failed")))
	}
}

// renderAfter shows the scene or the error the session ended up in.
func (p *Player) renderAfter() {
	v := p.session.View()
	switch {
	case v.State == session.StateError:
		p.renderError()
	case v.Scene != nil:
		p.renderScene(v)
	default:
		p.println(p.printer.Sprintf("player.no_campaign"))
	}
}
