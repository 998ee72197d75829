package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	"github.com/louisbranch/campaign-viewer/internal/platform/i18n"
)

// page renders the read-only viewer for the current session. The page
// refreshes itself from /api/session/stream.
func (h *handler) page(w http.ResponseWriter, r *http.Request) {
	locale := i18n.ResolveAcceptLanguage(r.Header.Get("Accept-Language")).String()
	view := h.session.View()
	exits, _ := h.session.AvailableTransitions()
	templ.Handler(viewerPage(view, exits, locale)).ServeHTTP(w, r)
}

func viewerPage(view session.View, exits []session.TransitionOption, locale string) templ.Component {
	title := "Campaign viewer"
	if view.Campaign != nil {
		title = view.Campaign.Title
	}
	return layout(title, locale, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.printf(`<header><h1>%s</h1><p class="state" data-state="%s">%s</p></header>`,
			templ.EscapeString(title), templ.EscapeString(string(view.State)), templ.EscapeString(string(view.State)))
		if view.Error != nil {
			hw.printf(`<p class="error" role="alert" data-code="%s">%s</p>`,
				templ.EscapeString(string(view.Error.Code)), templ.EscapeString(view.Error.Localized(locale)))
		}
		if view.Scene != nil {
			if err := sceneSection(view, exits).Render(ctx, w); err != nil {
				return err
			}
		}
		if err := progressSection(view).Render(ctx, w); err != nil {
			return err
		}
		return hw.err
	}))
}

func sceneSection(view session.View, exits []session.TransitionOption) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		scene := view.Scene
		hw.printf(`<section class="scene" data-scene="%s"><h2>%s</h2><p>%s</p>`,
			templ.EscapeString(scene.ID), templ.EscapeString(scene.Title), templ.EscapeString(scene.Description))
		if len(scene.NPCs) > 0 {
			hw.printf(`<ul class="npcs">`)
			for _, npc := range scene.NPCs {
				hw.printf(`<li>%s</li>`, templ.EscapeString(npc.Name))
			}
			hw.printf(`</ul>`)
		}
		if len(exits) > 0 {
			hw.printf(`<ul class="exits">`)
			for _, exit := range exits {
				label := exit.Transition.Label
				if label == "" {
					label = exit.Title
				}
				state := "open"
				if !exit.Traversable {
					state = "blocked"
				}
				hw.printf(`<li data-to="%s" class="%s">%s</li>`,
					templ.EscapeString(exit.Transition.To), state, templ.EscapeString(label))
			}
			hw.printf(`</ul>`)
		}
		hw.printf(`</section>`)
		return hw.err
	})
}

func progressSection(view session.View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		p := view.GameState.CampaignProgress
		hw.printf(`<section class="progress"><dl>`)
		hw.printf(`<dt>Completed scenes</dt><dd>%s</dd>`, templ.EscapeString(strings.Join(p.CompletedScenes, ", ")))
		hw.printf(`<dt>Clues</dt><dd>%s</dd>`, templ.EscapeString(strings.Join(p.DiscoveredClues, ", ")))
		hw.printf(`<dt>Time elapsed</dt><dd>%d min</dd>`, p.TimeElapsed)
		hw.printf(`<dt>Inventory</dt><dd>%d items</dd>`, len(view.GameState.Inventory))
		hw.printf(`</dl></section>`)
		return hw.err
	})
}

func layout(title, locale string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.printf(`<!DOCTYPE html><html lang="%s"><head><meta charset="utf-8"><title>%s</title></head><body>`,
			templ.EscapeString(locale), templ.EscapeString(title))
		if hw.err != nil {
			return hw.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		hw.printf(`<script>new WebSocket(location.origin.replace(/^http/, "ws") + "/api/session/stream").onmessage = () => location.reload();</script></body></html>`)
		return hw.err
	})
}

// htmlWriter keeps the first write error so components can write freely.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) printf(format string, args ...any) {
	if hw.err != nil {
		return
	}
	_, hw.err = fmt.Fprintf(hw.w, format, args...)
}
