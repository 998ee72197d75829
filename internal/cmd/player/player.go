// Package player parses terminal player flags and runs the REPL on stdio.
package player

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/louisbranch/campaign-viewer/internal/app"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	platformcmd "github.com/louisbranch/campaign-viewer/internal/platform/cmd"
	"github.com/louisbranch/campaign-viewer/internal/platform/otel"
	playerservice "github.com/louisbranch/campaign-viewer/internal/services/player"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds player command configuration.
type Config struct {
	app.Config

	Locale   string `env:"CAMPAIGN_VIEWER_LOCALE"   envDefault:"en-US"`
	Color    string `env:"CAMPAIGN_VIEWER_COLOR"    envDefault:"auto"`
	AutoSave bool   `env:"CAMPAIGN_VIEWER_AUTOSAVE" envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.BindFlags(fs)
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "message locale (en-US or pt-BR)")
	fs.StringVar(&cfg.Color, "color", cfg.Color, "colored output: auto, always or never")
	fs.BoolVar(&cfg.AutoSave, "autosave", cfg.AutoSave, "save progress after every change")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	switch cfg.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return Config{}, fmt.Errorf("unknown color mode %q", cfg.Color)
	}
	return cfg, nil
}

// Run opens the configured stores and plays on in and out. Terminal
// detection uses out when it is a file.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServicePlayer, func(ctx context.Context) error {
		rt, err := app.Open(ctx, cfg.Config,
			session.WithLogger(log.Default()),
			session.WithTracer(otel.Tracer()),
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(); err != nil {
				log.Printf("close stores: %v", err)
			}
		}()

		tty, width := terminal(out)
		p, err := playerservice.New(playerservice.Config{
			Session:   rt.Session,
			Campaigns: rt.Campaigns,
			In:        in,
			Out:       out,
			Locale:    cfg.Locale,
			Color:     cfg.Color == ColorAlways || (cfg.Color == ColorAuto && tty),
			AutoSave:  cfg.AutoSave,
			Width:     width,
			Logger:    log.Default(),
		})
		if err != nil {
			return err
		}
		return p.Run(ctx)
	})
}

// terminal reports whether out is a terminal and its width.
func terminal(out io.Writer) (bool, int) {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, playerservice.DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return true, playerservice.DefaultWidth
	}
	return true, width
}
