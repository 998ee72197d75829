// Package scenario parses scenario command flags and runs a Lua scenario
// against a fresh campaign session.
package scenario

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/louisbranch/campaign-viewer/internal/app"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	platformcmd "github.com/louisbranch/campaign-viewer/internal/platform/cmd"
	"github.com/louisbranch/campaign-viewer/internal/platform/otel"
	"github.com/louisbranch/campaign-viewer/internal/storage/memory"
	"github.com/louisbranch/campaign-viewer/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	app.Config

	Scenario   string        `env:"CAMPAIGN_VIEWER_SCENARIO_FILE"`
	Assertions bool          `env:"CAMPAIGN_VIEWER_SCENARIO_ASSERT"   envDefault:"true"`
	Verbose    bool          `env:"CAMPAIGN_VIEWER_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"CAMPAIGN_VIEWER_SCENARIO_TIMEOUT"  envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.BindFlags(fs)
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command. Saves made by the scenario go to an
// in-memory slot and never touch the configured snapshot store.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}
	logger := log.New(errOut, "", 0)

	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceScenario, func(ctx context.Context) error {
		appCfg := cfg.Config
		appCfg.SnapshotStore = app.SnapshotNone
		rt, err := app.Open(ctx, appCfg,
			session.WithSnapshots(memory.NewSnapshot()),
			session.WithLogger(logger),
			session.WithTracer(otel.Tracer()),
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(); err != nil {
				logger.Printf("close stores: %v", err)
			}
		}()

		err = scenario.RunFile(ctx, scenario.Config{
			Timeout:    cfg.Timeout,
			Assertions: mode,
			Verbose:    cfg.Verbose,
			Logger:     logger,
			Tracer:     otel.Tracer(),
		}, rt.Session, cfg.Scenario)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "scenario %s passed\n", cfg.Scenario)
		return nil
	})
}
