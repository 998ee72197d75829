// Package server parses API server flags and serves the session over HTTP,
// websocket and gRPC health.
package server

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/campaign-viewer/internal/app"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	platformcmd "github.com/louisbranch/campaign-viewer/internal/platform/cmd"
	"github.com/louisbranch/campaign-viewer/internal/platform/otel"
	"github.com/louisbranch/campaign-viewer/internal/services/api"
)

// Config holds server command configuration.
type Config struct {
	app.Config

	HTTPAddr string `env:"CAMPAIGN_VIEWER_HTTP_ADDR" envDefault:"localhost:8080"`
	GRPCAddr string `env:"CAMPAIGN_VIEWER_GRPC_ADDR" envDefault:"localhost:8081"`
	// Restore loads the saved progress before serving.
	Restore bool `env:"CAMPAIGN_VIEWER_RESTORE" envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.BindFlags(fs)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.BoolVar(&cfg.Restore, "restore", cfg.Restore, "restore saved progress on start")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceServer, func(ctx context.Context) error {
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

		if cfg.Restore {
			if restored, err := rt.Session.LoadProgress(ctx); restored {
				log.Printf("restored session %s: state %s", rt.Session.ID(), rt.Session.State())
			} else if err != nil {
				return err
			}
		}

		handler, err := api.NewHandler(rt.Session, rt.Campaigns)
		if err != nil {
			return err
		}
		srv, err := api.NewServer(api.ServerConfig{HTTPAddr: cfg.HTTPAddr, GRPCAddr: cfg.GRPCAddr}, handler)
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	})
}
