// Package mcp parses MCP command flags and serves the session to MCP clients
// over stdio or streamable HTTP.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/campaign-viewer/internal/app"
	"github.com/louisbranch/campaign-viewer/internal/campaign/session"
	platformcmd "github.com/louisbranch/campaign-viewer/internal/platform/cmd"
	"github.com/louisbranch/campaign-viewer/internal/platform/otel"
	mcpservice "github.com/louisbranch/campaign-viewer/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	app.Config

	HTTPAddr  string `env:"CAMPAIGN_VIEWER_MCP_HTTP_ADDR" envDefault:"localhost:8082"`
	Transport string `env:"CAMPAIGN_VIEWER_MCP_TRANSPORT" envDefault:"stdio"`
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
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.BoolVar(&cfg.Restore, "restore", cfg.Restore, "restore saved progress on start")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	switch mcpservice.TransportKind(cfg.Transport) {
	case mcpservice.TransportStdio, mcpservice.TransportHTTP:
	default:
		return Config{}, fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter and blocks until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCP, func(ctx context.Context) error {
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

		server, err := mcpservice.New(rt.Session, rt.Campaigns, log.Default())
		if err != nil {
			return err
		}
		return server.Run(ctx, mcpservice.Config{
			Transport: mcpservice.TransportKind(cfg.Transport),
			HTTPAddr:  cfg.HTTPAddr,
		})
	})
}
