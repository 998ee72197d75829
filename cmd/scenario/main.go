// Package main provides a CLI for running Lua scenario scripts.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	scenariocmd "github.com/louisbranch/campaign-viewer/internal/cmd/scenario"
	platformcmd "github.com/louisbranch/campaign-viewer/internal/platform/cmd"
)

func main() {
	log.SetPrefix(platformcmd.LogPrefix(platformcmd.ServiceScenario))
	cfg, err := scenariocmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scenariocmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("scenario failed: %v", err)
	}
}
