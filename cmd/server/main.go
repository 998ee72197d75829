package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	servercmd "github.com/louisbranch/campaign-viewer/internal/cmd/server"
	platformcmd "github.com/louisbranch/campaign-viewer/internal/platform/cmd"
)

// main serves the session API.
func main() {
	log.SetPrefix(platformcmd.LogPrefix(platformcmd.ServiceServer))
	cfg, err := servercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := servercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}
