package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	playercmd "github.com/louisbranch/campaign-viewer/internal/cmd/player"
	platformcmd "github.com/louisbranch/campaign-viewer/internal/platform/cmd"
)

// main starts the terminal player.
func main() {
	log.SetPrefix(platformcmd.LogPrefix(platformcmd.ServicePlayer))
	cfg, err := playercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := playercmd.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("player: %v", err)
	}
}
