// Package main imports campaign documents into a campaign database.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/louisbranch/campaign-viewer/internal/platform/config"
	"github.com/louisbranch/campaign-viewer/internal/tools/importer"
)

func main() {
	cfg, err := importer.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitIf(err, "parse flags")

	config.ExitIf(importer.Run(context.Background(), cfg, os.Stdout), "import campaigns")
}
