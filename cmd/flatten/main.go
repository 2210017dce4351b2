package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/app"
	"imperium_gate/internal/shared"
	"imperium_gate/internal/storage/fsstore"
)

func main() {
	cfg := shared.Load()
	root := flag.String("root", cfg.DataRoot, "Data root holding the developer directories")
	flag.Parse()
	log.Logger = observability.NewCLILogger(false)

	st := fsstore.New(*root)
	rep, err := app.NewFlattenService(st, st).Flatten(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("flatten failed")
	}
	fmt.Printf("moved: %d  directories removed: %d\n", rep.Moved, rep.DirsDeleted)
	for _, w := range rep.Warnings {
		fmt.Println("  -", w)
	}
	if len(rep.Warnings) > 0 {
		os.Exit(1)
	}
}
