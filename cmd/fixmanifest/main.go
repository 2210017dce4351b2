package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/app"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/shared"
	"imperium_gate/internal/storage/fsstore"
)

func main() {
	cfg := shared.Load()
	root := flag.String("root", cfg.DataRoot, "Data root holding the developer directories")
	flag.Parse()
	log.Logger = observability.NewCLILogger(false)

	counts, err := app.FixManifests(context.Background(), fsstore.New(*root))
	if err != nil {
		log.Fatal().Err(err).Msg("manifest repair failed")
	}
	for _, d := range domain.Developers {
		if n, ok := counts[d]; ok {
			fmt.Printf("%s: %d projects\n", d, n)
		}
	}
}
