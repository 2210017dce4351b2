package main

import (
	"context"
	"errors"
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

	ctx := context.Background()
	st := fsstore.New(*root)
	summaries, err := app.BuildSummaries(ctx, st)
	if errors.Is(err, domain.ErrNotFound) {
		log.Fatal().Str("root", *root).Msg("data root not found")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("collect summaries failed")
	}
	if err := st.WriteConsolidated(ctx, summaries); err != nil {
		log.Fatal().Err(err).Msg("write consolidated file failed")
	}
	fmt.Printf("wrote %d projects to %s\n", len(summaries), domain.ConsolidatedFile)
	// the loader prefers this file, so the API now serves summaries only
	log.Warn().Str("file", domain.ConsolidatedFile).Msg("summary records shadow the per-developer documents for readers of this root")
}
