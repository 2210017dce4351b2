package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/contracts"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/shared"
	"imperium_gate/internal/storage/fsstore"
)

func main() {
	cfg := shared.Load()

	root := flag.String("root", cfg.DataRoot, "Data root to scan")
	schema := flag.Bool("schema", false, "Also validate project and manifest files against their JSON schema")
	strict := flag.Bool("strict", false, "With --schema, treat schema violations as failures")
	flag.Parse()

	log.Logger = observability.NewCLILogger(false)

	files, err := fsstore.JSONFiles(*root)
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Printf("data root %s not found, nothing to check\n", *root)
		return
	}
	if err != nil {
		log.Fatal().Err(err).Str("root", *root).Msg("walk failed")
	}

	var valid, invalid, violations int
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			invalid++
			log.Warn().Err(err).Str("file", f).Msg("unreadable")
			continue
		}
		if !json.Valid(b) {
			invalid++
			log.Warn().Str("file", f).Msg("invalid JSON")
			continue
		}
		valid++
		if !*schema {
			continue
		}
		if err := contracts.Validate(contracts.KindOf(f), b); err != nil {
			violations++
			log.Warn().Err(err).Str("file", f).Msg("schema violation")
		}
	}

	fmt.Printf("valid: %d  invalid: %d\n", valid, invalid)
	if *schema {
		fmt.Printf("schema violations: %d\n", violations)
	}
	if invalid > 0 || (*strict && violations > 0) {
		os.Exit(1)
	}
}
