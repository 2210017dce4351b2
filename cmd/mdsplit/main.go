package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/mdsplit"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s <inputFile> <outputDir> <partCount>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	log.Logger = observability.NewCLILogger(false)

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}
	input, outDir := flag.Arg(0), flag.Arg(1)
	n, err := strconv.Atoi(flag.Arg(2))
	if err != nil || n < 1 {
		log.Fatal().Str("partCount", flag.Arg(2)).Msg("partCount must be a positive integer")
	}

	index, err := mdsplit.WriteParts(input, outDir, n)
	if errors.Is(err, domain.ErrInputNotFound) {
		log.Fatal().Str("input", input).Msg("input file not found")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("split failed")
	}
	for _, e := range index {
		fmt.Printf("%s  ~%d chars\n", e.File, e.ApproxSize)
	}
	log.Info().Int("parts", len(index)).Str("outdir", outDir).Msg("markdown split")
}
