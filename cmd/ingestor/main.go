package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/adapters/source"
	"imperium_gate/internal/app"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/ingest"
	"imperium_gate/internal/normalize"
	"imperium_gate/internal/shared"
	"imperium_gate/internal/storage/fsstore"
	mysqlrepo "imperium_gate/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	input := flag.String("input", filepath.Join(cfg.DataRoot, "projects.csv"), "CSV path or http(s) URL")
	outDir := flag.String("outdir", cfg.DataRoot, "Output data root")
	company := flag.String("company", "", "Restrict the run to one developer (emaar, damac, nakheel, sobha)")
	dry := flag.Bool("dry", false, "Parse and report without writing")
	mirror := flag.Bool("mirror", false, "Also upsert accepted projects into MySQL (MYSQL_DSN)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	log.Logger = observability.NewCLILogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var dev domain.Developer
	if *company != "" {
		dev = normalize.Developer(*company)
		if !dev.Valid() {
			log.Fatal().Str("company", *company).Msg("unknown developer")
		}
	}

	text, err := source.New(cfg.FetchRPS).Read(ctx, *input)
	if errors.Is(err, domain.ErrInputNotFound) {
		log.Fatal().Str("input", *input).Msg("CSV not found")
	}
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("read input failed")
	}
	rows, err := ingest.ReadRows(text)
	if errors.Is(err, domain.ErrEmptyCSV) {
		log.Fatal().Str("input", *input).Msg("CSV has no data rows")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("parse CSV failed")
	}

	var (
		m    domain.ProjectMirror
		repo *mysqlrepo.Repo
	)
	if *mirror && !*dry {
		db := openMySQL(cfg.MySQLDSN)
		defer db.Close()
		repo = mysqlrepo.New(db)
		m = repo
	}

	log.Info().
		Str("input", *input).
		Str("outdir", *outDir).
		Int("rows", len(rows)).
		Bool("dry", *dry).
		Bool("mirror", m != nil).
		Msg("ingestor starting")

	svc := app.NewIngestionService(fsstore.New(*outDir), m, cfg.ContactPhone, cfg.Workers)
	rep, err := svc.Ingest(ctx, rows, app.IngestOptions{Input: *input, Company: dev, DryRun: *dry})
	printReport(rep, *dry)
	if err != nil {
		log.Fatal().Err(err).Str("run", rep.RunID).Msg("ingestion aborted")
	}
	if repo != nil {
		printMirror(ctx, repo, rep)
	}
	log.Info().Str("run", rep.RunID).Msg("ingestion completed")
}

// printMirror reads the run back from MySQL and spot-checks the first
// manifest entry of every developer written this run.
func printMirror(ctx context.Context, repo *mysqlrepo.Repo, rep app.Report) {
	st, err := app.VerifyMirror(ctx, repo, rep)
	if err != nil {
		log.Warn().Err(err).Str("run", rep.RunID).Msg("mirror read-back failed")
		return
	}
	fmt.Println("\nmirror:")
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "developer\trun\ttotal\tsample")
	for _, c := range st.Counts {
		sample := "-"
		if m := rep.Manifests[c.Developer]; len(m) > 0 {
			mp, err := repo.GetProject(ctx, c.Developer, m[0].Slug, "en")
			switch {
			case errors.Is(err, domain.ErrNotFound):
				sample = m[0].Slug + " (missing)"
			case err != nil:
				sample = m[0].Slug + " (" + err.Error() + ")"
			default:
				sample = mp.Slug
				if mp.Geohash != nil {
					sample += " @" + *mp.Geohash
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Developer, st.Run.Written[c.Developer], c.Count, sample)
	}
	_ = tw.Flush()
	for _, msg := range st.Mismatch {
		fmt.Println("  ! " + msg)
	}
}

func openMySQL(dsn string) *sql.DB {
	if dsn == "" {
		log.Fatal().Msg("--mirror needs MYSQL_DSN")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")
	return db
}

func printReport(rep app.Report, dry bool) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "developer\twritten\tmanifest")
	for _, d := range domain.Developers {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", d, rep.Written[d], len(rep.Manifests[d]))
	}
	_ = tw.Flush()
	fmt.Printf("\nrows: %d  skipped: %d  run: %s", rep.Rows, rep.Skipped, rep.RunID)
	if dry {
		fmt.Print("  (dry run, nothing written)")
	}
	fmt.Println()
	if len(rep.Warnings) > 0 {
		fmt.Println("\nwarnings:")
		for _, w := range rep.Warnings {
			fmt.Println("  -", w)
		}
	}
}
