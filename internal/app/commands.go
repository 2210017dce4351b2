package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/ingest"
)

type IngestOptions struct {
	Input   string
	Company domain.Developer // restrict the run to one developer; empty means all
	DryRun  bool
}

// Report is what the ingestion CLI prints after a run.
type Report struct {
	RunID     string
	Rows      int
	Written   map[domain.Developer]int
	Skipped   int
	Warnings  []string
	Manifests map[domain.Developer][]domain.ManifestEntry
}

type IngestionService struct {
	repo    domain.ProjectRepository
	mirror  domain.ProjectMirror
	contact string
	workers int
}

// NewIngestionService wires the writer. mirror may be nil.
func NewIngestionService(r domain.ProjectRepository, m domain.ProjectMirror, contact string, workers int) *IngestionService {
	if workers <= 0 {
		workers = 4
	}
	return &IngestionService{repo: r, mirror: m, contact: contact, workers: workers}
}

// Ingest writes one JSON document per accepted row and rebuilds the manifests.
// Rows are skipped, never fatal; only repository failures abort the run, and
// files written before such a failure stay on disk.
func (s *IngestionService) Ingest(ctx context.Context, rows []ingest.Row, opt IngestOptions) (Report, error) {
	rep := Report{
		RunID:     uuid.NewString(),
		Rows:      len(rows),
		Written:   make(map[domain.Developer]int, len(domain.Developers)),
		Manifests: make(map[domain.Developer][]domain.ManifestEntry, len(domain.Developers)),
	}
	for _, d := range domain.Developers {
		rep.Manifests[d] = []domain.ManifestEntry{}
	}

	// slugs handed out during this run; dry runs never touch the repository
	taken := make(map[domain.Developer]map[string]struct{})
	var accepted []domain.Project

	for _, row := range rows {
		p, ok := BuildFromRow(row, s.contact)
		if !ok {
			s.skip(&rep, "unknown")
			continue
		}
		if opt.Company != "" && p.Developer != opt.Company {
			s.skip(&rep, string(p.Developer))
			continue
		}

		base := rowSlug(p)
		if base == "" {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("Row %d: missing slug/name -> skipped", p.SourceRow))
			s.skip(&rep, string(p.Developer))
			continue
		}
		slug, err := s.uniqueSlug(ctx, p.Developer, base, taken)
		if err != nil {
			return rep, fmt.Errorf("resolve slug for row %d: %w", p.SourceRow, err)
		}
		p.ID, p.Slug = slug, slug

		if !opt.DryRun {
			if err := s.repo.Write(ctx, p.Developer, slug, p); err != nil {
				return rep, fmt.Errorf("write %s/%s: %w", p.Developer, slug, err)
			}
		}
		log.Debug().Str("developer", p.Developer.String()).Str("slug", slug).Int("row", p.SourceRow).Msg("project accepted")

		name := p.Name("en")
		if name == "" {
			name = slug
		}
		rep.Manifests[p.Developer] = append(rep.Manifests[p.Developer], domain.ManifestEntry{Slug: slug, ProjectName: name})
		rep.Written[p.Developer]++
		observability.ObserveIngest(p.Developer.String(), "written")
		accepted = append(accepted, p)
	}

	for _, d := range domain.Developers {
		sortManifest(rep.Manifests[d])
		if opt.DryRun || (opt.Company != "" && d != opt.Company) {
			continue
		}
		if err := s.repo.WriteManifest(ctx, d, rep.Manifests[d]); err != nil {
			return rep, fmt.Errorf("write manifest %s: %w", d, err)
		}
	}

	if s.mirror != nil && !opt.DryRun {
		if err := s.syncMirror(ctx, accepted, rep, opt); err != nil {
			log.Warn().Err(err).Str("run", rep.RunID).Msg("mirror sync incomplete")
			rep.Warnings = append(rep.Warnings, "mirror: "+err.Error())
		}
	}
	return rep, nil
}

func (s *IngestionService) skip(rep *Report, dev string) {
	rep.Skipped++
	observability.ObserveIngest(dev, "skipped")
}

// uniqueSlug appends -2, -3, … until neither the repository nor this run holds the slug.
func (s *IngestionService) uniqueSlug(ctx context.Context, dev domain.Developer, base string, taken map[domain.Developer]map[string]struct{}) (string, error) {
	if taken[dev] == nil {
		taken[dev] = make(map[string]struct{})
	}
	slug := base
	for n := 2; ; n++ {
		if _, dup := taken[dev][slug]; !dup {
			exists, err := s.repo.Exists(ctx, dev, slug)
			if err != nil {
				return "", err
			}
			if !exists {
				break
			}
		}
		slug = base + "-" + strconv.Itoa(n)
	}
	taken[dev][slug] = struct{}{}
	return slug, nil
}

func (s *IngestionService) syncMirror(ctx context.Context, projects []domain.Project, rep Report, opt IngestOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, p := range projects {
		p := p
		g.Go(func() error {
			if err := s.mirror.UpsertProject(gctx, p); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", p.Developer, p.Slug, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return s.mirror.RecordRun(ctx, domain.IngestRun{
		ID:      rep.RunID,
		Input:   opt.Input,
		Written: rep.Written,
		Skipped: rep.Skipped,
		DryRun:  opt.DryRun,
	})
}

// MirrorStatus is the mirror's view of a finished run.
type MirrorStatus struct {
	Run      domain.IngestRun
	Counts   []domain.DeveloperCount
	Mismatch []string
}

// VerifyMirror reads the run back from the mirror and compares its counters
// with the report. A run the mirror never recorded is domain.ErrNotFound.
func VerifyMirror(ctx context.Context, r domain.MirrorReader, rep Report) (MirrorStatus, error) {
	run, err := r.GetRun(ctx, rep.RunID)
	if err != nil {
		return MirrorStatus{}, fmt.Errorf("read run %s: %w", rep.RunID, err)
	}
	counts, err := r.CountByDeveloper(ctx)
	if err != nil {
		return MirrorStatus{}, fmt.Errorf("count mirrored projects: %w", err)
	}
	st := MirrorStatus{Run: run, Counts: counts}
	if run.Skipped != rep.Skipped {
		st.Mismatch = append(st.Mismatch, fmt.Sprintf("skipped: report %d, mirror %d", rep.Skipped, run.Skipped))
	}
	mirrored := make(map[domain.Developer]int, len(counts))
	for _, c := range counts {
		mirrored[c.Developer] = c.Count
	}
	for _, d := range domain.Developers {
		if run.Written[d] != rep.Written[d] {
			st.Mismatch = append(st.Mismatch, fmt.Sprintf("%s written: report %d, mirror %d", d, rep.Written[d], run.Written[d]))
		}
		// the table accumulates across runs, so it can only hold more
		if mirrored[d] < rep.Written[d] {
			st.Mismatch = append(st.Mismatch, fmt.Sprintf("%s rows: wrote %d, mirror holds %d", d, rep.Written[d], mirrored[d]))
		}
	}
	return st, nil
}

// sortManifest orders entries by project name, slug breaking ties.
// Collators are not safe for concurrent use, so each call builds its own.
func sortManifest(entries []domain.ManifestEntry) {
	cl := collate.New(language.English)
	sort.SliceStable(entries, func(i, j int) bool {
		if c := cl.CompareString(entries[i].ProjectName, entries[j].ProjectName); c != 0 {
			return c < 0
		}
		return entries[i].Slug < entries[j].Slug
	})
}
