package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmcloughlin/geohash"

	"imperium_gate/internal/domain"
)

// ProjectView is a project plus the strings resolved for one locale.
type ProjectView struct {
	Locale  string         `json:"locale"`
	Display Display        `json:"display"`
	Project domain.Project `json:"project"`
}

type Display struct {
	Name string   `json:"name"`
	City string   `json:"city,omitempty"`
	Area string   `json:"area,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// QueryService is the read surface the presentation layer consumes. Every
// accessor filters the loader's snapshot; there is no secondary index.
type QueryService struct {
	loader   *Loader
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewQueryService wires the read side. cache may be nil.
func NewQueryService(l *Loader, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{loader: l, cache: c, cacheTTL: ttl}
}

func (s *QueryService) LoadAllProjects(ctx context.Context) []domain.Project {
	return s.loader.Load(ctx)
}

func (s *QueryService) GetProjectBySlug(ctx context.Context, dev domain.Developer, slug string) (domain.Project, error) {
	for _, p := range s.loader.Load(ctx) {
		if p.Developer == dev && p.Slug == slug {
			return p, nil
		}
	}
	return domain.Project{}, domain.ErrNotFound
}

func (s *QueryService) GetProjectsByDeveloper(ctx context.Context, dev domain.Developer) []domain.Project {
	out := []domain.Project{}
	for _, p := range s.loader.Load(ctx) {
		if p.Developer == dev {
			out = append(out, p)
		}
	}
	return out
}

// ListDevelopers counts projects per developer, ordered by developer key.
func (s *QueryService) ListDevelopers(ctx context.Context) []domain.DeveloperCount {
	counts := make(map[domain.Developer]int)
	for _, p := range s.loader.Load(ctx) {
		if p.Developer == "" {
			continue
		}
		counts[p.Developer]++
	}
	out := make([]domain.DeveloperCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, domain.DeveloperCount{Developer: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Developer < out[j].Developer })
	return out
}

// Manifest derives the {slug, projectName} index of dev from the snapshot.
func (s *QueryService) Manifest(ctx context.Context, dev domain.Developer) []domain.ManifestEntry {
	var entries []domain.ManifestEntry
	for _, p := range s.GetProjectsByDeveloper(ctx, dev) {
		name := p.Name("en")
		if name == "" {
			name = p.Slug
		}
		entries = append(entries, domain.ManifestEntry{Slug: p.Slug, ProjectName: name})
	}
	entries = dedupeManifest(entries)
	sortManifest(entries)
	return entries
}

// Nearby returns the projects whose geohash cell at precision is the cell of
// (lat, lon) or one of its eight neighbours. precision is clamped to 1..9.
func (s *QueryService) Nearby(ctx context.Context, lat, lon float64, precision uint) []domain.Project {
	if precision < 1 {
		precision = 1
	}
	if precision > 9 {
		precision = 9
	}
	center := geohash.EncodeWithPrecision(lat, lon, precision)
	cells := map[string]struct{}{center: {}}
	for _, n := range geohash.Neighbors(center) {
		cells[n] = struct{}{}
	}

	out := []domain.Project{}
	for _, p := range s.loader.Load(ctx) {
		plat, plon, ok := p.LatLon()
		if !ok {
			continue
		}
		if _, hit := cells[geohash.EncodeWithPrecision(plat, plon, precision)]; hit {
			out = append(out, p)
		}
	}
	return out
}

// GetProjectView resolves one project for a locale, cache-aside when a cache is wired.
func (s *QueryService) GetProjectView(ctx context.Context, dev domain.Developer, slug, locale string) (ProjectView, error) {
	key := fmt.Sprintf("project:%s:%s:%s", dev, slug, locale)
	var pv ProjectView
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &pv); ok {
			return pv, nil
		}
	}
	p, err := s.GetProjectBySlug(ctx, dev, slug)
	if err != nil {
		return ProjectView{}, err
	}
	pv = ProjectView{
		Locale: locale,
		Display: Display{
			Name: p.Name(locale),
			City: p.City.Resolve(locale),
			Area: p.Area.Resolve(locale),
		},
		Project: p,
	}
	if lat, lon, ok := p.LatLon(); ok {
		pv.Display.Lat, pv.Display.Lon = &lat, &lon
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, pv, int(s.cacheTTL.Seconds()))
	}
	return pv, nil
}

// dedupeManifest drops repeated slugs, keeping the first occurrence.
func dedupeManifest(in []domain.ManifestEntry) []domain.ManifestEntry {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.ManifestEntry, 0, len(in))
	for _, e := range in {
		if _, dup := seen[e.Slug]; dup {
			continue
		}
		seen[e.Slug] = struct{}{}
		out = append(out, e)
	}
	return out
}
