package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"imperium_gate/internal/domain"
	"imperium_gate/internal/normalize"
)

/********** manifest repair **********/

// FixManifests rewrites each developer manifest keeping object entries that
// carry a slug, defaulting projectName to the slug and dropping repeated slugs.
// It returns the surviving entry count per developer that had a manifest.
func FixManifests(ctx context.Context, repo domain.ProjectRepository) (map[domain.Developer]int, error) {
	out := make(map[domain.Developer]int, len(domain.Developers))
	for _, dev := range domain.Developers {
		items, err := repo.ReadManifest(ctx, dev)
		if errors.Is(err, domain.ErrNotFound) {
			log.Info().Str("developer", dev.String()).Msg("no manifest")
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("developer", dev.String()).Msg("manifest not fixed")
			continue
		}
		entries := dedupeManifest(manifestEntries(items))
		if err := repo.WriteManifest(ctx, dev, entries); err != nil {
			return out, fmt.Errorf("write manifest %s: %w", dev, err)
		}
		out[dev] = len(entries)
		log.Info().Str("developer", dev.String()).Int("projects", len(entries)).Msg("manifest fixed")
	}
	return out, nil
}

// manifestEntries keeps the well-formed items of a raw manifest, in order.
func manifestEntries(items []any) []domain.ManifestEntry {
	out := make([]domain.ManifestEntry, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		slug, _ := obj["slug"].(string)
		if slug == "" {
			continue
		}
		name := slug
		if t, ok := domain.TextFromAny(obj["projectName"]); ok && t.Resolve("en") != "" {
			name = t.Resolve("en")
		}
		out = append(out, domain.ManifestEntry{Slug: slug, ProjectName: name})
	}
	return out
}

/********** nested layout flattening **********/

type FlattenReport struct {
	Moved       int
	DirsDeleted int
	Warnings    []string
}

type FlattenService struct {
	repo   domain.ProjectRepository
	layout domain.LegacyLayout
}

func NewFlattenService(r domain.ProjectRepository, l domain.LegacyLayout) *FlattenService {
	return &FlattenService{repo: r, layout: l}
}

// Flatten promotes every <dev>/<dir>/<file>.json to <dev>/<file>.json, stamps
// the file name as slug, appends a manifest entry and removes emptied dirs.
// A slug already listed in the manifest is a warning and the file stays put.
func (s *FlattenService) Flatten(ctx context.Context) (FlattenReport, error) {
	var rep FlattenReport
	for _, dev := range domain.Developers {
		if err := s.flattenDeveloper(ctx, dev, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (s *FlattenService) flattenDeveloper(ctx context.Context, dev domain.Developer, rep *FlattenReport) error {
	l := log.With().Str("developer", dev.String()).Logger()

	groups, err := s.layout.NestedGroups(ctx, dev)
	if err != nil {
		l.Warn().Err(err).Msg("developer directory not readable")
		return nil
	}

	var manifest []domain.ManifestEntry
	items, err := s.repo.ReadManifest(ctx, dev)
	switch {
	case err == nil:
		manifest = manifestEntries(items)
	case !errors.Is(err, domain.ErrNotFound):
		l.Warn().Err(err).Msg("existing manifest unreadable")
	}
	slugs := make(map[string]struct{}, len(manifest))
	for _, e := range manifest {
		slugs[e.Slug] = struct{}{}
	}

	for _, g := range groups {
		for _, file := range g.Files {
			slug := strings.TrimSuffix(file, filepath.Ext(file))
			if _, dup := slugs[slug]; dup {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("slug conflict: %s/%s/%s (%s already listed)", dev, g.Dir, file, slug))
				continue
			}
			doc, err := s.layout.ReadNested(ctx, dev, g.Dir, file)
			if err != nil {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("read %s/%s/%s: %v", dev, g.Dir, file, err))
				continue
			}
			name := stampSlug(doc, slug)
			if err := s.layout.Promote(ctx, dev, g.Dir, file, slug, doc); err != nil {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("move %s/%s/%s: %v", dev, g.Dir, file, err))
				continue
			}
			l.Info().Str("from", g.Dir+"/"+file).Str("to", slug+".json").Msg("moved")
			manifest = append(manifest, domain.ManifestEntry{Slug: slug, ProjectName: name})
			slugs[slug] = struct{}{}
			rep.Moved++
		}
		removed, err := s.layout.RemoveDirIfEmpty(ctx, dev, g.Dir)
		if err != nil {
			l.Warn().Err(err).Str("dir", g.Dir).Msg("could not delete directory")
			continue
		}
		if removed {
			rep.DirsDeleted++
		}
	}

	if err := s.repo.WriteManifest(ctx, dev, manifest); err != nil {
		return fmt.Errorf("write manifest %s: %w", dev, err)
	}
	l.Info().Int("projects", len(manifest)).Msg("manifest updated")
	return nil
}

// stampSlug sets slug on the document (or its first element) and returns the
// English project name, falling back to the slug.
func stampSlug(doc any, slug string) string {
	var obj map[string]any
	switch v := doc.(type) {
	case map[string]any:
		obj = v
	case []any:
		if len(v) > 0 {
			obj, _ = v[0].(map[string]any)
		}
	}
	if obj == nil {
		return slug
	}
	obj["slug"] = slug
	if t, ok := domain.TextFromAny(obj["projectName"]); ok {
		if name := t.Resolve("en"); name != "" {
			return name
		}
	}
	return slug
}

/********** consolidated summary build **********/

// Summary is one entry of the consolidated catalogue. Developer stays the
// namespace key so the loader can read the file back.
type Summary struct {
	Developer     string `json:"developer"`
	DeveloperName string `json:"developerName"`
	Slug          string `json:"slug"`
	Title         any    `json:"projectName,omitempty"`
	VideoLink     any    `json:"videoLink,omitempty"`
	Image         any    `json:"heroImage,omitempty"`
	Price         any    `json:"minPriceAED,omitempty"`
	Bedrooms      any    `json:"bedrooms,omitempty"`
}

// BuildSummaries collects one Summary per record found under every developer
// directory of src. A missing root is domain.ErrNotFound.
func BuildSummaries(ctx context.Context, src domain.ProjectSource) ([]Summary, error) {
	devs, err := src.Developers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	out := []Summary{}
	for _, dev := range devs {
		recs, err := src.Records(ctx, dev)
		if err != nil {
			log.Warn().Err(err).Str("developer", dev.String()).Msg("developer directory skipped")
			continue
		}
		for _, r := range recs {
			out = append(out, summarize(dev, r))
		}
	}
	return out, nil
}

func summarize(dev domain.Developer, r domain.RawRecord) Summary {
	f := r.Fields
	title := pick(f, "projectName", "title", "name")
	base := r.File
	if s, ok := f["slug"].(string); ok && s != "" {
		base = s
	} else if t, ok := title.(string); ok {
		base = t
	}
	return Summary{
		Developer:     dev.String(),
		DeveloperName: normalize.TitleCase(dev.String()),
		Slug:          normalize.Slug(base, r.File),
		Title:         title,
		VideoLink:     pick(f, "videoLink", "video", "heroVideo"),
		Image:         pick(f, "image", "heroImage", "poster", "thumbnail"),
		Price:         pick(f, "startingPrice", "minPriceAED", "price"),
		Bedrooms:      pick(f, "bedrooms"),
	}
}

// pick returns the first key holding something other than null or "".
func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}
