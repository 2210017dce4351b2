// Package memstore is an in-memory project store for tests and dry tooling.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"imperium_gate/internal/domain"
)

type Store struct {
	mu           sync.Mutex
	consolidated []map[string]any
	docs         map[domain.Developer]map[string]map[string]any
	manifests    map[domain.Developer][]any
	writes       int
}

func New() *Store {
	return &Store{
		docs:      make(map[domain.Developer]map[string]map[string]any),
		manifests: make(map[domain.Developer][]any),
	}
}

// SetConsolidated installs the aggregate document; nil removes it.
func (s *Store) SetConsolidated(items []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consolidated = items
}

// Put stores a loose document under dev/slug.
func (s *Store) Put(dev domain.Developer, slug string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[dev] == nil {
		s.docs[dev] = make(map[string]map[string]any)
	}
	s.docs[dev][slug] = doc
}

// PutManifest stores raw manifest items, malformed ones included.
func (s *Store) PutManifest(dev domain.Developer, items []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[dev] = items
}

// Writes counts Write and WriteManifest calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) Write(_ context.Context, dev domain.Developer, slug string, p domain.Project) error {
	doc, err := toMap(p)
	if err != nil {
		return err
	}
	s.Put(dev, slug, doc)
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return nil
}

func (s *Store) WriteManifest(_ context.Context, dev domain.Developer, entries []domain.ManifestEntry) error {
	items := make([]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{"slug": e.Slug, "projectName": e.ProjectName})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[dev] = items
	s.writes++
	return nil
}

func (s *Store) Exists(_ context.Context, dev domain.Developer, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[dev][slug]
	return ok, nil
}

func (s *Store) List(_ context.Context, dev domain.Developer) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs[dev]))
	for slug := range s.docs[dev] {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Read(_ context.Context, dev domain.Developer, slug string) (domain.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[dev][slug]
	if !ok {
		return domain.RawRecord{}, domain.ErrNotFound
	}
	return domain.RawRecord{Source: domain.SourceLegacyFile, Developer: dev, File: slug + ".json", Fields: doc}, nil
}

func (s *Store) ReadManifest(_ context.Context, dev domain.Developer) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.manifests[dev]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return items, nil
}

func (s *Store) Consolidated(_ context.Context) ([]domain.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consolidated == nil {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.RawRecord, 0, len(s.consolidated))
	for _, it := range s.consolidated {
		out = append(out, domain.RawRecord{Source: domain.SourceConsolidated, File: domain.ConsolidatedFile, Fields: it})
	}
	return out, nil
}

func (s *Store) Developers(_ context.Context) ([]domain.Developer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Developer, 0, len(s.docs))
	for d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Records(ctx context.Context, dev domain.Developer) ([]domain.RawRecord, error) {
	slugs, _ := s.List(ctx, dev)
	out := make([]domain.RawRecord, 0, len(slugs))
	for _, slug := range slugs {
		r, err := s.Read(ctx, dev, slug)
		if err == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	return m, json.Unmarshal(b, &m)
}
