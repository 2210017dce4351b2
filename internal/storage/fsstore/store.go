// Package fsstore keeps project documents as JSON files under a data root:
//
//	<root>/all_projects.json
//	<root>/<developer>/<slug>.json
//	<root>/<developer>/projectManifest.json
package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imperium_gate/internal/domain"
)

type Store struct{ root string }

func New(root string) *Store { return &Store{root: root} }

func (s *Store) Root() string { return s.root }

func (s *Store) devDir(dev domain.Developer) string { return filepath.Join(s.root, string(dev)) }

func (s *Store) docPath(dev domain.Developer, slug string) string {
	return filepath.Join(s.devDir(dev), slug+".json")
}

// ---- ProjectRepository ----

func (s *Store) Write(_ context.Context, dev domain.Developer, slug string, p domain.Project) error {
	return writeJSON(s.docPath(dev, slug), p)
}

func (s *Store) WriteManifest(_ context.Context, dev domain.Developer, entries []domain.ManifestEntry) error {
	if entries == nil {
		entries = []domain.ManifestEntry{}
	}
	return writeJSON(filepath.Join(s.devDir(dev), domain.ManifestFile), entries)
}

func (s *Store) Exists(_ context.Context, dev domain.Developer, slug string) (bool, error) {
	_, err := os.Stat(s.docPath(dev, slug))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// List returns the slugs of the flat project files of dev, sorted.
func (s *Store) List(_ context.Context, dev domain.Developer) ([]string, error) {
	ents, err := os.ReadDir(s.devDir(dev))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !isProjectFile(e.Name()) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Read(_ context.Context, dev domain.Developer, slug string) (domain.RawRecord, error) {
	items, err := readRecords(s.docPath(dev, slug))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.RawRecord{}, domain.ErrNotFound
		}
		return domain.RawRecord{}, err
	}
	if len(items) == 0 {
		return domain.RawRecord{}, domain.ErrNotFound
	}
	return domain.RawRecord{Source: domain.SourceLegacyFile, Developer: dev, File: slug + ".json", Fields: items[0]}, nil
}

func (s *Store) ReadManifest(_ context.Context, dev domain.Developer) ([]any, error) {
	b, err := os.ReadFile(filepath.Join(s.devDir(dev), domain.ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var out []any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", dev, err)
	}
	return out, nil
}

// WriteConsolidated replaces <root>/all_projects.json with v.
func (s *Store) WriteConsolidated(_ context.Context, v any) error {
	return writeJSON(filepath.Join(s.root, domain.ConsolidatedFile), v)
}

// ---- ProjectSource ----

func (s *Store) Consolidated(_ context.Context) ([]domain.RawRecord, error) {
	items, err := readRecords(filepath.Join(s.root, domain.ConsolidatedFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	out := make([]domain.RawRecord, 0, len(items))
	for _, it := range items {
		out = append(out, domain.RawRecord{Source: domain.SourceConsolidated, File: domain.ConsolidatedFile, Fields: it})
	}
	return out, nil
}

// Developers lists every directory under the root; hidden ones are ignored.
func (s *Store) Developers(_ context.Context) ([]domain.Developer, error) {
	ents, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []domain.Developer
	for _, e := range ents {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, domain.Developer(e.Name()))
		}
	}
	return out, nil
}

// Records reads flat files directly; a nested directory X contributes X/X.json
// when present, otherwise every JSON file inside it. Unreadable or malformed
// files are skipped.
func (s *Store) Records(_ context.Context, dev domain.Developer) ([]domain.RawRecord, error) {
	dir := s.devDir(dev)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []domain.RawRecord
	add := func(path, file string) {
		items, err := readRecords(path)
		if err != nil {
			return
		}
		for _, it := range items {
			out = append(out, domain.RawRecord{Source: domain.SourceLegacyFile, Developer: dev, File: file, Fields: it})
		}
	}
	for _, e := range ents {
		name := e.Name()
		switch {
		case !e.IsDir() && isProjectFile(name):
			add(filepath.Join(dir, name), name)
		case e.IsDir() && name != domain.ChunksDir:
			sub := filepath.Join(dir, name)
			canonical := filepath.Join(sub, name+".json")
			if _, err := os.Stat(canonical); err == nil {
				add(canonical, name)
				continue
			}
			subEnts, err := os.ReadDir(sub)
			if err != nil {
				continue
			}
			for _, se := range subEnts {
				if !se.IsDir() && isProjectFile(se.Name()) {
					add(filepath.Join(sub, se.Name()), se.Name())
				}
			}
		}
	}
	return out, nil
}

// ---- LegacyLayout ----

func (s *Store) NestedGroups(_ context.Context, dev domain.Developer) ([]domain.NestedGroup, error) {
	dir := s.devDir(dev)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []domain.NestedGroup
	for _, e := range ents {
		if !e.IsDir() || e.Name() == domain.ChunksDir {
			continue
		}
		subEnts, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		g := domain.NestedGroup{Dir: e.Name()}
		for _, se := range subEnts {
			if !se.IsDir() && isProjectFile(se.Name()) {
				g.Files = append(g.Files, se.Name())
			}
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) ReadNested(_ context.Context, dev domain.Developer, dir, file string) (any, error) {
	b, err := os.ReadFile(filepath.Join(s.devDir(dev), dir, file))
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Promote writes doc to <dev>/<slug>.json and removes the nested original.
func (s *Store) Promote(_ context.Context, dev domain.Developer, dir, file, slug string, doc any) error {
	if err := writeJSON(s.docPath(dev, slug), doc); err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.devDir(dev), dir, file))
}

func (s *Store) RemoveDirIfEmpty(_ context.Context, dev domain.Developer, dir string) (bool, error) {
	path := filepath.Join(s.devDir(dev), dir)
	ents, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	if len(ents) > 0 {
		return false, nil
	}
	return true, os.Remove(path)
}

// ---- helpers ----

// JSONFiles returns every *.json path below root. A missing root yields
// domain.ErrNotFound.
func JSONFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// isProjectFile excludes the manifest and splitter indexes living next to projects.
func isProjectFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json") &&
		name != domain.ManifestFile &&
		name != domain.ConsolidatedFile &&
		!strings.HasSuffix(name, domain.ChunksIndexExt)
}

// readRecords accepts a single object or an array of objects.
func readRecords(path string) ([]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, nil
	}
	return nil, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, b, 0o644)
}
