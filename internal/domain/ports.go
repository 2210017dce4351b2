package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyCSV      = errors.New("csv is empty")
	ErrInputNotFound = errors.New("input not found")
)

// On-disk layout names shared by the stores and the CLIs.
const (
	ConsolidatedFile = "all_projects.json"
	ManifestFile     = "projectManifest.json"
	ChunksDir        = "_chunks"
	ChunksIndexExt   = ".chunks.index.json"
)

// RawSource tags where a loose record came from.
type RawSource string

const (
	SourceCSVRow       RawSource = "csv-row"
	SourceLegacyFile   RawSource = "legacy-file"
	SourceConsolidated RawSource = "consolidated-entry"
)

// RawRecord is an unvalidated project blob plus its provenance.
type RawRecord struct {
	Source    RawSource
	Developer Developer // namespace it was found under; empty for consolidated entries
	File      string    // base file name used as the last-resort slug source
	Fields    map[string]any
}

// ProjectRepository is the per-developer document store the writer targets.
type ProjectRepository interface {
	// Write paths
	Write(ctx context.Context, dev Developer, slug string, p Project) error
	WriteManifest(ctx context.Context, dev Developer, entries []ManifestEntry) error

	// Read paths
	Exists(ctx context.Context, dev Developer, slug string) (bool, error)
	List(ctx context.Context, dev Developer) ([]string, error)
	Read(ctx context.Context, dev Developer, slug string) (RawRecord, error)
	ReadManifest(ctx context.Context, dev Developer) ([]any, error)
}

// ProjectSource feeds the runtime loader.
type ProjectSource interface {
	// Consolidated returns the single aggregate document, or ErrNotFound.
	Consolidated(ctx context.Context) ([]RawRecord, error)
	Developers(ctx context.Context) ([]Developer, error)
	// Records returns every record under a developer namespace, best-effort.
	Records(ctx context.Context, dev Developer) ([]RawRecord, error)
}

// NestedGroup is a legacy per-project subdirectory under a developer.
type NestedGroup struct {
	Dir   string
	Files []string
}

// LegacyLayout exposes the nested layout so it can be flattened in place.
type LegacyLayout interface {
	NestedGroups(ctx context.Context, dev Developer) ([]NestedGroup, error)
	ReadNested(ctx context.Context, dev Developer, dir, file string) (any, error)
	Promote(ctx context.Context, dev Developer, dir, file, slug string, doc any) error
	RemoveDirIfEmpty(ctx context.Context, dev Developer, dir string) (bool, error)
}

// ProjectMirror receives accepted projects after a non-dry ingestion run.
type ProjectMirror interface {
	UpsertProject(ctx context.Context, p Project) error
	RecordRun(ctx context.Context, run IngestRun) error
}

// MirrorReader reads back what earlier runs stored in the mirror.
type MirrorReader interface {
	GetRun(ctx context.Context, id string) (IngestRun, error)
	CountByDeveloper(ctx context.Context) ([]DeveloperCount, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// IngestRun summarises one ingestion invocation.
type IngestRun struct {
	ID      string
	Input   string
	Written map[Developer]int
	Skipped int
	DryRun  bool
}
