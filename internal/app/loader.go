package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"imperium_gate/internal/adapters/observability"
	"imperium_gate/internal/domain"
)

type LoadState int

const (
	StateEmpty LoadState = iota
	StateLoading
	StatePopulated
)

// Loader reads the catalogue once and serves that snapshot for its lifetime.
// Concurrent first callers block on the mutex until the single load finishes.
type Loader struct {
	src domain.ProjectSource

	mu       sync.Mutex
	state    LoadState
	origin   string
	projects []domain.Project
}

func NewLoader(src domain.ProjectSource) *Loader { return &Loader{src: src} }

func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Origin reports where the snapshot came from: "consolidated" or "directories".
func (l *Loader) Origin() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.origin
}

// Load never fails: unreadable data degrades to fewer (or zero) projects.
func (l *Loader) Load(ctx context.Context) []domain.Project {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StatePopulated {
		return l.projects
	}
	l.state = StateLoading
	l.projects, l.origin = l.load(ctx)
	l.state = StatePopulated

	observability.ObserveLoad(l.origin, len(l.projects))
	log.Info().Int("projects", len(l.projects)).Str("source", l.origin).Msg("projects loaded")
	return l.projects
}

func (l *Loader) load(ctx context.Context) ([]domain.Project, string) {
	recs, err := l.src.Consolidated(ctx)
	switch {
	case err == nil && len(recs) > 0:
		return normalizeAll(recs), "consolidated"
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		log.Debug().Err(err).Msg("consolidated file unusable, scanning developer directories")
	}

	out := []domain.Project{}
	devs, err := l.src.Developers(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("data root unreadable")
		return out, "directories"
	}
	for _, dev := range devs {
		recs, err := l.src.Records(ctx, dev)
		if err != nil {
			log.Warn().Err(err).Str("developer", dev.String()).Msg("developer directory skipped")
			continue
		}
		out = append(out, normalizeAll(recs)...)
	}
	return out, "directories"
}

func normalizeAll(recs []domain.RawRecord) []domain.Project {
	out := make([]domain.Project, 0, len(recs))
	for _, r := range recs {
		out = append(out, NormalizeRaw(r))
	}
	return out
}
