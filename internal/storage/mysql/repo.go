// Package mysql mirrors the ingested catalogue into MySQL for reporting.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmcloughlin/geohash"

	"imperium_gate/internal/domain"
)

// GeohashPrecision is the stored cell size (9 chars, a few metres).
const GeohashPrecision = 9

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertProject writes the project row and its en/ar names in one transaction.
func (r *Repo) UpsertProject(ctx context.Context, p domain.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", p.Developer, p.Slug, err)
	}
	var lat, lon, gh any
	if la, lo, ok := p.LatLon(); ok {
		lat, lon = la, lo
		gh = geohash.EncodeWithPrecision(la, lo, GeohashPrecision)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertProjectSQL,
		string(p.Developer),
		p.Slug,
		valStr(p.Status),
		valF64(p.MinPriceAED),
		valF64(p.MaxPriceAED),
		lat,
		lon,
		gh,
		string(doc),
	); err != nil {
		return err
	}
	for _, lang := range []string{"en", "ar"} {
		if _, err := tx.ExecContext(ctx, upsertI18nSQL,
			string(p.Developer),
			p.Slug,
			lang,
			valStr(localizedOnly(p.ProjectName, lang)),
			valStr(localizedOnly(p.City, lang)),
			valStr(localizedOnly(p.Area, lang)),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// localizedOnly returns the text stored for lang without cross-locale
// fallback; plain strings count as English.
func localizedOnly(t domain.LocalizedText, lang string) string {
	switch {
	case !t.IsLocalized() && lang == "en":
		return t.Value
	case !t.IsLocalized():
		return ""
	case lang == "ar":
		return t.AR
	}
	return t.EN
}

func (r *Repo) RecordRun(ctx context.Context, run domain.IngestRun) error {
	written, err := json.Marshal(run.Written)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertRunSQL, run.ID, run.Input, string(written), run.Skipped, run.DryRun)
	return err
}

// MirroredProject is a project row as read back from the mirror.
type MirroredProject struct {
	Developer   domain.Developer
	Slug        string
	Status      *string
	MinPriceAED *float64
	Geohash     *string
	Name        *string
	City        *string
	Project     domain.Project
}

func (r *Repo) GetProject(ctx context.Context, dev domain.Developer, slug, lang string) (MirroredProject, error) {
	var (
		out        MirroredProject
		devStr     string
		status, gh sql.NullString
		name, city sql.NullString
		minPrice   sql.NullFloat64
		doc        []byte
	)
	err := r.db.QueryRowContext(ctx, getProjectSQL, lang, string(dev), slug).
		Scan(&devStr, &out.Slug, &status, &minPrice, &gh, &name, &city, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return MirroredProject{}, domain.ErrNotFound
	}
	if err != nil {
		return MirroredProject{}, err
	}
	out.Developer = domain.Developer(devStr)
	if status.Valid {
		s := status.String
		out.Status = &s
	}
	if minPrice.Valid {
		f := minPrice.Float64
		out.MinPriceAED = &f
	}
	if gh.Valid {
		s := gh.String
		out.Geohash = &s
	}
	if name.Valid {
		s := name.String
		out.Name = &s
	}
	if city.Valid {
		s := city.String
		out.City = &s
	}
	if err := json.Unmarshal(doc, &out.Project); err != nil {
		return MirroredProject{}, fmt.Errorf("decode doc %s/%s: %w", dev, slug, err)
	}
	return out, nil
}

func (r *Repo) CountByDeveloper(ctx context.Context) ([]domain.DeveloperCount, error) {
	rows, err := r.db.QueryContext(ctx, countByDeveloperSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DeveloperCount
	for rows.Next() {
		var (
			dev string
			n   int
		)
		if err := rows.Scan(&dev, &n); err != nil {
			return nil, err
		}
		out = append(out, domain.DeveloperCount{Developer: domain.Developer(dev), Count: n})
	}
	return out, rows.Err()
}

func (r *Repo) GetRun(ctx context.Context, id string) (domain.IngestRun, error) {
	var (
		run     domain.IngestRun
		written []byte
	)
	err := r.db.QueryRowContext(ctx, getRunSQL, id).Scan(&run.ID, &run.Input, &written, &run.Skipped, &run.DryRun)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IngestRun{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.IngestRun{}, err
	}
	if err := json.Unmarshal(written, &run.Written); err != nil {
		return domain.IngestRun{}, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, nil
}
