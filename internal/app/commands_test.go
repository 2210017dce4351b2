package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imperium_gate/internal/app"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/ingest"
	"imperium_gate/internal/storage/memstore"
)

const sheet = `Project (EN),Project (AR),Brand,City,Bedrooms,Property Types,Min Price (AED),3D Tour,lat,lon
Creek Vista,كريك فيستا,Emaar Properties,Dubai,"Studio, 1BR, 2BR",apts|villa,"1,200,000",https://sobha.cloud/t/1 https://hartland2.sobha.cloud/t/2,25.2,55.3
Creek Vista,,EMAAR,Dubai,3BR,TH,,,,
Lagoons,,DAMAC,Dubai,,,,,,
Somewhere,,Unknown Builder,Dubai,,,,,,
,,Sobha Realty,Dubai,,,,,,
`

type fakeMirror struct {
	mu       sync.Mutex
	upserted []string
	runs     []domain.IngestRun
	failOn   string
}

func (m *fakeMirror) UpsertProject(_ context.Context, p domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Slug == m.failOn {
		return errors.New("boom")
	}
	m.upserted = append(m.upserted, p.Developer.String()+"/"+p.Slug)
	return nil
}

func (m *fakeMirror) RecordRun(_ context.Context, run domain.IngestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func rows(t *testing.T) []ingest.Row {
	t.Helper()
	rs, err := ingest.ReadRows(sheet)
	require.NoError(t, err)
	return rs
}

func TestIngest_WritesProjectsAndManifests(t *testing.T) {
	st := memstore.New()
	mirror := &fakeMirror{}
	svc := app.NewIngestionService(st, mirror, "", 2)

	rep, err := svc.Ingest(context.Background(), rows(t), app.IngestOptions{Input: "sheet.csv"})
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Rows)
	assert.Equal(t, 2, rep.Written[domain.DeveloperEmaar])
	assert.Equal(t, 1, rep.Written[domain.DeveloperDamac])
	assert.Equal(t, 2, rep.Skipped)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "missing slug/name -> skipped")
	assert.NotEmpty(t, rep.RunID)

	slugs, err := st.List(context.Background(), domain.DeveloperEmaar)
	require.NoError(t, err)
	assert.Equal(t, []string{"creek-vista", "creek-vista-2"}, slugs)

	rec, err := st.Read(context.Background(), domain.DeveloperEmaar, "creek-vista")
	require.NoError(t, err)
	p := app.NormalizeRaw(rec)
	assert.Equal(t, app.DefaultContactNumber, p.Phone)
	assert.Equal(t, app.DefaultContactNumber, p.WhatsApp)
	assert.Equal(t, []string{"https://hartland2.sobha.cloud/t/2"}, p.Tour3DLinks)
	assert.Equal(t, []string{"Apartment", "Villa"}, p.PropertyTypes)
	require.NotNil(t, p.MinPriceAED)
	assert.Equal(t, 1200000.0, *p.MinPriceAED)
	require.NotNil(t, p.Bedrooms)
	assert.Equal(t, []domain.Bedroom{domain.Studio(), domain.Rooms(1), domain.Rooms(2)}, p.Bedrooms.List)

	// every developer gets a manifest, empty ones included
	for _, d := range domain.Developers {
		_, err := st.ReadManifest(context.Background(), d)
		assert.NoError(t, err, d)
	}
	m, _ := st.ReadManifest(context.Background(), domain.DeveloperEmaar)
	assert.Len(t, m, 2)

	assert.ElementsMatch(t, []string{"emaar/creek-vista", "emaar/creek-vista-2", "damac/lagoons"}, mirror.upserted)
	require.Len(t, mirror.runs, 1)
	assert.Equal(t, rep.RunID, mirror.runs[0].ID)
	assert.Equal(t, "sheet.csv", mirror.runs[0].Input)
}

func TestIngest_SlugsAvoidExistingFiles(t *testing.T) {
	st := memstore.New()
	st.Put(domain.DeveloperDamac, "lagoons", map[string]any{"projectName": "Lagoons"})
	svc := app.NewIngestionService(st, nil, "", 1)

	_, err := svc.Ingest(context.Background(), rows(t), app.IngestOptions{})
	require.NoError(t, err)

	slugs, _ := st.List(context.Background(), domain.DeveloperDamac)
	assert.Equal(t, []string{"lagoons", "lagoons-2"}, slugs)
}

func TestIngest_UnsluggableNamesFallBackToRow(t *testing.T) {
	rs, err := ingest.ReadRows("Project (EN),Brand\nمشروع الخور,Emaar\nبرج,Emaar\n")
	require.NoError(t, err)
	st := memstore.New()
	svc := app.NewIngestionService(st, nil, "", 1)

	rep, err := svc.Ingest(context.Background(), rs, app.IngestOptions{})
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)

	slugs, err := st.List(context.Background(), domain.DeveloperEmaar)
	require.NoError(t, err)
	assert.Equal(t, []string{"row-2", "row-3"}, slugs)

	for _, slug := range slugs {
		rec, err := st.Read(context.Background(), domain.DeveloperEmaar, slug)
		require.NoError(t, err)
		assert.Equal(t, slug, rec.Fields["id"], slug)
		assert.Equal(t, slug, rec.Fields["slug"], slug)
	}
}

func TestIngest_IDFollowsSuffixedSlug(t *testing.T) {
	st := memstore.New()
	svc := app.NewIngestionService(st, nil, "", 1)

	_, err := svc.Ingest(context.Background(), rows(t), app.IngestOptions{})
	require.NoError(t, err)

	rec, err := st.Read(context.Background(), domain.DeveloperEmaar, "creek-vista-2")
	require.NoError(t, err)
	assert.Equal(t, "creek-vista-2", rec.Fields["id"])
}

func TestIngest_DryRunWritesNothing(t *testing.T) {
	st := memstore.New()
	mirror := &fakeMirror{}
	svc := app.NewIngestionService(st, mirror, "+97100000", 1)

	rep, err := svc.Ingest(context.Background(), rows(t), app.IngestOptions{DryRun: true})
	require.NoError(t, err)

	assert.Zero(t, st.Writes())
	assert.Empty(t, mirror.upserted)
	assert.Equal(t, 2, rep.Written[domain.DeveloperEmaar])
	// distinct slugs even though nothing reached the repository
	entries := rep.Manifests[domain.DeveloperEmaar]
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].Slug, entries[1].Slug)
}

func TestIngest_CompanyFilter(t *testing.T) {
	st := memstore.New()
	svc := app.NewIngestionService(st, nil, "", 1)

	rep, err := svc.Ingest(context.Background(), rows(t), app.IngestOptions{Company: domain.DeveloperDamac})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Written[domain.DeveloperDamac])
	assert.Zero(t, rep.Written[domain.DeveloperEmaar])
	_, err = st.ReadManifest(context.Background(), domain.DeveloperEmaar)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_MirrorFailureIsAWarning(t *testing.T) {
	st := memstore.New()
	svc := app.NewIngestionService(st, &fakeMirror{failOn: "lagoons"}, "", 1)

	rep, err := svc.Ingest(context.Background(), rows(t), app.IngestOptions{})
	require.NoError(t, err)
	assert.Contains(t, rep.Warnings[len(rep.Warnings)-1], "mirror:")
	assert.Equal(t, 1, rep.Written[domain.DeveloperDamac])
}

type fakeReader struct {
	runs   map[string]domain.IngestRun
	counts []domain.DeveloperCount
}

func (f fakeReader) GetRun(_ context.Context, id string) (domain.IngestRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return domain.IngestRun{}, domain.ErrNotFound
	}
	return run, nil
}

func (f fakeReader) CountByDeveloper(context.Context) ([]domain.DeveloperCount, error) {
	return f.counts, nil
}

func TestVerifyMirror(t *testing.T) {
	mirror := &fakeMirror{}
	svc := app.NewIngestionService(memstore.New(), mirror, "", 2)
	rep, err := svc.Ingest(context.Background(), rows(t), app.IngestOptions{Input: "sheet.csv"})
	require.NoError(t, err)
	require.Len(t, mirror.runs, 1)

	r := fakeReader{
		runs: map[string]domain.IngestRun{rep.RunID: mirror.runs[0]},
		counts: []domain.DeveloperCount{
			{Developer: domain.DeveloperDamac, Count: 1},
			{Developer: domain.DeveloperEmaar, Count: 5},
		},
	}
	st, err := app.VerifyMirror(context.Background(), r, rep)
	require.NoError(t, err)
	assert.Empty(t, st.Mismatch)
	assert.Equal(t, rep.RunID, st.Run.ID)
	assert.Len(t, st.Counts, 2)

	// a mirror missing rows is reported, not fatal
	r.counts = []domain.DeveloperCount{{Developer: domain.DeveloperEmaar, Count: 2}}
	st, err = app.VerifyMirror(context.Background(), r, rep)
	require.NoError(t, err)
	assert.Equal(t, []string{"damac rows: wrote 1, mirror holds 0"}, st.Mismatch)

	_, err = app.VerifyMirror(context.Background(), fakeReader{}, rep)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
