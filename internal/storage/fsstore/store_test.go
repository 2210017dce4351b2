package fsstore_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imperium_gate/internal/domain"
	"imperium_gate/internal/storage/fsstore"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWriteReadAndList(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	st := fsstore.New(root)

	p := domain.Project{Slug: "creek-vista", Developer: domain.DeveloperEmaar, ProjectName: domain.Text("Creek Vista")}
	require.NoError(t, st.Write(ctx, domain.DeveloperEmaar, "creek-vista", p))
	require.NoError(t, st.WriteManifest(ctx, domain.DeveloperEmaar, nil))

	ok, err := st.Exists(ctx, domain.DeveloperEmaar, "creek-vista")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.Exists(ctx, domain.DeveloperEmaar, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	slugs, err := st.List(ctx, domain.DeveloperEmaar)
	require.NoError(t, err)
	assert.Equal(t, []string{"creek-vista"}, slugs, "manifest must not be listed")

	rec, err := st.Read(ctx, domain.DeveloperEmaar, "creek-vista")
	require.NoError(t, err)
	assert.Equal(t, "Creek Vista", rec.Fields["projectName"])
	assert.Equal(t, domain.SourceLegacyFile, rec.Source)

	_, err = st.Read(ctx, domain.DeveloperEmaar, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	items, err := st.ReadManifest(ctx, domain.DeveloperEmaar)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = st.ReadManifest(ctx, domain.DeveloperDamac)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// absent developer directory lists nothing
	slugs, err = st.List(ctx, domain.DeveloperSobha)
	require.NoError(t, err)
	assert.Empty(t, slugs)
}

func TestRecords_NestedLayouts(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "emaar", "flat.json"), `{"projectName":"Flat"}`)
	writeFile(t, filepath.Join(root, "emaar", "projectManifest.json"), `[]`)
	writeFile(t, filepath.Join(root, "emaar", "grove", "grove.json"), `{"projectName":"Grove"}`)
	writeFile(t, filepath.Join(root, "emaar", "grove", "extra.json"), `{"projectName":"Ignored"}`)
	writeFile(t, filepath.Join(root, "emaar", "bay", "a.json"), `[{"projectName":"A1"},{"projectName":"A2"}]`)
	writeFile(t, filepath.Join(root, "emaar", "bay", "broken.json"), `{nope`)
	writeFile(t, filepath.Join(root, "emaar", "_chunks", "x.json"), `{"projectName":"Chunk"}`)

	recs, err := fsstore.New(root).Records(ctx, domain.DeveloperEmaar)
	require.NoError(t, err)

	var names []string
	for _, r := range recs {
		names = append(names, r.Fields["projectName"].(string))
	}
	sort.Strings(names)
	assert.Equal(t, []string{"A1", "A2", "Flat", "Grove"}, names)
}

func TestConsolidatedAndDevelopers(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	st := fsstore.New(root)

	_, err := st.Consolidated(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, st.WriteConsolidated(ctx, []map[string]any{{"developer": "emaar", "slug": "a"}}))
	recs, err := st.Consolidated(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.SourceConsolidated, recs[0].Source)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "damac"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	devs, err := st.Developers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Developer{domain.DeveloperDamac}, devs)

	_, err = fsstore.New(filepath.Join(root, "absent")).Developers(ctx)
	assert.Error(t, err)
}

func TestNestedPromoteAndCleanup(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	st := fsstore.New(root)
	writeFile(t, filepath.Join(root, "sobha", "hartland", "hartland-ii.json"), `{"projectName":"Hartland II"}`)

	groups, err := st.NestedGroups(ctx, domain.DeveloperSobha)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "hartland", groups[0].Dir)
	assert.Equal(t, []string{"hartland-ii.json"}, groups[0].Files)

	doc, err := st.ReadNested(ctx, domain.DeveloperSobha, "hartland", "hartland-ii.json")
	require.NoError(t, err)
	require.NoError(t, st.Promote(ctx, domain.DeveloperSobha, "hartland", "hartland-ii.json", "hartland-ii", doc))

	removed, err := st.RemoveDirIfEmpty(ctx, domain.DeveloperSobha, "hartland")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = os.Stat(filepath.Join(root, "sobha", "hartland-ii.json"))
	assert.NoError(t, err)
}

func TestJSONFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"), `{}`)
	writeFile(t, filepath.Join(root, "emaar", "b.json"), `[]`)
	writeFile(t, filepath.Join(root, "emaar", "notes.md"), `#`)

	files, err := fsstore.JSONFiles(root)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = fsstore.JSONFiles(filepath.Join(root, "absent"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
