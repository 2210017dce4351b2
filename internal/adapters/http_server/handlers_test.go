package httpserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "imperium_gate/internal/adapters/http_server"
	"imperium_gate/internal/app"
	"imperium_gate/internal/domain"
	"imperium_gate/internal/storage/memstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := memstore.New()
	st.Put(domain.DeveloperEmaar, "creek-vista", map[string]any{
		"projectName": map[string]any{"en": "Creek Vista", "ar": "كريك فيستا"},
		"city":        "Dubai",
		"latitude":    25.2,
		"longitude":   55.3,
	})
	st.Put(domain.DeveloperEmaar, "arabian-ranches", map[string]any{"projectName": "Arabian Ranches"})
	st.Put(domain.DeveloperDamac, "lagoons", map[string]any{"projectName": "Damac Lagoons"})

	q := app.NewQueryService(app.NewLoader(st), nil, time.Minute)
	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{Q: q})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	res := get(t, ts.URL+"/healthz", map[string]string{"Origin": "https://imperiumgate.ae"})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestDevelopers(t *testing.T) {
	ts := newTestServer(t)
	res := get(t, ts.URL+"/v1/developers", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got []domain.DeveloperCount
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, []domain.DeveloperCount{
		{Developer: domain.DeveloperDamac, Count: 1},
		{Developer: domain.DeveloperEmaar, Count: 2},
	}, got)
}

func TestProjects_FilterAndValidation(t *testing.T) {
	ts := newTestServer(t)

	res := get(t, ts.URL+"/v1/projects?developer=EMAAR", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	assert.Len(t, list, 2)

	res = get(t, ts.URL+"/v1/projects?developer=acme", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))

	res = get(t, ts.URL+"/v1/projects/nakheel", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	list = nil
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestProject_LocaleAndNotFound(t *testing.T) {
	ts := newTestServer(t)

	res := get(t, ts.URL+"/v1/projects/emaar/creek-vista", map[string]string{"Accept-Language": "ar-AE,ar;q=0.9"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ar", res.Header.Get("Content-Language"))
	var view app.ProjectView
	require.NoError(t, json.NewDecoder(res.Body).Decode(&view))
	assert.Equal(t, "كريك فيستا", view.Display.Name)

	// an explicit locale wins over the header
	res = get(t, ts.URL+"/v1/projects/emaar/creek-vista?locale=en", map[string]string{"Accept-Language": "ar"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "en", res.Header.Get("Content-Language"))

	res = get(t, ts.URL+"/v1/projects/emaar/missing", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))

	res = get(t, ts.URL+"/v1/projects/acme/creek-vista", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestProject_ETagRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	res := get(t, ts.URL+"/v1/projects/emaar/manifest", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)

	var m []domain.ManifestEntry
	require.NoError(t, json.NewDecoder(res.Body).Decode(&m))
	require.Len(t, m, 2)
	assert.Equal(t, "arabian-ranches", m[0].Slug)

	res = get(t, ts.URL+"/v1/projects/emaar/manifest", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, res.StatusCode)
	assert.Equal(t, etag, res.Header.Get("ETag"))
}

func TestNearby(t *testing.T) {
	ts := newTestServer(t)

	res := get(t, ts.URL+"/v1/projects/near?lat=25.2001&lon=55.3001&precision=6", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "creek-vista", list[0]["slug"])

	for _, q := range []string{"lat=x&lon=1", "lat=91&lon=0", "lat=1&lon=1&precision=12"} {
		res = get(t, ts.URL+"/v1/projects/near?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, q)
	}
}
