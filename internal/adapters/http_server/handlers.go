// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"imperium_gate/internal/app"
	"imperium_gate/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/developers", h.listDevelopers)
	s.mux.Get("/v1/projects", h.listProjects)
	s.mux.Get("/v1/projects/near", h.nearby)
	s.mux.Get("/v1/projects/{developer}", h.developerProjects)
	s.mux.Get("/v1/projects/{developer}/manifest", h.manifest)
	s.mux.Get("/v1/projects/{developer}/{slug}", h.getProject)
}

func selectLocale(al string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(al)), "ar") {
		return "ar"
	}
	return "en"
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers 304 when the client already holds this version.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "response could not be encoded")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// developerParam validates the {developer} path segment.
func developerParam(w http.ResponseWriter, r *http.Request) (domain.Developer, bool) {
	dev := domain.Developer(strings.ToLower(chi.URLParam(r, "developer")))
	if !dev.Valid() {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown developer")
		return "", false
	}
	return dev, true
}

func (h *Handlers) listDevelopers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.Q.ListDevelopers(r.Context()))
}

func (h *Handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	if d := r.URL.Query().Get("developer"); d != "" {
		dev := domain.Developer(strings.ToLower(d))
		if !dev.Valid() {
			writeProblem(w, http.StatusBadRequest, "Invalid developer", "developer must be one of emaar, damac, nakheel, sobha")
			return
		}
		writeJSON(w, r, h.Q.GetProjectsByDeveloper(r.Context(), dev))
		return
	}
	writeJSON(w, r, h.Q.LoadAllProjects(r.Context()))
}

func (h *Handlers) developerProjects(w http.ResponseWriter, r *http.Request) {
	dev, ok := developerParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, h.Q.GetProjectsByDeveloper(r.Context(), dev))
}

func (h *Handlers) manifest(w http.ResponseWriter, r *http.Request) {
	dev, ok := developerParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, h.Q.Manifest(r.Context(), dev))
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	dev, ok := developerParam(w, r)
	if !ok {
		return
	}
	locale := strings.ToLower(r.URL.Query().Get("locale"))
	if locale != "en" && locale != "ar" {
		locale = selectLocale(r.Header.Get("Accept-Language"))
	}

	resp, err := h.Q.GetProjectView(r.Context(), dev, chi.URLParam(r, "slug"), locale)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "project not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("project lookup failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("Content-Language", resp.Locale)
	writeJSON(w, r, resp)
}

func (h *Handlers) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeProblem(w, http.StatusBadRequest, "Invalid coordinates", "lat and lon must be decimal degrees")
		return
	}
	precision := 5
	if ps := q.Get("precision"); ps != "" {
		p, err := strconv.Atoi(ps)
		if err != nil || p < 1 || p > 9 {
			writeProblem(w, http.StatusBadRequest, "Invalid precision", "precision must be an integer between 1 and 9")
			return
		}
		precision = p
	}
	writeJSON(w, r, h.Q.Nearby(r.Context(), lat, lon, uint(precision)))
}
