package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"imperium_gate/internal/adapters/source"
	"imperium_gate/internal/domain"
)

func TestClient_Fetch_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte("Project,Brand\nCreek Vista,Emaar\n"))
		}
	}))
	defer ts.Close()

	cl := source.New(100) // high RPS for tests
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.Read(ctx, ts.URL+"/projects.csv")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "Project,Brand\nCreek Vista,Emaar\n" {
		t.Fatalf("unexpected body: %q", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Fetch_404IsMissingInput(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := source.New(100).Fetch(ctx, ts.URL)
	if !errors.Is(err, domain.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
}

func TestClient_Fetch_Forbidden(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := source.New(100).Fetch(context.Background(), ts.URL)
	if !errors.Is(err, source.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestClient_Fetch_OversizedBodyIsAnError(t *testing.T) {
	body := "Project,Brand\nCreek Vista,Emaar\nLagoons,DAMAC\n"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	// cut mid-row: a truncated body must not come back as data
	_, err := source.New(100).WithMaxBody(int64(len(body)-5)).Fetch(context.Background(), ts.URL)
	if !errors.Is(err, source.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	got, err := source.New(100).WithMaxBody(int64(len(body))).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("body at the cap: %v", err)
	}
	if got != body {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestClient_ReadLocal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "projects.csv")
	if err := os.WriteFile(p, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cl := source.New(0)

	got, err := cl.Read(context.Background(), p)
	if err != nil || got != "a,b\n" {
		t.Fatalf("unexpected read: %q %v", got, err)
	}
	if _, err := cl.Read(context.Background(), filepath.Join(dir, "missing.csv")); !errors.Is(err, domain.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
}

func TestIsRemote(t *testing.T) {
	for in, want := range map[string]bool{
		"https://x/p.csv":          true,
		"HTTP://x/p.csv":           true,
		"public/data/projects.csv": false,
		"ftp://x/p.csv":            false,
	} {
		if got := source.IsRemote(in); got != want {
			t.Fatalf("IsRemote(%q) = %v", in, got)
		}
	}
}
