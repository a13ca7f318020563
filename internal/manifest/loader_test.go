package manifest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"routemap/internal/domain"
	"routemap/internal/transport"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	body := `{"routes": [
		{"relationId": "123", "type": "ways_with_points", "color": "#e11d48", "name": "Koridor 1"},
		{"relationId": "456", "type": "ways_only", "color": "#2563eb", "name": "Koridor 2"}
	]}`
	if err := os.WriteFile(filepath.Join(dir, "routes.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	base, err := transport.BaseURL(dir)
	if err != nil {
		t.Fatal(err)
	}

	m, err := NewLoader(transport.Join(base, "routes.json"), transport.NewClient(5*time.Second)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(m.Routes) != 2 {
		t.Fatalf("got %d routes, want 2", len(m.Routes))
	}
	r, ok := m.Find("456")
	if !ok || r.DisplayType != domain.DisplayWaysOnly || r.Name != "Koridor 2" {
		t.Errorf("unexpected route %+v", r)
	}
}

func TestLoadRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "not found",
			status:  http.StatusNotFound,
			wantErr: "status code",
		},
		{
			name:    "malformed",
			status:  http.StatusOK,
			body:    `{"routes": [`,
			wantErr: "decoding",
		},
		{
			name:    "unknown display type",
			status:  http.StatusOK,
			body:    `{"routes": [{"relationId": "1", "type": "points_only", "color": "red", "name": "A"}]}`,
			wantErr: "invalid manifest",
		},
		{
			name:    "non numeric relation",
			status:  http.StatusOK,
			body:    `{"routes": [{"relationId": "r1", "type": "ways_only", "color": "red", "name": "A"}]}`,
			wantErr: "invalid manifest",
		},
		{
			name:    "fractional relation",
			status:  http.StatusOK,
			body:    `{"routes": [{"relationId": "1.5", "type": "ways_only", "color": "red", "name": "A"}]}`,
			wantErr: "invalid manifest",
		},
		{
			name:    "negative relation",
			status:  http.StatusOK,
			body:    `{"routes": [{"relationId": "-3", "type": "ways_only", "color": "red", "name": "A"}]}`,
			wantErr: "invalid manifest",
		},
		{
			name:    "zero relation",
			status:  http.StatusOK,
			body:    `{"routes": [{"relationId": "0", "type": "ways_only", "color": "red", "name": "A"}]}`,
			wantErr: "invalid manifest",
		},
		{
			name:    "missing color",
			status:  http.StatusOK,
			body:    `{"routes": [{"relationId": "1", "type": "ways_only", "name": "A"}]}`,
			wantErr: "invalid manifest",
		},
		{
			name:   "duplicate relation",
			status: http.StatusOK,
			body: `{"routes": [
				{"relationId": "1", "type": "ways_only", "color": "red", "name": "A"},
				{"relationId": "1", "type": "ways_only", "color": "blue", "name": "B"}]}`,
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewLoader(srv.URL, srv.Client()).Load(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"routes": [{"relationId": "1", "type": "ways_only", "color": "red", "name": "A"}]}`))
	}))
	defer srv.Close()

	c := NewCatalog(NewLoader(srv.URL, srv.Client()), slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("first load should fail")
	}
	if c.IsReady() || len(c.Manifest().Routes) != 0 {
		t.Error("failed load should leave an empty, unready catalog")
	}

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !c.IsReady() || len(c.Manifest().Routes) != 1 || c.LoadedAt().IsZero() {
		t.Error("catalog should be ready with one route")
	}
}
