package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"routemap/internal/manifest"
)

type HealthHandler struct {
	catalog *manifest.Catalog
}

func NewHealthHandler(catalog *manifest.Catalog) *HealthHandler {
	return &HealthHandler{catalog: catalog}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready      bool       `json:"ready"`
	RouteCount int        `json:"routeCount"`
	LoadedAt   *time.Time `json:"loadedAt,omitempty"`
	ServerTime time.Time  `json:"serverTime"`
}

// Readyz reports ready once the route manifest has loaded.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ready := h.catalog.IsReady()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	resp := ReadyResponse{
		Ready:      ready,
		RouteCount: len(h.catalog.Manifest().Routes),
		ServerTime: time.Now(),
	}
	if ready {
		loadedAt := h.catalog.LoadedAt()
		resp.LoadedAt = &loadedAt
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
