package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"routemap/internal/domain"
	"routemap/internal/fetcher"
	"routemap/internal/manifest"
)

type Resolver interface {
	Resolve(ctx context.Context, relationID string, displayType domain.DisplayType, color string) (*domain.LayerBundle, error)
}

type RouteHandler struct {
	catalog  *manifest.Catalog
	resolver Resolver
	logger   *slog.Logger
}

func NewRouteHandler(catalog *manifest.Catalog, resolver Resolver, logger *slog.Logger) *RouteHandler {
	return &RouteHandler{
		catalog:  catalog,
		resolver: resolver,
		logger:   logger.With("component", "route_handler"),
	}
}

type RoutesResponse struct {
	Routes     []domain.Route `json:"routes"`
	Count      int            `json:"count"`
	ServerTime time.Time      `json:"serverTime"`
}

func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()

	routes := h.catalog.Manifest().Routes
	if routes == nil {
		routes = []domain.Route{}
	}

	respondJSON(w, http.StatusOK, RoutesResponse{
		Routes:     routes,
		Count:      len(routes),
		ServerTime: time.Now(),
	})
}

type LayerResponse struct {
	Route  domain.Route        `json:"route"`
	Layer  *domain.LayerBundle `json:"layer"`
	Bounds *[4]float64         `json:"bounds,omitempty"`
}

// GetRouteLayer resolves one route outside of any page session.
func (h *RouteHandler) GetRouteLayer(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()

	relationID := r.PathValue("relationId")
	if relationID == "" {
		respondError(w, http.StatusBadRequest, "missing relation id")
		return
	}

	route, ok := h.catalog.Manifest().Find(relationID)
	if !ok {
		respondError(w, http.StatusNotFound, "route not found")
		return
	}

	bundle, err := h.resolver.Resolve(r.Context(), route.RelationID, route.DisplayType, route.Color)
	if err != nil {
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			h.logger.Warn("route layer unavailable", "relation_id", relationID, "reason", fe.Reason)
			respondError(w, http.StatusBadGateway, fe.Reason)
			return
		}
		h.logger.Error("resolve failed", "relation_id", relationID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := LayerResponse{Route: route, Layer: bundle}
	if b, ok := bundle.Bound(); ok {
		resp.Bounds = &[4]float64{b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon()}
	}
	respondJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
