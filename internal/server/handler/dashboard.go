package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

// Snapshotter produces a dashboard snapshot. It never fails.
type Snapshotter interface {
	Snapshot(ctx context.Context) domain.Snapshot
}

// DashboardHandler serves the aggregated dashboard payload.
type DashboardHandler struct {
	agg    Snapshotter
	logger *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(agg Snapshotter, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{agg: agg, logger: logHandler(logger, "dashboard")}
}

// GetDashboard runs all providers and returns the combined snapshot. Provider
// failures appear as error markers inside a 200 response. Query parameters,
// including city, are ignored: the weather location is fixed by config.
// GET /dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if city := r.URL.Query().Get("city"); city != "" {
		h.logger.DebugContext(r.Context(), "ignoring city query parameter", slog.String("city", city))
	}
	writeJSON(w, http.StatusOK, h.agg.Snapshot(r.Context()))
}

// NotFound answers unknown routes with a JSON 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
