package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// ClientCounter reports the number of connected push clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	push      ClientCounter
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. push may be nil.
func NewHealthHandler(push ClientCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{push: push, startedAt: time.Now(), logger: logger}
}

// HealthCheck responds with process liveness and push channel occupancy.
// GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if h.push != nil {
		clients = h.push.ClientCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"push_clients":   clients,
	})
}
