package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is anything whose reachability the health check reports.
// *sqlite.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers load balancer and uptime checks.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HandleHealth reports healthy when the database answers within a second.
//
// HTTP: GET /, GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Service: "PhotoLog API"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: "PhotoLog API"})
}
