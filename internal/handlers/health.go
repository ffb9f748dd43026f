package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/pangaea/internal/middleware"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage Pinger
	logger  *slog.Logger
}

func NewHealthHandler(storage Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	log.Debug("Health check requested", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		log.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, log, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "pangaea",
		Components: components,
	})
}
