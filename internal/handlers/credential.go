package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/pangaea/internal/middleware"
	"github.com/jwebster45206/pangaea/internal/storage"
)

type CredentialStatusResponse struct {
	Configured bool `json:"configured"`
}

type SetCredentialRequest struct {
	APIKey string `json:"apiKey"`
}

// CredentialHandler manages the narration API key. The key itself is never
// returned.
// Routes:
// GET    /v1/credential - Whether a key is configured
// PUT    /v1/credential - Store a key
// DELETE /v1/credential - Remove the key
type CredentialHandler struct {
	store  *storage.CredentialStore
	logger *slog.Logger
}

func NewCredentialHandler(store *storage.CredentialStore, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{store: store, logger: logger}
}

func (h *CredentialHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)

	switch r.Method {
	case http.MethodGet:
		ok, err := h.store.Configured(r.Context())
		if err != nil {
			log.Error("Failed to read credential", "error", err)
			writeError(w, log, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, log, http.StatusOK, CredentialStatusResponse{Configured: ok})

	case http.MethodPut:
		var req SetCredentialRequest
		if err := decodeBody(w, r, &req); err != nil {
			log.Warn("Invalid JSON in request body", "error", err)
			writeError(w, log, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
		if strings.TrimSpace(req.APIKey) == "" {
			writeError(w, log, http.StatusBadRequest, "apiKey is required")
			return
		}
		if err := h.store.Set(r.Context(), req.APIKey); err != nil {
			log.Error("Failed to store credential", "error", err)
			writeError(w, log, http.StatusInternalServerError, "Internal server error")
			return
		}
		log.Info("Narration credential updated")
		writeJSON(w, log, http.StatusOK, CredentialStatusResponse{Configured: true})

	case http.MethodDelete:
		if err := h.store.Clear(r.Context()); err != nil {
			log.Error("Failed to clear credential", "error", err)
			writeError(w, log, http.StatusInternalServerError, "Internal server error")
			return
		}
		log.Info("Narration credential cleared")
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, log, r, "GET, PUT, DELETE")
	}
}
