package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/pangaea/internal/game"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, message string) {
	writeJSON(w, log, status, ErrorResponse{Error: message})
}

// writeEngineError maps engine errors to status codes. Anything unexpected
// is logged and reported as a 500.
func writeEngineError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		writeError(w, log, http.StatusNotFound, "Game state not found")
	case errors.Is(err, game.ErrUnknownMission):
		writeError(w, log, http.StatusNotFound, "Mission not found")
	case errors.Is(err, game.ErrUnknownNPC):
		writeError(w, log, http.StatusNotFound, "NPC not found")
	case errors.Is(err, game.ErrSessionBusy):
		writeError(w, log, http.StatusConflict, "Game state is busy, try again")
	case errors.Is(err, game.ErrSessionSuperseded):
		writeError(w, log, http.StatusConflict, "Game state changed during the request")
	case errors.Is(err, game.ErrInvalidCharacter), errors.Is(err, game.ErrInvalidMessage):
		writeError(w, log, http.StatusBadRequest, err.Error())
	default:
		log.Error("Game operation failed", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter, log *slog.Logger, r *http.Request, allowed string) {
	log.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	writeError(w, log, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+allowed)
}

// maxBodyBytes caps JSON request bodies. The largest legitimate body is a
// character with a backstory.
const maxBodyBytes = 64 << 10

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
