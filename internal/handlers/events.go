package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/internal/middleware"
	"github.com/jwebster45206/pangaea/internal/services/events"
)

const defaultKeepalive = 30 * time.Second

// EventsHandler handles Server-Sent Events (SSE) for real-time game updates
type EventsHandler struct {
	broadcaster *events.Broadcaster
	keepalive   time.Duration
	logger      *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(broadcaster *events.Broadcaster, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		broadcaster: broadcaster,
		keepalive:   defaultKeepalive,
		logger:      logger,
	}
}

// ServeHTTP handles SSE requests for game events
// GET /v1/events/gamestate/{gameStateID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)

	if r.Method != http.MethodGet {
		methodNotAllowed(w, log, r, "GET")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "events" || pathParts[2] != "gamestate" {
		writeError(w, log, http.StatusBadRequest, "Invalid path. Expected /v1/events/gamestate/{gameStateID}")
		return
	}

	gameStateID, err := uuid.Parse(pathParts[3])
	if err != nil {
		writeError(w, log, http.StatusBadRequest, "Invalid game state ID format.")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, log, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	log.Info("SSE connection established", "game_id", gameStateID.String(), "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	pubsub := h.broadcaster.Subscribe(r.Context(), gameStateID)
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Error("Failed to close pubsub", "error", err)
		}
	}()
	// Wait for the subscription before telling the client it is connected.
	if _, err := pubsub.Receive(r.Context()); err != nil {
		log.Error("Failed to subscribe", "error", err)
		return
	}
	msgChan := pubsub.Channel()

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	h.sendSSE(w, flusher, log, "connected", map[string]any{
		"gameId":  gameStateID.String(),
		"message": "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected", "game_id", gameStateID.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			event, err := events.Decode(msg.Payload)
			if err != nil {
				log.Error("Failed to decode event", "error", err, "payload", msg.Payload)
				continue
			}
			h.sendSSE(w, flusher, log, string(event.Type), event.Data)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				log.Error("Failed to write keepalive", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, log *slog.Logger, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		log.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		log.Error("Failed to write event", "error", err)
		return
	}
	flusher.Flush()
}
