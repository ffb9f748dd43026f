package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/internal/game"
	"github.com/jwebster45206/pangaea/internal/logger"
	"github.com/jwebster45206/pangaea/internal/middleware"
	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/state"
)

// StartGameRequest creates a game, or resumes the session's saved one when
// the character name matches.
type StartGameRequest struct {
	SessionID string                `json:"sessionId,omitempty"` // Optional: new id when empty
	Character actor.PlayerCharacter `json:"character"`
}

// RelationshipRequest moves one NPC's affinity.
type RelationshipRequest struct {
	Delta       int    `json:"delta"`
	Interaction string `json:"interaction"`
}

type GameStateHandler struct {
	engine *game.Engine
	logger *slog.Logger
}

func NewGameStateHandler(engine *game.Engine, logger *slog.Logger) *GameStateHandler {
	return &GameStateHandler{
		engine: engine,
		logger: logger,
	}
}

// ServeHTTP handles HTTP requests for game state operations
// Routes:
// POST   /v1/gamestate                                 - Start or resume a game
// GET    /v1/gamestate/{id}                            - Read game state
// DELETE /v1/gamestate/{id}                            - Delete game state
// POST   /v1/gamestate/{id}/day                        - Advance to the next day
// PATCH  /v1/gamestate/{id}/resources                  - Replace resource counters
// POST   /v1/gamestate/{id}/relationships/{npcId}      - Change NPC affinity
// POST   /v1/gamestate/{id}/missions/{missionId}       - Execute a mission
// POST   /v1/gamestate/{id}/npcs/{npcId}/chat          - Talk to an NPC
func (h *GameStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/gamestate"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, log, r, "POST")
			return
		}
		h.handleStart(w, r, log)
		return
	}

	parts := strings.Split(path, "/")
	gameStateID, err := uuid.Parse(parts[0])
	if err != nil {
		log.Warn("Invalid game state ID", "id", parts[0], "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid game state ID format")
		return
	}
	log = logger.WithSession(log, gameStateID.String())

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, log, gameStateID)
		case http.MethodDelete:
			h.handleDelete(w, r, log, gameStateID)
		default:
			methodNotAllowed(w, log, r, "GET, DELETE")
		}

	case len(parts) == 2 && parts[1] == "day":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, log, r, "POST")
			return
		}
		h.handleAdvanceDay(w, r, log, gameStateID)

	case len(parts) == 2 && parts[1] == "resources":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, log, r, "PATCH")
			return
		}
		h.handleResources(w, r, log, gameStateID)

	case len(parts) == 3 && parts[1] == "relationships":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, log, r, "POST")
			return
		}
		h.handleRelationship(w, r, log, gameStateID, parts[2])

	case len(parts) == 3 && parts[1] == "missions":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, log, r, "POST")
			return
		}
		h.handleMission(w, r, log, gameStateID, parts[2])

	case len(parts) == 4 && parts[1] == "npcs" && parts[3] == "chat":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, log, r, "POST")
			return
		}
		h.handleChat(w, r, log, gameStateID, parts[2])

	default:
		writeError(w, log, http.StatusNotFound, "Not found")
	}
}

func (h *GameStateHandler) handleStart(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	var req StartGameRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Warn("Invalid JSON in request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, log, http.StatusBadRequest, "Invalid sessionId format")
			return
		}
		sessionID = id
	}

	gs, err := h.engine.Start(r.Context(), sessionID, req.Character)
	if err != nil {
		writeEngineError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, gs)
}

func (h *GameStateHandler) handleRead(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	gs, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, gs)
}

func (h *GameStateHandler) handleDelete(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	if err := h.engine.Delete(r.Context(), id); err != nil {
		writeEngineError(w, log, err)
		return
	}
	log.Info("Game state deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameStateHandler) handleAdvanceDay(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	gs, err := h.engine.AdvanceDay(r.Context(), id)
	if err != nil {
		writeEngineError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, gs)
}

func (h *GameStateHandler) handleResources(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID) {
	var delta state.ResourceDelta
	if err := decodeBody(w, r, &delta); err != nil {
		log.Warn("Invalid JSON in request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if delta.IsEmpty() {
		writeError(w, log, http.StatusBadRequest, "At least one of water, food, medicine, materials is required")
		return
	}

	gs, err := h.engine.UpdateResources(r.Context(), id, delta)
	if err != nil {
		writeEngineError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, gs)
}

func (h *GameStateHandler) handleRelationship(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID, npcID string) {
	var req RelationshipRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Warn("Invalid JSON in request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	gs, err := h.engine.UpdateRelationship(r.Context(), id, npcID, req.Delta, strings.TrimSpace(req.Interaction))
	if err != nil {
		writeEngineError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, gs)
}

func (h *GameStateHandler) handleMission(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID, missionID string) {
	result, err := h.engine.ExecuteMission(r.Context(), id, missionID)
	if err != nil {
		writeEngineError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, result)
}

func (h *GameStateHandler) handleChat(w http.ResponseWriter, r *http.Request, log *slog.Logger, id uuid.UUID, npcID string) {
	var req chat.NPCChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Warn("Invalid JSON in request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	resp, err := h.engine.TalkToNPC(r.Context(), id, npcID, req.Message)
	if err != nil {
		writeEngineError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, resp)
}
