package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/pangaea/internal/middleware"
	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/mission"
)

type MissionsResponse struct {
	Missions mission.Catalog `json:"missions"`
}

type TraitsResponse struct {
	Traits    []string `json:"traits"`
	MaxTraits int      `json:"maxTraits"`
}

// MissionsHandler lists the missions the player can send out.
// GET /v1/missions
type MissionsHandler struct {
	catalog mission.Catalog
	logger  *slog.Logger
}

func NewMissionsHandler(catalog mission.Catalog, logger *slog.Logger) *MissionsHandler {
	return &MissionsHandler{catalog: catalog, logger: logger}
}

func (h *MissionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	if r.Method != http.MethodGet {
		methodNotAllowed(w, log, r, "GET")
		return
	}
	writeJSON(w, log, http.StatusOK, MissionsResponse{Missions: h.catalog})
}

// TraitsHandler lists the traits offered at character creation.
// GET /v1/traits
type TraitsHandler struct {
	logger *slog.Logger
}

func NewTraitsHandler(logger *slog.Logger) *TraitsHandler {
	return &TraitsHandler{logger: logger}
}

func (h *TraitsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)
	if r.Method != http.MethodGet {
		methodNotAllowed(w, log, r, "GET")
		return
	}
	writeJSON(w, log, http.StatusOK, TraitsResponse{Traits: actor.TraitCatalog, MaxTraits: actor.MaxTraits})
}
