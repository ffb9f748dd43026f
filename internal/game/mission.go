package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/internal/services/events"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/jwebster45206/pangaea/pkg/state"
)

// MissionResult is the outcome of one mission and the state it produced.
// On success Outcome.Rewards holds the gains actually applied.
type MissionResult struct {
	MissionID string           `json:"missionId"`
	Outcome   mission.Outcome  `json:"outcome"`
	State     *state.GameState `json:"gameState"`
}

// ExecuteMission resolves a catalog mission for the session. Success adds
// the rewards (or the fallback rewards when the narrator gave none) and
// marks the mission completed. Either way a mission event is logged.
func (e *Engine) ExecuteMission(ctx context.Context, sessionID uuid.UUID, missionID string) (*MissionResult, error) {
	m, ok := e.catalog.Find(missionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMission, missionID)
	}

	var outcome mission.Outcome
	gs, err := e.mutateWithNarration(ctx, sessionID, func(gs *state.GameState) change {
		outcome = e.resolver.ResolveMission(ctx, m.Context(), gs.PlayerCharacter.PromptStats(), string(m.Difficulty))
		next := applyOutcome(gs, m, &outcome, e.rng)
		return change{next, events.EventTypeMissionCompleted, map[string]any{
			"missionId":    m.ID,
			"outcome":      outcome,
			"resources":    next.Resources,
			"moraleStatus": next.MoraleStatus,
		}}
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Mission resolved", "game_id", sessionID.String(), "mission_id", m.ID, "success", outcome.Success)
	return &MissionResult{MissionID: m.ID, Outcome: outcome, State: gs}, nil
}

// applyOutcome folds a resolved outcome into gs. Successful outcomes without
// rewards draw the fallback rewards, which are written back to the outcome.
func applyOutcome(gs *state.GameState, m mission.Mission, outcome *mission.Outcome, rng mission.Rand) *state.GameState {
	next := gs
	if outcome.Success {
		gains := mission.FallbackRewards(rng)
		if outcome.Rewards != nil {
			gains = *outcome.Rewards
		}
		outcome.Rewards = &gains
		next = state.CompleteMission(gs, m.ID, gains)
	} else {
		outcome.Rewards = nil
	}
	return state.AppendEvent(next, state.EventMission, missionEventText(m, *outcome))
}

// Example output:
// Explorar Praia Norte: O grupo voltou com destroços úteis. Consequência: Um ferido leve.
func missionEventText(m mission.Mission, outcome mission.Outcome) string {
	text := m.Title + ": " + outcome.Description
	if outcome.Consequences != "" {
		text += " Consequência: " + outcome.Consequences
	}
	return text
}
