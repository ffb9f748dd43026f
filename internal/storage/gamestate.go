package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/pkg/state"
)

// ErrInvalidGameState is returned by Save for states that would not load back.
var ErrInvalidGameState = state.ErrInvalidGameState

const gameStatePrefix = "gamestate:"

func gameStateKey(id uuid.UUID) string {
	return gameStatePrefix + id.String()
}

// GameStore persists one GameState document per session.
type GameStore struct {
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

// NewGameStore stores states in kv. ttl of zero keeps them forever.
func NewGameStore(kv KV, ttl time.Duration, logger *slog.Logger) *GameStore {
	return &GameStore{kv: kv, ttl: ttl, logger: logger}
}

// Load returns the saved state for id, or nil if there is none.
// A record that is not valid JSON or fails validation is deleted and treated
// as absent.
func (s *GameStore) Load(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	key := gameStateKey(id)
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}

	gs, err := state.ParseGameState([]byte(data))
	if err != nil {
		s.logger.Warn("Discarding corrupted gamestate", "game_id", id.String(), "error", err)
		if delErr := s.kv.Del(ctx, key); delErr != nil {
			s.logger.Error("Failed to delete corrupted gamestate", "game_id", id.String(), "error", delErr)
		}
		return nil, nil
	}
	if gs.ID == uuid.Nil {
		gs.ID = id
	}
	return gs, nil
}

// Save validates and writes gs under its ID. An invalid state is not written
// and ErrInvalidGameState is returned.
func (s *GameStore) Save(ctx context.Context, gs *state.GameState) error {
	if gs == nil {
		return fmt.Errorf("%w: state is nil", ErrInvalidGameState)
	}
	if gs.ID == uuid.Nil {
		return fmt.Errorf("%w: state has no id", ErrInvalidGameState)
	}
	if err := state.Validate(gs); err != nil {
		s.logger.Error("Refusing to save invalid gamestate", "game_id", gs.ID.String(), "error", err)
		return err
	}

	data, err := json.Marshal(gs.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	if err := s.kv.Set(ctx, gameStateKey(gs.ID), string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

// Clear removes the saved state for id. Clearing a missing state is not an error.
func (s *GameStore) Clear(ctx context.Context, id uuid.UUID) error {
	if err := s.kv.Del(ctx, gameStateKey(id)); err != nil {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

// Ping checks the backing store.
func (s *GameStore) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}
