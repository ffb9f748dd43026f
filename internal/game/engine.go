package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/internal/services"
	"github.com/jwebster45206/pangaea/internal/services/events"
	"github.com/jwebster45206/pangaea/internal/storage"
	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/jwebster45206/pangaea/pkg/prompts"
	"github.com/jwebster45206/pangaea/pkg/state"
)

var (
	ErrSessionNotFound   = errors.New("game session not found")
	ErrSessionBusy       = errors.New("game session is busy")
	ErrSessionSuperseded = errors.New("game session changed while waiting for narration")
	ErrUnknownMission    = errors.New("unknown mission")
	ErrUnknownNPC        = errors.New("unknown npc")
	ErrInvalidCharacter  = errors.New("invalid character")
	ErrInvalidMessage    = errors.New("invalid message")
)

const DefaultNarrationTimeout = 30 * time.Second

// Config holds the engine's collaborators. Zero values get defaults.
type Config struct {
	Narrator  services.Narrator
	Store     *storage.GameStore
	Locker    *storage.Locker
	Publisher events.Publisher
	Catalog   mission.Catalog
	Roster    actor.Roster
	Rand      mission.Rand
	Logger    *slog.Logger

	NarrationTimeout time.Duration
	Temperature      float64
	MaxTokens        int
}

// Engine runs the game operations for every session. All mutations happen
// under the session lock and go through the pure functions in pkg/state.
type Engine struct {
	narrator    services.Narrator
	store       *storage.GameStore
	locker      *storage.Locker
	publisher   events.Publisher
	resolver    *Resolver
	catalog     mission.Catalog
	roster      actor.Roster
	rng         mission.Rand
	timeout     time.Duration
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewEngine creates an engine. Narrator, Store and Locker are required.
func NewEngine(cfg Config) *Engine {
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Catalog == nil {
		cfg.Catalog = mission.DefaultCatalog()
	}
	if cfg.Roster == nil {
		cfg.Roster = actor.DefaultRoster()
	}
	if cfg.Rand == nil {
		cfg.Rand = globalRand{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NarrationTimeout <= 0 {
		cfg.NarrationTimeout = DefaultNarrationTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = services.DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = services.DefaultMaxTokens
	}

	return &Engine{
		narrator:    cfg.Narrator,
		store:       cfg.Store,
		locker:      cfg.Locker,
		publisher:   cfg.Publisher,
		resolver:    NewResolver(cfg.Narrator, cfg.Rand, cfg.NarrationTimeout, cfg.Temperature, cfg.MaxTokens, cfg.Logger),
		catalog:     cfg.Catalog,
		roster:      cfg.Roster,
		rng:         cfg.Rand,
		timeout:     cfg.NarrationTimeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Catalog returns the missions the engine can run.
func (e *Engine) Catalog() mission.Catalog {
	return e.catalog
}

// Start creates a game for pc, or returns the saved one when the session
// already holds a game for a character with the same name. A uuid.Nil
// session gets a fresh id.
func (e *Engine) Start(ctx context.Context, sessionID uuid.UUID, pc actor.PlayerCharacter) (*state.GameState, error) {
	if err := pc.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	release, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	saved, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	if saved != nil && saved.PlayerCharacter.Name == pc.Name {
		e.logger.Info("Resuming saved game", "game_id", sessionID.String(), "day", saved.Day)
		return saved, nil
	}

	gs := state.NewGameStateWithRoster(pc, e.roster)
	gs.ID = sessionID
	if err := e.save(ctx, gs); err != nil {
		return nil, err
	}

	e.logger.Info("New game created", "game_id", sessionID.String(), "character", pc.Name, "replaced", saved != nil)
	e.publish(ctx, sessionID, events.EventTypeStateReset, map[string]any{
		"day":          gs.Day,
		"character":    pc.Name,
		"moraleStatus": gs.MoraleStatus,
	})
	return gs, nil
}

// Get returns the saved game for the session.
func (e *Engine) Get(ctx context.Context, sessionID uuid.UUID) (*state.GameState, error) {
	gs, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	if gs == nil {
		return nil, ErrSessionNotFound
	}
	return gs, nil
}

// Delete removes the session's game.
func (e *Engine) Delete(ctx context.Context, sessionID uuid.UUID) error {
	release, err := e.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	gs, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load game state: %w", err)
	}
	if gs == nil {
		return ErrSessionNotFound
	}
	if err := e.store.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete game state: %w", err)
	}
	e.publish(ctx, sessionID, events.EventTypeStateReset, map[string]any{"deleted": true})
	return nil
}

// change is a new state plus the event announcing it.
type change struct {
	state *state.GameState
	event events.EventType
	data  map[string]any
}

// UpdateResources replaces the stock counters present in delta.
func (e *Engine) UpdateResources(ctx context.Context, sessionID uuid.UUID, delta state.ResourceDelta) (*state.GameState, error) {
	return e.mutate(ctx, sessionID, func(gs *state.GameState) (change, error) {
		next := state.ApplyResourceDelta(gs, delta)
		return change{next, events.EventTypeResourcesUpdated, map[string]any{
			"resources":    next.Resources,
			"moraleStatus": next.MoraleStatus,
		}}, nil
	})
}

// UpdateRelationship moves one NPC's affinity by delta.
func (e *Engine) UpdateRelationship(ctx context.Context, sessionID uuid.UUID, npcID string, delta int, interaction string) (*state.GameState, error) {
	return e.mutate(ctx, sessionID, func(gs *state.GameState) (change, error) {
		if !gs.HasRelationship(npcID) {
			return change{}, fmt.Errorf("%w: %s", ErrUnknownNPC, npcID)
		}
		next := state.ApplyAffinityChange(gs, npcID, delta, interaction)
		rel, _ := next.Relationship(npcID)
		return change{next, events.EventTypeRelationshipUpdated, map[string]any{
			"relationship": rel,
			"moraleStatus": next.MoraleStatus,
		}}, nil
	})
}

// AdvanceDay moves the session to the next day, asking the narrator for the
// day's event. Narration failures still advance the day.
func (e *Engine) AdvanceDay(ctx context.Context, sessionID uuid.UUID) (*state.GameState, error) {
	return e.mutateWithNarration(ctx, sessionID, func(gs *state.GameState) change {
		next := e.Advance(ctx, gs)
		data := map[string]any{"day": next.Day, "moraleStatus": next.MoraleStatus}
		if len(next.Events) > len(gs.Events) {
			data["event"] = next.Events[len(next.Events)-1]
		}
		return change{next, events.EventTypeDayAdvanced, data}
	})
}

// Advance is the day transition without persistence. It makes exactly one
// narration request and never fails.
func (e *Engine) Advance(ctx context.Context, gs *state.GameState) *state.GameState {
	callCtx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.narrator.Complete(callCtx, services.NarrationRequest{
		Messages:    prompts.DailyEventMessages(gs),
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		e.logger.Warn("Daily event narration failed, advancing without event",
			"game_id", gs.ID.String(), "day", gs.Day+1, "error", err)
		return state.AdvanceDay(gs, nil)
	}

	return state.AdvanceDay(gs, &state.GameEvent{
		Description: text,
		Type:        state.EventRandom,
	})
}

// mutate runs fn on the saved state under the session lock, persists the
// result and then publishes its event.
func (e *Engine) mutate(ctx context.Context, sessionID uuid.UUID, fn func(*state.GameState) (change, error)) (*state.GameState, error) {
	release, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	gs, err := e.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c, err := fn(gs)
	if err != nil {
		return nil, err
	}
	return e.commit(ctx, sessionID, c)
}

// mutateWithNarration is mutate for operations that wait on the narrator.
// The stored record is re-read afterwards; if it changed in the meantime the
// result is dropped.
func (e *Engine) mutateWithNarration(ctx context.Context, sessionID uuid.UUID, fn func(*state.GameState) change) (*state.GameState, error) {
	release, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	gs, err := e.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c := fn(gs)

	current, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload game state: %w", err)
	}
	if !sameRecord(gs, current) {
		e.logger.Warn("Discarding stale narration result", "game_id", sessionID.String())
		return nil, ErrSessionSuperseded
	}
	return e.commit(ctx, sessionID, c)
}

func (e *Engine) commit(ctx context.Context, sessionID uuid.UUID, c change) (*state.GameState, error) {
	if err := e.save(ctx, c.state); err != nil {
		return nil, err
	}
	e.publish(ctx, sessionID, c.event, c.data)
	return c.state, nil
}

// publish never fails the operation.
func (e *Engine) publish(ctx context.Context, sessionID uuid.UUID, eventType events.EventType, data map[string]any) {
	if err := e.publisher.Publish(ctx, sessionID, eventType, data); err != nil {
		e.logger.Warn("Failed to publish game event", "game_id", sessionID.String(), "event_type", eventType, "error", err)
	}
}

// save persists gs. A state that fails validation is logged and kept in
// memory; only backend errors are returned.
func (e *Engine) save(ctx context.Context, gs *state.GameState) error {
	err := e.store.Save(ctx, gs)
	if errors.Is(err, storage.ErrInvalidGameState) {
		e.logger.Error("Refusing to persist invalid game state", "game_id", gs.ID.String(), "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}
	return nil
}

func (e *Engine) lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	release, err := e.locker.Acquire(ctx, sessionID.String())
	if errors.Is(err, storage.ErrLockHeld) {
		return nil, ErrSessionBusy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	return release, nil
}

func sameRecord(a, b *state.GameState) bool {
	if a == nil || b == nil {
		return a == b
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
