package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeStateReset          EventType = "state.reset"
	EventTypeDayAdvanced         EventType = "day.advanced"
	EventTypeResourcesUpdated    EventType = "resources.updated"
	EventTypeRelationshipUpdated EventType = "relationship.updated"
	EventTypeMissionCompleted    EventType = "mission.completed"
)

// Event is the payload published for every persisted mutation.
type Event struct {
	Type   EventType      `json:"type"`
	GameID string         `json:"gameId"`
	Data   map[string]any `json:"data,omitempty"`
}

// Publisher sends game events to listeners.
type Publisher interface {
	Publish(ctx context.Context, gameID uuid.UUID, eventType EventType, data map[string]any) error
}

// Channel returns the pub/sub channel for one session.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish marshals the event and sends it to the game's channel.
func (b *Broadcaster) Publish(ctx context.Context, gameID uuid.UUID, eventType EventType, data map[string]any) error {
	channel := Channel(gameID)
	event := Event{
		Type:   eventType,
		GameID: gameID.String(),
		Data:   data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", eventType)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", eventType)
	return nil
}

// Subscribe opens a subscription on the game's channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(gameID))
}

// NopPublisher drops every event. Used when storage is not Redis.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uuid.UUID, EventType, map[string]any) error {
	return nil
}

// Decode parses a payload received on a game channel.
func Decode(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
