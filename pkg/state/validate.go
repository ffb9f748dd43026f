package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/pkg/actor"
)

// ErrInvalidGameState wraps every structural validation failure.
var ErrInvalidGameState = errors.New("invalid game state")

// persistedResources uses pointers so a missing counter can be told apart from zero.
type persistedResources struct {
	Water     *int `json:"water"`
	Food      *int `json:"food"`
	Medicine  *int `json:"medicine"`
	Materials *int `json:"materials"`
}

type persistedCharacter struct {
	Name      *string     `json:"name"`
	Avatar    string      `json:"avatar"`
	Backstory string      `json:"backstory"`
	Traits    []string    `json:"traits"`
	Stats     actor.Stats `json:"stats"`
}

// persistedState mirrors GameState for decoding stored records.
// Required fields are pointers so absence and null can be detected.
type persistedState struct {
	ID                uuid.UUID           `json:"id"`
	Day               *int                `json:"day"`
	Resources         *persistedResources `json:"resources"`
	PlayerCharacter   *persistedCharacter `json:"playerCharacter"`
	Relationships     *[]Relationship     `json:"relationships"`
	CompletedMissions *[]string           `json:"completedMissions"`
	Events            *[]GameEvent        `json:"events"`
	MoraleStatus      MoraleStatus        `json:"moraleStatus"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGameState, fmt.Sprintf(format, args...))
}

// ParseGameState decodes and validates a stored record. Any structural
// problem is reported as ErrInvalidGameState.
func ParseGameState(data []byte) (*GameState, error) {
	var p persistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGameState, err)
	}

	if p.Day == nil {
		return nil, invalid("day is missing")
	}
	if *p.Day < 1 {
		return nil, invalid("day must be at least 1, got %d", *p.Day)
	}

	if p.Resources == nil {
		return nil, invalid("resources are missing")
	}
	counters := []struct {
		name  string
		value *int
	}{
		{"water", p.Resources.Water},
		{"food", p.Resources.Food},
		{"medicine", p.Resources.Medicine},
		{"materials", p.Resources.Materials},
	}
	for _, c := range counters {
		if c.value == nil {
			return nil, invalid("resource %s is missing", c.name)
		}
		if *c.value < 0 {
			return nil, invalid("resource %s is negative", c.name)
		}
	}

	if p.PlayerCharacter == nil || p.PlayerCharacter.Name == nil {
		return nil, invalid("player character name is missing")
	}
	if p.Relationships == nil {
		return nil, invalid("relationships are missing")
	}
	if p.CompletedMissions == nil {
		return nil, invalid("completedMissions is missing")
	}
	if p.Events == nil {
		return nil, invalid("events are missing")
	}
	if !p.MoraleStatus.Valid() {
		return nil, invalid("unknown morale status %q", p.MoraleStatus)
	}

	return &GameState{
		ID:  p.ID,
		Day: *p.Day,
		Resources: Resources{
			Water:     *p.Resources.Water,
			Food:      *p.Resources.Food,
			Medicine:  *p.Resources.Medicine,
			Materials: *p.Resources.Materials,
		},
		PlayerCharacter: actor.PlayerCharacter{
			Name:      *p.PlayerCharacter.Name,
			Avatar:    p.PlayerCharacter.Avatar,
			Backstory: p.PlayerCharacter.Backstory,
			Traits:    p.PlayerCharacter.Traits,
			Stats:     p.PlayerCharacter.Stats,
		},
		Relationships:     *p.Relationships,
		CompletedMissions: *p.CompletedMissions,
		Events:            *p.Events,
		MoraleStatus:      p.MoraleStatus,
	}, nil
}

// Validate applies the load-time rules to an in-memory state, so a state
// that would be rejected on load is never written.
func Validate(gs *GameState) error {
	if gs == nil {
		return invalid("state is nil")
	}
	data, err := json.Marshal(gs.Clone())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGameState, err)
	}
	_, err = ParseGameState(data)
	return err
}
