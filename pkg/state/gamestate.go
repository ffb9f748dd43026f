package state

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/pkg/actor"
)

// MoraleStatus summarises group well-being. It is always derived, never set by callers.
type MoraleStatus string

const (
	MoraleHigh     MoraleStatus = "high"
	MoraleNormal   MoraleStatus = "normal"
	MoraleLow      MoraleStatus = "low"
	MoraleCritical MoraleStatus = "critical"
)

// Valid reports whether m is one of the four known levels.
func (m MoraleStatus) Valid() bool {
	switch m {
	case MoraleHigh, MoraleNormal, MoraleLow, MoraleCritical:
		return true
	}
	return false
}

// EventType classifies entries in the event log.
type EventType string

const (
	EventMission  EventType = "mission"
	EventSocial   EventType = "social"
	EventRandom   EventType = "random"
	EventCritical EventType = "critical"
)

// Resources are the bunker's four stock counters. They are never negative.
type Resources struct {
	Water     int `json:"water"`
	Food      int `json:"food"`
	Medicine  int `json:"medicine"`
	Materials int `json:"materials"`
}

// Relationship tracks one NPC's disposition toward the player.
type Relationship struct {
	NPCID           string `json:"npcId"`
	NPCName         string `json:"npcName"`
	Affinity        int    `json:"affinity"` // 0-100
	Status          string `json:"status"`   // display label, derived from Affinity
	LastInteraction string `json:"lastInteraction"`
}

// GameEvent is one entry in the append-only event log.
type GameEvent struct {
	Day         int       `json:"day"`
	Description string    `json:"description"`
	Type        EventType `json:"type"`
}

// GameState is the single persisted root of a play session.
// Operations in this package never modify their input; they return a new copy.
type GameState struct {
	ID                uuid.UUID             `json:"id"` // Session ID, also the storage key
	Day               int                   `json:"day"`
	Resources         Resources             `json:"resources"`
	PlayerCharacter   actor.PlayerCharacter `json:"playerCharacter"`
	Relationships     []Relationship        `json:"relationships"`
	CompletedMissions []string              `json:"completedMissions"`
	Events            []GameEvent           `json:"events"`
	MoraleStatus      MoraleStatus          `json:"moraleStatus"`
}

// Starting stock for a new game.
var InitialResources = Resources{Water: 15, Food: 12, Medicine: 3, Materials: 8}

// NewGameState builds day one for a freshly created character, seeded with
// the default roster.
func NewGameState(pc actor.PlayerCharacter) *GameState {
	return NewGameStateWithRoster(pc, actor.DefaultRoster())
}

// NewGameStateWithRoster is NewGameState with an explicit NPC roster.
func NewGameStateWithRoster(pc actor.PlayerCharacter, roster actor.Roster) *GameState {
	relationships := make([]Relationship, 0, len(roster))
	for _, npc := range roster {
		relationships = append(relationships, Relationship{
			NPCID:           npc.ID,
			NPCName:         npc.Name,
			Affinity:        clampAffinity(npc.Affinity),
			Status:          DispositionLabel(npc.Affinity),
			LastInteraction: npc.FirstInteraction,
		})
	}

	gs := &GameState{
		ID:                uuid.New(),
		Day:               1,
		Resources:         InitialResources,
		PlayerCharacter:   pc.Clone(),
		Relationships:     relationships,
		CompletedMissions: make([]string, 0),
		Events:            make([]GameEvent, 0),
	}
	gs.MoraleStatus = ComputeMorale(gs.Resources, gs.Relationships)
	return gs
}

// Clone returns a deep copy. Nil slices come back empty so the copy always
// serialises with arrays rather than nulls.
func (gs *GameState) Clone() *GameState {
	out := *gs
	out.PlayerCharacter = gs.PlayerCharacter.Clone()

	out.Relationships = make([]Relationship, len(gs.Relationships))
	copy(out.Relationships, gs.Relationships)

	out.CompletedMissions = make([]string, len(gs.CompletedMissions))
	copy(out.CompletedMissions, gs.CompletedMissions)

	out.Events = make([]GameEvent, len(gs.Events))
	copy(out.Events, gs.Events)

	return &out
}

// Relationship returns the entry for npcID.
func (gs *GameState) Relationship(npcID string) (Relationship, bool) {
	for _, rel := range gs.Relationships {
		if rel.NPCID == npcID {
			return rel, true
		}
	}
	return Relationship{}, false
}

// HasRelationship reports whether npcID is on the roster.
func (gs *GameState) HasRelationship(npcID string) bool {
	_, ok := gs.Relationship(npcID)
	return ok
}

// HasCompletedMission reports whether missionID was ever completed.
func (gs *GameState) HasCompletedMission(missionID string) bool {
	for _, id := range gs.CompletedMissions {
		if id == missionID {
			return true
		}
	}
	return false
}

// PromptEventLimit bounds how much of the event log is sent to the narrator.
const PromptEventLimit = 5

// GetStateForPrompt renders the state as JSON context for narration, keeping
// only the most recent events.
func (gs *GameState) GetStateForPrompt() []byte {
	view := gs.Clone()
	if len(view.Events) > PromptEventLimit {
		view.Events = view.Events[len(view.Events)-PromptEventLimit:]
	}
	data, _ := json.Marshal(view)
	return data
}

// GetRelationshipsForPrompt renders the roster as JSON context for narration.
func (gs *GameState) GetRelationshipsForPrompt() []byte {
	rels := gs.Relationships
	if rels == nil {
		rels = []Relationship{}
	}
	data, _ := json.Marshal(rels)
	return data
}
