package state

import (
	"encoding/json"
	"testing"

	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *GameState {
	t.Helper()
	pc, err := actor.NewPlayerCharacter("Alex", "", "Mecânica do navio.", []string{"Engenheiro"})
	require.NoError(t, err)
	return NewGameState(*pc)
}

func TestNewGameState(t *testing.T) {
	gs := newTestState(t)

	assert.Equal(t, 1, gs.Day)
	assert.Equal(t, Resources{Water: 15, Food: 12, Medicine: 3, Materials: 8}, gs.Resources)
	assert.Equal(t, MoraleNormal, gs.MoraleStatus)
	assert.Equal(t, "Alex", gs.PlayerCharacter.Name)
	assert.NotEmpty(t, gs.ID.String())
	assert.NotNil(t, gs.CompletedMissions)
	assert.NotNil(t, gs.Events)

	require.Len(t, gs.Relationships, 3)
	expected := []struct {
		id       string
		affinity int
		status   string
	}{
		{"1", 75, StatusFriendly},
		{"2", 60, StatusNeutral},
		{"3", 45, StatusDistrusted},
	}
	for i, e := range expected {
		assert.Equal(t, e.id, gs.Relationships[i].NPCID)
		assert.Equal(t, e.affinity, gs.Relationships[i].Affinity)
		assert.Equal(t, e.status, gs.Relationships[i].Status)
	}
}

func TestNewGameState_UniqueIDs(t *testing.T) {
	a := newTestState(t)
	b := newTestState(t)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewGameStateWithRoster_Empty(t *testing.T) {
	gs := NewGameStateWithRoster(actor.PlayerCharacter{Name: "Alex"}, nil)
	assert.Empty(t, gs.Relationships)
	assert.NotNil(t, gs.Relationships)
	// 15 water and 12 food are both above the low-stock threshold.
	assert.Equal(t, MoraleNormal, gs.MoraleStatus)
}

func TestGameState_CloneIsDeep(t *testing.T) {
	gs := newTestState(t)
	gs.Events = append(gs.Events, GameEvent{Day: 1, Description: "chuva", Type: EventRandom})

	clone := gs.Clone()
	clone.Relationships[0].Affinity = 0
	clone.Events[0].Description = "seca"
	clone.PlayerCharacter.Traits[0] = "Soldado"

	assert.Equal(t, 75, gs.Relationships[0].Affinity)
	assert.Equal(t, "chuva", gs.Events[0].Description)
	assert.Equal(t, "Engenheiro", gs.PlayerCharacter.Traits[0])
}

func TestGetStateForPrompt_TrimsEvents(t *testing.T) {
	gs := newTestState(t)
	for i := 1; i <= 8; i++ {
		gs.Events = append(gs.Events, GameEvent{Day: i, Description: "evento", Type: EventRandom})
	}

	var view GameState
	require.NoError(t, json.Unmarshal(gs.GetStateForPrompt(), &view))
	require.Len(t, view.Events, PromptEventLimit)
	assert.Equal(t, 4, view.Events[0].Day)
	assert.Len(t, gs.Events, 8, "source state is untouched")
}

func TestGetRelationshipsForPrompt(t *testing.T) {
	gs := &GameState{}
	assert.JSONEq(t, `[]`, string(gs.GetRelationshipsForPrompt()))

	gs = newTestState(t)
	var rels []Relationship
	require.NoError(t, json.Unmarshal(gs.GetRelationshipsForPrompt(), &rels))
	assert.Len(t, rels, 3)
}
