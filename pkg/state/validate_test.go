package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRecord = `{
	"id": "6f1c8a0e-1f0b-4e55-9d3a-5d7f7c1e2a10",
	"day": 3,
	"resources": {"water": 10, "food": 9, "medicine": 0, "materials": 2},
	"playerCharacter": {"name": "Alex", "backstory": "", "traits": [], "stats": {"health": 100, "stamina": 100, "morale": 75}},
	"relationships": [{"npcId": "1", "npcName": "Dr. Sarah Chen", "affinity": 75, "status": "Amigável", "lastInteraction": "oi"}],
	"completedMissions": ["1"],
	"events": [{"day": 2, "description": "chuva", "type": "random"}],
	"moraleStatus": "normal"
}`

func TestParseGameState_Valid(t *testing.T) {
	gs, err := ParseGameState([]byte(validRecord))
	require.NoError(t, err)

	assert.Equal(t, 3, gs.Day)
	assert.Equal(t, Resources{Water: 10, Food: 9, Medicine: 0, Materials: 2}, gs.Resources)
	assert.Equal(t, "Alex", gs.PlayerCharacter.Name)
	assert.Equal(t, []string{"1"}, gs.CompletedMissions)
	assert.Equal(t, "6f1c8a0e-1f0b-4e55-9d3a-5d7f7c1e2a10", gs.ID.String())
}

func TestParseGameState_Invalid(t *testing.T) {
	mutate := func(fn func(m map[string]any)) string {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(validRecord), &m))
		fn(m)
		data, err := json.Marshal(m)
		require.NoError(t, err)
		return string(data)
	}

	tests := []struct {
		name string
		data string
	}{
		{"not json", "{not json"},
		{"json array", "[]"},
		{"missing day", mutate(func(m map[string]any) { delete(m, "day") })},
		{"day zero", mutate(func(m map[string]any) { m["day"] = 0 })},
		{"fractional day", mutate(func(m map[string]any) { m["day"] = 1.5 })},
		{"missing resources", mutate(func(m map[string]any) { delete(m, "resources") })},
		{"missing water", mutate(func(m map[string]any) { delete(m["resources"].(map[string]any), "water") })},
		{"negative food", mutate(func(m map[string]any) { m["resources"].(map[string]any)["food"] = -1 })},
		{"string medicine", mutate(func(m map[string]any) { m["resources"].(map[string]any)["medicine"] = "3" })},
		{"missing character", mutate(func(m map[string]any) { delete(m, "playerCharacter") })},
		{"missing name", mutate(func(m map[string]any) { delete(m["playerCharacter"].(map[string]any), "name") })},
		{"null relationships", mutate(func(m map[string]any) { m["relationships"] = nil })},
		{"missing completedMissions", mutate(func(m map[string]any) { delete(m, "completedMissions") })},
		{"events not array", mutate(func(m map[string]any) { m["events"] = "none" })},
		{"bad morale", mutate(func(m map[string]any) { m["moraleStatus"] = "ecstatic" })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, err := ParseGameState([]byte(tt.data))
			assert.Nil(t, gs)
			assert.True(t, errors.Is(err, ErrInvalidGameState), "got %v", err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	gs := newTestState(t)
	gs = AdvanceDay(gs, &GameEvent{Description: "Sol forte.", Type: EventRandom})
	gs = CompleteMission(gs, "2", Gains{Water: 5})
	gs = ApplyAffinityChange(gs, "1", -5, "Discussão")

	require.NoError(t, Validate(gs))
	data, err := json.Marshal(gs)
	require.NoError(t, err)

	loaded, err := ParseGameState(data)
	require.NoError(t, err)
	assert.Equal(t, gs, loaded)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate(nil))

	gs := newTestState(t)
	gs.Day = 0
	assert.ErrorIs(t, Validate(gs), ErrInvalidGameState)

	gs = newTestState(t)
	gs.Resources.Food = -3
	assert.ErrorIs(t, Validate(gs), ErrInvalidGameState)

	gs = newTestState(t)
	gs.MoraleStatus = ""
	assert.ErrorIs(t, Validate(gs), ErrInvalidGameState)

	// Nil slices serialise as empty arrays through Clone.
	gs = newTestState(t)
	gs.Events = nil
	assert.NoError(t, Validate(gs))
}
