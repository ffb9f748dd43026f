package actor

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var rosterYAML []byte

// NPC is a survivor the player can talk to and build affinity with.
type NPC struct {
	ID               string `yaml:"id" json:"id"`
	Name             string `yaml:"name" json:"name"`
	Role             string `yaml:"role" json:"role"`
	Personality      string `yaml:"personality" json:"personality"`
	Backstory        string `yaml:"backstory" json:"backstory"`
	Affinity         int    `yaml:"affinity" json:"affinity"` // starting affinity, 0-100
	FirstInteraction string `yaml:"first_interaction" json:"firstInteraction"`
}

// Roster is the ordered list of NPCs seeded into every new game.
type Roster []NPC

// ParseRoster decodes a YAML roster and checks ids are present and unique.
func ParseRoster(data []byte) (Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	seen := make(map[string]bool, len(roster))
	for i, npc := range roster {
		if npc.ID == "" {
			return nil, fmt.Errorf("roster entry %d has no id", i)
		}
		if npc.Name == "" {
			return nil, fmt.Errorf("roster entry %q has no name", npc.ID)
		}
		if seen[npc.ID] {
			return nil, fmt.Errorf("duplicate roster id %q", npc.ID)
		}
		if npc.Affinity < 0 || npc.Affinity > 100 {
			return nil, fmt.Errorf("roster entry %q affinity %d out of range", npc.ID, npc.Affinity)
		}
		seen[npc.ID] = true
	}
	return roster, nil
}

var defaultRoster = mustParseRoster(rosterYAML)

func mustParseRoster(data []byte) Roster {
	roster, err := ParseRoster(data)
	if err != nil {
		panic(err)
	}
	return roster
}

// DefaultRoster returns a copy of the built-in bunker roster.
func DefaultRoster() Roster {
	out := make(Roster, len(defaultRoster))
	copy(out, defaultRoster)
	return out
}

// Find returns the NPC with the given id.
func (r Roster) Find(id string) (NPC, bool) {
	for _, npc := range r {
		if npc.ID == id {
			return npc, true
		}
	}
	return NPC{}, false
}
