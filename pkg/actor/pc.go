package actor

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/d20"
)

const (
	DefaultHealth  = 100
	DefaultStamina = 100
	DefaultMorale  = 75

	// baseAC is only used to satisfy the d20 actor builder; armor has no
	// meaning in the bunker game.
	baseAC = 10
)

// Stats are the player's personal condition, set at creation.
type Stats struct {
	Health  int `json:"health"`
	Stamina int `json:"stamina"`
	Morale  int `json:"morale"`
}

// ToAttributes converts Stats to a map for d20.Actor compatibility
func (s Stats) ToAttributes() map[string]int {
	return map[string]int{
		"stamina": s.Stamina,
		"morale":  s.Morale,
	}
}

// PlayerCharacter is the survivor created by the player.
type PlayerCharacter struct {
	Name      string   `json:"name"`
	Avatar    string   `json:"avatar,omitempty"`
	Backstory string   `json:"backstory"`
	Traits    []string `json:"traits"`
	Stats     Stats    `json:"stats"`
}

// NewPlayerCharacter builds a character with default stats and validated traits.
func NewPlayerCharacter(name, avatar, backstory string, traits []string) (*PlayerCharacter, error) {
	pc := &PlayerCharacter{
		Name:      strings.TrimSpace(name),
		Avatar:    strings.TrimSpace(avatar),
		Backstory: strings.TrimSpace(backstory),
		Traits:    traits,
		Stats: Stats{
			Health:  DefaultHealth,
			Stamina: DefaultStamina,
			Morale:  DefaultMorale,
		},
	}
	if err := pc.Normalize(); err != nil {
		return nil, err
	}
	return pc, nil
}

// Normalize trims the name and resolves traits against the catalog. Stats are
// always reset to the starting values; clients cannot choose them.
func (pc *PlayerCharacter) Normalize() error {
	pc.Name = strings.TrimSpace(pc.Name)
	if pc.Name == "" {
		return fmt.Errorf("character name is required")
	}

	traits, err := NormalizeTraits(pc.Traits)
	if err != nil {
		return err
	}
	pc.Traits = traits

	pc.Stats = Stats{Health: DefaultHealth, Stamina: DefaultStamina, Morale: DefaultMorale}
	return nil
}

// Clone returns a deep copy.
func (pc PlayerCharacter) Clone() PlayerCharacter {
	out := pc
	if pc.Traits != nil {
		out.Traits = make([]string, len(pc.Traits))
		copy(out.Traits, pc.Traits)
	}
	return out
}

// Actor builds a d20 actor from the character's stats. Health maps to HP.
func (pc *PlayerCharacter) Actor() (*d20.Actor, error) {
	actor, err := d20.NewActor(pc.Name).
		WithHP(pc.Stats.Health).
		WithAC(baseAC).
		WithAttributes(pc.Stats.ToAttributes()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	return actor, nil
}

// PromptStats returns the stats handed to the narrator when resolving a mission.
// Values are read back through the d20 actor so they reflect its clamping rules.
func (pc *PlayerCharacter) PromptStats() map[string]any {
	out := map[string]any{
		"health":  pc.Stats.Health,
		"stamina": pc.Stats.Stamina,
		"morale":  pc.Stats.Morale,
		"traits":  pc.Traits,
	}

	actor, err := pc.Actor()
	if err != nil {
		return out
	}
	out["health"] = actor.HP()
	out["maxHealth"] = actor.MaxHP()
	if v, ok := actor.Attribute("stamina"); ok {
		out["stamina"] = v
	}
	if v, ok := actor.Attribute("morale"); ok {
		out["morale"] = v
	}
	return out
}

// BuildPrompt describes the character for narration prompts.
//
// Example output:
// Personagem do jogador: Alex. Traços: Médico, Otimista. História: Ex-enfermeira do navio.
func BuildPrompt(pc *PlayerCharacter) string {
	if pc == nil {
		return ""
	}
	sb := strings.Builder{}
	sb.WriteString("Personagem do jogador: ")
	sb.WriteString(pc.Name)
	sb.WriteString(".")
	if len(pc.Traits) > 0 {
		sb.WriteString(" Traços: " + strings.Join(pc.Traits, ", ") + ".")
	}
	if pc.Backstory != "" {
		sb.WriteString(" História: " + pc.Backstory)
	}
	return sb.String()
}
