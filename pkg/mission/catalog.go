package mission

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Difficulty is the label shown for a mission and passed to the narrator.
type Difficulty string

const (
	DifficultyLow    Difficulty = "Baixa"
	DifficultyMedium Difficulty = "Média"
	DifficultyHigh   Difficulty = "Alta"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyLow, DifficultyMedium, DifficultyHigh:
		return true
	}
	return false
}

// Mission is an expedition from the catalog.
type Mission struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	Region      string     `yaml:"region" json:"region"`
	Difficulty  Difficulty `yaml:"difficulty" json:"difficulty"`
	Duration    string     `yaml:"duration" json:"duration"`
	Rewards     []string   `yaml:"rewards" json:"rewards"` // display hints only
	Risks       []string   `yaml:"risks" json:"risks"`
}

// Context is the mission text handed to the narrator.
//
// Example output:
// Explorar Praia Norte (Praia Norte, 2 horas): Procurar por destroços... Riscos: Possível encontro com vida selvagem.
func (m Mission) Context() string {
	sb := strings.Builder{}
	sb.WriteString(m.Title)
	if m.Region != "" || m.Duration != "" {
		parts := make([]string, 0, 2)
		for _, p := range []string{m.Region, m.Duration} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		sb.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	sb.WriteString(": ")
	sb.WriteString(m.Description)
	if len(m.Risks) > 0 {
		sb.WriteString(" Riscos: " + strings.Join(m.Risks, ", ") + ".")
	}
	return sb.String()
}

// Catalog is the ordered list of available missions.
type Catalog []Mission

// ParseCatalog decodes a YAML mission list and validates each entry.
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse mission catalog: %w", err)
	}

	seen := make(map[string]bool, len(catalog))
	for i, m := range catalog {
		if m.ID == "" {
			return nil, fmt.Errorf("mission %d has no id", i)
		}
		if m.Title == "" {
			return nil, fmt.Errorf("mission %q has no title", m.ID)
		}
		if !m.Difficulty.Valid() {
			return nil, fmt.Errorf("mission %q has unknown difficulty %q", m.ID, m.Difficulty)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate mission id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return catalog, nil
}

var defaultCatalog = mustParseCatalog(catalogYAML)

func mustParseCatalog(data []byte) Catalog {
	catalog, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return catalog
}

// DefaultCatalog returns a copy of the built-in missions.
func DefaultCatalog() Catalog {
	out := make(Catalog, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// Find returns the mission with the given id.
func (c Catalog) Find(id string) (Mission, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}
	return Mission{}, false
}
