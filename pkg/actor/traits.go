package actor

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTraits is the most traits a character may pick.
const MaxTraits = 3

// maxTraitDistance is the edit distance tolerated between a typed trait
// and a catalog entry, measured after folding case and accents.
const maxTraitDistance = 2

// TraitCatalog is the fixed list of traits offered at character creation.
var TraitCatalog = []string{
	"Sobrevivencialista", "Líder Natural", "Médico", "Engenheiro",
	"Soldado", "Cientista", "Caçador", "Diplomata",
	"Paranóico", "Otimista", "Estrategista", "Impulsivo",
}

// foldTrait lowercases and strips diacritics so "MÉDICO" and "medico" compare equal.
func foldTrait(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		stripped = strings.TrimSpace(s)
	}
	return cases.Fold().String(stripped)
}

// MatchTrait resolves free-form input to a catalog trait. Exact matches win;
// otherwise the single closest entry within maxTraitDistance is returned.
// Ties between different entries are rejected.
func MatchTrait(input string) (string, bool) {
	folded := foldTrait(input)
	if folded == "" {
		return "", false
	}

	best := ""
	bestDist := maxTraitDistance + 1
	tie := false
	for _, trait := range TraitCatalog {
		d := levenshtein.ComputeDistance(folded, foldTrait(trait))
		if d == 0 {
			return trait, true
		}
		switch {
		case d < bestDist:
			best, bestDist, tie = trait, d, false
		case d == bestDist:
			tie = true
		}
	}

	// Very short input is too ambiguous for fuzzy matching.
	if best == "" || tie || len([]rune(folded)) < 4 {
		return "", false
	}
	return best, true
}

// NormalizeTraits maps every input to its catalog entry, drops duplicates and
// enforces MaxTraits.
func NormalizeTraits(inputs []string) ([]string, error) {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		trait, ok := MatchTrait(in)
		if !ok {
			return nil, fmt.Errorf("unknown trait %q", in)
		}
		if seen[trait] {
			continue
		}
		seen[trait] = true
		out = append(out, trait)
	}
	if len(out) > MaxTraits {
		return nil, fmt.Errorf("at most %d traits allowed, got %d", MaxTraits, len(out))
	}
	return out, nil
}
