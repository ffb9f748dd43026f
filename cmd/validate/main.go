package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/jwebster45206/pangaea/pkg/state"
)

// IDs appear in request paths.
var validIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// File kinds the validator understands.
const (
	kindAuto      = "auto"
	kindGameState = "gamestate"
	kindMissions  = "missions"
	kindRoster    = "roster"
)

func main() {
	kind := flag.String("kind", kindAuto, "file kind: auto, gamestate, missions or roster")
	catalogPath := flag.String("catalog", "", "mission catalog YAML to check save files against (built-in when empty)")
	rosterPath := flag.String("roster", "", "NPC roster YAML to check save files against (built-in when empty)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-kind auto|gamestate|missions|roster] [-catalog file] [-roster file] <file>...\n", os.Args[0])
		os.Exit(1)
	}

	validator, err := newValidator(*catalogPath, *rosterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, filename := range flag.Args() {
		if err := validator.validateFile(filename, *kind); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

// Validator checks save files, mission catalogs and rosters. Save files are
// cross-checked against the catalog and roster it was built with.
type Validator struct {
	catalog mission.Catalog
	roster  actor.Roster
	errors  []string
}

func newValidator(catalogPath, rosterPath string) (*Validator, error) {
	v := &Validator{
		catalog: mission.DefaultCatalog(),
		roster:  actor.DefaultRoster(),
	}

	if catalogPath != "" {
		data, err := os.ReadFile(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", catalogPath, err)
		}
		if v.catalog, err = mission.ParseCatalog(data); err != nil {
			return nil, err
		}
	}

	if rosterPath != "" {
		data, err := os.ReadFile(rosterPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read roster %s: %w", rosterPath, err)
		}
		if v.roster, err = actor.ParseRoster(data); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *Validator) validateFile(filename, kind string) error {
	fmt.Printf("Validating %s...\n", filename)

	if kind == kindAuto {
		kind = detectKind(filename)
		if kind == "" {
			return fmt.Errorf("cannot tell the kind of %s; pass -kind", filename)
		}
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil
	if err := v.validateData(data, kind); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *Validator) validateData(data []byte, kind string) error {
	switch kind {
	case kindGameState:
		gs, err := state.ParseGameState(data)
		if err != nil {
			return err
		}
		v.validateGameState(gs)
	case kindMissions:
		catalog, err := mission.ParseCatalog(data)
		if err != nil {
			return err
		}
		v.validateCatalog(catalog)
	case kindRoster:
		roster, err := actor.ParseRoster(data)
		if err != nil {
			return err
		}
		if len(roster) == 0 {
			v.addError("roster is empty")
		}
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	return nil
}

// detectKind guesses from the file name: JSON files are saves, YAML files
// are told apart by name.
func detectKind(filename string) string {
	base := strings.ToLower(filepath.Base(filename))
	switch filepath.Ext(base) {
	case ".json":
		return kindGameState
	case ".yaml", ".yml":
		switch {
		case strings.Contains(base, "roster") || strings.Contains(base, "npc"):
			return kindRoster
		case strings.Contains(base, "catalog") || strings.Contains(base, "mission"):
			return kindMissions
		}
	}
	return ""
}

func (v *Validator) validateGameState(gs *state.GameState) {
	for _, rel := range gs.Relationships {
		npc, ok := v.roster.Find(rel.NPCID)
		if !ok {
			v.addError(fmt.Sprintf("relationship with unknown NPC '%s'", rel.NPCID))
			continue
		}
		if npc.Name != rel.NPCName {
			v.addError(fmt.Sprintf("NPC '%s' is named '%s' in the save but '%s' in the roster", rel.NPCID, rel.NPCName, npc.Name))
		}
		if want := state.DispositionLabel(rel.Affinity); rel.Status != want {
			v.addError(fmt.Sprintf("NPC '%s' status '%s' does not match affinity %d (expected '%s')", rel.NPCID, rel.Status, rel.Affinity, want))
		}
	}

	for _, id := range gs.CompletedMissions {
		if _, ok := v.catalog.Find(id); !ok {
			v.addError(fmt.Sprintf("completed mission '%s' is not in the catalog", id))
		}
	}

	for i, ev := range gs.Events {
		if ev.Day > gs.Day {
			v.addError(fmt.Sprintf("event %d is dated day %d, after the current day %d", i, ev.Day, gs.Day))
		}
	}

	if want := state.ComputeMorale(gs.Resources, gs.Relationships); gs.MoraleStatus != want {
		v.addError(fmt.Sprintf("moraleStatus '%s' does not match the resources and relationships (expected '%s')", gs.MoraleStatus, want))
	}
}

func (v *Validator) validateCatalog(catalog mission.Catalog) {
	if len(catalog) == 0 {
		v.addError("mission catalog is empty")
	}
	for _, m := range catalog {
		v.validateIDFormat("mission ID", m.ID)
		if len(m.Risks) == 0 {
			v.addError(fmt.Sprintf("mission '%s' lists no risks", m.ID))
		}
		if strings.TrimSpace(m.Description) == "" {
			v.addError(fmt.Sprintf("mission '%s' has no description", m.ID))
		}
	}
}

func (v *Validator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' may only contain letters, digits, '-' and '_'", fieldName, id))
	}
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
