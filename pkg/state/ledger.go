package state

import "math"

// ResourceDelta carries replacement values for some resource counters.
// Nil fields are left as they are.
type ResourceDelta struct {
	Water     *int `json:"water,omitempty"`
	Food      *int `json:"food,omitempty"`
	Medicine  *int `json:"medicine,omitempty"`
	Materials *int `json:"materials,omitempty"`
}

// IsEmpty reports whether no field is set.
func (d ResourceDelta) IsEmpty() bool {
	return d.Water == nil && d.Food == nil && d.Medicine == nil && d.Materials == nil
}

// Gains are additive resource changes, as granted by mission rewards.
type Gains struct {
	Water     int `json:"water,omitempty"`
	Food      int `json:"food,omitempty"`
	Medicine  int `json:"medicine,omitempty"`
	Materials int `json:"materials,omitempty"`
}

// IsZero reports whether all gains are zero.
func (g Gains) IsZero() bool {
	return g == Gains{}
}

// Affinity labels shown next to each NPC.
const (
	StatusFriendly   = "Amigável"
	StatusNeutral    = "Neutro"
	StatusDistrusted = "Desconfiado"
)

// DispositionLabel derives the display status for an affinity value.
func DispositionLabel(affinity int) string {
	switch {
	case affinity >= 70:
		return StatusFriendly
	case affinity >= 50:
		return StatusNeutral
	default:
		return StatusDistrusted
	}
}

func clampAffinity(v int) int {
	return min(max(v, 0), 100)
}

func clampStock(v int) int {
	return max(v, 0)
}

// addStock adds a gain to a counter, saturating instead of wrapping.
func addStock(v, gain int) int {
	switch {
	case gain > 0 && v > math.MaxInt-gain:
		return math.MaxInt
	case gain < 0 && v < math.MinInt-gain:
		return math.MinInt
	}
	return v + gain
}

// ApplyResourceDelta replaces the given counters, clamps them at zero and
// recomputes morale.
func ApplyResourceDelta(gs *GameState, delta ResourceDelta) *GameState {
	next := gs.Clone()
	if delta.Water != nil {
		next.Resources.Water = clampStock(*delta.Water)
	}
	if delta.Food != nil {
		next.Resources.Food = clampStock(*delta.Food)
	}
	if delta.Medicine != nil {
		next.Resources.Medicine = clampStock(*delta.Medicine)
	}
	if delta.Materials != nil {
		next.Resources.Materials = clampStock(*delta.Materials)
	}
	next.MoraleStatus = ComputeMorale(next.Resources, next.Relationships)
	return next
}

// AddResources applies additive gains (negative values consume stock).
// Only non-zero gains touch their counter.
func AddResources(gs *GameState, gains Gains) *GameState {
	var delta ResourceDelta
	if gains.Water != 0 {
		delta.Water = intPtr(addStock(gs.Resources.Water, gains.Water))
	}
	if gains.Food != 0 {
		delta.Food = intPtr(addStock(gs.Resources.Food, gains.Food))
	}
	if gains.Medicine != 0 {
		delta.Medicine = intPtr(addStock(gs.Resources.Medicine, gains.Medicine))
	}
	if gains.Materials != 0 {
		delta.Materials = intPtr(addStock(gs.Resources.Materials, gains.Materials))
	}
	return ApplyResourceDelta(gs, delta)
}

// ApplyAffinityChange shifts one NPC's affinity by delta, clamped to [0,100],
// and records the interaction note. An unknown npcID returns an unchanged copy.
func ApplyAffinityChange(gs *GameState, npcID string, delta int, interaction string) *GameState {
	if !gs.HasRelationship(npcID) {
		return gs.Clone()
	}
	// Any delta beyond the scale lands on a bound; this keeps the sum in range.
	delta = min(max(delta, -100), 100)

	next := gs.Clone()
	for i := range next.Relationships {
		rel := &next.Relationships[i]
		if rel.NPCID != npcID {
			continue
		}
		rel.Affinity = clampAffinity(rel.Affinity + delta)
		rel.Status = DispositionLabel(rel.Affinity)
		rel.LastInteraction = interaction
	}
	next.MoraleStatus = ComputeMorale(next.Resources, next.Relationships)
	return next
}

// CompleteMission records missionID once and applies its gains.
// Repeating a mission applies the gains again but does not grow the list.
func CompleteMission(gs *GameState, missionID string, gains Gains) *GameState {
	next := AddResources(gs, gains)
	if !next.HasCompletedMission(missionID) {
		next.CompletedMissions = append(next.CompletedMissions, missionID)
	}
	return next
}

// AdvanceDay moves to the next day. A non-nil event is appended for that day.
func AdvanceDay(gs *GameState, event *GameEvent) *GameState {
	next := gs.Clone()
	next.Day = gs.Day + 1
	if event != nil {
		e := *event
		e.Day = next.Day
		next.Events = append(next.Events, e)
	}
	return next
}

// AppendEvent adds an event dated on the current day.
func AppendEvent(gs *GameState, eventType EventType, description string) *GameState {
	next := gs.Clone()
	next.Events = append(next.Events, GameEvent{
		Day:         gs.Day,
		Description: description,
		Type:        eventType,
	})
	return next
}

func intPtr(v int) *int {
	return &v
}
