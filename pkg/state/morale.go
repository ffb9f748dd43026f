package state

const (
	baseMoraleScore = 50

	criticalStockThreshold = 5
	lowStockThreshold      = 10
	criticalStockPenalty   = 30
	lowStockPenalty        = 15
)

// MoraleScore is the numeric score behind ComputeMorale.
//
// Starting from 50: water or food below 5 costs 30, otherwise water or food
// below 10 costs 15. The mean affinity of the roster then adds
// (mean-50)/2. An empty roster contributes nothing.
func MoraleScore(res Resources, relationships []Relationship) float64 {
	score := float64(baseMoraleScore)

	switch {
	case res.Water < criticalStockThreshold || res.Food < criticalStockThreshold:
		score -= criticalStockPenalty
	case res.Water < lowStockThreshold || res.Food < lowStockThreshold:
		score -= lowStockPenalty
	}

	if len(relationships) > 0 {
		total := 0
		for _, rel := range relationships {
			total += rel.Affinity
		}
		mean := float64(total) / float64(len(relationships))
		score += (mean - 50) / 2
	}

	return score
}

// ComputeMorale maps resources and relationships to a morale level.
func ComputeMorale(res Resources, relationships []Relationship) MoraleStatus {
	score := MoraleScore(res, relationships)
	switch {
	case score >= 75:
		return MoraleHigh
	case score >= 50:
		return MoraleNormal
	case score >= 25:
		return MoraleLow
	default:
		return MoraleCritical
	}
}
