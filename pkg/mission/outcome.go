package mission

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jwebster45206/pangaea/pkg/state"
)

// FallbackDescription is used whenever the narrator cannot produce an outcome.
const FallbackDescription = "A missão teve um resultado inesperado..."

// MaxRewardAmount bounds a single reward field. Larger values are ignored.
const MaxRewardAmount = 1000

// ErrMalformedOutcome is returned by ParseOutcome when the reply is not a usable outcome.
var ErrMalformedOutcome = errors.New("malformed mission outcome")

// Outcome is the result of one mission attempt.
type Outcome struct {
	Success      bool         `json:"success"`
	Description  string       `json:"description"`
	Rewards      *state.Gains `json:"rewards,omitempty"`
	Consequences string       `json:"consequences,omitempty"`
}

// Rand is the randomness used by the fallbacks. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// FallbackOutcome is a coin-flip outcome with no rewards.
func FallbackOutcome(r Rand) Outcome {
	return Outcome{
		Success:     r.Float64() > 0.5,
		Description: FallbackDescription,
	}
}

// FallbackRewards draws the rewards for a successful mission whose outcome
// carried none: 2-4 water, 1-3 food and 1 material.
func FallbackRewards(r Rand) state.Gains {
	return state.Gains{
		Water:     2 + r.IntN(3),
		Food:      1 + r.IntN(3),
		Materials: 1,
	}
}

// StripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseOutcome reads a narrator reply. The reply must be a JSON object with a
// boolean success and a string description. Rewards keep only numeric
// water, food, medicine and materials fields within MaxRewardAmount; when
// none are usable the rewards are treated as absent.
func ParseOutcome(raw string) (Outcome, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &fields); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedOutcome, err)
	}
	if fields == nil {
		return Outcome{}, fmt.Errorf("%w: not an object", ErrMalformedOutcome)
	}

	var out Outcome
	if err := decodeRequired(fields, "success", &out.Success); err != nil {
		return Outcome{}, err
	}
	if err := decodeRequired(fields, "description", &out.Description); err != nil {
		return Outcome{}, err
	}

	if rawRewards, ok := fields["rewards"]; ok {
		out.Rewards = parseRewards(rawRewards)
	}
	if rawConsequences, ok := fields["consequences"]; ok {
		var consequences string
		if json.Unmarshal(rawConsequences, &consequences) == nil {
			out.Consequences = consequences
		}
	}
	return out, nil
}

func decodeRequired(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("%w: %s is missing", ErrMalformedOutcome, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s has the wrong type", ErrMalformedOutcome, key)
	}
	return nil
}

func parseRewards(raw json.RawMessage) *state.Gains {
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return nil
	}

	var gains state.Gains
	usable := false
	pick := func(key string, dst *int) {
		n, ok := values[key].(float64)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) > MaxRewardAmount {
			return
		}
		*dst = int(math.Round(n))
		usable = true
	}
	pick("water", &gains.Water)
	pick("food", &gains.Food)
	pick("medicine", &gains.Medicine)
	pick("materials", &gains.Materials)

	if !usable {
		return nil
	}
	return &gains
}
