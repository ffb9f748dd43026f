package game

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jwebster45206/pangaea/internal/services"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/jwebster45206/pangaea/pkg/prompts"
)

// globalRand draws from the math/rand/v2 top-level source, which is safe
// for concurrent use.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Resolver asks the narrator for a mission outcome and falls back to a coin
// flip when the answer is unusable.
type Resolver struct {
	narrator    services.Narrator
	rng         mission.Rand
	timeout     time.Duration
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewResolver creates a resolver. A nil rng uses math/rand/v2.
func NewResolver(narrator services.Narrator, rng mission.Rand, timeout time.Duration, temperature float64, maxTokens int, logger *slog.Logger) *Resolver {
	if rng == nil {
		rng = globalRand{}
	}
	return &Resolver{
		narrator:    narrator,
		rng:         rng,
		timeout:     timeout,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// ResolveMission makes exactly one narration request. It never fails: any
// error or malformed reply yields mission.FallbackOutcome.
func (r *Resolver) ResolveMission(ctx context.Context, missionContext string, playerStats map[string]any, difficulty string) mission.Outcome {
	messages, err := prompts.MissionOutcomeMessages(missionContext, playerStats, difficulty)
	if err != nil {
		r.logger.Error("Failed to build mission prompt", "error", err)
		return mission.FallbackOutcome(r.rng)
	}

	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.narrator.Complete(callCtx, services.NarrationRequest{
		Messages:    messages,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
		JSON:        true,
	})
	if err != nil {
		r.logger.Warn("Mission narration failed, using fallback", "error", err, "difficulty", difficulty)
		return mission.FallbackOutcome(r.rng)
	}

	outcome, err := mission.ParseOutcome(reply)
	if err != nil {
		r.logger.Warn("Mission outcome unusable, using fallback", "error", err)
		return mission.FallbackOutcome(r.rng)
	}
	return outcome
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
