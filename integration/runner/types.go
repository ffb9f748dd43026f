package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/state"
)

// Step actions. Each maps to one API call.
const (
	ActionDay          = "day"          // POST /v1/gamestate/{id}/day
	ActionMission      = "mission"      // POST /v1/gamestate/{id}/missions/{mission}
	ActionTalk         = "talk"         // POST /v1/gamestate/{id}/npcs/{npc}/chat
	ActionResources    = "resources"    // PATCH /v1/gamestate/{id}/resources
	ActionRelationship = "relationship" // POST /v1/gamestate/{id}/relationships/{npc}
	ActionGet          = "get"          // GET /v1/gamestate/{id}
	ActionReset        = "reset"        // DELETE, then start a fresh game on the same session
)

// TestSuite defines a complete integration test scenario.
// It either has Steps, or is a sequence that references other Cases.
type TestSuite struct {
	Name      string                `yaml:"name"`
	Character actor.PlayerCharacter `yaml:"character,omitempty"`
	Steps     []TestStep            `yaml:"steps,omitempty"`
	Cases     []string              `yaml:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single action and its expected outcomes.
type TestStep struct {
	Name         string              `yaml:"name,omitempty"`
	Action       string              `yaml:"action"`
	Mission      string              `yaml:"mission,omitempty"`
	NPC          string              `yaml:"npc,omitempty"`
	Message      string              `yaml:"message,omitempty"`
	Resources    state.ResourceDelta `yaml:"resources,omitempty"`
	Delta        int                 `yaml:"delta,omitempty"`
	Interaction  string              `yaml:"interaction,omitempty"`
	Expectations Expectations        `yaml:"expect"`
}

// Expectations defines what to check after a step executes. Unset fields
// are not checked.
type Expectations struct {
	StatusCode *int `yaml:"status_code,omitempty"` // Defaults to 2xx

	Day               *int              `yaml:"day,omitempty"`
	Resources         map[string]int    `yaml:"resources,omitempty"` // water, food, medicine, materials
	Morale            *string           `yaml:"morale,omitempty"`
	CompletedMissions []string          `yaml:"completed_missions,omitempty"` // Order independent
	Affinity          map[string]int    `yaml:"affinity,omitempty"`           // By NPC ID
	Status            map[string]string `yaml:"status,omitempty"`             // By NPC ID
	EventsAdded       *int              `yaml:"events_added,omitempty"`       // Growth of the event log during the step

	// Reply analysis: NPC reply or mission description
	ReplyContains    []string `yaml:"reply_contains,omitempty"`
	ReplyNotContains []string `yaml:"reply_not_contains,omitempty"`
	ReplyRegex       string   `yaml:"reply_regex,omitempty"`
	MissionSuccess   *bool    `yaml:"mission_success,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsReset      bool // Reset steps do not count toward pass/fail metrics
}

// TestJob is one runnable suite, expanded from a case file.
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Duration  time.Duration
	Error     error
	GameState uuid.UUID
}
