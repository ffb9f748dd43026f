package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/jwebster45206/pangaea/pkg/state"
	"gopkg.in/yaml.v3"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running Pangaea API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite starts a fresh game for the suite's character and executes each step.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	sessionID := uuid.New()
	result.GameState = sessionID

	if _, err := r.startGame(ctx, sessionID, suite); err != nil {
		result.Error = fmt.Errorf("failed to start game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.executeStep(ctx, sessionID, suite, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) startGame(ctx context.Context, sessionID uuid.UUID, suite TestSuite) (*state.GameState, error) {
	body := map[string]any{
		"sessionId": sessionID.String(),
		"character": suite.Character,
	}
	var gs state.GameState
	status, err := r.doJSON(ctx, http.MethodPost, "/v1/gamestate", body, &gs)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("start game returned %d", status)
	}
	return &gs, nil
}

// executeStep performs one action and checks its expectations
func (r *Runner) executeStep(ctx context.Context, sessionID uuid.UUID, suite TestSuite, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	preState, err := r.getGameState(ctx, sessionID)
	if err != nil {
		return fail(fmt.Errorf("failed to get gamestate before step: %w", err))
	}

	id := sessionID.String()
	var (
		status int
		reply  string
	)

	switch step.Action {
	case ActionReset:
		if _, err := r.doJSON(ctx, http.MethodDelete, "/v1/gamestate/"+id, nil, nil); err != nil {
			return fail(fmt.Errorf("failed to delete gamestate: %w", err))
		}
		if _, err := r.startGame(ctx, sessionID, suite); err != nil {
			return fail(fmt.Errorf("failed to restart game: %w", err))
		}
		status = http.StatusOK
		result.IsReset = true
		result.ResponseText = "[GAMESTATE RESET]"

	case ActionDay:
		status, err = r.doJSON(ctx, http.MethodPost, "/v1/gamestate/"+id+"/day", nil, nil)

	case ActionMission:
		var mr struct {
			Outcome mission.Outcome `json:"outcome"`
		}
		status, err = r.doJSON(ctx, http.MethodPost, "/v1/gamestate/"+id+"/missions/"+step.Mission, nil, &mr)
		reply = mr.Outcome.Description
		if err == nil && step.Expectations.MissionSuccess != nil && status == http.StatusOK &&
			mr.Outcome.Success != *step.Expectations.MissionSuccess {
			return fail(fmt.Errorf("expected mission success %t, got %t", *step.Expectations.MissionSuccess, mr.Outcome.Success))
		}

	case ActionTalk:
		var resp chat.NPCChatResponse
		status, err = r.doJSON(ctx, http.MethodPost, "/v1/gamestate/"+id+"/npcs/"+step.NPC+"/chat", chat.NPCChatRequest{Message: step.Message}, &resp)
		reply = resp.Reply

	case ActionResources:
		status, err = r.doJSON(ctx, http.MethodPatch, "/v1/gamestate/"+id+"/resources", step.Resources, nil)

	case ActionRelationship:
		body := map[string]any{"delta": step.Delta, "interaction": step.Interaction}
		status, err = r.doJSON(ctx, http.MethodPost, "/v1/gamestate/"+id+"/relationships/"+step.NPC, body, nil)

	case ActionGet:
		status = http.StatusOK

	default:
		return fail(fmt.Errorf("unknown action %q", step.Action))
	}
	if err != nil {
		return fail(err)
	}
	if result.ResponseText == "" {
		result.ResponseText = reply
	}

	if err := checkStatus(step.Expectations.StatusCode, status); err != nil {
		return fail(err)
	}

	postState, err := r.getGameState(ctx, sessionID)
	if err != nil {
		return fail(fmt.Errorf("failed to get gamestate after step: %w", err))
	}

	if err := checkExpectations(step.Expectations, preState, postState, reply); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func checkStatus(expected *int, actual int) error {
	if expected != nil {
		if actual != *expected {
			return fmt.Errorf("expected status %d, got %d", *expected, actual)
		}
		return nil
	}
	if actual < 200 || actual > 299 {
		return fmt.Errorf("request failed with status %d", actual)
	}
	return nil
}

// getGameState retrieves the current gamestate
func (r *Runner) getGameState(ctx context.Context, sessionID uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	status, err := r.doJSON(ctx, http.MethodGet, "/v1/gamestate/"+sessionID.String(), nil, &gs)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get gamestate returned %d", status)
	}
	return &gs, nil
}

// doJSON sends body as JSON and, on a 2xx reply, decodes into out. The
// status code is returned so steps can expect failures.
func (r *Runner) doJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode <= 299 && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// checkExpectations validates the expectations against the state after the step
func checkExpectations(exp Expectations, preState, postState *state.GameState, replyText string) error {
	if exp.Day != nil && postState.Day != *exp.Day {
		return fmt.Errorf("expected day %d, got %d", *exp.Day, postState.Day)
	}

	for name, want := range exp.Resources {
		got, ok := resourceValue(postState.Resources, name)
		if !ok {
			return fmt.Errorf("unknown resource %q in expectations", name)
		}
		if got != want {
			return fmt.Errorf("expected %s %d, got %d", name, want, got)
		}
	}

	if exp.Morale != nil && string(postState.MoraleStatus) != *exp.Morale {
		return fmt.Errorf("expected morale %s, got %s", *exp.Morale, postState.MoraleStatus)
	}

	// Completed missions check (order independent)
	if exp.CompletedMissions != nil {
		expected := make(map[string]bool)
		for _, id := range exp.CompletedMissions {
			expected[id] = true
		}
		actual := make(map[string]bool)
		for _, id := range postState.CompletedMissions {
			actual[id] = true
		}
		for id := range expected {
			if !actual[id] {
				return fmt.Errorf("expected completed missions to contain '%s'. Actual: %v", id, postState.CompletedMissions)
			}
		}
		for id := range actual {
			if !expected[id] {
				return fmt.Errorf("completed missions contain unexpected '%s'. Expected: %v, Actual: %v", id, exp.CompletedMissions, postState.CompletedMissions)
			}
		}
	}

	for npcID, want := range exp.Affinity {
		rel, ok := postState.Relationship(npcID)
		if !ok {
			return fmt.Errorf("expected NPC %s to exist, but it doesn't", npcID)
		}
		if rel.Affinity != want {
			return fmt.Errorf("expected NPC %s affinity %d, got %d", npcID, want, rel.Affinity)
		}
	}

	for npcID, want := range exp.Status {
		rel, ok := postState.Relationship(npcID)
		if !ok {
			return fmt.Errorf("expected NPC %s to exist, but it doesn't", npcID)
		}
		if rel.Status != want {
			return fmt.Errorf("expected NPC %s status %s, got %s", npcID, want, rel.Status)
		}
	}

	if exp.EventsAdded != nil {
		added := len(postState.Events) - len(preState.Events)
		if added != *exp.EventsAdded {
			return fmt.Errorf("expected %d new events, got %d", *exp.EventsAdded, added)
		}
	}

	lowerReply := strings.ToLower(replyText)
	for _, expectedText := range exp.ReplyContains {
		if !strings.Contains(lowerReply, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected reply to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.ReplyNotContains {
		if strings.Contains(lowerReply, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected reply to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ReplyRegex != "" {
		matched, err := regexp.MatchString(exp.ReplyRegex, replyText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("reply didn't match regex pattern: %s", exp.ReplyRegex)
		}
	}

	return nil
}

func resourceValue(res state.Resources, name string) (int, bool) {
	switch name {
	case "water":
		return res.Water, true
	case "food":
		return res.Food, true
	case "medicine":
		return res.Medicine, true
	case "materials":
		return res.Materials, true
	}
	return 0, false
}
