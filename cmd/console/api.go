package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/internal/game"
	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/jwebster45206/pangaea/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apiClient talks to the Pangaea HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON and decodes a 2xx reply into out. Non-2xx replies
// become errors carrying the API's message.
func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s (status %d)", errorResp.Error, resp.StatusCode)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) startGame(sessionID string, pc actor.PlayerCharacter) (*state.GameState, error) {
	req := map[string]any{
		"sessionId": sessionID,
		"character": pc,
	}
	var gs state.GameState
	if err := c.do(http.MethodPost, "/v1/gamestate", req, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (c *apiClient) getGameState(id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := c.do(http.MethodGet, "/v1/gamestate/"+id.String(), nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (c *apiClient) advanceDay(id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := c.do(http.MethodPost, "/v1/gamestate/"+id.String()+"/day", nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (c *apiClient) executeMission(id uuid.UUID, missionID string) (*game.MissionResult, error) {
	var result game.MissionResult
	if err := c.do(http.MethodPost, "/v1/gamestate/"+id.String()+"/missions/"+missionID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) talkToNPC(id uuid.UUID, npcID, message string) (*chat.NPCChatResponse, error) {
	var resp chat.NPCChatResponse
	path := "/v1/gamestate/" + id.String() + "/npcs/" + npcID + "/chat"
	if err := c.do(http.MethodPost, path, chat.NPCChatRequest{Message: message}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) listMissions() (mission.Catalog, error) {
	var resp struct {
		Missions mission.Catalog `json:"missions"`
	}
	if err := c.do(http.MethodGet, "/v1/missions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Missions, nil
}

func (c *apiClient) setCredential(apiKey string) error {
	return c.do(http.MethodPut, "/v1/credential", map[string]string{"apiKey": apiKey}, nil)
}

// SSEEvent is one event read from the game event stream.
type SSEEvent struct {
	Type string
	Data string
}

// listenEvents streams game events until ctx is done or the stream ends.
// A 404 means the server runs without the event stream.
func (c *apiClient) listenEvents(ctx context.Context, id uuid.UUID, onEvent func(SSEEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/events/gamestate/"+id.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	return readSSE(resp.Body, onEvent)
}

// readSSE parses "event:" and "data:" lines, emitting an event at each blank
// line. Comment lines (keepalives) are skipped.
func readSSE(r io.Reader, onEvent func(SSEEvent)) error {
	scanner := bufio.NewScanner(r)
	var current SSEEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "event:"):
			current.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			current.Data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			if current.Type != "" {
				onEvent(current)
			}
			current = SSEEvent{}
		}
	}
	return scanner.Err()
}
