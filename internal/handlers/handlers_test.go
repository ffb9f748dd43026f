package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/pangaea/internal/services/events"
	"github.com/jwebster45206/pangaea/internal/storage"
	"github.com/jwebster45206/pangaea/pkg/actor"
	"github.com/jwebster45206/pangaea/pkg/mission"
	"github.com/redis/go-redis/v9"
)

func TestMissionsHandler(t *testing.T) {
	handler := NewMissionsHandler(mission.DefaultCatalog(), testLogger())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/missions", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var resp MissionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Missions) != 3 {
		t.Errorf("Expected 3 missions, got %d", len(resp.Missions))
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/missions", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}

func TestTraitsHandler(t *testing.T) {
	handler := NewTraitsHandler(testLogger())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/traits", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var resp TraitsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Traits) != len(actor.TraitCatalog) || resp.MaxTraits != actor.MaxTraits {
		t.Errorf("Unexpected traits response %+v", resp)
	}
}

func TestCredentialHandler(t *testing.T) {
	store := storage.NewCredentialStore(storage.NewMemoryKV())
	handler := NewCredentialHandler(store, testLogger())

	status := func() bool {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/credential", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		var resp CredentialStatusResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		return resp.Configured
	}

	if status() {
		t.Error("Expected no credential configured")
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/v1/credential", strings.NewReader(`{"apiKey":"sk-123"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "sk-123") {
		t.Error("The key must never be echoed back")
	}
	if !status() {
		t.Error("Expected credential configured")
	}
	if key, _ := store.Get(context.Background()); key != "sk-123" {
		t.Errorf("Expected stored key, got %q", key)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/v1/credential", strings.NewReader(`{"apiKey":"  "}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank key, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/credential", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	if status() {
		t.Error("Expected credential cleared")
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/credential", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus int
		expectedHealth string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"storage down", errors.New("connection failed"), http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryKV()
			kv.SetPingError(tt.pingErr)
			handler := NewHealthHandler(kv, testLogger())

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.expectedHealth {
				t.Errorf("Expected status %q, got %q", tt.expectedHealth, resp.Status)
			}
			if resp.Service != "pangaea" {
				t.Errorf("Unexpected service %q", resp.Service)
			}
		})
	}
}

func TestEventsHandler_BadRequests(t *testing.T) {
	handler := NewEventsHandler(nil, testLogger())
	tests := []struct {
		method   string
		path     string
		expected int
	}{
		{http.MethodPost, "/v1/events/gamestate/" + uuid.NewString(), http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/events/other/" + uuid.NewString(), http.StatusBadRequest},
		{http.MethodGet, "/v1/events/gamestate/nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
		if rr.Code != tt.expected {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.expected, rr.Code)
		}
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	broadcaster := events.NewBroadcaster(client, testLogger())

	srv := httptest.NewServer(NewEventsHandler(broadcaster, testLogger()))
	defer srv.Close()

	gameID := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/gamestate/"+gameID.String(), nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("Failed to read stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	if name, _ := readEvent(); name != "connected" {
		t.Fatalf("Expected connected event, got %q", name)
	}

	if err := broadcaster.Publish(ctx, gameID, events.EventTypeDayAdvanced, map[string]any{"day": 2}); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	name, data := readEvent()
	if name != string(events.EventTypeDayAdvanced) {
		t.Errorf("Expected day.advanced, got %q", name)
	}
	if data != `{"day":2}` {
		t.Errorf("Unexpected data %s", data)
	}
}
