package services

import (
	"context"
	"sync"
)

// MockNarrator is a Narrator for tests and offline play.
type MockNarrator struct {
	CompleteFunc func(ctx context.Context, req NarrationRequest) (string, error)

	// Track calls for testing
	CompleteCalls []NarrationRequest

	mu sync.Mutex // protects all fields above
}

// Ensure MockNarrator implements Narrator interface
var _ Narrator = (*MockNarrator)(nil)

// mockReply is returned when no CompleteFunc is set.
const mockReply = "O vento muda de direção e o grupo se reúne no bunker."

// mockJSONReply is returned for JSON requests when no CompleteFunc is set.
const mockJSONReply = `{"success": true, "description": "A expedição voltou em segurança."}`

func NewMockNarrator() *MockNarrator {
	return &MockNarrator{
		CompleteCalls: make([]NarrationRequest, 0),
	}
}

// Complete records the call and delegates to CompleteFunc when set.
func (m *MockNarrator) Complete(ctx context.Context, req NarrationRequest) (string, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if req.JSON {
		return mockJSONReply, nil
	}
	return mockReply, nil
}

// Calls returns how many times Complete was called.
func (m *MockNarrator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompleteCalls)
}

// LastRequest returns the most recent request.
func (m *MockNarrator) LastRequest() (NarrationRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CompleteCalls) == 0 {
		return NarrationRequest{}, false
	}
	return m.CompleteCalls[len(m.CompleteCalls)-1], true
}
