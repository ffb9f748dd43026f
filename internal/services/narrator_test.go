package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/pangaea/internal/storage"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCreds struct {
	key string
	err error
}

func (s staticCreds) Get(ctx context.Context) (string, error) {
	return s.key, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testMessages = []chat.ChatMessage{
	{Role: chat.ChatRoleSystem, Content: "Você é o narrador."},
	{Role: chat.ChatRoleUser, Content: "Gere um evento."},
}

// providerCase builds a provider against a test server and knows how to write
// a successful reply carrying text.
type providerCase struct {
	name     string
	newFn    func(baseURL string, creds CredentialSource) Narrator
	path     string
	okBody   func(text string) string
	checkReq func(t *testing.T, r *http.Request, body map[string]any)
}

func providerCases() []providerCase {
	return []providerCase{
		{
			name: "openai",
			newFn: func(baseURL string, creds CredentialSource) Narrator {
				return NewOpenAIService(baseURL, "", creds, discardLogger())
			},
			path: "/chat/completions",
			okBody: func(text string) string {
				b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": text}}}})
				return string(b)
			},
			checkReq: func(t *testing.T, r *http.Request, body map[string]any) {
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				assert.Equal(t, openAIDefaultModel, body["model"])
				assert.InDelta(t, 0.8, body["temperature"], 0.0001)
				assert.EqualValues(t, 500, body["max_tokens"])
				assert.Len(t, body["messages"], 2)
			},
		},
		{
			name: "venice",
			newFn: func(baseURL string, creds CredentialSource) Narrator {
				return NewVeniceService(baseURL, "", creds, discardLogger())
			},
			path: "/chat/completions",
			okBody: func(text string) string {
				b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": text}}}})
				return string(b)
			},
			checkReq: func(t *testing.T, r *http.Request, body map[string]any) {
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				params, ok := body["venice_parameters"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, false, params["include_venice_system_prompt"])
				assert.Equal(t, "off", params["enable_web_search"])
			},
		},
		{
			name: "anthropic",
			newFn: func(baseURL string, creds CredentialSource) Narrator {
				return NewAnthropicService(baseURL, "", creds, discardLogger())
			},
			path: "/messages",
			okBody: func(text string) string {
				b, _ := json.Marshal(map[string]any{"content": []any{map[string]any{"type": "text", "text": text}}})
				return string(b)
			},
			checkReq: func(t *testing.T, r *http.Request, body map[string]any) {
				assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
				assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
				assert.Equal(t, "Você é o narrador.", body["system"])
				assert.Len(t, body["messages"], 1, "system turns are lifted out of messages")
			},
		},
	}
}

func newServer(t *testing.T, path string, status int, body string, inspect func(r *http.Request, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var decoded map[string]any
		_ = json.NewDecoder(r.Body).Decode(&decoded)
		if inspect != nil {
			inspect(r, decoded)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProviders_Success(t *testing.T) {
	for _, pc := range providerCases() {
		t.Run(pc.name, func(t *testing.T) {
			srv := newServer(t, pc.path, http.StatusOK, pc.okBody("  Uma tempestade <script>x()</script>chega. "),
				func(r *http.Request, body map[string]any) { pc.checkReq(t, r, body) })

			n := pc.newFn(srv.URL, staticCreds{key: "sk-test"})
			text, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
			require.NoError(t, err)
			assert.Equal(t, "Uma tempestade chega.", text)
		})
	}
}

func TestProviders_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, ErrInvalidCredential},
		{"forbidden", http.StatusForbidden, `{}`, ErrInvalidCredential},
		{"server error", http.StatusInternalServerError, `oops`, ErrServiceUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrServiceUnavailable},
		{"garbage envelope", http.StatusOK, `<html>`, ErrMalformedResponse},
	}

	for _, pc := range providerCases() {
		for _, tt := range tests {
			t.Run(pc.name+"/"+tt.name, func(t *testing.T) {
				srv := newServer(t, pc.path, tt.status, tt.body, nil)
				n := pc.newFn(srv.URL, staticCreds{key: "sk-test"})

				_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
				assert.True(t, errors.Is(err, tt.expected), "got %v", err)
			})
		}
	}
}

func TestProviders_EmptyReply(t *testing.T) {
	for _, pc := range providerCases() {
		t.Run(pc.name, func(t *testing.T) {
			srv := newServer(t, pc.path, http.StatusOK, pc.okBody("   "), nil)
			n := pc.newFn(srv.URL, staticCreds{key: "sk-test"})

			_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
			assert.ErrorIs(t, err, ErrEmptyReply)
		})
	}
}

func TestProviders_MissingCredential(t *testing.T) {
	creds := []CredentialSource{
		staticCreds{err: storage.ErrNoCredential},
		staticCreds{key: "  "},
		storage.NewCredentialStore(storage.NewMemoryKV()),
	}

	for _, pc := range providerCases() {
		t.Run(pc.name, func(t *testing.T) {
			called := false
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			defer srv.Close()

			for _, c := range creds {
				_, err := pc.newFn(srv.URL, c).Complete(context.Background(), NarrationRequest{Messages: testMessages})
				assert.ErrorIs(t, err, ErrMissingCredential)
			}
			assert.False(t, called, "no request without a key")
		})
	}
}

func TestProviders_CredentialBackendError(t *testing.T) {
	n := NewOpenAIService("http://127.0.0.1:1", "", staticCreds{err: errors.New("redis down")}, discardLogger())
	_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestProviders_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := NewOpenAIService(url, "", staticCreds{key: "k"}, discardLogger())
	_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestOpenAIService_JSONMode(t *testing.T) {
	var format any
	srv := newServer(t, "/chat/completions", http.StatusOK,
		`{"choices":[{"message":{"content":"{\"success\":true}"}}]}`,
		func(r *http.Request, body map[string]any) { format = body["response_format"] })

	n := NewOpenAIService(srv.URL, "custom-model", staticCreds{key: "k"}, discardLogger())
	text, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages, JSON: true, Temperature: 0.2, MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, `{"success":true}`, text)
	assert.Equal(t, map[string]any{"type": "json_object"}, format)
}

func TestOpenAIService_NoChoices(t *testing.T) {
	srv := newServer(t, "/chat/completions", http.StatusOK, `{"choices":[]}`, nil)
	n := NewOpenAIService(srv.URL, "", staticCreds{key: "k"}, discardLogger())
	_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestAnthropicService_JSONInstruction(t *testing.T) {
	var system any
	srv := newServer(t, "/messages", http.StatusOK, `{"content":[{"type":"text","text":"{}"}]}`,
		func(r *http.Request, body map[string]any) { system = body["system"] })

	n := NewAnthropicService(srv.URL, "", staticCreds{key: "k"}, discardLogger())
	_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages, JSON: true})
	require.NoError(t, err)
	assert.Contains(t, system, anthropicJSONInstruction)
}

func TestGeminiService_Success(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		if r.URL.Query().Get("key") != "" {
			gotKey = r.URL.Query().Get("key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"A maré sobe."}]}}]}`))
	}))
	defer srv.Close()

	n := NewGeminiService(srv.URL, "", staticCreds{key: "g-key"}, discardLogger())
	text, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
	require.NoError(t, err)
	assert.Equal(t, "A maré sobe.", text)
	assert.Equal(t, "g-key", gotKey)
}

func TestGeminiService_MissingCredential(t *testing.T) {
	n := NewGeminiService("", "", staticCreds{err: storage.ErrNoCredential}, discardLogger())
	_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestGeminiService_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
	}))
	defer srv.Close()

	n := NewGeminiService(srv.URL, "", staticCreds{key: "g"}, discardLogger())
	_, err := n.Complete(context.Background(), NarrationRequest{Messages: testMessages})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredential))
}

func TestNewNarrator(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "venice", "gemini", "mock", "OpenAI"} {
		n, err := NewNarrator(provider, "", "", staticCreds{}, discardLogger())
		require.NoError(t, err, provider)
		assert.NotNil(t, n)
	}

	_, err := NewNarrator("ollama", "", "", nil, discardLogger())
	assert.Error(t, err)
}

func TestMockNarrator(t *testing.T) {
	m := NewMockNarrator()

	text, err := m.Complete(context.Background(), NarrationRequest{})
	require.NoError(t, err)
	assert.Equal(t, mockReply, text)

	text, _ = m.Complete(context.Background(), NarrationRequest{JSON: true})
	assert.JSONEq(t, mockJSONReply, text)

	m.CompleteFunc = func(ctx context.Context, req NarrationRequest) (string, error) {
		return "", ErrServiceUnavailable
	}
	_, err = m.Complete(context.Background(), NarrationRequest{MaxTokens: 7})
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	assert.Equal(t, 3, m.Calls())
	last, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, 7, last.MaxTokens)
}
