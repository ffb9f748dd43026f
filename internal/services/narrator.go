package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/pangaea/internal/storage"
	"github.com/jwebster45206/pangaea/pkg/chat"
	"github.com/jwebster45206/pangaea/pkg/textfilter"
)

var (
	// ErrServiceUnavailable covers transport failures and non-2xx replies.
	ErrServiceUnavailable = errors.New("narration service unavailable")
	// ErrMissingCredential means no API key is configured.
	ErrMissingCredential = errors.New("narration credential missing")
	// ErrInvalidCredential means the provider rejected the API key.
	ErrInvalidCredential = errors.New("narration credential rejected")
	// ErrMalformedResponse means the provider's envelope could not be decoded.
	ErrMalformedResponse = errors.New("malformed narration response")
	// ErrEmptyReply means the provider answered with no text.
	ErrEmptyReply = errors.New("empty narration reply")
)

// NoReplyText is shown to the player in place of an empty reply.
const NoReplyText = "Sem resposta da IA"

const (
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 500

	defaultHTTPTimeout = 90 * time.Second
)

// NarrationRequest is one call to the narration backend.
type NarrationRequest struct {
	Messages    []chat.ChatMessage
	Temperature float64 // DefaultTemperature when zero
	MaxTokens   int     // DefaultMaxTokens when zero
	JSON        bool    // ask the provider for a JSON object
}

func (r NarrationRequest) temperature() float64 {
	if r.Temperature == 0 {
		return DefaultTemperature
	}
	return r.Temperature
}

func (r NarrationRequest) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Narrator generates narrative text from role-tagged messages.
// The returned text is already sanitised and never empty.
type Narrator interface {
	Complete(ctx context.Context, req NarrationRequest) (string, error)
}

// CredentialSource supplies the API key on every call, so a key set at
// runtime takes effect without a restart.
type CredentialSource interface {
	Get(ctx context.Context) (string, error)
}

func fetchAPIKey(ctx context.Context, creds CredentialSource) (string, error) {
	if creds == nil {
		return "", ErrMissingCredential
	}
	key, err := creds.Get(ctx)
	if errors.Is(err, storage.ErrNoCredential) || (err == nil && strings.TrimSpace(key) == "") {
		return "", ErrMissingCredential
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return key, nil
}

// finishReply sanitises provider output and rejects empty text.
func finishReply(text string) (string, error) {
	text = textfilter.Sanitize(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// postJSON sends payload and returns the raw body of a 2xx reply.
// Status codes map to the package's sentinel errors.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrServiceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidCredential, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, textfilter.TrimRunes(string(body), 200))
	}
	return body, nil
}

// NewNarrator builds the provider named in the configuration.
// Empty baseURL and model fall back to each provider's defaults.
func NewNarrator(provider, baseURL, model string, creds CredentialSource, logger *slog.Logger) (Narrator, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIService(baseURL, model, creds, logger), nil
	case "anthropic":
		return NewAnthropicService(baseURL, model, creds, logger), nil
	case "venice":
		return NewVeniceService(baseURL, model, creds, logger), nil
	case "gemini":
		return NewGeminiService(baseURL, model, creds, logger), nil
	case "mock":
		return NewMockNarrator(), nil
	default:
		return nil, fmt.Errorf("unknown narration provider %q", provider)
	}
}
