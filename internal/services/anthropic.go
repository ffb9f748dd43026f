package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/pangaea/pkg/chat"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-haiku-latest"

	// Anthropic has no JSON response mode; the instruction goes in the system prompt.
	anthropicJSONInstruction = "Responda somente com o objeto JSON, sem texto antes ou depois."
)

// AnthropicService implements Narrator for Anthropic Claude
type AnthropicService struct {
	baseURL    string
	modelName  string
	creds      CredentialSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure AnthropicService implements Narrator interface
var _ Narrator = (*AnthropicService)(nil)

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(baseURL, modelName string, creds CredentialSource, logger *slog.Logger) *AnthropicService {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	if modelName == "" {
		modelName = anthropicDefaultModel
	}
	return &AnthropicService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelName:  modelName,
		creds:      creds,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// Complete sends the conversation to the Messages API. System turns are
// merged into the top-level system field.
func (a *AnthropicService) Complete(ctx context.Context, req NarrationRequest) (string, error) {
	apiKey, err := fetchAPIKey(ctx, a.creds)
	if err != nil {
		return "", err
	}

	systemPrompt, conversation := chat.SplitSystem(req.Messages)
	if req.JSON {
		systemPrompt = strings.TrimSpace(systemPrompt + "\n\n" + anthropicJSONInstruction)
	}

	temperature := req.temperature()
	anthropicReq := AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   req.maxTokens(),
		Temperature: &temperature,
		Messages:    conversation,
		System:      systemPrompt,
	}

	raw, err := postJSON(ctx, a.httpClient, a.baseURL+"/messages", map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": anthropicVersion,
	}, anthropicReq)
	if err != nil {
		a.logger.Warn("Narration request failed", "provider", "anthropic", "model", a.modelName, "error", err)
		return "", err
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(raw, &anthropicResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if anthropicResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrServiceUnavailable, anthropicResp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return finishReply(sb.String())
}
