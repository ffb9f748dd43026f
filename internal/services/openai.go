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
	// The game shipped against DeepSeek V3 served through the chutes.ai
	// OpenAI-compatible gateway.
	openAIDefaultBaseURL = "https://llm.chutes.ai/v1"
	openAIDefaultModel   = "deepseek-ai/DeepSeek-V3-0324"
)

// OpenAIService implements Narrator for any OpenAI-compatible chat
// completions endpoint.
type OpenAIService struct {
	baseURL    string
	modelName  string
	creds      CredentialSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure OpenAIService implements Narrator interface
var _ Narrator = (*OpenAIService)(nil)

type OpenAIResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

// OpenAIChatRequest is the chat completions request body.
type OpenAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []chat.ChatMessage    `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens"`
	Stream         bool                  `json:"stream"`
	ResponseFormat *OpenAIResponseFormat `json:"response_format,omitempty"`
}

// OpenAIChatResponse is the subset of the reply we read.
type OpenAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIService(baseURL, modelName string, creds CredentialSource, logger *slog.Logger) *OpenAIService {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	if modelName == "" {
		modelName = openAIDefaultModel
	}
	return &OpenAIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelName:  modelName,
		creds:      creds,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// Complete sends one chat completion request.
func (o *OpenAIService) Complete(ctx context.Context, req NarrationRequest) (string, error) {
	apiKey, err := fetchAPIKey(ctx, o.creds)
	if err != nil {
		return "", err
	}

	body := OpenAIChatRequest{
		Model:       o.modelName,
		Messages:    req.Messages,
		Temperature: req.temperature(),
		MaxTokens:   req.maxTokens(),
	}
	if req.JSON {
		body.ResponseFormat = &OpenAIResponseFormat{Type: "json_object"}
	}

	raw, err := postJSON(ctx, o.httpClient, o.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + apiKey}, body)
	if err != nil {
		o.logger.Warn("Narration request failed", "provider", "openai", "model", o.modelName, "error", err)
		return "", err
	}

	var resp OpenAIChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrServiceUnavailable, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return finishReply(resp.Choices[0].Message.Content)
}
