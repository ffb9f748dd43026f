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
	veniceBaseURL      = "https://api.venice.ai/api/v1"
	veniceDefaultModel = "llama-3.3-70b"
)

// VeniceService implements Narrator for Venice AI
type VeniceService struct {
	baseURL    string
	modelName  string
	creds      CredentialSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure VeniceService implements Narrator interface
var _ Narrator = (*VeniceService)(nil)

type VeniceResponseFormat struct {
	Type string `json:"type"`
}

type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

// VeniceChatRequest represents the request structure for Venice AI chat completions
type VeniceChatRequest struct {
	Model            string                `json:"model"`
	Messages         []chat.ChatMessage    `json:"messages"`
	Temperature      float64               `json:"temperature,omitempty"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	Stream           bool                  `json:"stream"`
	ResponseFormat   *VeniceResponseFormat `json:"response_format,omitempty"`
	VeniceParameters VeniceParameters      `json:"venice_parameters"`
}

// VeniceChatResponse represents the response structure for Venice AI chat completions
type VeniceChatResponse struct {
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
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func NewVeniceService(baseURL, modelName string, creds CredentialSource, logger *slog.Logger) *VeniceService {
	if baseURL == "" {
		baseURL = veniceBaseURL
	}
	if modelName == "" {
		modelName = veniceDefaultModel
	}
	return &VeniceService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelName:  modelName,
		creds:      creds,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// Complete makes a chat completion request to Venice AI. Venice's own system
// prompt and web search are always off so replies stay in character.
func (v *VeniceService) Complete(ctx context.Context, req NarrationRequest) (string, error) {
	apiKey, err := fetchAPIKey(ctx, v.creds)
	if err != nil {
		return "", err
	}

	veniceReq := VeniceChatRequest{
		Model:       v.modelName,
		Messages:    req.Messages,
		Temperature: req.temperature(),
		MaxTokens:   req.maxTokens(),
		Stream:      false,
		VeniceParameters: VeniceParameters{
			IncludeVeniceSystemPrompt: false,
			EnableWebSearch:           "off",
		},
	}
	if req.JSON {
		veniceReq.ResponseFormat = &VeniceResponseFormat{Type: "json_object"}
	}

	raw, err := postJSON(ctx, v.httpClient, v.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + apiKey}, veniceReq)
	if err != nil {
		v.logger.Warn("Narration request failed", "provider", "venice", "model", v.modelName, "error", err)
		return "", err
	}

	var veniceResp VeniceChatResponse
	if err := json.Unmarshal(raw, &veniceResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if veniceResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrServiceUnavailable, veniceResp.Error.Message)
	}
	if len(veniceResp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return finishReply(veniceResp.Choices[0].Message.Content)
}
