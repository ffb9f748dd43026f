package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/pangaea/pkg/chat"
	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.0-flash"

// GeminiService implements Narrator with the Gemini API.
type GeminiService struct {
	baseURL   string
	modelName string
	creds     CredentialSource
	logger    *slog.Logger
}

// Ensure GeminiService implements Narrator interface
var _ Narrator = (*GeminiService)(nil)

// NewGeminiService creates the provider. The client is built per call
// because the API key can change at runtime.
func NewGeminiService(baseURL, modelName string, creds CredentialSource, logger *slog.Logger) *GeminiService {
	if modelName == "" {
		modelName = geminiDefaultModel
	}
	return &GeminiService{
		baseURL:   baseURL,
		modelName: modelName,
		creds:     creds,
		logger:    logger,
	}
}

func (g *GeminiService) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(),
	}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	return genai.NewClient(ctx, cfg)
}

// Complete converts the messages to Gemini contents: system turns become the
// system instruction and assistant turns the model role.
func (g *GeminiService) Complete(ctx context.Context, req NarrationRequest) (string, error) {
	apiKey, err := fetchAPIKey(ctx, g.creds)
	if err != nil {
		return "", err
	}

	client, err := g.client(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	systemPrompt, conversation := chat.SplitSystem(req.Messages)
	var contents []*genai.Content
	for _, msg := range conversation {
		role := genai.RoleUser
		if msg.Role == chat.ChatRoleAgent {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	temp := float32(req.temperature())
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.maxTokens()),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		g.logger.Warn("Narration request failed", "provider", "gemini", "model", g.modelName, "error", err)
		return "", mapGeminiError(err)
	}
	return finishReply(extractText(resp))
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: %s", ErrInvalidCredential, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

func extractText(res *genai.GenerateContentResponse) string {
	if res == nil {
		return ""
	}
	for _, c := range res.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}
