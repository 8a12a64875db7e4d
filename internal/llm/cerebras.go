package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Harshitk-cp/kindred/internal/domain"
)

const (
	cerebrasAPIURL = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasModel  = "llama-3.3-70b"
)

// CerebrasClient talks to Cerebras' OpenAI-compatible endpoint.
type CerebrasClient struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

func NewCerebrasClient(apiKey string) *CerebrasClient {
	return &CerebrasClient{
		apiKey:     apiKey,
		url:        cerebrasAPIURL,
		httpClient: &http.Client{},
	}
}

func (c *CerebrasClient) Complete(ctx context.Context, system string, messages []domain.Message) (string, error) {
	text, err := postChatCompletion(ctx, c.httpClient, c.url, c.apiKey, chatRequest{
		Model:       cerebrasModel,
		Messages:    chatMessages(system, messages),
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("cerebras: %w", err)
	}
	return text, nil
}
