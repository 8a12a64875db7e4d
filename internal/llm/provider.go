package llm

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/kindred/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderMock      = "mock"
)

// Temperature and length used for persona replies.
const (
	replyTemperature = 0.8
	replyMaxTokens   = 400
)

// NewClient creates a text generator based on the provider name.
// Returns an error if the provider is unknown or the API key is empty (except for mock).
func NewClient(provider, apiKey string) (domain.TextGenerator, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return NewAnthropicClient(apiKey), nil

	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiClient(apiKey), nil

	case ProviderCerebras:
		if apiKey == "" {
			return nil, fmt.Errorf("CEREBRAS_API_KEY is required for Cerebras provider")
		}
		return NewCerebrasClient(apiKey), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, anthropic, gemini, cerebras, mock)", provider)
	}
}

// chatRole maps a conversation role onto the user/assistant pair every
// provider accepts.
func chatRole(role string) string {
	if role == domain.RoleAssistant {
		return domain.RoleAssistant
	}
	return domain.RoleUser
}

// UnavailableClient fails every completion with the error that kept the
// real provider from starting, so callers fall back instead of crashing.
type UnavailableClient struct {
	Err error
}

func (c UnavailableClient) Complete(ctx context.Context, system string, messages []domain.Message) (string, error) {
	return "", fmt.Errorf("text generator unavailable: %w", c.Err)
}
