package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/kindred/internal/domain"
)

// CompleteCall records the inputs of one Complete invocation.
type CompleteCall struct {
	System   string
	Messages []domain.Message
}

// MockClient is a configurable text generator for testing and local runs.
// Responses are returned in order; once exhausted the last one repeats.
type MockClient struct {
	mu sync.Mutex

	Responses     []string
	CompleteError error

	// Call tracking for assertions
	CompleteCalls []CompleteCall
}

func NewMockClient() *MockClient {
	return &MockClient{Responses: []string{"It's so good to hear from you."}}
}

func (c *MockClient) Complete(ctx context.Context, system string, messages []domain.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CompleteCalls = append(c.CompleteCalls, CompleteCall{
		System:   system,
		Messages: append([]domain.Message(nil), messages...),
	})
	if c.CompleteError != nil {
		return "", c.CompleteError
	}
	if len(c.Responses) == 0 {
		return "", nil
	}
	idx := len(c.CompleteCalls) - 1
	if idx >= len(c.Responses) {
		idx = len(c.Responses) - 1
	}
	return c.Responses[idx], nil
}

// Reset clears all recorded calls and restores the default response.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses = []string{"It's so good to hear from you."}
	c.CompleteError = nil
	c.CompleteCalls = nil
}
