package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConversation = []domain.Message{
	{Role: domain.RoleUser, Content: "I miss you"},
	{Role: domain.RoleAssistant, Content: "I'm right here, kiddo."},
	{Role: domain.RoleUser, Content: "Tell me about the lake"},
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		apiKey   string
		wantErr  bool
	}{
		{ProviderOpenAI, "sk-test", false},
		{ProviderOpenAI, "", true},
		{ProviderAnthropic, "key", false},
		{ProviderAnthropic, "", true},
		{ProviderGemini, "key", false},
		{ProviderCerebras, "", true},
		{ProviderMock, "", false},
		{"bogus", "key", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  The water was like glass.  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test")
	c.url = srv.URL

	text, err := c.Complete(context.Background(), "You are Grandpa Joe.", testConversation)
	require.NoError(t, err)
	assert.Equal(t, "The water was like glass.", text)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "You are Grandpa Joe.", got.Messages[0].Content)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, chatModel, got.Model)
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test")
	c.url = srv.URL

	_, err := c.Complete(context.Background(), "sys", testConversation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Still as pretty "},{"type":"text","text":"as ever."}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key")
	c.url = srv.URL

	text, err := c.Complete(context.Background(), "You are Grandpa Joe.", testConversation)
	require.NoError(t, err)
	assert.Equal(t, "Still as pretty as ever.", text)
	assert.Equal(t, "You are Grandpa Joe.", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "assistant", got.Messages[1].Role)
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key")
	c.url = srv.URL

	_, err := c.Complete(context.Background(), "sys", testConversation)
	assert.Error(t, err)
}

func TestGeminiClient_Complete(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello!"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("key")
	c.url = srv.URL

	text, err := c.Complete(context.Background(), "You are Nana.", testConversation)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "You are Nana.", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "model", got.Contents[1].Role)
}

func TestCerebrasClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, cerebrasModel, req.Model)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hey"}}]}`))
	}))
	defer srv.Close()

	c := NewCerebrasClient("key")
	c.url = srv.URL

	text, err := c.Complete(context.Background(), "sys", testConversation)
	require.NoError(t, err)
	assert.Equal(t, "hey", text)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()
	m.Responses = []string{"first", "second"}
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second"} {
		got, err := m.Complete(ctx, "sys", testConversation)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	require.Len(t, m.CompleteCalls, 3)
	assert.Equal(t, "sys", m.CompleteCalls[0].System)

	m.CompleteError = errors.New("boom")
	_, err := m.Complete(ctx, "sys", nil)
	assert.Error(t, err)

	m.Reset()
	got, err := m.Complete(ctx, "sys", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "It's so good"))
}

func TestUnavailableClient(t *testing.T) {
	cause := errors.New("missing key")
	_, err := UnavailableClient{Err: cause}.Complete(context.Background(), "sys", nil)
	assert.ErrorIs(t, err, cause)
}
