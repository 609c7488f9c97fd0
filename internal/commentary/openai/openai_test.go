package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/swingsim/internal/commentary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ commentary.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "model")
	assert.Error(t, err)
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("test-key", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.model)
	assert.Equal(t, "openai", p.Name())
}

func TestProvider_Chat(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Flat market."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 90, "completion_tokens": 4, "total_tokens": 94}
		}`))
	}))
	defer server.Close()

	p, err := NewWithBaseURL("test-key", "gpt-test", server.URL+"/v1")
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), commentary.ChatRequest{
		SystemPrompt: "be brief",
		Messages:     []commentary.Message{{Role: "user", Content: "Pair: ETHUSD"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Flat market.", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 90, resp.Usage.InputTokens)

	assert.Equal(t, "gpt-test", body.Model)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "user", body.Messages[1].Role)
}
