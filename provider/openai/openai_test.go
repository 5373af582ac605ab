package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/provider/llm"
)

type searchTool struct{}

func (searchTool) Name() string        { return "web_search" }
func (searchTool) Description() string { return "searches" }
func (searchTool) Params() []llm.Param {
	return []llm.Param{{Name: "query", Type: llm.TypeString, Required: true}}
}
func (searchTool) Call(_ context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"results": []any{map[string]any{"link": "https://r.example", "q": args["query"]}}}, nil
}

func TestGenerateToolLoop(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var requests []request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		requests = append(requests, req)
		n := len(requests)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"c1","type":"function","function":{"name":"web_search","arguments":"{\"query\":\"agentic AI\"}"}}]}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" [{\"link\":\"https://r.example\"}] "}}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, zap.NewNop())
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), llm.Request{
		Model:       "gpt-test",
		Instruction: "You are a search agent.",
		Message:     "Search for: agentic AI",
		Tools:       []llm.Tool{llm.GoogleSearch, searchTool{}},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"link":"https://r.example"}]`, out)

	require.Len(t, requests, 2)
	first := requests[0]
	assert.Equal(t, "gpt-test", first.Model)
	require.Len(t, first.Tools, 1)
	assert.Equal(t, "web_search", first.Tools[0].Function.Name)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, "system", first.Messages[0].Role)

	second := requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, "assistant", second[2].Role)
	assert.Equal(t, "tool", second[3].Role)
	assert.Equal(t, "c1", second[3].ToolCallID)
	assert.Contains(t, second[3].Content, "agentic AI")
}

func TestGenerateReportsHTTPErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Options{APIKey: "bad", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), llm.Request{Model: "m", Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()
	_, err := NewOpenAIClient(Options{}, nil)
	assert.Error(t, err)
}
