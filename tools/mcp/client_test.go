package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/researcher/provider/llm"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcReq
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "tools/list":
			resp["result"] = map[string]any{"tools": []any{
				map[string]any{
					"name":        "news.lookup",
					"description": "Looks up news",
					"input_schema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"query": map[string]any{"type": "string", "description": "what to find"},
							"k":     map[string]any{"type": "integer"},
						},
						"required": []any{"query"},
					},
				},
				map[string]any{"name": "camel", "inputSchema": map[string]any{"properties": map[string]any{"flag": map[string]any{"type": "boolean"}}}},
			}}
		case "tools/call":
			params := req.Params
			if params["name"] != "news.lookup" {
				resp["error"] = map[string]any{"code": -32000, "message": "unknown tool"}
				break
			}
			args := params["arguments"].(map[string]any)
			resp["result"] = map[string]any{"status": "success", "echo": args["query"]}
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestToolsListAndCall(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	tools, err := client.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	lookup := tools[0]
	assert.Equal(t, "news.lookup", lookup.Name())
	assert.Equal(t, []llm.Param{
		{Name: "k", Type: llm.TypeInteger},
		{Name: "query", Type: llm.TypeString, Description: "what to find", Required: true},
	}, lookup.Params())
	assert.Equal(t, []llm.Param{{Name: "flag", Type: llm.TypeBoolean}}, tools[1].Params())

	out, err := lookup.Call(context.Background(), map[string]any{"query": "agents"})
	require.NoError(t, err)
	assert.Equal(t, "agents", out["echo"])
}

func TestCallToolRPCError(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.CallTool(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}
