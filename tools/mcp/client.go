// Package mcp is a JSON-RPC over HTTP client for a remote tool server
// speaking tools/list and tools/call.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/utils"
)

type rpcReq struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResp struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message) }

// ToolDesc describes one remote tool.
type ToolDesc struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
	// some servers use the camelCase spelling
	InputSchemaAlt map[string]any `json:"inputSchema,omitempty"`
}

func (d ToolDesc) schema() map[string]any {
	if d.InputSchema != nil {
		return d.InputSchema
	}
	return d.InputSchemaAlt
}

type Client struct {
	url  string
	http *utils.HTTPClient
	seq  atomic.Int64
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: utils.NewHTTPClient(timeout, 0, 0)}
}

func (c *Client) send(ctx context.Context, method string, params map[string]any, out any) error {
	req := rpcReq{JSONRPC: "2.0", ID: c.seq.Add(1), Method: method, Params: params}
	var resp rpcResp
	if err := c.http.DoJSON(ctx, "POST", c.url, nil, req, &resp); err != nil {
		return fmt.Errorf("mcp %s: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if len(resp.Result) == 0 {
		return fmt.Errorf("mcp %s: empty result", method)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("mcp %s: decode result: %w", method, err)
	}
	return nil
}

func (c *Client) ListTools(ctx context.Context) ([]ToolDesc, error) {
	var res struct {
		Tools []ToolDesc `json:"tools"`
	}
	if err := c.send(ctx, "tools/list", nil, &res); err != nil {
		return nil, err
	}
	if res.Tools == nil {
		return nil, errors.New("invalid tools/list result")
	}
	return res.Tools, nil
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	var res map[string]any
	if err := c.send(ctx, "tools/call", map[string]any{"name": name, "arguments": args}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Tools lists the remote tools and wraps each as an llm.Tool.
func (c *Client) Tools(ctx context.Context) ([]llm.Tool, error) {
	descs, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Tool, 0, len(descs))
	for _, d := range descs {
		if d.Name == "" {
			continue
		}
		out = append(out, RemoteTool{client: c, desc: d})
	}
	return out, nil
}

// RemoteTool forwards calls to the MCP server.
type RemoteTool struct {
	client *Client
	desc   ToolDesc
}

func (t RemoteTool) Name() string        { return t.desc.Name }
func (t RemoteTool) Description() string { return t.desc.Description }

func (t RemoteTool) Params() []llm.Param {
	schema := t.desc.schema()
	props, _ := schema["properties"].(map[string]any)
	required := map[string]bool{}
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]llm.Param, 0, len(names))
	for _, name := range names {
		p := llm.Param{Name: name, Type: llm.TypeString, Required: required[name]}
		if spec, ok := props[name].(map[string]any); ok {
			p.Description = utils.Str(spec["description"])
			switch spec["type"] {
			case "integer":
				p.Type = llm.TypeInteger
			case "number":
				p.Type = llm.TypeNumber
			case "boolean":
				p.Type = llm.TypeBoolean
			}
		}
		params = append(params, p)
	}
	return params
}

func (t RemoteTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.client.CallTool(ctx, t.desc.Name, args)
}
