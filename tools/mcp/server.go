package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/provider/llm"
)

const (
	codeMethodNotFound = -32601
	codeParseError     = -32700
	codeToolError      = -32000

	defaultCallTimeout = 60 * time.Second
)

type inboundReq struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type outboundResp struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

// Server exposes local tools over tools/list and tools/call, either on HTTP
// or as a line oriented stdio loop.
type Server struct {
	tools       []llm.Tool
	descs       []ToolDesc
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// NewServer registers tools. Provider builtins are not callable and are
// left out.
func NewServer(tools ...llm.Tool) *Server {
	_, functions := llm.SplitTools(tools)
	descs := make([]ToolDesc, 0, len(functions))
	for _, t := range functions {
		descs = append(descs, ToolDesc{Name: t.Name(), Description: t.Description(), InputSchema: InputSchema(t.Params())})
	}
	return &Server{tools: functions, descs: descs, CallTimeout: defaultCallTimeout}
}

// InputSchema renders params as a JSON schema object.
func InputSchema(params []llm.Param) map[string]any {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Server) handle(ctx context.Context, req inboundReq) outboundResp {
	resp := outboundResp{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "tools/list":
		resp.Result = map[string]any{"tools": s.descs}
	case "tools/call":
		name, _ := req.Params["name"].(string)
		args, _ := req.Params["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		tool, ok := llm.FindTool(s.tools, name)
		if !ok {
			resp.Error = &rpcError{Code: codeToolError, Message: fmt.Sprintf("unknown tool: %s", name)}
			return resp
		}
		timeout := s.CallTimeout
		if timeout <= 0 {
			timeout = defaultCallTimeout
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := tool.Call(cctx, args)
		if err != nil {
			s.logger().Warn("tool call failed", zap.String("tool", name), zap.Error(err))
			resp.Error = &rpcError{Code: codeToolError, Message: err.Error()}
			return resp
		}
		if out == nil {
			out = map[string]any{}
		}
		resp.Result = out
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)}
	}
	return resp
}

// ServeHTTP answers one JSON-RPC request per POST.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req inboundReq
	var resp outboundResp
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp = outboundResp{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: err.Error()}}
	} else {
		resp = s.handle(r.Context(), req)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Serve reads requests from in until EOF and writes one response per line
// to out. Requests of the wrong shape are skipped; malformed JSON ends
// the loop.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	dec := json.NewDecoder(bufio.NewReader(in))
	enc := json.NewEncoder(out)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req inboundReq
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return fmt.Errorf("mcp serve: %w", err)
			}
			s.logger().Debug("skipping malformed request", zap.Error(err))
			continue
		}
		if err := enc.Encode(s.handle(ctx, req)); err != nil {
			return fmt.Errorf("mcp serve: %w", err)
		}
	}
}
