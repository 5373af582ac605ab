// Package llm holds the narrow generation contract the pipeline is built
// on. Adapters live in sibling packages.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/researcher/session"
)

// Generator produces text for one request. An empty string is a valid
// answer and callers treat it as a failed stage.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Request struct {
	Model       string
	Instruction string
	Message     string
	SessionID   string
	History     []session.Message
	Tools       []Tool
}

// ParamType is the JSON schema type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Tool is a function the model may call during generation.
type Tool interface {
	Name() string
	Description() string
	Params() []Param
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ErrBuiltin is returned when a builtin tool is invoked locally.
var ErrBuiltin = errors.New("builtin tool is executed by the model provider")

// Builtin marks a tool that the provider runs on its side. Adapters that
// cannot honour it skip it.
type Builtin string

// GoogleSearch grounds generation on Google Search results.
const GoogleSearch Builtin = "google_search"

func (b Builtin) Name() string        { return string(b) }
func (b Builtin) Description() string { return "provider side " + string(b) }
func (b Builtin) Params() []Param     { return nil }
func (b Builtin) Call(context.Context, map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("%s: %w", b, ErrBuiltin)
}

// SplitTools separates provider builtins from callable function tools.
func SplitTools(tools []Tool) (builtins []Builtin, functions []Tool) {
	for _, t := range tools {
		if b, ok := t.(Builtin); ok {
			builtins = append(builtins, b)
			continue
		}
		functions = append(functions, t)
	}
	return builtins, functions
}

// FindTool returns the function tool registered under name.
func FindTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if _, builtin := t.(Builtin); builtin {
			continue
		}
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// CallTool runs a tool and folds a failure into the response map, so the
// model sees the error instead of the loop aborting.
func CallTool(ctx context.Context, tools []Tool, name string, args map[string]any) map[string]any {
	tool, ok := FindTool(tools, name)
	if !ok {
		return map[string]any{"status": "error", "error_message": fmt.Sprintf("unknown tool %q", name)}
	}
	out, err := tool.Call(ctx, args)
	if err != nil {
		return map[string]any{"status": "error", "error_message": err.Error()}
	}
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// StringArg reads a string argument, tolerating non-string JSON values.
func StringArg(args map[string]any, name string) string {
	switch v := args[name].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IntArg reads an integer argument, falling back to def.
func IntArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}
