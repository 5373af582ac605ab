package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/session"
	"github.com/mohammad-safakhou/researcher/utils"
)

const defaultBaseURL = "https://api.openai.com/v1"

// message represents a message in a conversation
type message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// request represents a request to the chat completions API
type request struct {
	Model       string     `json:"model"`
	Messages    []message  `json:"messages"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Tools       []toolSpec `json:"tools,omitempty"`
}

// response represents a response from the chat completions API
type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type Options struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	MaxToolTurns int
	Temperature  float64
	MaxTokens    int
}

// Client implements llm.Generator on an OpenAI compatible chat
// completions endpoint.
type Client struct {
	apiKey       string
	endpoint     string
	temperature  float64
	maxTokens    int
	maxToolTurns int
	http         *utils.HTTPClient
	logger       *zap.Logger
}

var _ llm.Generator = (*Client)(nil)

func NewOpenAIClient(opts Options, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	turns := opts.MaxToolTurns
	if turns <= 0 {
		turns = 4
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		apiKey:       opts.APIKey,
		endpoint:     base + "/chat/completions",
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
		maxToolTurns: turns,
		http:         utils.NewHTTPClient(timeout, 1, 500*time.Millisecond),
		logger:       logger.Named("openai"),
	}, nil
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	builtins, functions := llm.SplitTools(req.Tools)
	for _, b := range builtins {
		c.logger.Debug("builtin tool not supported, skipped", zap.String("tool", b.Name()))
	}

	messages := make([]message, 0, len(req.History)+2)
	if req.Instruction != "" {
		messages = append(messages, message{Role: "system", Content: req.Instruction})
	}
	for _, h := range req.History {
		role := "assistant"
		if h.Role == session.RoleUser {
			role = "user"
		}
		messages = append(messages, message{Role: role, Content: h.Content})
	}
	messages = append(messages, message{Role: "user", Content: req.Message})

	body := request{
		Model:       req.Model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Tools:       toolSpecs(functions),
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	for turn := 0; ; turn++ {
		body.Messages = messages
		var resp response
		if err := c.http.DoJSON(ctx, "POST", c.endpoint, headers, body, &resp); err != nil {
			return "", fmt.Errorf("chat completion (model %s): %w", req.Model, err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in response")
		}

		reply := resp.Choices[0].Message
		if len(reply.ToolCalls) == 0 || turn >= c.maxToolTurns {
			if len(reply.ToolCalls) > 0 {
				c.logger.Warn("tool turn limit reached", zap.Int("turns", turn), zap.String("session", req.SessionID))
			}
			return strings.TrimSpace(reply.Content), nil
		}

		reply.Role = "assistant"
		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			args := map[string]any{}
			if call.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
					c.logger.Warn("malformed tool arguments", zap.String("tool", call.Function.Name), zap.Error(err))
				}
			}
			c.logger.Debug("tool call", zap.String("tool", call.Function.Name), zap.String("session", req.SessionID))
			result := llm.CallTool(ctx, functions, call.Function.Name, args)
			encoded, err := json.Marshal(result)
			if err != nil {
				encoded = []byte(fmt.Sprintf(`{"status":"error","error_message":%q}`, err.Error()))
			}
			messages = append(messages, message{Role: "tool", Content: string(encoded), ToolCallID: call.ID})
		}
	}
}

func toolSpecs(tools []llm.Tool) []toolSpec {
	if len(tools) == 0 {
		return nil
	}
	out := make([]toolSpec, 0, len(tools))
	for _, t := range tools {
		props := map[string]any{}
		required := []string{}
		for _, p := range t.Params() {
			props[p.Name] = map[string]any{"type": string(p.Type), "description": p.Description}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, toolSpec{
			Type: "function",
			Function: functionSpec{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  map[string]any{"type": "object", "properties": props, "required": required},
			},
		})
	}
	return out
}
