package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/session"
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type Options struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	MaxToolTurns int
	Temperature  float64
	MaxTokens    int
}

// Client implements llm.Generator on the Gemini API, running function
// calls locally until the model answers with text.
type Client struct {
	generate     generateFunc
	logger       *zap.Logger
	timeout      time.Duration
	maxToolTurns int
	temperature  float32
	maxTokens    int32
}

var _ llm.Generator = (*Client)(nil)

func New(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newClient(client.Models.GenerateContent, opts, logger), nil
}

func newClient(generate generateFunc, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	turns := opts.MaxToolTurns
	if turns <= 0 {
		turns = 4
	}
	return &Client{
		generate:     generate,
		logger:       logger.Named("gemini"),
		timeout:      opts.Timeout,
		maxToolTurns: turns,
		temperature:  float32(opts.Temperature),
		maxTokens:    int32(opts.MaxTokens),
	}
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	builtins, functions := llm.SplitTools(req.Tools)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
		Tools:       c.tools(builtins, functions),
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}
	if req.Instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}
	if len(builtins) > 0 {
		// grounding and function calling cannot share a request
		functions = nil
	}

	contents := historyContents(req.History)
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	for turn := 0; ; turn++ {
		resp, err := c.generate(ctx, req.Model, contents, config)
		if err != nil {
			return "", fmt.Errorf("gemini generate (model %s): %w", req.Model, err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 || turn >= c.maxToolTurns {
			if len(calls) > 0 {
				c.logger.Warn("tool turn limit reached", zap.Int("turns", turn), zap.String("session", req.SessionID))
			}
			return strings.TrimSpace(resp.Text()), nil
		}

		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			contents = append(contents, resp.Candidates[0].Content)
		}
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			c.logger.Debug("tool call", zap.String("tool", call.Name), zap.String("session", req.SessionID))
			result := llm.CallTool(ctx, functions, call.Name, call.Args)
			part := genai.NewPartFromFunctionResponse(call.Name, result)
			part.FunctionResponse.ID = call.ID
			parts = append(parts, part)
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
}

func (c *Client) tools(builtins []llm.Builtin, functions []llm.Tool) []*genai.Tool {
	var out []*genai.Tool
	for _, b := range builtins {
		switch b {
		case llm.GoogleSearch:
			out = append(out, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		default:
			c.logger.Debug("unsupported builtin tool skipped", zap.String("tool", b.Name()))
		}
	}
	if len(out) > 0 {
		if len(functions) > 0 {
			c.logger.Warn("function tools dropped in favour of builtin search", zap.Int("dropped", len(functions)))
		}
		return out
	}
	if len(functions) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(functions))
	for _, t := range functions {
		decls = append(decls, declaration(t))
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func declaration(t llm.Tool) *genai.FunctionDeclaration {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema),
	}
	for _, p := range t.Params() {
		schema.Properties[p.Name] = &genai.Schema{Type: schemaType(p.Type), Description: p.Description}
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  schema,
	}
}

func schemaType(t llm.ParamType) genai.Type {
	switch t {
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func historyContents(history []session.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		var role genai.Role = genai.RoleModel
		if msg.Role == session.RoleUser {
			role = genai.RoleUser
		}
		out = append(out, genai.NewContentFromText(msg.Content, role))
	}
	return out
}
