package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/session"
)

// Agent is one pipeline stage expressed as configuration over a Generator.
type Agent struct {
	Name        string
	Model       string
	Instruction string
	Tools       []llm.Tool
}

// AppName is the session application name for the agent.
func (a Agent) AppName() string { return a.Name + "_app" }

// Runner executes agents. Every call gets a fresh session, so the request
// never carries history from an earlier call.
type Runner struct {
	LLM      llm.Generator
	Sessions session.Store
	UserID   string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Run sends message to the agent and returns the trimmed final text.
func (r *Runner) Run(ctx context.Context, a Agent, message string) (string, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sess := r.Sessions.CreateSession(r.UserID, a.AppName())
	r.Sessions.SetMetadata(sess.ID, "model", a.Model)
	r.Sessions.AppendMessage(sess.ID, message, session.RoleUser)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	text, err := r.LLM.Generate(ctx, llm.Request{
		Model:       a.Model,
		Instruction: a.Instruction,
		Message:     message,
		SessionID:   sess.ID,
		Tools:       a.Tools,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.Name, err)
	}

	text = strings.TrimSpace(text)
	r.Sessions.AppendMessage(sess.ID, text, session.RoleAssistant)
	logger.Debug("agent finished",
		zap.String("agent", a.Name),
		zap.String("session_id", sess.ID),
		zap.Int("chars", len(text)))
	return text, nil
}
