package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/provider"
	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/tools/web_search"
)

func TestReadTopic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "typed", input: "  quantum sensing \n", want: "quantum sensing"},
		{name: "blank", input: "\n", want: "agentic AI"},
		{name: "eof", input: "", want: "agentic AI"},
		{name: "no newline", input: "rust", want: "rust"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := readTopic(strings.NewReader(tt.input), &out, "agentic AI")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Enter topic: ", out.String())
		})
	}
}

func TestExitCode(t *testing.T) {
	missing := fmt.Errorf("%w for gemini", provider.ErrMissingCredentials)
	assert.Equal(t, exitConfig, exitCode(configError{missing}))
	assert.Equal(t, exitFailure, exitCode(fmt.Errorf("research: %w", context.Canceled)))
	assert.Equal(t, exitFailure, exitCode(errors.New("stdin closed")))
}

func testConfig() *config.Config {
	return &config.Config{
		General:  config.GeneralConfig{UserID: "user_1", DefaultTopic: "agentic AI"},
		LLM:      config.LLMConfig{Provider: "gemini", Models: config.StageModels{Discover: "m", Retrieve: "m", Summarize: "m", Compare: "m"}},
		Pipeline: config.PipelineConfig{MaxResults: 3, MaxConcurrency: 1, StageTimeout: time.Second, SummaryInputChars: 10000},
		Fetch:    config.FetchConfig{Tool: "readable", Timeout: time.Second, MaxChars: 100, ToolTimeout: time.Second, ToolMaxChars: 100},
		Search:   config.SearchConfig{Provider: "google", MaxResults: 3},
		MCP:      config.MCPConfig{Timeout: time.Second},
		Report:   config.ReportConfig{Render: "plain", SummaryLimit: 1000},
	}
}

func toolNames(tools []llm.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	return names
}

func TestDiscoverToolsGoogleDefault(t *testing.T) {
	tools, err := discoverTools(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"google_search"}, toolNames(tools))
}

func TestDiscoverToolsSerperWithKey(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Provider = "serper"
	cfg.Search.SerperAPIKey = "key"

	tools, err := discoverTools(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	_, ok := tools[0].(web_search.SearchTool)
	assert.True(t, ok)
}

func TestDiscoverToolsMissingKeyFallsBackToGoogle(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Provider = "brave"

	tools, err := discoverTools(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"google_search"}, toolNames(tools))
}

func TestDiscoverToolsOpenAIUsesFunctionSearch(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "openai"
	cfg.Search.BraveAPIKey = "key"

	tools, err := discoverTools(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	_, ok := tools[0].(web_search.SearchTool)
	assert.True(t, ok)
}

func TestDiscoverToolsOpenAIWithoutSearchKeyWarns(t *testing.T) {
	for _, searchProvider := range []string{"google", "serper"} {
		t.Run(searchProvider, func(t *testing.T) {
			obs, logs := observer.New(zap.WarnLevel)
			cfg := testConfig()
			cfg.LLM.Provider = "openai"
			cfg.Search.Provider = searchProvider

			tools, err := discoverTools(context.Background(), cfg, zap.New(obs))
			require.NoError(t, err)
			assert.Empty(t, tools)
			assert.Equal(t, 1, logs.FilterMessage("no search tool available, discovery runs without web search").Len())
		})
	}
}

func TestDiscoverToolsAddsRemoteTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[{"name":"lookup","description":"d"}]}}`))
	}))
	defer srv.Close()
	cfg := testConfig()
	cfg.MCP.URL = srv.URL

	tools, err := discoverTools(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"google_search", "lookup"}, toolNames(tools))
}

func TestDiscoverToolsUnreachableRemoteIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	cfg := testConfig()
	cfg.MCP.URL = srv.URL

	tools, err := discoverTools(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"google_search"}, toolNames(tools))
}

type scriptedLLM struct{}

func (scriptedLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	if strings.HasPrefix(req.Message, "Search for: ") {
		return "", nil
	}
	return "", errors.New("unexpected")
}

func TestBuildOrchestratorRunsNoSources(t *testing.T) {
	orch, err := buildOrchestrator(context.Background(), testConfig(), scriptedLLM{}, nil, zap.NewNop())
	require.NoError(t, err)

	res, err := orch.RunResearch(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "No search results could be retrieved for the topic.", res.Text())
}

func TestBuildOrchestratorRejectsUnknownFetchTool(t *testing.T) {
	cfg := testConfig()
	cfg.Fetch.Tool = "curl"
	_, err := buildOrchestrator(context.Background(), cfg, scriptedLLM{}, nil, zap.NewNop())
	require.Error(t, err)
}

type slowShutdown struct {
	stopped atomic.Bool
}

func (s *slowShutdown) Run(ctx context.Context) error {
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	s.stopped.Store(true)
	return nil
}

func TestServeMetricsStopWaitsForShutdown(t *testing.T) {
	srv := &slowShutdown{}
	stop := serveMetrics(context.Background(), srv, zap.NewNop())
	stop()
	assert.True(t, srv.stopped.Load())
}
