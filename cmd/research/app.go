package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/agent/core"
	"github.com/mohammad-safakhou/researcher/internal/agent/telemetry"
	"github.com/mohammad-safakhou/researcher/internal/retrieval"
	"github.com/mohammad-safakhou/researcher/provider"
	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/session/inmemory"
	"github.com/mohammad-safakhou/researcher/tools/mcp"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch"
	"github.com/mohammad-safakhou/researcher/tools/web_search"
)

// buildOrchestrator wires the agents, tools and retrieval paths from cfg.
func buildOrchestrator(ctx context.Context, cfg *config.Config, gen llm.Generator, reg prometheus.Registerer, logger *zap.Logger) (*core.Orchestrator, error) {
	tel, err := telemetry.New(logger.Named("ResearchOrchestrator"), reg)
	if err != nil {
		return nil, err
	}

	primaryFetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Tool), web_fetch.Options{
		Timeout:   cfg.Fetch.ToolTimeout,
		MaxChars:  cfg.Fetch.ToolMaxChars,
		UserAgent: cfg.Fetch.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch tool %q: %w", cfg.Fetch.Tool, err)
	}
	directFetcher, err := web_fetch.NewWebFetcher(web_fetch.DirectFetcherType, web_fetch.Options{
		Timeout:     cfg.Fetch.Timeout,
		MaxChars:    cfg.Fetch.MaxChars,
		UserAgent:   cfg.Fetch.UserAgent,
		ExtractText: cfg.Fetch.ExtractText,
	})
	if err != nil {
		return nil, err
	}

	searchTools, err := discoverTools(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	models := cfg.LLM.Models
	workers := &core.Workers{
		Runner: &core.Runner{
			LLM:      gen,
			Sessions: inmemory.NewInMemorySessionStore(),
			UserID:   cfg.General.UserID,
			Timeout:  cfg.Pipeline.StageTimeout,
			Logger:   logger.Named("agents"),
		},
		Search:            core.NewSearchAgent(models.Discover, searchTools...),
		Fetch:             core.NewFetchAgent(models.Retrieve, web_fetch.FetchTool{Fetcher: primaryFetcher}),
		Summarizer:        core.NewSummarizerAgent(models.Summarize),
		Comparison:        core.NewComparisonAgent(models.Compare),
		SummaryInputChars: cfg.Pipeline.SummaryInputChars,
		Logger:            logger.Named("agents"),
	}
	retriever := &retrieval.Retriever{
		Primary:        workers.Retrieve,
		Secondary:      directFetcher,
		PrimaryTimeout: cfg.Fetch.PrimaryTimeout,
		Logger:         logger.Named("retrieval"),
	}

	return core.NewOrchestrator(workers, retriever, tel, logger.Named("ResearchOrchestrator"), core.Options{
		MaxResults:     cfg.Pipeline.MaxResults,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		SummaryLimit:   cfg.Report.SummaryLimit,
	}), nil
}

// discoverTools picks the search tool for the discover agent and appends any
// remote tools. A remote endpoint that cannot be listed is logged and skipped.
func discoverTools(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]llm.Tool, error) {
	var tools []llm.Tool

	provider := web_search.Provider(cfg.Search.Provider)
	switch provider {
	case web_search.GoogleProvider:
		tools = append(tools, googleSearch(cfg, logger)...)
	default:
		searcher, err := web_search.NewWebSearcher(provider, searchKey(cfg, provider))
		switch {
		case errors.Is(err, web_search.ErrMissingKey):
			logger.Warn("search key missing, using google search", zap.String("provider", string(provider)))
			tools = append(tools, googleSearch(cfg, logger)...)
		case err != nil:
			return nil, fmt.Errorf("search provider %q: %w", provider, err)
		default:
			tools = append(tools, web_search.SearchTool{Searcher: searcher, MaxResults: cfg.Search.MaxResults})
		}
	}

	if cfg.MCP.URL == "" {
		return tools, nil
	}
	remote, err := mcp.NewClient(cfg.MCP.URL, cfg.MCP.Timeout).Tools(ctx)
	if err != nil {
		logger.Warn("remote tools unavailable", zap.String("url", cfg.MCP.URL), zap.Error(err))
		return tools, nil
	}
	logger.Info("remote tools loaded", zap.Int("count", len(remote)))
	return append(tools, remote...), nil
}

func searchKey(cfg *config.Config, p web_search.Provider) string {
	if p == web_search.SerperProvider {
		return cfg.Search.SerperAPIKey
	}
	return cfg.Search.BraveAPIKey
}

// googleSearch returns the builtin search for Gemini. Other providers cannot
// run it, so the first search provider with a key stands in; with none the
// discover agent has no search tool.
func googleSearch(cfg *config.Config, logger *zap.Logger) []llm.Tool {
	if strings.EqualFold(cfg.LLM.Provider, string(provider.Gemini)) {
		return []llm.Tool{llm.GoogleSearch}
	}
	for _, p := range []web_search.Provider{web_search.BraveProvider, web_search.SerperProvider} {
		searcher, err := web_search.NewWebSearcher(p, searchKey(cfg, p))
		if err != nil {
			continue
		}
		logger.Warn("google search needs gemini, using function search",
			zap.String("llm_provider", cfg.LLM.Provider), zap.String("search_provider", string(p)))
		return []llm.Tool{web_search.SearchTool{Searcher: searcher, MaxResults: cfg.Search.MaxResults}}
	}
	logger.Warn("no search tool available, discovery runs without web search",
		zap.String("llm_provider", cfg.LLM.Provider))
	return nil
}
