package web_search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/researcher/provider/llm"
	"github.com/mohammad-safakhou/researcher/tools/web_search/brave"
	"github.com/mohammad-safakhou/researcher/tools/web_search/models"
	"github.com/mohammad-safakhou/researcher/tools/web_search/serper"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	GoogleProvider Provider = "google"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrMissingKey          = errors.New("search provider api key is not set")
)

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrMissingKey)
	}
	switch provider {
	case SerperProvider:
		return serper.New(apiKey), nil
	case BraveProvider:
		return brave.New(apiKey), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// SearchTool exposes a WebSearcher to the model as the web_search function.
type SearchTool struct {
	Searcher   WebSearcher
	MaxResults int
}

var _ llm.Tool = SearchTool{}

func (SearchTool) Name() string { return "web_search" }

func (SearchTool) Description() string {
	return "Searches the web and returns the top results as a list of {title, link, snippet}."
}

func (SearchTool) Params() []llm.Param {
	return []llm.Param{
		{Name: "query", Type: llm.TypeString, Description: "The search query", Required: true},
		{Name: "count", Type: llm.TypeInteger, Description: "Number of results to return"},
	}
}

func (t SearchTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := strings.TrimSpace(llm.StringArg(args, "query"))
	if query == "" {
		return nil, errors.New("query is required")
	}
	limit := t.MaxResults
	if limit <= 0 {
		limit = 3
	}
	k := llm.IntArg(args, "count", limit)
	if k <= 0 || k > limit {
		k = limit
	}

	results, err := t.Searcher.Discover(ctx, query, k)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]any{"title": r.Title, "link": r.URL, "snippet": r.Snippet})
	}
	return map[string]any{"status": "success", "results": items}, nil
}
