package web_fetch

import (
	"context"
	"errors"
	"strings"

	"github.com/mohammad-safakhou/researcher/provider/llm"
)

// FetchTool exposes a Fetcher to the model as the fetch_url function.
type FetchTool struct {
	Fetcher Fetcher
}

var _ llm.Tool = FetchTool{}

func (FetchTool) Name() string { return "fetch_url" }

func (FetchTool) Description() string {
	return "Fetches the full text content of a webpage from the given URL. " +
		"Returns {status: success, content} or {status: error, error_message}."
}

func (FetchTool) Params() []llm.Param {
	return []llm.Param{{
		Name:        "url",
		Type:        llm.TypeString,
		Description: "The complete URL of the webpage to fetch (must include https://)",
		Required:    true,
	}}
}

func (t FetchTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	url := strings.TrimSpace(llm.StringArg(args, "url"))
	if url == "" {
		return nil, errors.New("url is required")
	}
	return t.Fetcher.Fetch(ctx, url).Map(), nil
}
