package serper

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/researcher/tools/web_search/models"
	"github.com/mohammad-safakhou/researcher/utils"
)

const defaultEndpoint = "https://google.serper.dev/search"

type Search struct {
	ApiKey   string
	Endpoint string
	HTTP     *utils.HTTPClient
}

func New(apiKey string) Search {
	return Search{ApiKey: apiKey, Endpoint: defaultEndpoint, HTTP: utils.NewHTTPClient(15*time.Second, 1, 300*time.Millisecond)}
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": q, "num": k}
	headers := map[string]string{"X-API-KEY": s.ApiKey}

	var raw map[string]any
	if err := s.HTTP.DoJSON(ctx, "POST", s.Endpoint, headers, payload, &raw); err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}

	out := make([]models.Result, 0, k)
	items, _ := raw["organic"].([]any)
	for _, it := range items {
		if len(out) >= k {
			break
		}
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Result{
			Title: utils.Str(m["title"]), URL: utils.Str(m["link"]), Snippet: utils.Str(m["snippet"]),
		})
	}
	return out, nil
}
