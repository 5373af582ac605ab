package brave

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/researcher/tools/web_search/models"
	"github.com/mohammad-safakhou/researcher/utils"
)

const defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

type Search struct {
	ApiKey   string
	Endpoint string
	HTTP     *utils.HTTPClient
}

func New(apiKey string) Search {
	return Search{ApiKey: apiKey, Endpoint: defaultEndpoint, HTTP: utils.NewHTTPClient(15*time.Second, 1, 300*time.Millisecond)}
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	url := fmt.Sprintf("%s?q=%s&count=%d", s.Endpoint, utils.UrlQuery(q), k)
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": s.ApiKey,
	}
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := s.HTTP.DoJSON(ctx, "GET", url, headers, nil, &raw); err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	out := make([]models.Result, 0, k)
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}
