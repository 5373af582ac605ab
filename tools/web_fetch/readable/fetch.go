// Package readable fetches a page over HTTP and reduces it to its main
// article text.
package readable

import (
	"context"
	"errors"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/researcher/internal/helpers"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch/direct"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch/models"
)

type Fetch struct {
	client    *http.Client
	timeout   time.Duration
	maxChars  int
	userAgent string
}

func New(timeout time.Duration, maxChars int, userAgent string) *Fetch {
	return &Fetch{
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		maxChars:  maxChars,
		userAgent: userAgent,
	}
}

func (f *Fetch) Fetch(ctx context.Context, url string) models.Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	t0 := time.Now()

	page, err := direct.Get(ctx, f.client, url, f.userAgent)
	if err != nil {
		return models.Failure(url, err)
	}

	title, text := Extract(page.Body, url)
	if text == "" {
		return models.Failure(url, errors.New("no readable content"))
	}
	result := models.Success(url, text, f.maxChars)
	result.Title = title
	result.HTTPStatus = page.StatusCode
	result.RenderMS = int(time.Since(t0) / time.Millisecond)
	return result
}

// Extract runs readability over html and falls back to stripping all markup
// when no article is found.
func Extract(html, pageURL string) (title, text string) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		parsed = &nurl.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err == nil {
		title = strings.TrimSpace(article.Title)
		text = strings.TrimSpace(article.TextContent)
	}
	if text == "" {
		text = helpers.PlainText(html)
	}
	return title, text
}
