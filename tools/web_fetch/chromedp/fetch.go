// Package chromedp renders a page in headless Chrome before extracting its
// article text, for sites that build their content with JavaScript.
package chromedp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/researcher/tools/web_fetch/models"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch/readable"
)

type Fetch struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

func (f Fetch) Fetch(ctx context.Context, url string) models.Result {
	if strings.TrimSpace(url) == "" {
		return models.Failure(url, errors.New("invalid url"))
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	html, err := f.render(ctx, url)
	if err != nil {
		return models.Failure(url, err)
	}

	title, text := readable.Extract(html, url)
	if text == "" {
		return models.Failure(url, errors.New("no readable content"))
	}
	result := models.Success(url, text, f.MaxChars)
	result.Title = title
	result.HTTPStatus = 200
	result.RenderMS = int(time.Since(t0) / time.Millisecond)
	return result
}

func (f Fetch) render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
