// Package direct is the plain HTTP GET fetcher used as the fallback
// retrieval path.
package direct

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/researcher/internal/helpers"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch/models"
)

// maxBodyBytes caps how much of a response is read before truncation.
const maxBodyBytes = 5 << 20

type Fetch struct {
	client      *http.Client
	timeout     time.Duration
	maxChars    int
	userAgent   string
	extractText bool
}

func New(timeout time.Duration, maxChars int, userAgent string, extractText bool) *Fetch {
	return &Fetch{
		client:      &http.Client{Timeout: timeout},
		timeout:     timeout,
		maxChars:    maxChars,
		userAgent:   userAgent,
		extractText: extractText,
	}
}

func (f *Fetch) Fetch(ctx context.Context, url string) models.Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := Get(ctx, f.client, url, f.userAgent)
	if err != nil {
		return models.Failure(url, err)
	}
	text := page.Body
	if f.extractText && page.IsHTML() {
		text = helpers.PlainText(text)
	}
	result := models.Success(url, text, f.maxChars)
	result.HTTPStatus = page.StatusCode
	return result
}

// Page is a fetched HTTP response body.
type Page struct {
	Body        string
	ContentType string
	StatusCode  int
}

// IsHTML reports whether the page looks like an HTML document.
func (p Page) IsHTML() bool {
	if mt, _, err := mime.ParseMediaType(p.ContentType); err == nil {
		return mt == "text/html" || mt == "application/xhtml+xml"
	}
	head := strings.ToLower(strings.TrimSpace(p.Body))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}

// Get issues a GET with the given user agent. Responses outside 2xx are
// errors.
func Get(ctx context.Context, client *http.Client, url, userAgent string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, err
	}
	body, err := helpers.ReadLimitedAndClose(resp.Body, maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}
	return Page{
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}
