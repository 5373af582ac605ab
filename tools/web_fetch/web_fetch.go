package web_fetch

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/researcher/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch/direct"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch/models"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch/readable"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
	DefaultUA       = "Mozilla/5.0 (compatible; ResearchAgent/1.0)"
)

// Fetcher retrieves one URL. Failures are reported in the result, never
// as a panic or a separate error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.Result
}

type FetcherType string

const (
	ReadableFetcherType FetcherType = "readable"
	ChromedpFetcherType FetcherType = "chromedp"
	DirectFetcherType   FetcherType = "direct"
)

var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

type Options struct {
	Timeout     time.Duration
	MaxChars    int
	UserAgent   string
	ExtractText bool
}

func NewWebFetcher(fetcherType FetcherType, opts Options) (Fetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = MaxCharsDefault
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUA
	}

	switch fetcherType {
	case ReadableFetcherType:
		return readable.New(opts.Timeout, opts.MaxChars, opts.UserAgent), nil
	case ChromedpFetcherType:
		return &chromedp.Fetch{Timeout: opts.Timeout, MaxChars: opts.MaxChars, UserAgent: opts.UserAgent}, nil
	case DirectFetcherType:
		return direct.New(opts.Timeout, opts.MaxChars, opts.UserAgent, opts.ExtractText), nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
