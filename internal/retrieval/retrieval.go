// Package retrieval fetches source content through a primary path and falls
// back to a single direct attempt when the primary fails.
package retrieval

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/researcher/models"
	"github.com/mohammad-safakhou/researcher/tools/web_fetch"
)

// FailureMarker flags free-text primary output as a failed fetch.
const FailureMarker = "Failed to fetch"

// Result is the outcome of one retrieval. Content always holds the text that
// is passed to summarization, including an error message when both paths
// failed.
type Result struct {
	Content string
	Reason  string
	Via     models.RetrievalPath
}

func (r Result) OK() bool { return r.Via != models.RetrievalFailed }

// Succeeded builds a primary result from agent output.
func Succeeded(content string) Result {
	return Result{Content: content, Via: models.RetrievedPrimary}
}

// Failed builds a failed result carrying reason as its content.
func Failed(reason string) Result {
	return Result{Content: reason, Reason: reason, Via: models.RetrievalFailed}
}

// PrimaryFunc is the agent mediated fetch.
type PrimaryFunc func(ctx context.Context, url string) Result

type Retriever struct {
	Primary        PrimaryFunc
	Secondary      web_fetch.Fetcher
	PrimaryTimeout time.Duration
	Logger         *zap.Logger
}

func (r *Retriever) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Retrieve tries the primary path and, if it fails, the secondary exactly
// once. It never returns an error; failures travel in the Result.
func (r *Retriever) Retrieve(ctx context.Context, url string) Result {
	log := r.logger().With(zap.String("url", url))

	if err := ctx.Err(); err != nil {
		return Failed(FailureMarker + " " + url + ": " + err.Error())
	}

	var primary Result
	if r.Primary != nil {
		primary = r.runPrimary(ctx, url)
		if usable(primary) {
			return primary
		}
		if err := ctx.Err(); err != nil {
			return Failed(FailureMarker + " " + url + ": " + err.Error())
		}
		log.Warn("primary retrieval failed, falling back to direct fetch",
			zap.String("reason", reasonOf(primary)))
	}

	if r.Secondary == nil {
		if r.Primary == nil {
			return Failed(FailureMarker + " " + url + ": no retrieval path configured")
		}
		primary.Via = models.RetrievalFailed
		if strings.TrimSpace(primary.Content) == "" {
			primary.Content = FailureMarker + " " + url
		}
		return primary
	}

	res := r.Secondary.Fetch(ctx, url)
	if !res.OK() {
		log.Warn("direct fetch failed", zap.String("error", res.ErrorMessage))
		return Failed(res.ErrorMessage)
	}
	log.Info("retrieved via direct fetch", zap.Int("chars", len(res.Content)))
	return Result{Content: res.Content, Via: models.RetrievedSecondary}
}

func (r *Retriever) runPrimary(ctx context.Context, url string) Result {
	if r.PrimaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.PrimaryTimeout)
		defer cancel()
	}
	return r.Primary(ctx, url)
}

// usable applies the primary failure contract: a failure variant, blank
// content, or content carrying the failure marker.
func usable(res Result) bool {
	if !res.OK() {
		return false
	}
	content := strings.TrimSpace(res.Content)
	return content != "" && !strings.Contains(content, FailureMarker)
}

func reasonOf(res Result) string {
	switch {
	case res.Reason != "":
		return res.Reason
	case strings.TrimSpace(res.Content) == "":
		return "empty content"
	default:
		return "failure marker in content"
	}
}
