package readable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = `<!DOCTYPE html>
<html><head><title>Agents in practice</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Agents in practice</h1>
<p>Agentic systems plan, call tools and reflect on the results they get back from those tools.
This paragraph is long enough for the readability scorer to treat it as real content, which
matters because short fragments are discarded as boilerplate by the algorithm.</p>
<p>A second paragraph adds more substance about evaluation, reliability and the cost of running
many model calls for a single research question, again with enough words to count.</p>
</article>
<footer>copyright</footer>
</body></html>`

func TestFetchExtractsArticle(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(article))
	}))
	defer srv.Close()

	res := New(time.Second, 20000, "test-agent").Fetch(context.Background(), srv.URL)
	require.True(t, res.OK(), res.ErrorMessage)
	assert.Contains(t, res.Content, "Agentic systems plan")
	assert.Contains(t, res.Content, "cost of running")
	assert.NotContains(t, res.Content, "<p>")
}

func TestFetchReportsHTTPFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	res := New(time.Second, 100, "test-agent").Fetch(context.Background(), srv.URL)
	assert.False(t, res.OK())
	assert.Contains(t, res.ErrorMessage, "Failed to fetch")
	assert.Contains(t, res.ErrorMessage, "403")
}

func TestExtractFallsBackToPlainText(t *testing.T) {
	t.Parallel()
	_, text := Extract("just words", "https://x.example")
	assert.Equal(t, "just words", text)
}
