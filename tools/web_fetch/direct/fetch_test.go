package direct

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/researcher/tools/web_fetch/models"
)

const ua = "Mozilla/5.0 (compatible; ResearchAgent/1.0)"

func TestFetchPlainText(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ua, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello <b>raw</b>"))
	}))
	defer srv.Close()

	res := New(time.Second, 100, ua, true).Fetch(context.Background(), srv.URL)
	require.True(t, res.OK())
	assert.Equal(t, "hello <b>raw</b>", res.Content)
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
}

func TestFetchExtractsHTMLText(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>Title</h1><script>x()</script><p>Body text</p></body></html>"))
	}))
	defer srv.Close()

	res := New(time.Second, 100, ua, true).Fetch(context.Background(), srv.URL)
	require.True(t, res.OK())
	assert.Equal(t, "Title Body text", res.Content)

	raw := New(time.Second, 1000, ua, false).Fetch(context.Background(), srv.URL)
	assert.Contains(t, raw.Content, "<h1>Title</h1>")
}

func TestFetchTruncates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("z", 50)))
	}))
	defer srv.Close()

	res := New(time.Second, 12, ua, false).Fetch(context.Background(), srv.URL)
	require.True(t, res.OK())
	assert.Equal(t, strings.Repeat("z", 12)+models.TruncationMarker, res.Content)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(50*time.Millisecond, 100, ua, true)

	res := f.Fetch(context.Background(), srv.URL+"/missing")
	assert.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.ErrorMessage, "Failed to fetch "+srv.URL+"/missing: 404"))

	res = f.Fetch(context.Background(), srv.URL+"/slow")
	assert.False(t, res.OK())
	assert.Contains(t, res.Text(), "Failed to fetch")

	res = f.Fetch(context.Background(), "://bad")
	assert.False(t, res.OK())
}

func TestPageIsHTML(t *testing.T) {
	t.Parallel()
	assert.True(t, Page{ContentType: "text/html; charset=utf-8"}.IsHTML())
	assert.False(t, Page{ContentType: "application/json", Body: "{}"}.IsHTML())
	assert.True(t, Page{Body: "<!DOCTYPE html><html></html>"}.IsHTML())
	assert.False(t, Page{Body: "plain"}.IsHTML())
}
