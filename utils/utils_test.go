package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		max     int
		want    string
		wantCut bool
	}{
		{name: "short", in: "abc", max: 5, want: "abc"},
		{name: "exact", in: "abcde", max: 5, want: "abcde"},
		{name: "cut", in: "abcdef", max: 4, want: "abcd", wantCut: true},
		{name: "runes", in: "héllo wörld", max: 5, want: "héllo", wantCut: true},
		{name: "multibyte within budget", in: "ééé", max: 3, want: "ééé"},
		{name: "no limit", in: "abc", max: 0, want: "abc"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, cut := Truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCut, cut)
		})
	}
}

func TestStr(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Str(nil))
	assert.Equal(t, "x", Str("x"))
	assert.Equal(t, "42", Str(42))
	assert.Equal(t, "agentic+AI", UrlQuery(" agentic AI "))
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "ping", in["msg"])
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "pong"})
	}))
	defer srv.Close()

	client := NewHTTPClient(time.Second, 2, time.Millisecond)
	var out map[string]string
	err := client.DoJSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{"msg": "ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "pong", out["msg"])
	assert.EqualValues(t, 2, calls.Load())
}

func TestDoJSONDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewHTTPClient(time.Second, 3, time.Millisecond)
	err := client.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Contains(t, statusErr.Body, "bad key")
	assert.EqualValues(t, 1, calls.Load())
}
