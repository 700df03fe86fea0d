package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestFetcher(rt roundTripFunc) *Fetcher {
	f := NewFetcher("https://catalog.test/videos", time.Second)
	f.httpClient = &http.Client{Transport: rt}
	return f
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestFetchSuccess(t *testing.T) {
	f := newTestFetcher(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "https://catalog.test/videos", req.URL.String())
		return jsonResponse(http.StatusOK, `[
			{"id":"a","title":"T1","sourceUrl":"https://cdn.test/a.mp4"},
			{"id":2,"title":"T2","url":"https://cdn.test/b.mp4"}
		]`), nil
	})

	entries, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []RawEntry{
		{ID: "a", Title: "T1", SourceURL: "https://cdn.test/a.mp4"},
		{ID: "2", Title: "T2", SourceURL: "https://cdn.test/b.mp4"},
	}, entries)
}

func TestFetchFailuresAreUnavailable(t *testing.T) {
	tests := []struct {
		name string
		rt   roundTripFunc
	}{
		{
			name: "transport error",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "non 2xx",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusBadGateway, "upstream down"), nil
			},
		},
		{
			name: "malformed body",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"videos":`), nil
			},
		},
		{
			name: "entry without id",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"title":"T1"}]`), nil
			},
		},
		{
			name: "duplicate id",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"id":"a"},{"id":"a"}]`), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestFetcher(tt.rt).Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewFetcherDefaults(t *testing.T) {
	f := NewFetcher("", 0)
	assert.Equal(t, DefaultURL, f.url)
	assert.Equal(t, DefaultTimeout, f.timeout)
	assert.Equal(t, 1000*time.Millisecond, f.httpClient.Timeout)
}
