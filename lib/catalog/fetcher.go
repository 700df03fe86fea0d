package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultURL     = "https://strapi.io/videos"
	DefaultTimeout = 1000 * time.Millisecond
)

// Fetcher retrieves the catalog over HTTP with a hard timeout.
type Fetcher struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	sf         singleflight.Group
}

// NewFetcher returns a Fetcher for url. A zero timeout uses DefaultTimeout.
func NewFetcher(url string, timeout time.Duration) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		url:        url,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch issues a single GET. Concurrent callers share the in-flight request.
// Every failure is wrapped in ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context) ([]RawEntry, error) {
	v, err, _ := f.sf.Do(f.url, func() (interface{}, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	entries := v.([]RawEntry)
	out := make([]RawEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]RawEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodySummary := strings.TrimSpace(string(body))
		if bodySummary == "" {
			bodySummary = resp.Status
		}
		return nil, fmt.Errorf("%w: catalog http %d: %s", ErrUnavailable, resp.StatusCode, bodySummary)
	}

	var entries []RawEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if err := Validate(entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return entries, nil
}
