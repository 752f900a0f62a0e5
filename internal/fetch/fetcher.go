package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"keiba/internal/config"
)

// ErrNotFound covers every way a page can fail to materialize: transport
// errors, non-200 responses, and a ready marker that never appears within the
// wait budget. Callers treat absence uniformly and take their fallback path.
var ErrNotFound = errors.New("page not found")

// Fetcher retrieves a parsed document. When readyMarker is non-empty the
// fetch blocks until an element with that class is present or the bounded
// wait elapses; the race pages render their tables client-side, so a marker
// miss usually means "not rendered yet" rather than "gone".
type Fetcher interface {
	Fetch(ctx context.Context, url string, readyMarker string) (*goquery.Document, error)
}

type HTTPFetcher struct {
	client       *http.Client
	readyWait    time.Duration
	pollInterval time.Duration
}

func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	readyWait := cfg.ReadyWait
	if readyWait <= 0 {
		readyWait = 5 * time.Second
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &HTTPFetcher{
		client:       &http.Client{Timeout: timeout},
		readyWait:    readyWait,
		pollInterval: poll,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, readyMarker string) (*goquery.Document, error) {
	deadline := time.Now().Add(f.readyWait)
	for {
		doc, err := f.fetchOnce(ctx, url)
		if err == nil {
			if readyMarker == "" || doc.Find("."+readyMarker).Length() > 0 {
				return doc, nil
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.pollInterval):
		}
	}
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
