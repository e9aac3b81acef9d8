package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"WikiMover/internal/domain"
	"WikiMover/internal/ports"
)

const (
	defaultTimeout   = 2 * time.Minute
	defaultUserAgent = "WikiMover/1.1"
)

// Fetcher downloads file revisions over HTTP. file:// URLs are served from
// the local filesystem so snapshot runs work offline.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

var _ ports.AssetFetcher = (*Fetcher)(nil)

// NewFetcher builds a fetcher whose requests, body included, time out after
// timeout. Zero values pick the defaults.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &Fetcher{
		client:    &http.Client{Timeout: timeout, Transport: transport},
		userAgent: userAgent,
	}
}

// Fetch opens url for reading. The caller closes the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w: %w", url, domain.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download %s returned %s: %w", url, resp.Status, domain.ErrNetwork)
	}

	return resp.Body, nil
}
