package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnexpectedStatus is returned by Fetch for non-2xx responses.
var ErrUnexpectedStatus = errors.New("gtfsrt: unexpected HTTP status")

// Client fetches GTFS-RT protobuf data over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client whose requests give up after timeout. A zero
// timeout means no limit.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads a feed and returns the raw protobuf bytes.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
