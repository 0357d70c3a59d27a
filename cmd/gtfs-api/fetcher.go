package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mjaakko/gtfs-graphql-api/gtfsrt"
)

// fetcher reads a GTFS-RT message from a URL or a local file.
type fetcher struct {
	client *gtfsrt.Client
}

func newFetcher(client *gtfsrt.Client) *fetcher {
	return &fetcher{client: client}
}

// fetch returns the raw protobuf bytes at urlOrPath. Anything that is not
// an http(s) URL is read from disk.
func (f *fetcher) fetch(ctx context.Context, urlOrPath string) ([]byte, error) {
	if !strings.HasPrefix(urlOrPath, "http://") && !strings.HasPrefix(urlOrPath, "https://") {
		data, err := os.ReadFile(urlOrPath)
		if err != nil {
			return nil, fmt.Errorf("read vehicle positions: %w", err)
		}
		return data, nil
	}
	return f.client.Fetch(ctx, urlOrPath)
}
