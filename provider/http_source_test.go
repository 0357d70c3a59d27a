package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/internal/testfeed"
)

// feedServer answers with the given status codes in order, then serves the
// default feed.
func feedServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	body := testfeed.Zip(t, testfeed.Files())
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(requests.Add(1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHTTPSource_RetriesTransientFailures(t *testing.T) {
	srv, requests := feedServer(t, http.StatusInternalServerError, http.StatusBadGateway)
	tmp := t.TempDir()
	src := NewHTTPSource(srv.URL, HTTPSourceOptions{RetryInterval: time.Millisecond, TempDir: tmp}, nil)

	var states []State
	a, err := src.Next(context.Background(), func(s State) { states = append(states, s) })
	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, []State{StateDownloading}, states)
	assert.Empty(t, a.Hash)

	feed, err := gtfs.ZipParser{}.ParseFile(context.Background(), a.Path)
	require.NoError(t, err)
	assert.Len(t, feed.Stops, 6)

	a.Release()
	assertEmptyDir(t, tmp)
}

func TestHTTPSource_Failures(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		requests int32
	}{
		{"client error is not retried", []int{http.StatusNotFound}, 1},
		{"retries are bounded", []int{500, 500, 500, 500, 500}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, requests := feedServer(t, tt.statuses...)
			tmp := t.TempDir()
			src := NewHTTPSource(srv.URL, HTTPSourceOptions{Retries: 2, RetryInterval: time.Millisecond, TempDir: tmp}, nil)

			_, err := src.Next(context.Background(), func(State) {})
			assert.Error(t, err)
			assert.Equal(t, tt.requests, requests.Load())
			assertEmptyDir(t, tmp)
		})
	}
}

func TestHTTPSource_WaitsBetweenCycles(t *testing.T) {
	srv, _ := feedServer(t)
	src := NewHTTPSource(srv.URL, HTTPSourceOptions{Interval: 50 * time.Millisecond, TempDir: t.TempDir()}, nil)

	a, err := src.Next(context.Background(), func(State) {})
	require.NoError(t, err)
	a.Release()

	start := time.Now()
	a, err = src.Next(context.Background(), func(State) {})
	require.NoError(t, err)
	a.Release()
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx, func(State) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_HTTPSource(t *testing.T) {
	srv, _ := feedServer(t)
	tmp := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	holder := NewHolder()
	src := NewHTTPSource(srv.URL, HTTPSourceOptions{Interval: time.Hour, TempDir: tmp}, nil)
	p := NewPipeline(src, gtfs.ZipParser{}, holder, gtfs.IndexOptions{}, nil)
	go func() { _ = p.Run(ctx) }()

	idx, err := holder.WaitForIndex(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 6, idx.Stats().Stops)
	eventuallyState(t, p, StatePublished)
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(tmp)
		return err == nil && len(entries) == 0
	}, 5*time.Second, 5*time.Millisecond, "downloaded feed not removed")
}
