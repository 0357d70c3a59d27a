package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/internal/testfeed"
)

func buildIndex(t *testing.T, files map[string]string) *gtfs.Index {
	t.Helper()
	feed, err := gtfs.ParseBytes(context.Background(), testfeed.Zip(t, files))
	require.NoError(t, err)
	idx, err := gtfs.NewIndex(feed, gtfs.IndexOptions{})
	require.NoError(t, err)
	return idx
}

func withExtraStop() map[string]string {
	files := testfeed.Files()
	files["stops.txt"] += "S9,9,New,60.3000,24.9000,0,,\n"
	return files
}

func TestHolder_WaitForIndex(t *testing.T) {
	h := NewHolder()
	assert.Nil(t, h.Current())

	_, err := h.WaitForIndex(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrStartupTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.WaitForIndex(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	idx := buildIndex(t, testfeed.Files())
	go h.Publish(idx)
	got, err := h.WaitForIndex(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Same(t, idx, got)

	select {
	case <-h.Ready():
	default:
		t.Fatal("Ready not closed after publish")
	}
	h.Publish(buildIndex(t, testfeed.Files()))
}

func TestHolder_ReadersSeeWholeSnapshots(t *testing.T) {
	small := buildIndex(t, testfeed.Files())
	large := buildIndex(t, withExtraStop())
	h := NewHolder()
	h.Publish(small)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				idx := h.Current()
				_, hasNew := idx.Stop("S9")
				switch idx.Stats().Stops {
				case 6:
					assert.False(t, hasNew)
				case 7:
					assert.True(t, hasNew)
				default:
					t.Errorf("unexpected snapshot with %d stops", idx.Stats().Stops)
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			h.Publish(large)
		} else {
			h.Publish(small)
		}
	}
	close(stop)
	wg.Wait()
}
