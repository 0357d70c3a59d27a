package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// ErrStartupTimeout is returned by WaitForIndex when no index was published
// in time.
var ErrStartupTimeout = errors.New("provider: no GTFS index published before startup timeout")

// Holder publishes the current index snapshot. Readers always see either
// nil or a complete index.
type Holder struct {
	current atomic.Pointer[gtfs.Index]
	ready   chan struct{}
	once    sync.Once
}

func NewHolder() *Holder {
	return &Holder{ready: make(chan struct{})}
}

// Current returns the latest published index, or nil before the first
// publish.
func (h *Holder) Current() *gtfs.Index {
	return h.current.Load()
}

// Publish replaces the current index. Queries already holding the previous
// index keep using it.
func (h *Holder) Publish(idx *gtfs.Index) {
	h.current.Store(idx)
	h.once.Do(func() { close(h.ready) })
}

// Ready is closed once the first index has been published.
func (h *Holder) Ready() <-chan struct{} {
	return h.ready
}

// WaitForIndex blocks until an index is available or timeout elapses.
func (h *Holder) WaitForIndex(ctx context.Context, timeout time.Duration) (*gtfs.Index, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-h.ready:
		return h.Current(), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrStartupTimeout
		}
		return nil, ctx.Err()
	}
}
