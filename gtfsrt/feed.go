package gtfsrt

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Feed polls a vehicle positions endpoint and republishes every decoded
// list. A failed poll is logged and the previous list stays current.
type Feed struct {
	client   *Client
	url      string
	interval time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	latest    []VehiclePosition
	published bool
	subs      map[chan []VehiclePosition]struct{}
}

// NewFeed creates a feed polling url. interval is the delay between the end
// of one poll and the start of the next.
func NewFeed(client *Client, url string, interval time.Duration, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		client:   client,
		url:      url,
		interval: interval,
		log:      logger.With("component", "vehicle-positions"),
		subs:     make(map[chan []VehiclePosition]struct{}),
	}
}

// Run polls until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		f.Poll(ctx)
		timer.Reset(f.interval)
	}
}

// Poll fetches and publishes one feed message.
func (f *Feed) Poll(ctx context.Context) {
	start := time.Now()
	data, err := f.client.Fetch(ctx, f.url)
	if err != nil {
		if ctx.Err() == nil {
			f.log.Warn("vehicle positions fetch failed", "url", f.url, "error", err)
		}
		return
	}
	positions, err := Decode(data)
	if err != nil {
		f.log.Warn("vehicle positions decode failed", "url", f.url, "error", err)
		return
	}
	f.log.Debug("vehicle positions updated", "count", len(positions), "duration", time.Since(start))
	f.publish(positions)
}

// Latest returns the most recent list, or an empty list before the first
// successful poll. The result must not be modified.
func (f *Feed) Latest() []VehiclePosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return []VehiclePosition{}
	}
	return f.latest
}

// Subscribe returns a channel receiving every published list, starting with
// the current one if any. A slow reader only sees the newest list. The
// channel is closed once ctx is done.
func (f *Feed) Subscribe(ctx context.Context) <-chan []VehiclePosition {
	ch := make(chan []VehiclePosition, 1)
	f.mu.Lock()
	if f.published {
		ch <- f.latest
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch
}

// SubscribeChanges is Subscribe limited to lists that carry new
// information: the set of vehicle ids changed or some vehicle reported a
// newer timestamp than in the last delivered list.
func (f *Feed) SubscribeChanges(ctx context.Context) <-chan []VehiclePosition {
	in := f.Subscribe(ctx)
	out := make(chan []VehiclePosition, 1)
	go func() {
		defer close(out)
		var filter changeFilter
		for positions := range in {
			if !filter.accept(positions) {
				continue
			}
			select {
			case out <- positions:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (f *Feed) publish(positions []VehiclePosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = positions
	f.published = true
	for ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- positions
	}
}

// changeFilter remembers the vehicle timestamps of the last accepted list.
type changeFilter struct {
	seen bool
	prev map[string]time.Time
}

func (c *changeFilter) accept(positions []VehiclePosition) bool {
	cur := make(map[string]time.Time, len(positions))
	for _, v := range positions {
		cur[v.VehicleID] = v.Timestamp
	}
	if c.seen && !changed(c.prev, cur) {
		return false
	}
	c.seen = true
	c.prev = cur
	return true
}

func changed(prev, cur map[string]time.Time) bool {
	if len(prev) != len(cur) {
		return true
	}
	for id, ts := range cur {
		p, ok := prev[id]
		if !ok || ts.After(p) {
			return true
		}
	}
	return false
}
