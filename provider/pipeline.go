package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// Pipeline turns archives from one source into published index snapshots.
// A failed refresh is logged and leaves the current snapshot in place.
type Pipeline struct {
	source Source
	parser gtfs.Parser
	holder *Holder
	opts   gtfs.IndexOptions
	log    *slog.Logger

	mu          sync.RWMutex
	state       State
	lastErr     error
	lastHash    string
	publishedAt time.Time
}

// Status summarizes a pipeline for health reporting.
type Status struct {
	Source      string    `json:"source"`
	State       State     `json:"state"`
	LastError   string    `json:"lastError,omitempty"`
	SnapshotID  string    `json:"snapshotId,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

func NewPipeline(source Source, parser gtfs.Parser, holder *Holder, opts gtfs.IndexOptions, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source: source,
		parser: parser,
		holder: holder,
		opts:   opts,
		log:    logger.With("component", "gtfs-refresh", "source", source.Name()),
		state:  StateIdle,
	}
}

// Run refreshes until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		p.settle()
		a, err := p.source.Next(ctx, p.setState)
		if ctx.Err() != nil {
			a.Release()
			return nil
		}
		if err != nil {
			p.fail(err)
			continue
		}
		p.refresh(ctx, a)
	}
}

func (p *Pipeline) refresh(ctx context.Context, a *Archive) {
	defer a.Release()

	p.mu.RLock()
	unchanged := a.Hash != "" && a.Hash == p.lastHash
	p.mu.RUnlock()
	if unchanged {
		p.setState(StateIdle)
		return
	}

	p.setState(StateParsing)
	start := time.Now()
	feed, err := p.parser.ParseFile(ctx, a.Path)
	if err != nil {
		p.fail(fmt.Errorf("parse %s: %w", a.Path, err))
		return
	}
	idx, err := gtfs.NewIndex(feed, p.opts)
	if err != nil {
		p.fail(fmt.Errorf("build index: %w", err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	p.holder.Publish(idx)

	p.mu.Lock()
	p.state = StatePublished
	p.lastErr = nil
	p.lastHash = a.Hash
	p.publishedAt = time.Now()
	p.mu.Unlock()

	stats := idx.Stats()
	p.log.Info("published GTFS index",
		"snapshot", idx.ID(),
		"routes", stats.Routes,
		"trips", stats.Trips,
		"stops", stats.Stops,
		"duration", time.Since(start))
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.state = StateFailed
	p.lastErr = err
	p.mu.Unlock()
	p.log.Error("GTFS refresh failed, keeping current index", "error", err)
}

// settle moves a failed pipeline back to idle before it waits for the next
// trigger. LastError keeps reporting the failure.
func (p *Pipeline) settle() {
	p.mu.Lock()
	if p.state == StateFailed {
		p.state = StateIdle
	}
	p.mu.Unlock()
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// LastError returns the error of the latest failed refresh, or nil once a
// later refresh succeeded.
func (p *Pipeline) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := Status{
		Source:      p.source.Name(),
		State:       p.state,
		PublishedAt: p.publishedAt,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	if idx := p.holder.Current(); idx != nil {
		st.SnapshotID = idx.ID()
	}
	return st
}
