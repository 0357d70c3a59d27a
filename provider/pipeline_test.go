package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/internal/testfeed"
)

type fakeResult struct {
	archive *Archive
	err     error
}

type fakeSource struct {
	results chan fakeResult
	// observe, when set, samples the pipeline state each time Next is entered.
	observe func() State
	seen    chan State
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Load(ctx context.Context, report func(State)) (*Archive, error) {
	return f.Next(ctx, report)
}

func (f *fakeSource) Next(ctx context.Context, report func(State)) (*Archive, error) {
	if f.observe != nil {
		select {
		case f.seen <- f.observe():
		default:
		}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-f.results:
		return r.archive, r.err
	}
}

func eventuallyState(t *testing.T, p *Pipeline, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return p.State() == want }, 5*time.Second, 5*time.Millisecond, "state %s", want)
}

func eventuallyFailed(t *testing.T, p *Pipeline, target error) {
	t.Helper()
	require.Eventually(t, func() bool {
		err := p.LastError()
		return err != nil && (target == nil || errors.Is(err, target))
	}, 5*time.Second, 5*time.Millisecond, "no refresh failure recorded")
}

func TestPipeline_RefreshCycle(t *testing.T) {
	dir := t.TempDir()
	valid := testfeed.Write(t, dir, "valid.zip", testfeed.Files())
	larger := testfeed.Write(t, dir, "larger.zip", withExtraStop())
	broken := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0o644))

	src := &fakeSource{results: make(chan fakeResult)}
	holder := NewHolder()
	p := NewPipeline(src, gtfs.ZipParser{}, holder, gtfs.IndexOptions{}, nil)
	assert.Equal(t, StateIdle, p.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	src.results <- fakeResult{archive: &Archive{Path: valid, Hash: "a"}}
	idx, err := holder.WaitForIndex(ctx, 5*time.Second)
	require.NoError(t, err)
	eventuallyState(t, p, StatePublished)
	first := idx.ID()
	assert.Equal(t, first, p.Status().SnapshotID)

	src.results <- fakeResult{archive: &Archive{Path: broken, Hash: "b"}}
	eventuallyFailed(t, p, nil)
	eventuallyState(t, p, StateIdle)
	assert.NotEmpty(t, p.Status().LastError)
	assert.Equal(t, first, holder.Current().ID())

	src.results <- fakeResult{archive: &Archive{Path: valid, Hash: "a"}}
	eventuallyState(t, p, StateIdle)
	assert.Equal(t, first, holder.Current().ID())

	boom := errors.New("download failed")
	src.results <- fakeResult{err: boom}
	eventuallyFailed(t, p, boom)
	eventuallyState(t, p, StateIdle)

	var released atomic.Bool
	src.results <- fakeResult{archive: &Archive{Path: larger, Hash: "c", release: func() { released.Store(true) }}}
	eventuallyState(t, p, StatePublished)
	assert.NoError(t, p.LastError())
	assert.NotEqual(t, first, holder.Current().ID())
	assert.Equal(t, 7, holder.Current().Stats().Stops)
	require.Eventually(t, released.Load, 5*time.Second, 5*time.Millisecond, "archive not released")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPipeline_FileSource(t *testing.T) {
	dir := t.TempDir()
	path := testfeed.Write(t, dir, "feed.zip", testfeed.Files())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	holder := NewHolder()
	src := NewFileSource(path, 20*time.Millisecond, 10*time.Millisecond, nil)
	p := NewPipeline(src, gtfs.ZipParser{}, holder, gtfs.IndexOptions{}, nil)
	go func() { _ = p.Run(ctx) }()

	idx, err := holder.WaitForIndex(ctx, 5*time.Second)
	require.NoError(t, err)
	first := idx.ID()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, first, holder.Current().ID(), "unchanged file must not republish")

	tmp := testfeed.Write(t, dir, "feed.zip.tmp", withExtraStop())
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool { return holder.Current().Stats().Stops == 7 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	eventuallyFailed(t, p, nil)
	assert.Equal(t, 7, holder.Current().Stats().Stops)
}

func TestPipeline_FileSourceMissingFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	holder := NewHolder()
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.zip"), 10*time.Millisecond, 0, nil)
	p := NewPipeline(src, gtfs.ZipParser{}, holder, gtfs.IndexOptions{}, nil)
	go func() { _ = p.Run(ctx) }()

	eventuallyFailed(t, p, nil)
	_, err := holder.WaitForIndex(ctx, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrStartupTimeout)
}

func TestPipeline_FailureReturnsToIdleBeforeWaiting(t *testing.T) {
	src := &fakeSource{results: make(chan fakeResult), seen: make(chan State, 4)}
	p := NewPipeline(src, gtfs.ZipParser{}, NewHolder(), gtfs.IndexOptions{}, nil)
	src.observe = p.State

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	next := func() State {
		t.Helper()
		select {
		case s := <-src.seen:
			return s
		case <-time.After(5 * time.Second):
			t.Fatal("source not polled")
			return ""
		}
	}
	assert.Equal(t, StateIdle, next())

	boom := errors.New("download failed")
	src.results <- fakeResult{err: boom}
	assert.Equal(t, StateIdle, next(), "pipeline must wait for the next trigger as idle")
	assert.ErrorIs(t, p.LastError(), boom)
	assert.Equal(t, boom.Error(), p.Status().LastError)
}
