package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet after a change event
// before it is reread.
const DefaultDebounce = 500 * time.Millisecond

// FileSource offers a local feed archive whenever it may have changed:
// at startup, after filesystem events on the file and on every poll tick.
// Unchanged content is filtered by its hash.
type FileSource struct {
	path         string
	pollInterval time.Duration
	debounce     time.Duration
	log          *slog.Logger

	started bool
	signals chan struct{}
}

// NewFileSource watches path. A zero debounce selects DefaultDebounce; a
// zero poll interval disables polling.
func NewFileSource(path string, pollInterval, debounce time.Duration, logger *slog.Logger) *FileSource {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:         path,
		pollInterval: pollInterval,
		debounce:     debounce,
		log:          logger.With("source", "file", "path", path),
		signals:      make(chan struct{}, 1),
	}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Next(ctx context.Context, report func(State)) (*Archive, error) {
	if !s.started {
		s.started = true
		go s.watch(ctx)
	} else {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.signals:
		}
	}

	return s.Load(ctx, report)
}

// Load hashes the file once without starting the watcher.
func (s *FileSource) Load(_ context.Context, report func(State)) (*Archive, error) {
	report(StateHashing)
	hash, err := hashFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", s.path, err)
	}
	return &Archive{Path: s.path, Hash: hash}, nil
}

// watch turns filesystem events and poll ticks into signals until ctx is
// done. Without a working watcher it falls back to polling alone.
func (s *FileSource) watch(ctx context.Context) {
	target := s.resolve()

	var events <-chan fsnotify.Event
	var errs <-chan error
	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(filepath.Dir(target))
	}
	if err != nil {
		s.log.Warn("file watcher unavailable, relying on polling", "error", err)
		if w != nil {
			_ = w.Close()
		}
	} else {
		defer w.Close()
		events, errs = w.Events, w.Errors
	}

	var tick <-chan time.Time
	if s.pollInterval > 0 {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var quiet <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != target || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			quiet = time.After(s.debounce)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.Warn("file watcher error", "error", err)
		case <-quiet:
			quiet = nil
			s.signal()
		case <-tick:
			s.signal()
		}
	}
}

// resolve follows a symlinked feed path so that events on the link target
// are seen.
func (s *FileSource) resolve() string {
	target := filepath.Clean(s.path)
	if fi, err := os.Lstat(target); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(target); err == nil {
			target = resolved
		}
	}
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	return target
}

func (s *FileSource) signal() {
	select {
	case s.signals <- struct{}{}:
	default:
	}
}
