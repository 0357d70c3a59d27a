package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// HTTPSourceOptions configures an HTTPSource. Zero values select defaults.
type HTTPSourceOptions struct {
	// Interval is the delay between the end of one download cycle and the
	// start of the next.
	Interval time.Duration
	// Retries bounds how many times a failed download is retried within one
	// cycle.
	Retries uint64
	// RetryInterval is the initial delay between retries. It grows
	// exponentially.
	RetryInterval time.Duration
	// Timeout bounds a single download attempt.
	Timeout time.Duration
	// TempDir holds downloads while they are parsed. Empty means os.TempDir.
	TempDir string
}

const (
	defaultUpdateInterval = time.Hour
	defaultRetries        = 3
	defaultRetryInterval  = 5 * time.Second
	defaultTimeout        = 10 * time.Minute
)

// HTTPSource downloads a feed archive on a fixed interval. Every download
// is offered to the pipeline; the temporary file is removed once the
// archive is released or the download fails.
type HTTPSource struct {
	url    string
	opts   HTTPSourceOptions
	client *http.Client
	log    *slog.Logger

	started bool
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.code, e.url)
}

func NewHTTPSource(url string, opts HTTPSourceOptions, logger *slog.Logger) *HTTPSource {
	if opts.Interval <= 0 {
		opts.Interval = defaultUpdateInterval
	}
	if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		url:    url,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    logger.With("source", "http", "url", url),
	}
}

func (s *HTTPSource) Name() string { return "http:" + s.url }

func (s *HTTPSource) Next(ctx context.Context, report func(State)) (*Archive, error) {
	if s.started {
		t := time.NewTimer(s.opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	s.started = true
	return s.Load(ctx, report)
}

// Load downloads the feed once. The archive removes its file on release.
func (s *HTTPSource) Load(ctx context.Context, report func(State)) (*Archive, error) {
	report(StateDownloading)
	start := time.Now()
	path, err := s.download(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("downloaded GTFS feed", "file", path, "duration", time.Since(start))
	return &Archive{
		Path: path,
		release: func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.log.Warn("couldn't remove downloaded feed", "file", path, "error", err)
			}
		},
	}, nil
}

// download fetches the feed into a temporary file, retrying transient
// failures. Client errors (4xx) are not retried.
func (s *HTTPSource) download(ctx context.Context) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.opts.Retries), ctx)

	return backoff.RetryNotifyWithData(
		func() (string, error) {
			path, err := s.downloadOnce(ctx)
			var se *statusError
			if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
				return "", backoff.Permanent(err)
			}
			return path, err
		},
		policy,
		func(err error, d time.Duration) {
			s.log.Warn("GTFS download failed, retrying", "in", d, "error", err)
		},
	)
}

func (s *HTTPSource) downloadOnce(ctx context.Context) (path string, err error) {
	f, err := os.CreateTemp(s.opts.TempDir, "gtfs-*.zip")
	if err != nil {
		return "", errors.Wrap(err, "couldn't create temp file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "couldn't close temp file")
		}
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", errors.Wrap(err, "couldn't build request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch %s", s.url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{code: resp.StatusCode, url: s.url}
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", errors.Wrap(err, "couldn't write feed")
	}
	return f.Name(), nil
}
