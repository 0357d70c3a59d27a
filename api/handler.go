package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/gtfsrt"
	"github.com/mjaakko/gtfs-graphql-api/provider"
)

// IndexSource hands out the current index snapshot, or nil before the
// first one is published. Ready is closed by the first publish.
// *provider.Holder implements it.
type IndexSource interface {
	Current() *gtfs.Index
	Ready() <-chan struct{}
}

// defaultIndexWait bounds how long a query waits for the first snapshot.
const defaultIndexWait = 30 * time.Second

// VehicleSource is a realtime vehicle position feed. *gtfsrt.Feed
// implements it.
type VehicleSource interface {
	Latest() []gtfsrt.VehiclePosition
	SubscribeChanges(ctx context.Context) <-chan []gtfsrt.VehiclePosition
}

// StatusSource reports the state of the feed refresh. *provider.Pipeline
// implements it.
type StatusSource interface {
	Status() provider.Status
}

// Handler serves the query endpoints.
type Handler struct {
	indexes  IndexSource
	vehicles VehicleSource
	status   StatusSource
	log      *slog.Logger
	now      func() time.Time

	indexWait time.Duration
}

// NewHandler creates a handler. vehicles and status may be nil when the
// service runs without a realtime feed or refresh pipeline.
func NewHandler(indexes IndexSource, vehicles VehicleSource, status StatusSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		indexes:  indexes,
		vehicles: vehicles,
		status:   status,
		log:      logger.With("component", "api"),
		now:      time.Now,

		indexWait: defaultIndexWait,
	}
}

// withIndex pins the current snapshot for the duration of one request.
// Before the first publish the request waits for it.
func (h *Handler) withIndex(fn func(w http.ResponseWriter, r *http.Request, idx *gtfs.Index)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx := h.awaitIndex(r.Context())
		if idx == nil {
			writeError(w, http.StatusServiceUnavailable, "GTFS data not loaded yet", nil)
			return
		}
		fn(w, r, idx)
	}
}

// awaitIndex returns the current snapshot. It blocks until the first
// publish, indexWait or the end of ctx, and returns nil in the latter two cases.
func (h *Handler) awaitIndex(ctx context.Context) *gtfs.Index {
	if idx := h.indexes.Current(); idx != nil {
		return idx
	}
	timer := time.NewTimer(h.indexWait)
	defer timer.Stop()
	select {
	case <-h.indexes.Ready():
		return h.indexes.Current()
	case <-timer.C:
	case <-ctx.Done():
	}
	return nil
}
