package api

import (
	"net/http"
	"time"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/provider"
)

// HealthResponse is the JSON response for GET /api/health
type HealthResponse struct {
	Status           string           `json:"status"`
	Feed             *provider.Status `json:"feed,omitempty"`
	SnapshotID       string           `json:"snapshotId,omitempty"`
	SnapshotCreated  time.Time        `json:"snapshotCreatedAt,omitzero"`
	Stats            *gtfs.Stats      `json:"stats,omitempty"`
	VehiclePositions *int             `json:"vehiclePositions,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}

// GetHealth handles GET /api/health
// It answers 503 until the first index snapshot is published.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Timestamp: h.now().UTC()}
	if h.status != nil {
		st := h.status.Status()
		resp.Feed = &st
	}
	if h.vehicles != nil {
		n := len(h.vehicles.Latest())
		resp.VehiclePositions = &n
	}

	idx := h.indexes.Current()
	if idx == nil {
		resp.Status = "starting"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	stats := idx.Stats()
	resp.SnapshotID = idx.ID()
	resp.SnapshotCreated = idx.CreatedAt()
	resp.Stats = &stats
	if resp.Feed != nil && resp.Feed.LastError != "" {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}
