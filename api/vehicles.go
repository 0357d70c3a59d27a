package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/gtfsrt"
)

// GetVehiclePositions handles GET /api/vehicle-positions
// Positions are joined with the schedule when an index is loaded.
func (h *Handler) GetVehiclePositions(w http.ResponseWriter, r *http.Request) {
	if h.vehicles == nil {
		writeError(w, http.StatusNotFound, "vehicle position feed not configured", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.joinVehicles(h.vehicles.Latest()))
}

// StreamVehiclePositions handles GET /api/vehicle-positions/stream
// It sends a server-sent event for every changed vehicle position list
// until the client goes away.
func (h *Handler) StreamVehiclePositions(w http.ResponseWriter, r *http.Request) {
	if h.vehicles == nil {
		writeError(w, http.StatusNotFound, "vehicle position feed not configured", nil)
		return
	}
	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.Warn("vehicle stream cannot flush", "error", err)
		return
	}

	h.log.Debug("vehicle stream opened", "remote", r.RemoteAddr)
	for positions := range h.vehicles.SubscribeChanges(r.Context()) {
		data, err := json.Marshal(h.joinVehicles(positions))
		if err != nil {
			h.log.Error("encode vehicle positions", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: vehicle-positions\ndata: %s\n\n", data); err != nil {
			break
		}
		if err := rc.Flush(); err != nil {
			break
		}
	}
	h.log.Debug("vehicle stream closed", "remote", r.RemoteAddr)
}

func (h *Handler) joinVehicles(positions []gtfsrt.VehiclePosition) []VehiclePositionResponse {
	idx := h.indexes.Current()
	out := make([]VehiclePositionResponse, 0, len(positions))
	for _, v := range positions {
		resp := VehiclePositionResponse{VehiclePosition: v}
		if idx != nil {
			resp.Trip, resp.CurrentStop = joinSchedule(idx, &v)
		}
		out = append(out, resp)
	}
	return out
}

// joinSchedule resolves the trip a vehicle serves and the schedule row of
// the stop it reports.
func joinSchedule(idx *gtfs.Index, v *gtfsrt.VehiclePosition) (*gtfs.TripInstance, *gtfs.TripScheduleRow) {
	inst, ok := v.ResolveTrip(idx)
	if !ok {
		return nil, nil
	}
	st, ok := v.CurrentStop(idx)
	if !ok {
		return &inst, nil
	}
	for _, row := range idx.TripScheduleRows(inst.TripID, inst.Date) {
		if row.Sequence == st.Sequence {
			return &inst, &row
		}
	}
	return &inst, nil
}
