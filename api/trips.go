package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// GetTrip handles GET /api/trips/{tripID}?date=
// It answers 404 when the trip does not run on date.
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	id := chi.URLParam(r, "tripID")
	date, err := requiredDate(r, "date")
	if err != nil {
		badRequest(w, err)
		return
	}
	inst, ok := idx.TripInstance(id, date)
	if !ok {
		writeError(w, http.StatusNotFound, "trip not found", map[string]any{"id": id, "date": date})
		return
	}

	resp := TripResponse{
		TripInstance: inst,
		ScheduleRows: idx.TripScheduleRows(inst.TripID, inst.Date),
	}
	if rt, ok := idx.Route(inst.RouteID); ok {
		resp.Route = routeWithAgency(idx, rt)
	}
	if resp.ScheduleRows == nil {
		resp.ScheduleRows = []gtfs.TripScheduleRow{}
	}
	if shape, ok := idx.EncodedPolyline(inst.TripID); ok {
		resp.Shape = shape
	}
	if h.vehicles != nil {
		for _, v := range h.vehicles.Latest() {
			if vi, ok := v.ResolveTrip(idx); ok && vi.TripID == inst.TripID && vi.Date == inst.Date {
				resp.VehiclePosition = &v
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
