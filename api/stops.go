package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mjaakko/gtfs-graphql-api/geo"
	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// scheduleWindow is the default length of a stop schedule.
const scheduleWindow = 24 * time.Hour

// GetStops handles GET /api/stops
// Stations, entrances and other non-boarding locations are left out.
func (h *Handler) GetStops(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	writeJSON(w, http.StatusOK, newStopResponses(idx.Stops()))
}

// GetStop handles GET /api/stops/{stopID}
func (h *Handler) GetStop(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	id := chi.URLParam(r, "stopID")
	s, ok := idx.Stop(id)
	if !ok {
		notFound(w, "stop", id)
		return
	}
	writeJSON(w, http.StatusOK, newStopResponse(s))
}

// GetStopsNearby handles GET /api/stops/nearby?lat=&lon=&radius=
// radius is in meters.
func (h *Handler) GetStopsNearby(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	var center geo.LatLng
	var radius float64
	var err error
	if center.Lat, err = requiredFloat(r, "lat"); err != nil {
		badRequest(w, err)
		return
	}
	if center.Lon, err = requiredFloat(r, "lon"); err != nil {
		badRequest(w, err)
		return
	}
	if radius, err = requiredFloat(r, "radius"); err != nil {
		badRequest(w, err)
		return
	}
	if err := center.Validate(); err != nil {
		badRequest(w, err)
		return
	}
	if math.IsNaN(radius) || radius < 0 {
		badRequest(w, errors.New("radius must not be negative"))
		return
	}
	writeJSON(w, http.StatusOK, newStopResponses(idx.StopsNearby(center, radius)))
}

// GetStopSchedule handles GET /api/stops/{stopID}/schedule
// The window defaults to the next 24 hours. includeLastStop defaults to
// true; max caps the number of rows.
func (h *Handler) GetStopSchedule(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	id := chi.URLParam(r, "stopID")
	if _, ok := idx.Stop(id); !ok {
		notFound(w, "stop", id)
		return
	}

	from, err := queryInstant(r, "from", h.now())
	if err != nil {
		badRequest(w, err)
		return
	}
	to, err := queryInstant(r, "to", from.Add(scheduleWindow))
	if err != nil {
		badRequest(w, err)
		return
	}
	if to.Before(from) {
		badRequest(w, fmt.Errorf("to %s is before from %s", to.Format(time.RFC3339), from.Format(time.RFC3339)))
		return
	}
	limit, err := queryInt(r, "max")
	if err != nil {
		badRequest(w, err)
		return
	}
	includeLast, err := queryBool(r, "includeLastStop", true)
	if err != nil {
		badRequest(w, err)
		return
	}

	opts := gtfs.StopScheduleOptions{ExcludeLastStop: !includeLast}
	if limit != nil {
		if *limit < 1 {
			badRequest(w, errors.New("max must be positive"))
			return
		}
		opts.Max = *limit
	}
	rows := idx.StopScheduleRows(id, from, to, opts)
	if rows == nil {
		rows = []gtfs.StopScheduleRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}
