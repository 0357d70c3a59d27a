package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// GetAgencies handles GET /api/agencies
func (h *Handler) GetAgencies(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	agencies := idx.Agencies()
	out := make([]AgencyResponse, 0, len(agencies))
	for _, a := range agencies {
		out = append(out, newAgencyResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetAgency handles GET /api/agencies/{agencyID}
func (h *Handler) GetAgency(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	id := chi.URLParam(r, "agencyID")
	a, ok := idx.Agency(id)
	if !ok {
		notFound(w, "agency", id)
		return
	}
	writeJSON(w, http.StatusOK, newAgencyResponse(a))
}

// GetAgencyRoutes handles GET /api/agencies/{agencyID}/routes
func (h *Handler) GetAgencyRoutes(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	id := chi.URLParam(r, "agencyID")
	if _, ok := idx.Agency(id); !ok {
		notFound(w, "agency", id)
		return
	}
	routes := idx.RoutesForAgency(id)
	out := make([]RouteResponse, 0, len(routes))
	for _, rt := range routes {
		out = append(out, newRouteResponse(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRoutes handles GET /api/routes
func (h *Handler) GetRoutes(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	routes := idx.Routes()
	out := make([]RouteResponse, 0, len(routes))
	for _, rt := range routes {
		out = append(out, newRouteResponse(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRoute handles GET /api/routes/{routeID}
// The operating agency is embedded when it can be resolved.
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	id := chi.URLParam(r, "routeID")
	rt, ok := idx.Route(id)
	if !ok {
		notFound(w, "route", id)
		return
	}
	writeJSON(w, http.StatusOK, routeWithAgency(idx, rt))
}

func routeWithAgency(idx *gtfs.Index, rt *gtfs.Route) *RouteResponse {
	resp := newRouteResponse(rt)
	if a, ok := idx.AgencyForRoute(rt.ID); ok {
		agency := newAgencyResponse(a)
		resp.Agency = &agency
	}
	return &resp
}

// GetRouteTrips handles GET /api/routes/{routeID}/trips
// Optional from and to dates bound the service dates, both inclusive.
func (h *Handler) GetRouteTrips(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	id := chi.URLParam(r, "routeID")
	if _, ok := idx.Route(id); !ok {
		notFound(w, "route", id)
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		badRequest(w, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		badRequest(w, err)
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		badRequest(w, fmt.Errorf("to %s is before from %s", *to, *from))
		return
	}
	out := idx.TripInstancesForRoute(id, from, to)
	if out == nil {
		out = []gtfs.TripInstance{}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRouteTripID handles GET /api/routes/{routeID}/trip-id
// It finds the trip of the route starting at startTime on date. direction
// is optional and only breaks ties.
func (h *Handler) GetRouteTripID(w http.ResponseWriter, r *http.Request, idx *gtfs.Index) {
	routeID := chi.URLParam(r, "routeID")
	if _, ok := idx.Route(routeID); !ok {
		notFound(w, "route", routeID)
		return
	}
	start, err := queryGTFSTime(r, "startTime")
	if err != nil {
		badRequest(w, err)
		return
	}
	date, err := requiredDate(r, "date")
	if err != nil {
		badRequest(w, err)
		return
	}
	direction, err := queryInt(r, "direction")
	if err != nil {
		badRequest(w, err)
		return
	}
	tripID, ok := idx.TripID(routeID, start, date, direction)
	if !ok {
		writeError(w, http.StatusNotFound, "trip not found", map[string]any{
			"routeId":   routeID,
			"startTime": gtfs.FormatTime(start),
			"date":      date,
		})
		return
	}
	writeJSON(w, http.StatusOK, TripIDResponse{TripID: tripID, Date: date})
}
