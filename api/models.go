package api

import (
	"cloud.google.com/go/civil"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
	"github.com/mjaakko/gtfs-graphql-api/gtfsrt"
)

type AgencyResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Timezone string `json:"timezone"`
	Lang     string `json:"lang,omitempty"`
	Phone    string `json:"phone,omitempty"`
	FareURL  string `json:"fareUrl,omitempty"`
	Email    string `json:"email,omitempty"`
}

type RouteResponse struct {
	ID        string          `json:"id"`
	ShortName string          `json:"shortName,omitempty"`
	LongName  string          `json:"longName,omitempty"`
	Type      int             `json:"type"`
	AgencyID  string          `json:"agencyId,omitempty"`
	Agency    *AgencyResponse `json:"agency,omitempty"`
}

type StopResponse struct {
	ID        string   `json:"id"`
	Code      string   `json:"code,omitempty"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
}

// TripResponse is a trip instance with its schedule, path and the live
// position of the vehicle serving it.
type TripResponse struct {
	gtfs.TripInstance
	Route           *RouteResponse          `json:"route,omitempty"`
	ScheduleRows    []gtfs.TripScheduleRow  `json:"scheduleRows"`
	Shape           string                  `json:"shape,omitempty"`
	VehiclePosition *gtfsrt.VehiclePosition `json:"vehiclePosition,omitempty"`
}

// VehiclePositionResponse joins a vehicle position with the schedule.
type VehiclePositionResponse struct {
	gtfsrt.VehiclePosition
	Trip        *gtfs.TripInstance    `json:"trip,omitempty"`
	CurrentStop *gtfs.TripScheduleRow `json:"currentStop,omitempty"`
}

type TripIDResponse struct {
	TripID string     `json:"tripId"`
	Date   civil.Date `json:"date"`
}

func newAgencyResponse(a *gtfs.Agency) AgencyResponse {
	resp := AgencyResponse{
		ID:      a.ID,
		Name:    a.Name,
		URL:     a.URL,
		Lang:    a.Lang,
		Phone:   a.Phone,
		FareURL: a.FareURL,
		Email:   a.Email,
	}
	if a.Timezone != nil {
		resp.Timezone = a.Timezone.String()
	}
	return resp
}

func newRouteResponse(r *gtfs.Route) RouteResponse {
	return RouteResponse{
		ID:        r.ID,
		ShortName: r.ShortName,
		LongName:  r.LongName,
		Type:      r.Type,
		AgencyID:  r.AgencyID,
	}
}

func newStopResponse(s *gtfs.Stop) StopResponse {
	resp := StopResponse{
		ID:        s.ID,
		Code:      s.Code,
		Name:      s.Name,
		Latitude:  s.Lat,
		Longitude: s.Lon,
	}
	if s.Timezone != nil {
		resp.Timezone = s.Timezone.String()
	}
	return resp
}

func newStopResponses(stops []*gtfs.Stop) []StopResponse {
	out := make([]StopResponse, 0, len(stops))
	for _, s := range stops {
		if s.IsBoardingStop() {
			out = append(out, newStopResponse(s))
		}
	}
	return out
}
