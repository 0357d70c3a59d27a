package gtfs

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/mjaakko/gtfs-graphql-api/geo"
)

// Agency is a row of agency.txt.
type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone *time.Location
	Lang     string
	Phone    string
	FareURL  string
	Email    string
}

// Route is a row of routes.txt.
type Route struct {
	ID        string
	AgencyID  string // may be empty when the feed has a single agency
	ShortName string
	LongName  string
	Type      int
}

// Trip is a row of trips.txt.
type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	ShortName   string
	DirectionID *int
	ShapeID     string
	BlockID     string
}

// Location types from stops.txt. A missing value means LocationTypeStop.
// Generic nodes and boarding areas (3 and 4) are neither.
const (
	LocationTypeStop     = 0
	LocationTypeStation  = 1
	LocationTypeEntrance = 2
)

// Stop is a row of stops.txt.
type Stop struct {
	ID            string
	Code          string
	Name          string
	Lat           *float64
	Lon           *float64
	Timezone      *time.Location // nil when the stop does not declare one
	LocationType  *int
	ParentStation string
}

// Location returns the stop coordinates when both are present.
func (s *Stop) Location() (geo.LatLng, bool) {
	if s.Lat == nil || s.Lon == nil {
		return geo.LatLng{}, false
	}
	return geo.LatLng{Lat: *s.Lat, Lon: *s.Lon}, true
}

// IsBoardingStop reports whether the stop is a stop or platform rather than
// a station, entrance or node.
func (s *Stop) IsBoardingStop() bool {
	return s.LocationType == nil || *s.LocationType == LocationTypeStop
}

// Pickup and drop-off types from stop_times.txt.
const (
	BoardingRegular     = 0
	BoardingNone        = 1
	BoardingPhoneAgency = 2
	BoardingCoordinate  = 3
)

// StopTime is a row of stop_times.txt. Arrival and Departure are GTFS times
// in seconds since the service day start and may exceed 24 hours.
type StopTime struct {
	TripID      string
	StopID      string
	Sequence    int
	Arrival     *int
	Departure   *int
	Headsign    string
	PickupType  int
	DropOffType int
}

func (st *StopTime) HasPickUp() bool  { return st.PickupType != BoardingNone }
func (st *StopTime) HasDropOff() bool { return st.DropOffType != BoardingNone }

// Calendar is a row of calendar.txt. Days is indexed by time.Weekday.
type Calendar struct {
	ServiceID string
	Days      [7]bool
	StartDate civil.Date
	EndDate   civil.Date
}

// Exception types from calendar_dates.txt.
const (
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

// CalendarDate is a row of calendar_dates.txt.
type CalendarDate struct {
	ServiceID     string
	Date          civil.Date
	ExceptionType int
}

// ShapePoint is a row of shapes.txt.
type ShapePoint struct {
	ShapeID  string
	Lat      float64
	Lon      float64
	Sequence int
}

// Feed holds the parsed tables of one GTFS archive.
type Feed struct {
	Agencies      []Agency
	Routes        []Route
	Trips         []Trip
	Stops         []Stop
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
	Shapes        []ShapePoint
}

// TripInstance is a trip running on one service date. Instances order by
// date, then trip id.
type TripInstance struct {
	TripID   string     `json:"tripId"`
	Date     civil.Date `json:"date"`
	RouteID  string     `json:"routeId"`
	Headsign string     `json:"headsign,omitempty"`
}

// Compare orders instances by date, then by trip id.
func (a TripInstance) Compare(b TripInstance) int {
	switch {
	case a.Date.Before(b.Date):
		return -1
	case a.Date.After(b.Date):
		return 1
	case a.TripID < b.TripID:
		return -1
	case a.TripID > b.TripID:
		return 1
	}
	return 0
}

// TripScheduleRow is one stop of a trip instance with absolute times.
type TripScheduleRow struct {
	Sequence  int        `json:"sequence"`
	StopID    string     `json:"stopId"`
	Headsign  string     `json:"headsign,omitempty"`
	Arrival   *time.Time `json:"arrival,omitempty"`
	Departure *time.Time `json:"departure,omitempty"`
	DropOff   bool       `json:"dropOff"`
	PickUp    bool       `json:"pickUp"`
}

// StopScheduleRow is one call of a trip instance at a stop.
type StopScheduleRow struct {
	TripID    string     `json:"tripId"`
	TripDate  civil.Date `json:"tripDate"`
	Headsign  string     `json:"headsign,omitempty"`
	Arrival   *time.Time `json:"arrival,omitempty"`
	Departure *time.Time `json:"departure,omitempty"`
	DropOff   bool       `json:"dropOff"`
	PickUp    bool       `json:"pickUp"`
}
