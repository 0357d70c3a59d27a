package gtfsrt

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// VehiclePosition is one vehicle entity of a feed message.
type VehiclePosition struct {
	TripID      string     `json:"tripId"`
	RouteID     string     `json:"routeId,omitempty"`
	DirectionID *int       `json:"directionId,omitempty"`
	StartTime   string     `json:"startTime,omitempty"` // HH:MM:SS, may exceed 24h
	TripDate    civil.Date `json:"tripDate"`

	VehicleID string  `json:"vehicleId"`
	Label     *string `json:"vehicleLabel,omitempty"`

	Lat     float32  `json:"latitude"`
	Lon     float32  `json:"longitude"`
	Bearing *float32 `json:"bearing,omitempty"`
	Speed   *float32 `json:"speed,omitempty"`

	Status              string    `json:"status"`
	CurrentStopSequence *int      `json:"currentStopSequence,omitempty"`
	StopID              *string   `json:"stopId,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// TripIndex is the part of a schedule index that vehicle positions are
// joined against. *gtfs.Index implements it.
type TripIndex interface {
	TripInstance(tripID string, date civil.Date) (gtfs.TripInstance, bool)
	TripID(routeID string, startTime int, date civil.Date, directionID *int) (string, bool)
	StopTimesForTrip(tripID string) []gtfs.StopTime
}

// ResolveTrip finds the scheduled trip the vehicle is serving. Positions
// without a trip id are matched by route, start time and direction.
func (v *VehiclePosition) ResolveTrip(idx TripIndex) (gtfs.TripInstance, bool) {
	tripID := v.TripID
	if tripID == "" {
		if v.RouteID == "" || v.StartTime == "" {
			return gtfs.TripInstance{}, false
		}
		start, err := gtfs.ParseTime(v.StartTime)
		if err != nil {
			return gtfs.TripInstance{}, false
		}
		var ok bool
		if tripID, ok = idx.TripID(v.RouteID, start, v.TripDate, v.DirectionID); !ok {
			return gtfs.TripInstance{}, false
		}
	}
	return idx.TripInstance(tripID, v.TripDate)
}

// CurrentStop returns the stop time the vehicle reports being at or heading
// to. The stop sequence wins over the stop id when both are present.
func (v *VehiclePosition) CurrentStop(idx TripIndex) (gtfs.StopTime, bool) {
	inst, ok := v.ResolveTrip(idx)
	if !ok {
		return gtfs.StopTime{}, false
	}
	sts := idx.StopTimesForTrip(inst.TripID)
	if v.CurrentStopSequence != nil {
		for _, st := range sts {
			if st.Sequence == *v.CurrentStopSequence {
				return st, true
			}
		}
	}
	if v.StopID != nil {
		for _, st := range sts {
			if st.StopID == *v.StopID {
				return st, true
			}
		}
	}
	return gtfs.StopTime{}, false
}
