package gtfsrt

import (
	"fmt"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// Decode parses a feed message and returns its vehicle positions in feed
// order. Entities without a vehicle are skipped.
func Decode(data []byte) ([]VehiclePosition, error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}
	out := make([]VehiclePosition, 0, len(fm.GetEntity()))
	for _, e := range fm.GetEntity() {
		if e.GetVehicle() == nil {
			continue
		}
		out = append(out, fromProto(e.GetVehicle()))
	}
	return out, nil
}

func fromProto(v *gtfsrtpb.VehiclePosition) VehiclePosition {
	trip := v.GetTrip()
	vp := VehiclePosition{
		TripID:    trip.GetTripId(),
		RouteID:   trip.GetRouteId(),
		StartTime: trip.GetStartTime(),
		VehicleID: v.GetVehicle().GetId(),
		Lat:       v.GetPosition().GetLatitude(),
		Lon:       v.GetPosition().GetLongitude(),
		Status:    v.GetCurrentStatus().String(),
		Timestamp: time.Unix(int64(v.GetTimestamp()), 0).UTC(),
	}
	// An unparseable start date leaves TripDate zero; the trip then never
	// resolves.
	if d, err := gtfs.ParseDate(trip.GetStartDate()); err == nil {
		vp.TripDate = d
	}
	if trip != nil && trip.DirectionId != nil {
		dir := int(*trip.DirectionId)
		vp.DirectionID = &dir
	}
	if veh := v.GetVehicle(); veh != nil && veh.Label != nil {
		vp.Label = proto.String(veh.GetLabel())
	}
	if pos := v.GetPosition(); pos != nil {
		vp.Bearing = pos.Bearing
		vp.Speed = pos.Speed
	}
	if v.CurrentStopSequence != nil {
		seq := int(v.GetCurrentStopSequence())
		vp.CurrentStopSequence = &seq
	}
	if v.StopId != nil {
		vp.StopID = proto.String(v.GetStopId())
	}
	return vp
}
