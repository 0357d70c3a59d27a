package gtfs

import (
	"github.com/mjaakko/gtfs-graphql-api/geo"
)

// ShapePoints returns the points of a shape ordered by sequence.
func (x *Index) ShapePoints(shapeID string) []ShapePoint { return x.shapes[shapeID] }

// ShapePolyline returns the encoded polyline of a shape. Shapes without
// points are absent.
func (x *Index) ShapePolyline(shapeID string) (string, bool) {
	return x.polylines.Get(shapeID)
}

// EncodedPolyline returns the path of a trip as an encoded polyline. The
// trip's shape is used when it has points; otherwise the polyline joins
// the trip's stops in order, skipping stops without coordinates.
func (x *Index) EncodedPolyline(tripID string) (string, bool) {
	t, ok := x.trips[tripID]
	if !ok {
		return "", false
	}
	if t.ShapeID != "" {
		if p, ok := x.polylines.Get(t.ShapeID); ok {
			return p, true
		}
	}
	sts := x.stopTimesByTrip[tripID]
	points := make([]geo.LatLng, 0, len(sts))
	for _, st := range sts {
		if p, ok := x.stops[st.StopID].Location(); ok {
			points = append(points, p)
		}
	}
	return geo.EncodePolyline(points), true
}

func (x *Index) encodeShape(shapeID string) (string, bool) {
	pts := x.shapes[shapeID]
	if len(pts) == 0 {
		return "", false
	}
	points := make([]geo.LatLng, len(pts))
	for i, p := range pts {
		points[i] = geo.LatLng{Lat: p.Lat, Lon: p.Lon}
	}
	return geo.EncodePolyline(points), true
}
