/*
Package geo provides the geographic primitives used by the GTFS index.

# Coordinates

LatLng is a plain degree pair. Distance is the haversine great-circle
distance on a sphere of radius EarthRadiusMeters. Input coming from clients
must be checked with Validate before it reaches an index:

	p := geo.LatLng{Lat: 60.1699, Lon: 24.9384}
	if err := p.Validate(); err != nil {
	    return err // errors.Is(err, geo.ErrInvalidCoordinates)
	}

# Spatial index

Index is a generic exact-radius index. It is built once from a slice and is
read-only afterwards, so it can be shared by any number of goroutines:

	idx := geo.NewIndex(stops, func(s *Stop) (geo.LatLng, bool) {
	    return s.Location()
	})
	nearby := idx.Within(p, 500)

# Polylines

EncodePolyline produces the Google encoded polyline string for a sequence
of points:

	geo.EncodePolyline([]geo.LatLng{{Lat: 60.16187, Lon: 24.95898}})
*/
package geo
