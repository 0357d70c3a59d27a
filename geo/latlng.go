package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by every distance calculation.
const EarthRadiusMeters = 6371000.0

// ErrInvalidCoordinates reports a latitude outside [-90, 90] or a longitude
// outside [-180, 180].
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate returns ErrInvalidCoordinates when the point is out of range.
func (p LatLng) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, p.Lat, p.Lon)
	}
	return nil
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b LatLng) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	h = math.Min(1, h)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceTo is Distance(p, other).
func (p LatLng) DistanceTo(other LatLng) float64 { return Distance(p, other) }

// Displace returns the point reached by travelling distance meters from p
// along the great circle with the given initial bearing in degrees.
func (p LatLng) Displace(distance, bearing float64) LatLng {
	ang := distance / EarthRadiusMeters
	lat1, lon1, brg := radians(p.Lat), radians(p.Lon), radians(bearing)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(math.Sin(brg)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	return LatLng{Lat: degrees(lat2), Lon: math.Mod(degrees(lon2)+540, 360) - 180}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
