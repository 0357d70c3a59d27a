package geo

import (
	"math"

	"github.com/tidwall/rtree"
)

// boxPadding widens search boxes so that rounding in the box bounds never
// loses a point that the exact distance filter would accept.
const boxPadding = 1e-6

// Index answers exact within-radius queries over a fixed set of items.
// Candidates come from an R-tree bounding box search and are then filtered
// by haversine distance, so the result equals a linear scan.
type Index[T any] struct {
	tree   rtree.RTree
	items  []T
	points []LatLng
}

// NewIndex indexes every item for which locate reports a valid coordinate.
func NewIndex[T any](items []T, locate func(T) (LatLng, bool)) *Index[T] {
	idx := &Index[T]{}
	for _, it := range items {
		p, ok := locate(it)
		if !ok || p.Validate() != nil {
			continue
		}
		i := len(idx.items)
		idx.items = append(idx.items, it)
		idx.points = append(idx.points, p)
		// [lat, lon] for both corners, a point is a degenerate box
		idx.tree.Insert([2]float64{p.Lat, p.Lon}, [2]float64{p.Lat, p.Lon}, i)
	}
	return idx
}

// Len returns the number of indexed items.
func (x *Index[T]) Len() int { return len(x.items) }

// Within returns every item whose distance to center is at most radius
// meters. Order is unspecified. center must be valid.
func (x *Index[T]) Within(center LatLng, radius float64) []T {
	if radius < 0 || len(x.items) == 0 {
		return nil
	}
	var out []T
	seen := make(map[int]struct{})
	for _, b := range searchBoxes(center, radius) {
		x.tree.Search(b[0], b[1], func(_, _ [2]float64, data interface{}) bool {
			i := data.(int)
			if _, dup := seen[i]; dup {
				return true
			}
			seen[i] = struct{}{}
			if Distance(center, x.points[i]) <= radius {
				out = append(out, x.items[i])
			}
			return true
		})
	}
	return out
}

// searchBoxes returns [lat,lon] min/max boxes covering the spherical cap of
// the given radius around center. The cap is split at the antimeridian and
// spans all longitudes when it contains a pole.
func searchBoxes(center LatLng, radius float64) [][2][2]float64 {
	d := radius / EarthRadiusMeters
	if d >= math.Pi {
		return [][2][2]float64{box(-90, -180, 90, 180)}
	}
	lat := radians(center.Lat)
	minLat, maxLat := lat-d, lat+d
	if minLat <= -math.Pi/2 || maxLat >= math.Pi/2 {
		return [][2][2]float64{box(math.Max(-90, degrees(minLat)), -180, math.Min(90, degrees(maxLat)), 180)}
	}
	ratio := math.Sin(d) / math.Cos(lat)
	if ratio >= 1 {
		return [][2][2]float64{box(degrees(minLat), -180, degrees(maxLat), 180)}
	}
	dLon := degrees(math.Asin(ratio))
	lo, hi := degrees(minLat), degrees(maxLat)
	minLon, maxLon := center.Lon-dLon, center.Lon+dLon
	switch {
	case minLon < -180:
		return [][2][2]float64{box(lo, minLon+360, hi, 180), box(lo, -180, hi, maxLon)}
	case maxLon > 180:
		return [][2][2]float64{box(lo, minLon, hi, 180), box(lo, -180, hi, maxLon-360)}
	default:
		return [][2][2]float64{box(lo, minLon, hi, maxLon)}
	}
}

func box(minLat, minLon, maxLat, maxLon float64) [2][2]float64 {
	return [2][2]float64{
		{minLat - boxPadding, minLon - boxPadding},
		{maxLat + boxPadding, maxLon + boxPadding},
	}
}
