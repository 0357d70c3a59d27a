package geo

import (
	"math"
	"strings"
)

// EncodePolyline encodes points with the Google encoded polyline algorithm
// at five decimal places of precision.
func EncodePolyline(points []LatLng) string {
	var sb strings.Builder
	sb.Grow(len(points) * 8)
	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * 1e5))
		lon := int64(math.Round(p.Lon * 1e5))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}
