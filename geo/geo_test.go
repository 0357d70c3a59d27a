package geo

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePolyline(t *testing.T) {
	tests := []struct {
		name   string
		points []LatLng
		want   string
	}{
		{
			name:   "three points",
			points: []LatLng{{60.16187, 24.95898}, {60.09154, 19.92829}, {59.35048, 18.11385}},
			want:   "ujenJsxiwCpvLxpu]rvoCfkaJ",
		},
		{
			name:   "google reference",
			points: []LatLng{{38.5, -120.2}, {40.7, -120.95}, {43.252, -126.453}},
			want:   "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
		},
		{
			name:   "no points",
			points: nil,
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodePolyline(tt.points))
		})
	}
}

func TestDistance(t *testing.T) {
	helsinki := LatLng{60.1699, 24.9384}
	tallinn := LatLng{59.4370, 24.7536}

	d := Distance(helsinki, tallinn)
	assert.InDelta(t, 82000, d, 1500)
	assert.Equal(t, d, Distance(tallinn, helsinki))
	assert.Equal(t, 0.0, Distance(helsinki, helsinki))
	assert.InDelta(t, math.Pi*EarthRadiusMeters, Distance(LatLng{0, 0}, LatLng{0, 180}), 1e-6)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		p     LatLng
		valid bool
	}{
		{"origin", LatLng{0, 0}, true},
		{"corners", LatLng{90, 180}, true},
		{"negative corners", LatLng{-90, -180}, true},
		{"latitude too high", LatLng{90.0001, 0}, false},
		{"longitude too low", LatLng{0, -180.5}, false},
		{"nan", LatLng{math.NaN(), 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidCoordinates))
			}
		})
	}
}

func TestDisplace(t *testing.T) {
	start := LatLng{60.1699, 24.9384}
	for _, bearing := range []float64{0, 45, 90, 180, 270} {
		moved := start.Displace(1000, bearing)
		assert.InDelta(t, 1000, Distance(start, moved), 0.01, "bearing %v", bearing)
	}

	wrapped := LatLng{0, 179.999}.Displace(1000, 90)
	assert.Less(t, wrapped.Lon, 0.0)
	assert.NoError(t, wrapped.Validate())
}

type point struct {
	id string
	p  LatLng
	ok bool
}

func locate(p point) (LatLng, bool) { return p.p, p.ok }

func ids(points []point) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, p.id)
	}
	sort.Strings(out)
	return out
}

func bruteForce(points []point, center LatLng, radius float64) []point {
	var out []point
	for _, p := range points {
		if p.ok && Distance(center, p.p) <= radius {
			out = append(out, p)
		}
	}
	return out
}

func TestIndexWithin_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 300; iter++ {
		// Cluster around a random origin so that radii actually catch points,
		// including origins near the poles and the antimeridian.
		origin := LatLng{Lat: r.Float64()*180 - 90, Lon: r.Float64()*360 - 180}
		spread := []float64{0.01, 0.5, 5, 60}[r.Intn(4)]
		n := r.Intn(200)
		points := make([]point, n)
		for i := range points {
			lat := math.Max(-90, math.Min(90, origin.Lat+(r.Float64()*2-1)*spread))
			lon := origin.Lon + (r.Float64()*2-1)*spread
			lon = math.Mod(lon+540, 360) - 180
			points[i] = point{id: string(rune('a'+i%26)) + string(rune('0'+i/26)), p: LatLng{lat, lon}, ok: r.Intn(10) != 0}
		}
		idx := NewIndex(points, locate)

		center := LatLng{
			Lat: math.Max(-90, math.Min(90, origin.Lat+(r.Float64()*2-1)*spread)),
			Lon: math.Mod(origin.Lon+(r.Float64()*2-1)*spread+540, 360) - 180,
		}
		radius := r.Float64() * spread * 111000 * 1.5

		require.Equal(t, ids(bruteForce(points, center, radius)), ids(idx.Within(center, radius)),
			"center %v radius %v", center, radius)
	}
}

func TestIndexWithin_EdgeCases(t *testing.T) {
	points := []point{
		{"east", LatLng{0, 179.9995}, true},
		{"west", LatLng{0, -179.9995}, true},
		{"pole", LatLng{89.9999, 0}, true},
		{"far pole side", LatLng{89.9999, 180}, true},
		{"no coordinates", LatLng{}, false},
	}
	idx := NewIndex(points, locate)
	assert.Equal(t, 4, idx.Len())

	assert.Equal(t, []string{"east", "west"}, ids(idx.Within(LatLng{0, 180}, 200)))
	assert.Equal(t, []string{"far pole side", "pole"}, ids(idx.Within(LatLng{90, 0}, 50)))
	assert.Empty(t, idx.Within(LatLng{0, 0}, 1000))
	assert.Len(t, idx.Within(LatLng{0, 0}, math.Pi*EarthRadiusMeters), 4)
	assert.Empty(t, idx.Within(LatLng{0, 0}, -1))
}
