// Package testfeed builds small GTFS archives for tests.
//
// The default network runs in Europe/Helsinki from 2024-01-01 (a Monday) to
// 2024-03-31:
//
//	T1  R1 weekdays  dir 0  S1 08:00 -> S2 08:05/08:06 -> S3 08:15, shape SH1
//	T2  R1 weekdays  dir 1  S3 08:00 -> S2 08:10 -> S1 08:20 (no pickup)
//	T3  R1 weekends  dir 0  S1 08:00 -> S2 (departure only 08:05)
//	TN  R2 weekdays  S1 23:50 -> S3 24:20 -> S4 25:10 (S4 is in Stockholm)
//
// S5 is a generic node of ST1 without coordinates.
//
// Weekday service WK skips 2024-01-02 and also runs on Saturday 2024-01-06.
package testfeed

import (
	"archive/zip"
	"bytes"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"
	_ "time/tzdata"
)

// ShapePolyline is the encoded polyline of shape SH1.
const ShapePolyline = "ujenJsxiwCpvLxpu]rvoCfkaJ"

// Files returns the CSV tables of the default network keyed by file name.
// The map is a fresh copy that callers may edit.
func Files() map[string]string {
	return maps.Clone(defaultFiles)
}

var defaultFiles = map[string]string{
	"agency.txt": `agency_id,agency_name,agency_url,agency_timezone,agency_lang
A1,Test Transit,https://example.com,Europe/Helsinki,fi
`,
	"stops.txt": `stop_id,stop_code,stop_name,stop_lat,stop_lon,location_type,parent_station,stop_timezone
ST1,,Central Station,60.1700,24.9385,1,,
S1,1,Central,60.1699,24.9384,0,ST1,
S2,2,Market,60.1710,24.9410,,,
S3,3,North,60.2000,24.9500,0,,
S4,4,Stockholm,59.3293,18.0686,0,,Europe/Stockholm
S5,5,Unmapped,,,3,ST1,
`,
	"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
R1,A1,1,Central - North,3
R2,,N,Night,3
`,
	"trips.txt": `route_id,service_id,trip_id,trip_headsign,direction_id,shape_id
R1,WK,T1,North,0,SH1
R1,WK,T2,Central,1,
R1,WE,T3,North,0,
R2,WK,TN,Stockholm,0,
`,
	"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence,stop_headsign,pickup_type,drop_off_type
T1,08:15:00,08:15:00,S3,3,,0,0
T1,08:00:00,08:00:00,S1,1,North,0,1
T1,08:05:00,08:06:00,S2,2,,,
T2,08:00:00,08:00:00,S3,1,,,
T2,08:10:00,08:10:00,S2,2,,,
T2,08:20:00,08:20:00,S1,3,,1,0
T3,08:00:00,08:00:00,S1,1,,,
T3,,08:05:00,S2,2,,,
TN,23:50:00,23:50:00,S1,1,,,
TN,24:20:00,24:20:00,S3,2,,,
TN,25:10:00,25:10:00,S4,3,,,
`,
	"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WK,1,1,1,1,1,0,0,20240101,20240331
WE,0,0,0,0,0,1,1,20240101,20240331
`,
	"calendar_dates.txt": `service_id,date,exception_type
WK,20240102,2
WK,20240106,1
`,
	"shapes.txt": `shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence
SH1,59.35048,18.11385,3
SH1,60.16187,24.95898,1
SH1,60.09154,19.92829,2
`,
}

// Zip packs files into a zip archive. Equal inputs give identical bytes.
func Zip(t testing.TB, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range slices.Sorted(maps.Keys(files)) {
		content := files[name]
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// Write stores the archive of files at dir/name and returns its path.
func Write(t testing.TB, dir, name string, files map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Zip(t, files), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
