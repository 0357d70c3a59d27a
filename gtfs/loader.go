package gtfs

import (
	"archive/zip"
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/patrickbr/gtfsparser"
	pgtfs "github.com/patrickbr/gtfsparser/gtfs"
)

var (
	// ErrMissingFile is returned when a required table is absent from the archive.
	ErrMissingFile = errors.New("gtfs: missing required file")
	// ErrMissingColumn is returned when a required column is absent from a table header.
	ErrMissingColumn = errors.New("gtfs: missing required field")
	// ErrInvalidFeed wraps row-level errors reported by the feed parser.
	ErrInvalidFeed = errors.New("gtfs: invalid feed")
)

// Parser turns a GTFS archive into typed tables.
type Parser interface {
	ParseFile(ctx context.Context, path string) (*Feed, error)
}

// ZipParser reads GTFS zip archives from disk with gtfsparser.
type ZipParser struct{}

// ParseFile parses the archive at path.
func (ZipParser) ParseFile(ctx context.Context, path string) (*Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkArchive(path); err != nil {
		return nil, err
	}
	src := gtfsparser.NewFeed()
	if err := src.Parse(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFeed, filepath.Base(path), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return convertFeed(src)
}

// ParseBytes parses an in-memory archive.
func ParseBytes(ctx context.Context, data []byte) (*Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp("", "gtfs-*.zip")
	if err != nil {
		return nil, fmt.Errorf("stage archive: %w", err)
	}
	defer os.Remove(f.Name())
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("stage archive: %w", err)
	}
	return ZipParser{}.ParseFile(ctx, f.Name())
}

// requiredColumns lists the header fields gtfsparser cannot default.
var requiredColumns = map[string][]string{
	"agency.txt":     {"agency_name", "agency_url", "agency_timezone"},
	"stops.txt":      {"stop_id"},
	"routes.txt":     {"route_id", "route_type"},
	"trips.txt":      {"route_id", "service_id", "trip_id"},
	"stop_times.txt": {"trip_id", "stop_id", "stop_sequence"},
}

// checkArchive reports missing tables and header columns with typed errors
// before the archive is handed to gtfsparser.
func checkArchive(name string) error {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[strings.ToLower(path.Base(f.Name))] = f
	}
	for _, table := range slices.Sorted(maps.Keys(requiredColumns)) {
		f, ok := files[table]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingFile, table)
		}
		head, err := readHeader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", table, err)
		}
		for _, col := range requiredColumns[table] {
			if !slices.Contains(head, col) {
				return fmt.Errorf("%w: %s in %s", ErrMissingColumn, col, table)
			}
		}
	}
	if files["calendar.txt"] == nil && files["calendar_dates.txt"] == nil {
		return fmt.Errorf("%w: calendar.txt or calendar_dates.txt", ErrMissingFile)
	}
	return nil
}

func readHeader(f *zip.File) ([]string, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	head, err := csv.NewReader(r).Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range head {
		head[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return head, nil
}

// convertFeed maps the linked gtfsparser model onto flat tables. Rows are
// ordered by id so equal archives give equal tables.
func convertFeed(src *gtfsparser.Feed) (*Feed, error) {
	c := &converter{zones: map[string]*time.Location{}}
	feed := &Feed{}

	for _, id := range slices.Sorted(maps.Keys(src.Agencies)) {
		a := src.Agencies[id]
		loc, err := c.zone(a.Timezone)
		if err != nil {
			return nil, fmt.Errorf("agency %s: %w", a.Id, err)
		}
		out := Agency{
			ID:       a.Id,
			Name:     a.Name,
			Timezone: loc,
			Lang:     a.Lang.GetLangString(),
			Phone:    a.Phone,
		}
		if a.Url != nil {
			out.URL = a.Url.String()
		}
		if a.Fare_url != nil {
			out.FareURL = a.Fare_url.String()
		}
		if a.Email != nil {
			out.Email = a.Email.Address
		}
		feed.Agencies = append(feed.Agencies, out)
	}

	for _, id := range slices.Sorted(maps.Keys(src.Stops)) {
		s := src.Stops[id]
		loc, err := c.zone(s.Timezone)
		if err != nil {
			return nil, fmt.Errorf("stop %s: %w", s.Id, err)
		}
		locationType := int(s.Location_type)
		out := Stop{
			ID:           s.Id,
			Code:         s.Code,
			Name:         s.Name,
			Timezone:     loc,
			LocationType: &locationType,
		}
		// Nodes and boarding areas may omit coordinates; gtfsparser keeps them as NaN.
		if !math.IsNaN(float64(s.Lat)) && !math.IsNaN(float64(s.Lon)) {
			lat, lon := widen(s.Lat), widen(s.Lon)
			out.Lat, out.Lon = &lat, &lon
		}
		if s.Parent_station != nil {
			out.ParentStation = s.Parent_station.Id
		}
		feed.Stops = append(feed.Stops, out)
	}

	for _, id := range slices.Sorted(maps.Keys(src.Routes)) {
		r := src.Routes[id]
		out := Route{
			ID:        r.Id,
			ShortName: r.Short_name,
			LongName:  r.Long_name,
			Type:      int(r.Type),
		}
		if r.Agency != nil {
			out.AgencyID = r.Agency.Id
		}
		feed.Routes = append(feed.Routes, out)
	}

	for _, id := range slices.Sorted(maps.Keys(src.Trips)) {
		t := src.Trips[id]
		out := Trip{
			ID:        t.Id,
			RouteID:   t.Route.Id,
			ServiceID: t.Service.Id(),
			Headsign:  deref(t.Headsign),
			ShortName: deref(t.Short_name),
			BlockID:   deref(t.Block_id),
		}
		if t.Direction_id >= 0 {
			dir := int(t.Direction_id)
			out.DirectionID = &dir
		}
		if t.Shape != nil {
			out.ShapeID = t.Shape.Id
		}
		feed.Trips = append(feed.Trips, out)

		for _, st := range t.StopTimes {
			feed.StopTimes = append(feed.StopTimes, StopTime{
				TripID:      t.Id,
				StopID:      st.Stop().Id,
				Sequence:    int(st.Sequence()),
				Arrival:     seconds(st.Arrival_time()),
				Departure:   seconds(st.Departure_time()),
				Headsign:    deref(st.Headsign()),
				PickupType:  int(st.Pickup_type()),
				DropOffType: int(st.Drop_off_type()),
			})
		}
	}

	for _, id := range slices.Sorted(maps.Keys(src.Services)) {
		s := src.Services[id]
		cal := Calendar{
			ServiceID: s.Id(),
			StartDate: civilDate(s.Start_date()),
			EndDate:   civilDate(s.End_date()),
		}
		weekly := false
		for wd := range cal.Days {
			cal.Days[wd] = s.Daymap(wd)
			weekly = weekly || cal.Days[wd]
		}
		// Services defined only by calendar_dates.txt have no weekly pattern.
		if weekly {
			feed.Calendars = append(feed.Calendars, cal)
		}
		for d, added := range s.Exceptions() {
			cd := CalendarDate{ServiceID: s.Id(), Date: civilDate(d), ExceptionType: ExceptionRemoved}
			if added {
				cd.ExceptionType = ExceptionAdded
			}
			feed.CalendarDates = append(feed.CalendarDates, cd)
		}
	}
	slices.SortFunc(feed.CalendarDates, func(a, b CalendarDate) int {
		return cmp.Or(cmp.Compare(a.ServiceID, b.ServiceID), a.Date.DaysSince(b.Date))
	})

	for _, id := range slices.Sorted(maps.Keys(src.Shapes)) {
		for _, p := range src.Shapes[id].Points {
			feed.Shapes = append(feed.Shapes, ShapePoint{
				ShapeID:  id,
				Lat:      widen(p.Lat),
				Lon:      widen(p.Lon),
				Sequence: int(p.Sequence),
			})
		}
	}
	return feed, nil
}

type converter struct {
	zones map[string]*time.Location
}

// zone resolves a feed timezone. An empty zone gives nil.
func (c *converter) zone(tz pgtfs.Timezone) (*time.Location, error) {
	name := tz.GetTzString()
	if name == "" {
		return nil, nil
	}
	if loc, ok := c.zones[name]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	c.zones[name] = loc
	return loc, nil
}

func seconds(t pgtfs.Time) *int {
	if t.Empty() {
		return nil
	}
	s := int(t.SecondsSinceMidnight())
	return &s
}

func civilDate(d pgtfs.Date) civil.Date {
	return civil.Date{Year: int(d.Year()), Month: time.Month(d.Month()), Day: int(d.Day())}
}

// widen converts a float32 coordinate to the float64 closest to its shortest
// decimal form, so 60.1699 stays 60.1699.
func widen(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'f', -1, 32), 64)
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
