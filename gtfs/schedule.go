package gtfs

import (
	"cmp"
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

// StopScheduleOptions tunes StopScheduleRows.
type StopScheduleOptions struct {
	// Max caps the number of rows after sorting. Zero means no cap.
	Max int
	// ExcludeLastStop drops rows where the stop is the final stop of its trip.
	ExcludeLastStop bool
}

// TripScheduleRows returns every stop of a trip on date with absolute times.
// Times are read in the agency timezone of the trip's route and expressed
// in each stop's own timezone when it declares one.
func (x *Index) TripScheduleRows(tripID string, date civil.Date) []TripScheduleRow {
	t, ok := x.trips[tripID]
	if !ok {
		return nil
	}
	agencyLoc := x.routeZones[t.RouteID]
	sts := x.stopTimesByTrip[tripID]
	rows := make([]TripScheduleRow, 0, len(sts))
	for i := range sts {
		st := &sts[i]
		stopLoc := x.stopZone(x.stops[st.StopID], agencyLoc)
		rows = append(rows, TripScheduleRow{
			Sequence:  st.Sequence,
			StopID:    st.StopID,
			Headsign:  st.Headsign,
			Arrival:   instant(date, st.Arrival, agencyLoc, stopLoc),
			Departure: instant(date, st.Departure, agencyLoc, stopLoc),
			DropOff:   st.HasDropOff(),
			PickUp:    st.HasPickUp(),
		})
	}
	return rows
}

// StopScheduleRows returns the calls at a stop whose arrival or departure
// falls within [from, to], ordered by arrival.
//
// Candidate service days are bracketed with the largest and smallest
// arrival offsets at the stop. Stop times without an arrival do not take
// part in the bracketing but still produce rows inside the bracket.
func (x *Index) StopScheduleRows(stopID string, from, to time.Time, opts StopScheduleOptions) []StopScheduleRow {
	stop, ok := x.stops[stopID]
	if !ok {
		return nil
	}
	sts := x.stopTimesByStop[stopID]

	var latest, earliest *StopTime
	for _, st := range sts {
		if st.Arrival == nil {
			continue
		}
		if latest == nil || *st.Arrival > *latest.Arrival {
			latest = st
		}
		if earliest == nil || *st.Arrival < *earliest.Arrival {
			earliest = st
		}
	}
	if latest == nil {
		return nil
	}
	minDay := earliestServiceDay(from, x.agencyZone(latest), *latest.Arrival)
	maxDay := latestServiceDay(to, x.agencyZone(earliest), *earliest.Arrival)

	var rows []StopScheduleRow
	for _, st := range sts {
		if opts.ExcludeLastStop && x.isLastStop(st) {
			continue
		}
		t := x.trips[st.TripID]
		agencyLoc := x.routeZones[t.RouteID]
		stopLoc := x.stopZone(stop, agencyLoc)
		for d := range x.serviceDates.DatesFor(t.ServiceID).SubSet(minDay, true, maxDay, true).All() {
			row := StopScheduleRow{
				TripID:    t.ID,
				TripDate:  d,
				Headsign:  st.Headsign,
				Arrival:   instant(d, st.Arrival, agencyLoc, stopLoc),
				Departure: instant(d, st.Departure, agencyLoc, stopLoc),
				DropOff:   st.HasDropOff(),
				PickUp:    st.HasPickUp(),
			}
			if within(row.Arrival, from, to) || within(row.Departure, from, to) {
				rows = append(rows, row)
			}
		}
	}

	slices.SortStableFunc(rows, compareStopRows)
	if opts.Max > 0 && len(rows) > opts.Max {
		rows = rows[:opts.Max]
	}
	return rows
}

// compareStopRows orders by arrival, using departure for rows without one.
func compareStopRows(a, b StopScheduleRow) int {
	if c := sortTime(a).Compare(sortTime(b)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TripID, b.TripID); c != 0 {
		return c
	}
	switch {
	case a.TripDate.Before(b.TripDate):
		return -1
	case a.TripDate.After(b.TripDate):
		return 1
	}
	return 0
}

func sortTime(r StopScheduleRow) time.Time {
	if r.Arrival != nil {
		return *r.Arrival
	}
	return *r.Departure
}

// earliestServiceDay returns the first service day on which a stop time at
// offset seconds could be at or after from.
func earliestServiceDay(from time.Time, loc *time.Location, offset int) civil.Date {
	d := civil.DateOf(from.In(loc).Add(-time.Duration(offset) * time.Second).AddDate(0, 0, -1))
	for !TimeOf(d.AddDays(1), offset, loc).After(from) {
		d = d.AddDays(1)
	}
	return d
}

// latestServiceDay returns the last service day on which a stop time at
// offset seconds could be at or before to.
func latestServiceDay(to time.Time, loc *time.Location, offset int) civil.Date {
	d := civil.DateOf(to.In(loc).Add(-time.Duration(offset) * time.Second).AddDate(0, 0, 1))
	for TimeOf(d.AddDays(-1), offset, loc).After(to) {
		d = d.AddDays(-1)
	}
	return d
}

func (x *Index) isLastStop(st *StopTime) bool {
	sts := x.stopTimesByTrip[st.TripID]
	return len(sts) > 0 && &sts[len(sts)-1] == st
}

func (x *Index) agencyZone(st *StopTime) *time.Location {
	return x.routeZones[x.trips[st.TripID].RouteID]
}

func (x *Index) stopZone(s *Stop, agencyLoc *time.Location) *time.Location {
	if s != nil && s.Timezone != nil {
		return s.Timezone
	}
	return agencyLoc
}

func instant(date civil.Date, seconds *int, agencyLoc, stopLoc *time.Location) *time.Time {
	if seconds == nil {
		return nil
	}
	t := TimeOf(date, *seconds, agencyLoc).In(stopLoc)
	return &t
}

func within(t *time.Time, from, to time.Time) bool {
	return t != nil && !t.Before(from) && !t.After(to)
}
