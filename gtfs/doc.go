/*
Package gtfs parses GTFS static feeds and serves schedule queries from an
immutable in-memory index.

# Parsing

ZipParser parses a feed archive with gtfsparser and flattens the linked
model into the tables the index needs. A missing required file or header
column is reported before parsing; rows gtfsparser rejects come back wrapped
in ErrInvalidFeed:

	feed, err := gtfs.ZipParser{}.ParseFile(ctx, "gtfs.zip")
	if err != nil {
	    return err // errors.Is(err, gtfs.ErrMissingColumn)
	}

# Index

NewIndex joins the tables once. The result is never modified, so one
snapshot can be shared by any number of readers while a newer one is being
built:

	idx, err := gtfs.NewIndex(feed, gtfs.IndexOptions{})
	stop, ok := idx.Stop("1020453")
	nearby := idx.StopsNearby(geo.LatLng{Lat: 60.17, Lon: 24.94}, 500)
	trips := idx.TripInstancesForRoute("1001", &from, &to)

Lookups of unknown ids report false or return an empty slice; they never
return an error.

# Service dates

Service ids are expanded to a dateset.DateSet on first use: calendar.txt
weekday rules plus calendar_dates.txt additions, minus removals. The sets are
memoized for the lifetime of the index.

# Schedule times

Stop times are GTFS times: seconds since noon minus twelve hours of the
service date, in the agency timezone. They may exceed 24 hours for trips
running past midnight. TripScheduleRows and StopScheduleRows turn them into
instants and express them in the stop's timezone:

	rows := idx.StopScheduleRows("1020453", now, now.Add(24*time.Hour),
	    gtfs.StopScheduleOptions{Max: 10})

# Caches

Each index owns three caches: service dates, shape polylines bounded by
total encoded length, and trip identification lookups bounded by entry
count. They die with the index, so a refresh never serves stale entries.
*/
package gtfs
