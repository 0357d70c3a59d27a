// Package api serves the GTFS query surface over HTTP as JSON.
//
// Every request reads the snapshot current at the time it arrives, so a
// feed refresh never changes the data seen by a request already running.
// Until the first snapshot is published GTFS queries wait for it, and answer
// 503 if it does not arrive in time.
//
//	GET /api/agencies
//	GET /api/agencies/{agencyID}
//	GET /api/agencies/{agencyID}/routes
//	GET /api/routes
//	GET /api/routes/{routeID}
//	GET /api/routes/{routeID}/trips?from=2024-01-01&to=2024-01-31
//	GET /api/routes/{routeID}/trip-id?startTime=08:00:00&date=2024-01-01&direction=0
//	GET /api/stops
//	GET /api/stops/nearby?lat=60.17&lon=24.94&radius=500
//	GET /api/stops/{stopID}
//	GET /api/stops/{stopID}/schedule?max=10&includeLastStop=false
//	GET /api/trips/{tripID}?date=2024-01-01
//	GET /api/vehicle-positions
//	GET /api/vehicle-positions/stream
//	GET /api/health
package api
