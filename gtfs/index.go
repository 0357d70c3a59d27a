package gtfs

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bluele/gcache"
	"github.com/google/uuid"

	"github.com/mjaakko/gtfs-graphql-api/geo"
)

// ErrDanglingReference is returned by NewIndex when a record refers to a
// trip, stop or route that the feed does not contain.
var ErrDanglingReference = errors.New("gtfs: dangling reference")

// IndexOptions bounds the per-index caches. Zero values select defaults.
type IndexOptions struct {
	TripIDCacheSize     int
	PolylineCacheWeight int
}

// Index is an immutable snapshot of one parsed feed with all joins
// precomputed. Records returned by its methods are shared and must not be
// modified. An Index is safe for concurrent use.
type Index struct {
	id        string
	createdAt time.Time

	agencies     map[string]*Agency
	agencyList   []*Agency
	routes       map[string]*Route
	routeList    []*Route
	routeZones   map[string]*time.Location // route_id -> agency timezone
	trips        map[string]*Trip
	tripsByRoute map[string][]*Trip
	stops        map[string]*Stop
	stopList     []*Stop

	stopTimesByTrip map[string][]StopTime  // ordered by stop_sequence
	stopTimesByStop map[string][]*StopTime // points into stopTimesByTrip
	shapes          map[string][]ShapePoint

	serviceDates *ServiceDates
	spatial      *geo.Index[*Stop]
	polylines    *weightedCache
	tripIDs      gcache.Cache
}

// Stats counts the records of an index.
type Stats struct {
	Agencies  int `json:"agencies"`
	Routes    int `json:"routes"`
	Trips     int `json:"trips"`
	Stops     int `json:"stops"`
	StopTimes int `json:"stopTimes"`
	Shapes    int `json:"shapes"`
}

// NewIndex builds an index from a parsed feed. The feed must not be
// modified afterwards.
func NewIndex(feed *Feed, opts IndexOptions) (*Index, error) {
	x := &Index{
		id:              uuid.NewString(),
		createdAt:       time.Now(),
		agencies:        make(map[string]*Agency, len(feed.Agencies)),
		routes:          make(map[string]*Route, len(feed.Routes)),
		routeZones:      make(map[string]*time.Location, len(feed.Routes)),
		trips:           make(map[string]*Trip, len(feed.Trips)),
		tripsByRoute:    make(map[string][]*Trip),
		stops:           make(map[string]*Stop, len(feed.Stops)),
		stopTimesByTrip: make(map[string][]StopTime, len(feed.Trips)),
		stopTimesByStop: make(map[string][]*StopTime, len(feed.Stops)),
		shapes:          make(map[string][]ShapePoint),
		serviceDates:    NewServiceDates(feed.Calendars, feed.CalendarDates),
	}

	for i := range feed.Agencies {
		a := &feed.Agencies[i]
		x.agencies[a.ID] = a
		x.agencyList = append(x.agencyList, a)
	}
	sort.Slice(x.agencyList, func(i, j int) bool { return x.agencyList[i].ID < x.agencyList[j].ID })

	for i := range feed.Routes {
		r := &feed.Routes[i]
		x.routes[r.ID] = r
		x.routeList = append(x.routeList, r)
	}
	sort.Slice(x.routeList, func(i, j int) bool { return x.routeList[i].ID < x.routeList[j].ID })
	for _, r := range x.routeList {
		x.routeZones[r.ID] = x.zoneForRoute(r)
	}

	for i := range feed.Trips {
		t := &feed.Trips[i]
		if _, ok := x.routes[t.RouteID]; !ok {
			return nil, fmt.Errorf("%w: trip %s references route %s", ErrDanglingReference, t.ID, t.RouteID)
		}
		x.trips[t.ID] = t
		x.tripsByRoute[t.RouteID] = append(x.tripsByRoute[t.RouteID], t)
	}

	for i := range feed.Stops {
		s := &feed.Stops[i]
		x.stops[s.ID] = s
		x.stopList = append(x.stopList, s)
	}
	sort.Slice(x.stopList, func(i, j int) bool { return x.stopList[i].ID < x.stopList[j].ID })

	for _, st := range feed.StopTimes {
		if _, ok := x.trips[st.TripID]; !ok {
			return nil, fmt.Errorf("%w: stop time references trip %s", ErrDanglingReference, st.TripID)
		}
		if _, ok := x.stops[st.StopID]; !ok {
			return nil, fmt.Errorf("%w: trip %s references stop %s", ErrDanglingReference, st.TripID, st.StopID)
		}
		x.stopTimesByTrip[st.TripID] = append(x.stopTimesByTrip[st.TripID], st)
	}
	for _, sts := range x.stopTimesByTrip {
		sort.SliceStable(sts, func(i, j int) bool { return sts[i].Sequence < sts[j].Sequence })
		for i := range sts {
			x.stopTimesByStop[sts[i].StopID] = append(x.stopTimesByStop[sts[i].StopID], &sts[i])
		}
	}

	for _, p := range feed.Shapes {
		x.shapes[p.ShapeID] = append(x.shapes[p.ShapeID], p)
	}
	for _, pts := range x.shapes {
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Sequence < pts[j].Sequence })
	}

	x.spatial = geo.NewIndex(x.stopList, (*Stop).Location)
	x.polylines = newWeightedCache(opts.PolylineCacheWeight, x.encodeShape)
	x.tripIDs = newTripIDCache(opts.TripIDCacheSize, x.findTripID)
	return x, nil
}

// zoneForRoute resolves the timezone schedule times of a route are in.
// A route without agency_id belongs to the only agency of the feed; all
// agencies of a feed share one timezone, so the first one is the fallback.
func (x *Index) zoneForRoute(r *Route) *time.Location {
	if a, ok := x.AgencyForRoute(r.ID); ok && a.Timezone != nil {
		return a.Timezone
	}
	for _, a := range x.agencyList {
		if a.Timezone != nil {
			return a.Timezone
		}
	}
	return time.UTC
}

// ID identifies this snapshot.
func (x *Index) ID() string { return x.id }

// CreatedAt is when the snapshot was built.
func (x *Index) CreatedAt() time.Time { return x.createdAt }

func (x *Index) Stats() Stats {
	n := 0
	for _, sts := range x.stopTimesByTrip {
		n += len(sts)
	}
	return Stats{
		Agencies:  len(x.agencies),
		Routes:    len(x.routes),
		Trips:     len(x.trips),
		Stops:     len(x.stops),
		StopTimes: n,
		Shapes:    len(x.shapes),
	}
}

// ServiceDates returns the service calendar of this snapshot.
func (x *Index) ServiceDates() *ServiceDates { return x.serviceDates }

func (x *Index) Agency(id string) (*Agency, bool) {
	a, ok := x.agencies[id]
	return a, ok
}

// Agencies returns all agencies ordered by id.
func (x *Index) Agencies() []*Agency { return x.agencyList }

// AgencyForRoute returns the agency operating a route. A route that omits
// agency_id belongs to the agency of a single-agency feed.
func (x *Index) AgencyForRoute(routeID string) (*Agency, bool) {
	r, ok := x.routes[routeID]
	if !ok {
		return nil, false
	}
	if a, ok := x.agencies[r.AgencyID]; ok {
		return a, true
	}
	if r.AgencyID == "" && len(x.agencyList) == 1 {
		return x.agencyList[0], true
	}
	return nil, false
}

func (x *Index) Route(id string) (*Route, bool) {
	r, ok := x.routes[id]
	return r, ok
}

// Routes returns all routes ordered by id.
func (x *Index) Routes() []*Route { return x.routeList }

// RoutesForAgency returns the routes operated by an agency.
func (x *Index) RoutesForAgency(agencyID string) []*Route {
	var out []*Route
	for _, r := range x.routeList {
		if a, ok := x.AgencyForRoute(r.ID); ok && a.ID == agencyID {
			out = append(out, r)
		}
	}
	return out
}

func (x *Index) Trip(id string) (*Trip, bool) {
	t, ok := x.trips[id]
	return t, ok
}

// TripsForRoute returns the trips of a route in feed order.
func (x *Index) TripsForRoute(routeID string) []*Trip { return x.tripsByRoute[routeID] }

func (x *Index) Stop(id string) (*Stop, bool) {
	s, ok := x.stops[id]
	return s, ok
}

// Stops returns all stops ordered by id, stations and entrances included.
func (x *Index) Stops() []*Stop { return x.stopList }

// StopTimesForTrip returns the stop times of a trip ordered by sequence.
func (x *Index) StopTimesForTrip(tripID string) []StopTime { return x.stopTimesByTrip[tripID] }

// StopsNearby returns the stops within radius meters of center. center must
// be valid; see geo.LatLng.Validate.
func (x *Index) StopsNearby(center geo.LatLng, radius float64) []*Stop {
	return x.spatial.Within(center, radius)
}

// TripInstancesForRoute lists the trips of a route on every service date
// between from and to, both inclusive. A nil bound is open.
func (x *Index) TripInstancesForRoute(routeID string, from, to *civil.Date) []TripInstance {
	var out []TripInstance
	for _, t := range x.tripsByRoute[routeID] {
		dates := x.serviceDates.DatesFor(t.ServiceID)
		switch {
		case from != nil && to != nil:
			dates = dates.SubSet(*from, true, *to, true)
		case from != nil:
			dates = dates.TailSet(*from, true)
		case to != nil:
			dates = dates.HeadSet(*to, true)
		}
		for d := range dates.All() {
			out = append(out, newTripInstance(t, d))
		}
	}
	slices.SortFunc(out, TripInstance.Compare)
	return out
}

// TripInstance returns the trip on date if its service runs that day.
func (x *Index) TripInstance(tripID string, date civil.Date) (TripInstance, bool) {
	t, ok := x.trips[tripID]
	if !ok || !x.serviceDates.DatesFor(t.ServiceID).Contains(date) {
		return TripInstance{}, false
	}
	return newTripInstance(t, date), true
}

func newTripInstance(t *Trip, date civil.Date) TripInstance {
	return TripInstance{TripID: t.ID, Date: date, RouteID: t.RouteID, Headsign: t.Headsign}
}

// TripID finds the trip of a route that runs on date and whose first stop
// arrives at startTime seconds. directionID only breaks ties between
// several candidates; a single candidate is returned whatever its
// direction.
func (x *Index) TripID(routeID string, startTime int, date civil.Date, directionID *int) (string, bool) {
	key := tripKey{routeID: routeID, startTime: startTime, date: date}
	if directionID != nil {
		key.directionID, key.hasDirection = *directionID, true
	}
	v, err := x.tripIDs.Get(key)
	if err != nil {
		return x.findTripID(key)
	}
	id := v.(string)
	return id, id != ""
}

func (x *Index) findTripID(k tripKey) (string, bool) {
	var candidates []*Trip
	for _, t := range x.tripsByRoute[k.routeID] {
		sts := x.stopTimesByTrip[t.ID]
		if len(sts) == 0 || sts[0].Arrival == nil || *sts[0].Arrival != k.startTime {
			continue
		}
		if !x.serviceDates.DatesFor(t.ServiceID).Contains(k.date) {
			continue
		}
		candidates = append(candidates, t)
	}
	switch {
	case len(candidates) == 0:
		return "", false
	case len(candidates) > 1 && k.hasDirection:
		for _, t := range candidates {
			if t.DirectionID != nil && *t.DirectionID == k.directionID {
				return t.ID, true
			}
		}
		return "", false
	default:
		return candidates[0].ID, true
	}
}
