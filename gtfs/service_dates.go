package gtfs

import (
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/singleflight"

	"github.com/mjaakko/gtfs-graphql-api/dateset"
)

// ServiceDates resolves service ids to the dates they run. Each service is
// expanded on first use and kept for the lifetime of the owning index.
type ServiceDates struct {
	calendars  map[string][]Calendar
	exceptions map[string][]CalendarDate

	sets  sync.Map // service id -> *dateset.DateSet
	group singleflight.Group
}

// NewServiceDates groups calendar rules and exceptions by service id.
func NewServiceDates(calendars []Calendar, calendarDates []CalendarDate) *ServiceDates {
	s := &ServiceDates{
		calendars:  make(map[string][]Calendar),
		exceptions: make(map[string][]CalendarDate),
	}
	for _, c := range calendars {
		s.calendars[c.ServiceID] = append(s.calendars[c.ServiceID], c)
	}
	for _, cd := range calendarDates {
		s.exceptions[cd.ServiceID] = append(s.exceptions[cd.ServiceID], cd)
	}
	return s
}

// DatesFor returns the dates serviceID runs on. Unknown ids give an empty set.
func (s *ServiceDates) DatesFor(serviceID string) *dateset.DateSet {
	if v, ok := s.sets.Load(serviceID); ok {
		return v.(*dateset.DateSet)
	}
	v, _, _ := s.group.Do(serviceID, func() (interface{}, error) {
		if v, ok := s.sets.Load(serviceID); ok {
			return v, nil
		}
		set := dateset.New(s.expand(serviceID))
		s.sets.Store(serviceID, set)
		return set, nil
	})
	return v.(*dateset.DateSet)
}

func (s *ServiceDates) expand(serviceID string) []civil.Date {
	removed := make(map[civil.Date]struct{})
	var dates []civil.Date
	for _, cd := range s.exceptions[serviceID] {
		switch cd.ExceptionType {
		case ExceptionAdded:
			dates = append(dates, cd.Date)
		case ExceptionRemoved:
			removed[cd.Date] = struct{}{}
		}
	}
	for _, c := range s.calendars[serviceID] {
		for d := c.StartDate; !d.After(c.EndDate); d = d.AddDays(1) {
			if c.Days[weekday(d)] {
				dates = append(dates, d)
			}
		}
	}
	out := dates[:0]
	for _, d := range dates {
		if _, skip := removed[d]; !skip {
			out = append(out, d)
		}
	}
	return out
}

func weekday(d civil.Date) int {
	return int(d.In(time.UTC).Weekday())
}
