package gtfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ParseTime parses a GTFS time of the form H:MM:SS or HH:MM:SS into seconds
// since the service day start. Hours may exceed 23.
func ParseTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	return h*3600 + m*60 + sec, nil
}

// FormatTime formats seconds since the service day start as HH:MM:SS.
func FormatTime(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// ParseDate parses a GTFS YYYYMMDD date.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return civil.Date{}, fmt.Errorf("invalid GTFS date %q", s)
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[4:6])
	d, err3 := strconv.Atoi(s[6:8])
	date := civil.Date{Year: y, Month: time.Month(m), Day: d}
	if err1 != nil || err2 != nil || err3 != nil || !date.IsValid() {
		return civil.Date{}, fmt.Errorf("invalid GTFS date %q", s)
	}
	return date, nil
}

// FormatDate formats a date as YYYYMMDD.
func FormatDate(d civil.Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// ServiceDayStart returns the reference instant of a service day: noon
// minus twelve hours. On days with a DST change this differs from midnight.
func ServiceDayStart(date civil.Date, loc *time.Location) time.Time {
	return time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, loc).Add(-12 * time.Hour)
}

// TimeOf converts a GTFS time on the given service date to an instant.
func TimeOf(date civil.Date, seconds int, loc *time.Location) time.Time {
	return ServiceDayStart(date, loc).Add(time.Duration(seconds) * time.Second)
}
