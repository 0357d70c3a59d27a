package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"github.com/mjaakko/gtfs-graphql-api/gtfs"
)

// queryDate parses an optional ISO date parameter.
func queryDate(r *http.Request, name string) (*civil.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a date (YYYY-MM-DD)", name, v)
	}
	return &d, nil
}

func requiredDate(r *http.Request, name string) (civil.Date, error) {
	d, err := queryDate(r, name)
	if err != nil {
		return civil.Date{}, err
	}
	if d == nil {
		return civil.Date{}, fmt.Errorf("%s is required", name)
	}
	return *d, nil
}

// queryInstant parses an optional RFC 3339 timestamp.
func queryInstant(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %q is not an RFC 3339 timestamp", name, v)
	}
	return t, nil
}

func queryInt(r *http.Request, name string) (*int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an integer", name, v)
	}
	return &n, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", name, v)
	}
	return b, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %q is not a number", name, v)
	}
	return f, nil
}

// queryGTFSTime parses a required HH:MM:SS parameter that may exceed 24h.
func queryGTFSTime(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	s, err := gtfs.ParseTime(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}
