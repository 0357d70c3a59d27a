package gtfs

import (
	"container/list"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// DefaultPolylineCacheWeight bounds the total length of cached polylines.
const DefaultPolylineCacheWeight = 1_000_000

// DefaultTripIDCacheSize bounds the number of cached trip lookups.
const DefaultTripIDCacheSize = 10_000

// weightedCache is a least-recently-used string cache bounded by the summed
// length of its values. Concurrent misses for the same key share one load.
//
// Example:
//
//	c := newWeightedCache(1_000_000, func(shapeID string) (string, bool) {
//	    return encodeShape(shapeID)
//	})
//	poly, ok := c.Get("shape_1")
//
// A value longer than the whole budget is returned but never stored.
// Loads reporting false are not cached.
type weightedCache struct {
	load      func(key string) (string, bool)
	maxWeight int

	mu     sync.Mutex
	weight int
	order  *list.List // front is most recently used
	items  map[string]*list.Element
	group  singleflight.Group
}

type weightedEntry struct {
	key   string
	value string
}

func newWeightedCache(maxWeight int, load func(string) (string, bool)) *weightedCache {
	if maxWeight <= 0 {
		maxWeight = DefaultPolylineCacheWeight
	}
	return &weightedCache{
		load:      load,
		maxWeight: maxWeight,
		order:     list.New(),
		items:     make(map[string]*list.Element),
	}
}

// Get returns the cached value for key, loading it on a miss.
func (c *weightedCache) Get(key string) (string, bool) {
	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		c.order.MoveToFront(e)
		v := e.Value.(*weightedEntry).value
		c.mu.Unlock()
		return v, true
	}
	c.mu.Unlock()

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		if s, ok := c.peek(key); ok {
			return s, nil
		}
		s, ok := c.load(key)
		if !ok {
			return nil, nil
		}
		c.add(key, s)
		return s, nil
	})
	if v == nil {
		return "", false
	}
	return v.(string), true
}

func (c *weightedCache) peek(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		return e.Value.(*weightedEntry).value, true
	}
	return "", false
}

// Weight returns the summed length of cached values.
func (c *weightedCache) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// Len returns the number of cached entries.
func (c *weightedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *weightedCache) add(key, value string) {
	if len(value) > c.maxWeight {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		return
	}
	c.items[key] = c.order.PushFront(&weightedEntry{key: key, value: value})
	c.weight += len(value)
	for c.weight > c.maxWeight {
		oldest := c.order.Back()
		ent := oldest.Value.(*weightedEntry)
		c.order.Remove(oldest)
		delete(c.items, ent.key)
		c.weight -= len(ent.value)
	}
}

// tripKey identifies one trip lookup. hasDirection separates an absent
// direction from direction 0.
type tripKey struct {
	routeID      string
	startTime    int
	date         civil.Date
	directionID  int
	hasDirection bool
}

// newTripIDCache builds a loading LRU over trip lookups. The loader result is
// the trip id, or "" when no trip matches.
//
// Example:
//
//	cache := newTripIDCache(10000, idx.findTripID)
//	v, _ := cache.Get(tripKey{routeID: "1", startTime: 28800, date: d})
func newTripIDCache(size int, find func(tripKey) (string, bool)) gcache.Cache {
	if size <= 0 {
		size = DefaultTripIDCacheSize
	}
	return gcache.New(size).
		LRU().
		LoaderFunc(func(k interface{}) (interface{}, error) {
			id, _ := find(k.(tripKey))
			return id, nil
		}).
		Build()
}
