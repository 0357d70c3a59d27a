package gtfs

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedCache_EvictsLeastRecentlyUsed(t *testing.T) {
	loads := map[string]int{}
	c := newWeightedCache(10, func(key string) (string, bool) {
		loads[key]++
		return strings.Repeat(key, 4), true
	})

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "aaaa", v)
	c.Get("b")
	c.Get("a")
	c.Get("c")

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 8, c.Weight())

	c.Get("a")
	assert.Equal(t, 1, loads["a"])
	c.Get("b")
	assert.Equal(t, 2, loads["b"])
}

func TestWeightedCache_SkipsOversizedAndAbsent(t *testing.T) {
	c := newWeightedCache(5, func(key string) (string, bool) {
		switch key {
		case "big":
			return "0123456789", true
		case "none":
			return "", false
		}
		return "x", true
	})

	v, ok := c.Get("big")
	assert.True(t, ok)
	assert.Equal(t, "0123456789", v)

	_, ok = c.Get("none")
	assert.False(t, ok)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Weight())
}

func TestWeightedCache_CoalescesLoads(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := newWeightedCache(100, func(key string) (string, bool) {
		loads.Add(1)
		<-release
		return "value", true
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := c.Get("k")
			assert.True(t, ok)
			assert.Equal(t, "value", v)
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

func TestTripIDCache_KeysDirection(t *testing.T) {
	var calls []tripKey
	cache := newTripIDCache(4, func(k tripKey) (string, bool) {
		calls = append(calls, k)
		if k.hasDirection && k.directionID == 0 {
			return "T0", true
		}
		return "", false
	})
	date := civil.Date{Year: 2024, Month: 1, Day: 3}

	v, err := cache.Get(tripKey{routeID: "R", startTime: 1, date: date})
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = cache.Get(tripKey{routeID: "R", startTime: 1, date: date, hasDirection: true})
	require.NoError(t, err)
	assert.Equal(t, "T0", v)

	_, _ = cache.Get(tripKey{routeID: "R", startTime: 1, date: date, hasDirection: true})
	assert.Len(t, calls, 2)
}
