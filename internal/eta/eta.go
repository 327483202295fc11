// Package eta estimates trip distance and duration for the order list.
// A routing engine is optional; without one the naive straight-line
// estimate keeps the annotations populated.
package eta

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/delivery-driver/internal/geo"
	"github.com/example/delivery-driver/internal/models"
)

// Estimate is one trip estimate: routed when a routing engine produced
// it, straight-line otherwise.
type Estimate struct {
	Seconds   float64
	DistanceM float64
}

// Client is the interface a routing engine implements.
type Client interface {
	EstimateTrip(from, to models.Coord) (Estimate, error)
}

// Cache is a tiny in-memory cache for trip estimates keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	est Estimate
	ts  time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Get returns the cached estimate and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) (Estimate, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return Estimate{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return Estimate{}, false
	}
	return e.est, true
}

// Set stores an estimate in the cache.
func (c *Cache) Set(a, b models.Coord, est Estimate) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{est: est, ts: time.Now()}
	c.mu.Unlock()
}

// Naive estimates the trip as the straight-line distance at a constant
// speed. Used when no routing engine is configured.
func Naive(from, to models.Coord, speedMps float64) Estimate {
	if speedMps <= 0 {
		speedMps = 8.0 // ~28.8 km/h default city speed
	}
	d := geo.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	return Estimate{Seconds: d / speedMps, DistanceM: d}
}
