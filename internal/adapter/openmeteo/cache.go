package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/observability"
)

// CachedForecaster wraps a Forecaster with an in-memory LRU cache whose entries
// expire after a fixed TTL.
type CachedForecaster struct {
	inner   domain.Forecaster
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedForecaster creates a cache decorator around a forecaster. A nil
// clock uses the wall clock.
func NewCachedForecaster(inner domain.Forecaster, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedForecaster {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedForecaster{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedForecaster) Forecast(ctx context.Context, lat, lon float64) (domain.WeatherForecast, error) {
	// Open-Meteo grids are far coarser than 1e-4 degrees.
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	now := c.clock.Now()

	if e, ok := c.cache.get(key); ok {
		if now.Before(e.expires) {
			c.metrics.ForecastCache.WithLabelValues("hit").Inc()
			return e.value, nil
		}
		c.metrics.ForecastCache.WithLabelValues("expired").Inc()
	} else {
		c.metrics.ForecastCache.WithLabelValues("miss").Inc()
	}

	forecast, err := c.inner.Forecast(ctx, lat, lon)
	if err != nil {
		return forecast, err
	}
	// Empty forecasts are not cached so the next cycle retries.
	if len(forecast.Hourly) > 0 {
		c.cache.put(key, cached{value: forecast, expires: now.Add(c.ttl)})
	}
	return forecast, nil
}

type cached struct {
	value   domain.WeatherForecast
	expires time.Time
}

// lruCache is a simple thread-safe LRU cache of forecasts.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value cached
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (cached, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cached{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value cached) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
