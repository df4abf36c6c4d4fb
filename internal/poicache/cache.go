// Package poicache memoizes competitor lookups with TTL freshness,
// serve-stale-on-error and per-key single-flight fetches.
package poicache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/site-feasibility/internal/model"
)

// Fetcher is the upstream behind the cache.
type Fetcher interface {
	Fetch(ctx context.Context, loc model.Location, radiusM int, category string) ([]model.CompetitorRecord, error)
}

// Backing is an optional durable tier consulted on memory miss and written
// through after each upstream fetch. GetCacheEntry returns nil, nil on miss.
type Backing interface {
	GetCacheEntry(ctx context.Context, key string) (*model.CacheEntry, error)
	PutCacheEntry(ctx context.Context, entry model.CacheEntry) error
}

// Status reports where a lookup's records came from.
type Status string

const (
	StatusHit   Status = "hit"
	StatusMiss  Status = "miss"
	StatusStale Status = "stale"
)

// Options configures a Cache. Zero values select defaults.
type Options struct {
	TTL        time.Duration
	Precision  int
	MaxEntries int
	Now        func() time.Time
	Backing    Backing
}

// Result is the outcome of a Lookup.
type Result struct {
	Key       string
	Records   []model.CompetitorRecord
	Status    Status
	FetchedAt time.Time
	// Upstream is the fetch error behind a stale serve.
	Upstream error
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries     int     `json:"entries"`
	MaxEntries  int     `json:"max_entries"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	StaleServes int64   `json:"stale_serves"`
	Fetches     int64   `json:"upstream_fetches"`
	Failures    int64   `json:"upstream_failures"`
	HitRate     float64 `json:"hit_rate"`
	TTLSeconds  int64   `json:"ttl_seconds"`
}

// Cache is a concurrent-safe LRU of competitor lookups keyed by rounded
// location, radius and category.
type Cache struct {
	fetcher    Fetcher
	backing    Backing
	ttl        time.Duration
	precision  int
	maxEntries int
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]*model.CacheEntry
	order   []string // LRU order: front=oldest, back=newest

	group singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	stale    atomic.Int64
	fetches  atomic.Int64
	failures atomic.Int64
}

// New creates a cache in front of fetcher.
func New(fetcher Fetcher, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Precision < 0 || opts.Precision > 8 {
		opts.Precision = 4
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1024
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		fetcher:    fetcher,
		backing:    opts.Backing,
		ttl:        opts.TTL,
		precision:  opts.Precision,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		entries:    make(map[string]*model.CacheEntry),
	}
}

// Key builds the cache key: lat and lon rounded to precision decimals,
// joined with radius and category, SHA-256 hex encoded.
func Key(loc model.Location, radiusM int, category string, precision int) string {
	raw := fmt.Sprintf("%s|%s|%d|%s",
		roundCoord(loc.Lat, precision), roundCoord(loc.Lon, precision), radiusM,
		strings.ToLower(strings.TrimSpace(category)))
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// roundCoord formats v at precision decimals. Values that round to zero from
// either side of the equator or meridian share the unsigned form.
func roundCoord(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if zero, err := strconv.ParseFloat(s, 64); err == nil && zero == 0 {
		return strconv.FormatFloat(0, 'f', precision, 64)
	}
	return s
}

// Key returns the key this cache uses for a lookup.
func (c *Cache) Key(loc model.Location, radiusM int, category string) string {
	return Key(loc, radiusM, category, c.precision)
}

// GetOrFetch returns the competitor list for the lookup, fetching upstream on
// miss or expiry.
func (c *Cache) GetOrFetch(ctx context.Context, loc model.Location, radiusM int, category string) ([]model.CompetitorRecord, error) {
	res, err := c.Lookup(ctx, loc, radiusM, category)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Lookup is GetOrFetch with the provenance of the records. Upstream failure
// with a previous payload for the key serves that payload as stale;
// otherwise the upstream error is returned.
func (c *Cache) Lookup(ctx context.Context, loc model.Location, radiusM int, category string) (Result, error) {
	key := c.Key(loc, radiusM, category)

	if entry, ok := c.fresh(key); ok {
		c.hits.Add(1)
		return c.result(key, entry, StatusHit, nil), nil
	}

	// The shared fetch outlives any single waiter; each waiter only stops
	// listening when its own context ends.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(detached, key, loc, radiusM, category)
	})

	select {
	case <-ctx.Done():
		c.misses.Add(1)
		return Result{}, model.NewUpstreamError("poi_cache", model.UpstreamTimeout, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			c.misses.Add(1)
			return Result{}, r.Err
		}
		res := r.Val.(Result)
		switch res.Status {
		case StatusHit:
			c.hits.Add(1)
		case StatusStale:
			c.stale.Add(1)
		default:
			c.misses.Add(1)
		}
		// Waiters of one flight share r.Val.
		res.Records = slices.Clone(res.Records)
		return res, nil
	}
}

// load runs once per key at a time.
func (c *Cache) load(ctx context.Context, key string, loc model.Location, radiusM int, category string) (Result, error) {
	if entry, ok := c.fresh(key); ok {
		return c.result(key, entry, StatusHit, nil), nil
	}

	previous := c.peek(key)
	if previous == nil || !c.isFresh(previous) {
		if durable := c.fromBacking(ctx, key); durable != nil {
			if c.isFresh(durable) {
				c.store(durable)
				return c.result(key, durable, StatusHit, nil), nil
			}
			if previous == nil || durable.FetchedAt.After(previous.FetchedAt) {
				previous = durable
			}
		}
	}

	c.fetches.Add(1)
	records, err := c.fetcher.Fetch(ctx, loc, radiusM, category)
	if err != nil {
		c.failures.Add(1)
		if previous != nil {
			zap.L().Warn("poi_cache: serving stale entry after upstream failure",
				zap.String("key", key),
				zap.Duration("age", previous.Age(c.now())),
				zap.Error(err),
			)
			return c.result(key, previous, StatusStale, err), nil
		}
		return Result{}, err
	}
	if records == nil {
		records = []model.CompetitorRecord{}
	}

	entry := &model.CacheEntry{Key: key, Payload: records, FetchedAt: c.now()}
	c.store(entry)
	c.toBacking(ctx, entry)
	return c.result(key, entry, StatusMiss, nil), nil
}

// result copies the payload so callers never alias a stored entry.
func (c *Cache) result(key string, e *model.CacheEntry, status Status, upstream error) Result {
	return Result{Key: key, Records: slices.Clone(e.Payload), Status: status, FetchedAt: e.FetchedAt, Upstream: upstream}
}

func (c *Cache) isFresh(e *model.CacheEntry) bool {
	return e.Age(c.now()) < c.ttl
}

// fresh returns the in-memory entry for key if it is younger than the TTL.
func (c *Cache) fresh(key string) (*model.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || !c.isFresh(entry) {
		return nil, false
	}
	c.touch(key)
	return entry, true
}

// peek returns the in-memory entry for key regardless of age.
func (c *Cache) peek(key string) *model.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

func (c *Cache) store(e *model.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[e.Key]; ok {
		c.entries[e.Key] = e
		c.touch(e.Key)
		return
	}
	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[e.Key] = e
	c.order = append(c.order, e.Key)
}

// touch moves key to the back of the LRU order. Caller holds mu.
func (c *Cache) touch(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) fromBacking(ctx context.Context, key string) *model.CacheEntry {
	if c.backing == nil {
		return nil
	}
	entry, err := c.backing.GetCacheEntry(ctx, key)
	if err != nil {
		zap.L().Warn("poi_cache: durable tier read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return entry
}

func (c *Cache) toBacking(ctx context.Context, e *model.CacheEntry) {
	if c.backing == nil {
		return
	}
	if err := c.backing.PutCacheEntry(ctx, *e); err != nil {
		zap.L().Warn("poi_cache: durable tier write failed", zap.String("key", e.Key), zap.Error(err))
	}
}

// Invalidate drops key from memory. It reports whether an entry existed.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.removeFromOrder(key)
	return true
}

// InvalidateAll empties the memory tier and returns how many entries it held.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*model.CacheEntry)
	c.order = nil
	return n
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	stale := c.stale.Load()

	var hitRate float64
	if total := hits + misses + stale; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Entries:     entries,
		MaxEntries:  c.maxEntries,
		Hits:        hits,
		Misses:      misses,
		StaleServes: stale,
		Fetches:     c.fetches.Load(),
		Failures:    c.failures.Load(),
		HitRate:     hitRate,
		TTLSeconds:  int64(c.ttl / time.Second),
	}
}
