// Package bucket projects exact decimal prices onto a bucket grid of
// configurable spacing, used to build the coarse "grouped" ladder views.
// The projection absorbs floating-point noise introduced by feed decoders
// (e.g. 100.2999999999 and 100.30000008 must both collapse to 100.3 under
// a bucket size of 0.1) and is memoized because it sits on the per-level
// mutation hot path.
package bucket

import (
	"container/list"
	"math"
	"sync"

	"github.com/b25/orderbook/internal/decimal"
)

// DefaultCacheSize bounds the projection memo. It is an optimization, not a
// correctness requirement - eviction never changes a result, only how often
// it has to be recomputed.
const DefaultCacheSize = 1_000_000

// preRoundPlaces is the literal pre-rounding width used to absorb feed
// float noise before bucketing. This is fixed by design, not configurable.
const preRoundPlaces = 4

// ValueToScale returns the decimal scale implied by a bucket size g:
// max(0, ceil(-log10(g))). Examples: 0.1 -> 1, 0.05 -> 2, 0.005 -> 3,
// 1 -> 0, 5 -> 0.
func ValueToScale(g float64) int {
	if g <= 0 {
		return 0
	}
	raw := -math.Log10(g)
	// Cancel float64 noise (log10(0.1) is not exactly 1.0) before ceiling,
	// or values that should land exactly on an integer scale round up one
	// digit too many.
	rounded := math.Round(raw*1e9) / 1e9
	scale := int(math.Ceil(rounded))
	if scale < 0 {
		return 0
	}
	return scale
}

// cacheKey identifies a memoized projection.
type cacheKey struct {
	x     string
	g     float64
	lower bool
}

// Cache is a size-bounded memo of Group results, evicted least-recently-used
// when full. It is safe for concurrent use even though OrderBook itself is
// not, since the cache may be shared across book instances in a process.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[cacheKey]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	key   cacheKey
	value decimal.Decimal
}

// NewCache creates a Cache bounded at capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[cacheKey]*list.Element),
		order:    list.New(),
	}
}

func (c *Cache) get(key cacheKey) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return decimal.Decimal{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *Cache) put(key cacheKey, value decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, value: value})
	c.items[key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Group projects x onto the bucket grid of spacing g. When lower is true
// the projection rounds toward the bucket floor (used for bids); otherwise
// it rounds toward the bucket ceiling (used for asks), so the bucketed view
// never inflates the apparent spread.
//
// Algorithm (exact, per the price-ladder grouping specification):
//  1. gd = round(g, 4, half-up); xd = round(x, 4, half-up).
//  2. q = floor(xd / gd).
//  3. c = round(q * gd, scale=ValueToScale(g), floor).
//  4. if c == xd, return c (x was already on the grid).
//  5. otherwise return round(c + (0 if lower else gd), scale, floor if lower
//     else ceiling).
func Group(x decimal.Decimal, g float64, lower bool) decimal.Decimal {
	return GroupCached(nil, x, g, lower)
}

// GroupCached is Group with an explicit memo; passing a nil cache disables
// memoization.
func GroupCached(cache *Cache, x decimal.Decimal, g float64, lower bool) decimal.Decimal {
	var key cacheKey
	if cache != nil {
		key = cacheKey{x: x.String(), g: g, lower: lower}
		if v, ok := cache.get(key); ok {
			return v
		}
	}

	scale := ValueToScale(g)
	gd := decimal.NewFromFloat(g).Round(preRoundPlaces, decimal.RoundHalfUp)
	xd := x.Round(preRoundPlaces, decimal.RoundHalfUp)

	q := xd.Div(gd).Floor()
	c := q.Mul(gd).Round(scale, decimal.RoundFloor)

	var result decimal.Decimal
	if c.Equal(xd) {
		result = c
	} else if lower {
		result = c.Round(scale, decimal.RoundFloor)
	} else {
		result = c.Add(gd).Round(scale, decimal.RoundCeiling)
	}

	if cache != nil {
		cache.put(key, result)
	}
	return result
}
