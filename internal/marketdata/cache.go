// Package marketdata owns the in-memory depth cache and the concurrent
// per-venue fetch fan-out that fills it.
package marketdata

import (
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// PricePolicy selects how ConsensusPrice combines venue quotes.
type PricePolicy string

const (
	// PolicyFirstValid uses the first venue, in the caller's order, quoting
	// both sides.
	PolicyFirstValid PricePolicy = "first_valid"
	// PolicyMedian uses the median of all live mid prices.
	PolicyMedian PricePolicy = "median"
)

// Cache holds the latest depth snapshot per venue+asset with a freshness
// window. A snapshot older than ttl is evicted on read; ttl <= 0 marks every
// snapshot stale. Same-key writes are serialized by the cache lock.
type Cache struct {
	mu     sync.Mutex
	ttl    time.Duration
	policy PricePolicy
	books  map[string]domain.DepthSnapshot

	now func() time.Time
}

// NewCache builds an empty cache with the given freshness window and
// consensus policy.
func NewCache(ttl time.Duration, policy PricePolicy) *Cache {
	if policy == "" {
		policy = PolicyFirstValid
	}
	return &Cache{
		ttl:    ttl,
		policy: policy,
		books:  make(map[string]domain.DepthSnapshot),
		now:    time.Now,
	}
}

func key(venue, asset string) string { return venue + "|" + asset }

// Put stores a snapshot, overwriting any previous one for the same
// venue+asset.
func (c *Cache) Put(snap domain.DepthSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[key(snap.Venue, snap.Asset)] = snap
}

// Get returns the live snapshot for venue+asset. A stale entry is evicted
// and reported absent.
func (c *Cache) Get(venue, asset string) (domain.DepthSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(venue, asset)
}

func (c *Cache) getLocked(venue, asset string) (domain.DepthSnapshot, bool) {
	k := key(venue, asset)
	snap, ok := c.books[k]
	if !ok {
		return domain.DepthSnapshot{}, false
	}
	if c.ttl <= 0 || c.now().Sub(snap.CapturedAt) > c.ttl {
		delete(c.books, k)
		return domain.DepthSnapshot{}, false
	}
	return snap, true
}

// Snapshots returns the live snapshots for the asset across the given
// venues, keyed by venue name.
func (c *Cache) Snapshots(asset string, venues []string) map[string]domain.DepthSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.DepthSnapshot, len(venues))
	for _, v := range venues {
		if snap, ok := c.getLocked(v, asset); ok {
			out[v] = snap
		}
	}
	return out
}

// ConsensusPrice derives a single reference price for the asset from the
// venues, in the caller's order, using the configured policy. Venues with a
// missing side or stale data are skipped. The second return is false when no
// venue qualifies.
func (c *Cache) ConsensusPrice(asset string, venues []string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.policy {
	case PolicyMedian:
		var mids []float64
		for _, v := range venues {
			snap, ok := c.getLocked(v, asset)
			if !ok {
				continue
			}
			if mid, ok := snap.MidPrice(); ok {
				mids = append(mids, mid)
			}
		}
		if len(mids) == 0 {
			return 0, false
		}
		sort.Float64s(mids)
		n := len(mids)
		if n%2 == 1 {
			return mids[n/2], true
		}
		return (mids[n/2-1] + mids[n/2]) / 2, true

	default: // PolicyFirstValid
		for _, v := range venues {
			snap, ok := c.getLocked(v, asset)
			if !ok {
				continue
			}
			if mid, ok := snap.MidPrice(); ok {
				return mid, true
			}
		}
		return 0, false
	}
}

// Len returns the number of entries currently stored, stale or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.books)
}
