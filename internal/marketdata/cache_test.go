package marketdata

import (
	"testing"
	"time"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

func mkSnap(venue string, ask, bid float64, at time.Time) domain.DepthSnapshot {
	snap := domain.DepthSnapshot{Venue: venue, Asset: "BTC", CapturedAt: at}
	if ask > 0 {
		snap.Asks = []domain.PriceLevel{{Price: ask, Size: 1}}
	}
	if bid > 0 {
		snap.Bids = []domain.PriceLevel{{Price: bid, Size: 1}}
	}
	return snap
}

func TestCachePutGet(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyFirstValid)
	c.now = func() time.Time { return base }

	c.Put(mkSnap("alpha", 101, 99, base))
	snap, ok := c.Get("alpha", "BTC")
	if !ok {
		t.Fatal("expected hit")
	}
	ask, _ := snap.BestAsk()
	if ask.Price != 101 {
		t.Fatalf("ask=%v, want 101", ask.Price)
	}
	if _, ok := c.Get("beta", "BTC"); ok {
		t.Fatal("unknown venue must miss")
	}
}

func TestCachePutOverwrites(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyFirstValid)
	c.now = func() time.Time { return base }

	c.Put(mkSnap("alpha", 101, 99, base))
	c.Put(mkSnap("alpha", 105, 103, base))
	snap, _ := c.Get("alpha", "BTC")
	ask, _ := snap.BestAsk()
	if ask.Price != 105 {
		t.Fatalf("ask=%v, want the overwrite 105", ask.Price)
	}
	if c.Len() != 1 {
		t.Fatalf("Len=%d, want 1", c.Len())
	}
}

func TestCacheExpiryEvicts(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyFirstValid)
	now := base
	c.now = func() time.Time { return now }

	c.Put(mkSnap("alpha", 101, 99, base))

	now = base.Add(100 * time.Second) // exactly ttl: still fresh
	if _, ok := c.Get("alpha", "BTC"); !ok {
		t.Fatal("age == ttl should still hit")
	}

	now = base.Add(101 * time.Second)
	if _, ok := c.Get("alpha", "BTC"); ok {
		t.Fatal("stale entry should miss")
	}
	if c.Len() != 0 {
		t.Fatalf("stale entry should be evicted, Len=%d", c.Len())
	}
}

func TestCacheNonPositiveTTLAlwaysStale(t *testing.T) {
	base := time.Now()
	c := NewCache(0, PolicyFirstValid)
	c.now = func() time.Time { return base }

	c.Put(mkSnap("alpha", 101, 99, base))
	if _, ok := c.Get("alpha", "BTC"); ok {
		t.Fatal("ttl<=0 must treat every entry as stale")
	}
}

func TestConsensusFirstValidSkipsIncomplete(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyFirstValid)
	c.now = func() time.Time { return base }

	c.Put(mkSnap("alpha", 101, 0, base)) // bid side missing
	c.Put(mkSnap("beta", 102, 100, base))
	c.Put(mkSnap("gamma", 90, 80, base))

	price, ok := c.ConsensusPrice("BTC", []string{"alpha", "beta", "gamma"})
	if !ok {
		t.Fatal("expected a consensus price")
	}
	if price != 101 {
		t.Fatalf("price=%v, want beta's mid 101", price)
	}
}

func TestConsensusFirstValidRespectsOrder(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyFirstValid)
	c.now = func() time.Time { return base }

	c.Put(mkSnap("alpha", 102, 100, base))
	c.Put(mkSnap("beta", 202, 200, base))

	price, _ := c.ConsensusPrice("BTC", []string{"beta", "alpha"})
	if price != 201 {
		t.Fatalf("price=%v, want first-ordered venue's mid 201", price)
	}
}

func TestConsensusMedian(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyMedian)
	c.now = func() time.Time { return base }

	c.Put(mkSnap("alpha", 102, 100, base)) // mid 101
	c.Put(mkSnap("beta", 106, 104, base))  // mid 105
	c.Put(mkSnap("gamma", 120, 118, base)) // mid 119

	price, ok := c.ConsensusPrice("BTC", []string{"alpha", "beta", "gamma"})
	if !ok || price != 105 {
		t.Fatalf("median=%v ok=%v, want 105 true", price, ok)
	}

	// Even count averages the middle two.
	c.Put(mkSnap("delta", 110, 108, base)) // mid 109
	price, _ = c.ConsensusPrice("BTC", []string{"alpha", "beta", "gamma", "delta"})
	if price != 107 {
		t.Fatalf("median=%v, want 107", price)
	}
}

func TestConsensusNoValidVenues(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyFirstValid)
	c.now = func() time.Time { return base }

	c.Put(mkSnap("alpha", 101, 0, base))
	if _, ok := c.ConsensusPrice("BTC", []string{"alpha", "beta"}); ok {
		t.Fatal("no venue quotes both sides, expected false")
	}
}

func TestSnapshotsFiltersStale(t *testing.T) {
	base := time.Now()
	c := NewCache(100*time.Second, PolicyFirstValid)
	now := base
	c.now = func() time.Time { return now }

	c.Put(mkSnap("alpha", 101, 99, base))
	c.Put(mkSnap("beta", 102, 100, base.Add(-200*time.Second)))

	books := c.Snapshots("BTC", []string{"alpha", "beta"})
	if len(books) != 1 {
		t.Fatalf("len=%d, want 1", len(books))
	}
	if _, ok := books["alpha"]; !ok {
		t.Fatal("alpha should survive")
	}
}
