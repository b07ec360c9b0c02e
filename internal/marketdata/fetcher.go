package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spotarb/internal/config"
	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/venue"
)

// Fetcher pulls depth snapshots from every venue concurrently and stores the
// survivors in the cache. A venue that exhausts its retry budget simply
// contributes no data for the tick; it never fails the tick.
type Fetcher struct {
	registry *venue.Registry
	cache    *Cache
	retries  int
	delay    time.Duration
	logger   *slog.Logger
}

// NewFetcher wires the fan-out against the venue registry.
func NewFetcher(reg *venue.Registry, cache *Cache, cfg config.MarketConfig, logger *slog.Logger) *Fetcher {
	retries := cfg.FetchRetries
	if retries < 1 {
		retries = 1
	}
	return &Fetcher{
		registry: reg,
		cache:    cache,
		retries:  retries,
		delay:    cfg.RetryDelay.Duration,
		logger:   logger.With(slog.String("component", "fetcher")),
	}
}

// FetchAsset refreshes the asset's depth across all venues, one goroutine
// per venue, and returns how many venues delivered a usable snapshot.
func (f *Fetcher) FetchAsset(ctx context.Context, asset string) int {
	var delivered atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range f.registry.All() {
		g.Go(func() error {
			snap, err := f.fetchOne(gctx, v, asset)
			if err != nil {
				f.logger.WarnContext(gctx, "venue delivered no depth this tick",
					slog.String("venue", v.Name()),
					slog.String("asset", asset),
					slog.String("error", err.Error()),
				)
				return nil
			}
			f.cache.Put(snap)
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load())
}

// FetchPair fetches fresh depth for exactly two venues, bypassing cache
// freshness: executors call it to recheck prices immediately before trading.
// Both snapshots are re-cached on success.
func (f *Fetcher) FetchPair(ctx context.Context, asset, first, second string) (map[string]domain.DepthSnapshot, error) {
	names := []string{first}
	if second != "" && second != first {
		names = append(names, second)
	}

	out := make(map[string]domain.DepthSnapshot, len(names))
	for _, name := range names {
		v, err := f.registry.Get(name)
		if err != nil {
			return nil, err
		}
		snap, err := f.fetchOne(ctx, v, asset)
		if err != nil {
			return nil, fmt.Errorf("marketdata: refresh %s/%s: %w", name, asset, err)
		}
		f.cache.Put(snap)
		out[name] = snap
	}
	return out, nil
}

// fetchOne asks one venue for depth with the configured retry budget and a
// fixed delay between attempts. Cancellation is honored at every retry
// boundary.
func (f *Fetcher) fetchOne(ctx context.Context, v venue.Venue, asset string) (domain.DepthSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.DepthSnapshot{}, ctx.Err()
			case <-time.After(f.delay):
			}
		}

		snap, err := v.GetDepth(ctx, asset)
		if err != nil {
			lastErr = err
			continue
		}
		if err := snap.Validate(); err != nil {
			lastErr = fmt.Errorf("venue %s: %w", v.Name(), err)
			continue
		}
		return snap, nil
	}
	return domain.DepthSnapshot{}, lastErr
}
