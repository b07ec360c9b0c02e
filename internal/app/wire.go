package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/spotarb/internal/blob/s3"
	"github.com/alanyoungcy/spotarb/internal/bus/memory"
	"github.com/alanyoungcy/spotarb/internal/bus/redis"
	"github.com/alanyoungcy/spotarb/internal/config"
	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/executor"
	"github.com/alanyoungcy/spotarb/internal/ledger"
	"github.com/alanyoungcy/spotarb/internal/marketdata"
	"github.com/alanyoungcy/spotarb/internal/store/postgres"
	"github.com/alanyoungcy/spotarb/internal/strategy"
	"github.com/alanyoungcy/spotarb/internal/venue"
	"github.com/alanyoungcy/spotarb/internal/venue/sim"
)

// Dependencies bundles everything the application modes operate on. Wire
// constructs it; the returned cleanup function tears it down.
type Dependencies struct {
	Ledger  *ledger.Ledger
	Venues  *venue.Registry
	Cache   *marketdata.Cache
	Fetcher *marketdata.Fetcher
	Exec    *executor.Executor
	Hedge   strategy.Strategy
	Chain   []strategy.Strategy // detection priority order

	Bus      domain.SignalBus
	Store    domain.OutcomeStore // nil unless postgres is enabled
	Archiver *s3blob.Archiver    // nil unless s3 + archive are enabled
}

// needsArchive reports whether the mode drains outcome history to object
// storage. Monitor mode reads history but never deletes it.
func needsArchive(mode string) bool {
	switch mode {
	case "trade", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Ledger ---
	venueNames := make([]string, 0, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		venueNames = append(venueNames, vc.Name)
	}
	deps.Ledger = ledger.New(ledger.Config{
		Venues:          venueNames,
		QuoteCurrency:   cfg.Engine.QuoteCurrency,
		InitialBalance:  cfg.Engine.InitialBalance,
		MaxRestingCount: cfg.Strategy.Resting.MaxOrders,
		MaxRestingValue: cfg.Strategy.Resting.MaxTotalValue,
	})

	// --- Simulated venues ---
	// Every venue draws from the shared reference walk but noises it with its
	// own stream. A zero seed falls back to the clock, matching the model.
	model := sim.NewPriceModel(cfg.Sim)
	seedBase := cfg.Sim.Seed
	if seedBase == 0 {
		seedBase = time.Now().UnixNano()
	}
	venues := make([]venue.Venue, 0, len(cfg.Venues))
	for i, vc := range cfg.Venues {
		venues = append(venues, sim.New(vc, model, deps.Ledger, seedBase+int64(i+1)))
	}
	deps.Venues = venue.NewRegistry(venues)

	// --- Market data ---
	deps.Cache = marketdata.NewCache(cfg.Market.CacheTTL.Duration, marketdata.PricePolicy(cfg.Market.PricePolicy))
	deps.Fetcher = marketdata.NewFetcher(deps.Venues, deps.Cache, cfg.Market, logger)

	// --- Executor ---
	deps.Exec = executor.New(deps.Ledger, deps.Venues, deps.Fetcher, executor.Config{
		MaxPriceDrift: cfg.Strategy.MaxPriceDrift,
		MinProfit:     cfg.Strategy.MinProfit,
		MinAmount:     cfg.Strategy.MinAmount,
		PriceAdjust:   cfg.Strategy.Resting.PriceAdjust,
		TriggerDrift:  cfg.Strategy.Resting.TriggerDrift,
		RestingProfit: cfg.Strategy.Resting.MinProfit,
		OrderTimeout:  cfg.Strategy.Resting.OrderTimeout.Duration,
	}, logger)

	// --- Detectors ---
	deps.Hedge = strategy.NewHedge(strategy.HedgeConfig{
		MinCancelledVolume:    cfg.Strategy.Hedge.MinCancelledVolume,
		PositionDiffThreshold: cfg.Strategy.Hedge.PositionDiffThreshold,
		FundingMargin:         cfg.Strategy.Hedge.FundingMargin,
	}, logger)
	deps.Chain = []strategy.Strategy{
		strategy.NewDirect(strategy.DirectConfig{
			MinBasis: cfg.Strategy.MinBasis,
		}, logger),
		strategy.NewBalance(strategy.BalanceConfig{
			MinDeviation:    cfg.Strategy.Balance.MinDeviation,
			MaxDeviation:    cfg.Strategy.Balance.MaxDeviation,
			ProfitThreshold: cfg.Strategy.Balance.ProfitThreshold,
			MaxTransfer:     cfg.Strategy.Balance.MaxTransfer,
		}, logger),
		strategy.NewResting(strategy.RestingConfig{
			MinBasis:          cfg.Strategy.MinBasis,
			ThresholdFraction: cfg.Strategy.Resting.ThresholdFraction,
			PriceAdjust:       cfg.Strategy.Resting.PriceAdjust,
		}, logger),
	}

	// --- Signal bus (redis when enabled, in-process otherwise) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		bus := redis.NewBus(redisClient) // closing the bus closes the client
		closers = append(closers, func() { _ = bus.Close() })
		deps.Bus = bus
	} else {
		bus := memory.New()
		closers = append(closers, func() { _ = bus.Close() })
		deps.Bus = bus
	}

	// --- PostgreSQL outcome store ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Store = postgres.NewOutcomeStore(pgClient.Pool())
	}

	// --- S3 archiver (trade/full modes with postgres behind it) ---
	if cfg.S3.Enabled && cfg.Archive.Enabled && needsArchive(cfg.Mode) {
		if deps.Store == nil {
			logger.Warn("archive enabled without postgres, skipping archiver")
		} else {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			closers = append(closers, func() { _ = s3Client.Close() })

			retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
			deps.Archiver = s3blob.NewArchiver(
				s3blob.NewWriter(s3Client),
				deps.Store,
				retention,
				cfg.Archive.Interval.Duration,
				logger,
			)
		}
	}

	return deps, cleanup, nil
}
