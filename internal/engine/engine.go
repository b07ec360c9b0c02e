// Package engine drives the trading loop. One goroutine owns every ledger
// mutation and walks the same cycle each tick: refresh depth, work the
// resting-order lifecycle, run the per-asset detectors, publish what
// happened. A failing venue or asset is logged and skipped; the loop itself
// only stops with its context.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/spotarb/internal/config"
	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/executor"
	"github.com/alanyoungcy/spotarb/internal/ledger"
	"github.com/alanyoungcy/spotarb/internal/marketdata"
	"github.com/alanyoungcy/spotarb/internal/strategy"
	"github.com/alanyoungcy/spotarb/internal/venue"
)

// statusRecentOutcomes caps the outcome tail embedded in a status report.
const statusRecentOutcomes = 20

// Deps are the collaborators the engine drives. Store may be nil; the
// in-memory outcome log then stands alone. Hedge may be nil and Chain empty,
// leaving a loop that only refreshes market data and publishes status.
type Deps struct {
	Ledger  *ledger.Ledger
	Venues  *venue.Registry
	Cache   *marketdata.Cache
	Fetcher *marketdata.Fetcher
	Exec    *executor.Executor
	Hedge   strategy.Strategy
	Chain   []strategy.Strategy // detection priority order, first hit wins
	Bus     domain.SignalBus
	Store   domain.OutcomeStore
}

// Engine owns the tick loop. All ledger mutations happen on its goroutine;
// other goroutines read through the ledger's own locking, so Status is safe
// to call from anywhere.
type Engine struct {
	cfg    config.EngineConfig
	amount strategy.AmountConfig
	deps   Deps
	seed   int64 // position-seeding RNG seed; 0 seeds from the clock
	logger *slog.Logger

	ticks     int
	published int // outcomes already pushed to the bus and store
}

// New wires an engine over its collaborators. Amount sizing comes from the
// strategy config; seed mirrors the simulator convention where zero means
// seed from the clock.
func New(cfg config.EngineConfig, amount strategy.AmountConfig, deps Deps, seed int64, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		amount: amount,
		deps:   deps,
		seed:   seed,
		logger: logger.With(slog.String("component", "engine")),
	}
}

// Run executes the startup sequence, ticks once immediately, and then ticks
// on the configured interval until ctx is cancelled. Per-tick failures are
// logged, never returned: Run only returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting",
		slog.Any("assets", e.cfg.Assets),
		slog.Int("venues", e.deps.Venues.Len()),
		slog.Duration("tick_interval", e.cfg.TickInterval.Duration),
	)

	e.startup(ctx)
	e.tick(ctx)

	ticker := time.NewTicker(e.cfg.TickInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", slog.Int("ticks", e.ticks))
			return ctx.Err()
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// startup preloads venue fees into the ledger, takes the first depth wave,
// persists the support and fee files, and optionally seeds starting
// positions. Nothing here is fatal: a venue that is down at boot gets
// retried on every tick.
func (e *Engine) startup(ctx context.Context) {
	e.preloadFees()

	for _, asset := range e.cfg.Assets {
		n := e.deps.Fetcher.FetchAsset(ctx, asset)
		e.logger.Info("initial depth wave", slog.String("asset", asset), slog.Int("venues", n))
	}

	e.writeDataFiles()

	if e.cfg.SeedPositions {
		e.seedPositions()
	}
}

// preloadFees copies each venue's own fee schedule into the ledger fee
// table so fills are charged venue rates instead of the global default.
func (e *Engine) preloadFees() {
	for _, v := range e.deps.Venues.All() {
		for _, asset := range e.cfg.Assets {
			e.deps.Ledger.SetFee(v.Name(), asset, domain.FeeRates{
				Maker: v.GetFee(asset, true),
				Taker: v.GetFee(asset, false),
			})
		}
	}
}

// writeDataFiles persists the venue support matrix and the effective fee
// table under the data directory. Both are informational; write failures
// are logged and ignored.
func (e *Engine) writeDataFiles() {
	if e.cfg.DataDir == "" {
		return
	}
	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		e.logger.Warn("cannot create data dir",
			slog.String("dir", e.cfg.DataDir),
			slog.String("error", err.Error()),
		)
		return
	}

	names := e.deps.Venues.Names()
	matrix := make(map[string][]string, len(e.cfg.Assets))
	for _, asset := range e.cfg.Assets {
		books := e.deps.Cache.Snapshots(asset, names)
		supported := make([]string, 0, len(books))
		for _, name := range names {
			if _, ok := books[name]; ok {
				supported = append(supported, name)
			}
		}
		matrix[asset] = supported
	}

	e.writeJSON("support_matrix.json", matrix)
	e.writeJSON("fee_table.json", e.deps.Ledger.FeeTable())
}

func (e *Engine) writeJSON(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		e.logger.Warn("cannot encode data file", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	path := filepath.Join(e.cfg.DataDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.logger.Warn("cannot write data file", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// seedPositions converts part of each venue's starting quote into asset
// inventory so the balance and resting detectors have something to work
// with from the first tick. Per-venue factors jitter around 1; the same
// seed reproduces the same start.
func (e *Engine) seedPositions() {
	seed := e.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	names := e.deps.Venues.Names()
	for _, asset := range e.cfg.Assets {
		price, ok := e.deps.Cache.ConsensusPrice(asset, names)
		if !ok {
			e.logger.Warn("no consensus price, skipping position seed", slog.String("asset", asset))
			continue
		}
		factors := make(map[string]float64, len(names))
		for _, name := range names {
			factors[name] = 0.8 + 0.4*rng.Float64()
		}
		if err := e.deps.Ledger.SeedPositions(asset, price, factors); err != nil {
			e.logger.Warn("position seeding failed",
				slog.String("asset", asset),
				slog.String("error", err.Error()),
			)
			continue
		}
		e.logger.Info("seeded starting positions", slog.String("asset", asset), slog.Float64("price", price))
	}
}

// tick runs one full cycle. Order matters: fresh depth first, then the
// resting lifecycle (global, oldest order first), then per-asset detection,
// then publication.
func (e *Engine) tick(ctx context.Context) {
	e.ticks++

	for _, asset := range e.cfg.Assets {
		if n := e.deps.Fetcher.FetchAsset(ctx, asset); n == 0 {
			e.logger.Warn("no depth snapshots this tick", slog.String("asset", asset))
		}
	}
	if ctx.Err() != nil {
		return
	}

	e.deps.Exec.ProcessPending(ctx)

	for _, asset := range e.cfg.Assets {
		if ctx.Err() != nil {
			return
		}
		e.runAsset(ctx, asset)
	}

	e.publishOutcomes(ctx)

	report := e.Status()
	e.publishStatus(ctx, report)
	if e.cfg.StatusEvery > 0 && e.ticks%e.cfg.StatusEvery == 0 {
		e.logSummary(report)
	}
}

// runAsset runs the hedge pass and then the detection chain for one asset.
// The chain is skipped while the asset has an open PENDING order; the hedge
// pass is not, so cancelled inventory keeps being worked off. At most one
// chain action dispatches per asset per tick.
func (e *Engine) runAsset(ctx context.Context, asset string) {
	names := e.deps.Venues.Names()
	books := e.deps.Cache.Snapshots(asset, names)
	if len(books) == 0 {
		return
	}

	in := strategy.Input{
		Asset:  asset,
		Books:  books,
		Venues: names,
		MinQty: strategy.MinQuantity(asset, books, names, e.deps.Ledger, e.amount),
		Ledger: e.deps.Ledger,
	}

	if e.deps.Hedge != nil {
		if act := e.deps.Hedge.Detect(in); act.Kind() != domain.KindNoTrade {
			e.deps.Exec.Dispatch(ctx, act)
		}
	}

	if e.deps.Ledger.HasPendingOrder(asset) {
		return
	}

	for _, s := range e.deps.Chain {
		act := s.Detect(in)
		if act.Kind() == domain.KindNoTrade {
			continue
		}
		e.deps.Exec.Dispatch(ctx, act)
		return
	}
}

// publishOutcomes pushes outcomes recorded since the last call to the store
// and the bus, oldest first. The ledger's trade counter is monotonic, so
// the delta stays exact even though the in-memory log is capped.
func (e *Engine) publishOutcomes(ctx context.Context) {
	total := e.deps.Ledger.Stats().Trades
	if total <= e.published {
		return
	}

	fresh := e.deps.Ledger.RecentOutcomes(total - e.published) // newest first
	for i := len(fresh) - 1; i >= 0; i-- {
		o := fresh[i]
		if e.deps.Store != nil {
			if err := e.deps.Store.Insert(ctx, o); err != nil {
				e.logger.Warn("outcome insert failed",
					slog.String("outcome_id", o.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		payload, err := json.Marshal(o)
		if err != nil {
			continue
		}
		if err := e.deps.Bus.Publish(ctx, domain.ChannelOutcomes, payload); err != nil {
			e.logger.Warn("outcome publish failed", slog.String("error", err.Error()))
		}
	}
	e.published = total
}

// Status assembles a sanitized report with positions valued at the current
// consensus prices. Assets without a live price contribute zero value.
func (e *Engine) Status() domain.StatusReport {
	names := e.deps.Venues.Names()
	prices := make(map[string]float64, len(e.cfg.Assets))
	for _, asset := range e.cfg.Assets {
		if p, ok := e.deps.Cache.ConsensusPrice(asset, names); ok {
			prices[asset] = p
		}
	}
	return e.deps.Ledger.Status(prices, statusRecentOutcomes)
}

func (e *Engine) publishStatus(ctx context.Context, report domain.StatusReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		e.logger.Warn("status encode failed", slog.String("error", err.Error()))
		return
	}
	if err := e.deps.Bus.Publish(ctx, domain.ChannelStatus, payload); err != nil {
		e.logger.Warn("status publish failed", slog.String("error", err.Error()))
	}
}

// logSummary writes the periodic one-line account of where the book stands.
func (e *Engine) logSummary(report domain.StatusReport) {
	e.logger.Info("engine summary",
		slog.Int("tick", e.ticks),
		slog.Float64("profit", report.Profit),
		slog.Float64("profit_rate", report.ProfitRate),
		slog.Int("trades", report.Stats.Trades),
		slog.Int("successes", report.Stats.Successes),
		slog.Int("failures", report.Stats.Failures),
		slog.Int("resting_orders", len(report.RestingOrders)),
		slog.Float64("quote_balance", report.QuoteBalance),
	)
}
