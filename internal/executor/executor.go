// Package executor turns detector actions into venue orders and ledger
// movements. Every dispatched action ends in exactly one recorded
// TradeOutcome, whatever happens on the way: pre-flight aborts record a
// FAILED outcome with no ledger effect, and a failed second leg is
// compensated by reversing the first rather than leaving a naked position.
package executor

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/ledger"
	"github.com/alanyoungcy/spotarb/internal/venue"
)

// DepthSource provides the fresh order books read immediately before any leg
// is placed. *marketdata.Fetcher satisfies it.
type DepthSource interface {
	FetchPair(ctx context.Context, asset, first, second string) (map[string]domain.DepthSnapshot, error)
}

// Config carries the execution-time guards. Values come from the strategy
// section of the runtime config.
type Config struct {
	MaxPriceDrift float64       // abort tolerance between detected and fresh taker prices
	MinProfit     float64       // recomputed-profit floor for arbitrage pairs, in quote units
	MinAmount     float64       // quantity floor when a resting quote is re-clamped
	PriceAdjust   float64       // maker improvement applied when a resting order is created
	TriggerDrift  float64       // tolerance between quoted and market prices at trigger time
	RestingProfit float64       // expected-profit floor for new resting orders
	OrderTimeout  time.Duration // resting order lifetime before cancellation
}

// Executor places the legs a detector asked for and mirrors every fill into
// the ledger. The engine drives it synchronously, one action per call, so
// the ledger sees trades in tick order.
type Executor struct {
	ledger *ledger.Ledger
	venues *venue.Registry
	depth  DepthSource
	cfg    Config
	logger *slog.Logger

	now func() time.Time // swapped in tests
}

// New wires an executor over the shared ledger, venue registry and depth
// source.
func New(led *ledger.Ledger, venues *venue.Registry, depth DepthSource, cfg Config, logger *slog.Logger) *Executor {
	return &Executor{
		ledger: led,
		venues: venues,
		depth:  depth,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "executor")),
		now:    time.Now,
	}
}

// Dispatch routes one detector action to its executor. NoTrade is a no-op.
// Failures are recorded as outcomes, never returned: one bad trade must not
// stop the tick.
func (e *Executor) Dispatch(ctx context.Context, act domain.Action) {
	switch a := act.(type) {
	case domain.ArbitrageAction:
		e.executeArbitrage(ctx, a)
	case domain.BalanceAction:
		e.executeBalance(ctx, a)
	case domain.RestingQuote:
		e.createResting(ctx, a)
	case domain.HedgeAction:
		e.executeHedge(ctx, a)
	case domain.NoTrade:
	}
}

// fill places one leg at a venue and mirrors it into the ledger. The venue
// trades first: a venue rejection leaves the ledger untouched, while a
// ledger refusal after a venue fill surfaces as an error the caller must
// compensate.
func (e *Executor) fill(ctx context.Context, venueName string, side domain.Side, asset string, price, quantity, feeRate float64) error {
	v, err := e.venues.Get(venueName)
	if err != nil {
		return err
	}
	if side == domain.SideBuy {
		if _, err := v.Buy(ctx, asset, price, quantity); err != nil {
			return err
		}
		return e.ledger.ExecuteBuy(venueName, asset, price, quantity, feeRate)
	}
	if _, err := v.Sell(ctx, asset, price, quantity); err != nil {
		return err
	}
	return e.ledger.ExecuteSell(venueName, asset, price, quantity, feeRate)
}

// drift returns the relative distance of current from reference.
func drift(current, reference float64) float64 {
	if reference <= 0 {
		return 0
	}
	return math.Abs(current-reference) / reference
}

func newID() string {
	return uuid.Must(uuid.NewRandom()).String()
}
