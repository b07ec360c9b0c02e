package strategy

import (
	"log/slog"
	"math"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// BalanceConfig configures the inventory rebalance detector.
type BalanceConfig struct {
	MinDeviation    float64 // ignore spreads in holdings below this share of the mean
	MaxDeviation    float64 // force a move beyond this share, profitable or not
	ProfitThreshold float64 // required net spread for optional moves
	MaxTransfer     float64 // per-move quantity cap; 0 means 10x MinQty
}

// Balance watches how an asset is distributed across venues and proposes
// moving part of it from the most overweight venue to the most underweight
// one. Small skews are tolerated, moderate ones move only when the books
// pay for the fees, and skews beyond MaxDeviation move unconditionally.
type Balance struct {
	cfg    BalanceConfig
	logger *slog.Logger
}

// NewBalance creates the inventory rebalance detector.
func NewBalance(cfg BalanceConfig, logger *slog.Logger) *Balance {
	return &Balance{cfg: cfg, logger: logger.With(slog.String("strategy", "balance"))}
}

// Name returns the detector identifier.
func (b *Balance) Name() string { return "balance" }

type holding struct {
	venue   string
	balance float64
	bid     float64
	ask     float64
	dev     float64 // (balance-avg)/avg
}

// Detect returns a BalanceAction when holdings deviate enough from the
// per-venue mean, or NoTrade. Only venues with a two-sided book and a
// positive asset balance count as holdings.
func (b *Balance) Detect(in Input) domain.Action {
	holdings := make([]holding, 0, len(in.Venues))
	var total float64
	for _, venue := range in.Venues {
		book, ok := in.Books[venue]
		if !ok {
			continue
		}
		ask, okAsk := book.BestAsk()
		bid, okBid := book.BestBid()
		if !okAsk || !okBid || ask.Price <= 0 || bid.Price <= 0 {
			continue
		}
		bal := in.Ledger.GetBalance(venue, in.Asset)
		if bal <= 0 {
			continue
		}
		holdings = append(holdings, holding{venue: venue, balance: bal, bid: bid.Price, ask: ask.Price})
		total += bal
	}
	if len(holdings) < 2 {
		return domain.NoTrade{Reason: "fewer than two venues holding the asset"}
	}

	avg := total / float64(len(holdings))
	for i := range holdings {
		holdings[i].dev = (holdings[i].balance - avg) / avg
	}

	src, tgt := -1, -1
	for i, h := range holdings {
		if h.dev > 0 && (src < 0 || h.dev > holdings[src].dev) {
			src = i
		}
		if h.dev < 0 && (tgt < 0 || h.dev < holdings[tgt].dev) {
			tgt = i
		}
	}
	if src < 0 || tgt < 0 {
		// No strictly over- or underweight venue: fall back to the extremes.
		src, tgt = 0, 0
		for i, h := range holdings {
			if h.dev > holdings[src].dev {
				src = i
			}
			if h.dev < holdings[tgt].dev {
				tgt = i
			}
		}
		if src == tgt {
			return domain.NoTrade{Reason: "holdings already level"}
		}
	}

	source, target := holdings[src], holdings[tgt]
	maxDev := math.Max(math.Abs(source.dev), math.Abs(target.dev))
	if maxDev < b.cfg.MinDeviation {
		return domain.NoTrade{Reason: "deviation below threshold"}
	}
	mandatory := maxDev > b.cfg.MaxDeviation
	if !mandatory {
		srcFee := in.Ledger.GetFee(source.venue, in.Asset, false)
		tgtFee := in.Ledger.GetFee(target.venue, in.Asset, false)
		net := (source.bid-target.ask)/target.ask - (srcFee + tgtFee)
		if net < b.cfg.ProfitThreshold {
			return domain.NoTrade{Reason: "rebalance spread below profit threshold"}
		}
	}

	maxTransfer := b.cfg.MaxTransfer
	if maxTransfer <= 0 {
		maxTransfer = in.MinQty * 10
	}
	factor := maxDev / b.cfg.MaxDeviation
	if factor > 1 {
		factor = 1
	}
	qty := in.MinQty + (maxTransfer-in.MinQty)*factor
	if limit := source.balance * 0.5; qty > limit {
		qty = limit
	}

	b.logger.Debug("rebalance detected",
		slog.String("asset", in.Asset),
		slog.String("from", source.venue),
		slog.String("to", target.venue),
		slog.Float64("deviation", source.dev),
		slog.Bool("mandatory", mandatory),
	)
	return domain.BalanceAction{
		Asset:     in.Asset,
		FromVenue: source.venue,
		ToVenue:   target.venue,
		SellPrice: source.bid,
		BuyPrice:  target.ask,
		Quantity:  qty,
		Deviation: source.dev,
		Mandatory: mandatory,
	}
}
