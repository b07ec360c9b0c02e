package strategy

import (
	"log/slog"
	"math"
	"strings"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// HedgeConfig configures the cancelled-order hedge.
type HedgeConfig struct {
	MinCancelledVolume    float64 // cancelled notional before hedging is considered
	PositionDiffThreshold float64 // relative position gap that triggers a hedge
	FundingMargin         float64 // quote buffer required to prefer the buy side
}

// Hedge closes position imbalances left behind by cancelled resting
// orders. It looks at the venue pair with the most cancelled volume,
// compares the unhedged positions on its two sides, and trades half the
// gap: buying on the lighter venue when quote funds allow, otherwise
// selling on the heavier one.
type Hedge struct {
	cfg    HedgeConfig
	logger *slog.Logger
}

// NewHedge creates the cancelled-order hedge detector.
func NewHedge(cfg HedgeConfig, logger *slog.Logger) *Hedge {
	return &Hedge{cfg: cfg, logger: logger.With(slog.String("strategy", "hedge"))}
}

// Name returns the detector identifier.
func (h *Hedge) Name() string { return "hedge" }

// Detect returns a single-leg HedgeAction when cancelled volume and the
// position gap both clear their thresholds, or NoTrade.
func (h *Hedge) Detect(in Input) domain.Action {
	cs := in.Ledger.CancelledStats(in.Asset)
	if cs.Count == 0 {
		return domain.NoTrade{Reason: "no cancelled orders"}
	}
	if cs.Volume < h.cfg.MinCancelledVolume {
		return domain.NoTrade{Reason: "cancelled volume below floor"}
	}
	pairKey, _, ok := cs.HeaviestPair()
	if !ok {
		return domain.NoTrade{Reason: "no cancelled pair recorded"}
	}
	buyVenue, sellVenue, ok := strings.Cut(pairKey, "->")
	if !ok {
		return domain.NoTrade{Reason: "malformed pair key"}
	}

	posBuy := in.Ledger.UnhedgedPosition(buyVenue, in.Asset)
	posSell := in.Ledger.UnhedgedPosition(sellVenue, in.Asset)
	diff := math.Abs(posBuy - posSell)
	avg := (posBuy + posSell) / 2
	if avg <= 0 {
		return domain.NoTrade{Reason: "no net position to hedge"}
	}
	if diff/avg <= h.cfg.PositionDiffThreshold {
		return domain.NoTrade{Reason: "position gap within tolerance"}
	}

	heavier, lighter := buyVenue, sellVenue
	heavierPos := posBuy
	if posSell > posBuy {
		heavier, lighter = sellVenue, buyVenue
		heavierPos = posSell
	}
	qty := math.Min(diff, heavierPos*0.5)
	if qty <= 0 {
		return domain.NoTrade{Reason: "nothing to trade"}
	}

	var (
		askPrice float64
		bidPrice float64
	)
	if book, ok := in.Books[lighter]; ok {
		if ask, okAsk := book.BestAsk(); okAsk {
			askPrice = ask.Price
		}
	}
	if book, ok := in.Books[heavier]; ok {
		if bid, okBid := book.BestBid(); okBid {
			bidPrice = bid.Price
		}
	}

	quoteCur := in.Ledger.QuoteCurrency()
	if askPrice > 0 && in.Ledger.GetBalance(lighter, quoteCur) >= diff*askPrice*(1+h.cfg.FundingMargin) {
		h.logger.Debug("hedge detected",
			slog.String("asset", in.Asset),
			slog.String("side", "buy"),
			slog.String("venue", lighter),
			slog.Float64("quantity", qty),
		)
		return domain.HedgeAction{Asset: in.Asset, Side: domain.SideBuy, Venue: lighter, Price: askPrice, Quantity: qty}
	}
	if bidPrice > 0 {
		h.logger.Debug("hedge detected",
			slog.String("asset", in.Asset),
			slog.String("side", "sell"),
			slog.String("venue", heavier),
			slog.Float64("quantity", qty),
		)
		return domain.HedgeAction{Asset: in.Asset, Side: domain.SideSell, Venue: heavier, Price: bidPrice, Quantity: qty}
	}
	return domain.NoTrade{Reason: "no book to price the hedge"}
}
