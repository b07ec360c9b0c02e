package strategy

import (
	"log/slog"
	"math"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// RestingConfig configures the maker-maker quote scan.
type RestingConfig struct {
	MinBasis          float64 // the taker scan's rate floor
	ThresholdFraction float64 // fraction of MinBasis a maker pair must clear
	PriceAdjust       float64 // improvement applied to both quoted prices
}

// Resting looks for venue pairs that are close to crossing at maker fees
// and proposes quoting inside them: a buy below the ask and a sell above
// the bid, registered as a resting order that fires if the market comes
// through the quotes. The bar is a fraction of the taker scan's, since
// maker fills keep the spread concession.
type Resting struct {
	cfg    RestingConfig
	logger *slog.Logger
}

// NewResting creates the resting quote detector.
func NewResting(cfg RestingConfig, logger *slog.Logger) *Resting {
	return &Resting{cfg: cfg, logger: logger.With(slog.String("strategy", "resting"))}
}

// Name returns the detector identifier.
func (r *Resting) Name() string { return "resting" }

type restingCandidate struct {
	rate        float64
	orientation domain.Orientation
	buy         quote
	sell        quote
	buyFee      float64 // maker rate at the buy venue
	sellFee     float64 // maker rate at the sell venue
}

// Detect returns a RestingQuote for the best maker pair above the
// threshold, or NoTrade. Forward candidates need the quote balance to fund
// the buy leg at the buy venue; reverse candidates need the asset balance
// to fund the sell leg at the sell venue. Pairs that already carry a
// resting order are skipped, and nothing is proposed when the order caps
// are full.
func (r *Resting) Detect(in Input) domain.Action {
	quotes := validQuotes(in)
	if len(quotes) < 2 {
		return domain.NoTrade{Reason: "fewer than two tradable venues"}
	}
	threshold := r.cfg.MinBasis * r.cfg.ThresholdFraction
	quoteCur := in.Ledger.QuoteCurrency()

	type venueState struct {
		maker   float64
		quoteOK bool // can fund a MinQty buy at this venue's ask
		assetOK bool // can fund a MinQty sell from inventory
	}
	states := make([]venueState, len(quotes))
	for i, q := range quotes {
		states[i] = venueState{
			maker:   in.Ledger.GetFee(q.venue, in.Asset, true),
			quoteOK: in.Ledger.GetBalance(q.venue, quoteCur) >= in.MinQty*q.ask,
			assetOK: in.Ledger.GetBalance(q.venue, in.Asset) >= in.MinQty,
		}
	}

	var best *restingCandidate
	consider := func(c restingCandidate) {
		if c.rate <= threshold {
			return
		}
		if best != nil && c.rate <= best.rate {
			return
		}
		if in.Ledger.HasRestingPair(in.Asset, c.buy.venue, c.sell.venue) {
			return
		}
		picked := c
		best = &picked
	}

	for i, q1 := range quotes {
		s1 := states[i]
		if s1.quoteOK {
			// Both legs on one venue: its own spread at maker fees.
			rate := (q1.bid*(1-s1.maker) - q1.ask*(1+s1.maker)) / q1.ask
			consider(restingCandidate{rate: rate, orientation: domain.OrientForward, buy: q1, sell: q1, buyFee: s1.maker, sellFee: s1.maker})
		}
		for j, q2 := range quotes {
			if j == i {
				continue
			}
			s2 := states[j]
			// Rates are per unit of buy notional, fees on both legs.
			buy1sell2 := (q2.bid*(1-s2.maker) - q1.ask*(1+s1.maker)) / q1.ask
			buy2sell1 := (q1.bid*(1-s1.maker) - q2.ask*(1+s2.maker)) / q2.ask
			if s1.quoteOK {
				consider(restingCandidate{rate: buy1sell2, orientation: domain.OrientForward, buy: q1, sell: q2, buyFee: s1.maker, sellFee: s2.maker})
			}
			if s2.quoteOK {
				consider(restingCandidate{rate: buy2sell1, orientation: domain.OrientForward, buy: q2, sell: q1, buyFee: s2.maker, sellFee: s1.maker})
			}
			if s1.assetOK {
				consider(restingCandidate{rate: buy2sell1, orientation: domain.OrientReverse, buy: q2, sell: q1, buyFee: s2.maker, sellFee: s1.maker})
			}
			if s2.assetOK {
				consider(restingCandidate{rate: buy1sell2, orientation: domain.OrientReverse, buy: q1, sell: q2, buyFee: s1.maker, sellFee: s2.maker})
			}
		}
	}
	if best == nil {
		return domain.NoTrade{Reason: "no maker pair above threshold"}
	}
	if !in.Ledger.CanRegisterResting(in.MinQty * best.buy.ask) {
		return domain.NoTrade{Reason: "resting order caps reached"}
	}

	qty := math.Min(math.Min(best.buy.askSize, best.sell.bidSize), in.MinQty)
	buyPrice := best.buy.ask * (1 - r.cfg.PriceAdjust)
	sellPrice := best.sell.bid * (1 + r.cfg.PriceAdjust)
	expected := qty * (sellPrice*(1-best.sellFee) - buyPrice*(1+best.buyFee))

	r.logger.Debug("resting pair detected",
		slog.String("asset", in.Asset),
		slog.String("orientation", string(best.orientation)),
		slog.String("buy_venue", best.buy.venue),
		slog.String("sell_venue", best.sell.venue),
		slog.Float64("rate", best.rate),
	)
	return domain.RestingQuote{
		Asset:          in.Asset,
		Orientation:    best.orientation,
		BuyVenue:       best.buy.venue,
		SellVenue:      best.sell.venue,
		BuyPrice:       buyPrice,
		SellPrice:      sellPrice,
		Quantity:       qty,
		BuyFee:         best.buyFee,
		SellFee:        best.sellFee,
		ExpectedProfit: expected,
	}
}
