package strategy

import (
	"log/slog"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// DirectConfig configures the taker-taker cross scan.
type DirectConfig struct {
	MinBasis float64 // minimum fee-adjusted profit rate, relative to buy cost
}

// Direct scans every ordered venue pair for a live cross: buy the low ask,
// sell the high bid, both legs at taker fees. The highest rate above
// MinBasis wins; on a tie the earlier pair in venue order is kept.
type Direct struct {
	cfg    DirectConfig
	logger *slog.Logger
}

// NewDirect creates the direct arbitrage detector.
func NewDirect(cfg DirectConfig, logger *slog.Logger) *Direct {
	return &Direct{cfg: cfg, logger: logger.With(slog.String("strategy", "direct"))}
}

// Name returns the detector identifier.
func (d *Direct) Name() string { return "direct" }

// Detect returns an ArbitrageAction for the best venue pair, or NoTrade
// when no pair clears MinBasis. Buy venues that cannot fund MinQty at
// their ask are skipped.
func (d *Direct) Detect(in Input) domain.Action {
	quotes := validQuotes(in)
	if len(quotes) < 2 {
		return domain.NoTrade{Reason: "fewer than two tradable venues"}
	}
	quoteCur := in.Ledger.QuoteCurrency()

	var best *domain.ArbitrageAction
	for _, buy := range quotes {
		if in.Ledger.GetBalance(buy.venue, quoteCur) < in.MinQty*buy.ask {
			continue
		}
		buyFee := in.Ledger.GetFee(buy.venue, in.Asset, false)
		buyCost := buy.ask * (1 + buyFee)
		for _, sell := range quotes {
			if sell.venue == buy.venue {
				continue
			}
			sellFee := in.Ledger.GetFee(sell.venue, in.Asset, false)
			sellRevenue := sell.bid * (1 - sellFee)
			rate := (sellRevenue - buyCost) / buyCost
			if rate <= d.cfg.MinBasis {
				continue
			}
			if best != nil && rate <= best.ProfitRate {
				continue
			}
			best = &domain.ArbitrageAction{
				Asset:      in.Asset,
				BuyVenue:   buy.venue,
				SellVenue:  sell.venue,
				BuyPrice:   buy.ask,
				SellPrice:  sell.bid,
				Quantity:   in.MinQty,
				ProfitRate: rate,
			}
		}
	}
	if best == nil {
		return domain.NoTrade{Reason: "no pair above min basis"}
	}
	d.logger.Debug("cross detected",
		slog.String("asset", in.Asset),
		slog.String("buy_venue", best.BuyVenue),
		slog.String("sell_venue", best.SellVenue),
		slog.Float64("rate", best.ProfitRate),
	)
	return *best
}
