package executor

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// executeArbitrage runs a two-leg taker trade: buy at the cheap venue, sell
// at the expensive one. Both books are re-read first and the trade aborts,
// with nothing placed, when the prices drifted or the edge is gone. When the
// buy leg filled but the sell leg fails, the position is sold back at the
// buy venue.
func (e *Executor) executeArbitrage(ctx context.Context, act domain.ArbitrageAction) {
	log := e.logger.With(
		slog.String("action", string(act.Kind())),
		slog.String("asset", act.Asset),
		slog.String("buy_venue", act.BuyVenue),
		slog.String("sell_venue", act.SellVenue),
	)

	outcome := domain.TradeOutcome{
		ID:        newID(),
		Kind:      domain.KindArbitrage,
		Asset:     act.Asset,
		BuyVenue:  act.BuyVenue,
		SellVenue: act.SellVenue,
		Quantity:  act.Quantity,
		BuyPrice:  act.BuyPrice,
		SellPrice: act.SellPrice,
		Status:    domain.OutcomeFailed,
	}
	abort := func(reason string) {
		outcome.Reason = reason
		e.ledger.RecordOutcome(outcome)
		log.Warn("arbitrage aborted", slog.String("reason", reason))
	}

	// 1. Re-read both books; detection prices must not drive real legs.
	books, err := e.depth.FetchPair(ctx, act.Asset, act.BuyVenue, act.SellVenue)
	if err != nil {
		abort("depth refresh failed: " + err.Error())
		return
	}
	ask, okAsk := books[act.BuyVenue].BestAsk()
	bid, okBid := books[act.SellVenue].BestBid()
	if !okAsk || !okBid {
		abort("book went one-sided on refresh")
		return
	}
	outcome.BuyPrice, outcome.SellPrice = ask.Price, bid.Price

	// 2. Abort on drift beyond tolerance on either leg.
	if drift(ask.Price, act.BuyPrice) > e.cfg.MaxPriceDrift || drift(bid.Price, act.SellPrice) > e.cfg.MaxPriceDrift {
		abort("price drifted past tolerance")
		return
	}

	// 3. Recompute profit at the fresh prices.
	buyRate := e.ledger.GetFee(act.BuyVenue, act.Asset, false)
	sellRate := e.ledger.GetFee(act.SellVenue, act.Asset, false)
	cost := ask.Price * act.Quantity
	buyFee := cost * buyRate
	revenue := bid.Price * act.Quantity
	sellFee := revenue * sellRate
	profit := revenue - sellFee - cost - buyFee
	if profit <= e.cfg.MinProfit {
		abort("recomputed profit below floor")
		return
	}

	// 4. Fund both legs before the first one trades.
	if e.ledger.GetBalance(act.BuyVenue, e.ledger.QuoteCurrency()) < cost+buyFee {
		abort("insufficient quote at buy venue")
		return
	}
	if e.ledger.GetBalance(act.SellVenue, act.Asset) < act.Quantity {
		abort("insufficient inventory at sell venue")
		return
	}

	// 5. Leg one: buy.
	if err := e.fill(ctx, act.BuyVenue, domain.SideBuy, act.Asset, ask.Price, act.Quantity, buyRate); err != nil {
		abort("buy leg failed: " + err.Error())
		return
	}

	// 6. Leg two: sell. Past this point the buy is on the books, so a
	// failure must unwind it.
	if err := e.fill(ctx, act.SellVenue, domain.SideSell, act.Asset, bid.Price, act.Quantity, sellRate); err != nil {
		e.compensateArbitrage(ctx, log, outcome, act, books[act.BuyVenue], cost, buyFee, buyRate, err)
		return
	}

	outcome.Status = domain.OutcomeSuccess
	outcome.Fees = buyFee + sellFee
	outcome.Profit = profit
	e.ledger.RecordOutcome(outcome)
	log.Info("arbitrage executed",
		slog.Float64("buy_price", ask.Price),
		slog.Float64("sell_price", bid.Price),
		slog.Float64("quantity", act.Quantity),
		slog.Float64("profit", profit),
	)
}

// compensateArbitrage sells the bought quantity back at the buy venue's
// current bid. Success downgrades the attempt to FAILED with the realized
// loss; a second failure leaves the position open and records ERROR so the
// books get a manual review.
func (e *Executor) compensateArbitrage(ctx context.Context, log *slog.Logger, outcome domain.TradeOutcome, act domain.ArbitrageAction, buyBook domain.DepthSnapshot, cost, buyFee, buyRate float64, cause error) {
	if bid, ok := buyBook.BestBid(); ok {
		if err := e.fill(ctx, act.BuyVenue, domain.SideSell, act.Asset, bid.Price, act.Quantity, buyRate); err == nil {
			revenue := bid.Price * act.Quantity
			compFee := revenue * buyRate
			outcome.Status = domain.OutcomeFailed
			outcome.Fees = buyFee + compFee
			outcome.Profit = revenue - compFee - cost - buyFee
			outcome.Reason = "sell leg failed, position sold back: " + cause.Error()
			e.ledger.RecordOutcome(outcome)
			log.Warn("arbitrage compensated",
				slog.Float64("loss", outcome.Profit),
				slog.String("cause", cause.Error()),
			)
			return
		}
	}
	outcome.Status = domain.OutcomeError
	outcome.Fees = buyFee
	outcome.Reason = domain.ErrCompensationFailed.Error() + ": " + cause.Error()
	e.ledger.RecordOutcome(outcome)
	log.Error("arbitrage compensation failed, position left open",
		slog.Float64("quantity", act.Quantity),
		slog.String("cause", cause.Error()),
	)
}
