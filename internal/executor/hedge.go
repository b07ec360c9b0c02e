package executor

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// executeHedge closes part of a cross-venue position gap with one taker leg
// at the acting venue's fresh book. A fill resets the asset's cancelled-order
// stats so the hedge detector does not fire again on the same debt.
func (e *Executor) executeHedge(ctx context.Context, act domain.HedgeAction) {
	log := e.logger.With(
		slog.String("action", string(act.Kind())),
		slog.String("asset", act.Asset),
		slog.String("venue", act.Venue),
	)

	outcome := domain.TradeOutcome{
		ID:       newID(),
		Kind:     act.Kind(),
		Asset:    act.Asset,
		Quantity: act.Quantity,
		Status:   domain.OutcomeFailed,
	}
	if act.Side == domain.SideBuy {
		outcome.BuyVenue = act.Venue
		outcome.BuyPrice = act.Price
	} else {
		outcome.SellVenue = act.Venue
		outcome.SellPrice = act.Price
	}
	abort := func(reason string) {
		outcome.Reason = reason
		e.ledger.RecordOutcome(outcome)
		log.Warn("hedge aborted", slog.String("reason", reason))
	}

	books, err := e.depth.FetchPair(ctx, act.Asset, act.Venue, "")
	if err != nil {
		abort("depth refresh failed: " + err.Error())
		return
	}
	rate := e.ledger.GetFee(act.Venue, act.Asset, false)

	var price, fee float64
	if act.Side == domain.SideBuy {
		ask, ok := books[act.Venue].BestAsk()
		if !ok {
			abort("no ask to hedge against")
			return
		}
		price = ask.Price
		outcome.BuyPrice = price
		cost := price * act.Quantity
		fee = cost * rate
		if e.ledger.GetBalance(act.Venue, e.ledger.QuoteCurrency()) < cost+fee {
			abort("insufficient quote for hedge buy")
			return
		}
	} else {
		bid, ok := books[act.Venue].BestBid()
		if !ok {
			abort("no bid to hedge against")
			return
		}
		price = bid.Price
		outcome.SellPrice = price
		fee = price * act.Quantity * rate
		if e.ledger.GetBalance(act.Venue, act.Asset) < act.Quantity {
			abort("insufficient inventory for hedge sell")
			return
		}
	}

	if err := e.fill(ctx, act.Venue, act.Side, act.Asset, price, act.Quantity, rate); err != nil {
		abort("hedge leg failed: " + err.Error())
		return
	}

	e.ledger.ResetCancelledStats(act.Asset)
	outcome.Status = domain.OutcomeSuccess
	outcome.Fees = fee
	e.ledger.RecordOutcome(outcome)
	log.Info("hedge executed",
		slog.String("side", string(act.Side)),
		slog.Float64("price", price),
		slog.Float64("quantity", act.Quantity),
	)
}
