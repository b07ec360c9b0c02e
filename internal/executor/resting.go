package executor

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// leg is one side of a resting fill, in execution order.
type leg struct {
	venue string
	side  domain.Side
	price float64
	rate  float64
}

// createResting registers a maker quote as a resting order. The first leg's
// funding is frozen for the order's whole lifetime: quote currency at the
// buy venue for a forward order, asset inventory at the sell venue for a
// reverse one. Registration records a PENDING outcome; from then on the
// order belongs to ProcessPending, which triggers or expires it.
func (e *Executor) createResting(ctx context.Context, act domain.RestingQuote) {
	log := e.logger.With(
		slog.String("action", string(act.Kind())),
		slog.String("asset", act.Asset),
		slog.String("buy_venue", act.BuyVenue),
		slog.String("sell_venue", act.SellVenue),
	)

	outcome := domain.TradeOutcome{
		ID:        newID(),
		Kind:      act.Kind(),
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
		log.Warn("resting order rejected", slog.String("reason", reason))
	}

	if act.Quantity < e.cfg.MinAmount {
		abort("quantity below minimum")
		return
	}
	if act.ExpectedProfit < e.cfg.RestingProfit {
		abort("expected profit below floor")
		return
	}

	// Both orientations end with a buy at the buy venue, so the quote
	// funding there is checked up front either way.
	cost := act.BuyPrice * act.Quantity
	buyFee := cost * act.BuyFee
	if e.ledger.GetBalance(act.BuyVenue, e.ledger.QuoteCurrency()) < cost+buyFee {
		abort("insufficient quote at buy venue")
		return
	}
	if e.ledger.HasRestingPair(act.Asset, act.BuyVenue, act.SellVenue) {
		abort("venue pair already quoted")
		return
	}

	order := domain.RestingOrder{
		ID:             newID(),
		Asset:          act.Asset,
		Orientation:    act.Orientation,
		BuyVenue:       act.BuyVenue,
		SellVenue:      act.SellVenue,
		BuyPrice:       act.BuyPrice,
		SellPrice:      act.SellPrice,
		Quantity:       act.Quantity,
		BuyFee:         act.BuyFee,
		SellFee:        act.SellFee,
		ExpectedProfit: act.ExpectedProfit,
		Status:         domain.RestingPending,
		CreatedAt:      e.now(),
	}

	fv, fc, fa := e.restingFreeze(order)
	if !e.ledger.Freeze(fv, fc, fa) {
		abort("cannot freeze first-leg funding")
		return
	}
	if err := e.ledger.AddRestingOrder(order); err != nil {
		e.ledger.Unfreeze(fv, fc, fa)
		abort("registry rejected order: " + err.Error())
		return
	}

	outcome.Status = domain.OutcomePending
	e.ledger.RecordOutcome(outcome)
	log.Info("resting order created",
		slog.String("order_id", order.ID),
		slog.String("orientation", string(order.Orientation)),
		slog.Float64("buy_price", order.BuyPrice),
		slog.Float64("sell_price", order.SellPrice),
		slog.Float64("quantity", order.Quantity),
		slog.Float64("expected_profit", order.ExpectedProfit),
		slog.Float64("frozen", fa),
	)
}

// restingFreeze returns where the order's first-leg funding sits and how
// much of it there is. Creation, trigger and cancellation all use the same
// numbers, so the freeze is released exactly once and in full.
func (e *Executor) restingFreeze(order domain.RestingOrder) (venue, currency string, amount float64) {
	if order.Orientation == domain.OrientReverse {
		return order.SellVenue, order.Asset, order.Quantity
	}
	cost := order.BuyPrice * order.Quantity
	return order.BuyVenue, e.ledger.QuoteCurrency(), cost + cost*order.BuyFee
}

// ProcessPending re-evaluates every resting order against fresh depth, in
// creation order. Crossed quotes trigger the two-leg fill, expired orders
// are cancelled, everything else keeps waiting. The engine runs it once per
// tick before detection, so fills land ahead of new proposals.
func (e *Executor) ProcessPending(ctx context.Context) {
	for _, order := range e.ledger.RestingOrders() {
		e.processOrder(ctx, order)
	}
}

func (e *Executor) processOrder(ctx context.Context, order domain.RestingOrder) {
	log := e.logger.With(
		slog.String("order_id", order.ID),
		slog.String("asset", order.Asset),
		slog.String("buy_venue", order.BuyVenue),
		slog.String("sell_venue", order.SellVenue),
	)

	books, err := e.depth.FetchPair(ctx, order.Asset, order.BuyVenue, order.SellVenue)
	executable := false
	var askPrice, bidPrice float64
	if err != nil {
		log.Warn("depth refresh failed for resting order", slog.String("error", err.Error()))
	} else {
		ask, okAsk := books[order.BuyVenue].BestAsk()
		bid, okBid := books[order.SellVenue].BestBid()
		if okAsk && okBid {
			askPrice, bidPrice = ask.Price, bid.Price
			if order.Orientation == domain.OrientReverse {
				// A reverse quote fires when the market moves back through it.
				executable = askPrice >= order.BuyPrice && bidPrice <= order.SellPrice
			} else {
				executable = askPrice <= order.BuyPrice && bidPrice >= order.SellPrice
			}
		}
	}

	if executable {
		e.triggerResting(ctx, log, order, books, askPrice, bidPrice)
		return
	}
	if e.now().Sub(order.CreatedAt) > e.cfg.OrderTimeout {
		fv, fc, fa := e.restingFreeze(order)
		e.ledger.Unfreeze(fv, fc, fa)
		e.cancelResting(log, order, "order timed out after "+e.cfg.OrderTimeout.String())
	}
}

// triggerResting fills a crossed quote as a two-leg taker trade at the
// current prices. Drift past tolerance or an edge that taker fees eat abort
// before anything moves and leave the order waiting for another tick. Once
// the funding is released the order is terminal whatever the legs do.
func (e *Executor) triggerResting(ctx context.Context, log *slog.Logger, order domain.RestingOrder, books map[string]domain.DepthSnapshot, askPrice, bidPrice float64) {
	if drift(askPrice, order.BuyPrice) > e.cfg.TriggerDrift || drift(bidPrice, order.SellPrice) > e.cfg.TriggerDrift {
		log.Debug("trigger skipped, price drifted past tolerance",
			slog.Float64("ask", askPrice),
			slog.Float64("bid", bidPrice),
		)
		return
	}

	// The quotes were placed at maker rates; the fill happens now, at taker
	// rates and current prices, so the edge is rechecked on those terms.
	buyRate := e.ledger.GetFee(order.BuyVenue, order.Asset, false)
	sellRate := e.ledger.GetFee(order.SellVenue, order.Asset, false)
	cost := askPrice * order.Quantity
	buyFee := cost * buyRate
	revenue := bidPrice * order.Quantity
	sellFee := revenue * sellRate
	profit := revenue - sellFee - cost - buyFee
	if profit <= 0 {
		log.Debug("trigger skipped, no taker profit at current prices", slog.Float64("profit", profit))
		return
	}

	outcome := domain.TradeOutcome{
		ID:        newID(),
		Kind:      order.Kind(),
		Asset:     order.Asset,
		BuyVenue:  order.BuyVenue,
		SellVenue: order.SellVenue,
		Quantity:  order.Quantity,
		BuyPrice:  askPrice,
		SellPrice: bidPrice,
		Status:    domain.OutcomeFailed,
	}

	first := leg{venue: order.BuyVenue, side: domain.SideBuy, price: askPrice, rate: buyRate}
	second := leg{venue: order.SellVenue, side: domain.SideSell, price: bidPrice, rate: sellRate}
	if order.Orientation == domain.OrientReverse {
		first, second = second, first
	}

	fv, fc, fa := e.restingFreeze(order)
	e.ledger.Unfreeze(fv, fc, fa)

	if err := e.fill(ctx, first.venue, first.side, order.Asset, first.price, order.Quantity, first.rate); err != nil {
		// Funding is released and nothing filled; retire the order the way a
		// timeout would, minus the unfreeze that already happened.
		e.cancelResting(log, order, "first leg failed at trigger: "+err.Error())
		return
	}
	if err := e.fill(ctx, second.venue, second.side, order.Asset, second.price, order.Quantity, second.rate); err != nil {
		e.compensateResting(ctx, log, outcome, order, first, books, err)
		return
	}

	e.ledger.RemoveRestingOrder(order.ID)
	outcome.Status = domain.OutcomeExecuted
	outcome.Fees = buyFee + sellFee
	outcome.Profit = profit
	e.ledger.RecordOutcome(outcome)
	log.Info("resting order executed",
		slog.String("orientation", string(order.Orientation)),
		slog.Float64("buy_price", askPrice),
		slog.Float64("sell_price", bidPrice),
		slog.Float64("quantity", order.Quantity),
		slog.Float64("profit", profit),
	)
}

// compensateResting reverses a filled first leg after the second failed: a
// bought position is sold back at the buy venue's bid, a sold position is
// bought back at the sell venue's ask. Success retires the order as FAILED
// with the realized loss; another failure records ERROR and leaves the books
// for manual review.
func (e *Executor) compensateResting(ctx context.Context, log *slog.Logger, outcome domain.TradeOutcome, order domain.RestingOrder, first leg, books map[string]domain.DepthSnapshot, cause error) {
	e.ledger.RemoveRestingOrder(order.ID)

	filled := first.price * order.Quantity
	firstFee := filled * first.rate

	compSide := domain.SideSell
	level, ok := books[first.venue].BestBid()
	if first.side == domain.SideSell {
		compSide = domain.SideBuy
		level, ok = books[first.venue].BestAsk()
	}
	if ok {
		if err := e.fill(ctx, first.venue, compSide, order.Asset, level.Price, order.Quantity, first.rate); err == nil {
			back := level.Price * order.Quantity
			compFee := back * first.rate
			loss := back - compFee - filled - firstFee
			if compSide == domain.SideBuy {
				loss = filled - firstFee - back - compFee
			}
			outcome.Status = domain.OutcomeFailed
			outcome.Fees = firstFee + compFee
			outcome.Profit = loss
			outcome.Reason = "second leg failed, first leg reversed: " + cause.Error()
			e.ledger.RecordOutcome(outcome)
			log.Warn("resting fill compensated",
				slog.Float64("loss", loss),
				slog.String("cause", cause.Error()),
			)
			return
		}
	}
	outcome.Status = domain.OutcomeError
	outcome.Fees = firstFee
	outcome.Reason = domain.ErrCompensationFailed.Error() + ": " + cause.Error()
	e.ledger.RecordOutcome(outcome)
	log.Error("resting compensation failed, position left open",
		slog.Float64("quantity", order.Quantity),
		slog.String("cause", cause.Error()),
	)
}

// cancelResting retires an order that will not fill: it leaves the registry,
// a CANCELLED outcome is recorded and the asset's cancelled statistics grow
// by its volume, which is what the hedge scan watches. The caller has
// already released the frozen funding.
func (e *Executor) cancelResting(log *slog.Logger, order domain.RestingOrder, reason string) {
	e.ledger.RemoveRestingOrder(order.ID)
	e.ledger.RecordCancelledOrder(order)
	e.ledger.RecordOutcome(domain.TradeOutcome{
		ID:        newID(),
		Kind:      order.Kind(),
		Asset:     order.Asset,
		BuyVenue:  order.BuyVenue,
		SellVenue: order.SellVenue,
		Quantity:  order.Quantity,
		BuyPrice:  order.BuyPrice,
		SellPrice: order.SellPrice,
		Status:    domain.OutcomeCancelled,
		Reason:    reason,
	})
	log.Info("resting order cancelled", slog.String("reason", reason))
}
