package executor

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// executeBalance moves inventory by selling at the overweight venue and
// buying back at the underweight one. The buy leg is sized from the net sale
// proceeds so the move never spends more quote than the sale brought in.
// Both legs trade at fresh prices, which is why there is no drift abort:
// only an optional move that stopped paying gets dropped.
func (e *Executor) executeBalance(ctx context.Context, act domain.BalanceAction) {
	log := e.logger.With(
		slog.String("action", string(act.Kind())),
		slog.String("asset", act.Asset),
		slog.String("from_venue", act.FromVenue),
		slog.String("to_venue", act.ToVenue),
	)

	outcome := domain.TradeOutcome{
		ID:        newID(),
		Kind:      domain.KindBalance,
		Asset:     act.Asset,
		BuyVenue:  act.ToVenue,
		SellVenue: act.FromVenue,
		Quantity:  act.Quantity,
		BuyPrice:  act.BuyPrice,
		SellPrice: act.SellPrice,
		Status:    domain.OutcomeFailed,
	}
	abort := func(reason string) {
		outcome.Reason = reason
		e.ledger.RecordOutcome(outcome)
		log.Warn("rebalance aborted", slog.String("reason", reason))
	}

	// 1. Fresh books on both sides.
	books, err := e.depth.FetchPair(ctx, act.Asset, act.FromVenue, act.ToVenue)
	if err != nil {
		abort("depth refresh failed: " + err.Error())
		return
	}
	srcBid, okBid := books[act.FromVenue].BestBid()
	tgtAsk, okAsk := books[act.ToVenue].BestAsk()
	if !okBid || !okAsk {
		abort("book went one-sided on refresh")
		return
	}
	outcome.SellPrice, outcome.BuyPrice = srcBid.Price, tgtAsk.Price

	sellRate := e.ledger.GetFee(act.FromVenue, act.Asset, false)
	buyRate := e.ledger.GetFee(act.ToVenue, act.Asset, false)

	// 2. An optional move must still pay at the fresh prices. A mandatory
	// one runs regardless: leveling the books outranks the spread.
	if !act.Mandatory {
		net := (srcBid.Price-tgtAsk.Price)/tgtAsk.Price - (sellRate + buyRate)
		if net <= 0 {
			abort("rebalance spread gone on refresh")
			return
		}
	}

	// 3. The source must still hold what we are about to sell.
	if e.ledger.GetBalance(act.FromVenue, act.Asset) < act.Quantity {
		abort("insufficient inventory at source venue")
		return
	}

	// 4. Leg one: sell at the source.
	if err := e.fill(ctx, act.FromVenue, domain.SideSell, act.Asset, srcBid.Price, act.Quantity, sellRate); err != nil {
		abort("sell leg failed: " + err.Error())
		return
	}
	proceeds := srcBid.Price * act.Quantity
	sellFee := proceeds * sellRate
	netProceeds := proceeds - sellFee

	// 5. Leg two: buy at the target, sized so cost plus fee fits inside the
	// net proceeds. A failure buys the inventory back at the source.
	buyQty := netProceeds * (1 - buyRate) / tgtAsk.Price
	if err := e.fill(ctx, act.ToVenue, domain.SideBuy, act.Asset, tgtAsk.Price, buyQty, buyRate); err != nil {
		e.rollbackBalance(ctx, log, outcome, act, books[act.FromVenue], sellFee, netProceeds, sellRate, err)
		return
	}

	buyCost := tgtAsk.Price * buyQty
	buyFee := buyCost * buyRate
	outcome.Status = domain.OutcomeSuccess
	outcome.Fees = sellFee + buyFee
	outcome.Profit = netProceeds - buyCost - buyFee
	e.ledger.RecordOutcome(outcome)
	log.Info("rebalance executed",
		slog.Float64("sold", act.Quantity),
		slog.Float64("bought", buyQty),
		slog.Float64("deviation", act.Deviation),
		slog.Bool("mandatory", act.Mandatory),
	)
}

// rollbackBalance restores the sold inventory by buying it back at the
// source venue's current ask, paid from the sale proceeds just credited
// there. A rollback failure records ERROR: the asset left one venue and
// never landed on the other.
func (e *Executor) rollbackBalance(ctx context.Context, log *slog.Logger, outcome domain.TradeOutcome, act domain.BalanceAction, srcBook domain.DepthSnapshot, sellFee, netProceeds, sellRate float64, cause error) {
	if ask, ok := srcBook.BestAsk(); ok {
		if err := e.fill(ctx, act.FromVenue, domain.SideBuy, act.Asset, ask.Price, act.Quantity, sellRate); err == nil {
			rbCost := ask.Price * act.Quantity
			rbFee := rbCost * sellRate
			outcome.Status = domain.OutcomeFailed
			outcome.Fees = sellFee + rbFee
			outcome.Profit = netProceeds - rbCost - rbFee
			outcome.Reason = "buy leg failed, inventory bought back: " + cause.Error()
			e.ledger.RecordOutcome(outcome)
			log.Warn("rebalance rolled back",
				slog.Float64("loss", outcome.Profit),
				slog.String("cause", cause.Error()),
			)
			return
		}
	}
	outcome.Status = domain.OutcomeError
	outcome.Fees = sellFee
	outcome.Reason = domain.ErrCompensationFailed.Error() + ": " + cause.Error()
	e.ledger.RecordOutcome(outcome)
	log.Error("rebalance rollback failed, inventory displaced",
		slog.Float64("quantity", act.Quantity),
		slog.String("cause", cause.Error()),
	)
}
