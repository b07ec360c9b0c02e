package strategy

import (
	"math"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// AmountConfig sizes the per-trade quantity computed by MinQuantity.
type AmountConfig struct {
	SafeAmount         float64 // target quote notional per trade
	MinAmount          float64 // hard floor on the quantity
	MarketImpactFactor float64 // fraction of top-3 depth a trade may take
	BalanceCapFactor   float64 // fraction of the tightest funding a trade may use
}

// MinQuantity derives the per-trade quantity for one asset: the quantity
// that puts roughly SafeAmount of quote to work at the first quoted ask,
// shrunk to respect book depth and the tightest venue's funding, and never
// below MinAmount. Venues are priced in order; the first with a live ask
// sets the reference price.
func MinQuantity(asset string, books map[string]domain.DepthSnapshot, venues []string, view ReadView, cfg AmountConfig) float64 {
	var price float64
	for _, venue := range venues {
		book, ok := books[venue]
		if !ok {
			continue
		}
		if ask, ok := book.BestAsk(); ok && ask.Price > 0 {
			price = ask.Price
			break
		}
	}
	if price <= 0 {
		return cfg.MinAmount
	}

	qty := math.Max(cfg.SafeAmount/price, cfg.MinAmount)

	// Cap at a fraction of the thinnest venue's top-3 depth, both sides.
	depthCap := math.Inf(1)
	for _, venue := range venues {
		book, ok := books[venue]
		if !ok {
			continue
		}
		side := math.Min(domain.TopSize(book.Asks, 3), domain.TopSize(book.Bids, 3)) * cfg.MarketImpactFactor
		if side > 0 && side < depthCap {
			depthCap = side
		}
	}
	if depthCap < qty {
		qty = math.Max(depthCap, cfg.MinAmount)
	}

	// Cap at a fraction of the tightest venue's funding: the asset balance
	// for selling, the quote balance at the reference price for buying.
	quoteCur := view.QuoteCurrency()
	minAvail := math.Inf(1)
	for _, venue := range venues {
		if _, ok := books[venue]; !ok {
			continue
		}
		avail := math.Min(view.GetBalance(venue, asset), view.GetBalance(venue, quoteCur)/price)
		if avail < minAvail {
			minAvail = avail
		}
	}
	if minAvail > 0 && minAvail < qty {
		qty = math.Max(minAvail*cfg.BalanceCapFactor, cfg.MinAmount)
	}
	return qty
}
