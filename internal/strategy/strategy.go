// Package strategy holds the detectors. Each one inspects a single asset's
// depth snapshots plus a read-only view of the ledger and proposes at most
// one action per tick. Detectors never mutate state and never touch venues;
// acting on a proposal is the executor's job.
package strategy

import (
	"github.com/alanyoungcy/spotarb/internal/domain"
)

// ReadView is the slice of ledger state a detector may read. *ledger.Ledger
// satisfies it.
type ReadView interface {
	QuoteCurrency() string
	GetBalance(venue, currency string) float64
	GetFee(venue, asset string, isMaker bool) float64
	UnhedgedPosition(venue, asset string) float64
	CancelledStats(asset string) domain.CancelledStats
	HasRestingPair(asset, buyVenue, sellVenue string) bool
	CanRegisterResting(value float64) bool
}

// Input is one detection round's view of a single asset.
type Input struct {
	Asset  string
	Books  map[string]domain.DepthSnapshot // venue -> latest depth
	Venues []string                        // evaluation order; ties resolve to the earlier venue
	MinQty float64                         // per-trade quantity from MinQuantity
	Ledger ReadView
}

// Strategy proposes at most one action for the given input. Detect must be
// a pure read: same input and ledger state, same action.
type Strategy interface {
	Name() string
	Detect(in Input) domain.Action
}

// quote is one venue's top of book.
type quote struct {
	venue   string
	ask     float64
	askSize float64
	bid     float64
	bidSize float64
}

// validQuotes extracts the top of book per venue, in venue order. Venues
// with a missing book, an empty side, a non-positive price, or less than
// minQty on either side are dropped.
func validQuotes(in Input) []quote {
	quotes := make([]quote, 0, len(in.Venues))
	for _, venue := range in.Venues {
		book, ok := in.Books[venue]
		if !ok {
			continue
		}
		ask, okAsk := book.BestAsk()
		bid, okBid := book.BestBid()
		if !okAsk || !okBid {
			continue
		}
		if ask.Price <= 0 || bid.Price <= 0 {
			continue
		}
		if ask.Size < in.MinQty || bid.Size < in.MinQty {
			continue
		}
		quotes = append(quotes, quote{
			venue:   venue,
			ask:     ask.Price,
			askSize: ask.Size,
			bid:     bid.Price,
			bidSize: bid.Size,
		})
	}
	return quotes
}
