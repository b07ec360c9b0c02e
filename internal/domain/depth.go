package domain

import "time"

// PriceLevel is a single price+size entry in a depth snapshot.
type PriceLevel struct {
	Price float64
	Size  float64
}

// DepthSnapshot is a point-in-time view of one venue's book for an asset.
// Asks are sorted ascending, bids descending. An empty side means no
// liquidity, not an error.
type DepthSnapshot struct {
	Venue      string
	Asset      string
	Asks       []PriceLevel
	Bids       []PriceLevel
	CapturedAt time.Time
}

// BestAsk returns the lowest ask, or zero when the side is empty.
func (d DepthSnapshot) BestAsk() (PriceLevel, bool) {
	if len(d.Asks) == 0 {
		return PriceLevel{}, false
	}
	return d.Asks[0], true
}

// BestBid returns the highest bid, or zero when the side is empty.
func (d DepthSnapshot) BestBid() (PriceLevel, bool) {
	if len(d.Bids) == 0 {
		return PriceLevel{}, false
	}
	return d.Bids[0], true
}

// MidPrice returns (bestAsk+bestBid)/2 and false when either side is empty.
func (d DepthSnapshot) MidPrice() (float64, bool) {
	ask, okA := d.BestAsk()
	bid, okB := d.BestBid()
	if !okA || !okB {
		return 0, false
	}
	return (ask.Price + bid.Price) / 2, true
}

// Validate rejects malformed snapshots: negative prices or sizes, asks out
// of ascending order, bids out of descending order.
func (d DepthSnapshot) Validate() error {
	for i, lv := range d.Asks {
		if lv.Price < 0 || lv.Size < 0 {
			return ErrInvalidDepth
		}
		if i > 0 && lv.Price < d.Asks[i-1].Price {
			return ErrInvalidDepth
		}
	}
	for i, lv := range d.Bids {
		if lv.Price < 0 || lv.Size < 0 {
			return ErrInvalidDepth
		}
		if i > 0 && lv.Price > d.Bids[i-1].Price {
			return ErrInvalidDepth
		}
	}
	return nil
}

// TopSize returns the cumulative size of the first n levels on one side.
func TopSize(levels []PriceLevel, n int) float64 {
	var total float64
	for i, lv := range levels {
		if i >= n {
			break
		}
		total += lv.Size
	}
	return total
}

// FeeRates carries the maker and taker fee rates for one venue+asset.
type FeeRates struct {
	Maker float64
	Taker float64
}
