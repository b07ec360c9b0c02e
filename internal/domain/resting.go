package domain

import "time"

// RestingStatus tracks the resting-order state machine. PENDING is the only
// non-terminal state.
type RestingStatus string

const (
	RestingPending   RestingStatus = "PENDING"
	RestingExecuted  RestingStatus = "EXECUTED"
	RestingCancelled RestingStatus = "CANCELLED"
)

// RestingOrder is a two-leg maker quote waiting for the market to cross it.
// Funding for the first leg is frozen while the order is PENDING and
// released exactly once, on execution or cancellation.
type RestingOrder struct {
	ID             string        `json:"id"` // UUID
	Asset          string        `json:"asset"`
	Orientation    Orientation   `json:"orientation"`
	BuyVenue       string        `json:"buy_venue"`
	SellVenue      string        `json:"sell_venue"`
	BuyPrice       float64       `json:"buy_price"`
	SellPrice      float64       `json:"sell_price"`
	Quantity       float64       `json:"quantity"`
	BuyFee         float64       `json:"buy_fee"` // maker rate at creation
	SellFee        float64       `json:"sell_fee"`
	ExpectedProfit float64       `json:"expected_profit"`
	Status         RestingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Value returns the quote notional the order ties up.
func (o RestingOrder) Value() float64 {
	return o.BuyPrice * o.Quantity
}

// PairKey is the "buy->sell" venue-pair label used for cancelled-order
// bookkeeping.
func (o RestingOrder) PairKey() string {
	return o.BuyVenue + "->" + o.SellVenue
}

// Kind maps the order's orientation to the outcome kind its fills and
// cancellations are recorded under.
func (o RestingOrder) Kind() ActionKind {
	if o.Orientation == OrientReverse {
		return KindReversePending
	}
	return KindPendingTrade
}
