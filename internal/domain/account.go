package domain

import "time"

// Side indicates whether a trade buys or sells the asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// AccountSnapshot is a venue's balance view, keyed by currency.
type AccountSnapshot struct {
	Available map[string]float64
	Frozen    map[string]float64
}

// Total returns available+frozen for one currency.
func (a AccountSnapshot) Total(currency string) float64 {
	return a.Available[currency] + a.Frozen[currency]
}

// OrderStatus tracks a venue order's lifecycle.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderRef identifies an order placed at a venue.
type OrderRef struct {
	ID        string
	Venue     string
	Asset     string
	Side      Side
	Price     float64
	Quantity  float64
	CreatedAt time.Time
}

// OrderInfo is the venue's current view of a placed order.
type OrderInfo struct {
	OrderRef
	Status         OrderStatus
	FilledQuantity float64
	AvgPrice       float64
}
