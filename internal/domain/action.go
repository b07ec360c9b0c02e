package domain

// ActionKind labels the closed set of decisions a detector can emit.
type ActionKind string

const (
	KindArbitrage      ActionKind = "ARBITRAGE"
	KindBalance        ActionKind = "BALANCE"
	KindPendingTrade   ActionKind = "PENDING_TRADE"
	KindReversePending ActionKind = "REVERSE_PENDING"
	KindHedgeBuy       ActionKind = "HEDGE_BUY"
	KindHedgeSell      ActionKind = "HEDGE_SELL"
	KindNoTrade        ActionKind = "NO_TRADE"
)

// Action is the tagged union emitted by detectors and consumed by the
// executor. The variant set is closed: a type switch over it must not need
// a default case for unknown trades.
type Action interface {
	Kind() ActionKind
}

// ArbitrageAction is an immediate two-leg taker trade: buy at BuyVenue,
// sell at SellVenue.
type ArbitrageAction struct {
	Asset      string
	BuyVenue   string
	SellVenue  string
	BuyPrice   float64
	SellPrice  float64
	Quantity   float64
	ProfitRate float64 // fee-adjusted, relative to buy cost
}

func (ArbitrageAction) Kind() ActionKind { return KindArbitrage }

// BalanceAction moves inventory from an overweight venue to an underweight
// one: sell at FromVenue, buy back at ToVenue.
type BalanceAction struct {
	Asset     string
	FromVenue string
	ToVenue   string
	SellPrice float64 // best bid at FromVenue
	BuyPrice  float64 // best ask at ToVenue
	Quantity  float64
	Deviation float64 // source holding relative to the mean, (bal-avg)/avg
	Mandatory bool    // deviation beyond the hard cap
}

func (BalanceAction) Kind() ActionKind { return KindBalance }

// Orientation distinguishes the two resting-order layouts.
type Orientation string

const (
	OrientForward Orientation = "FORWARD" // buy leg funds first: freeze quote at BuyVenue
	OrientReverse Orientation = "REVERSE" // sell leg funds first: freeze asset at SellVenue
)

// RestingQuote asks for a resting order to be registered at maker prices.
type RestingQuote struct {
	Asset          string
	Orientation    Orientation
	BuyVenue       string
	SellVenue      string
	BuyPrice       float64 // already adjusted below market
	SellPrice      float64 // already adjusted above market
	Quantity       float64
	BuyFee         float64 // maker rate captured at detection
	SellFee        float64
	ExpectedProfit float64
}

func (q RestingQuote) Kind() ActionKind {
	if q.Orientation == OrientReverse {
		return KindReversePending
	}
	return KindPendingTrade
}

// HedgeAction is a single-leg trade that closes part of a position
// imbalance left behind by cancelled resting orders.
type HedgeAction struct {
	Asset    string
	Side     Side
	Venue    string
	Price    float64
	Quantity float64
}

func (h HedgeAction) Kind() ActionKind {
	if h.Side == SideSell {
		return KindHedgeSell
	}
	return KindHedgeBuy
}

// NoTrade reports that a detector declined to act this tick.
type NoTrade struct {
	Reason string
}

func (NoTrade) Kind() ActionKind { return KindNoTrade }
