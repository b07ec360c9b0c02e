package domain

import (
	"math"
	"time"
)

// OutcomeStatus is the terminal (or pending) state of one trade attempt.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "SUCCESS"
	OutcomeFailed    OutcomeStatus = "FAILED"    // aborted pre-trade or rolled back cleanly
	OutcomeError     OutcomeStatus = "ERROR"     // rollback failed, books need manual review
	OutcomeCancelled OutcomeStatus = "CANCELLED" // resting order timed out
	OutcomePending   OutcomeStatus = "PENDING"   // resting order registered
	OutcomeExecuted  OutcomeStatus = "EXECUTED"  // resting order leg filled
)

// IsSuccessful reports whether the attempt completed with intended fills.
func (s OutcomeStatus) IsSuccessful() bool {
	return s == OutcomeSuccess || s == OutcomeExecuted
}

// IsFailed reports whether the attempt ended without the intended fills.
func (s OutcomeStatus) IsFailed() bool {
	return s == OutcomeFailed || s == OutcomeError || s == OutcomeCancelled
}

// TradeOutcome is the record of exactly one execution attempt. Every attempt
// produces exactly one outcome, whatever its status.
type TradeOutcome struct {
	ID        string        `json:"id"` // UUID
	Kind      ActionKind    `json:"kind"`
	Asset     string        `json:"asset"`
	BuyVenue  string        `json:"buy_venue"`
	SellVenue string        `json:"sell_venue"`
	Quantity  float64       `json:"quantity"`
	BuyPrice  float64       `json:"buy_price"`
	SellPrice float64       `json:"sell_price"`
	Fees      float64       `json:"fees"`   // total quote-denominated fees paid
	Profit    float64       `json:"profit"` // realized, net of fees; zero for non-filled statuses
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Notional returns the quote value of the attempt for volume accounting.
func (o TradeOutcome) Notional() float64 {
	price := o.BuyPrice
	if price == 0 {
		price = o.SellPrice
	}
	return o.Quantity * price
}

// OutcomeStats aggregates outcomes, globally or per action kind.
// MaxProfit/MaxLoss start at -Inf/+Inf and are sanitized at the status
// boundary when untouched.
type OutcomeStats struct {
	Trades    int     `json:"trades"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
	Volume    float64 `json:"volume"`
	Profit    float64 `json:"profit"`
	Fees      float64 `json:"fees"`
	MaxProfit float64 `json:"max_profit"`
	MaxLoss   float64 `json:"max_loss"`
}

// NewOutcomeStats returns a zero aggregate with sentinel extrema.
func NewOutcomeStats() OutcomeStats {
	return OutcomeStats{MaxProfit: math.Inf(-1), MaxLoss: math.Inf(1)}
}

// Observe folds one outcome into the aggregate.
func (s *OutcomeStats) Observe(o TradeOutcome) {
	s.Trades++
	s.Volume += o.Notional()
	s.Fees += o.Fees
	switch {
	case o.Status.IsSuccessful():
		s.Successes++
		s.Profit += o.Profit
		if o.Profit > 0 && o.Profit > s.MaxProfit {
			s.MaxProfit = o.Profit
		}
		if o.Profit < 0 && o.Profit < s.MaxLoss {
			s.MaxLoss = o.Profit
		}
	case o.Status.IsFailed():
		s.Failures++
	}
}

// SuccessRate returns successes/trades, zero when empty.
func (s OutcomeStats) SuccessRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Trades)
}

// PairStats counts cancelled resting orders for one venue pair.
type PairStats struct {
	Count  int     `json:"count"`
	Volume float64 `json:"volume"`
}

// CancelledStats tracks cancelled resting orders per asset. It feeds the
// hedge detector and is reset after a successful hedge.
type CancelledStats struct {
	Count           int                  `json:"count"`
	Volume          float64              `json:"volume"`
	Pairs           map[string]PairStats `json:"pairs,omitempty"` // key "buy->sell"
	Forward         int                  `json:"forward"`
	Reverse         int                  `json:"reverse"`
	LastCancelledAt time.Time            `json:"last_cancelled_at"`
}

// HeaviestPair returns the venue pair with the most cancelled volume.
// Ties break on the lexically smaller key so the result does not depend on
// map iteration order.
func (c CancelledStats) HeaviestPair() (string, PairStats, bool) {
	var (
		bestKey string
		best    PairStats
		found   bool
	)
	for key, ps := range c.Pairs {
		switch {
		case !found, ps.Volume > best.Volume:
			bestKey, best, found = key, ps, true
		case ps.Volume == best.Volume && key < bestKey:
			bestKey, best = key, ps
		}
	}
	return bestKey, best, found
}
