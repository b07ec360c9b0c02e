package domain

import (
	"math"
	"time"
)

// VenueBalances is one venue's sanitized balance view inside a report.
type VenueBalances struct {
	Available map[string]float64 `json:"available"`
	Frozen    map[string]float64 `json:"frozen"`
}

// StatusReport is the externally visible snapshot of the whole system.
// Every float in it has passed Sanitize: JSON encoders and UI consumers
// never see NaN or Inf.
type StatusReport struct {
	GeneratedAt     time.Time                   `json:"generated_at"`
	QuoteCurrency   string                      `json:"quote_currency"`
	InitialBalance  float64                     `json:"initial_balance"`
	QuoteBalance    float64                     `json:"quote_balance"`
	TotalAssetValue float64                     `json:"total_asset_value"`
	Profit          float64                     `json:"profit"`
	ProfitRate      float64                     `json:"profit_rate"`
	Venues          map[string]VenueBalances    `json:"venues"`
	RestingOrders   []RestingOrder              `json:"resting_orders"`
	RecentOutcomes  []TradeOutcome              `json:"recent_outcomes"`
	Stats           OutcomeStats                `json:"stats"`
	StatsByKind     map[ActionKind]OutcomeStats `json:"stats_by_kind"`
	Cancelled       map[string]CancelledStats   `json:"cancelled"`
}

// Sanitize maps NaN and ±Inf to 0 so a report is always encodable.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SanitizeStats sanitizes the float fields of one aggregate.
func SanitizeStats(s OutcomeStats) OutcomeStats {
	s.Volume = Sanitize(s.Volume)
	s.Profit = Sanitize(s.Profit)
	s.Fees = Sanitize(s.Fees)
	s.MaxProfit = Sanitize(s.MaxProfit)
	s.MaxLoss = Sanitize(s.MaxLoss)
	return s
}

// SanitizeReport sanitizes every float field of a report in place and
// returns it.
func SanitizeReport(r StatusReport) StatusReport {
	r.InitialBalance = Sanitize(r.InitialBalance)
	r.QuoteBalance = Sanitize(r.QuoteBalance)
	r.TotalAssetValue = Sanitize(r.TotalAssetValue)
	r.Profit = Sanitize(r.Profit)
	r.ProfitRate = Sanitize(r.ProfitRate)
	for name, vb := range r.Venues {
		for cur, v := range vb.Available {
			vb.Available[cur] = Sanitize(v)
		}
		for cur, v := range vb.Frozen {
			vb.Frozen[cur] = Sanitize(v)
		}
		r.Venues[name] = vb
	}
	r.Stats = SanitizeStats(r.Stats)
	for k, s := range r.StatsByKind {
		r.StatsByKind[k] = SanitizeStats(s)
	}
	return r
}
