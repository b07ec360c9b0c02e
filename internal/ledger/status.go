package ledger

import (
	"github.com/alanyoungcy/spotarb/internal/domain"
)

// Status assembles the externally visible snapshot. Asset positions are
// valued at the supplied consensus prices; assets with no price contribute
// zero. Every float in the report is sanitized before it leaves the ledger.
func (l *Ledger) Status(prices map[string]float64, recentN int) domain.StatusReport {
	resting := l.RestingOrders()
	recent := l.RecentOutcomes(recentN)
	cancelled := l.AllCancelledStats()
	statsByKind := l.StatsByKind()

	l.mu.Lock()
	defer l.mu.Unlock()

	report := domain.StatusReport{
		GeneratedAt:    l.now(),
		QuoteCurrency:  l.quote,
		InitialBalance: l.initialBalance,
		Venues:         make(map[string]domain.VenueBalances, len(l.venues)),
		RestingOrders:  resting,
		RecentOutcomes: recent,
		Stats:          l.stats,
		StatsByKind:    statsByKind,
		Cancelled:      cancelled,
	}

	var quoteTotal, assetValue float64
	for _, v := range l.venues {
		vb := domain.VenueBalances{
			Available: make(map[string]float64, len(l.available[v])),
			Frozen:    make(map[string]float64, len(l.frozen[v])),
		}
		for cur, amt := range l.available[v] {
			vb.Available[cur] = amt
			if cur == l.quote {
				quoteTotal += amt
			} else {
				assetValue += amt * prices[cur]
			}
		}
		for cur, amt := range l.frozen[v] {
			vb.Frozen[cur] = amt
			if cur == l.quote {
				quoteTotal += amt
			} else {
				assetValue += amt * prices[cur]
			}
		}
		report.Venues[v] = vb
	}

	report.QuoteBalance = quoteTotal
	report.TotalAssetValue = assetValue
	report.Profit = quoteTotal + assetValue - l.initialBalance
	if l.initialBalance > 0 {
		report.ProfitRate = report.Profit / l.initialBalance
	}

	return domain.SanitizeReport(report)
}
