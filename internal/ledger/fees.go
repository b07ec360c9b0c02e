package ledger

import "github.com/alanyoungcy/spotarb/internal/domain"

// feeWildcard marks a venue-wide fee entry.
const feeWildcard = "*"

// SetFee stores the fee rates for venue+asset. An empty or "*" asset sets
// the venue-wide default consulted when no asset-specific entry exists.
func (l *Ledger) SetFee(venue, asset string, rates domain.FeeRates) {
	if asset == "" {
		asset = feeWildcard
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fees[feeKey(venue, asset)] = rates
}

// GetFee resolves a fee rate through the fallback chain: asset-specific
// entry, then the venue default entry, then the built-in default. The venue
// default entry is preloaded from the venue itself at startup, so the chain
// covers configured overrides, venue-published rates and the last-resort
// constant.
func (l *Ledger) GetFee(venue, asset string, isMaker bool) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rates, ok := l.fees[feeKey(venue, asset)]; ok {
		return pick(rates, isMaker)
	}
	if rates, ok := l.fees[feeKey(venue, feeWildcard)]; ok {
		return pick(rates, isMaker)
	}
	return l.defaultFee
}

// FeeTable returns a copy of every stored fee entry, keyed "venue|asset".
// The engine persists it to the data directory.
func (l *Ledger) FeeTable() map[string]domain.FeeRates {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]domain.FeeRates, len(l.fees))
	for k, v := range l.fees {
		out[k] = v
	}
	return out
}

func feeKey(venue, asset string) string { return venue + "|" + asset }

func pick(rates domain.FeeRates, isMaker bool) float64 {
	if isMaker {
		return rates.Maker
	}
	return rates.Taker
}
