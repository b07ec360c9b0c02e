package ledger

import (
	"github.com/alanyoungcy/spotarb/internal/domain"
)

// RecordOutcome appends the outcome to the capped log and folds it into the
// global and per-kind aggregates. This is the only place aggregates change.
func (l *Ledger) RecordOutcome(outcome domain.TradeOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = l.now()
	}

	l.outcomes = append(l.outcomes, outcome)
	if len(l.outcomes) > l.outcomeCap {
		l.outcomes = l.outcomes[len(l.outcomes)-l.outcomeCap:]
	}

	l.stats.Observe(outcome)
	byKind, ok := l.statsByKind[outcome.Kind]
	if !ok {
		byKind = domain.NewOutcomeStats()
	}
	byKind.Observe(outcome)
	l.statsByKind[outcome.Kind] = byKind
}

// RecentOutcomes returns up to n outcomes, newest first.
func (l *Ledger) RecentOutcomes(n int) []domain.TradeOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.outcomes) {
		n = len(l.outcomes)
	}
	out := make([]domain.TradeOutcome, 0, n)
	for i := len(l.outcomes) - 1; i >= len(l.outcomes)-n; i-- {
		out = append(out, l.outcomes[i])
	}
	return out
}

// OutcomeCount returns the size of the in-memory outcome log.
func (l *Ledger) OutcomeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outcomes)
}

// Stats returns a copy of the global aggregate.
func (l *Ledger) Stats() domain.OutcomeStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// StatsByKind returns a copy of the per-kind aggregates.
func (l *Ledger) StatsByKind() map[domain.ActionKind]domain.OutcomeStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[domain.ActionKind]domain.OutcomeStats, len(l.statsByKind))
	for k, v := range l.statsByKind {
		out[k] = v
	}
	return out
}

// RecordCancelledOrder folds a timed-out resting order into the asset's
// cancelled statistics, bucketed by venue pair and orientation.
func (l *Ledger) RecordCancelledOrder(order domain.RestingOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cs := l.cancelled[order.Asset]
	if cs.Pairs == nil {
		cs.Pairs = make(map[string]domain.PairStats)
	}
	cs.Count++
	cs.Volume += order.Quantity
	cs.LastCancelledAt = l.now()

	key := order.PairKey()
	ps := cs.Pairs[key]
	ps.Count++
	ps.Volume += order.Quantity
	cs.Pairs[key] = ps

	if order.Orientation == domain.OrientReverse {
		cs.Reverse++
	} else {
		cs.Forward++
	}
	l.cancelled[order.Asset] = cs
}

// CancelledStats returns a copy of the asset's cancelled-order statistics.
func (l *Ledger) CancelledStats(asset string) domain.CancelledStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	cs := l.cancelled[asset]
	if cs.Pairs != nil {
		pairs := make(map[string]domain.PairStats, len(cs.Pairs))
		for k, v := range cs.Pairs {
			pairs[k] = v
		}
		cs.Pairs = pairs
	}
	return cs
}

// ResetCancelledStats clears the asset's cancelled-order statistics after a
// successful hedge.
func (l *Ledger) ResetCancelledStats(asset string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cancelled, asset)
}

// AllCancelledStats returns copies of every asset's cancelled statistics.
func (l *Ledger) AllCancelledStats() map[string]domain.CancelledStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]domain.CancelledStats, len(l.cancelled))
	for asset := range l.cancelled {
		cs := l.cancelled[asset]
		if cs.Pairs != nil {
			pairs := make(map[string]domain.PairStats, len(cs.Pairs))
			for k, v := range cs.Pairs {
				pairs[k] = v
			}
			cs.Pairs = pairs
		}
		out[asset] = cs
	}
	return out
}
