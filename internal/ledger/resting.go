package ledger

import (
	"fmt"
	"sort"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// AddRestingOrder registers a pending order, enforcing the count and total
// notional caps.
func (l *Ledger) AddRestingOrder(order domain.RestingOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.resting) >= l.maxRestingCount && l.maxRestingCount > 0 {
		return fmt.Errorf("ledger: %d resting orders already open: %w", len(l.resting), domain.ErrTooManyOrders)
	}
	if l.maxRestingValue > 0 {
		total := order.Value()
		for _, o := range l.resting {
			total += o.Value()
		}
		if total > l.maxRestingValue {
			return fmt.Errorf("ledger: resting notional %.2f exceeds cap %.2f: %w", total, l.maxRestingValue, domain.ErrTooManyOrders)
		}
	}
	l.resting[order.ID] = order
	return nil
}

// CanRegisterResting reports whether one more order of the given notional
// would fit under the count and value caps. Advisory: AddRestingOrder still
// enforces the caps at registration time.
func (l *Ledger) CanRegisterResting(value float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxRestingCount > 0 && len(l.resting) >= l.maxRestingCount {
		return false
	}
	if l.maxRestingValue > 0 {
		total := value
		for _, o := range l.resting {
			total += o.Value()
		}
		if total > l.maxRestingValue {
			return false
		}
	}
	return true
}

// RemoveRestingOrder drops the order from the active registry. Terminal
// transitions (EXECUTED, CANCELLED) remove rather than keep the order.
func (l *Ledger) RemoveRestingOrder(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.resting, id)
}

// RestingOrder returns one active order by id.
func (l *Ledger) RestingOrder(id string) (domain.RestingOrder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.resting[id]
	return o, ok
}

// RestingOrders returns every active order, oldest first.
func (l *Ledger) RestingOrders() []domain.RestingOrder {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.RestingOrder, 0, len(l.resting))
	for _, o := range l.resting {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// RestingOrdersByAsset returns the asset's active orders, oldest first.
func (l *Ledger) RestingOrdersByAsset(asset string) []domain.RestingOrder {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.RestingOrder
	for _, o := range l.resting {
		if o.Asset == asset {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// HasPendingOrder reports whether the asset has any active resting order.
// While it does, new detection for the asset is suppressed.
func (l *Ledger) HasPendingOrder(asset string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range l.resting {
		if o.Asset == asset {
			return true
		}
	}
	return false
}

// HasRestingPair reports whether an active order already quotes the same
// venue pair for the asset.
func (l *Ledger) HasRestingPair(asset, buyVenue, sellVenue string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range l.resting {
		if o.Asset == asset && o.BuyVenue == buyVenue && o.SellVenue == sellVenue {
			return true
		}
	}
	return false
}

// RestingCount returns the number of active orders.
func (l *Ledger) RestingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.resting)
}
