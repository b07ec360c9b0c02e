// Package venue defines the capability surface the engine requires from a
// trading venue, and a small ordered registry of configured venues.
package venue

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// Venue is the minimal surface a trading venue must provide. Implementations
// must be safe for concurrent use: depth fetches fan out across venues.
type Venue interface {
	// Name returns the stable identifier used in config, ledger keys and logs.
	Name() string
	// Label returns the human-readable display name.
	Label() string

	GetDepth(ctx context.Context, asset string) (domain.DepthSnapshot, error)
	GetAccount(ctx context.Context) (domain.AccountSnapshot, error)

	Buy(ctx context.Context, asset string, price, quantity float64) (domain.OrderRef, error)
	Sell(ctx context.Context, asset string, price, quantity float64) (domain.OrderRef, error)
	CancelOrder(ctx context.Context, asset, orderID string) (bool, error)
	GetOrder(ctx context.Context, asset, orderID string) (domain.OrderInfo, error)
	GetOrders(ctx context.Context, asset string) ([]domain.OrderInfo, error)

	// GetFee returns the venue's own default fee rate for the asset. The
	// ledger's fee table consults it before falling back to the global
	// default.
	GetFee(asset string, isMaker bool) float64
}

// Registry holds the configured venues in declaration order. Order matters:
// the first_valid consensus policy and pair scans iterate it.
type Registry struct {
	names  []string
	venues map[string]Venue
}

// NewRegistry builds a registry from an ordered venue list.
func NewRegistry(venues []Venue) *Registry {
	r := &Registry{venues: make(map[string]Venue, len(venues))}
	for _, v := range venues {
		if _, dup := r.venues[v.Name()]; dup {
			continue
		}
		r.names = append(r.names, v.Name())
		r.venues[v.Name()] = v
	}
	return r
}

// Get returns the venue registered under name.
func (r *Registry) Get(name string) (Venue, error) {
	v, ok := r.venues[name]
	if !ok {
		return nil, fmt.Errorf("venue %q not registered: %w", name, domain.ErrVenueUnavailable)
	}
	return v, nil
}

// Names returns the venue names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns the venues in registration order.
func (r *Registry) All() []Venue {
	out := make([]Venue, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.venues[name])
	}
	return out
}

// Len returns the number of registered venues.
func (r *Registry) Len() int { return len(r.names) }
