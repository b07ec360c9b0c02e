package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// stubVenue implements Venue with just enough behavior for registry tests.
type stubVenue struct{ name string }

func (s stubVenue) Name() string  { return s.name }
func (s stubVenue) Label() string { return s.name }
func (s stubVenue) GetDepth(context.Context, string) (domain.DepthSnapshot, error) {
	return domain.DepthSnapshot{}, nil
}
func (s stubVenue) GetAccount(context.Context) (domain.AccountSnapshot, error) {
	return domain.AccountSnapshot{}, nil
}
func (s stubVenue) Buy(context.Context, string, float64, float64) (domain.OrderRef, error) {
	return domain.OrderRef{}, nil
}
func (s stubVenue) Sell(context.Context, string, float64, float64) (domain.OrderRef, error) {
	return domain.OrderRef{}, nil
}
func (s stubVenue) CancelOrder(context.Context, string, string) (bool, error) { return false, nil }
func (s stubVenue) GetOrder(context.Context, string, string) (domain.OrderInfo, error) {
	return domain.OrderInfo{}, nil
}
func (s stubVenue) GetOrders(context.Context, string) ([]domain.OrderInfo, error) { return nil, nil }
func (s stubVenue) GetFee(string, bool) float64                                   { return 0 }

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry([]Venue{stubVenue{"beta"}, stubVenue{"alpha"}, stubVenue{"gamma"}})
	names := r.Names()
	want := []string{"beta", "alpha", "gamma"}
	if len(names) != len(want) {
		t.Fatalf("len=%d, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d]=%q, want %q", i, names[i], want[i])
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Len=%d, want 3", r.Len())
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry([]Venue{stubVenue{"alpha"}})
	v, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Name() != "alpha" {
		t.Fatalf("Name=%q", v.Name())
	}
	if _, err := r.Get("missing"); !errors.Is(err, domain.ErrVenueUnavailable) {
		t.Fatalf("err=%v, want ErrVenueUnavailable", err)
	}
}

func TestRegistryDropsDuplicates(t *testing.T) {
	r := NewRegistry([]Venue{stubVenue{"alpha"}, stubVenue{"alpha"}})
	if r.Len() != 1 {
		t.Fatalf("Len=%d, want 1", r.Len())
	}
}
