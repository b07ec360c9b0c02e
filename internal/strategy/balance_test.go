package strategy

import (
	"testing"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

func balanceConfig() BalanceConfig {
	return BalanceConfig{
		MinDeviation:    0.05,
		MaxDeviation:    0.2,
		ProfitThreshold: 0.0001,
		MaxTransfer:     0,
	}
}

func TestBalanceOptionalMoveWhenBooksPay(t *testing.T) {
	view := newTestView()
	view.AdjustBalance("alpha", "BTC", 1.15)
	view.AdjustBalance("beta", "BTC", 0.85)
	b := NewBalance(balanceConfig(), testLogger())

	// alpha's bid is 60 bps over beta's ask, fees take 40.
	in := testInput(view, 0.1,
		bookAt("alpha", 100.7, 5, 100.6, 5),
		bookAt("beta", 100, 5, 99.9, 5),
	)
	act := b.Detect(in)
	bal, ok := act.(domain.BalanceAction)
	if !ok {
		t.Fatalf("action=%#v, want BalanceAction", act)
	}
	if bal.FromVenue != "alpha" || bal.ToVenue != "beta" {
		t.Fatalf("route=%s->%s, want alpha->beta", bal.FromVenue, bal.ToVenue)
	}
	if bal.SellPrice != 100.6 || bal.BuyPrice != 100 {
		t.Fatalf("prices=%v/%v, want 100.6/100", bal.SellPrice, bal.BuyPrice)
	}
	if bal.Mandatory {
		t.Fatal("15% deviation must not be mandatory")
	}
	if !approx(bal.Deviation, 0.15, 1e-9) {
		t.Fatalf("deviation=%v, want 0.15", bal.Deviation)
	}
	// MinQty 0.1 grows toward the 1.0 default cap by factor 0.75, then the
	// half-of-source limit takes over.
	if !approx(bal.Quantity, 0.575, 1e-9) {
		t.Fatalf("quantity=%v, want 0.575", bal.Quantity)
	}
}

func TestBalanceOptionalMoveNeedsProfit(t *testing.T) {
	view := newTestView()
	view.AdjustBalance("alpha", "BTC", 1.15)
	view.AdjustBalance("beta", "BTC", 0.85)
	b := NewBalance(balanceConfig(), testLogger())

	// Flat books: fees make the move a loss.
	in := testInput(view, 0.1,
		bookAt("alpha", 100.1, 5, 100, 5),
		bookAt("beta", 100, 5, 99.9, 5),
	)
	act := b.Detect(in)
	nt, ok := act.(domain.NoTrade)
	if !ok {
		t.Fatalf("action=%#v, want NoTrade", act)
	}
	if nt.Reason != "rebalance spread below profit threshold" {
		t.Fatalf("reason=%q", nt.Reason)
	}
}

func TestBalanceMandatoryIgnoresProfit(t *testing.T) {
	view := newTestView()
	view.AdjustBalance("alpha", "BTC", 1.5)
	view.AdjustBalance("beta", "BTC", 0.5)
	b := NewBalance(balanceConfig(), testLogger())

	// Same flat books, but a 50% deviation forces the move.
	in := testInput(view, 0.1,
		bookAt("alpha", 100.1, 5, 100, 5),
		bookAt("beta", 100, 5, 99.9, 5),
	)
	act := b.Detect(in)
	bal, ok := act.(domain.BalanceAction)
	if !ok {
		t.Fatalf("action=%#v, want BalanceAction", act)
	}
	if !bal.Mandatory {
		t.Fatal("deviation beyond the cap must be mandatory")
	}
	// Sizing factor clamps at 1, then half of the source holding caps it.
	if !approx(bal.Quantity, 0.75, 1e-9) {
		t.Fatalf("quantity=%v, want 0.75", bal.Quantity)
	}
	if !approx(bal.Deviation, 0.5, 1e-9) {
		t.Fatalf("deviation=%v, want 0.5", bal.Deviation)
	}
}

func TestBalanceToleratesSmallSkew(t *testing.T) {
	view := newTestView()
	view.AdjustBalance("alpha", "BTC", 1.02)
	view.AdjustBalance("beta", "BTC", 0.98)
	b := NewBalance(balanceConfig(), testLogger())

	in := testInput(view, 0.1,
		bookAt("alpha", 100.7, 5, 100.6, 5),
		bookAt("beta", 100, 5, 99.9, 5),
	)
	act := b.Detect(in)
	nt, ok := act.(domain.NoTrade)
	if !ok {
		t.Fatalf("action=%#v, want NoTrade", act)
	}
	if nt.Reason != "deviation below threshold" {
		t.Fatalf("reason=%q", nt.Reason)
	}
}

func TestBalanceEqualHoldingsAreLevel(t *testing.T) {
	view := newTestView()
	view.AdjustBalance("alpha", "BTC", 1)
	view.AdjustBalance("beta", "BTC", 1)
	b := NewBalance(balanceConfig(), testLogger())

	in := testInput(view, 0.1,
		bookAt("alpha", 100.7, 5, 100.6, 5),
		bookAt("beta", 100, 5, 99.9, 5),
	)
	if act := b.Detect(in); act.Kind() != domain.KindNoTrade {
		t.Fatalf("action=%#v, want NoTrade", act)
	}
}

func TestBalanceNeedsTwoHolders(t *testing.T) {
	view := newTestView()
	view.AdjustBalance("alpha", "BTC", 2)
	b := NewBalance(balanceConfig(), testLogger())

	in := testInput(view, 0.1,
		bookAt("alpha", 100.7, 5, 100.6, 5),
		bookAt("beta", 100, 5, 99.9, 5),
	)
	act := b.Detect(in)
	nt, ok := act.(domain.NoTrade)
	if !ok {
		t.Fatalf("action=%#v, want NoTrade", act)
	}
	if nt.Reason != "fewer than two venues holding the asset" {
		t.Fatalf("reason=%q", nt.Reason)
	}
}

func TestBalanceIgnoresEmptyVenues(t *testing.T) {
	view := newTestView("alpha", "beta", "gamma")
	view.AdjustBalance("alpha", "BTC", 1.5)
	view.AdjustBalance("beta", "BTC", 0.5)
	// gamma holds nothing and must not drag the mean down.
	b := NewBalance(balanceConfig(), testLogger())

	in := testInput(view, 0.1,
		bookAt("alpha", 100.1, 5, 100, 5),
		bookAt("beta", 100, 5, 99.9, 5),
		bookAt("gamma", 100, 5, 99.9, 5),
	)
	act := b.Detect(in)
	bal, ok := act.(domain.BalanceAction)
	if !ok {
		t.Fatalf("action=%#v, want BalanceAction", act)
	}
	if bal.FromVenue != "alpha" || bal.ToVenue != "beta" {
		t.Fatalf("route=%s->%s, want alpha->beta", bal.FromVenue, bal.ToVenue)
	}
	if !approx(bal.Deviation, 0.5, 1e-9) {
		t.Fatalf("deviation=%v, want 0.5 over the two holders", bal.Deviation)
	}
}
