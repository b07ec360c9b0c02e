package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

func TestRecordOutcomeUpdatesAggregates(t *testing.T) {
	l := newTestLedger()
	l.RecordOutcome(domain.TradeOutcome{
		Kind: domain.KindArbitrage, Status: domain.OutcomeSuccess,
		Quantity: 1, BuyPrice: 100, Profit: 1.798, Fees: 0.202,
	})
	l.RecordOutcome(domain.TradeOutcome{
		Kind: domain.KindArbitrage, Status: domain.OutcomeFailed,
		Quantity: 1, BuyPrice: 100,
	})
	l.RecordOutcome(domain.TradeOutcome{
		Kind: domain.KindHedgeBuy, Status: domain.OutcomeSuccess,
		Quantity: 2, BuyPrice: 50, Profit: -0.5, Fees: 0.1,
	})

	global := l.Stats()
	if global.Trades != 3 || global.Successes != 2 || global.Failures != 1 {
		t.Fatalf("global=%+v", global)
	}
	if !approx(global.Profit, 1.298, 1e-9) {
		t.Fatalf("profit=%v, want 1.298", global.Profit)
	}
	if global.MaxProfit != 1.798 || global.MaxLoss != -0.5 {
		t.Fatalf("extrema=%v/%v", global.MaxProfit, global.MaxLoss)
	}

	byKind := l.StatsByKind()
	if byKind[domain.KindArbitrage].Trades != 2 {
		t.Fatalf("arb trades=%d, want 2", byKind[domain.KindArbitrage].Trades)
	}
	if byKind[domain.KindHedgeBuy].Successes != 1 {
		t.Fatalf("hedge successes=%d, want 1", byKind[domain.KindHedgeBuy].Successes)
	}
}

func TestOutcomeLogCapDropsOldest(t *testing.T) {
	l := New(Config{
		Venues:        []string{"alpha", "beta"},
		QuoteCurrency: "USDT",
		OutcomeLogCap: 5,
	})
	for i := 0; i < 8; i++ {
		l.RecordOutcome(domain.TradeOutcome{
			ID:     fmt.Sprintf("o%d", i),
			Kind:   domain.KindArbitrage,
			Status: domain.OutcomeSuccess,
		})
	}
	if l.OutcomeCount() != 5 {
		t.Fatalf("count=%d, want 5", l.OutcomeCount())
	}
	recent := l.RecentOutcomes(0)
	if recent[0].ID != "o7" {
		t.Fatalf("newest=%s, want o7", recent[0].ID)
	}
	if recent[len(recent)-1].ID != "o3" {
		t.Fatalf("oldest kept=%s, want o3", recent[len(recent)-1].ID)
	}
	// Aggregates still count everything ever recorded.
	if got := l.Stats().Trades; got != 8 {
		t.Fatalf("trades=%d, want 8", got)
	}
}

func TestRecentOutcomesBounds(t *testing.T) {
	l := newTestLedger()
	for i := 0; i < 4; i++ {
		l.RecordOutcome(domain.TradeOutcome{ID: fmt.Sprintf("o%d", i), Status: domain.OutcomeSuccess})
	}
	if got := len(l.RecentOutcomes(2)); got != 2 {
		t.Fatalf("len=%d, want 2", got)
	}
	if got := len(l.RecentOutcomes(100)); got != 4 {
		t.Fatalf("len=%d, want all 4", got)
	}
}

func TestRecordOutcomeStampsCreatedAt(t *testing.T) {
	l := newTestLedger()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.RecordOutcome(domain.TradeOutcome{ID: "o1", Status: domain.OutcomeSuccess})
	if got := l.RecentOutcomes(1)[0].CreatedAt; !got.Equal(fixed) {
		t.Fatalf("CreatedAt=%v, want %v", got, fixed)
	}

	explicit := fixed.Add(-time.Hour)
	l.RecordOutcome(domain.TradeOutcome{ID: "o2", Status: domain.OutcomeSuccess, CreatedAt: explicit})
	if got := l.RecentOutcomes(1)[0].CreatedAt; !got.Equal(explicit) {
		t.Fatalf("explicit CreatedAt overwritten: %v", got)
	}
}

func TestCancelledOrderBookkeeping(t *testing.T) {
	l := newTestLedger()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.RecordCancelledOrder(domain.RestingOrder{
		Asset: "BTC", BuyVenue: "alpha", SellVenue: "beta",
		Quantity: 0.5, Orientation: domain.OrientForward,
	})
	l.RecordCancelledOrder(domain.RestingOrder{
		Asset: "BTC", BuyVenue: "alpha", SellVenue: "beta",
		Quantity: 0.25, Orientation: domain.OrientReverse,
	})
	l.RecordCancelledOrder(domain.RestingOrder{
		Asset: "BTC", BuyVenue: "beta", SellVenue: "alpha",
		Quantity: 0.1, Orientation: domain.OrientForward,
	})

	cs := l.CancelledStats("BTC")
	if cs.Count != 3 {
		t.Fatalf("count=%d, want 3", cs.Count)
	}
	if !approx(cs.Volume, 0.85, 1e-9) {
		t.Fatalf("volume=%v, want 0.85", cs.Volume)
	}
	if cs.Forward != 2 || cs.Reverse != 1 {
		t.Fatalf("orientation counts=%d/%d, want 2/1", cs.Forward, cs.Reverse)
	}
	if ps := cs.Pairs["alpha->beta"]; ps.Count != 2 || !approx(ps.Volume, 0.75, 1e-9) {
		t.Fatalf("pair alpha->beta=%+v", ps)
	}
	if !cs.LastCancelledAt.Equal(fixed) {
		t.Fatalf("LastCancelledAt=%v", cs.LastCancelledAt)
	}

	key, heaviest, ok := cs.HeaviestPair()
	if !ok || key != "alpha->beta" || !approx(heaviest.Volume, 0.75, 1e-9) {
		t.Fatalf("heaviest=%q %+v", key, heaviest)
	}
}

func TestResetCancelledStats(t *testing.T) {
	l := newTestLedger()
	l.RecordCancelledOrder(domain.RestingOrder{Asset: "BTC", BuyVenue: "a", SellVenue: "b", Quantity: 1})
	l.ResetCancelledStats("BTC")
	if cs := l.CancelledStats("BTC"); cs.Count != 0 || cs.Volume != 0 {
		t.Fatalf("stats not reset: %+v", cs)
	}
}

func TestCancelledStatsCopyIsolation(t *testing.T) {
	l := newTestLedger()
	l.RecordCancelledOrder(domain.RestingOrder{Asset: "BTC", BuyVenue: "a", SellVenue: "b", Quantity: 1})
	cs := l.CancelledStats("BTC")
	cs.Pairs["a->b"] = domain.PairStats{Count: 99}
	if l.CancelledStats("BTC").Pairs["a->b"].Count == 99 {
		t.Fatal("mutating the copy must not leak into the ledger")
	}
}

func TestStatusReport(t *testing.T) {
	l := newTestLedger()
	l.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	// 1 BTC on alpha bought for 100.1 total, quote frozen 50 on beta.
	if err := l.ExecuteBuy("alpha", "BTC", 100, 1, 0.001); err != nil {
		t.Fatalf("buy: %v", err)
	}
	l.Freeze("beta", "USDT", 50)
	l.RecordOutcome(domain.TradeOutcome{Kind: domain.KindArbitrage, Status: domain.OutcomeSuccess, Profit: 1})

	report := l.Status(map[string]float64{"BTC": 110}, 10)

	if report.QuoteCurrency != "USDT" || report.InitialBalance != 10000 {
		t.Fatalf("header=%+v", report)
	}
	wantQuote := 10000 - 100.1
	if !approx(report.QuoteBalance, wantQuote, 1e-9) {
		t.Fatalf("quote=%v, want %v (frozen still counts)", report.QuoteBalance, wantQuote)
	}
	if !approx(report.TotalAssetValue, 110, 1e-9) {
		t.Fatalf("asset value=%v, want 110", report.TotalAssetValue)
	}
	wantProfit := wantQuote + 110 - 10000
	if !approx(report.Profit, wantProfit, 1e-9) {
		t.Fatalf("profit=%v, want %v", report.Profit, wantProfit)
	}
	if !approx(report.ProfitRate, wantProfit/10000, 1e-12) {
		t.Fatalf("rate=%v", report.ProfitRate)
	}
	if report.Venues["beta"].Frozen["USDT"] != 50 {
		t.Fatalf("beta frozen=%v", report.Venues["beta"].Frozen["USDT"])
	}
	if len(report.RecentOutcomes) != 1 {
		t.Fatalf("recent=%d, want 1", len(report.RecentOutcomes))
	}
	// Untouched per-kind extrema are sanitized at the boundary.
	if report.StatsByKind[domain.KindArbitrage].MaxLoss != 0 {
		t.Fatalf("MaxLoss=%v, want sanitized 0", report.StatsByKind[domain.KindArbitrage].MaxLoss)
	}
}

func TestStatusMissingPriceContributesZero(t *testing.T) {
	l := newTestLedger()
	l.AdjustBalance("alpha", "BTC", 2)
	report := l.Status(map[string]float64{}, 0)
	if report.TotalAssetValue != 0 {
		t.Fatalf("asset value=%v, want 0 without a price", report.TotalAssetValue)
	}
}
