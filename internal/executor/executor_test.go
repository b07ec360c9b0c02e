package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/ledger"
	"github.com/alanyoungcy/spotarb/internal/venue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeVenue fills every order immediately unless the side has been told to
// fail. It counts fills so tests can assert what actually traded.
type fakeVenue struct {
	name     string
	failBuy  bool
	failSell bool
	buys     int
	sells    int
}

func (v *fakeVenue) Name() string  { return v.name }
func (v *fakeVenue) Label() string { return v.name }

func (v *fakeVenue) GetDepth(context.Context, string) (domain.DepthSnapshot, error) {
	return domain.DepthSnapshot{}, nil
}

func (v *fakeVenue) GetAccount(context.Context) (domain.AccountSnapshot, error) {
	return domain.AccountSnapshot{}, nil
}

func (v *fakeVenue) Buy(_ context.Context, asset string, price, quantity float64) (domain.OrderRef, error) {
	if v.failBuy {
		return domain.OrderRef{}, errors.New("buy rejected")
	}
	v.buys++
	return domain.OrderRef{ID: "buy", Venue: v.name, Asset: asset, Side: domain.SideBuy, Price: price, Quantity: quantity}, nil
}

func (v *fakeVenue) Sell(_ context.Context, asset string, price, quantity float64) (domain.OrderRef, error) {
	if v.failSell {
		return domain.OrderRef{}, errors.New("sell rejected")
	}
	v.sells++
	return domain.OrderRef{ID: "sell", Venue: v.name, Asset: asset, Side: domain.SideSell, Price: price, Quantity: quantity}, nil
}

func (v *fakeVenue) CancelOrder(context.Context, string, string) (bool, error) { return false, nil }

func (v *fakeVenue) GetOrder(context.Context, string, string) (domain.OrderInfo, error) {
	return domain.OrderInfo{}, nil
}

func (v *fakeVenue) GetOrders(context.Context, string) ([]domain.OrderInfo, error) { return nil, nil }

func (v *fakeVenue) GetFee(string, bool) float64 { return 0.001 }

// fakeDepth serves one canned book per venue.
type fakeDepth struct {
	books map[string]domain.DepthSnapshot
	err   error
	calls int
}

func (f *fakeDepth) FetchPair(context.Context, string, string, string) (map[string]domain.DepthSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.books, nil
}

func book(venueName string, ask, bid float64) domain.DepthSnapshot {
	return domain.DepthSnapshot{
		Venue: venueName,
		Asset: "BTC",
		Asks:  []domain.PriceLevel{{Price: ask, Size: 10}},
		Bids:  []domain.PriceLevel{{Price: bid, Size: 10}},
	}
}

// newTestLedger starts both venues with 5000 USDT and 0.1% maker/taker fees.
func newTestLedger() *ledger.Ledger {
	l := ledger.New(ledger.Config{
		Venues:          []string{"alpha", "beta"},
		QuoteCurrency:   "USDT",
		InitialBalance:  10000,
		MaxRestingCount: 3,
		MaxRestingValue: 10000,
	})
	for _, v := range []string{"alpha", "beta"} {
		l.SetFee(v, "*", domain.FeeRates{Maker: 0.001, Taker: 0.001})
	}
	return l
}

func testConfig() Config {
	return Config{
		MaxPriceDrift: 0.008,
		MinProfit:     0.001,
		MinAmount:     0.001,
		PriceAdjust:   0.003,
		TriggerDrift:  0.005,
		RestingProfit: 0.05,
		OrderTimeout:  300 * time.Second,
	}
}

func newTestExecutor(led *ledger.Ledger, depth DepthSource, vs ...venue.Venue) *Executor {
	return New(led, venue.NewRegistry(vs), depth, testConfig(), testLogger())
}

func lastOutcome(t *testing.T, led *ledger.Ledger) domain.TradeOutcome {
	t.Helper()
	recent := led.RecentOutcomes(1)
	if len(recent) == 0 {
		t.Fatal("no outcome recorded")
	}
	return recent[0]
}

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// Buy one unit at 100 on alpha, sell at 102 on beta, 0.1% taker each side:
// the same round trip the ledger tests settle by hand nets 1.798 USDT.
func TestArbitrageTwoLegFill(t *testing.T) {
	led := newTestLedger()
	led.AdjustBalance("beta", "BTC", 1)
	alpha := &fakeVenue{name: "alpha"}
	beta := &fakeVenue{name: "beta"}
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100, 99.8),
		"beta":  book("beta", 102.4, 102),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.ArbitrageAction{
		Asset: "BTC", BuyVenue: "alpha", SellVenue: "beta",
		BuyPrice: 100, SellPrice: 102, Quantity: 1,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeSuccess {
		t.Fatalf("Status=%s (%s), want SUCCESS", out.Status, out.Reason)
	}
	if !approx(out.Profit, 1.798, 1e-9) {
		t.Fatalf("Profit=%v, want 1.798", out.Profit)
	}
	if alpha.buys != 1 || beta.sells != 1 {
		t.Fatalf("fills alpha.buys=%d beta.sells=%d, want 1 and 1", alpha.buys, beta.sells)
	}
	if got := led.GetBalance("alpha", "BTC"); got != 1 {
		t.Fatalf("alpha BTC=%v, want 1", got)
	}
	if got := led.GetBalance("beta", "BTC"); got != 0 {
		t.Fatalf("beta BTC=%v, want 0", got)
	}
	if got := led.GetBalance("beta", "USDT"); !approx(got, 5101.898, 1e-9) {
		t.Fatalf("beta USDT=%v, want 5101.898", got)
	}
}

func TestArbitrageAbortsOnDrift(t *testing.T) {
	led := newTestLedger()
	led.AdjustBalance("beta", "BTC", 1)
	alpha := &fakeVenue{name: "alpha"}
	beta := &fakeVenue{name: "beta"}
	// Fresh ask is 2% above the detected price.
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 102, 99.8),
		"beta":  book("beta", 102.4, 102),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.ArbitrageAction{
		Asset: "BTC", BuyVenue: "alpha", SellVenue: "beta",
		BuyPrice: 100, SellPrice: 102, Quantity: 1,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("Status=%s, want FAILED", out.Status)
	}
	if alpha.buys != 0 || beta.sells != 0 {
		t.Fatalf("legs placed on an aborted trade: buys=%d sells=%d", alpha.buys, beta.sells)
	}
	if got := led.GetBalance("alpha", "USDT"); got != 5000 {
		t.Fatalf("alpha USDT=%v, want untouched 5000", got)
	}
}

func TestArbitrageCompensatesFailedSellLeg(t *testing.T) {
	led := newTestLedger()
	led.AdjustBalance("beta", "BTC", 1)
	alpha := &fakeVenue{name: "alpha"}
	beta := &fakeVenue{name: "beta", failSell: true}
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100, 99.8),
		"beta":  book("beta", 102.4, 102),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.ArbitrageAction{
		Asset: "BTC", BuyVenue: "alpha", SellVenue: "beta",
		BuyPrice: 100, SellPrice: 102, Quantity: 1,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("Status=%s, want FAILED after compensation", out.Status)
	}
	// Bought at 100 plus 0.1 fee, sold back at 99.8 minus 0.0998 fee.
	if !approx(out.Profit, -0.3998, 1e-9) {
		t.Fatalf("Profit=%v, want -0.3998", out.Profit)
	}
	if got := led.GetBalance("alpha", "BTC"); got != 0 {
		t.Fatalf("alpha BTC=%v, want 0 after sell-back", got)
	}
	if alpha.sells != 1 {
		t.Fatalf("alpha.sells=%d, want 1 compensation fill", alpha.sells)
	}
}

func TestArbitrageCompensationFailureRecordsError(t *testing.T) {
	led := newTestLedger()
	led.AdjustBalance("beta", "BTC", 1)
	alpha := &fakeVenue{name: "alpha", failSell: true}
	beta := &fakeVenue{name: "beta", failSell: true}
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100, 99.8),
		"beta":  book("beta", 102.4, 102),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.ArbitrageAction{
		Asset: "BTC", BuyVenue: "alpha", SellVenue: "beta",
		BuyPrice: 100, SellPrice: 102, Quantity: 1,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeError {
		t.Fatalf("Status=%s, want ERROR", out.Status)
	}
	if got := led.GetBalance("alpha", "BTC"); got != 1 {
		t.Fatalf("alpha BTC=%v, want the stranded position", got)
	}
}

func TestBalanceMoveSizesBuyFromProceeds(t *testing.T) {
	led := newTestLedger()
	led.AdjustBalance("alpha", "BTC", 4)
	alpha := &fakeVenue{name: "alpha"}
	beta := &fakeVenue{name: "beta"}
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100.2, 100),
		"beta":  book("beta", 99, 98.8),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.BalanceAction{
		Asset: "BTC", FromVenue: "alpha", ToVenue: "beta",
		SellPrice: 100, BuyPrice: 99, Quantity: 2, Mandatory: true,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeSuccess {
		t.Fatalf("Status=%s (%s), want SUCCESS", out.Status, out.Reason)
	}
	if got := led.GetBalance("alpha", "BTC"); got != 2 {
		t.Fatalf("alpha BTC=%v, want 2 after selling 2", got)
	}
	// Net proceeds 199.8 buy 199.8*0.999/99 at beta.
	wantQty := 199.8 * 0.999 / 99
	if got := led.GetBalance("beta", "BTC"); !approx(got, wantQty, 1e-9) {
		t.Fatalf("beta BTC=%v, want %v", got, wantQty)
	}
	// The buy must fit inside the sale proceeds: beta spent no more than
	// alpha took in.
	spent := 5000 - led.GetBalance("beta", "USDT")
	earned := led.GetBalance("alpha", "USDT") - 5000
	if spent > earned+1e-9 {
		t.Fatalf("buy leg spent %v, more than the %v the sale brought in", spent, earned)
	}
}

func TestBalanceOptionalMoveAbortsWhenSpreadGone(t *testing.T) {
	led := newTestLedger()
	led.AdjustBalance("alpha", "BTC", 4)
	alpha := &fakeVenue{name: "alpha"}
	beta := &fakeVenue{name: "beta"}
	// Source bid below target ask: the move costs money now.
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100.2, 99),
		"beta":  book("beta", 100, 98.8),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.BalanceAction{
		Asset: "BTC", FromVenue: "alpha", ToVenue: "beta",
		SellPrice: 100, BuyPrice: 99, Quantity: 2, Mandatory: false,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("Status=%s, want FAILED", out.Status)
	}
	if alpha.sells != 0 {
		t.Fatalf("alpha.sells=%d, want 0", alpha.sells)
	}
}

func TestBalanceRollbackOnFailedBuyLeg(t *testing.T) {
	led := newTestLedger()
	led.AdjustBalance("alpha", "BTC", 4)
	alpha := &fakeVenue{name: "alpha"}
	beta := &fakeVenue{name: "beta", failBuy: true}
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100.2, 100),
		"beta":  book("beta", 99, 98.8),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.BalanceAction{
		Asset: "BTC", FromVenue: "alpha", ToVenue: "beta",
		SellPrice: 100, BuyPrice: 99, Quantity: 2, Mandatory: true,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("Status=%s, want FAILED after rollback", out.Status)
	}
	if got := led.GetBalance("alpha", "BTC"); got != 4 {
		t.Fatalf("alpha BTC=%v, want inventory restored to 4", got)
	}
	if got := led.GetBalance("beta", "BTC"); got != 0 {
		t.Fatalf("beta BTC=%v, want 0", got)
	}
}

func TestHedgeBuyFillsAndResetsCancelledStats(t *testing.T) {
	led := newTestLedger()
	led.RecordCancelledOrder(domain.RestingOrder{
		Asset: "BTC", BuyVenue: "alpha", SellVenue: "beta", Quantity: 3,
	})
	alpha := &fakeVenue{name: "alpha"}
	beta := &fakeVenue{name: "beta"}
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100, 99.8),
	}}
	e := newTestExecutor(led, depth, alpha, beta)

	e.Dispatch(context.Background(), domain.HedgeAction{
		Asset: "BTC", Side: domain.SideBuy, Venue: "alpha", Price: 100, Quantity: 0.5,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeSuccess {
		t.Fatalf("Status=%s (%s), want SUCCESS", out.Status, out.Reason)
	}
	if out.Kind != domain.KindHedgeBuy {
		t.Fatalf("Kind=%s, want HEDGE_BUY", out.Kind)
	}
	if got := led.GetBalance("alpha", "BTC"); got != 0.5 {
		t.Fatalf("alpha BTC=%v, want 0.5", got)
	}
	if cs := led.CancelledStats("BTC"); cs.Count != 0 {
		t.Fatalf("cancelled Count=%d after hedge, want reset to 0", cs.Count)
	}
}

func TestHedgeSellChecksInventory(t *testing.T) {
	led := newTestLedger()
	alpha := &fakeVenue{name: "alpha"}
	depth := &fakeDepth{books: map[string]domain.DepthSnapshot{
		"alpha": book("alpha", 100, 99.8),
	}}
	e := newTestExecutor(led, depth, alpha)

	// No BTC anywhere: the sell hedge must abort without a venue call.
	e.Dispatch(context.Background(), domain.HedgeAction{
		Asset: "BTC", Side: domain.SideSell, Venue: "alpha", Price: 99.8, Quantity: 1,
	})

	out := lastOutcome(t, led)
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("Status=%s, want FAILED", out.Status)
	}
	if alpha.sells != 0 {
		t.Fatalf("alpha.sells=%d, want 0", alpha.sells)
	}
}

func TestDispatchNoTradeRecordsNothing(t *testing.T) {
	led := newTestLedger()
	e := newTestExecutor(led, &fakeDepth{}, &fakeVenue{name: "alpha"})

	e.Dispatch(context.Background(), domain.NoTrade{Reason: "quiet market"})

	if got := led.OutcomeCount(); got != 0 {
		t.Fatalf("OutcomeCount=%d, want 0", got)
	}
}
