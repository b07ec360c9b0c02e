package strategy

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/ledger"
)

// Detectors read the real ledger through ReadView.
var _ ReadView = (*ledger.Ledger)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestView builds a ledger with 5000 USDT per venue and 0.1%/0.2%
// maker/taker rates everywhere.
func newTestView(venues ...string) *ledger.Ledger {
	if len(venues) == 0 {
		venues = []string{"alpha", "beta"}
	}
	l := ledger.New(ledger.Config{
		Venues:          venues,
		QuoteCurrency:   "USDT",
		InitialBalance:  5000 * float64(len(venues)),
		MaxRestingCount: 3,
		MaxRestingValue: 10000,
	})
	for _, v := range venues {
		l.SetFee(v, "*", domain.FeeRates{Maker: 0.001, Taker: 0.002})
	}
	return l
}

func bookAt(venue string, ask, askSize, bid, bidSize float64) domain.DepthSnapshot {
	return domain.DepthSnapshot{
		Venue: venue,
		Asset: "BTC",
		Asks:  []domain.PriceLevel{{Price: ask, Size: askSize}},
		Bids:  []domain.PriceLevel{{Price: bid, Size: bidSize}},
	}
}

// testInput assembles an Input with the venue order taken from the book
// order.
func testInput(view ReadView, minQty float64, books ...domain.DepthSnapshot) Input {
	byVenue := make(map[string]domain.DepthSnapshot, len(books))
	venues := make([]string, 0, len(books))
	for _, b := range books {
		byVenue[b.Venue] = b
		venues = append(venues, b.Venue)
	}
	return Input{Asset: "BTC", Books: byVenue, Venues: venues, MinQty: minQty, Ledger: view}
}

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestValidQuotesFiltersThinAndMissingBooks(t *testing.T) {
	view := newTestView()
	in := testInput(view, 1,
		bookAt("alpha", 100, 5, 99, 5),
		bookAt("beta", 100, 0.5, 99, 5), // ask size below MinQty
	)
	in.Venues = append(in.Venues, "gamma") // no book at all

	quotes := validQuotes(in)
	if len(quotes) != 1 {
		t.Fatalf("quotes=%d, want 1", len(quotes))
	}
	if quotes[0].venue != "alpha" {
		t.Fatalf("venue=%q, want alpha", quotes[0].venue)
	}
	if quotes[0].ask != 100 || quotes[0].bid != 99 {
		t.Fatalf("quote=%+v, want ask 100 bid 99", quotes[0])
	}
}

func TestValidQuotesDropsOneSidedBooks(t *testing.T) {
	view := newTestView()
	askOnly := domain.DepthSnapshot{
		Venue: "alpha",
		Asset: "BTC",
		Asks:  []domain.PriceLevel{{Price: 100, Size: 5}},
	}
	in := testInput(view, 1, askOnly, bookAt("beta", 100, 5, 99, 5))

	quotes := validQuotes(in)
	if len(quotes) != 1 || quotes[0].venue != "beta" {
		t.Fatalf("quotes=%+v, want beta only", quotes)
	}
}

func TestValidQuotesKeepsVenueOrder(t *testing.T) {
	view := newTestView("alpha", "beta", "gamma")
	in := testInput(view, 1,
		bookAt("gamma", 102, 5, 101, 5),
		bookAt("alpha", 100, 5, 99, 5),
		bookAt("beta", 101, 5, 100, 5),
	)

	quotes := validQuotes(in)
	if len(quotes) != 3 {
		t.Fatalf("quotes=%d, want 3", len(quotes))
	}
	for i, want := range []string{"gamma", "alpha", "beta"} {
		if quotes[i].venue != want {
			t.Fatalf("quotes[%d]=%q, want %q", i, quotes[i].venue, want)
		}
	}
}
