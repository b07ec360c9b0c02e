package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStatusSource struct {
	report domain.StatusReport
}

func (f *fakeStatusSource) Status() domain.StatusReport {
	return f.report
}

type fakeOutcomeSource struct {
	outcomes  []domain.TradeOutcome
	err       error
	lastLimit int
}

func (f *fakeOutcomeSource) ListRecent(_ context.Context, limit int) ([]domain.TradeOutcome, error) {
	f.lastLimit = limit
	return f.outcomes, f.err
}

type fakeOrderSource struct {
	orders []domain.RestingOrder
}

func (f *fakeOrderSource) RestingOrders() []domain.RestingOrder {
	return f.orders
}

func (f *fakeOrderSource) RestingOrdersByAsset(asset string) []domain.RestingOrder {
	var out []domain.RestingOrder
	for _, o := range f.orders {
		if o.Asset == asset {
			out = append(out, o)
		}
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field=%v, want ok", body["status"])
	}
}

func TestGetStatus(t *testing.T) {
	source := &fakeStatusSource{report: domain.StatusReport{
		GeneratedAt:   time.Now(),
		QuoteCurrency: "USDT",
		QuoteBalance:  12345.5,
		Profit:        42.25,
	}}
	rec := httptest.NewRecorder()
	NewStatusHandler(source).GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var got domain.StatusReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.QuoteBalance != 12345.5 || got.Profit != 42.25 {
		t.Fatalf("report roundtrip mismatch: %+v", got)
	}
}

func TestListOutcomes(t *testing.T) {
	source := &fakeOutcomeSource{outcomes: []domain.TradeOutcome{
		{ID: "o-2", Kind: domain.KindArbitrage, Status: domain.OutcomeSuccess},
		{ID: "o-1", Kind: domain.KindBalance, Status: domain.OutcomeFailed},
	}}
	h := NewOutcomeHandler(source, testLogger())

	rec := httptest.NewRecorder()
	h.ListOutcomes(rec, httptest.NewRequest(http.MethodGet, "/api/outcomes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if source.lastLimit != 50 {
		t.Fatalf("default limit=%d, want 50", source.lastLimit)
	}
	var body struct {
		Outcomes []domain.TradeOutcome `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Outcomes) != 2 || body.Outcomes[0].ID != "o-2" {
		t.Fatalf("outcomes=%+v, want o-2 first", body.Outcomes)
	}
}

func TestListOutcomesLimitParam(t *testing.T) {
	source := &fakeOutcomeSource{}
	h := NewOutcomeHandler(source, testLogger())

	rec := httptest.NewRecorder()
	h.ListOutcomes(rec, httptest.NewRequest(http.MethodGet, "/api/outcomes?limit=7", nil))
	if source.lastLimit != 7 {
		t.Fatalf("limit=%d, want 7", source.lastLimit)
	}

	rec = httptest.NewRecorder()
	h.ListOutcomes(rec, httptest.NewRequest(http.MethodGet, "/api/outcomes?limit=9999", nil))
	if source.lastLimit != 500 {
		t.Fatalf("limit=%d, want cap 500", source.lastLimit)
	}
}

func TestListOutcomesSourceError(t *testing.T) {
	source := &fakeOutcomeSource{err: errors.New("store down")}
	h := NewOutcomeHandler(source, testLogger())

	rec := httptest.NewRecorder()
	h.ListOutcomes(rec, httptest.NewRequest(http.MethodGet, "/api/outcomes", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("error body missing: %s", rec.Body.String())
	}
}

func TestListOutcomesEmptyIsArray(t *testing.T) {
	h := NewOutcomeHandler(&fakeOutcomeSource{}, testLogger())

	rec := httptest.NewRecorder()
	h.ListOutcomes(rec, httptest.NewRequest(http.MethodGet, "/api/outcomes", nil))

	if got := rec.Body.String(); got != `{"outcomes":[]}` {
		t.Fatalf("body=%s, want empty array", got)
	}
}

func TestListOrders(t *testing.T) {
	source := &fakeOrderSource{orders: []domain.RestingOrder{
		{ID: "r-1", Asset: "BTC", Status: domain.RestingPending},
		{ID: "r-2", Asset: "ETH", Status: domain.RestingPending},
	}}
	h := NewOrderHandler(source)

	rec := httptest.NewRecorder()
	h.ListOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	var body struct {
		Orders []domain.RestingOrder `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Orders) != 2 {
		t.Fatalf("orders=%d, want 2", len(body.Orders))
	}

	rec = httptest.NewRecorder()
	h.ListOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders?asset=ETH", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Orders) != 1 || body.Orders[0].ID != "r-2" {
		t.Fatalf("filtered orders=%+v, want only r-2", body.Orders)
	}
}
