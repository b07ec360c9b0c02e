// Package ledger tracks balances, frozen funds, fees, resting orders and
// trade outcomes across every venue. It is the single source of truth for
// what the engine owns; all mutation goes through one mutex and, at runtime,
// one engine goroutine.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

const (
	defaultFeeRate    = 0.002
	defaultOutcomeCap = 10000
)

// Config sizes a new Ledger. Zero values fall back to the package defaults.
type Config struct {
	Venues          []string
	QuoteCurrency   string
	InitialBalance  float64 // total across all venues, split evenly
	MaxRestingCount int
	MaxRestingValue float64
	DefaultFee      float64
	OutcomeLogCap   int
}

// Ledger is the venue-spanning account book. Balances never go negative:
// debits clamp at zero and trade executions check funding first.
type Ledger struct {
	mu sync.Mutex

	quote          string
	initialBalance float64
	venues         []string

	available map[string]map[string]float64 // venue -> currency -> amount
	frozen    map[string]map[string]float64
	unhedged  map[string]map[string]float64 // venue -> asset -> net unmatched position

	fees       map[string]domain.FeeRates // key venue|asset, venue|* for the venue default
	defaultFee float64

	resting         map[string]domain.RestingOrder
	maxRestingCount int
	maxRestingValue float64

	outcomes    []domain.TradeOutcome
	outcomeCap  int
	stats       domain.OutcomeStats
	statsByKind map[domain.ActionKind]domain.OutcomeStats
	cancelled   map[string]domain.CancelledStats // per asset

	now func() time.Time
}

// New builds a ledger with the initial quote balance split evenly across the
// venues.
func New(cfg Config) *Ledger {
	l := &Ledger{
		quote:           cfg.QuoteCurrency,
		initialBalance:  cfg.InitialBalance,
		venues:          append([]string(nil), cfg.Venues...),
		available:       make(map[string]map[string]float64, len(cfg.Venues)),
		frozen:          make(map[string]map[string]float64, len(cfg.Venues)),
		unhedged:        make(map[string]map[string]float64, len(cfg.Venues)),
		fees:            make(map[string]domain.FeeRates),
		defaultFee:      cfg.DefaultFee,
		resting:         make(map[string]domain.RestingOrder),
		maxRestingCount: cfg.MaxRestingCount,
		maxRestingValue: cfg.MaxRestingValue,
		outcomeCap:      cfg.OutcomeLogCap,
		stats:           domain.NewOutcomeStats(),
		statsByKind:     make(map[domain.ActionKind]domain.OutcomeStats),
		cancelled:       make(map[string]domain.CancelledStats),
		now:             time.Now,
	}
	if l.defaultFee == 0 {
		l.defaultFee = defaultFeeRate
	}
	if l.outcomeCap == 0 {
		l.outcomeCap = defaultOutcomeCap
	}

	perVenue := 0.0
	if len(cfg.Venues) > 0 {
		perVenue = cfg.InitialBalance / float64(len(cfg.Venues))
	}
	for _, v := range cfg.Venues {
		l.available[v] = map[string]float64{cfg.QuoteCurrency: perVenue}
		l.frozen[v] = map[string]float64{}
		l.unhedged[v] = map[string]float64{}
	}
	return l
}

// QuoteCurrency returns the settlement currency.
func (l *Ledger) QuoteCurrency() string { return l.quote }

// InitialBalance returns the total starting quote balance.
func (l *Ledger) InitialBalance() float64 { return l.initialBalance }

// Venues returns the venue names the ledger tracks.
func (l *Ledger) Venues() []string {
	out := make([]string, len(l.venues))
	copy(out, l.venues)
	return out
}

// GetBalance returns the available amount for venue+currency; unknown keys
// read as zero.
func (l *Ledger) GetBalance(venue, currency string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available[venue][currency]
}

// GetFrozen returns the frozen amount for venue+currency.
func (l *Ledger) GetFrozen(venue, currency string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frozen[venue][currency]
}

// AdjustBalance adds delta to the available balance, clamping the result at
// zero. Debits beyond the balance are therefore lenient, not an error.
func (l *Ledger) AdjustBalance(venue, currency string, delta float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adjustLocked(venue, currency, delta)
}

func (l *Ledger) adjustLocked(venue, currency string, delta float64) {
	m, ok := l.available[venue]
	if !ok {
		m = map[string]float64{}
		l.available[venue] = m
	}
	next := m[currency] + delta
	if next < 0 {
		next = 0
	}
	m[currency] = next
}

// Freeze moves amount from available to frozen. Negative amounts are ignored
// and insufficient available funds leave the ledger untouched; both report
// false.
func (l *Ledger) Freeze(venue, currency string, amount float64) bool {
	if amount < 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.available[venue][currency] < amount {
		return false
	}
	l.available[venue][currency] -= amount
	if l.frozen[venue] == nil {
		l.frozen[venue] = map[string]float64{}
	}
	l.frozen[venue][currency] += amount
	return true
}

// Unfreeze releases up to amount back to available. Negative amounts are
// ignored; releasing more than is frozen clamps to the frozen balance, so
// the sum available+frozen never grows.
func (l *Ledger) Unfreeze(venue, currency string, amount float64) {
	if amount < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	release := amount
	if fr := l.frozen[venue][currency]; release > fr {
		release = fr
	}
	if release <= 0 {
		return
	}
	l.frozen[venue][currency] -= release
	l.adjustLocked(venue, currency, release)
}

// ExecuteBuy settles a filled buy: the quote leg pays cost plus fee, the
// asset leg receives quantity, and the venue's unhedged position grows.
func (l *Ledger) ExecuteBuy(venue, asset string, price, quantity, feeRate float64) error {
	if price <= 0 || quantity <= 0 {
		return fmt.Errorf("ledger: buy %s/%s price=%v qty=%v: %w", venue, asset, price, quantity, domain.ErrInvalidAmount)
	}
	cost := price * quantity
	fee := cost * feeRate

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.available[venue][l.quote] < cost+fee {
		return fmt.Errorf("ledger: buy %s/%s needs %.8f %s: %w", venue, asset, cost+fee, l.quote, domain.ErrInsufficientFunds)
	}
	l.available[venue][l.quote] -= cost + fee
	l.adjustLocked(venue, asset, quantity)
	l.unhedgedAdd(venue, asset, quantity)
	return nil
}

// ExecuteSell settles a filled sell: the asset leg pays quantity, the quote
// leg receives revenue minus fee, and the venue's unhedged position shrinks.
func (l *Ledger) ExecuteSell(venue, asset string, price, quantity, feeRate float64) error {
	if price <= 0 || quantity <= 0 {
		return fmt.Errorf("ledger: sell %s/%s price=%v qty=%v: %w", venue, asset, price, quantity, domain.ErrInvalidAmount)
	}
	revenue := price * quantity
	fee := revenue * feeRate

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.available[venue][asset] < quantity {
		return fmt.Errorf("ledger: sell %s/%s needs %.8f %s: %w", venue, asset, quantity, asset, domain.ErrInsufficientFunds)
	}
	l.available[venue][asset] -= quantity
	l.adjustLocked(venue, l.quote, revenue-fee)
	l.unhedgedAdd(venue, asset, -quantity)
	return nil
}

func (l *Ledger) unhedgedAdd(venue, asset string, delta float64) {
	if l.unhedged[venue] == nil {
		l.unhedged[venue] = map[string]float64{}
	}
	l.unhedged[venue][asset] += delta
}

// UnhedgedPosition returns the venue's net unmatched position in the asset.
func (l *Ledger) UnhedgedPosition(venue, asset string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unhedged[venue][asset]
}

// SeedPositions converts half of each venue's quote balance into the asset
// at the given price, scaled by the venue's deviation factor, so venues
// start with intentionally uneven inventory.
func (l *Ledger) SeedPositions(asset string, price float64, factors map[string]float64) error {
	if price <= 0 {
		return fmt.Errorf("ledger: seed %s at price %v: %w", asset, price, domain.ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range l.venues {
		spend := l.available[v][l.quote] * 0.5
		if spend <= 0 {
			continue
		}
		factor := factors[v]
		if factor <= 0 {
			factor = 1
		}
		qty := spend / price * factor
		l.available[v][l.quote] -= spend
		l.adjustLocked(v, asset, qty)
	}
	return nil
}

// Account returns a copy of one venue's balances. Simulated venues serve
// GetAccount from it.
func (l *Ledger) Account(venue string) domain.AccountSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := domain.AccountSnapshot{
		Available: make(map[string]float64, len(l.available[venue])),
		Frozen:    make(map[string]float64, len(l.frozen[venue])),
	}
	for cur, amt := range l.available[venue] {
		snap.Available[cur] = amt
	}
	for cur, amt := range l.frozen[venue] {
		snap.Frozen[cur] = amt
	}
	return snap
}
