// Package sim implements the venue capability surface against a synthetic
// market. A shared PriceModel drives a seeded random walk per asset; each
// venue renders its own book around that reference with a configured offset,
// spread, and failure rate.
package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/spotarb/internal/config"
)

// PriceModel is the reference price process shared by every simulated venue.
// Each Price call advances the walk one step, so the market moves whenever
// anyone looks at it.
type PriceModel struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
	volBps float64
	depth  float64
}

// NewPriceModel seeds the walk from cfg. A zero seed falls back to the clock
// so unconfigured runs still vary.
func NewPriceModel(cfg config.SimConfig) *PriceModel {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	prices := make(map[string]float64, len(cfg.StartPrices))
	for asset, p := range cfg.StartPrices {
		prices[asset] = p
	}
	return &PriceModel{
		rng:    rand.New(rand.NewSource(seed)),
		prices: prices,
		volBps: cfg.VolatilityBps,
		depth:  cfg.BaseDepth,
	}
}

// baseDepth returns the configured top-of-book size.
func (m *PriceModel) baseDepth() float64 { return m.depth }

// Price advances the asset's walk one step and returns the new reference
// price. Unknown assets return 0.
func (m *PriceModel) Price(asset string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[asset]
	if !ok {
		return 0
	}
	step := (m.rng.Float64()*2 - 1) * m.volBps / 10000
	p *= 1 + step
	if p <= 0 {
		p = m.prices[asset]
	}
	m.prices[asset] = p
	return p
}

// Peek returns the current reference price without advancing the walk.
func (m *PriceModel) Peek(asset string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prices[asset]
}

// SetPrice pins the asset's reference price. Tests use it to stage exact
// market states.
func (m *PriceModel) SetPrice(asset string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[asset] = price
}
