package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spotarb/internal/config"
	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/venue"
)

// AccountSource supplies per-venue balances. The ledger implements it so a
// simulated venue reports the same holdings the engine accounts for.
type AccountSource interface {
	Account(venue string) domain.AccountSnapshot
}

// Venue is a simulated exchange. Orders fill immediately at the requested
// price; depth requests and order placement fail at the configured rate to
// exercise retry and rollback paths.
type Venue struct {
	cfg      config.VenueConfig
	model    *PriceModel
	accounts AccountSource

	mu     sync.Mutex
	rng    *rand.Rand
	orders map[string]domain.OrderInfo

	now func() time.Time
}

var _ venue.Venue = (*Venue)(nil)

// New builds one simulated venue around the shared price model. seed
// differentiates the venue's own noise stream from its siblings.
func New(cfg config.VenueConfig, model *PriceModel, accounts AccountSource, seed int64) *Venue {
	return &Venue{
		cfg:      cfg,
		model:    model,
		accounts: accounts,
		rng:      rand.New(rand.NewSource(seed)),
		orders:   make(map[string]domain.OrderInfo),
		now:      time.Now,
	}
}

// Name returns the config identifier.
func (v *Venue) Name() string { return v.cfg.Name }

// Label returns the display name, falling back to Name.
func (v *Venue) Label() string {
	if v.cfg.Label != "" {
		return v.cfg.Label
	}
	return v.cfg.Name
}

// GetFee returns the venue's configured default rate.
func (v *Venue) GetFee(asset string, isMaker bool) float64 {
	if isMaker {
		return v.cfg.MakerFee
	}
	return v.cfg.TakerFee
}

// GetDepth renders a synthetic book around the shared reference price.
func (v *Venue) GetDepth(ctx context.Context, asset string) (domain.DepthSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.DepthSnapshot{}, err
	}
	if v.roll() {
		return domain.DepthSnapshot{}, fmt.Errorf("sim %s: depth %s: %w", v.cfg.Name, asset, domain.ErrVenueUnavailable)
	}
	ref := v.model.Price(asset)
	if ref <= 0 {
		return domain.DepthSnapshot{}, fmt.Errorf("sim %s: unknown asset %q: %w", v.cfg.Name, asset, domain.ErrNoDepth)
	}

	mid := ref * (1 + v.cfg.PriceOffsetBps/10000)
	half := mid * v.cfg.SpreadBps / 20000
	step := mid * v.cfg.SpreadBps / 10000
	if step == 0 {
		step = mid * 0.0001
	}

	levels := v.cfg.DepthLevels
	snap := domain.DepthSnapshot{
		Venue:      v.cfg.Name,
		Asset:      asset,
		Asks:       make([]domain.PriceLevel, 0, levels),
		Bids:       make([]domain.PriceLevel, 0, levels),
		CapturedAt: v.now(),
	}
	for i := 0; i < levels; i++ {
		depth := i
		snap.Asks = append(snap.Asks, domain.PriceLevel{
			Price: mid + half + float64(depth)*step,
			Size:  v.levelSize(depth),
		})
		snap.Bids = append(snap.Bids, domain.PriceLevel{
			Price: mid - half - float64(depth)*step,
			Size:  v.levelSize(depth),
		})
	}
	return snap, nil
}

// levelSize decays the base depth with a little per-level jitter.
func (v *Venue) levelSize(depth int) float64 {
	v.mu.Lock()
	jitter := 0.8 + v.rng.Float64()*0.4
	v.mu.Unlock()
	return v.model.baseDepth() / float64(depth+1) * jitter
}

// GetAccount reports the ledger's view of this venue's balances.
func (v *Venue) GetAccount(ctx context.Context) (domain.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.AccountSnapshot{}, err
	}
	if v.accounts == nil {
		return domain.AccountSnapshot{Available: map[string]float64{}, Frozen: map[string]float64{}}, nil
	}
	return v.accounts.Account(v.cfg.Name), nil
}

// Buy places a taker buy; it fills immediately at the requested price.
func (v *Venue) Buy(ctx context.Context, asset string, price, quantity float64) (domain.OrderRef, error) {
	return v.place(ctx, asset, domain.SideBuy, price, quantity)
}

// Sell places a taker sell; it fills immediately at the requested price.
func (v *Venue) Sell(ctx context.Context, asset string, price, quantity float64) (domain.OrderRef, error) {
	return v.place(ctx, asset, domain.SideSell, price, quantity)
}

func (v *Venue) place(ctx context.Context, asset string, side domain.Side, price, quantity float64) (domain.OrderRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderRef{}, err
	}
	if price <= 0 || quantity <= 0 {
		return domain.OrderRef{}, fmt.Errorf("sim %s: %s %s price=%v qty=%v: %w",
			v.cfg.Name, side, asset, price, quantity, domain.ErrInvalidAmount)
	}
	if v.roll() {
		return domain.OrderRef{}, fmt.Errorf("sim %s: %s %s: %w", v.cfg.Name, side, asset, domain.ErrVenueUnavailable)
	}

	ref := domain.OrderRef{
		ID:        uuid.Must(uuid.NewRandom()).String(),
		Venue:     v.cfg.Name,
		Asset:     asset,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: v.now(),
	}
	v.mu.Lock()
	v.orders[ref.ID] = domain.OrderInfo{
		OrderRef:       ref,
		Status:         domain.OrderStatusFilled,
		FilledQuantity: quantity,
		AvgPrice:       price,
	}
	v.mu.Unlock()
	return ref, nil
}

// CancelOrder cancels an open order. Filled orders report false without an
// error; unknown ids report ErrOrderNotFound.
func (v *Venue) CancelOrder(ctx context.Context, asset, orderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	info, ok := v.orders[orderID]
	if !ok || info.Asset != asset {
		return false, fmt.Errorf("sim %s: cancel %s: %w", v.cfg.Name, orderID, domain.ErrOrderNotFound)
	}
	if info.Status != domain.OrderStatusOpen {
		return false, nil
	}
	info.Status = domain.OrderStatusCancelled
	v.orders[orderID] = info
	return true, nil
}

// GetOrder returns the venue's view of one order.
func (v *Venue) GetOrder(ctx context.Context, asset, orderID string) (domain.OrderInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderInfo{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	info, ok := v.orders[orderID]
	if !ok || info.Asset != asset {
		return domain.OrderInfo{}, fmt.Errorf("sim %s: order %s: %w", v.cfg.Name, orderID, domain.ErrOrderNotFound)
	}
	return info, nil
}

// GetOrders lists this venue's orders for the asset, newest last.
func (v *Venue) GetOrders(ctx context.Context, asset string) ([]domain.OrderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.OrderInfo
	for _, info := range v.orders {
		if info.Asset == asset {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// roll samples the failure stream once.
func (v *Venue) roll() bool {
	if v.cfg.FailRate <= 0 {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rng.Float64() < v.cfg.FailRate
}
