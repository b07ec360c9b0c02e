package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// OutcomeStore persists trade outcomes beyond the in-memory log.
type OutcomeStore interface {
	Insert(ctx context.Context, outcome TradeOutcome) error
	GetByID(ctx context.Context, id string) (TradeOutcome, error)
	ListRecent(ctx context.Context, limit int) ([]TradeOutcome, error)
	ListByAsset(ctx context.Context, asset string, opts ListOpts) ([]TradeOutcome, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]TradeOutcome, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Bus channel names. The engine publishes on them; the websocket hub and
// external monitors subscribe.
const (
	ChannelStatus   = "status"   // sanitized StatusReport, one per tick
	ChannelOutcomes = "outcomes" // one TradeOutcome per message, in record order
)

// SignalBus carries engine events (status reports, outcomes) to the
// monitor surface and any external subscribers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
