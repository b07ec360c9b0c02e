package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spotarb/internal/domain"
	"github.com/alanyoungcy/spotarb/internal/engine"
	"github.com/alanyoungcy/spotarb/internal/server"
	"github.com/alanyoungcy/spotarb/internal/server/handler"
	"github.com/alanyoungcy/spotarb/internal/server/ws"
	"github.com/alanyoungcy/spotarb/internal/strategy"
)

// FullMode runs every subsystem: the trading engine, the outcome archiver,
// and the monitor HTTP/WebSocket server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	eng := a.newEngine(deps, true)
	g.Go(func() error {
		return eng.Run(ctx)
	})

	a.startArchiver(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, eng, deps)
	}

	return g.Wait()
}

// TradeMode runs the trading engine and archiver without the HTTP surface.
// Status and outcomes still go out on the signal bus for external monitors.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)

	eng := a.newEngine(deps, true)
	g.Go(func() error {
		return eng.Run(ctx)
	})

	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// MonitorMode runs a detector-less engine that only refreshes market data
// and publishes status, plus the HTTP server for API consumption. No orders
// are placed and no history is drained.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	eng := a.newEngine(deps, false)
	g.Go(func() error {
		return eng.Run(ctx)
	})

	// Monitor mode exists to serve the API; the enabled flag does not opt out.
	if !a.cfg.Server.Enabled {
		a.logger.WarnContext(ctx, "server.enabled is false, but monitor mode always serves HTTP")
	}
	a.startServer(ctx, g, eng, deps)

	return g.Wait()
}

// newEngine assembles the engine for a mode. detect=false drops the
// detectors, leaving a loop that only refreshes depth and reports.
func (a *App) newEngine(deps *Dependencies, detect bool) *engine.Engine {
	ed := engine.Deps{
		Ledger:  deps.Ledger,
		Venues:  deps.Venues,
		Cache:   deps.Cache,
		Fetcher: deps.Fetcher,
		Exec:    deps.Exec,
		Bus:     deps.Bus,
		Store:   deps.Store,
	}
	if detect {
		ed.Hedge = deps.Hedge
		ed.Chain = deps.Chain
	}
	amount := strategy.AmountConfig{
		SafeAmount:         a.cfg.Strategy.SafeAmount,
		MinAmount:          a.cfg.Strategy.MinAmount,
		MarketImpactFactor: a.cfg.Strategy.MarketImpactFactor,
		BalanceCapFactor:   a.cfg.Strategy.BalanceCapFactor,
	}
	return engine.New(a.cfg.Engine, amount, ed, a.cfg.Sim.Seed, a.logger)
}

// startArchiver adds the archive drain loop to the errgroup when Wire built
// one.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	g.Go(func() error {
		return deps.Archiver.Run(ctx)
	})
}

// ledgerOutcomes serves outcome history straight from the in-memory log when
// no database is wired.
type ledgerOutcomes struct {
	deps *Dependencies
}

func (l ledgerOutcomes) ListRecent(_ context.Context, limit int) ([]domain.TradeOutcome, error) {
	return l.deps.Ledger.RecentOutcomes(limit), nil
}

// startServer adds the websocket hub and the HTTP server to the errgroup,
// plus a goroutine that shuts the server down when the context ends.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, eng *engine.Engine, deps *Dependencies) {
	hub := ws.NewHub(deps.Bus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	var outcomes handler.OutcomeSource = ledgerOutcomes{deps}
	if deps.Store != nil {
		outcomes = deps.Store
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, server.Handlers{
		Health:   handler.NewHealthHandler(),
		Status:   handler.NewStatusHandler(eng),
		Outcomes: handler.NewOutcomeHandler(outcomes, a.logger),
		Orders:   handler.NewOrderHandler(deps.Ledger),
	}, hub, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
