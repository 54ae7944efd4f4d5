package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CatalogRefresher reloads the task catalog
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// SelectionSweeper drops idle lobby sessions
type SelectionSweeper interface {
	SweepIdle(ctx context.Context, ttl time.Duration) int
}

// Config sets the worker's periods
type Config struct {
	RefreshInterval time.Duration
	SweepInterval   time.Duration
	IdleTTL         time.Duration
}

// Worker periodically refreshes the catalog and sweeps idle selections
type Worker struct {
	catalog CatalogRefresher
	sweeper SelectionSweeper
	cfg     Config
	wg      sync.WaitGroup
}

// NewWorker creates a worker; zero intervals fall back to defaults
func NewWorker(catalog CatalogRefresher, sweeper SelectionSweeper, cfg Config) *Worker {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}

	return &Worker{
		catalog: catalog,
		sweeper: sweeper,
		cfg:     cfg,
	}
}

// Start begins the worker in a goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the worker has stopped
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	slog.Info("refresher started",
		"refresh_interval", w.cfg.RefreshInterval,
		"sweep_interval", w.cfg.SweepInterval,
	)

	refresh := time.NewTicker(w.cfg.RefreshInterval)
	defer refresh.Stop()
	sweep := time.NewTicker(w.cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresher stopped")
			return
		case <-refresh.C:
			w.refresh(ctx)
		case <-sweep.C:
			w.sweep(ctx)
		}
	}
}

// refresh failures are already logged and recorded by the catalog
func (w *Worker) refresh(ctx context.Context) {
	slog.Debug("running catalog refresh")
	_ = w.catalog.Refresh(ctx)
}

func (w *Worker) sweep(ctx context.Context) {
	if w.sweeper == nil || w.cfg.IdleTTL <= 0 {
		return
	}

	if n := w.sweeper.SweepIdle(ctx, w.cfg.IdleTTL); n > 0 {
		slog.Info("idle selections removed", "count", n)
	}
}
