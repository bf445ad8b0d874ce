// Package app wires the engine's services together and manages their
// lifecycle. There are no ambient singletons: every service is built
// here and handed to the components that need it.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/pronovic/vplan/internal/api"
	"github.com/pronovic/vplan/internal/config"
	"github.com/pronovic/vplan/internal/engine"
	"github.com/pronovic/vplan/internal/scheduler"
	"github.com/pronovic/vplan/internal/smartthings"
	"github.com/pronovic/vplan/internal/store"
)

// App is the engine application: database, store, scheduler, manager
// and API server, started and stopped as a unit.
type App struct {
	cfg *config.Config

	db        *store.DB
	store     *store.Store
	scheduler *scheduler.Scheduler
	manager   *engine.Manager
	server    *api.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the application with all services initialized but not
// started.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.store = store.New(db)

	clientCfg := smartthings.Config{
		BaseAPIURL:      cfg.SmartThings.BaseAPIURL,
		Timeout:         cfg.SmartThings.Timeout.Duration(),
		MaxAttempts:     cfg.SmartThings.MaxAttempts,
		MinRetryBackoff: cfg.SmartThings.MinRetryBackoff.Duration(),
		MaxRetryBackoff: cfg.SmartThings.MaxRetryBackoff.Duration(),
		RetryMultiplier: cfg.SmartThings.RetryMultiplier,
		RateLimitRPS:    cfg.SmartThings.RateLimitRPS,
	}

	// The manager is the scheduler's job target, and the scheduler is
	// the manager's job store; break the cycle by giving the scheduler
	// a closure over the manager.
	var manager *engine.Manager
	run := func(ctx context.Context, planName, location string) {
		manager.RefreshPlan(ctx, planName, location)
	}
	a.scheduler = scheduler.New(db, run, scheduler.Config{
		DailyJitter:  cfg.Scheduler.DailyJitter.Duration(),
		MisfireGrace: cfg.Scheduler.MisfireGrace.Duration(),
	})
	manager = engine.New(a.store, a.scheduler, clientCfg, cfg.SmartThings.ToggleDelay.Duration())
	a.manager = manager

	a.server = api.NewServer(cfg.Server.Host, cfg.Server.Port, a.store, a.manager)

	return a, nil
}

// Start launches the scheduler and the API server.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.scheduler.Start(a.ctx); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Run(a.ctx, a.cfg.Server.ShutdownTimeout.Duration()); err != nil {
			log.Error().Err(err).Msg("API server failed")
			a.cancel()
		}
	}()

	log.Info().Msg("vplan engine started")
	return nil
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// Stop gracefully shuts everything down.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.scheduler.Shutdown()
	return a.db.Close()
}

// SignalContext creates a context that is cancelled when SIGINT or
// SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
