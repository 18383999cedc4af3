package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"HyperTrack/internal/domain/repository"
	"HyperTrack/internal/handler/api"
	mid "HyperTrack/internal/middleware"
	"HyperTrack/internal/usecase"
	"HyperTrack/pkg/cache"
	"HyperTrack/pkg/config"
	xhttp "HyperTrack/pkg/http"
	applogger "HyperTrack/pkg/logger"
)

// App encapsulates the entire application lifecycle: the refresh loop, the
// history write pipeline and the HTTP server start together and drain
// together on SIGINT/SIGTERM.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	refresher  *usecase.Refresher
	pipeline   *mid.HistoryPipeline
	history    repository.HistoryStore
	chain      repository.ChainClient
	cache      cache.Service
	hub        *api.Hub
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	refresher *usecase.Refresher,
	pipeline *mid.HistoryPipeline,
	history repository.HistoryStore,
	chain repository.ChainClient,
	cacheSvc cache.Service,
	hub *api.Hub,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log.WithComponent("app"),
		refresher: refresher,
		pipeline:  pipeline,
		history:   history,
		chain:     chain,
		cache:     cacheSvc,
		hub:       hub,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.pipeline.Start(ctx)
	go a.refresher.Run(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	a.log.Info("started",
		applogger.String("title", a.cfg.App.Title),
		applogger.Int("wallets", len(a.cfg.Wallets)),
		applogger.Duration("refresh_interval", a.cfg.RefreshInterval()),
		applogger.String("history", a.history.Backend()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel() // stops the refresh loop and aborts any in-flight cycle
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.hub != nil {
		a.hub.Close()
	}
	a.pipeline.Stop()

	if err := a.history.Close(); err != nil {
		a.log.Warn("history store close error", applogger.Error(err))
	}
	a.chain.Close()
	if closer, ok := a.cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
