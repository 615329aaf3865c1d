package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"venue_control/internal/config"
	"venue_control/internal/handlers"
	"venue_control/internal/logger"
	"venue_control/internal/metrics"
	"venue_control/internal/repository"
	"venue_control/internal/repository/db"
	"venue_control/internal/server"
	"venue_control/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	outboundTimeout = 30 * time.Second
)

func main() {
	// load configs/config.yml + VENUE_* env
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("failed to init logger", "err", err)
	}
	defer func() { _ = log.Sync() }()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "path", cfg.DB.Path, "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	rec := newRecorder(cfg.Metrics, log)
	defer func() { _ = rec.Close() }()

	// wire dependencies
	repos := newRepository(sqlDB, cfg.Store.Driver, log)
	services, err := service.NewService(repos, service.Options{
		Config:  cfg,
		Client:  &http.Client{Timeout: outboundTimeout},
		Metrics: rec,
		Log:     log,
	})
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Bootstrap(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatalw("failed to bootstrap admin", "err", err)
	}

	// background scheduler, stopped by cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		services.Run(ctx)
	}()

	srv := server.New(cfg.Port, handlers.NewHandler(services, log).InitRoutes())
	runHTTPServer(srv, log)

	waitForShutdown(cancel, &wg, srv, log)
}

func newRepository(sqlDB *sql.DB, driver string, log *logger.Logger) *repository.Repository {
	var tree repository.TreeStore
	if driver == "memory" {
		log.Warnw("tree store is in-memory; user data is lost on restart")
		tree = repository.NewMemoryTree()
	}
	return repository.NewRepository(sqlDB, tree)
}

func newRecorder(cfg config.Metrics, log *logger.Logger) metrics.Recorder {
	if !cfg.Enabled {
		return metrics.Nop{}
	}
	rec, err := metrics.NewStatsd(cfg.Addr, cfg.Namespace, cfg.Tags, log)
	if err != nil {
		log.Errorw("metrics disabled", "addr", cfg.Addr, "err", err)
		return metrics.Nop{}
	}
	return rec
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, wg *sync.WaitGroup, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the scheduler; a tick in flight finishes first
	cancel()
	wg.Wait()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
