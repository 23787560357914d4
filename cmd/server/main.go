// Package main runs the coffeeshop HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/coffeechain-labs/coffeeshop/internal/app"
	"github.com/coffeechain-labs/coffeeshop/internal/app/domain/identity"
	"github.com/coffeechain-labs/coffeeshop/internal/app/httpapi"
	"github.com/coffeechain-labs/coffeeshop/internal/app/metrics"
	"github.com/coffeechain-labs/coffeeshop/internal/app/storage/postgres"
	"github.com/coffeechain-labs/coffeeshop/internal/config"
	"github.com/coffeechain-labs/coffeeshop/internal/middleware"
	"github.com/coffeechain-labs/coffeeshop/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "coffeeshop: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	log := logger.New("server", logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	admin, err := identity.ParseAddress(cfg.Shop.AdminAddress)
	if err != nil {
		return fmt.Errorf("admin address: %w", err)
	}
	custody, err := identity.ParseAddress(cfg.Shop.CustodyAddress)
	if err != nil {
		return fmt.Errorf("custody address: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stores app.Stores
	if cfg.Database.DSN != "" {
		db, err := sqlx.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		store := postgres.New(db)
		stores = app.Stores{Catalog: store, Menu: store, Roles: store, Coffees: store}
		log.Info("using postgres storage")
	} else {
		log.Warn("no database configured; state is in-memory and lost on restart")
	}

	application, err := app.New(ctx, stores, app.Config{
		Admin:   admin,
		Custody: custody,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(application)
	handler = metrics.InstrumentHandler(handler)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, log.WithField("component", "ratelimit"))
		limiter.StartCleanup(ctx, 10*time.Minute)
		handler = limiter.Handler(handler)
	}
	handler = middleware.NewRequestLogger(log.WithField("component", "http")).Handler(handler)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
