package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/dimtable/internal/config"
	"github.com/JonMunkholm/dimtable/internal/core"
	_ "github.com/JonMunkholm/dimtable/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/dimtable/internal/logging"
	"github.com/JonMunkholm/dimtable/internal/postgres"
	"github.com/JonMunkholm/dimtable/internal/web"
)

func main() {
	// Overload lets .env win over the shell environment
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"max_concurrent_saves", cfg.Table.MaxConcurrentSaves,
		"date_window_days", cfg.Table.DateWindowDays,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := core.NewService(pool, cfg.Table, logger, core.WithMetrics(core.NewMetrics(reg)))

	tables := service.ListTables()
	logger.Info("tables registered", "count", len(tables))
	for _, t := range tables {
		logger.Debug("table", "key", t.Key, "group", t.Group, "read_only", t.ReadOnly)
	}

	server := web.NewServer(cfg, service, logger,
		web.WithHealthCheck(pool.Ping),
		web.WithMetrics(reg),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}

		// Saves already accepted finish before the pool closes
		if err := service.Drain(shutdownCtx); err != nil {
			logger.Warn("saves did not complete in time", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	logger.Info("server stopped")
}
