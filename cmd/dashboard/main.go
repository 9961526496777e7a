package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/runlog/internal/api"
	"example.com/runlog/internal/config"
	"example.com/runlog/internal/dashboard"
	"example.com/runlog/internal/logging"
	"example.com/runlog/internal/persistence/target"
	httptransport "example.com/runlog/internal/transport/http"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		bootLogger := logging.Init(logging.Config{})
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err := cfg.ValidateDashboard(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := target.OpenReader(ctx, cfg.DashboardURL())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer reader.Close()

	service := dashboard.NewService(reader, dashboard.WithLogger(logging.Component("dashboard")))

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.Dashboard.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.LogRequests(logging.Component("http"))(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.Dashboard.HTTPAddress).Msg("dashboard listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
