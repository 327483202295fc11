package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/delivery-driver/internal/agent"
	"github.com/example/delivery-driver/internal/api"
	"github.com/example/delivery-driver/internal/config"
	"github.com/example/delivery-driver/internal/controller"
	"github.com/example/delivery-driver/internal/eta"
	"github.com/example/delivery-driver/internal/keystore"
	"github.com/example/delivery-driver/internal/logging"
	"github.com/example/delivery-driver/internal/state"
)

func main() {
	cfg, err := config.LoadAgentConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	keys, err := keystore.NewFileStore(cfg.KeystorePath, cfg.DeviceSecret)
	if err != nil {
		logger.Error("opening keystore", "path", cfg.KeystorePath, "error", err)
		os.Exit(1)
	}

	store := state.New()
	client := api.NewClient(cfg.APIURL, cfg.HTTPTimeout, store.Session, keys, logger)

	notices := agent.NewNoticeBoard(50)
	delivery := agent.NewDeliveryTracker()
	session := controller.NewSession(client, store, keys, cfg.WSURL, nil, notices, logger)
	orders := controller.NewOrders(client, store, delivery, notices, logger)

	opts := agent.Options{
		ETACache:        eta.NewCache(time.Minute),
		DefaultSpeedMps: cfg.DefaultSpeedMps,
	}
	if cfg.OSRMEndpoint != "" {
		opts.ETAClient = eta.NewOSRMClient(cfg.OSRMEndpoint)
	}
	srv := agent.NewServer(store, orders, session, notices, delivery, opts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// restore the previous session before taking control requests
	session.Bootstrap(ctx)

	httpSrv := &http.Server{
		Addr:         cfg.ControlAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("driver agent listening", "addr", cfg.ControlAddr, "api", cfg.APIURL)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("control server failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
	logger.Info("driver agent stopped")
}
