package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/delivery-driver/internal/config"
	"github.com/example/delivery-driver/internal/logging"
	"github.com/example/delivery-driver/internal/sim"
)

func main() {
	cfg, err := config.LoadSimConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var orders sim.OrderStore = sim.NewMemoryOrders()
	if cfg.PGDSN != "" {
		pg, err := sim.NewPostgresOrders(cfg.PGDSN)
		if err != nil {
			logger.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		orders = pg
		logger.Info("using postgres order store")
	}

	var claims sim.ClaimRegistry = sim.NewMemoryClaims()
	if cfg.RedisAddr != "" {
		claims = sim.NewRedisClaims(cfg.RedisAddr, cfg.RedisPassword)
		logger.Info("using redis claim registry", "addr", cfg.RedisAddr)
	}

	var payments sim.Payments
	if cfg.StripeKey != "" {
		payments = sim.NewStripePayments(cfg.StripeKey)
		logger.Info("stripe payments enabled")
	}

	tokens := sim.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	srv := sim.NewServer(tokens, sim.NewAccounts(), orders, claims, payments,
		cfg.StripeCurrency, cfg.LoginRatePerMin, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := &sim.Generator{
		Every:     cfg.GenerateEvery,
		CenterLat: cfg.CenterLat,
		CenterLon: cfg.CenterLon,
		Logger:    logger,
	}
	go gen.Run(ctx, srv.AddOrder)

	if len(cfg.KafkaBrokers) > 0 {
		feed := &sim.KafkaFeed{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Group:   cfg.KafkaGroup,
			Logger:  logger,
		}
		go feed.Run(ctx, srv.AddOrder)
		logger.Info("kafka order feed enabled", "topic", cfg.KafkaTopic)
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sim backend listening", "addr", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
	logger.Info("sim backend stopped")
}
