package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"funds-transfer/pkg/account"
	"funds-transfer/pkg/account/bloom"
	"funds-transfer/pkg/account/memory"
	"funds-transfer/pkg/api"
	"funds-transfer/pkg/config"
	"funds-transfer/pkg/logging"
	promMetrics "funds-transfer/pkg/metrics/prometheus"
	"funds-transfer/pkg/notify"
	"funds-transfer/pkg/transfer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("transferd: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	if cfg.Log.Development {
		logConfig = logging.DevelopmentConfig()
	}
	logConfig.Level = cfg.Log.Level
	logConfig.Format = cfg.Log.Format

	logger, err := logging.New(logConfig)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logger.Info("starting transferd",
		zap.String("addr", cfg.HTTP.Addr),
		zap.Strings("sinks", cfg.Notify.Sinks),
		zap.Duration("lock_timeout", cfg.Transfer.LockTimeout),
	)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := promMetrics.NewCollector(cfg.Metrics.Namespace)
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Accounts
	var store account.Store = memory.NewStore(memory.StoreConfig{
		Name:        "accounts",
		MaxAccounts: cfg.Store.MaxAccounts,
		Logger:      logger,
	})
	if cfg.Store.BloomEnabled {
		store = bloom.NewStore(store, cfg.Store.BloomExpected, cfg.Store.BloomFalsePosRate)
		logger.Info("bloom filter enabled",
			zap.Uint("expected_accounts", cfg.Store.BloomExpected),
			zap.Float64("false_positive_rate", cfg.Store.BloomFalsePosRate),
		)
	}
	defer store.Close()

	// Notifications
	sink, err := buildSink(cfg.Notify, logger, collector)
	if err != nil {
		return err
	}

	dispatcherConfig := notify.DefaultDispatcherConfig()
	dispatcherConfig.QueueSize = cfg.Notify.QueueSize
	dispatcherConfig.Workers = cfg.Notify.Workers
	dispatcherConfig.MaxWaitTime = cfg.Notify.MaxWaitTime
	dispatcherConfig.Metrics = collector
	dispatcherConfig.Logger = logger
	dispatcher := notify.NewDispatcher(sink, dispatcherConfig)

	coordinator := transfer.NewWithConfig(store, transfer.Config{
		LockTimeout: cfg.Transfer.LockTimeout,
		Notifier:    dispatcher,
		Metrics:     collector,
		Logger:      logger,
	})

	// HTTP
	server, err := api.NewServer(coordinator, api.ServerConfig{
		Address:      cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Registerer:   registry,
		Gatherer:     registry,
		Stats: func() any {
			return map[string]any{
				"accounts":      store.Len(),
				"notifications": dispatcher.Stats(),
			}
		},
		Logger: logger,
	})
	if err != nil {
		dispatcher.Close()
		return fmt.Errorf("create server: %w", err)
	}
	if err := server.Start(); err != nil {
		dispatcher.Close()
		return err
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	// Drain queued notifications before closing the sinks.
	if err := dispatcher.Close(); err != nil {
		logger.Error("notification shutdown error", zap.Error(err))
	}

	stats := dispatcher.Stats()
	logger.Info("stopped",
		zap.Int64("notifications_delivered", stats.Delivered),
		zap.Int64("notifications_failed", stats.Failed),
		zap.Int64("notifications_dropped", stats.Dropped),
	)
	return nil
}
