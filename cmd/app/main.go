// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tagpay/internal/application"
	"tagpay/internal/config"
	"tagpay/internal/infra/logging"
	"tagpay/internal/infra/metrics"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose errors)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Storage, limiter, outbound channels, use cases ----
	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		_ = app.Close()
		log.Fatalf("wiring: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()
	app.Start(ctx)

	logger.Info().
		Str("version", version).
		Str("service_domain", cfg.Payments.ServiceDomain).
		Bool("memory_store", cfg.Database.InMemory()).
		Bool("redis_limiter", !cfg.Redis.InMemory()).
		Bool("kafka_audit", cfg.Kafka.Enabled()).
		Msg("tagpay starting")

	// ---- HTTP ----
	if err := app.Server().Start(ctx); err != nil {
		logger.Error().Err(err).Msg("http server stopped")
		stop()
		return
	}
	logger.Info().Msg("shutdown complete")
}
