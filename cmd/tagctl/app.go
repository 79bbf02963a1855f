package main

import (
	"context"

	"github.com/rs/zerolog"

	"tagpay/internal/application"
	"tagpay/internal/config"
	"tagpay/internal/infra/logging"
)

type globalOpts struct {
	configPath string
	actor      string
	dev        bool
}

// withApp builds the service container, runs fn and drains pending audit
// stream jobs before returning.
func withApp(ctx context.Context, opts *globalOpts, fn func(app *application.Container) error) error {
	cfg, err := config.LoadConfig(opts.configPath, opts.dev)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if !cfg.Runtime.Dev {
		l := logger.Level(zerolog.WarnLevel)
		logger = &l
	}

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		_ = app.Close()
		return err
	}
	app.Start(ctx)

	runErr := fn(app)
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
