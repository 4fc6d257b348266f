package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scoutchat/internal/infra/config"
	"scoutchat/internal/infra/logger"
	"scoutchat/internal/infra/tracer"
)

const shutdownTimeout = 10 * time.Second

// app is the bootstrapped runtime shared by the subcommands: config,
// logger and telemetry, plus everything that must be closed on exit.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	closers []func(context.Context) error
}

// bootstrapOptions tweaks bootstrap for the calling subcommand.
type bootstrapOptions struct {
	// interactive keeps logs and stdout exporters off the terminal.
	interactive bool
}

func bootstrap(ctx context.Context, opts *rootOptions, bo bootstrapOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
	if bo.interactive {
		if logger.IsTerminal(cfg.Logger.Output) {
			cfg.Logger.Output = "discard"
		}
		if cfg.Tracer.Exporter == "stdout" {
			cfg.Tracer.Enabled = false
		}
		if cfg.Metrics.Exporter == "stdout" {
			cfg.Metrics.Enabled = false
		}
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.onClose(func(context.Context) error { return logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.onClose(tracerShutdown)

	metricsShutdown, err := tracer.SetupMetrics(ctx, cfg.Metrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.onClose(metricsShutdown)

	return a, nil
}

// onClose registers fn to run on Close. Closers run in reverse order.
func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close runs every registered closer, newest first.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
