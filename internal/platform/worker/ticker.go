// Package worker runs background tasks on a fixed interval until the context is canceled.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	logFieldWorker = "worker"

	errFmtTickerLoop = "ticker loop %s: %w"
)

var errNonPositiveInterval = errors.New("ticker interval must be positive")

// TickerConfig configures a single-ticker loop.
type TickerConfig struct {
	// Name identifies the worker for logging.
	Name string

	// Interval is the ticker interval.
	Interval time.Duration

	// OnTick is called when the ticker fires. Ticks never overlap.
	OnTick func(ctx context.Context)

	// RunOnStart runs OnTick immediately when starting.
	RunOnStart bool

	// Logger for the worker.
	Logger *zerolog.Logger
}

// TickerLoop runs OnTick every Interval. It returns a wrapped context error once ctx is canceled.
func TickerLoop(ctx context.Context, cfg TickerConfig) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf(errFmtTickerLoop, cfg.Name, errNonPositiveInterval)
	}

	logger := getLogger(cfg.Logger)
	logger.Info().Str(logFieldWorker, cfg.Name).Dur("interval", cfg.Interval).Msg("starting ticker loop")

	defer logger.Info().Str(logFieldWorker, cfg.Name).Msg("ticker loop stopped")

	if cfg.RunOnStart {
		runTick(ctx, cfg, logger)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf(errFmtTickerLoop, cfg.Name, ctx.Err())
		case <-ticker.C:
			runTick(ctx, cfg, logger)
		}
	}
}

// runTick calls OnTick, converting a panic into a log entry so the loop survives it.
func runTick(ctx context.Context, cfg TickerConfig, logger *zerolog.Logger) {
	if cfg.OnTick == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str(logFieldWorker, cfg.Name).Interface("panic", r).Msg("ticker task panicked")
		}
	}()

	cfg.OnTick(ctx)
}

// getLogger returns the provided logger or a nop logger if nil.
func getLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}
