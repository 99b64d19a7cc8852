package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
)

// Connector opens a repository. The returned repository may implement Close.
type Connector func(ctx context.Context) (ports.Repository, error)

// GatewayOptions configures lazy connection behaviour.
type GatewayOptions struct {
	ConnectTimeout    time.Duration
	ReconnectCooldown time.Duration
}

// Gateway establishes a single shared repository on first use and reuses it afterwards.
// Connection attempts run in the background: callers wait only as long as their own context
// allows, and a failed attempt is not retried until the cooldown elapses.
type Gateway struct {
	connect Connector
	opts    GatewayOptions
	logger  *zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	repo       ports.Repository
	pending    *attempt
	retryAfter time.Time
	lastErr    error
	closed     bool
}

// attempt is one in-flight connection. repo and err are set before done is closed.
type attempt struct {
	done chan struct{}
	repo ports.Repository
	err  error
}

// NewGateway creates a gateway over an arbitrary connector.
func NewGateway(connect Connector, opts GatewayOptions, logger *zerolog.Logger) *Gateway {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	if opts.ReconnectCooldown <= 0 {
		opts.ReconnectCooldown = defaultReconnectCooldown
	}

	return &Gateway{
		connect: connect,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// NewPostgresGateway creates a gateway that connects to PostgreSQL and applies migrations on connect.
// An empty DSN yields a gateway whose Acquire always fails with ErrClientDisabled.
func NewPostgresGateway(dsn string, pool PoolOptions, opts GatewayOptions, logger *zerolog.Logger) *Gateway {
	if dsn == "" {
		return NewGateway(func(context.Context) (ports.Repository, error) {
			return nil, errors.ErrClientDisabled
		}, opts, logger)
	}

	pool.ConnectRetries = 1

	return NewGateway(func(ctx context.Context) (ports.Repository, error) {
		database, err := NewWithOptions(ctx, dsn, pool, logger)
		if err != nil {
			return nil, err
		}

		if err := database.Migrate(ctx); err != nil {
			database.Close()

			return nil, err
		}

		return database, nil
	}, opts, logger)
}

// Acquire returns the shared repository, starting a connection attempt if none is running.
// It returns ErrStorageUnavailable as soon as ctx is done, even while the attempt continues.
func (g *Gateway) Acquire(ctx context.Context) (ports.Repository, error) {
	g.mu.Lock()

	if g.repo != nil {
		repo := g.repo
		g.mu.Unlock()

		return repo, nil
	}

	if g.closed {
		g.mu.Unlock()

		return nil, fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, errGatewayClosed)
	}

	a := g.pending
	if a == nil {
		if now := g.now(); now.Before(g.retryAfter) {
			err := fmt.Errorf("%w: retry after %s: %w", errors.ErrStorageUnavailable, g.retryAfter.Format(time.RFC3339), g.lastErr)
			g.mu.Unlock()

			return nil, err
		}

		a = &attempt{done: make(chan struct{})}
		g.pending = a

		go g.run(a)
	}

	g.mu.Unlock()

	select {
	case <-a.done:
		if a.err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, a.err)
		}

		return a.repo, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: connection in progress: %w", errors.ErrStorageUnavailable, ctx.Err())
	}
}

// run performs one connection attempt detached from any caller.
func (g *Gateway) run(a *attempt) {
	//nolint:contextcheck // the attempt outlives the caller that started it
	ctx, cancel := context.WithTimeout(context.Background(), g.opts.ConnectTimeout)
	repo, err := g.connect(ctx)

	cancel()

	g.mu.Lock()

	g.pending = nil

	switch {
	case err != nil:
		g.lastErr = err
		g.retryAfter = g.now().Add(g.opts.ReconnectCooldown)

		if !errors.Is(err, errors.ErrClientDisabled) {
			g.logger.Warn().Err(err).Time(logFieldRetryAfter, g.retryAfter).Msg("storage connection failed")
		}
	case g.closed:
		closeRepository(repo)

		repo, err = nil, errGatewayClosed
	default:
		g.repo = repo
		g.lastErr = nil
		g.logger.Info().Msg("storage connected")
	}

	a.repo, a.err = repo, err

	g.mu.Unlock()
	close(a.done)
}

// Ready reports whether a repository is connected and reachable.
func (g *Gateway) Ready(ctx context.Context) error {
	repo, err := g.Acquire(ctx)
	if err != nil {
		return err
	}

	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("ping repository: %w", err)
	}

	return nil
}

// Close releases the shared repository if one was established. An attempt still running is
// closed when it completes.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	closeRepository(g.repo)

	g.repo = nil
	g.closed = true
}

func closeRepository(repo ports.Repository) {
	if closer, ok := repo.(interface{ Close() }); ok {
		closer.Close()
	}
}

var (
	_ ports.RepositoryProvider = (*Gateway)(nil)
	_ ports.Repository         = (*DB)(nil)
)
