package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
	"github.com/lueurxax/ekki-bot/internal/core/ports/mocks"
)

var errDialRefused = errors.New("dial tcp: connection refused")

type closableRepo struct {
	*mocks.Repository
	closed bool
}

func (c *closableRepo) Close() {
	c.closed = true
}

func TestGateway_ConnectsOnceAndReuses(t *testing.T) {
	logger := zerolog.Nop()
	repo := mocks.NewRepository()
	calls := 0

	g := NewGateway(func(context.Context) (ports.Repository, error) {
		calls++

		return repo, nil
	}, GatewayOptions{}, &logger)

	first, err := g.Acquire(context.Background())
	require.NoError(t, err)

	second, err := g.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestGateway_ConcurrentAcquireConnectsOnce(t *testing.T) {
	logger := zerolog.Nop()
	repo := mocks.NewRepository()

	var (
		mu    sync.Mutex
		calls int
	)

	g := NewGateway(func(context.Context) (ports.Repository, error) {
		mu.Lock()
		calls++
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		return repo, nil
	}, GatewayOptions{}, &logger)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := g.Acquire(context.Background())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestGateway_CooldownAfterFailure(t *testing.T) {
	logger := zerolog.Nop()
	repo := mocks.NewRepository()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	fail := true

	g := NewGateway(func(context.Context) (ports.Repository, error) {
		calls++

		if fail {
			return nil, errDialRefused
		}

		return repo, nil
	}, GatewayOptions{ReconnectCooldown: 30 * time.Second}, &logger)
	g.now = func() time.Time { return now }

	_, err := g.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrStorageUnavailable))
	assert.True(t, errors.Is(err, errDialRefused))

	fail = false

	// Inside the cooldown window no new attempt is made.
	now = now.Add(10 * time.Second)
	_, err = g.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(25 * time.Second)
	got, err := g.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, repo, got)
	assert.Equal(t, 2, calls)
}

func TestGateway_HangingConnectDoesNotBlockCallers(t *testing.T) {
	logger := zerolog.Nop()
	release := make(chan struct{})

	var (
		mu    sync.Mutex
		calls int
	)

	g := NewGateway(func(ctx context.Context) (ports.Repository, error) {
		mu.Lock()
		calls++
		mu.Unlock()

		select {
		case <-release:
			return nil, errDialRefused
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, GatewayOptions{ConnectTimeout: time.Minute}, &logger)

	defer close(release)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		start := time.Now()

		_, err := g.Acquire(ctx)

		cancel()

		require.Error(t, err)
		assert.True(t, errors.Is(err, coreerrors.ErrStorageUnavailable))
		assert.Less(t, time.Since(start), time.Second)
	}

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 1, calls)
}

func TestGateway_CloseDuringConnectReleasesLateRepository(t *testing.T) {
	logger := zerolog.Nop()
	repo := &closableRepo{Repository: mocks.NewRepository()}
	release := make(chan struct{})

	g := NewGateway(func(context.Context) (ports.Repository, error) {
		<-release

		return repo, nil
	}, GatewayOptions{}, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	_, err := g.Acquire(ctx)

	cancel()
	require.Error(t, err)

	g.Close()
	close(release)

	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()

		return g.pending == nil
	}, time.Second, time.Millisecond)

	assert.True(t, repo.closed)

	_, err = g.Acquire(context.Background())
	assert.True(t, errors.Is(err, errGatewayClosed))
}

func TestGateway_ReadyPingsRepository(t *testing.T) {
	logger := zerolog.Nop()
	repo := mocks.NewRepository()
	repo.PingFn = func(context.Context) error { return errDialRefused }

	g := NewGateway(func(context.Context) (ports.Repository, error) {
		return repo, nil
	}, GatewayOptions{}, &logger)

	err := g.Ready(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDialRefused))
}

func TestGateway_CloseReleasesRepository(t *testing.T) {
	logger := zerolog.Nop()
	repo := &closableRepo{Repository: mocks.NewRepository()}

	g := NewGateway(func(context.Context) (ports.Repository, error) {
		return repo, nil
	}, GatewayOptions{}, &logger)

	_, err := g.Acquire(context.Background())
	require.NoError(t, err)

	g.Close()

	assert.True(t, repo.closed)
}

func TestNewPostgresGateway_EmptyDSNDisabled(t *testing.T) {
	logger := zerolog.Nop()
	g := NewPostgresGateway("", DefaultPoolOptions(), GatewayOptions{}, &logger)

	_, err := g.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrClientDisabled))
	assert.True(t, errors.Is(err, coreerrors.ErrStorageUnavailable))
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "namaste 🙏", SanitizeUTF8("namaste 🙏"))
	assert.Equal(t, "ab", SanitizeUTF8("a\xffb"))
	assert.Equal(t, "", SanitizeUTF8(""))
}

func TestUUIDRoundTrip(t *testing.T) {
	id := "6f1c2a44-8a55-4a3e-9f0e-2b7d2b1d9c11"

	assert.Equal(t, id, fromUUID(toUUID(id)))
	assert.False(t, toUUID("not-a-uuid").Valid)
}
