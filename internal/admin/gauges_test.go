package admin

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/ports/mocks"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

func TestStatsPublisher_Publish(t *testing.T) {
	logger := zerolog.Nop()
	repo := mocks.NewRepository()
	seed(repo)

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.AppendLog(context.Background(), domain.InteractionLogEntry{ChatID: 1, Text: "x", Originator: domain.OriginatorUser}))
	}

	NewStatsPublisher(mocks.StaticProvider(repo), &logger).Publish(context.Background())

	assert.InDelta(t, 2, testutil.ToFloat64(observability.AudienceSize.WithLabelValues("user", StatusActive)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(observability.AudienceSize.WithLabelValues("user", StatusBlocked)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(observability.AudienceSize.WithLabelValues("group", StatusActive)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(observability.InteractionLogsStored), 0)
}

func TestStatsPublisher_StorageUnavailableKeepsValues(t *testing.T) {
	logger := zerolog.Nop()

	observability.InteractionLogsStored.Set(7)

	NewStatsPublisher(mocks.FailingProvider(coreerrors.ErrStorageUnavailable), &logger).Publish(context.Background())

	assert.InDelta(t, 7, testutil.ToFloat64(observability.InteractionLogsStored), 0)
}
