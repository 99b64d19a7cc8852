package admin

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// StatsPublisher mirrors the dashboard overview into Prometheus gauges.
type StatsPublisher struct {
	store  ports.RepositoryProvider
	logger *zerolog.Logger
}

// NewStatsPublisher creates a publisher reading from store.
func NewStatsPublisher(store ports.RepositoryProvider, logger *zerolog.Logger) *StatsPublisher {
	return &StatsPublisher{store: store, logger: logger}
}

// Publish refreshes the gauges. Storage failures leave the previous values in place.
func (p *StatsPublisher) Publish(ctx context.Context) {
	repo, err := p.store.Acquire(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrClientDisabled) {
			p.logger.Debug().Err(err).Msg("stats refresh skipped")
		}

		return
	}

	s, err := CollectStats(ctx, repo)
	if err != nil {
		p.logger.Warn().Err(err).Msg("stats refresh failed")

		return
	}

	users := string(domain.IdentityUser)

	observability.AudienceSize.WithLabelValues(users, StatusBlocked).Set(float64(s.BlockedUsers))
	observability.AudienceSize.WithLabelValues(users, StatusActive).Set(float64(s.TotalUsers - s.BlockedUsers))
	observability.AudienceSize.WithLabelValues(string(domain.IdentityGroup), StatusActive).Set(float64(s.ActiveGroups))
	observability.InteractionLogsStored.Set(float64(s.TotalLogs))
}
