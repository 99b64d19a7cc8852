package admin

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
	"github.com/lueurxax/ekki-bot/internal/platform/htmlutils"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// Broadcast audiences.
const (
	TargetUsers  = "users"
	TargetGroups = "groups"
	TargetAll    = "all"
)

const (
	defaultBroadcastLimit   = 500
	defaultBroadcastWorkers = 4
	defaultBroadcastRPS     = 25
)

// BroadcastResult counts deliveries. A failed recipient never stops the others.
type BroadcastResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Broadcaster fans a message out to stored identities with bounded concurrency and a global send rate.
type Broadcaster struct {
	messenger ports.Messenger
	limit     int
	workers   int
	limiter   *rate.Limiter
	logger    *zerolog.Logger
}

// NewBroadcaster creates a broadcaster from configuration.
func NewBroadcaster(cfg config.BroadcastConfig, messenger ports.Messenger, logger *zerolog.Logger) *Broadcaster {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultBroadcastLimit
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultBroadcastWorkers
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultBroadcastRPS
	}

	return &Broadcaster{
		messenger: messenger,
		limit:     limit,
		workers:   workers,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		logger:    logger,
	}
}

// Recipients lists unblocked identities for target, most recently seen first, capped at the configured limit.
func (b *Broadcaster) Recipients(ctx context.Context, repo ports.IdentityStore, target string) ([]domain.Identity, error) {
	var kinds []domain.IdentityKind

	switch target {
	case TargetUsers, "":
		kinds = []domain.IdentityKind{domain.IdentityUser}
	case TargetGroups:
		kinds = []domain.IdentityKind{domain.IdentityGroup}
	case TargetAll:
		kinds = []domain.IdentityKind{domain.IdentityUser, domain.IdentityGroup}
	default:
		return nil, fmt.Errorf("broadcast target %q: %w", target, errInvalidTarget)
	}

	unblocked := false

	var out []domain.Identity

	for _, kind := range kinds {
		remaining := b.limit - len(out)
		if remaining <= 0 {
			break
		}

		ids, err := repo.ListRecentIdentities(ctx, domain.IdentityFilter{Kind: kind, Blocked: &unblocked}, remaining)
		if err != nil {
			return nil, fmt.Errorf("list %s recipients: %w", kind, err)
		}

		out = append(out, ids...)
	}

	return out, nil
}

// Send delivers message to every recipient. Operator markup is reduced to the tags Telegram accepts.
func (b *Broadcaster) Send(ctx context.Context, message string, recipients []domain.Identity) BroadcastResult {
	text := htmlutils.SanitizeHTML(message)

	var sent, failed atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(b.workers)

	for _, rcpt := range recipients {
		g.Go(func() error {
			kind := string(rcpt.Kind)

			if err := b.limiter.Wait(ctx); err != nil {
				failed.Add(1)
				observability.BroadcastMessages.WithLabelValues(kind, observability.StatusError).Inc()

				return nil
			}

			if err := b.messenger.SendText(ctx, rcpt.ExternalID, text, 0); err != nil {
				failed.Add(1)
				observability.BroadcastMessages.WithLabelValues(kind, observability.StatusError).Inc()
				b.logger.Debug().Err(err).Int64("chat_id", rcpt.ExternalID).Msg("broadcast delivery failed")

				return nil
			}

			sent.Add(1)
			observability.BroadcastMessages.WithLabelValues(kind, observability.StatusSuccess).Inc()

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	res := BroadcastResult{Sent: int(sent.Load()), Failed: int(failed.Load())}
	b.logger.Info().Int("sent", res.Sent).Int("failed", res.Failed).Msg("broadcast finished")

	return res
}
