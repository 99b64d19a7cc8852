package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// recorder runs best-effort persistence. Failures are counted and logged, never returned.
type recorder struct {
	provider ports.RepositoryProvider
	logger   *zerolog.Logger
}

// do runs a write with the persistence budget.
func (r *recorder) do(ctx context.Context, op string, fn func(ctx context.Context, repo ports.Repository) error) bool {
	return r.run(ctx, op, storageTimeout, fn)
}

// lookup runs a read on the reply path. Its short budget keeps an unreachable store from delaying replies.
func (r *recorder) lookup(ctx context.Context, op string, fn func(ctx context.Context, repo ports.Repository) error) bool {
	return r.run(ctx, op, lookupTimeout, fn)
}

func (r *recorder) run(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context, repo ports.Repository) error) bool {
	if r.provider == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	repo, err := r.provider.Acquire(ctx)
	if err != nil {
		// The gateway already warns once per cooldown window.
		if !errors.Is(err, errors.ErrClientDisabled) {
			observability.StorageErrors.WithLabelValues(op).Inc()
		}

		r.logger.Debug().Err(err).Str("operation", op).Msg("storage unavailable")

		return false
	}

	if err := fn(ctx, repo); err != nil {
		observability.StorageErrors.WithLabelValues(op).Inc()
		r.logger.Warn().Err(err).Str("operation", op).Msg("storage operation failed")

		return false
	}

	return true
}

// persistInbound schedules the identity upserts and the inbound log entry.
func (d *Dispatcher) persistInbound(ctx context.Context, msg domain.InboundMessage, wg *sync.WaitGroup) {
	ctx = context.WithoutCancel(ctx)

	wg.Add(1)

	go func() {
		defer wg.Done()

		d.store.do(ctx, opUpsertUser, func(ctx context.Context, repo ports.Repository) error {
			return repo.UpsertIdentity(ctx, domain.IdentityPatch{
				Kind:        domain.IdentityUser,
				ExternalID:  msg.Sender.ID,
				DisplayName: msg.Sender.DisplayName,
				Handle:      msg.Sender.Handle,
				LastSeenAt:  msg.ReceivedAt,
			})
		})

		if msg.IsGroup() {
			d.store.do(ctx, opUpsertGroup, func(ctx context.Context, repo ports.Repository) error {
				return repo.UpsertIdentity(ctx, domain.IdentityPatch{
					Kind:        domain.IdentityGroup,
					ExternalID:  msg.ChatID,
					DisplayName: msg.ChatTitle,
					LastSeenAt:  msg.ReceivedAt,
				})
			})
		}

		d.store.do(ctx, opAppendLog, func(ctx context.Context, repo ports.Repository) error {
			return repo.AppendLog(ctx, domain.InteractionLogEntry{
				ChatID:     msg.ChatID,
				ActorID:    msg.Sender.ID,
				Text:       msg.Text,
				Originator: domain.OriginatorUser,
				Timestamp:  msg.ReceivedAt,
			})
		})
	}()
}

// isBlocked reports whether the sender, or the group the message was posted in, is blocked.
// An unreachable store counts as not blocked.
func (d *Dispatcher) isBlocked(ctx context.Context, msg domain.InboundMessage) bool {
	blocked := false

	d.store.lookup(ctx, opGetIdentity, func(ctx context.Context, repo ports.Repository) error {
		user, err := repo.GetIdentity(ctx, domain.IdentityUser, msg.Sender.ID)
		if err != nil {
			return err
		}

		if user != nil && user.Blocked {
			blocked = true

			return nil
		}

		if !msg.IsGroup() {
			return nil
		}

		group, err := repo.GetIdentity(ctx, domain.IdentityGroup, msg.ChatID)
		if err != nil {
			return err
		}

		blocked = group != nil && group.Blocked

		return nil
	})

	return blocked
}
