package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// Update sources used as metric labels.
const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
)

const (
	pollTimeoutSeconds = 60
	defaultPollWorkers = 8
)

// MessageHandler processes one converted inbound message.
type MessageHandler func(ctx context.Context, msg domain.InboundMessage)

// Deliver converts an update and hands it to handler. It reports whether the update was handled.
func Deliver(ctx context.Context, update tgbotapi.Update, source string, handler MessageHandler, logger *zerolog.Logger) bool {
	observability.UpdatesReceived.WithLabelValues(source).Inc()

	msg, skip := ToInbound(update, time.Now())
	if skip != "" {
		observability.UpdatesRejected.WithLabelValues(skip).Inc()
		logger.Debug().Int("update_id", update.UpdateID).Str("reason", skip).Msg("update skipped")

		return false
	}

	handler(ctx, msg)

	return true
}

// Poller receives updates with long polling instead of a webhook.
type Poller struct {
	messenger *Messenger
	handler   MessageHandler
	logger    *zerolog.Logger
	workers   int
}

// NewPoller creates a long-polling loop. Updates are handled concurrently by up to workers goroutines.
func NewPoller(messenger *Messenger, handler MessageHandler, workers int, logger *zerolog.Logger) *Poller {
	if workers <= 0 {
		workers = defaultPollWorkers
	}

	return &Poller{messenger: messenger, handler: handler, logger: logger, workers: workers}
}

// Run deletes any registered webhook and polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.messenger.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("disable webhook before polling: %w", err)
	}

	api := p.messenger.API()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	u.AllowedUpdates = []string{"message"}

	updates := api.GetUpdatesChan(u)

	g := &errgroup.Group{}
	g.SetLimit(p.workers)

	p.logger.Info().Str("bot", api.Self.UserName).Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()

			_ = g.Wait() //nolint:errcheck // workers never return errors

			return fmt.Errorf("poller context canceled: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				_ = g.Wait() //nolint:errcheck // workers never return errors

				return nil
			}

			g.Go(func() error {
				Deliver(ctx, update, SourcePoll, p.handler, p.logger)

				return nil
			})
		}
	}
}
