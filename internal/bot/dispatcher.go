// Package bot routes inbound chat messages: it decides whether to answer, classifies the intent,
// runs moderation through the authorization gate and produces persona replies.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/llm"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// Settings configures a Dispatcher.
type Settings struct {
	Bot         domain.BotIdentity
	Persona     config.PersonaConfig
	Moderation  config.ModerationConfig
	PromoteCaps domain.AdminCapabilities
	// CompletionTimeout is the hard budget after which the fallback reply is sent.
	CompletionTimeout time.Duration
	HistoryLimit      int
	Temperature       float32
	MaxTokens         int
}

// Dispatcher handles one inbound message at a time and is safe for concurrent use.
type Dispatcher struct {
	settings  Settings
	trigger   *Trigger
	authz     *Authorizer
	persona   *Persona
	commands  *commandRegistry
	store     *recorder
	messenger ports.Messenger
	completer llm.Client
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewDispatcher wires the routing pipeline.
func NewDispatcher(s Settings, store ports.RepositoryProvider, messenger ports.Messenger, completer llm.Client, logger *zerolog.Logger) (*Dispatcher, error) {
	trigger, err := NewTrigger(s.Bot, s.Moderation.NameTriggers)
	if err != nil {
		return nil, err
	}

	if s.CompletionTimeout <= 0 {
		s.CompletionTimeout = defaultCompletionTimeout
	}

	persona := NewPersona(s.Persona, s.Bot.Handle, s.Moderation.MuteDuration)

	return &Dispatcher{
		settings:  s,
		trigger:   trigger,
		authz:     NewAuthorizer(s.Moderation.OwnerID, s.Bot.ID, messenger, logger),
		persona:   persona,
		commands:  newCommandRegistry(persona),
		store:     &recorder{provider: store, logger: logger},
		messenger: messenger,
		completer: completer,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Handle processes msg to completion. The inbound record is written concurrently with the
// response path and its failures never reach the chat.
func (d *Dispatcher) Handle(ctx context.Context, msg domain.InboundMessage) Outcome {
	start := d.now()

	var persisted sync.WaitGroup

	var blocked bool

	if d.settings.Moderation.LogBlocked {
		d.persistInbound(ctx, msg, &persisted)
		blocked = d.isBlocked(ctx, msg)
	} else {
		blocked = d.isBlocked(ctx, msg)
		if !blocked {
			d.persistInbound(ctx, msg, &persisted)
		}
	}

	out := d.decide(ctx, msg, blocked)
	d.deliver(ctx, msg, &out)

	persisted.Wait()

	observability.DispatchOutcomes.WithLabelValues(string(out.Kind)).Inc()
	observability.DispatchDuration.Observe(d.now().Sub(start).Seconds())

	d.logger.Debug().
		Int64(logFieldChatID, msg.ChatID).
		Int64(logFieldUserID, msg.Sender.ID).
		Str(logFieldIntent, string(out.Intent.Kind)).
		Str(logFieldOutcome, string(out.Kind)).
		Dur(logFieldElapsed, d.now().Sub(start)).
		Msg("message handled")

	return out
}

func (d *Dispatcher) decide(ctx context.Context, msg domain.InboundMessage, blocked bool) Outcome {
	intent := Classify(msg, d.trigger, d.settings.Bot.Handle)

	if blocked {
		return silent(OutcomeBlocked, intent)
	}

	switch intent.Kind {
	case IntentAdministrative:
		text, _ := d.commands.run(ctx, intent.Command, msg)
		d.logger.Info().Int64(logFieldChatID, msg.ChatID).Str(logFieldCommand, intent.Command).Msg("administrative command")

		return reply(OutcomeAdministrative, intent, text)
	case IntentModeration:
		return d.moderate(ctx, msg, intent)
	case IntentConversational:
		return d.converse(ctx, msg, intent)
	default:
		return silent(OutcomeIgnored, intent)
	}
}

func (d *Dispatcher) moderate(ctx context.Context, msg domain.InboundMessage, intent Intent) Outcome {
	target := msg.ReplyTarget
	if target == nil {
		d.logger.Debug().Int64(logFieldChatID, msg.ChatID).Str(logFieldIntent, string(intent.Moderation)).Msg("moderation without target")

		return reply(OutcomeMissingTarget, intent, d.persona.Clarify())
	}

	action := &domain.ModerationIntent{Kind: intent.Moderation, TargetID: target.SenderID, RequesterID: msg.Sender.ID}

	out := func(kind OutcomeKind, text string) Outcome {
		o := reply(kind, intent, text)
		o.Moderation = action

		return o
	}

	if !d.authz.RequesterAuthorized(ctx, msg.ChatID, msg.Sender.ID) {
		d.logger.Info().Int64(logFieldChatID, msg.ChatID).Int64(logFieldUserID, msg.Sender.ID).Msg("moderation refused")
		observability.ModerationActions.WithLabelValues(string(action.Kind), string(OutcomeUnauthorized)).Inc()

		return out(OutcomeUnauthorized, d.persona.Refuse())
	}

	if !d.authz.BotCan(ctx, msg.ChatID, action.Kind) {
		observability.ModerationActions.WithLabelValues(string(action.Kind), string(OutcomeBotNotPrivileged)).Inc()

		return out(OutcomeBotNotPrivileged, d.persona.NeedPrivileges())
	}

	name := targetName(target)

	if err := d.execute(ctx, msg.ChatID, action); err != nil {
		d.logger.Warn().Err(err).
			Int64(logFieldChatID, msg.ChatID).
			Int64(logFieldTargetID, action.TargetID).
			Str(logFieldIntent, string(action.Kind)).
			Msg("moderation call rejected")
		observability.ModerationActions.WithLabelValues(string(action.Kind), observability.StatusError).Inc()

		return out(OutcomeModerationFailed, d.persona.ModerationFailed(name))
	}

	d.logger.Info().
		Int64(logFieldChatID, msg.ChatID).
		Int64(logFieldUserID, action.RequesterID).
		Int64(logFieldTargetID, action.TargetID).
		Str(logFieldIntent, string(action.Kind)).
		Msg("moderation executed")
	observability.ModerationActions.WithLabelValues(string(action.Kind), observability.StatusSuccess).Inc()

	return out(OutcomeModerated, d.persona.Confirm(action.Kind, name))
}

func (d *Dispatcher) execute(ctx context.Context, chatID int64, action *domain.ModerationIntent) error {
	switch action.Kind {
	case domain.ModerationKick:
		return d.messenger.BanMember(ctx, chatID, action.TargetID)
	case domain.ModerationMute:
		return d.messenger.RestrictMember(ctx, chatID, action.TargetID, d.now().Add(d.settings.Moderation.MuteDuration))
	case domain.ModerationPromote:
		return d.messenger.PromoteMember(ctx, chatID, action.TargetID, d.settings.PromoteCaps)
	default:
		return fmt.Errorf("moderation %q: %w", action.Kind, errors.ErrInvalidInput)
	}
}

type completion struct {
	result llm.Result
	err    error
}

func (d *Dispatcher) converse(ctx context.Context, msg domain.InboundMessage, intent Intent) Outcome {
	_ = d.messenger.SendTyping(ctx, msg.ChatID) //nolint:errcheck // typing indicator is best-effort

	req := llm.Request{
		History:     d.history(ctx, msg),
		Message:     msg.Text,
		Temperature: d.settings.Temperature,
		MaxTokens:   d.settings.MaxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, d.settings.CompletionTimeout)
	defer cancel()

	// Buffered so a result arriving after the deadline is dropped without blocking the sender.
	done := make(chan completion, 1)

	go func() {
		res, err := d.completer.Complete(callCtx, req)
		done <- completion{result: res, err: err}
	}()

	var c completion

	select {
	case c = <-done:
	case <-callCtx.Done():
		c = completion{err: fmt.Errorf("completion deadline: %w", errors.ErrCompletionTimeout)}
	}

	switch {
	case c.err == nil && c.result.Refused:
		d.logger.Info().Int64(logFieldChatID, msg.ChatID).Str("reason", c.result.Reason).Msg("completion refused")

		return reply(OutcomeRefused, intent, d.persona.Decline())
	case c.err == nil:
		o := reply(OutcomeReplied, intent, d.persona.Completion(c.result.Text))
		o.BotText = c.result.Text

		return o
	case errors.Is(c.err, errors.ErrClientDisabled):
		return reply(OutcomeUnconfigured, intent, d.persona.Unconfigured())
	case errors.Is(c.err, errors.ErrEmptyResponse):
		return reply(OutcomeFallback, intent, d.persona.SignalWeak())
	case errors.Is(c.err, errors.ErrCompletionTimeout):
		d.logger.Warn().Err(c.err).Int64(logFieldChatID, msg.ChatID).Msg("completion timed out")

		return reply(OutcomeFallback, intent, d.persona.TimedOut())
	default:
		d.logger.Warn().Err(c.err).Int64(logFieldChatID, msg.ChatID).Msg("completion failed")

		return reply(OutcomeFallback, intent, d.persona.BrainFreeze())
	}
}

func (d *Dispatcher) history(ctx context.Context, msg domain.InboundMessage) []llm.Turn {
	if d.settings.HistoryLimit <= 0 {
		return nil
	}

	var entries []domain.InteractionLogEntry

	d.store.lookup(ctx, opRecentLogs, func(ctx context.Context, repo ports.Repository) error {
		var err error

		entries, err = repo.RecentLogs(ctx, msg.ChatID, msg.ReceivedAt, d.settings.HistoryLimit)

		return err
	})

	turns := make([]llm.Turn, 0, len(entries))

	for _, e := range entries {
		role := llm.RoleUser
		if e.Originator == domain.OriginatorBot {
			role = llm.RoleAssistant
		}

		turns = append(turns, llm.Turn{Role: role, Text: e.Text})
	}

	return turns
}

// deliver is the single send site. A failed send is logged and leaves Delivered false.
func (d *Dispatcher) deliver(ctx context.Context, msg domain.InboundMessage, out *Outcome) {
	if out.Silent() {
		return
	}

	if err := d.messenger.SendText(ctx, msg.ChatID, out.Reply, msg.MessageID); err != nil {
		d.logger.Warn().Err(err).Int64(logFieldChatID, msg.ChatID).Str(logFieldOutcome, string(out.Kind)).Msg("reply not delivered")

		return
	}

	out.Delivered = true

	if out.BotText == "" {
		return
	}

	entry := domain.InteractionLogEntry{
		ChatID:     msg.ChatID,
		ActorID:    domain.BotActorID,
		Text:       out.BotText,
		Originator: domain.OriginatorBot,
		Timestamp:  maxTime(d.now(), msg.ReceivedAt.Add(time.Millisecond)),
	}

	d.store.do(ctx, opAppendLog, func(ctx context.Context, repo ports.Repository) error {
		return repo.AppendLog(ctx, entry)
	})
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}

	return b
}
