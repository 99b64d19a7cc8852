package bot

import (
	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

// OutcomeKind is the terminal state reached for one message.
type OutcomeKind string

const (
	OutcomeIgnored          OutcomeKind = "ignored"
	OutcomeBlocked          OutcomeKind = "blocked"
	OutcomeAdministrative   OutcomeKind = "administrative"
	OutcomeMissingTarget    OutcomeKind = "missing_target"
	OutcomeUnauthorized     OutcomeKind = "unauthorized"
	OutcomeBotNotPrivileged OutcomeKind = "bot_not_privileged"
	OutcomeModerated        OutcomeKind = "moderation_executed"
	OutcomeModerationFailed OutcomeKind = "moderation_failed"
	OutcomeReplied          OutcomeKind = "conversational_replied"
	OutcomeRefused          OutcomeKind = "completion_refused"
	OutcomeFallback         OutcomeKind = "completion_fallback"
	OutcomeUnconfigured     OutcomeKind = "completion_unconfigured"
)

// Outcome describes what the dispatcher decided for one message.
// Reply is the single HTML message to send; it is empty for Ignored and Blocked.
type Outcome struct {
	Kind       OutcomeKind
	Intent     Intent
	Moderation *domain.ModerationIntent
	Reply      string
	// BotText is the raw model output logged as a bot entry after a successful send.
	BotText string
	// Delivered is set once Reply reached the platform.
	Delivered bool
}

// Silent reports whether the outcome produces no outbound message.
func (o Outcome) Silent() bool {
	return o.Reply == ""
}

func silent(kind OutcomeKind, intent Intent) Outcome {
	return Outcome{Kind: kind, Intent: intent}
}

func reply(kind OutcomeKind, intent Intent, text string) Outcome {
	return Outcome{Kind: kind, Intent: intent, Reply: text}
}
