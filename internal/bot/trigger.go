package bot

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/errors"
)

// Trigger decides whether a message addresses the bot.
type Trigger struct {
	bot   domain.BotIdentity
	names *regexp.Regexp
}

// NewTrigger builds a trigger for the bot identity and its name words.
// Name words match case-insensitively as whole words.
func NewTrigger(bot domain.BotIdentity, nameTriggers []string) (*Trigger, error) {
	names, err := compileNameTriggers(nameTriggers)
	if err != nil {
		return nil, err
	}

	return &Trigger{bot: bot, names: names}, nil
}

func compileNameTriggers(words []string) (*regexp.Regexp, error) {
	quoted := make([]string, 0, len(words))

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}

	if len(quoted) == 0 {
		return nil, fmt.Errorf("name triggers: %w", errors.ErrInvalidInput)
	}

	pattern := `(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}_])`

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile name triggers: %w", err)
	}

	return re, nil
}

// ShouldRespond is always true in private chats. In groups the message must mention
// the bot, contain one of its names, or reply to one of its messages.
func (t *Trigger) ShouldRespond(msg domain.InboundMessage) bool {
	if !msg.IsGroup() {
		return true
	}

	return t.mentioned(msg) || t.names.MatchString(msg.Text) || t.repliesToBot(msg.ReplyTarget)
}

func (t *Trigger) mentioned(msg domain.InboundMessage) bool {
	if t.bot.Handle == "" {
		return false
	}

	if strings.Contains(fold(msg.Text), fold("@"+t.bot.Handle)) {
		return true
	}

	for _, h := range msg.MentionedHandles {
		if sameHandle(h, t.bot.Handle) {
			return true
		}
	}

	return false
}

func (t *Trigger) repliesToBot(target *domain.ReplyTarget) bool {
	if target == nil {
		return false
	}

	if t.bot.ID != 0 && target.SenderID == t.bot.ID {
		return true
	}

	if target.SenderHandle != "" && t.bot.Handle != "" {
		return sameHandle(target.SenderHandle, t.bot.Handle)
	}

	return target.IsBot
}

// fold returns the Unicode case-folded form of s. A Caser is stateful, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func sameHandle(a, b string) bool {
	return fold(strings.TrimPrefix(a, "@")) == fold(strings.TrimPrefix(b, "@"))
}
