package bot

import (
	"regexp"
	"strings"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

// IntentKind is the classified purpose of a message.
type IntentKind string

const (
	IntentNone           IntentKind = "none"
	IntentAdministrative IntentKind = "administrative"
	IntentModeration     IntentKind = "moderation"
	IntentConversational IntentKind = "conversational"
)

// Intent is the result of classifying one message.
type Intent struct {
	Kind       IntentKind
	Command    string
	Moderation domain.ModerationKind
}

// ModerationRulesVersion identifies the rule table below. Bump it when patterns change.
const ModerationRulesVersion = 2

type moderationRule struct {
	kind    domain.ModerationKind
	pattern *regexp.Regexp
}

// moderationRules is evaluated in order and the first match wins, so kick beats mute beats promote.
// Alternatives are whole words so that "banao" does not read as "ban".
var moderationRules = []moderationRule{
	{
		kind:    domain.ModerationKick,
		pattern: regexp.MustCompile(`(?i)\b(?:nikal(?:o|do)?|bhaga(?:o|do)?|ban|kick|terminate|remove|grouk)\b`),
	},
	{
		kind:    domain.ModerationMute,
		pattern: regexp.MustCompile(`(?i)\b(?:muh\s+(?:bnd|band)|chup|shant|mute|silent)\b`),
	},
	{
		kind:    domain.ModerationPromote,
		pattern: regexp.MustCompile(`(?i)\b(?:admin\s+(?:bnado|banado|banao|bnao|bana\s+do)|make\s+admin|promote|mod)\b`),
	},
}

// ClassifyModeration returns the first moderation rule matching text.
func ClassifyModeration(text string) (domain.ModerationKind, bool) {
	for _, rule := range moderationRules {
		if rule.pattern.MatchString(text) {
			return rule.kind, true
		}
	}

	return "", false
}

// ParseCommand recognizes an administrative command at the very start of text.
// Matching is case-sensitive. A "/cmd@handle" suffix is accepted only for the bot's own handle.
func ParseCommand(text, botHandle string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	token := text[1:]
	if i := strings.IndexAny(token, " \t\n"); i >= 0 {
		token = token[:i]
	}

	name, addressee, addressed := strings.Cut(token, "@")
	if addressed && (botHandle == "" || !sameHandle(addressee, botHandle)) {
		return "", false
	}

	if _, ok := commandTexts[name]; !ok {
		return "", false
	}

	return name, true
}

// Classify runs the administrative, trigger and moderation checks in order.
// Administrative commands bypass the trigger. Moderation rules apply in every chat kind.
func Classify(msg domain.InboundMessage, trigger *Trigger, botHandle string) Intent {
	if name, ok := ParseCommand(msg.Text, botHandle); ok {
		return Intent{Kind: IntentAdministrative, Command: name}
	}

	if !trigger.ShouldRespond(msg) {
		return Intent{Kind: IntentNone}
	}

	if kind, ok := ClassifyModeration(msg.Text); ok {
		return Intent{Kind: IntentModeration, Moderation: kind}
	}

	return Intent{Kind: IntentConversational}
}
