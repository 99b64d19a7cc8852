package telegram

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

// Platform chat types.
const (
	chatTypePrivate    = "private"
	chatTypeGroup      = "group"
	chatTypeSupergroup = "supergroup"
)

// Skip reasons reported by ToInbound.
const (
	SkipNoMessage   = "no_message"
	SkipNoSender    = "no_sender"
	SkipUnsupported = "unsupported_chat"
	SkipNoText      = "no_text"
)

// ToInbound converts an update into the dispatcher's view of a message.
// It returns a non-empty skip reason for updates the bot does not handle:
// edits, channel posts, service messages and anything without text.
func ToInbound(update tgbotapi.Update, receivedAt time.Time) (domain.InboundMessage, string) {
	msg := update.Message
	if msg == nil {
		return domain.InboundMessage{}, SkipNoMessage
	}

	if msg.From == nil || msg.Chat == nil {
		return domain.InboundMessage{}, SkipNoSender
	}

	var kind domain.ChatKind

	switch msg.Chat.Type {
	case chatTypePrivate:
		kind = domain.ChatPrivate
	case chatTypeGroup, chatTypeSupergroup:
		kind = domain.ChatGroup
	default:
		return domain.InboundMessage{}, SkipUnsupported
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	if strings.TrimSpace(text) == "" {
		return domain.InboundMessage{}, SkipNoText
	}

	inbound := domain.InboundMessage{
		MessageID:  msg.MessageID,
		ChatID:     msg.Chat.ID,
		ChatKind:   kind,
		ChatTitle:  msg.Chat.Title,
		Text:       text,
		Sender:     senderOf(msg.From),
		ReceivedAt: receivedAt,
	}

	inbound.MentionedHandles = mentions(text, entitiesOf(msg))

	if replied := msg.ReplyToMessage; replied != nil && replied.From != nil {
		inbound.ReplyTarget = &domain.ReplyTarget{
			SenderID:     replied.From.ID,
			SenderHandle: replied.From.UserName,
			DisplayName:  displayName(replied.From),
			IsBot:        replied.From.IsBot,
		}
	}

	return inbound, ""
}

func senderOf(user *tgbotapi.User) domain.Sender {
	return domain.Sender{
		ID:          user.ID,
		DisplayName: displayName(user),
		Handle:      user.UserName,
		IsBot:       user.IsBot,
	}
}

func displayName(user *tgbotapi.User) string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func entitiesOf(msg *tgbotapi.Message) []tgbotapi.MessageEntity {
	if msg.Text != "" {
		return msg.Entities
	}

	return msg.CaptionEntities
}

// mentions extracts @handles. Entity offsets are counted in UTF-16 code units.
func mentions(text string, entities []tgbotapi.MessageEntity) []string {
	var out []string

	for _, e := range entities {
		if e.Type != "mention" || e.Offset < 0 || e.Length <= 1 {
			continue
		}

		start, end, ok := byteSpan(text, e.Offset, e.Offset+e.Length)
		if !ok {
			continue
		}

		out = append(out, strings.TrimPrefix(text[start:end], "@"))
	}

	return out
}

// byteSpan maps the UTF-16 unit range [from, to) onto byte offsets of text.
// Ranges that split a surrogate pair or run past the end are rejected.
func byteSpan(text string, from, to int) (int, int, bool) {
	start := -1
	units := 0

	for i, r := range text {
		if units == from {
			start = i
		}

		if units == to {
			return start, i, start >= 0
		}

		if units > to {
			return 0, 0, false
		}

		units += utf16Units(r)
	}

	if units == to && start >= 0 {
		return start, len(text), true
	}

	return 0, 0, false
}

func utf16Units(r rune) int {
	if r > 0xFFFF {
		return 2
	}

	return 1
}
