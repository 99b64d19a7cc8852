package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
)

// SentMessage is one recorded SendText call.
type SentMessage struct {
	ChatID  int64
	Text    string
	ReplyTo int
}

// ModerationCall is one recorded moderation call.
type ModerationCall struct {
	Kind   domain.ModerationKind
	ChatID int64
	UserID int64
	Until  time.Time
	Caps   domain.AdminCapabilities
}

type memberKey struct {
	chatID int64
	userID int64
}

// Messenger is a recording implementation of ports.Messenger and ports.WebhookRegistrar.
type Messenger struct {
	mu          sync.Mutex
	sent        []SentMessage
	typing      []int64
	lookups     []memberKey
	moderations []ModerationCall
	members     map[memberKey]domain.MemberStatus
	failChats   map[int64]bool
	webhooks    []string

	// ModerationErr, when set, is returned by every moderation call.
	ModerationErr error

	// LookupErr, when set, is returned by GetChatMember.
	LookupErr error

	// SendTextFn allows overriding SendText behavior.
	SendTextFn func(ctx context.Context, chatID int64, text string, replyTo int) error
}

// NewMessenger creates an empty recording messenger.
func NewMessenger() *Messenger {
	return &Messenger{
		members:   make(map[memberKey]domain.MemberStatus),
		failChats: make(map[int64]bool),
	}
}

// SetMember configures the status returned by GetChatMember.
func (m *Messenger) SetMember(chatID, userID int64, status domain.MemberStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.members[memberKey{chatID: chatID, userID: userID}] = status
}

// FailSendsTo makes SendText fail for chatID.
func (m *Messenger) FailSendsTo(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failChats[chatID] = true
}

// SendText records a text message.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, replyTo int) error {
	if m.SendTextFn != nil {
		if err := m.SendTextFn(ctx, chatID, text, replyTo); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failChats[chatID] {
		return ErrSendFailed
	}

	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text, ReplyTo: replyTo})

	return nil
}

// SendTyping records a typing indicator.
func (m *Messenger) SendTyping(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.typing = append(m.typing, chatID)

	return nil
}

// GetChatMember returns the configured member status, defaulting to a plain member.
func (m *Messenger) GetChatMember(_ context.Context, chatID, userID int64) (domain.MemberStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memberKey{chatID: chatID, userID: userID}
	m.lookups = append(m.lookups, key)

	if m.LookupErr != nil {
		return domain.MemberStatus{}, m.LookupErr
	}

	status, ok := m.members[key]
	if !ok {
		return domain.MemberStatus{Status: domain.MemberStatusMember}, nil
	}

	return status, nil
}

// BanMember records a ban.
func (m *Messenger) BanMember(_ context.Context, chatID, userID int64) error {
	return m.recordModeration(ModerationCall{Kind: domain.ModerationKick, ChatID: chatID, UserID: userID})
}

// RestrictMember records a restriction.
func (m *Messenger) RestrictMember(_ context.Context, chatID, userID int64, until time.Time) error {
	return m.recordModeration(ModerationCall{Kind: domain.ModerationMute, ChatID: chatID, UserID: userID, Until: until})
}

// PromoteMember records a promotion.
func (m *Messenger) PromoteMember(_ context.Context, chatID, userID int64, caps domain.AdminCapabilities) error {
	return m.recordModeration(ModerationCall{Kind: domain.ModerationPromote, ChatID: chatID, UserID: userID, Caps: caps})
}

// SetWebhook records a webhook registration.
func (m *Messenger) SetWebhook(_ context.Context, url, _ string) (ports.WebhookResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.webhooks = append(m.webhooks, url)

	return ports.WebhookResult{OK: true, Description: "Webhook was set", URL: url}, nil
}

func (m *Messenger) recordModeration(call ModerationCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.moderations = append(m.moderations, call)

	return m.ModerationErr
}

// Sent returns a snapshot of recorded text messages.
func (m *Messenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)

	return out
}

// Moderations returns a snapshot of recorded moderation calls.
func (m *Messenger) Moderations() []ModerationCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ModerationCall, len(m.moderations))
	copy(out, m.moderations)

	return out
}

// LookupCount returns how many member lookups were made.
func (m *Messenger) LookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.lookups)
}

// LookupsFor returns how many member lookups targeted userID.
func (m *Messenger) LookupsFor(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0

	for _, k := range m.lookups {
		if k.userID == userID {
			count++
		}
	}

	return count
}

// TypingCount returns how many typing indicators were sent.
func (m *Messenger) TypingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.typing)
}

// Webhooks returns recorded webhook URLs.
func (m *Messenger) Webhooks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.webhooks))
	copy(out, m.webhooks)

	return out
}

var (
	_ ports.Messenger        = (*Messenger)(nil)
	_ ports.WebhookRegistrar = (*Messenger)(nil)
)
