// Package telegram adapts the Bot API client to the ports used by the dispatcher and the admin surface.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// Bot API method names used for metrics and raw requests.
const (
	methodSendMessage     = "sendMessage"
	methodSendChatAction  = "sendChatAction"
	methodGetChatMember   = "getChatMember"
	methodBanChatMember   = "banChatMember"
	methodRestrictMember  = "restrictChatMember"
	methodPromoteMember   = "promoteChatMember"
	methodSetWebhook      = "setWebhook"
	methodDeleteWebhook   = "deleteWebhook"
	methodSetMyCommands   = "setMyCommands"
	paramURL              = "url"
	paramSecretToken      = "secret_token"
	paramAllowedUpdates   = "allowed_updates"
	allowedUpdatesMessage = `["message"]`
)

// Log field names.
const (
	logFieldChatID = "chat_id"
	logFieldMethod = "method"
)

const defaultHTTPTimeout = 30 * time.Second

// NewAPI creates a Bot API client. It calls getMe, so construction fails on an invalid token.
// An empty endpoint uses the public Bot API.
func NewAPI(token, endpoint string, httpClient *http.Client) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	return api, nil
}

// Messenger implements ports.Messenger and ports.WebhookRegistrar over the Bot API.
type Messenger struct {
	api    *tgbotapi.BotAPI
	logger *zerolog.Logger
}

// NewMessenger wraps an initialized Bot API client.
func NewMessenger(api *tgbotapi.BotAPI, logger *zerolog.Logger) *Messenger {
	return &Messenger{api: api, logger: logger}
}

// Self returns the bot account reported by getMe.
func (m *Messenger) Self() domain.BotIdentity {
	return domain.BotIdentity{ID: m.api.Self.ID, Handle: m.api.Self.UserName}
}

// API exposes the underlying client for the polling loop.
func (m *Messenger) API() *tgbotapi.BotAPI {
	return m.api
}

// SendText sends an HTML message, replying to replyToMessageID when it is non-zero.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, replyToMessageID int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if replyToMessageID != 0 {
		msg.ReplyToMessageID = replyToMessageID
		msg.AllowSendingWithoutReply = true
	}

	_, err := m.api.Send(msg)

	return m.track(methodSendMessage, chatID, err)
}

// SendTyping shows the typing indicator in a chat.
func (m *Messenger) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}

	_, err := m.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	return m.track(methodSendChatAction, chatID, err)
}

// GetChatMember reports the membership status of userID in chatID.
func (m *Messenger) GetChatMember(ctx context.Context, chatID, userID int64) (domain.MemberStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.MemberStatus{}, fmt.Errorf("get chat member: %w", err)
	}

	member, err := m.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err := m.track(methodGetChatMember, chatID, err); err != nil {
		return domain.MemberStatus{}, err
	}

	return domain.MemberStatus{
		Status:             member.Status,
		CanRestrictMembers: member.CanRestrictMembers,
		CanPromoteMembers:  member.CanPromoteMembers,
	}, nil
}

// BanMember removes userID from chatID.
func (m *Messenger) BanMember(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ban chat member: %w", err)
	}

	_, err := m.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	})

	return m.track(methodBanChatMember, chatID, err)
}

// RestrictMember revokes send permissions of userID until the given time.
func (m *Messenger) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("restrict chat member: %w", err)
	}

	_, err := m.api.Request(tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        until.Unix(),
		Permissions:      &tgbotapi.ChatPermissions{CanSendMessages: false},
	})

	return m.track(methodRestrictMember, chatID, err)
}

// PromoteMember grants the given administrative capabilities to userID.
func (m *Messenger) PromoteMember(ctx context.Context, chatID, userID int64, caps domain.AdminCapabilities) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("promote chat member: %w", err)
	}

	_, err := m.api.Request(tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig:    tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		CanManageChat:       caps.ManageChat,
		CanDeleteMessages:   caps.DeleteMessages,
		CanInviteUsers:      caps.InviteUsers,
		CanRestrictMembers:  caps.RestrictMembers,
		CanPinMessages:      caps.PinMessages,
		CanChangeInfo:       caps.ChangeInfo,
		CanManageVoiceChats: caps.ManageVoiceChat,
	})

	return m.track(methodPromoteMember, chatID, err)
}

// SetWebhook registers url with the platform. A platform-level rejection is reported
// through the result rather than as an error.
func (m *Messenger) SetWebhook(ctx context.Context, url, secretToken string) (ports.WebhookResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.WebhookResult{}, fmt.Errorf("set webhook: %w", err)
	}

	params := tgbotapi.Params{}
	params[paramURL] = url
	params.AddNonEmpty(paramSecretToken, secretToken)
	params[paramAllowedUpdates] = allowedUpdatesMessage

	resp, err := m.api.MakeRequest(methodSetWebhook, params)

	var apiErr *tgbotapi.Error
	if err != nil && !errors.As(err, &apiErr) {
		observability.PlatformRequests.WithLabelValues(methodSetWebhook, observability.StatusError).Inc()

		return ports.WebhookResult{}, fmt.Errorf("set webhook: %w", err)
	}

	result := ports.WebhookResult{URL: url}
	if resp != nil {
		result.OK = resp.Ok
		result.Description = resp.Description
	}

	status := observability.StatusSuccess
	if !result.OK {
		status = observability.StatusError
	}

	observability.PlatformRequests.WithLabelValues(methodSetWebhook, status).Inc()
	m.logger.Info().Bool("ok", result.OK).Str("description", result.Description).Msg("webhook registration")

	return result, nil
}

// DeleteWebhook removes the webhook so long polling can receive updates.
func (m *Messenger) DeleteWebhook(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	_, err := m.api.Request(tgbotapi.DeleteWebhookConfig{})

	return m.track(methodDeleteWebhook, 0, err)
}

// RegisterCommands publishes the command menu shown by clients.
func (m *Messenger) RegisterCommands(ctx context.Context, commands map[string]string, order []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}

	botCommands := make([]tgbotapi.BotCommand, 0, len(order))

	for _, name := range order {
		botCommands = append(botCommands, tgbotapi.BotCommand{Command: name, Description: commands[name]})
	}

	_, err := m.api.Request(tgbotapi.NewSetMyCommands(botCommands...))

	return m.track(methodSetMyCommands, 0, err)
}

func (m *Messenger) track(method string, chatID int64, err error) error {
	if err != nil {
		observability.PlatformRequests.WithLabelValues(method, observability.StatusError).Inc()
		m.logger.Debug().Err(err).Str(logFieldMethod, method).Str(logFieldChatID, strconv.FormatInt(chatID, 10)).Msg("bot API call failed")

		return fmt.Errorf("%s: %w", method, err)
	}

	observability.PlatformRequests.WithLabelValues(method, observability.StatusSuccess).Inc()

	return nil
}

var (
	_ ports.Messenger        = (*Messenger)(nil)
	_ ports.WebhookRegistrar = (*Messenger)(nil)
)
