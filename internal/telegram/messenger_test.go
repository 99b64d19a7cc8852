package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

const testToken = "123:test-token"

type apiCall struct {
	method string
	form   url.Values
}

type fakeBotAPI struct {
	mu        sync.Mutex
	calls     []apiCall
	responses map[string]string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + testToken + "/"
	method := strings.TrimPrefix(r.URL.Path, prefix)

	_ = r.ParseForm()

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, form: r.PostForm})
	body, ok := f.responses[method]
	f.mu.Unlock()

	if !ok {
		body = `{"ok":true,"result":true}`
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakeBotAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []apiCall

	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}

	return out
}

func newTestMessenger(t *testing.T, responses map[string]string) (*Messenger, *fakeBotAPI) {
	t.Helper()

	fake := &fakeBotAPI{responses: map[string]string{
		"getMe": `{"ok":true,"result":{"id":999,"is_bot":true,"first_name":"Ekki","username":"ekkirobot"}}`,
	}}

	for k, v := range responses {
		fake.responses[k] = v
	}

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api, err := NewAPI(testToken, srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	logger := zerolog.Nop()

	return NewMessenger(api, &logger), fake
}

func TestMessenger_Self(t *testing.T) {
	m, fake := newTestMessenger(t, nil)

	assert.Equal(t, domain.BotIdentity{ID: 999, Handle: "ekkirobot"}, m.Self())
	assert.Len(t, fake.callsTo("getMe"), 1)
}

func TestMessenger_SendTextRepliesInHTML(t *testing.T) {
	m, fake := newTestMessenger(t, map[string]string{
		"sendMessage": `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`,
	})

	require.NoError(t, m.SendText(context.Background(), -100, "Bye bye &lt;Ravi&gt;! 👋", 42))

	calls := fake.callsTo("sendMessage")
	require.Len(t, calls, 1)
	assert.Equal(t, "-100", calls[0].form.Get("chat_id"))
	assert.Equal(t, "HTML", calls[0].form.Get("parse_mode"))
	assert.Equal(t, "42", calls[0].form.Get("reply_to_message_id"))
	assert.Equal(t, "Bye bye &lt;Ravi&gt;! 👋", calls[0].form.Get("text"))
}

func TestMessenger_SendTextPlatformError(t *testing.T) {
	m, _ := newTestMessenger(t, map[string]string{
		"sendMessage": `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`,
	})

	err := m.SendText(context.Background(), 5, "hi", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by the user")
}

func TestMessenger_GetChatMember(t *testing.T) {
	m, fake := newTestMessenger(t, map[string]string{
		"getChatMember": `{"ok":true,"result":{"user":{"id":5,"is_bot":false,"first_name":"Asha"},"status":"administrator","can_restrict_members":true,"can_promote_members":false}}`,
	})

	status, err := m.GetChatMember(context.Background(), -100, 5)
	require.NoError(t, err)

	assert.Equal(t, domain.MemberStatusAdministrator, status.Status)
	assert.True(t, status.CanRestrictMembers)
	assert.False(t, status.CanPromoteMembers)
	assert.True(t, status.IsPrivileged())

	calls := fake.callsTo("getChatMember")
	require.Len(t, calls, 1)
	assert.Equal(t, "5", calls[0].form.Get("user_id"))
}

func TestMessenger_Moderation(t *testing.T) {
	m, fake := newTestMessenger(t, nil)
	ctx := context.Background()
	until := time.Unix(1_900_000_000, 0)

	require.NoError(t, m.BanMember(ctx, -100, 5))
	require.NoError(t, m.RestrictMember(ctx, -100, 6, until))
	require.NoError(t, m.PromoteMember(ctx, -100, 7, domain.AdminCapabilities{ManageChat: true, DeleteMessages: true, InviteUsers: true}))

	bans := fake.callsTo("banChatMember")
	require.Len(t, bans, 1)
	assert.Equal(t, "5", bans[0].form.Get("user_id"))

	restricts := fake.callsTo("restrictChatMember")
	require.Len(t, restricts, 1)
	assert.Equal(t, "1900000000", restricts[0].form.Get("until_date"))

	var perms map[string]bool
	require.NoError(t, json.Unmarshal([]byte(restricts[0].form.Get("permissions")), &perms))
	assert.False(t, perms["can_send_messages"])

	promotes := fake.callsTo("promoteChatMember")
	require.Len(t, promotes, 1)
	assert.Equal(t, "true", promotes[0].form.Get("can_manage_chat"))
	assert.Equal(t, "true", promotes[0].form.Get("can_delete_messages"))
	assert.Equal(t, "true", promotes[0].form.Get("can_invite_users"))
	assert.Empty(t, promotes[0].form.Get("can_promote_members"))
}

func TestMessenger_SetWebhook(t *testing.T) {
	m, fake := newTestMessenger(t, map[string]string{
		"setWebhook": `{"ok":true,"result":true,"description":"Webhook was set"}`,
	})

	res, err := m.SetWebhook(context.Background(), "https://ekki.example/api/telegram-webhook", "s3cret")
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "Webhook was set", res.Description)
	assert.Equal(t, "https://ekki.example/api/telegram-webhook", res.URL)

	calls := fake.callsTo("setWebhook")
	require.Len(t, calls, 1)
	assert.Equal(t, "https://ekki.example/api/telegram-webhook", calls[0].form.Get("url"))
	assert.Equal(t, "s3cret", calls[0].form.Get("secret_token"))
}

func TestMessenger_SetWebhookRejected(t *testing.T) {
	m, _ := newTestMessenger(t, map[string]string{
		"setWebhook": `{"ok":false,"error_code":400,"description":"Bad Request: bad webhook: HTTPS url must be provided for webhook"}`,
	})

	res, err := m.SetWebhook(context.Background(), "http://insecure", "")
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Contains(t, res.Description, "HTTPS url must be provided")
}

func TestMessenger_CanceledContext(t *testing.T) {
	m, fake := newTestMessenger(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, m.SendText(ctx, 1, "hi", 0))
	assert.Empty(t, fake.callsTo("sendMessage"))
}

func TestToInbound(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	bot := &tgbotapi.User{ID: 999, IsBot: true, FirstName: "Ekki", UserName: "ekkirobot"}

	tests := []struct {
		name     string
		update   tgbotapi.Update
		wantSkip string
		check    func(t *testing.T, msg domain.InboundMessage)
	}{
		{
			name:     "no message",
			update:   tgbotapi.Update{UpdateID: 1},
			wantSkip: SkipNoMessage,
		},
		{
			name: "channel post",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: -5, Type: "channel"}, Text: "hi",
			}},
			wantSkip: SkipUnsupported,
		},
		{
			name: "sticker without text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1, Type: "private"},
			}},
			wantSkip: SkipNoText,
		},
		{
			name: "private text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 10,
				From:      &tgbotapi.User{ID: 1, FirstName: "Asha", LastName: "K", UserName: "asha"},
				Chat:      &tgbotapi.Chat{ID: 1, Type: "private"},
				Text:      "hello",
			}},
			check: func(t *testing.T, msg domain.InboundMessage) {
				assert.Equal(t, domain.ChatPrivate, msg.ChatKind)
				assert.Equal(t, "Asha K", msg.Sender.DisplayName)
				assert.Equal(t, "asha", msg.Sender.Handle)
				assert.Equal(t, 10, msg.MessageID)
				assert.Equal(t, received, msg.ReceivedAt)
				assert.Nil(t, msg.ReplyTarget)
			},
		},
		{
			name: "supergroup reply to bot with caption",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID:      11,
				From:           &tgbotapi.User{ID: 2, FirstName: "Ravi"},
				Chat:           &tgbotapi.Chat{ID: -100, Type: "supergroup", Title: "Adda"},
				Caption:        "dekho",
				ReplyToMessage: &tgbotapi.Message{From: bot},
			}},
			check: func(t *testing.T, msg domain.InboundMessage) {
				assert.True(t, msg.IsGroup())
				assert.Equal(t, "Adda", msg.ChatTitle)
				assert.Equal(t, "dekho", msg.Text)
				require.NotNil(t, msg.ReplyTarget)
				assert.Equal(t, int64(999), msg.ReplyTarget.SenderID)
				assert.True(t, msg.ReplyTarget.IsBot)
				assert.Equal(t, "ekkirobot", msg.ReplyTarget.SenderHandle)
			},
		},
		{
			name: "mention after emoji",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 3},
				Chat: &tgbotapi.Chat{ID: -100, Type: "group"},
				// 😀 is two UTF-16 units, so the mention starts at offset 3.
				Text: "😀 @EkkiRobot suno",
				Entities: []tgbotapi.MessageEntity{
					{Type: "bold", Offset: 0, Length: 2},
					{Type: "mention", Offset: 3, Length: 10},
				},
			}},
			check: func(t *testing.T, msg domain.InboundMessage) {
				assert.Equal(t, []string{"EkkiRobot"}, msg.MentionedHandles)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, skip := ToInbound(tt.update, received)
			assert.Equal(t, tt.wantSkip, skip)

			if tt.check != nil {
				tt.check(t, msg)
			}
		})
	}
}

func TestMentions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		entities []tgbotapi.MessageEntity
		want     []string
	}{
		{
			name:     "mention at end of text",
			text:     "suno @ekkirobot",
			entities: []tgbotapi.MessageEntity{{Type: "mention", Offset: 5, Length: 10}},
			want:     []string{"ekkirobot"},
		},
		{
			name: "offsets after astral and devanagari text",
			text: "💅नमस्ते @Asha aur @ravi_k",
			entities: []tgbotapi.MessageEntity{
				{Type: "mention", Offset: 9, Length: 5},
				{Type: "mention", Offset: 19, Length: 7},
			},
			want: []string{"Asha", "ravi_k"},
		},
		{
			name:     "range splitting a surrogate pair",
			text:     "💅@ekki",
			entities: []tgbotapi.MessageEntity{{Type: "mention", Offset: 1, Length: 5}},
		},
		{
			name:     "range past the end",
			text:     "@ekki",
			entities: []tgbotapi.MessageEntity{{Type: "mention", Offset: 0, Length: 9}},
		},
		{
			name:     "negative offset",
			text:     "@ekki",
			entities: []tgbotapi.MessageEntity{{Type: "mention", Offset: -1, Length: 3}},
		},
		{
			name:     "other entity types ignored",
			text:     "@ekki",
			entities: []tgbotapi.MessageEntity{{Type: "bold", Offset: 0, Length: 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mentions(tt.text, tt.entities))
		})
	}
}
