package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
)

const privateUpdate = `{"update_id":1,"message":{"message_id":5,"date":1700000000,` +
	`"from":{"id":11,"is_bot":false,"first_name":"Asha","username":"asha"},` +
	`"chat":{"id":11,"type":"private"},"text":"hi ekki"}}`

type recordingHandler struct {
	mu   sync.Mutex
	msgs []domain.InboundMessage
	hold chan struct{}
}

func (r *recordingHandler) handle(ctx context.Context, msg domain.InboundMessage) {
	if r.hold != nil {
		select {
		case <-r.hold:
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.msgs)
}

func newTestHandler(mode, secret string, rec *recordingHandler) *Handler {
	logger := zerolog.Nop()

	return NewHandler(config.HTTPConfig{
		WebhookMode:           mode,
		WebhookSecret:         secret,
		WebhookProcessTimeout: time.Second,
	}, rec.handle, &logger)
}

func post(h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/telegram-webhook", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func TestHandler_SyncProcessesBeforeAck(t *testing.T) {
	rec := &recordingHandler{}
	h := newTestHandler(config.WebhookModeSync, "", rec)

	rr := post(h, privateUpdate, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, "hi ekki", rec.msgs[0].Text)
	assert.Equal(t, int64(11), rec.msgs[0].Sender.ID)
}

func TestHandler_AsyncAcksFirst(t *testing.T) {
	rec := &recordingHandler{hold: make(chan struct{})}
	h := newTestHandler(config.WebhookModeAsync, "", rec)

	rr := post(h, privateUpdate, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, rec.count())

	close(rec.hold)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, h.Wait(ctx))
	assert.Equal(t, 1, rec.count())
}

func TestHandler_AlwaysAcknowledges(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"update_id":`},
		{name: "edited message", body: `{"update_id":2,"edited_message":{"message_id":1,"date":1,"chat":{"id":1,"type":"private"},"text":"x"}}`},
		{name: "channel post", body: `{"update_id":3,"message":{"message_id":1,"date":1,"from":{"id":1,"is_bot":false,"first_name":"A"},"chat":{"id":-1,"type":"channel"},"text":"x"}}`},
		{name: "photo without caption", body: `{"update_id":4,"message":{"message_id":1,"date":1,"from":{"id":1,"is_bot":false,"first_name":"A"},"chat":{"id":1,"type":"private"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingHandler{}
			h := newTestHandler(config.WebhookModeSync, "", rec)

			rr := post(h, tt.body, nil)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Zero(t, rec.count())
		})
	}
}

func TestHandler_RecoversFromPanics(t *testing.T) {
	logger := zerolog.Nop()
	h := NewHandler(config.HTTPConfig{WebhookMode: config.WebhookModeSync}, func(context.Context, domain.InboundMessage) {
		panic("boom")
	}, &logger)

	rr := post(h, privateUpdate, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_Secret(t *testing.T) {
	rec := &recordingHandler{}
	h := newTestHandler(config.WebhookModeSync, "s3cret", rec)

	rr := post(h, privateUpdate, map[string]string{SecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, rec.count())

	rr = post(h, privateUpdate, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = post(h, privateUpdate, map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, rec.count())
}

func TestHandler_GetReportsStatus(t *testing.T) {
	h := newTestHandler(config.WebhookModeAsync, "", &recordingHandler{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/telegram-webhook", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Running")
}
