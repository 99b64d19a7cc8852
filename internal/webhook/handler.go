// Package webhook receives platform updates over HTTP and hands them to the dispatcher.
// The platform is always acknowledged; processing errors never turn into 5xx responses.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/platform/config"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
	"github.com/lueurxax/ekki-bot/internal/telegram"
)

// SecretHeader carries the token registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const (
	maxBodyBytes       = 1 << 20
	defaultProcessTime = 25 * time.Second
	statusText         = "Ekki Bot is Running"

	rejectBadSecret = "bad_secret"
	rejectMalformed = "malformed"
)

// Handler serves the webhook endpoint.
type Handler struct {
	handle   telegram.MessageHandler
	secret   string
	syncMode bool
	timeout  time.Duration
	logger   *zerolog.Logger

	inflight sync.WaitGroup
}

// NewHandler creates the webhook endpoint. In async mode the update is acknowledged before it is processed.
func NewHandler(cfg config.HTTPConfig, handle telegram.MessageHandler, logger *zerolog.Logger) *Handler {
	timeout := cfg.WebhookProcessTimeout
	if timeout <= 0 {
		timeout = defaultProcessTime
	}

	return &Handler{
		handle:   handle,
		secret:   cfg.WebhookSecret,
		syncMode: cfg.WebhookMode == config.WebhookModeSync,
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, statusText)

		return
	}

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		observability.UpdatesRejected.WithLabelValues(rejectBadSecret).Inc()
		h.logger.Warn().Str("remote", r.RemoteAddr).Msg("webhook call with invalid secret")
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&update); err != nil {
		observability.UpdatesRejected.WithLabelValues(rejectMalformed).Inc()
		h.logger.Warn().Err(err).Msg("malformed webhook update")
		acknowledge(w)

		return
	}

	if h.syncMode {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		h.process(ctx, update)
		acknowledge(w)

		return
	}

	// The platform retries unacknowledged updates, so the work is detached from the request.
	ctx := context.WithoutCancel(r.Context())

	h.inflight.Add(1)

	go func() {
		defer h.inflight.Done()

		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()

		h.process(ctx, update)
	}()

	acknowledge(w)
}

func (h *Handler) process(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().Interface("panic", rec).Int("update_id", update.UpdateID).Msg("update processing panicked")
		}
	}()

	telegram.Deliver(ctx, update, telegram.SourceWebhook, h.handle, h.logger)
}

// Wait blocks until detached updates finish or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"ok":true}`)
}
