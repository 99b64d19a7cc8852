package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/llm"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

const (
	chatMetricAction = "chat"
	errMsgNoLLM      = "LLM_API_KEY is not configured"
	errMsgGeneration = "AI Generation Failed"
)

type chatPart struct {
	Text *string `json:"text"`
}

// chatTurn accepts the history shapes sent by dashboard clients.
type chatTurn struct {
	Role    string     `json:"role"`
	Parts   []chatPart `json:"parts"`
	Text    string     `json:"text"`
	Content string     `json:"content"`
}

func (t chatTurn) body() string {
	if len(t.Parts) > 0 && t.Parts[0].Text != nil {
		return *t.Parts[0].Text
	}

	if t.Text != "" {
		return t.Text
	}

	return t.Content
}

type chatRequest struct {
	Message string     `json:"message" validate:"required"`
	History []chatTurn `json:"history"`
}

type chatResponse struct {
	Text    string `json:"text"`
	Refused bool   `json:"refused,omitempty"`
}

// ChatHandler lets the operator talk to the persona from the dashboard.
type ChatHandler struct {
	completer   llm.Client
	temperature float32
	validate    *validator.Validate
	logger      *zerolog.Logger
}

// NewChatHandler creates the playground endpoint behind the same key check as the admin API.
func NewChatHandler(ownerID int64, completer llm.Client, temperature float32, logger *zerolog.Logger) http.Handler {
	h := &ChatHandler{
		completer:   completer,
		temperature: temperature,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}

	return newGuard(ownerID, logger).wrap(h.serve)
}

func (h *ChatHandler) serve(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, errMsgBadBody)

		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid payload: "+err.Error())

		return
	}

	history := make([]llm.Turn, 0, len(req.History))
	for _, t := range req.History {
		history = append(history, llm.Turn{Role: llm.NormalizeRole(t.Role), Text: t.body()})
	}

	res, err := h.completer.Complete(r.Context(), llm.Request{
		History:     history,
		Message:     req.Message,
		Temperature: h.temperature,
	})
	if err != nil {
		if errors.Is(err, errors.ErrClientDisabled) {
			h.fail(w, http.StatusInternalServerError, errMsgNoLLM)

			return
		}

		h.logger.Error().Err(err).Msg("dashboard chat failed")

		msg := err.Error()
		if msg == "" {
			msg = errMsgGeneration
		}

		h.fail(w, http.StatusInternalServerError, msg)

		return
	}

	observability.AdminRequests.WithLabelValues(chatMetricAction, strconv.Itoa(http.StatusOK)).Inc()
	writeJSON(w, http.StatusOK, chatResponse{Text: res.Text, Refused: res.Refused})
}

func (h *ChatHandler) fail(w http.ResponseWriter, code int, msg string) {
	observability.AdminRequests.WithLabelValues(chatMetricAction, strconv.Itoa(code)).Inc()
	writeError(w, code, msg)
}
