package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/core/llm"
)

type stubCompleter struct {
	last llm.Request
	res  llm.Result
	err  error
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (llm.Result, error) {
	s.last = req

	return s.res, s.err
}

func callChat(t *testing.T, h http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set(KeyHeader, key)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func TestChat_NormalizesHistory(t *testing.T) {
	logger := zerolog.Nop()
	stub := &stubCompleter{res: llm.Result{Text: "bol na 💅"}}
	h := NewChatHandler(testOwnerID, stub, 1.2, &logger)

	body := `{"message":"kya haal","history":[` +
		`{"role":"user","parts":[{"text":"hi"}]},` +
		`{"role":"model","parts":[{"text":"haan?"}]},` +
		`{"role":"assistant","text":"aur?"},` +
		`{"role":"user","content":"kuch nahi"}]}`

	rr := callChat(t, h, testOwnerKey, body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bol na 💅", decodeBody[chatResponse](t, rr).Text)

	assert.Equal(t, "kya haal", stub.last.Message)
	assert.InDelta(t, 1.2, stub.last.Temperature, 0.0001)
	assert.Equal(t, []llm.Turn{
		{Role: llm.RoleUser, Text: "hi"},
		{Role: llm.RoleAssistant, Text: "haan?"},
		{Role: llm.RoleAssistant, Text: "aur?"},
		{Role: llm.RoleUser, Text: "kuch nahi"},
	}, stub.last.History)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		body     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "bad key", key: "nope", body: `{"message":"hi"}`, wantCode: http.StatusUnauthorized},
		{name: "missing message", key: testOwnerKey, body: `{"history":[]}`, wantCode: http.StatusBadRequest},
		{name: "not configured", key: testOwnerKey, body: `{"message":"hi"}`, err: coreerrors.ErrClientDisabled, wantCode: http.StatusInternalServerError, wantMsg: errMsgNoLLM},
		{name: "upstream failure", key: testOwnerKey, body: `{"message":"hi"}`, err: coreerrors.ErrCompletionTransport, wantCode: http.StatusInternalServerError, wantMsg: "completion transport failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.Nop()
			h := NewChatHandler(testOwnerID, &stubCompleter{err: tt.err}, 1.2, &logger)

			rr := callChat(t, h, tt.key, tt.body)
			assert.Equal(t, tt.wantCode, rr.Code)

			if tt.wantMsg != "" {
				assert.Contains(t, decodeBody[errorBody](t, rr).Error, tt.wantMsg)
			}
		})
	}
}

func TestChat_Refusal(t *testing.T) {
	logger := zerolog.Nop()
	h := NewChatHandler(testOwnerID, &stubCompleter{res: llm.Result{Refused: true, Reason: "content_filter"}}, 1.2, &logger)

	rr := callChat(t, h, testOwnerKey, `{"message":"bad"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	res := decodeBody[chatResponse](t, rr)
	assert.True(t, res.Refused)
	assert.Empty(t, res.Text)
}
