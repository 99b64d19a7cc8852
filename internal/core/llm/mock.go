package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
)

const mockReplyMaxRunes = 80

// mockClient answers without network access. It is selected with LLM_API_KEY=mock for local runs.
type mockClient struct {
	persona config.PersonaConfig
}

// NewMockClient creates a deterministic offline client.
func NewMockClient(persona config.PersonaConfig) Client {
	return &mockClient{persona: persona}
}

func (m *mockClient) Complete(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, classifyError(err)
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Result{}, errors.ErrEmptyResponse
	}

	runes := []rune(message)
	if len(runes) > mockReplyMaxRunes {
		message = string(runes[:mockReplyMaxRunes]) + "..."
	}

	return Result{Text: fmt.Sprintf("%s here 💅 tune bola: %s", m.persona.Name, message)}, nil
}

// disabledClient is used when no API key is configured.
type disabledClient struct{}

func (disabledClient) Complete(context.Context, Request) (Result, error) {
	return Result{}, errors.ErrClientDisabled
}
