// Package llm wraps the OpenAI-compatible chat completion service that produces persona replies.
package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/platform/config"
)

// Role is a normalized conversation role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message in a conversation.
type Turn struct {
	Role Role
	Text string
}

// Request is a single completion request. Zero Temperature and MaxTokens use client defaults.
type Request struct {
	// SystemPrompt overrides the configured persona prompt when set.
	SystemPrompt string
	History      []Turn
	Message      string
	Temperature  float32
	MaxTokens    int
}

// Result is the outcome of a completion that reached the service.
type Result struct {
	Text    string
	Refused bool
	Reason  string
}

// Client produces persona replies.
type Client interface {
	Complete(ctx context.Context, req Request) (Result, error)
}

// NormalizeRole maps external role names onto the two roles the service understands.
// "model" and "assistant" become assistant, everything else is treated as the user.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case roleNameModel, roleNameAssistant:
		return RoleAssistant
	default:
		return RoleUser
	}
}

// New builds the client selected by configuration.
// Without an API key the returned client fails every call with ErrClientDisabled.
func New(cfg config.LLMConfig, persona config.PersonaConfig, logger *zerolog.Logger) Client {
	prompt := BuildPersonaPrompt(persona)

	switch cfg.APIKey {
	case "":
		return disabledClient{}
	case llmAPIKeyMock:
		return NewMockClient(persona)
	default:
		return NewOpenAI(cfg, prompt, logger)
	}
}
