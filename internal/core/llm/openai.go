package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

type openaiClient struct {
	cfg          config.LLMConfig
	client       *openai.Client
	logger       *zerolog.Logger
	rateLimiter  *rate.Limiter
	circuit      *CircuitBreaker
	systemPrompt string
}

// NewOpenAI creates a client for any OpenAI-compatible endpoint, Groq by default.
func NewOpenAI(cfg config.LLMConfig, systemPrompt string, logger *zerolog.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}

	return &openaiClient{
		cfg:          cfg,
		client:       openai.NewClientWithConfig(clientCfg),
		logger:       logger,
		rateLimiter:  rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		circuit:      NewCircuitBreaker(CircuitBreakerConfig{Threshold: cfg.CircuitThreshold, ResetAfter: cfg.CircuitTimeout}, logger),
		systemPrompt: systemPrompt,
	}
}

func (c *openaiClient) Complete(ctx context.Context, req Request) (Result, error) {
	if err := c.circuit.CheckCircuit(); err != nil {
		return Result{}, err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Result{}, classifyError(fmt.Errorf(errRateLimiter, err))
	}

	model := c.cfg.Model
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))

	observability.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		c.circuit.RecordFailure()

		classified := classifyError(fmt.Errorf(errOpenAIChatCompletion, err))
		observability.LLMRequests.WithLabelValues(model, statusForError(classified)).Inc()

		return Result{}, classified
	}

	c.circuit.RecordSuccess()
	c.recordUsage(model, resp.Usage)

	return c.interpret(model, resp)
}

func (c *openaiClient) buildRequest(req Request) openai.ChatCompletionRequest {
	system := req.SystemPrompt
	if system == "" {
		system = c.systemPrompt
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})

	for _, turn := range req.History {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(turn.Role),
			Content: turn.Text,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}

	if temperature == 0 {
		temperature = defaultTemperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}

	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	c.logger.Debug().Str(logKeyModel, c.cfg.Model).Int(logKeyHistory, len(req.History)).Msg("completion request")

	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

func (c *openaiClient) interpret(model string, resp openai.ChatCompletionResponse) (Result, error) {
	if len(resp.Choices) == 0 {
		observability.LLMRequests.WithLabelValues(model, observability.StatusEmpty).Inc()

		return Result{}, errors.ErrEmptyResponse
	}

	choice := resp.Choices[0]

	if choice.FinishReason == openai.FinishReasonContentFilter || choice.Message.Refusal != "" {
		reason := choice.Message.Refusal
		if reason == "" {
			reason = string(choice.FinishReason)
		}

		c.logger.Info().Str(logKeyModel, model).Str(logKeyFinishReason, string(choice.FinishReason)).Msg(logMsgRefused)
		observability.LLMRequests.WithLabelValues(model, observability.StatusRefused).Inc()

		return Result{Refused: true, Reason: reason}, nil
	}

	if choice.FinishReason == openai.FinishReasonLength {
		c.logger.Warn().Str(logKeyModel, model).Int(logKeyOutputTokens, resp.Usage.CompletionTokens).Msg(logMsgTruncated)
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		observability.LLMRequests.WithLabelValues(model, observability.StatusEmpty).Inc()

		return Result{}, errors.ErrEmptyResponse
	}

	observability.LLMRequests.WithLabelValues(model, observability.StatusSuccess).Inc()

	return Result{Text: text}, nil
}

func (c *openaiClient) recordUsage(model string, usage openai.Usage) {
	if usage.PromptTokens > 0 {
		observability.LLMTokens.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	}

	if usage.CompletionTokens > 0 {
		observability.LLMTokens.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	}
}

func chatRole(role Role) string {
	if role == RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}

	return openai.ChatMessageRoleUser
}

// classifyError maps transport failures onto the completion sentinels.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", errors.ErrCompletionTimeout, err)
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%w: %w", errors.ErrCompletionTransport, err)
}

func statusForError(err error) string {
	if errors.Is(err, errors.ErrCompletionTimeout) {
		return observability.StatusTimeout
	}

	return observability.StatusError
}
