package llm

import "time"

// Error message templates
const (
	errRateLimiter          = "rate limiter error: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
)

// Role names accepted from callers
const (
	roleNameModel     = "model"
	roleNameAssistant = "assistant"
)

const llmAPIKeyMock = "mock"

// Client defaults
const (
	defaultTemperature      float32 = 1.1
	defaultMaxTokens                = 400
	defaultRateLimitRPS             = 5
	rateLimiterBurst                = 5
	circuitBreakerThreshold         = 5
	circuitBreakerTimeout           = 1 * time.Minute
)

// Log key strings
const (
	logKeyModel        = "model"
	logKeyFinishReason = "finish_reason"
	logKeyOutputTokens = "output_tokens"
	logKeyHistory      = "history_turns"
)

// Log message strings
const (
	logMsgRefused   = "completion refused"
	logMsgTruncated = "completion truncated due to max_tokens limit"
)
