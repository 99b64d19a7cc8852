package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

// Webhook processing modes.
const (
	WebhookModeAsync = "async"
	WebhookModeSync  = "sync"
)

// Promotion capability names accepted in PROMOTE_CAPABILITIES.
const (
	CapManageChat      = "manage_chat"
	CapDeleteMessages  = "delete_messages"
	CapInviteUsers     = "invite_users"
	CapRestrictMembers = "restrict_members"
	CapPinMessages     = "pin_messages"
	CapChangeInfo      = "change_info"
	CapManageVoiceChat = "manage_voice_chats"
)

var (
	errUnknownWebhookMode = errors.New("unknown webhook mode")
	errUnknownCapability  = errors.New("unknown promote capability")
	errNonPositive        = errors.New("must be positive")
	errNoNameTriggers     = errors.New("at least one name trigger is required")
	errInvalidPath        = errors.New("path must start with / and be unique")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`

	// Platform
	BotToken    string `env:"BOT_TOKEN,required"`
	BotUsername string `env:"BOT_USERNAME"`
	OwnerID     int64  `env:"OWNER_ID"`

	// Storage
	PostgresDSN         string        `env:"POSTGRES_DSN"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"5"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"0"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	DBReconnectCooldown time.Duration `env:"DB_RECONNECT_COOLDOWN" envDefault:"30s"`

	// Completion service
	LLMAPIKey           string        `env:"LLM_API_KEY"`
	LLMBaseURL          string        `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel            string        `env:"LLM_MODEL" envDefault:"llama-3.3-70b-versatile"`
	LLMTemperature      float32       `env:"LLM_TEMPERATURE" envDefault:"1.1"`
	LLMChatTemperature  float32       `env:"LLM_CHAT_TEMPERATURE" envDefault:"1.2"`
	LLMMaxTokens        int           `env:"LLM_MAX_TOKENS" envDefault:"400"`
	LLMTimeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"7s"`
	LLMRateLimitRPS     float64       `env:"LLM_RPS" envDefault:"5"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`
	HistoryLimit        int           `env:"HISTORY_LIMIT" envDefault:"6"`

	// Persona
	PersonaName        string `env:"PERSONA_NAME" envDefault:"Ekki"`
	PersonaHandle      string `env:"PERSONA_HANDLE" envDefault:"ekkirobot"`
	PersonaAttribution string `env:"PERSONA_ATTRIBUTION" envDefault:"@A1blackhats"`
	PersonaPrompt      string `env:"PERSONA_PROMPT"`

	// Routing and moderation
	NameTriggers        []string      `env:"NAME_TRIGGERS" envSeparator:"," envDefault:"ekki,eki,akki"`
	MuteDuration        time.Duration `env:"MUTE_DURATION" envDefault:"300s"`
	PromoteCapabilities []string      `env:"PROMOTE_CAPABILITIES" envSeparator:"," envDefault:"manage_chat,delete_messages,invite_users"`
	LogBlocked          bool          `env:"LOG_BLOCKED" envDefault:"true"`

	// HTTP surfaces
	WebhookPath           string        `env:"WEBHOOK_PATH" envDefault:"/api/telegram-webhook"`
	WebhookSecret         string        `env:"WEBHOOK_SECRET"`
	WebhookMode           string        `env:"WEBHOOK_MODE" envDefault:"async"`
	WebhookProcessTimeout time.Duration `env:"WEBHOOK_PROCESS_TIMEOUT" envDefault:"25s"`
	AdminPath             string        `env:"ADMIN_PATH" envDefault:"/api/admin"`
	ChatPath              string        `env:"CHAT_PATH" envDefault:"/api/chat"`

	// Broadcast
	BroadcastLimit   int     `env:"BROADCAST_LIMIT" envDefault:"500"`
	BroadcastWorkers int     `env:"BROADCAST_WORKERS" envDefault:"4"`
	BroadcastRPS     float64 `env:"BROADCAST_RPS" envDefault:"25"`

	// StatsRefreshInterval controls how often audience gauges are refreshed; zero disables it.
	StatsRefreshInterval time.Duration `env:"STATS_REFRESH_INTERVAL" envDefault:"5m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.BotUsername = strings.TrimPrefix(strings.TrimSpace(cfg.BotUsername), "@")
	cfg.WebhookMode = strings.ToLower(strings.TrimSpace(cfg.WebhookMode))

	triggers := make([]string, 0, len(cfg.NameTriggers))

	for _, t := range cfg.NameTriggers {
		if t = strings.TrimSpace(t); t != "" {
			triggers = append(triggers, t)
		}
	}

	cfg.NameTriggers = triggers
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	if c.WebhookMode != WebhookModeAsync && c.WebhookMode != WebhookModeSync {
		return fmt.Errorf("%w: %q", errUnknownWebhookMode, c.WebhookMode)
	}

	if len(c.NameTriggers) == 0 {
		return errNoNameTriggers
	}

	if _, err := c.AdminCapabilities(); err != nil {
		return err
	}

	positives := map[string]time.Duration{
		"LLM_TIMEOUT":             c.LLMTimeout,
		"MUTE_DURATION":           c.MuteDuration,
		"WEBHOOK_PROCESS_TIMEOUT": c.WebhookProcessTimeout,
	}

	for key, d := range positives {
		if d <= 0 {
			return fmt.Errorf("%s %w", key, errNonPositive)
		}
	}

	if c.BroadcastLimit <= 0 {
		return fmt.Errorf("BROADCAST_LIMIT %w", errNonPositive)
	}

	return c.validatePaths()
}

func (c *Config) validatePaths() error {
	seen := map[string]string{}

	for _, p := range []struct{ key, path string }{
		{"WEBHOOK_PATH", c.WebhookPath},
		{"ADMIN_PATH", c.AdminPath},
		{"CHAT_PATH", c.ChatPath},
	} {
		if !strings.HasPrefix(p.path, "/") {
			return fmt.Errorf("%s %q: %w", p.key, p.path, errInvalidPath)
		}

		if other, ok := seen[p.path]; ok {
			return fmt.Errorf("%s and %s %q: %w", other, p.key, p.path, errInvalidPath)
		}

		seen[p.path] = p.key
	}

	return nil
}

// AdminCapabilities converts PROMOTE_CAPABILITIES into the capability set granted on promotion.
func (c *Config) AdminCapabilities() (domain.AdminCapabilities, error) {
	var caps domain.AdminCapabilities

	for _, name := range c.PromoteCapabilities {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case CapManageChat:
			caps.ManageChat = true
		case CapDeleteMessages:
			caps.DeleteMessages = true
		case CapInviteUsers:
			caps.InviteUsers = true
		case CapRestrictMembers:
			caps.RestrictMembers = true
		case CapPinMessages:
			caps.PinMessages = true
		case CapChangeInfo:
			caps.ChangeInfo = true
		case CapManageVoiceChat:
			caps.ManageVoiceChat = true
		case "":
		default:
			return domain.AdminCapabilities{}, fmt.Errorf("%w: %q", errUnknownCapability, name)
		}
	}

	return caps, nil
}

// LLMEnabled reports whether a completion credential is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

// StorageEnabled reports whether a persistence connection string is configured.
func (c *Config) StorageEnabled() bool {
	return c.PostgresDSN != ""
}
