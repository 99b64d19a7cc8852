package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string
	MaxConnections    int32
	MinConnections    int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
	ReconnectCooldown time.Duration
}

// LLMConfig holds completion service settings.
type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Temperature      float32
	ChatTemperature  float32
	MaxTokens        int
	Timeout          time.Duration
	RateLimitRPS     float64
	CircuitThreshold int
	CircuitTimeout   time.Duration
	HistoryLimit     int
}

// PersonaConfig holds the bot persona settings.
type PersonaConfig struct {
	Name        string
	Handle      string
	Attribution string
	Prompt      string
}

// ModerationConfig holds routing and moderation settings.
type ModerationConfig struct {
	OwnerID      int64
	NameTriggers []string
	MuteDuration time.Duration
	LogBlocked   bool
}

// HTTPConfig holds the settings of the HTTP surfaces.
type HTTPConfig struct {
	Port                  int
	WebhookPath           string
	WebhookSecret         string
	WebhookMode           string
	WebhookProcessTimeout time.Duration
	AdminPath             string
	ChatPath              string
}

// BroadcastConfig holds admin broadcast settings.
type BroadcastConfig struct {
	Limit   int
	Workers int
	RPS     float64
}

// DatabaseCfg returns the database configuration extracted from Config.
func (c *Config) DatabaseCfg() DatabaseConfig {
	return DatabaseConfig{
		PostgresDSN:       c.PostgresDSN,
		MaxConnections:    c.DBMaxConnections,
		MinConnections:    c.DBMinConnections,
		MaxConnIdleTime:   c.DBMaxConnIdleTime,
		MaxConnLifetime:   c.DBMaxConnLifetime,
		HealthCheckPeriod: c.DBHealthCheckPeriod,
		ConnectTimeout:    c.DBConnectTimeout,
		ReconnectCooldown: c.DBReconnectCooldown,
	}
}

// LLMCfg returns the completion service configuration.
func (c *Config) LLMCfg() LLMConfig {
	return LLMConfig{
		APIKey:           c.LLMAPIKey,
		BaseURL:          c.LLMBaseURL,
		Model:            c.LLMModel,
		Temperature:      c.LLMTemperature,
		ChatTemperature:  c.LLMChatTemperature,
		MaxTokens:        c.LLMMaxTokens,
		Timeout:          c.LLMTimeout,
		RateLimitRPS:     c.LLMRateLimitRPS,
		CircuitThreshold: c.LLMCircuitThreshold,
		CircuitTimeout:   c.LLMCircuitTimeout,
		HistoryLimit:     c.HistoryLimit,
	}
}

// PersonaCfg returns the persona configuration.
func (c *Config) PersonaCfg() PersonaConfig {
	return PersonaConfig{
		Name:        c.PersonaName,
		Handle:      c.PersonaHandle,
		Attribution: c.PersonaAttribution,
		Prompt:      c.PersonaPrompt,
	}
}

// ModerationCfg returns the routing and moderation configuration.
func (c *Config) ModerationCfg() ModerationConfig {
	return ModerationConfig{
		OwnerID:      c.OwnerID,
		NameTriggers: c.NameTriggers,
		MuteDuration: c.MuteDuration,
		LogBlocked:   c.LogBlocked,
	}
}

// HTTPCfg returns the HTTP surface configuration.
func (c *Config) HTTPCfg() HTTPConfig {
	return HTTPConfig{
		Port:                  c.HTTPPort,
		WebhookPath:           c.WebhookPath,
		WebhookSecret:         c.WebhookSecret,
		WebhookMode:           c.WebhookMode,
		WebhookProcessTimeout: c.WebhookProcessTimeout,
		AdminPath:             c.AdminPath,
		ChatPath:              c.ChatPath,
	}
}

// BroadcastCfg returns the broadcast configuration.
func (c *Config) BroadcastCfg() BroadcastConfig {
	return BroadcastConfig{
		Limit:   c.BroadcastLimit,
		Workers: c.BroadcastWorkers,
		RPS:     c.BroadcastRPS,
	}
}
