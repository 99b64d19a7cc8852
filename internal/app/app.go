// Package app wires configuration, storage, the chat platform and the HTTP surfaces into runnable modes.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/ekki-bot/internal/admin"
	"github.com/lueurxax/ekki-bot/internal/bot"
	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/llm"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
	"github.com/lueurxax/ekki-bot/internal/platform/worker"
	db "github.com/lueurxax/ekki-bot/internal/storage"
	"github.com/lueurxax/ekki-bot/internal/telegram"
	"github.com/lueurxax/ekki-bot/internal/webhook"
)

const (
	drainTimeout    = 30 * time.Second
	registerTimeout = 10 * time.Second
)

// App holds the long-lived dependencies shared by every mode.
type App struct {
	cfg       *config.Config
	logger    *zerolog.Logger
	gateway   *db.Gateway
	messenger *telegram.Messenger
	completer llm.Client
}

// New connects to the chat platform and prepares lazy storage. The database is not contacted here.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	api, err := telegram.NewAPI(cfg.BotToken, "", nil)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}

	dbCfg := cfg.DatabaseCfg()

	return &App{
		cfg:       cfg,
		logger:    logger,
		gateway:   db.NewPostgresGateway(dbCfg.PostgresDSN, poolOptions(dbCfg), gatewayOptions(dbCfg), logger),
		messenger: telegram.NewMessenger(api, logger),
		completer: llm.New(cfg.LLMCfg(), cfg.PersonaCfg(), logger),
	}, nil
}

// Close releases the storage connection.
func (a *App) Close() {
	a.gateway.Close()
}

func poolOptions(cfg config.DatabaseConfig) db.PoolOptions {
	opts := db.DefaultPoolOptions()
	opts.MaxConns = cfg.MaxConnections
	opts.MinConns = cfg.MinConnections
	opts.MaxConnIdleTime = cfg.MaxConnIdleTime
	opts.MaxConnLifetime = cfg.MaxConnLifetime
	opts.HealthCheckPeriod = cfg.HealthCheckPeriod

	return opts
}

func gatewayOptions(cfg config.DatabaseConfig) db.GatewayOptions {
	return db.GatewayOptions{
		ConnectTimeout:    cfg.ConnectTimeout,
		ReconnectCooldown: cfg.ReconnectCooldown,
	}
}

// botIdentity returns the account reported by the platform. BOT_USERNAME overrides the handle.
func (a *App) botIdentity() domain.BotIdentity {
	self := a.messenger.Self()
	if a.cfg.BotUsername != "" {
		self.Handle = a.cfg.BotUsername
	}

	return self
}

func (a *App) newDispatcher() (*bot.Dispatcher, error) {
	caps, err := a.cfg.AdminCapabilities()
	if err != nil {
		return nil, err
	}

	llmCfg := a.cfg.LLMCfg()

	d, err := bot.NewDispatcher(bot.Settings{
		Bot:               a.botIdentity(),
		Persona:           a.cfg.PersonaCfg(),
		Moderation:        a.cfg.ModerationCfg(),
		PromoteCaps:       caps,
		CompletionTimeout: llmCfg.Timeout,
		HistoryLimit:      llmCfg.HistoryLimit,
		Temperature:       llmCfg.Temperature,
		MaxTokens:         llmCfg.MaxTokens,
	}, a.gateway, a.messenger, a.completer, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	return d, nil
}

func (a *App) messageHandler(d *bot.Dispatcher) telegram.MessageHandler {
	return func(ctx context.Context, msg domain.InboundMessage) {
		d.Handle(ctx, msg)
	}
}

// dashboardRoutes returns the operator API routes served next to health and metrics.
func (a *App) dashboardRoutes() []observability.Route {
	httpCfg := a.cfg.HTTPCfg()
	ownerID := a.cfg.OwnerID

	if ownerID == 0 {
		a.logger.Warn().Msg("OWNER_ID is not set, admin API will reject every request")
	}

	broadcaster := admin.NewBroadcaster(a.cfg.BroadcastCfg(), a.messenger, a.logger)
	adminHandler := admin.NewHandler(admin.Options{
		OwnerID:       ownerID,
		WebhookPath:   httpCfg.WebhookPath,
		WebhookSecret: httpCfg.WebhookSecret,
	}, a.gateway, a.messenger, broadcaster, a.logger)

	return []observability.Route{
		{Path: httpCfg.AdminPath, Handler: adminHandler},
		{Path: httpCfg.ChatPath, Handler: admin.NewChatHandler(ownerID, a.completer, a.cfg.LLMCfg().ChatTemperature, a.logger)},
	}
}

// refreshStats keeps the audience gauges current until ctx is canceled.
func (a *App) refreshStats(ctx context.Context) {
	interval := a.cfg.StatsRefreshInterval
	if interval <= 0 || !a.cfg.StorageEnabled() {
		return
	}

	publisher := admin.NewStatsPublisher(a.gateway, a.logger)

	err := worker.TickerLoop(ctx, worker.TickerConfig{
		Name:       "stats",
		Interval:   interval,
		OnTick:     publisher.Publish,
		RunOnStart: true,
		Logger:     a.logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Msg("stats refresh stopped")
	}
}

func (a *App) registerCommands(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, registerTimeout)
	defer cancel()

	if err := a.messenger.RegisterCommands(ctx, bot.CommandMenu(), bot.CommandOrder); err != nil {
		a.logger.Warn().Err(err).Msg("failed to register bot commands")
	}
}

func (a *App) logStartup(mode string) {
	self := a.botIdentity()

	a.logger.Info().
		Str("mode", mode).
		Int64("bot_id", self.ID).
		Str("bot_handle", self.Handle).
		Bool("storage_enabled", a.cfg.StorageEnabled()).
		Bool("llm_enabled", a.cfg.LLMEnabled()).
		Int("port", a.cfg.HTTPPort).
		Msg("starting")

	if !a.cfg.LLMEnabled() {
		a.logger.Warn().Msg("LLM_API_KEY is not set, conversational replies will report the missing key")
	}

	if !a.cfg.StorageEnabled() {
		a.logger.Warn().Msg("POSTGRES_DSN is not set, interactions will not be recorded")
	}
}

// RunServe receives updates through the webhook endpoint and serves the dashboard API.
func (a *App) RunServe(ctx context.Context) error {
	a.logStartup("serve")

	d, err := a.newDispatcher()
	if err != nil {
		return err
	}

	a.registerCommands(ctx)

	httpCfg := a.cfg.HTTPCfg()
	hook := webhook.NewHandler(httpCfg, a.messageHandler(d), a.logger)

	routes := append([]observability.Route{{Path: httpCfg.WebhookPath, Handler: hook}}, a.dashboardRoutes()...)

	server := observability.NewServer(a.gateway, httpCfg.Port, a.logger, routes...)

	go a.refreshStats(ctx)

	err = server.Start(ctx)

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	if waitErr := hook.Wait(drainCtx); waitErr != nil {
		a.logger.Warn().Err(waitErr).Msg("in-flight updates were not drained")
	}

	return err
}

// RunPoll receives updates with long polling and serves the dashboard API alongside.
func (a *App) RunPoll(ctx context.Context) error {
	a.logStartup("poll")

	d, err := a.newDispatcher()
	if err != nil {
		return err
	}

	a.registerCommands(ctx)

	server := observability.NewServer(a.gateway, a.cfg.HTTPPort, a.logger, a.dashboardRoutes()...)
	poller := telegram.NewPoller(a.messenger, a.messageHandler(d), 0, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error {
		a.refreshStats(gctx)

		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("poll mode: %w", err)
	}

	return nil
}

// Migrate applies schema migrations and exits.
func (a *App) Migrate(ctx context.Context) error {
	if !a.cfg.StorageEnabled() {
		return errors.New("POSTGRES_DSN is not configured")
	}

	dbCfg := a.cfg.DatabaseCfg()

	database, err := db.NewWithOptions(ctx, dbCfg.PostgresDSN, poolOptions(dbCfg), a.logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	a.logger.Info().Msg("migrations applied")

	return nil
}

// SetWebhook registers baseURL joined with the webhook path, using the configured secret.
func (a *App) SetWebhook(ctx context.Context, baseURL string) error {
	httpCfg := a.cfg.HTTPCfg()
	url := admin.WebhookURL(baseURL, httpCfg.WebhookPath)

	res, err := a.messenger.SetWebhook(ctx, url, httpCfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	a.logger.Info().Str("url", res.URL).Bool("ok", res.OK).Str("description", res.Description).Msg("webhook registered")

	return nil
}
