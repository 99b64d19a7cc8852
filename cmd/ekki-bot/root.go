package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lueurxax/ekki-bot/internal/app"
	"github.com/lueurxax/ekki-bot/internal/platform/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ekki-bot",
		Short:         "Ekki group chat bot with an operator dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPollCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newWebhookCmd())

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive updates through the webhook and serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), (*app.App).RunServe)
		},
	}
}

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Receive updates with long polling and serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), (*app.App).RunPoll)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), (*app.App).Migrate)
		},
	}
}

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the platform webhook registration",
	}

	var baseURL string

	set := &cobra.Command{
		Use:   "set",
		Short: "Register the webhook at the given public base URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), func(a *app.App, ctx context.Context) error {
				return a.SetWebhook(ctx, baseURL)
			})
		},
	}

	set.Flags().StringVar(&baseURL, "url", "", "Public base URL, for example https://ekki.example.com")
	_ = set.MarkFlagRequired("url") //nolint:errcheck // flag is defined above

	cmd.AddCommand(set)

	return cmd
}

// runApp loads configuration, builds the application and runs mode until a signal arrives.
func runApp(parent context.Context, mode func(*app.App, context.Context) error) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")

		return err
	}
	defer application.Close()

	if err := mode(application, ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")

			return nil
		}

		logger.Error().Err(err).Msg("application error")

		return err
	}

	return nil
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
