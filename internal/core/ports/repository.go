// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

// IdentityStore handles user and group identity records.
type IdentityStore interface {
	// UpsertIdentity inserts the identity unblocked when absent, otherwise refreshes it.
	// LastSeenAt never moves backwards.
	UpsertIdentity(ctx context.Context, patch domain.IdentityPatch) error
	// GetIdentity returns nil without error when the identity does not exist.
	GetIdentity(ctx context.Context, kind domain.IdentityKind, externalID int64) (*domain.Identity, error)
	// SetBlocked returns false when the identity does not exist.
	SetBlocked(ctx context.Context, kind domain.IdentityKind, externalID int64, blocked bool) (bool, error)
	CountIdentities(ctx context.Context, filter domain.IdentityFilter) (int64, error)
	// ListRecentIdentities returns identities ordered by LastSeenAt, newest first.
	ListRecentIdentities(ctx context.Context, filter domain.IdentityFilter, limit int) ([]domain.Identity, error)
}

// LogStore handles the append-only interaction log.
type LogStore interface {
	AppendLog(ctx context.Context, entry domain.InteractionLogEntry) error
	CountLogs(ctx context.Context) (int64, error)
	// RecentLogs returns up to limit entries of a chat strictly older than before, oldest first.
	RecentLogs(ctx context.Context, chatID int64, before time.Time, limit int) ([]domain.InteractionLogEntry, error)
}

// Repository is the full persistence surface.
type Repository interface {
	IdentityStore
	LogStore
	Ping(ctx context.Context) error
}

// RepositoryProvider hands out a connected repository, connecting lazily on first use.
type RepositoryProvider interface {
	Acquire(ctx context.Context) (Repository, error)
}

// Messenger is the outbound surface of the chat platform.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, replyToMessageID int) error
	SendTyping(ctx context.Context, chatID int64) error
	GetChatMember(ctx context.Context, chatID, userID int64) (domain.MemberStatus, error)
	BanMember(ctx context.Context, chatID, userID int64) error
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	PromoteMember(ctx context.Context, chatID, userID int64, caps domain.AdminCapabilities) error
}

// WebhookRegistrar registers the webhook URL with the platform.
type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, url, secretToken string) (WebhookResult, error)
}

// WebhookResult mirrors the platform's reply to a webhook registration.
type WebhookResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}
