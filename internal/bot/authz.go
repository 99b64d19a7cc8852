package bot

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
	"github.com/lueurxax/ekki-bot/internal/core/ports"
)

// Authorizer checks who may invoke moderation and whether the bot can carry it out.
// Every lookup failure is treated as "not allowed".
type Authorizer struct {
	ownerID   int64
	botID     int64
	messenger ports.Messenger
	logger    *zerolog.Logger
}

// NewAuthorizer creates an authorizer. An ownerID of zero disables the owner shortcut.
func NewAuthorizer(ownerID, botID int64, messenger ports.Messenger, logger *zerolog.Logger) *Authorizer {
	return &Authorizer{ownerID: ownerID, botID: botID, messenger: messenger, logger: logger}
}

// RequesterAuthorized reports whether userID administers chatID. The owner is authorized without a lookup.
func (a *Authorizer) RequesterAuthorized(ctx context.Context, chatID, userID int64) bool {
	if a.ownerID != 0 && userID == a.ownerID {
		return true
	}

	status, err := a.messenger.GetChatMember(ctx, chatID, userID)
	if err != nil {
		a.logger.Warn().Err(err).Int64(logFieldChatID, chatID).Int64(logFieldUserID, userID).Msg("requester lookup failed")

		return false
	}

	return status.IsPrivileged()
}

// BotCan reports whether the bot holds the rights needed for kind in chatID.
func (a *Authorizer) BotCan(ctx context.Context, chatID int64, kind domain.ModerationKind) bool {
	status, err := a.messenger.GetChatMember(ctx, chatID, a.botID)
	if err != nil {
		a.logger.Warn().Err(err).Int64(logFieldChatID, chatID).Msg("bot privilege lookup failed")

		return false
	}

	switch status.Status {
	case domain.MemberStatusCreator:
		return true
	case domain.MemberStatusAdministrator:
		if kind == domain.ModerationPromote {
			return status.CanPromoteMembers
		}

		return status.CanRestrictMembers
	default:
		return false
	}
}
