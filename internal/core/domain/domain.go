// Package domain holds the entities shared by the bot, the storage layer and the admin surface.
package domain

import (
	"time"
)

// IdentityKind distinguishes users from group chats in the identity store.
type IdentityKind string

const (
	IdentityUser  IdentityKind = "user"
	IdentityGroup IdentityKind = "group"
)

// Identity is a user or a group observed by the bot.
type Identity struct {
	Kind        IdentityKind
	ExternalID  int64
	DisplayName string
	Handle      string
	Blocked     bool
	LastSeenAt  time.Time
	CreatedAt   time.Time
}

// IdentityPatch is the set of fields refreshed on every observed message.
// Blocked is never part of a patch; new identities are inserted unblocked.
type IdentityPatch struct {
	Kind        IdentityKind
	ExternalID  int64
	DisplayName string
	Handle      string
	LastSeenAt  time.Time
}

// IdentityFilter selects identities for counting and listing.
// A nil Blocked matches both blocked and unblocked identities.
type IdentityFilter struct {
	Kind    IdentityKind
	Blocked *bool
}

// Originator marks who authored an interaction log entry.
type Originator string

const (
	OriginatorUser Originator = "user"
	OriginatorBot  Originator = "bot"
)

// BotActorID is the actor ID recorded for bot-authored log entries.
const BotActorID int64 = 0

// InteractionLogEntry is one append-only record of a processed message or a bot reply.
type InteractionLogEntry struct {
	ID         string
	ChatID     int64
	ActorID    int64
	Text       string
	Originator Originator
	Timestamp  time.Time
}

// ChatKind is the coarse chat type the bot cares about.
type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
)

// Sender is the author of an inbound message.
type Sender struct {
	ID          int64
	DisplayName string
	Handle      string
	IsBot       bool
}

// ReplyTarget describes the message an inbound message replies to.
type ReplyTarget struct {
	SenderID     int64
	SenderHandle string
	DisplayName  string
	IsBot        bool
}

// InboundMessage is the per-request view of one chat message.
type InboundMessage struct {
	MessageID   int
	ChatID      int64
	ChatKind    ChatKind
	ChatTitle   string
	Text        string
	Sender      Sender
	ReplyTarget *ReplyTarget
	// MentionedHandles holds @mentions without the leading @, as reported by message entities.
	MentionedHandles []string
	ReceivedAt       time.Time
}

// IsGroup reports whether the message was posted in a group or supergroup.
func (m InboundMessage) IsGroup() bool {
	return m.ChatKind == ChatGroup
}

// BotIdentity is the bot's own account as reported by the platform.
type BotIdentity struct {
	ID     int64
	Handle string
}

// Chat member statuses reported by the platform.
const (
	MemberStatusCreator       = "creator"
	MemberStatusAdministrator = "administrator"
	MemberStatusMember        = "member"
	MemberStatusRestricted    = "restricted"
	MemberStatusLeft          = "left"
	MemberStatusKicked        = "kicked"
)

// MemberStatus is the membership state of a user in a chat.
type MemberStatus struct {
	Status             string
	CanRestrictMembers bool
	CanPromoteMembers  bool
}

// IsPrivileged reports whether the status grants administrative rights.
func (s MemberStatus) IsPrivileged() bool {
	return s.Status == MemberStatusAdministrator || s.Status == MemberStatusCreator
}

// AdminCapabilities is the set of rights granted by a promotion.
// Promotion rights are deliberately absent so promoted members cannot promote others.
type AdminCapabilities struct {
	ManageChat      bool
	DeleteMessages  bool
	InviteUsers     bool
	RestrictMembers bool
	PinMessages     bool
	ChangeInfo      bool
	ManageVoiceChat bool
}

// ModerationKind is one of the supported moderation actions.
type ModerationKind string

const (
	ModerationKick    ModerationKind = "kick"
	ModerationMute    ModerationKind = "mute"
	ModerationPromote ModerationKind = "promote"
)

// ModerationIntent is a classified moderation request. TargetID always comes from the reply target.
type ModerationIntent struct {
	Kind        ModerationKind
	TargetID    int64
	RequesterID int64
}
