package bot

import "time"

// Administrative command names.
const (
	CmdStart = "start"
	CmdHelp  = "help"
)

// Log field constants.
const (
	logFieldChatID   = "chat_id"
	logFieldUserID   = "user_id"
	logFieldTargetID = "target_id"
	logFieldIntent   = "intent"
	logFieldOutcome  = "outcome"
	logFieldCommand  = "command"
	logFieldElapsed  = "elapsed"
)

// Storage operation names used as metric labels.
const (
	opUpsertUser  = "upsert_user"
	opUpsertGroup = "upsert_group"
	opAppendLog   = "append_log"
	opGetIdentity = "get_identity"
	opRecentLogs  = "recent_logs"
)

const (
	// storageTimeout bounds every best-effort persistence call made while handling a message.
	storageTimeout = 5 * time.Second
	// lookupTimeout bounds storage reads that run before the reply is sent.
	lookupTimeout = 300 * time.Millisecond
	// defaultCompletionTimeout is used when no completion budget is configured.
	defaultCompletionTimeout = 7 * time.Second
	// maxReplyUnits is Telegram's message limit in UTF-16 code units.
	maxReplyUnits = 4096
	// fallbackTargetName is used when a reply target has neither a name nor a handle.
	fallbackTargetName = "User"
)
