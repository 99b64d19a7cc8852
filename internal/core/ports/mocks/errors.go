package mocks

import "errors"

var (
	// ErrSendFailed is returned by Messenger when a chat is configured to fail sends.
	ErrSendFailed = errors.New("send failed")

	// ErrModerationRejected is returned by Messenger when moderation calls are configured to fail.
	ErrModerationRejected = errors.New("moderation rejected")

	// ErrLookupFailed is returned by Messenger when member lookups are configured to fail.
	ErrLookupFailed = errors.New("member lookup failed")
)
