package db

import (
	"errors"
	"time"
)

// Pool defaults used when configuration leaves a value at zero.
const (
	defaultMaxConns          = 5
	defaultMinConns          = 0
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultMaxConnLifetime   = time.Hour
	defaultHealthCheckPeriod = time.Minute
)

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for the eager connection used by the migrate command
	maxConnectionRetries = 10
)

var errGatewayClosed = errors.New("gateway closed")

// Gateway defaults
const (
	defaultConnectTimeout    = 5 * time.Second
	defaultReconnectCooldown = 30 * time.Second
)

// Log field names
const (
	logFieldKind       = "kind"
	logFieldExternalID = "external_id"
	logFieldRetryAfter = "retry_after"
)
