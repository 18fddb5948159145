package config

import "time"

// Repository defaults.
const (
	DefaultRepositoryPath    = "."
	DefaultRepositoryBackend = "libgit2"
)

// History defaults.
const (
	DefaultHistoryLimit    = 50
	DefaultHistoryMaxLimit = 1000
)

// Diff defaults.
const (
	DefaultDiffContextLines  = 3
	DefaultDiffShowBinary    = true
	DefaultDiffDetectRenames = false
)

// Server defaults.
const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 3000
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerIdleTimeout     = 120 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultServerMaxConcurrent   = 16
)

// DefaultServerCORSOrigins allows every origin.
var DefaultServerCORSOrigins = []string{"*"}

// Logging defaults.
const (
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"
)

// Observability defaults.
const (
	DefaultObservabilitySampleRatio = 1.0
	DefaultObservabilityPrometheus  = true
)
