// Package config loads timemachine settings from defaults, an optional YAML
// file and TIMEMACHINE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
)

// Sentinel validation errors.
var (
	ErrEmptyRepositoryPath = errors.New("repository path must not be empty")
	ErrInvalidBackend      = errors.New("unknown repository backend")
	ErrInvalidLimit        = errors.New("history limits must be positive")
	ErrLimitAboveMax       = errors.New("default limit exceeds max limit")
	ErrInvalidContextLines = errors.New("diff context lines must not be negative")
	ErrInvalidPort         = errors.New("invalid server port")
	ErrInvalidTimeout      = errors.New("server timeouts must be positive")
	ErrInvalidConcurrent   = errors.New("max concurrent must not be negative")
	ErrInvalidLogLevel     = errors.New("unknown log level")
	ErrInvalidLogFormat    = errors.New("unknown log format")
	ErrInvalidSampleRatio  = errors.New("sample ratio must be within [0, 1]")
)

const maxPort = 65535

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the complete timemachine configuration.
type Config struct {
	Repository    RepositoryConfig    `mapstructure:"repository"`
	History       HistoryConfig       `mapstructure:"history"`
	Diff          DiffConfig          `mapstructure:"diff"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// RepositoryConfig selects the repository every query runs against.
type RepositoryConfig struct {
	Path    string `mapstructure:"path"`
	Backend string `mapstructure:"backend"`
}

// HistoryConfig bounds commits-affecting queries.
type HistoryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// DiffConfig controls diff generation.
type DiffConfig struct {
	ContextLines  int  `mapstructure:"context_lines"`
	ShowBinary    bool `mapstructure:"show_binary"`
	DetectRenames bool `mapstructure:"detect_renames"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Port            int           `mapstructure:"port"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	Prometheus   bool    `mapstructure:"prometheus"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Repository.Path) == "" {
		return ErrEmptyRepositoryPath
	}

	_, err := gitaccess.ParseBackend(c.Repository.Backend)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Repository.Backend)
	}

	if c.History.DefaultLimit <= 0 || c.History.MaxLimit <= 0 {
		return fmt.Errorf("%w: default %d, max %d", ErrInvalidLimit, c.History.DefaultLimit, c.History.MaxLimit)
	}

	if c.History.DefaultLimit > c.History.MaxLimit {
		return fmt.Errorf("%w: %d > %d", ErrLimitAboveMax, c.History.DefaultLimit, c.History.MaxLimit)
	}

	if c.Diff.ContextLines < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidContextLines, c.Diff.ContextLines)
	}

	err = c.Server.validate()
	if err != nil {
		return err
	}

	err = c.Logging.validate()
	if err != nil {
		return err
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Observability.SampleRatio)
	}

	return nil
}

func (s ServerConfig) validate() error {
	if s.Port <= 0 || s.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, s.Port)
	}

	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 || s.IdleTimeout <= 0 || s.ShutdownTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if s.MaxConcurrent < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrent, s.MaxConcurrent)
	}

	return nil
}

func (l LoggingConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	switch l.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, l.Format)
	}

	return nil
}
