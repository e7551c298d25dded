// Package config provides the configuration schema and loader for the
// quest-keeper sync layer.
package config

import (
	"time"

	"github.com/Raven-Six/mnehmos.quest-keeper.game-sub001/internal/rpc/mcpbridge"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GameState GameStateConfig `yaml:"game_state"`
	Sync      SyncConfig      `yaml:"sync"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// LogLevel selects slog verbosity. Empty means info.
	LogLevel LogLevel `yaml:"log_level"`

	// ListenAddr is the bind address for the health and metrics endpoints.
	// Empty disables the HTTP surface.
	ListenAddr string `yaml:"listen_addr"`
}

// GameStateConfig describes the remote game-state MCP server.
type GameStateConfig struct {
	// Name identifies the server in logs. Empty means "game-state".
	Name string `yaml:"name"`

	// Transport selects the connection mechanism: stdio or streamable-http.
	Transport mcpbridge.Transport `yaml:"transport"`

	// Command is the executable (plus arguments) for stdio transport.
	Command string `yaml:"command"`

	// URL is the endpoint address for streamable-http transport.
	URL string `yaml:"url"`

	// Env holds extra environment variables for the stdio subprocess.
	Env map[string]string `yaml:"env"`
}

// SyncConfig tunes the scheduler guards and background refresh.
type SyncConfig struct {
	// RateLimitMS is the minimum spacing between unforced syncs per scope.
	// Zero means 2000.
	RateLimitMS int `yaml:"rate_limit_ms"`

	// DebounceMS is the trailing-edge quiet period for refresh requests.
	// Zero means 1000.
	DebounceMS int `yaml:"debounce_ms"`

	// TimeoutMS bounds one background sync execution. Zero means 30000.
	TimeoutMS int `yaml:"timeout_ms"`

	// RefreshIntervalMS drives the periodic background refresh. Zero
	// disables it.
	RefreshIntervalMS int `yaml:"refresh_interval_ms"`
}

// RateLimit returns the rate limit as a duration (0 when unset).
func (c SyncConfig) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMS) * time.Millisecond
}

// Debounce returns the debounce quiet period as a duration (0 when unset).
func (c SyncConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Timeout returns the sync timeout as a duration (0 when unset).
func (c SyncConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RefreshInterval returns the background refresh interval (0 when disabled).
func (c SyncConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// StorageConfig locates the local preferences database.
type StorageConfig struct {
	// Path is the SQLite file holding the persisted active party id.
	// Empty means "questkeeper.db" in the working directory.
	Path string `yaml:"path"`
}
