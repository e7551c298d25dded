package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.GameState.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("game_state.transport %q is invalid; valid values: stdio, streamable-http", cfg.GameState.Transport))
	} else {
		switch cfg.GameState.Transport {
		case "stdio":
			if cfg.GameState.Command == "" {
				errs = append(errs, errors.New("game_state.command is required for stdio transport"))
			}
		case "streamable-http":
			if cfg.GameState.URL == "" {
				errs = append(errs, errors.New("game_state.url is required for streamable-http transport"))
			}
		}
	}

	if cfg.Sync.RateLimitMS < 0 {
		errs = append(errs, errors.New("sync.rate_limit_ms must not be negative"))
	}
	if cfg.Sync.DebounceMS < 0 {
		errs = append(errs, errors.New("sync.debounce_ms must not be negative"))
	}
	if cfg.Sync.TimeoutMS < 0 {
		errs = append(errs, errors.New("sync.timeout_ms must not be negative"))
	}
	if cfg.Sync.RefreshIntervalMS < 0 {
		errs = append(errs, errors.New("sync.refresh_interval_ms must not be negative"))
	}

	return errors.Join(errs...)
}
