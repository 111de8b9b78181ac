package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if STANDLIVE_CONFIG is set
//  3. env (prefix STANDLIVE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("STANDLIVE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: STANDLIVE_ADDR, STANDLIVE_POLL_INTERVAL_MS, ...
	// Map env keys like STANDLIVE_POLL_INTERVAL_MS -> poll_interval_ms.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("STANDLIVE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "standlive_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Basic validation
	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.UpstreamBaseURL == "":
		return nil, fmt.Errorf("%w: upstream_base_url must not be empty", ErrInvalidConfig)
	case cfg.PollIntervalMS <= 0:
		return nil, fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	case cfg.FetchTimeoutMS <= 0:
		return nil, fmt.Errorf("%w: fetch_timeout_ms must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
