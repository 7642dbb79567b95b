package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "CFPULSE_"
	envConfig  = "CFPULSE_CONFIG"
	envEnvFile = "CFPULSE_ENV_FILE"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New())
//  2. a .env file (CFPULSE_ENV_FILE, default ".env"); it only seeds unset env vars
//  3. a YAML file if CFPULSE_CONFIG is set
//  4. env vars with the CFPULSE_ prefix
func Load(_ context.Context) (*Config, error) {
	base := New()

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CFPULSE_CACHE_TTL_SECONDS -> cache_ttl_seconds; underscores are kept
	// so the flat keys match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// A configured list replaces the default one instead of merging into it.
	if k.Exists("metrics_latency_buckets_ms") {
		cfg.LatencyBucketsMS = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv(envEnvFile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, path, err)
}
