// Package config loads server configuration from environment variables.
//
// A .env file in the working directory is loaded first when present; values
// already set in the environment take precedence.
//
// Required variables:
//   - FEATURES_BASE_URL: absolute http(s) URL of the partner features service.
//
// Optional variables:
//   - PARTNER_ID: partner whose features are resolved at startup. Empty keeps
//     the resolver loading until a partner is set.
//   - HTTP_ADDR: listen address for the HTTP server (default ":8080").
//   - GRPC_ADDR: listen address for the gRPC health server (default ":9090").
//   - LOG_LEVEL: debug, info, warn or error (default "info").
//   - LOG_FORMAT: json or text (default "json").
//   - CATALOG_FILE: YAML product catalog replacing the built-in one.
//   - REFETCH_RATE_LIMIT: refetch requests per minute per client IP
//     (default "10", must be > 0).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the moneycoach server.
type Config struct {
	FeaturesBaseURL  string `env:"FEATURES_BASE_URL,required,notEmpty"`
	PartnerID        string `env:"PARTNER_ID"`
	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr         string `env:"GRPC_ADDR" envDefault:":9090"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"json"`
	CatalogFile      string `env:"CATALOG_FILE"`
	RefetchRateLimit int    `env:"REFETCH_RATE_LIMIT" envDefault:"10"`
}

// Load reads configuration from the environment, applying defaults where
// appropriate. It returns an error if required variables are missing or if
// values fail validation.
func Load() (Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()
	return Parse(env.Options{})
}

// Parse reads configuration using opts, which lets callers supply an explicit
// environment instead of the process one.
func Parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg.FeaturesBaseURL = strings.TrimSpace(cfg.FeaturesBaseURL)
	cfg.PartnerID = strings.TrimSpace(cfg.PartnerID)
	cfg.HTTPAddr = orDefault(cfg.HTTPAddr, ":8080")
	cfg.GRPCAddr = orDefault(cfg.GRPCAddr, ":9090")
	cfg.LogLevel = orDefault(cfg.LogLevel, "info")
	cfg.LogFormat = strings.ToLower(orDefault(cfg.LogFormat, "json"))
	cfg.CatalogFile = strings.TrimSpace(cfg.CatalogFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that struct tags cannot express.
func (c Config) Validate() error {
	u, err := url.Parse(c.FeaturesBaseURL)
	if err != nil {
		return fmt.Errorf("parse FEATURES_BASE_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("FEATURES_BASE_URL must be an absolute http(s) URL")
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}

	if c.RefetchRateLimit <= 0 {
		return errors.New("REFETCH_RATE_LIMIT must be > 0")
	}

	return nil
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
