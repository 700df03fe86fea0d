package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the onboarding service reads from the environment.
type Config struct {
	ShowTutorials bool `env:"ONBOARDING_SHOW_TUTORIALS" envDefault:"false"`

	CatalogURL     string        `env:"ONBOARDING_CATALOG_URL" envDefault:"https://strapi.io/videos"`
	CatalogTimeout time.Duration `env:"ONBOARDING_CATALOG_TIMEOUT" envDefault:"1s"`
	CatalogFile    string        `env:"CATALOG_FILE"`

	TelemetryURL  string `env:"TELEMETRY_URL" envDefault:"https://analytics.strapi.io/track"`
	TelemetryUUID string `env:"TELEMETRY_UUID"`
	ProjectType   string `env:"PROJECT_TYPE" envDefault:"Community"`

	HistoryDir    string `env:"HISTORY_DIR" envDefault:"keystore/history"`
	PostgresqlURL string `env:"POSTGRESQL_URL"`
	RedisURL      string `env:"REDIS_URL"`
	RedisURI      string `env:"REDIS_URI"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	Listen     string `env:"LISTEN" envDefault:"0.0.0.0:8000"`
	TrustProxy bool   `env:"TRUST_PROXY" envDefault:"true"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.CatalogTimeout <= 0 {
		return Config{}, fmt.Errorf("ONBOARDING_CATALOG_TIMEOUT must be positive, got %s", cfg.CatalogTimeout)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
