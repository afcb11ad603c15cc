package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Storage. Driver is one of "postgres", "sqlite", "memory".
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"vrsa.db"`

	// Server
	Port int `env:"PORT" envDefault:"3000"`

	// Generation (optional; the generate endpoint is disabled without a key)
	OpenRouterKey string `env:"OPENROUTER_API_KEY"`
	GenerateModel string `env:"GENERATE_MODEL" envDefault:"z-ai/glm-4.5-air:free"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required with the postgres store driver")
	}
	return cfg, nil
}
