// Package config содержит логику чтения конфигурации сервиса бронирования.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultSubmitTimeout = 5 * time.Second
)

// Config содержит параметры конфигурации сервиса бронирования.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	DatabaseURI     string        `env:"DATABASE_URI"`
	BackendAddress  string        `env:"BACKEND_ADDRESS"`
	SessionHashKey  string        `env:"SESSION_HASH_KEY"`
	SessionBlockKey string        `env:"SESSION_BLOCK_KEY"`
	SubmitTimeout   time.Duration `env:"SUBMIT_TIMEOUT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.BackendAddress, "b", "", "reservation backend address")
	flag.StringVar(&cfg.SessionHashKey, "k", "", "session cookie hash key")
	flag.StringVar(&cfg.SessionBlockKey, "e", "", "session cookie encryption key (16, 24 or 32 bytes)")
	flag.DurationVar(&cfg.SubmitTimeout, "t", defaultSubmitTimeout, "reservation submit timeout")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.BackendAddress != "" {
		cfg.BackendAddress = envCfg.BackendAddress
	}
	if envCfg.SessionHashKey != "" {
		cfg.SessionHashKey = envCfg.SessionHashKey
	}
	if envCfg.SessionBlockKey != "" {
		cfg.SessionBlockKey = envCfg.SessionBlockKey
	}
	if envCfg.SubmitTimeout > 0 {
		cfg.SubmitTimeout = envCfg.SubmitTimeout
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}

	switch len(cfg.SessionBlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("session block key must be 16, 24 or 32 bytes, got %d", len(cfg.SessionBlockKey))
	}

	return cfg, nil
}
