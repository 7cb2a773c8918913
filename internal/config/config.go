// Package config содержит логику чтения конфигурации сервиса витрины.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса витрины.
type Config struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	DatabaseURI       string `env:"DATABASE_URI"`
	AuthSecret        string `env:"AUTH_SECRET"`
	SupportWebhookURL string `env:"SUPPORT_WEBHOOK_URL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envWebhookURL := cfg.SupportWebhookURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.StringVar(&cfg.SupportWebhookURL, "w", "", "support chat webhook URL")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envWebhookURL != "" {
		cfg.SupportWebhookURL = envWebhookURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
