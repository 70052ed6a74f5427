package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 60 * time.Second
	ServerShutdownTimeout = 10 * time.Second
	DBPingTimeout         = 5 * time.Second
	RetentionJobInterval  = 1 * time.Hour
)

type Config struct {
	APIToken               string `env:"MONOBANK_API_TOKEN,required"`
	BaseURL                string `env:"MONOBANK_BASE_URL" envDefault:"https://api.monobank.ua"`
	Transport              string `env:"MCP_TRANSPORT" envDefault:"stdio"`
	Port                   int    `env:"PORT" envDefault:"8080"`
	HTTPTimeoutSeconds     int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"10"`
	RateLimitWindowSeconds int    `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	HTTPAuthToken          string `env:"HTTP_AUTH_TOKEN"`
	DatabaseURL            string `env:"DATABASE_URL"`
	RedisURL               string `env:"REDIS_URL"`
	AuditRetentionDays     int    `env:"AUDIT_RETENTION_DAYS" envDefault:"30"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.AuditRetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIToken) == "" {
		return fmt.Errorf("MONOBANK_API_TOKEN must not be blank")
	}
	if c.Transport != "stdio" && c.Transport != "http" {
		return fmt.Errorf("MCP_TRANSPORT must be stdio or http, got %q", c.Transport)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.RateLimitWindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if !strings.HasPrefix(c.BaseURL, "https://") {
		log.Warn().Msg("MONOBANK_BASE_URL is not https: the API token will travel in cleartext")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
