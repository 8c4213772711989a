package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN      string `env:"DATABASE_DSN,required=true"`
	RedisURL         string `env:"REDIS_URL,required=true"`
	CoreAPIURL       string `env:"CORE_API_URL,required=true"`
	CoreAPIToken     string `env:"CORE_API_TOKEN"`
	RateLimitPerSec  int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	BulkItemDelayMs  int    `env:"BULK_ITEM_DELAY_MS,default=100"`
	PollIntervalMs   int    `env:"POLL_INTERVAL_MS,default=2000"`
	RunRetentionDays int    `env:"RUN_RETENTION_DAYS,default=30"`
	APIPort          int    `env:"API_PORT,default=8080"`
	LogLevel         string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
