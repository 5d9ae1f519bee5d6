package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8080"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	RedisURL               string `env:"REDIS_URL,required"`
	LineChannelAccessToken string `env:"LINE_CHANNEL_ACCESS_TOKEN,required"`
	LineChannelSecret      string `env:"LINE_CHANNEL_SECRET"`
	APIToken               string `env:"API_TOKEN"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
	ProfileCacheTTLSeconds int    `env:"PROFILE_CACHE_TTL_SECONDS" envDefault:"21600"`

	// Follower sync tuning. The defaults bound job duration and outbound
	// request concurrency against the platform; they are not business rules.
	FollowerSyncMaxIDs          int `env:"FOLLOWER_SYNC_MAX_IDS" envDefault:"1000"`
	FollowerSyncChunkSize       int `env:"FOLLOWER_SYNC_CHUNK_SIZE" envDefault:"10"`
	FollowerSyncIntervalMinutes int `env:"FOLLOWER_SYNC_INTERVAL_MINUTES" envDefault:"0"`
}

func (c *Config) ProfileCacheTTL() time.Duration {
	return time.Duration(c.ProfileCacheTTLSeconds) * time.Second
}

// FollowerSyncInterval returns zero when periodic sync is disabled.
func (c *Config) FollowerSyncInterval() time.Duration {
	return time.Duration(c.FollowerSyncIntervalMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.FollowerSyncMaxIDs < 1 {
		return fmt.Errorf("FOLLOWER_SYNC_MAX_IDS must be at least 1")
	}
	if c.FollowerSyncChunkSize < 1 {
		return fmt.Errorf("FOLLOWER_SYNC_CHUNK_SIZE must be at least 1")
	}

	if isProduction {
		if err := validateSecret("API_TOKEN", c.APIToken); err != nil {
			return err
		}
		if c.LineChannelSecret == "" {
			log.Warn().Msg("LINE_CHANNEL_SECRET is empty in production: webhook signature verification disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: go run scripts/gen-token.go)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
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
