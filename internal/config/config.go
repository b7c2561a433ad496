package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"BABEL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"BABEL_DB_MAX_CONNS" default:"8"`

	ProviderPriority string `envconfig:"PROVIDER_PRIORITY" default:"tencent,deepl,niutrans"`
	BatchCeiling     int    `envconfig:"BATCH_CEILING" default:"5000"`

	CacheEnabled       bool `envconfig:"CACHE_ENABLED" default:"true"`
	CacheCapacity      int  `envconfig:"CACHE_CAPACITY" default:"10000"`
	CacheTTLHours      int  `envconfig:"CACHE_TTL_HOURS" default:"720"`
	CacheMinTextLength int  `envconfig:"CACHE_MIN_TEXT_LENGTH" default:"2"`
	CacheCrossProvider bool `envconfig:"CACHE_CROSS_PROVIDER" default:"true"`

	DefaultAdminUser     string `envconfig:"DEFAULT_ADMIN_USER" default:"admin"`
	DefaultAdminPassword string `envconfig:"DEFAULT_ADMIN_PASSWORD" default:""`
	CORSAllowedOrigins   string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("BABEL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("BABEL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("BABEL_DB_MIN_CONNS (%d) cannot exceed BABEL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if len(c.ProviderPriorityList()) == 0 {
		return fmt.Errorf("PROVIDER_PRIORITY must name at least one provider")
	}
	if c.BatchCeiling < 1 {
		return fmt.Errorf("BATCH_CEILING must be >= 1")
	}
	if c.CacheCapacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be >= 1")
	}
	if c.CacheTTLHours < 1 {
		return fmt.Errorf("CACHE_TTL_HOURS must be >= 1")
	}
	if c.CacheMinTextLength < 0 {
		return fmt.Errorf("CACHE_MIN_TEXT_LENGTH must be >= 0")
	}
	if strings.TrimSpace(c.DefaultAdminUser) == "" {
		return fmt.Errorf("DEFAULT_ADMIN_USER is required")
	}
	return nil
}

func (c *Config) ProviderPriorityList() []string {
	return splitCSV(c.ProviderPriority)
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitCSV(c.CORSAllowedOrigins)
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
