// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTPConfig struct {
	Port          int           `yaml:"port"`
	AdminPassword string        `yaml:"admin_password"`
	JWTSecret     string        `yaml:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type PaymentConfig struct {
	BaseURL string `yaml:"base_url"` // gateway REST base, overridable for sandbox/tests
	Sandbox bool   `yaml:"sandbox"`
}

type BotConfig struct {
	Workers        int           `yaml:"workers"` // reserved capacity hint for the per-chat dispatcher
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
	ReconcileEvery time.Duration `yaml:"reconcile_every"`
	StaleAfter     time.Duration `yaml:"stale_after"`
}

// TenantFileConfig is the config-file fallback for the bots registry.
type TenantFileConfig struct {
	ID             int64  `yaml:"id"`
	Token          string `yaml:"token"`
	GroupTarget    int64  `yaml:"group_target"`
	WelcomeMessage string `yaml:"welcome_message"`
	GatewayToken   string `yaml:"gateway_token"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Log      LogConfig          `yaml:"log"`
	Database DatabaseConfig     `yaml:"database"`
	Redis    RedisConfig        `yaml:"redis"`
	HTTP     HTTPConfig         `yaml:"http"`
	Payment  PaymentConfig      `yaml:"payment"`
	Bot      BotConfig          `yaml:"bot"`
	Tenants  []TenantFileConfig `yaml:"tenants"` // used when the bots registry is empty/unreachable
	Security SecurityConfig     `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.SessionTTL <= 0 {
		cfg.HTTP.SessionTTL = 30 * time.Minute
	}
	if cfg.Bot.RateLimit <= 0 {
		cfg.Bot.RateLimit = 20
	}
	if cfg.Bot.RateWindow <= 0 {
		cfg.Bot.RateWindow = time.Minute
	}
	if cfg.Bot.ReconcileEvery <= 0 {
		cfg.Bot.ReconcileEvery = time.Minute
	}
	if cfg.Bot.StaleAfter <= 0 {
		cfg.Bot.StaleAfter = 10 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
