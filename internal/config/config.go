// Package config loads the bot configuration: the shared core settings plus
// storage, pending-edit and policy defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/whoisbot/core/config"
	coredatabase "github.com/m3rciful/whoisbot/core/database"
	"github.com/m3rciful/whoisbot/internal/model"
	"github.com/m3rciful/whoisbot/internal/pending"
	"github.com/m3rciful/whoisbot/internal/texts"
)

// Pending-edit backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// PendingConfig selects where open edits live.
type PendingConfig struct {
	Backend    string `yaml:"backend" envconfig:"PENDING_BACKEND"`
	TTLSeconds int    `yaml:"ttl_seconds" envconfig:"PENDING_TTL_SECONDS"`
}

// TTL returns the edit lifetime.
func (p PendingConfig) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

// DefaultsConfig holds the values a newly managed chat starts with.
type DefaultsConfig struct {
	Locale               string `yaml:"locale" envconfig:"BOT_LOCALE"`
	KickTimeoutMinutes   int    `yaml:"kick_timeout_minutes" envconfig:"DEFAULT_KICK_TIMEOUT"`
	NotifyTimeoutMinutes int    `yaml:"notify_timeout_minutes" envconfig:"DEFAULT_NOTIFY_TIMEOUT"`
	WhoisLength          int    `yaml:"whois_length" envconfig:"DEFAULT_WHOIS_LENGTH"`
}

// Limits converts the numeric defaults.
func (d DefaultsConfig) Limits() model.Limits {
	return model.Limits{
		KickTimeout:   d.KickTimeoutMinutes,
		NotifyTimeout: d.NotifyTimeoutMinutes,
		WhoisLength:   d.WhoisLength,
	}
}

// MetricsConfig configures the operational HTTP endpoint. An empty Listen
// disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// AppConfig is the full bot configuration.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Pending  PendingConfig       `yaml:"pending"`
	Defaults DefaultsConfig      `yaml:"defaults"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	// WaitDBSeconds keeps retrying the database on startup.
	WaitDBSeconds int `yaml:"wait_db_seconds" envconfig:"WAIT_DB_SECONDS"`
}

// CoreConfig exposes the embedded core configuration.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays environment variables and
// validates the result.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data, overlays environment variables and validates.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return err
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Pending.Backend))
	if backend == "" {
		backend = BackendMemory
	}
	switch backend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when pending.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid pending.backend %q; allowed: memory, redis", cfg.Pending.Backend)
	}
	cfg.Pending.Backend = backend
	if cfg.Pending.TTLSeconds < 0 {
		return fmt.Errorf("pending.ttl_seconds must be >= 0")
	}
	if cfg.Pending.TTLSeconds == 0 {
		cfg.Pending.TTLSeconds = int(pending.DefaultTTL / time.Second)
	}

	d := &cfg.Defaults
	d.Locale = strings.ToLower(strings.TrimSpace(d.Locale))
	if d.Locale == "" {
		d.Locale = texts.DefaultLocale
	}
	if d.KickTimeoutMinutes < 0 || d.NotifyTimeoutMinutes < 0 || d.WhoisLength < 0 {
		return fmt.Errorf("defaults must not be negative")
	}
	if d.KickTimeoutMinutes == 0 {
		d.KickTimeoutMinutes = model.DefaultKickTimeoutMinutes
	}
	if d.NotifyTimeoutMinutes == 0 {
		d.NotifyTimeoutMinutes = model.DefaultNotifyTimeoutMinutes
	}
	if d.WhoisLength == 0 {
		d.WhoisLength = model.DefaultWhoisLength
	}
	if cfg.WaitDBSeconds < 0 {
		return fmt.Errorf("wait_db_seconds must be >= 0")
	}
	return nil
}
