// Package config holds the settings shared by every bot built on core: the
// Telegram connection, logging and the update rate limit.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Run modes for receiving updates.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds that rate_limit.exclude_updates accepts.
const (
	UpdateCallback     = "callback"
	UpdateMessage      = "message"
	UpdateMyChatMember = "my_chat_member"
)

// TelegramConfig describes the bot account and how updates are fetched.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds of 0 selects the poller default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// AllowedUpdates overrides the update kinds requested from Telegram.
	AllowedUpdates []string `yaml:"allowed_updates" envconfig:"TELEGRAM_ALLOWED_UPDATES"`
	// SendRetries is the number of extra attempts for failed outbound calls.
	SendRetries int `yaml:"send_retries" envconfig:"TELEGRAM_SEND_RETRIES"`
}

// WebhookConfig is required in webhook mode only.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig tunes core/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// KeysOrder is a comma separated list of keys printed first.
	KeysOrder string `yaml:"keys_order" envconfig:"LOG_KEYS_ORDER"`
	// DebugSample is "num/den", "den" or "off".
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file" envconfig:"LOG_BOT_FILE"`
	// Profile is "prod", "dev" or "debug". Dev and debug default to kv output.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig throttles updates per user. ExcludeUpdates lists update
// kinds that bypass the limit.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the core sections. Applications embed it inline.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Normalize validates cfg and canonicalizes enumerated values in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := cfg.Telegram.normalize(); err != nil {
		return err
	}
	if cfg.Telegram.RunMode == RunModeWebhook {
		if err := cfg.Webhook.validate(); err != nil {
			return err
		}
	}
	return cfg.RateLimit.normalize()
}

func (t *TelegramConfig) normalize() error {
	if t.Token == "" {
		return errors.New("telegram token is required")
	}
	if t.SendRetries < 0 {
		return errors.New("telegram.send_retries must be >= 0")
	}
	if t.LongPollTimeoutSeconds < 0 {
		return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
	}
	for i, u := range t.AllowedUpdates {
		t.AllowedUpdates[i] = strings.ToLower(strings.TrimSpace(u))
	}
	switch mode := strings.ToLower(strings.TrimSpace(t.RunMode)); mode {
	case "", "polling", RunModeLongpoll:
		t.RunMode = RunModeLongpoll
	case RunModeWebhook:
		t.RunMode = mode
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", t.RunMode)
	}
	return nil
}

func (w WebhookConfig) validate() error {
	switch {
	case strings.TrimSpace(w.URL) == "":
		return errors.New("webhook.url is required in webhook mode")
	case strings.TrimSpace(w.Listen) == "":
		return errors.New("webhook.listen is required in webhook mode")
	case w.Port <= 0:
		return errors.New("webhook.port must be > 0 in webhook mode")
	}
	return nil
}

func (r *RateLimitConfig) normalize() error {
	if r.IntervalMS < 0 {
		return errors.New("rate_limit.interval_ms must be >= 0")
	}
	for i, v := range r.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		switch kind {
		case "", UpdateCallback, UpdateMessage, UpdateMyChatMember:
			r.ExcludeUpdates[i] = kind
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, my_chat_member", v)
		}
	}
	return nil
}
