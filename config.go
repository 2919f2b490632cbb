package tgbot

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/vldm/tgbot/types"
)

// Supported update delivery modes.
const (
	// ModePolling pulls updates via long polling.
	ModePolling = "polling"
	// ModeWebhook receives updates pushed to an HTTP endpoint.
	ModeWebhook = "webhook"
)

// Config holds process configuration for a bot built on this package.
type Config struct {
	// Token is the bot secret token (required).
	Token string `koanf:"token" validate:"required,bottoken"`
	// Proxy is an optional forward-proxy connection string.
	Proxy string `koanf:"proxy" validate:"omitempty,url"`
	// BaseURL overrides the Bot API host.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	// Mode selects the update delivery mechanism.
	Mode string `koanf:"mode" validate:"oneof=polling webhook"`

	Polling PollingConfig `koanf:"polling"`
	Webhook WebhookConfig `koanf:"webhook"`
	Log     LogConfig     `koanf:"log"`
}

// PollingConfig holds long poller settings.
type PollingConfig struct {
	Timeout            int           `koanf:"timeout" validate:"min=0,max=60"`
	Limit              int           `koanf:"limit" validate:"min=1,max=100"`
	MaxErrors          int           `koanf:"max_errors" validate:"min=0"`
	AllowedUpdates     []string      `koanf:"allowed_updates"`
	QueueSize          int           `koanf:"queue_size" validate:"min=1"`
	RetryInitialDelay  time.Duration `koanf:"retry_initial_delay"`
	RetryMaxDelay      time.Duration `koanf:"retry_max_delay"`
	RetryBackoffFactor float64       `koanf:"retry_backoff_factor"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	// File enables size-rotated file output when set.
	File string `koanf:"file"`
}

// configValidate is the shared validator for configuration.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())

	// Use koanf tags in error messages so failures name config keys.
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})

	configValidate.RegisterValidation("bottoken", func(fl validator.FieldLevel) bool {
		token := fl.Field().String()
		if token == "" {
			return true // let 'required' handle empty
		}
		return ValidateBotToken(SecretToken(token)) == nil
	})
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode: ModePolling,
		Polling: PollingConfig{
			Timeout:            defaultPollTimeout,
			Limit:              defaultPollLimit,
			MaxErrors:          defaultMaxConsecutiveErrors,
			QueueSize:          defaultQueueSize,
			RetryInitialDelay:  defaultRetryInitialDelay,
			RetryMaxDelay:      defaultRetryMaxDelay,
			RetryBackoffFactor: defaultRetryBackoffFactor,
		},
		Webhook: WebhookConfig{
			Addr:              ":8443",
			Path:              "/",
			MaxBodySize:       defaultMaxBodySize,
			RateLimitRequests: defaultRateLimitRequests,
			RateLimitBurst:    defaultRateLimitBurst,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from multiple sources.
// Precedence (highest to lowest):
//  1. Environment variables (TGBOT_*)
//  2. Config file (if path provided)
//  3. Default values
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("TGBOT_", ".", func(s string) string {
		// TGBOT_POLLING_TIMEOUT -> polling.timeout
		key := strings.ToLower(strings.TrimPrefix(s, "TGBOT_"))
		return strings.ReplaceAll(key, "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig validates the configuration and returns user-friendly errors.
func ValidateConfig(cfg *Config) error {
	if cfg.Token == "" {
		return fmt.Errorf("token: %w (set via TGBOT_TOKEN env var)", ErrBotTokenRequired)
	}
	if err := ValidateBotToken(SecretToken(cfg.Token)); err != nil {
		return fmt.Errorf("token: %w (format: 123456789:ABCdefGHI...)", err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewLogger builds a logger from the config's log section.
func (cfg *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return NewLogger(level, cfg.Log.File)
}

// LongPollOptions derives poller options from the config's polling section.
func (cfg *Config) LongPollOptions() []LongPollOption {
	opts := []LongPollOption{
		WithPolling(cfg.Polling.Timeout, cfg.Polling.Limit),
		WithMaxErrors(cfg.Polling.MaxErrors),
		WithQueueSize(cfg.Polling.QueueSize),
		WithRetryConfig(
			cfg.Polling.RetryInitialDelay,
			cfg.Polling.RetryMaxDelay,
			cfg.Polling.RetryBackoffFactor,
		),
	}
	if len(cfg.Polling.AllowedUpdates) > 0 {
		kinds := make([]types.AllowedUpdate, 0, len(cfg.Polling.AllowedUpdates))
		for _, name := range cfg.Polling.AllowedUpdates {
			kinds = append(kinds, types.AllowedUpdate(name))
		}
		opts = append(opts, WithAllowedUpdates(kinds))
	}
	return opts
}

// WebhookOptions derives webhook handler options from the config's webhook
// section.
func (cfg *Config) WebhookOptions() []WebhookOption {
	opts := []WebhookOption{
		WithWebhookMaxBodySize(cfg.Webhook.MaxBodySize),
		WithWebhookRateLimit(cfg.Webhook.RateLimitRequests, cfg.Webhook.RateLimitBurst),
	}
	if cfg.Webhook.Secret != "" {
		opts = append(opts, WithWebhookSecret(cfg.Webhook.Secret))
	}
	return opts
}
