package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source types understood by the source factory.
const (
	SourceGreenhouse = "greenhouse"
	SourceLever      = "lever"
	SourceAshby      = "ashby"
	SourceGem        = "gem"
	SourceWorkday    = "workday"
	SourceRSS        = "rss"
	SourceHTML       = "html"
)

// State backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Notification sink types.
const (
	NotifyLog      = "log"
	NotifySlack    = "slack"
	NotifyTelegram = "telegram"
)

const slackWebhookPrefix = "https://hooks.slack.com/"

// Config is the runtime configuration for jobspot: how to reach sources and
// sinks. Bot credentials, channels, interval and keywords live in the
// persisted state instead.
type Config struct {
	State         StateConfig
	SourceTimeout time.Duration // zero disables the per-source timeout
	RateLimit     RateLimitConfig
	Notification  NotificationConfig
	Metrics       MetricsConfig
	Sources       []SourceConfig
}

// StateConfig selects where the persisted state lives.
type StateConfig struct {
	Backend string `yaml:"backend"` // "file" (default) or "sqlite"
	Path    string `yaml:"path"`
}

// RateLimitConfig controls provider-level rate limiting.
type RateLimitConfig struct {
	MinDelay  time.Duration            // minimum gap between requests to the same provider
	Overrides map[string]time.Duration // keyed by source type
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "telegram"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// SourceConfig describes a single listing source.
type SourceConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	BoardToken string `yaml:"board_token"` // greenhouse, lever, ashby, gem
	URL        string `yaml:"url"`         // workday, rss, html
	Selector   string `yaml:"selector"`    // html only; defaults to "a"
	LinkPrefix string `yaml:"link_prefix"` // html only; keep links starting with this
	Enabled    bool   `yaml:"enabled"`
}

// rawConfig is used for YAML unmarshaling (durations as strings).
type rawConfig struct {
	State         StateConfig        `yaml:"state"`
	SourceTimeout string             `yaml:"source_timeout"`
	RateLimit     rawRateLimitConfig `yaml:"rate_limit"`
	Notification  NotificationConfig `yaml:"notification"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Sources       []SourceConfig     `yaml:"sources"`
}

type rawRateLimitConfig struct {
	MinDelay  string            `yaml:"min_delay"`
	Overrides map[string]string `yaml:"overrides"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	sourceTimeout := 60 * time.Second
	if raw.SourceTimeout != "" {
		sourceTimeout, err = time.ParseDuration(raw.SourceTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse source_timeout %q: %w", raw.SourceTimeout, err)
		}
	}

	minDelay := 2 * time.Second
	if raw.RateLimit.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.RateLimit.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.min_delay %q: %w", raw.RateLimit.MinDelay, err)
		}
	}

	overrides := make(map[string]time.Duration)
	for provider, v := range raw.RateLimit.Overrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.overrides[%q]: %w", provider, err)
		}
		overrides[provider] = d
	}

	cfg := &Config{
		State:         raw.State,
		SourceTimeout: sourceTimeout,
		RateLimit: RateLimitConfig{
			MinDelay:  minDelay,
			Overrides: overrides,
		},
		Notification: raw.Notification,
		Metrics:      raw.Metrics,
		Sources:      raw.Sources,
	}
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendFile
	}
	if cfg.State.Path == "" {
		if cfg.State.Backend == BackendSQLite {
			cfg.State.Path = "jobspot.db"
		} else {
			cfg.State.Path = "storage.json"
		}
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = NotifyLog
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		s.Type = strings.ToLower(s.Type)
		if s.Type == SourceHTML && s.Selector == "" {
			s.Selector = "a"
		}
	}
}

// EnabledSources returns the sources with enabled: true, in file order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func validate(cfg *Config) error {
	switch cfg.State.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("state.backend must be %q or %q, got %q", BackendFile, BackendSQLite, cfg.State.Backend)
	}

	if cfg.SourceTimeout < 0 {
		return fmt.Errorf("source_timeout must not be negative, got %v", cfg.SourceTimeout)
	}

	names := make(map[string]bool)
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name)
		}
		names[s.Name] = true
		if err := validateSource(s); err != nil {
			return fmt.Errorf("sources[%d] (%s): %w", i, s.Name, err)
		}
	}
	if len(cfg.EnabledSources()) == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	switch cfg.Notification.Type {
	case NotifyLog, NotifyTelegram:
	case NotifySlack:
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is %q", NotifySlack)
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be log, slack or telegram, got %q", cfg.Notification.Type)
	}
	return nil
}

func validateSource(s SourceConfig) error {
	switch s.Type {
	case SourceGreenhouse, SourceLever, SourceAshby, SourceGem:
		if s.BoardToken == "" {
			return fmt.Errorf("board_token is required for type %q", s.Type)
		}
	case SourceWorkday, SourceRSS, SourceHTML:
		if s.URL == "" {
			return fmt.Errorf("url is required for type %q", s.Type)
		}
	default:
		return fmt.Errorf("unknown type %q", s.Type)
	}
	return nil
}
