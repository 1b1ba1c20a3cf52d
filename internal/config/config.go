package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"labdesk/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Remote     RemoteConfig     `yaml:"remote"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// RemoteConfig points at the record-keeping service. A negative Timeout
// disables the per-request deadline; cancellation then comes only from
// the caller's context.
type RemoteConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Token        string        `yaml:"token"`
	Timeout      time.Duration `yaml:"timeout"`
	LabsCacheTTL time.Duration `yaml:"labs_cache_ttl"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// DashboardConfig tunes the review queue and the utilization card.
type DashboardConfig struct {
	PendingLimit        int           `yaml:"pending_limit"`
	ActivityLimit       int           `yaml:"activity_limit"`
	DefaultRejectReason string        `yaml:"default_reject_reason"`
	UtilizationLabID    int64         `yaml:"utilization_lab_id"`
	Timezone            string        `yaml:"timezone"`
	SessionTTL          time.Duration `yaml:"session_ttl"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	MutationRateLimit   int           `yaml:"mutation_rate_limit"`
	MutationRateWindow  time.Duration `yaml:"mutation_rate_window"`
}

// Location resolves Timezone, defaulting to the local zone.
func (d DashboardConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(d.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}

type TelegramConfig struct {
	Enabled    bool    `yaml:"enabled"`
	BotToken   string  `yaml:"bot_token"`
	ChatIDs    []int64 `yaml:"chat_ids"`
	Debug      bool    `yaml:"debug"`
	MaxRetries int     `yaml:"max_retries"`
	QueueSize  int     `yaml:"queue_size"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		return errors.New("remote base url is required")
	}
	if u, err := url.Parse(c.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote base url %q is not an absolute url", c.Remote.BaseURL)
	}

	if c.Dashboard.PendingLimit < 0 || c.Dashboard.ActivityLimit < 0 {
		return errors.New("dashboard limits must not be negative")
	}
	if _, err := c.Dashboard.Location(); err != nil {
		return fmt.Errorf("dashboard timezone: %w", err)
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
			return errors.New("telegram bot token is required when telegram is enabled")
		}
		if len(c.Telegram.ChatIDs) == 0 {
			return errors.New("telegram chat_ids are required when telegram is enabled")
		}
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	switch {
	case c.Remote.Timeout == 0:
		c.Remote.Timeout = 15 * time.Second
	case c.Remote.Timeout < 0:
		c.Remote.Timeout = 0
	}
	if c.Remote.LabsCacheTTL == 0 {
		c.Remote.LabsCacheTTL = 5 * time.Minute
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Telegram.MaxRetries == 0 {
		c.Telegram.MaxRetries = 3
	}

	if c.Dashboard.PendingLimit == 0 {
		c.Dashboard.PendingLimit = models.DefaultPendingLimit
	}
	if c.Dashboard.ActivityLimit == 0 {
		c.Dashboard.ActivityLimit = models.DefaultActivityLimit
	}
	if strings.TrimSpace(c.Dashboard.DefaultRejectReason) == "" {
		c.Dashboard.DefaultRejectReason = models.DefaultRejectReason
	}
	if c.Dashboard.SessionTTL == 0 {
		c.Dashboard.SessionTTL = 12 * time.Hour
	}
	if c.Dashboard.SweepInterval == 0 {
		c.Dashboard.SweepInterval = 5 * time.Minute
	}
	if c.Dashboard.MutationRateLimit == 0 {
		c.Dashboard.MutationRateLimit = 30
	}
	if c.Dashboard.MutationRateWindow == 0 {
		c.Dashboard.MutationRateWindow = time.Minute
	}
}
