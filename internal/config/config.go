package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "notices.yaml"

type Config struct {
	HTTPAddr               string         `yaml:"http_addr" env:"HTTP_ADDR"`
	RPCSocket              string         `yaml:"rpc_socket" env:"RPC_SOCKET"`
	Database               DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	SystemTimezone         string         `yaml:"system_timezone" env:"SYSTEM_TIMEZONE"`
	LoginRequired          bool           `yaml:"login_required" env:"LOGIN_REQUIRED"`
	ExemptViewPermissions  []string       `yaml:"exempt_view_permissions" env:"EXEMPT_VIEW_PERMISSIONS" envSeparator:","`
	BaseURL                string         `yaml:"base_url" env:"BASE_URL"`
	LogMode                string         `yaml:"log_mode" env:"LOG_MODE"`
	SessionTTL             time.Duration  `yaml:"session_ttl" env:"SESSION_TTL"`
	BootstrapAdminEmail    string         `yaml:"bootstrap_admin_email" env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string         `yaml:"bootstrap_admin_password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
	Plugin                 PluginConfig   `yaml:"plugin" envPrefix:"PLUGIN_"`

	location  *time.Location
	allowList domain.AllowList
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

type PluginConfig struct {
	AllowedContentTypes  []string `yaml:"allowed_content_types" env:"ALLOWED_CONTENT_TYPES" envSeparator:","`
	ICalPastDaysDefault  int      `yaml:"ical_past_days_default" env:"ICAL_PAST_DAYS_DEFAULT"`
	ICalCacheMaxAge      int      `yaml:"ical_cache_max_age" env:"ICAL_CACHE_MAX_AGE"`
	ICalTokenPlaceholder string   `yaml:"ical_token_placeholder" env:"ICAL_TOKEN_PLACEHOLDER"`
	EventHistoryDays     int      `yaml:"event_history_days" env:"EVENT_HISTORY_DAYS"`
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		RPCSocket:      "/tmp/notices.sock",
		Database:       DatabaseConfig{Driver: "sqlite", DSN: "./data/notices.db"},
		SystemTimezone: "UTC",
		LoginRequired:  true,
		BaseURL:        "http://localhost:8080",
		LogMode:        "dev",
		SessionTTL:     24 * time.Hour,
		Plugin: PluginConfig{
			AllowedContentTypes:  []string{"circuits.Circuit", "dcim.PowerFeed", "dcim.Site"},
			ICalPastDaysDefault:  30,
			ICalCacheMaxAge:      900,
			ICalTokenPlaceholder: "changeme",
			EventHistoryDays:     30,
		},
	}
}

// Load layers defaults, the YAML file, a .env file and NOTICES_* variables,
// in that order. A missing file at DefaultPath is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = os.Getenv("NOTICES_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "NOTICES_"}); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings and caches the parsed timezone and allow-list.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.SystemTimezone))
	if err != nil {
		return fmt.Errorf("system_timezone: %w", err)
	}
	c.location = loc
	al, err := domain.NewAllowList(c.Plugin.AllowedContentTypes)
	if err != nil {
		return fmt.Errorf("plugin.allowed_content_types: %w", err)
	}
	c.allowList = al
	if c.Plugin.ICalPastDaysDefault < 0 || c.Plugin.ICalPastDaysDefault > 365 {
		return fmt.Errorf("plugin.ical_past_days_default must be between 0 and 365, got %d", c.Plugin.ICalPastDaysDefault)
	}
	if c.Plugin.ICalCacheMaxAge < 0 {
		return errors.New("plugin.ical_cache_max_age must not be negative")
	}
	if c.Plugin.EventHistoryDays <= 0 {
		c.Plugin.EventHistoryDays = 30
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c Config) AllowList() domain.AllowList {
	return c.allowList
}
