package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

func TestLoadLayersYAMLAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notices.yaml")
	body := `
http_addr: ":9090"
system_timezone: Europe/Vilnius
login_required: false
database:
  driver: sqlite
  dsn: /tmp/x.db
plugin:
  allowed_content_types: ["circuits.Circuit", "dcim.Site"]
  ical_past_days_default: 14
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NOTICES_HTTP_ADDR", ":7070")
	t.Setenv("NOTICES_PLUGIN_ICAL_CACHE_MAX_AGE", "60")
	t.Setenv("NOTICES_EXEMPT_VIEW_PERMISSIONS", "notices.view_maintenance,notices.view_outage")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("expected env to override http_addr, got %q", cfg.HTTPAddr)
	}
	if cfg.LoginRequired {
		t.Fatalf("expected login_required false from yaml")
	}
	if cfg.Plugin.ICalPastDaysDefault != 14 || cfg.Plugin.ICalCacheMaxAge != 60 {
		t.Fatalf("unexpected plugin settings: %+v", cfg.Plugin)
	}
	if cfg.Plugin.ICalTokenPlaceholder != "changeme" {
		t.Fatalf("expected default placeholder to survive, got %q", cfg.Plugin.ICalTokenPlaceholder)
	}
	if len(cfg.ExemptViewPermissions) != 2 {
		t.Fatalf("expected two exempt permissions, got %v", cfg.ExemptViewPermissions)
	}
	if cfg.Location().String() != "Europe/Vilnius" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
	if !cfg.AllowList().Allows(domain.ContentType{AppLabel: "dcim", Model: "site"}) {
		t.Fatalf("expected dcim.site to be allowed")
	}
	if cfg.AllowList().Allows(domain.ContentType{AppLabel: "dcim", Model: "powerfeed"}) {
		t.Fatalf("expected dcim.powerfeed to be excluded by the yaml list")
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"timezone", func(c *Config) { c.SystemTimezone = "Mars/Olympus" }},
		{"allow list", func(c *Config) { c.Plugin.AllowedContentTypes = []string{"circuit"} }},
		{"past days", func(c *Config) { c.Plugin.ICalPastDaysDefault = 400 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
