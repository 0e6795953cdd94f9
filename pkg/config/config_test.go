package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.Feed.Source != "simulator" {
		t.Errorf("default feed source: got %s", cfg.Feed.Source)
	}
	if cfg.Trading.MinEdge != 0.015 {
		t.Errorf("default min edge: got %f", cfg.Trading.MinEdge)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
feed:
  source: pandascore
  panda_token: tok123
  poll_every: 5s
trading:
  min_edge: 0.02
  max_stake_usd: 50
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Source != "pandascore" || cfg.Feed.PandaToken != "tok123" {
		t.Errorf("feed: %+v", cfg.Feed)
	}
	if cfg.Trading.MinEdge != 0.02 {
		t.Errorf("min edge: got %f", cfg.Trading.MinEdge)
	}
	// Unset keys keep their defaults.
	if cfg.Trading.KellyFraction != 0.25 {
		t.Errorf("kelly fraction default: got %f", cfg.Trading.KellyFraction)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown feed source", func(c *Config) { c.Feed.Source = "espn" }},
		{"pandascore without token", func(c *Config) { c.Feed.Source = "pandascore" }},
		{"zero kelly", func(c *Config) { c.Trading.KellyFraction = 0 }},
		{"min stake above max", func(c *Config) { c.Trading.MinStakeUSD = 200 }},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true }},
		{"empty db path", func(c *Config) { c.Storage.DBPath = "" }},
		{"negative momentum decay", func(c *Config) { c.Model.MomentumDecayMinutes = -1 }},
	}
	for _, tc := range cases {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("%s: load: %v", tc.name, err)
		}
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
