// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Model    ModelConfig    `mapstructure:"model"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Market   MarketConfig   `mapstructure:"market"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
}

// FeedConfig selects and tunes the live data source.
type FeedConfig struct {
	Source        string        `mapstructure:"source"` // "pandascore" or "simulator"
	PandaToken    string        `mapstructure:"panda_token"`
	Videogames    []string      `mapstructure:"videogames"`
	DiscoverEvery time.Duration `mapstructure:"discover_every"`
	PollEvery     time.Duration `mapstructure:"poll_every"`
	QueueDepth    int           `mapstructure:"queue_depth"`

	// Simulator settings, used when source is "simulator".
	SimSeed   int64         `mapstructure:"sim_seed"`
	SimBestOf int           `mapstructure:"sim_best_of"`
	SimTick   time.Duration `mapstructure:"sim_tick"`
}

// ModelConfig tunes the probability model.
type ModelConfig struct {
	MomentumDecayMinutes float64 `mapstructure:"momentum_decay_minutes"`
}

// TradingConfig tunes edge detection, sizing, and risk.
type TradingConfig struct {
	MinEdge          float64 `mapstructure:"min_edge"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
	StrongEdge       float64 `mapstructure:"strong_edge"`
	KellyFraction    float64 `mapstructure:"kelly_fraction"`
	MaxStakePct      float64 `mapstructure:"max_stake_pct"`
	MaxStakeUSD      float64 `mapstructure:"max_stake_usd"`
	MinStakeUSD      float64 `mapstructure:"min_stake_usd"`
	InitialBalance   float64 `mapstructure:"initial_balance"`
	SlippageBps      float64 `mapstructure:"slippage_bps"`
	MaxDailyLoss     float64 `mapstructure:"max_daily_loss"`
	MaxDailyOrders   int     `mapstructure:"max_daily_orders"`
	MaxTotalExposure float64 `mapstructure:"max_total_exposure"`
}

// MarketConfig tunes prediction market discovery and price streaming.
type MarketConfig struct {
	GammaAPIURL   string        `mapstructure:"gamma_api_url"`
	StreamURL     string        `mapstructure:"stream_url"`
	TagSlugs      []string      `mapstructure:"tag_slugs"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Enabled       bool          `mapstructure:"enabled"`
	StreamEnabled bool          `mapstructure:"stream_enabled"`
}

// TelegramConfig holds notification settings.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load reads configuration from a file and environment variables. An empty
// path loads defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ESPORTS_EDGE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Feed defaults
	v.SetDefault("feed.source", "simulator")
	v.SetDefault("feed.videogames", []string{"league-of-legends", "dota-2"})
	v.SetDefault("feed.discover_every", "60s")
	v.SetDefault("feed.poll_every", "10s")
	v.SetDefault("feed.queue_depth", 256)
	v.SetDefault("feed.sim_seed", 1)
	v.SetDefault("feed.sim_best_of", 3)
	v.SetDefault("feed.sim_tick", "50ms")

	// Model defaults
	v.SetDefault("model.momentum_decay_minutes", 3.0)

	// Trading defaults
	v.SetDefault("trading.min_edge", 0.015)
	v.SetDefault("trading.min_confidence", 0.6)
	v.SetDefault("trading.strong_edge", 0.05)
	v.SetDefault("trading.kelly_fraction", 0.25)
	v.SetDefault("trading.max_stake_pct", 0.05)
	v.SetDefault("trading.max_stake_usd", 100.0)
	v.SetDefault("trading.min_stake_usd", 5.0)
	v.SetDefault("trading.initial_balance", 10000.0)
	v.SetDefault("trading.slippage_bps", 20.0)
	v.SetDefault("trading.max_daily_loss", 300.0)
	v.SetDefault("trading.max_daily_orders", 50)
	v.SetDefault("trading.max_total_exposure", 1000.0)

	// Market defaults
	v.SetDefault("market.gamma_api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("market.tag_slugs", []string{"lol", "dota-2"})
	v.SetDefault("market.poll_interval", "30s")
	v.SetDefault("market.enabled", false)
	v.SetDefault("market.stream_enabled", true)
	v.SetDefault("market.stream_url", "")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/esports-edge.db")

	// Server defaults
	v.SetDefault("server.listen", ":8080")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	switch c.Feed.Source {
	case "pandascore":
		if c.Feed.PandaToken == "" {
			return fmt.Errorf("feed.panda_token is required when feed.source is pandascore")
		}
	case "simulator":
	default:
		return fmt.Errorf("feed.source must be pandascore or simulator")
	}
	if c.Feed.PollEvery < time.Second {
		return fmt.Errorf("feed.poll_every must be at least 1 second")
	}
	if c.Feed.QueueDepth < 1 {
		return fmt.Errorf("feed.queue_depth must be at least 1")
	}

	if c.Model.MomentumDecayMinutes <= 0 {
		return fmt.Errorf("model.momentum_decay_minutes must be positive")
	}

	if c.Trading.MinEdge < 0 || c.Trading.MinEdge > 0.5 {
		return fmt.Errorf("trading.min_edge must be between 0 and 0.5")
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		return fmt.Errorf("trading.min_confidence must be between 0 and 1")
	}
	if c.Trading.KellyFraction <= 0 || c.Trading.KellyFraction > 1 {
		return fmt.Errorf("trading.kelly_fraction must be in (0, 1]")
	}
	if c.Trading.MaxStakePct <= 0 || c.Trading.MaxStakePct > 1 {
		return fmt.Errorf("trading.max_stake_pct must be in (0, 1]")
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be positive")
	}
	if c.Trading.MinStakeUSD > c.Trading.MaxStakeUSD {
		return fmt.Errorf("trading.min_stake_usd must not exceed trading.max_stake_usd")
	}

	if c.Market.Enabled {
		if c.Market.GammaAPIURL == "" {
			return fmt.Errorf("market.gamma_api_url is required when market is enabled")
		}
		if len(c.Market.TagSlugs) == 0 {
			return fmt.Errorf("market.tag_slugs must contain at least one slug when market is enabled")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	return nil
}
