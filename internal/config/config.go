// Package config loads scraper settings from the environment and an
// optional YAML file with extra channel IDs.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	yaml "github.com/goccy/go-yaml"
)

// Config is everything the crawl needs. Flags may override individual
// fields after parsing; see cmd/discord-scraper.
type Config struct {
	AuthToken string     `env:"DISCORD_AUTH_TOKEN"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	DBPath    string     `env:"DB_PATH" envDefault:"./data/messages.db"`
	BaseURL   string     `env:"DISCORD_API_BASE_URL"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	RetryPad    time.Duration `env:"RETRY_PAD" envDefault:"100ms"`
	// MaxThrottleWait caps the total time spent sleeping on 429 responses
	// for a single request. Zero keeps the original unbounded behavior.
	MaxThrottleWait time.Duration `env:"MAX_THROTTLE_WAIT" envDefault:"0"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ChannelsFromYAML loads channel IDs from config.yaml/config.yml when
// present. Missing files are fine; the positional arguments are the
// primary source.
func ChannelsFromYAML() []string {
	candidates := []string{"config.yaml", "config.yml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			slog.Error("read config failed", "path", p, "err", err)
			continue
		}
		var fc struct {
			Channels []string `yaml:"channels"`
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			slog.Error("yaml unmarshal failed", "path", p, "err", err)
			continue
		}
		if len(fc.Channels) > 0 {
			slog.Info("loaded channels from yaml", "path", p, "count", len(fc.Channels))
		}
		return fc.Channels
	}
	return nil
}
