package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/draftday/mockdraft/internal/feed"
	"github.com/draftday/mockdraft/internal/trade"
)

// Config is the file-based service configuration. Environment variables cover
// secrets and connection details; the yaml file covers tuning.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Trade struct {
		Values        trade.ValueConfig `yaml:"values"`
		ExpirySeconds int               `yaml:"expiry_seconds"`
	} `yaml:"trade"`

	RateLimit struct {
		DraftCreateSeconds  int `yaml:"draft_create_seconds"`
		TradeProposeSeconds int `yaml:"trade_propose_seconds"`
	} `yaml:"rate_limit"`

	NATS struct {
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Relay feed.RelayConfig `yaml:"relay"`
}

// defaultConfig returns the tuning used when no config file is present.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Trade.Values = trade.DefaultValueConfig()
	cfg.Trade.ExpirySeconds = int(trade.DefaultExpiry / time.Second)
	cfg.RateLimit.DraftCreateSeconds = 10
	cfg.RateLimit.TradeProposeSeconds = 5
	cfg.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	cfg.NATS.Stream = "MOCKDRAFT_EVENTS"
	cfg.NATS.SubjectPrefix = "mockdraft.events"
	cfg.Relay = feed.DefaultRelayConfig()
	return cfg
}

// loadConfig reads the yaml file at path over the defaults. A missing file is
// not an error; the defaults stand.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = getEnv("PORT", "8080")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
