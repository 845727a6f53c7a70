package config

import (
	"fmt"
	"strconv"

	"github.com/papercomputeco/watsonx/pkg/history"
)

// Config represents the persistent watsonx configuration stored as
// config.toml in the .watsonx/ directory. Secrets are never stored here:
// API keys live in credentials.toml or the environment.
type Config struct {
	Version     int               `toml:"version"`
	Watsonx     WatsonxConfig     `toml:"watsonx"`
	Orchestrate OrchestrateConfig `toml:"orchestrate"`
	Gateway     GatewayConfig     `toml:"gateway"`
	History     HistoryConfig     `toml:"history"`
	Events      EventsConfig      `toml:"events"`
	Batch       BatchConfig       `toml:"batch"`
}

// WatsonxConfig holds the watsonx.ai project and generation defaults.
type WatsonxConfig struct {
	ProjectID   string `toml:"project_id,omitempty"`
	APIURL      string `toml:"api_url,omitempty"`
	IAMURL      string `toml:"iam_url,omitempty"`
	APIVersion  string `toml:"api_version,omitempty"`
	TimeoutSecs uint   `toml:"timeout_secs,omitempty"`
	Model       string `toml:"model,omitempty"`
	MaxTokens   uint   `toml:"max_tokens,omitempty"`
}

// OrchestrateConfig identifies the Watson Orchestrate instance. An empty
// URL is derived from the region.
type OrchestrateConfig struct {
	InstanceID  string `toml:"instance_id,omitempty"`
	Region      string `toml:"region,omitempty"`
	URL         string `toml:"url,omitempty"`
	TimeoutSecs uint   `toml:"timeout_secs,omitempty"`
}

// GatewayConfig holds local gateway settings.
type GatewayConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// HistoryConfig selects the history store.
type HistoryConfig struct {
	Driver string `toml:"driver,omitempty"`
	DSN    string `toml:"dsn,omitempty"`
}

// EventsConfig enables Kafka publishing when KafkaBrokers is set.
type EventsConfig struct {
	// KafkaBrokers is a comma separated host:port list.
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// BatchConfig holds batch dispatch settings. Zero concurrency is unbounded.
type BatchConfig struct {
	Concurrency uint `toml:"concurrency"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"watsonx.project_id":   stringKey(func(c *Config) *string { return &c.Watsonx.ProjectID }),
	"watsonx.api_url":      stringKey(func(c *Config) *string { return &c.Watsonx.APIURL }),
	"watsonx.iam_url":      stringKey(func(c *Config) *string { return &c.Watsonx.IAMURL }),
	"watsonx.api_version":  stringKey(func(c *Config) *string { return &c.Watsonx.APIVersion }),
	"watsonx.timeout_secs": uintKey("watsonx.timeout_secs", func(c *Config) *uint { return &c.Watsonx.TimeoutSecs }),
	"watsonx.model":        stringKey(func(c *Config) *string { return &c.Watsonx.Model }),
	"watsonx.max_tokens":   uintKey("watsonx.max_tokens", func(c *Config) *uint { return &c.Watsonx.MaxTokens }),

	"orchestrate.instance_id":  stringKey(func(c *Config) *string { return &c.Orchestrate.InstanceID }),
	"orchestrate.region":       stringKey(func(c *Config) *string { return &c.Orchestrate.Region }),
	"orchestrate.url":          stringKey(func(c *Config) *string { return &c.Orchestrate.URL }),
	"orchestrate.timeout_secs": uintKey("orchestrate.timeout_secs", func(c *Config) *uint { return &c.Orchestrate.TimeoutSecs }),

	"gateway.listen": stringKey(func(c *Config) *string { return &c.Gateway.Listen }),

	"history.driver": {
		get: func(c *Config) string { return c.History.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case history.DriverMemory, history.DriverSQLite, history.DriverPostgres:
				c.History.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for history.driver: %q (available: memory, sqlite, postgres)", v)
			}
		},
	},
	"history.dsn": stringKey(func(c *Config) *string { return &c.History.DSN }),

	"events.kafka_brokers": stringKey(func(c *Config) *string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":   stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),

	"batch.concurrency": uintKey("batch.concurrency", func(c *Config) *uint { return &c.Batch.Concurrency }),
}

// orderedKeys is the order ValidConfigKeys reports, matching the TOML
// section layout.
var orderedKeys = []string{
	"watsonx.project_id",
	"watsonx.api_url",
	"watsonx.iam_url",
	"watsonx.api_version",
	"watsonx.timeout_secs",
	"watsonx.model",
	"watsonx.max_tokens",
	"orchestrate.instance_id",
	"orchestrate.region",
	"orchestrate.url",
	"orchestrate.timeout_secs",
	"gateway.listen",
	"history.driver",
	"history.dsn",
	"events.kafka_brokers",
	"events.kafka_topic",
	"batch.concurrency",
}
