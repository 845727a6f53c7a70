package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/papercomputeco/watsonx/pkg/dotdir"
)

// envPrefix namespaces automatic environment bindings, e.g.
// WATSONX_GATEWAY_LISTEN for gateway.listen.
const envPrefix = "WATSONX"

// legacyEnv lists the well-known variable names honoured in addition to
// the prefixed form. The first match wins.
var legacyEnv = map[string][]string{
	"watsonx.api_key":          {"WATSONX_API_KEY", "API_KEY"},
	"watsonx.project_id":       {"WATSONX_PROJECT_ID", "PROJECT_ID"},
	"watsonx.iam_url":          {"IAM_IBM_CLOUD_URL"},
	"watsonx.api_url":          {"WATSONX_API_URL"},
	"watsonx.api_version":      {"WATSONX_API_VERSION"},
	"watsonx.timeout_secs":     {"WATSONX_TIMEOUT_SECS"},
	"orchestrate.instance_id":  {"WXO_INSTANCE_ID"},
	"orchestrate.region":       {"WXO_REGION"},
	"orchestrate.url":          {"WXO_URL"},
	"orchestrate.timeout_secs": {"WXO_TIMEOUT_SECS"},
	"orchestrate.api_key":      {"WXO_API_KEY"},
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (WATSONX_WATSONX_MODEL, WATSONX_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	return v, nil
}

// WatchConfig calls onChange whenever the config file v was read from is
// written. It does nothing when no file was found.
func WatchConfig(v *viper.Viper, onChange func(fsnotify.Event)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
			onChange(e)
		}
	})
	v.WatchConfig()
	return true
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// watsonx
	v.SetDefault("watsonx.project_id", d.Watsonx.ProjectID)
	v.SetDefault("watsonx.api_url", d.Watsonx.APIURL)
	v.SetDefault("watsonx.iam_url", d.Watsonx.IAMURL)
	v.SetDefault("watsonx.api_version", d.Watsonx.APIVersion)
	v.SetDefault("watsonx.timeout_secs", d.Watsonx.TimeoutSecs)
	v.SetDefault("watsonx.model", d.Watsonx.Model)
	v.SetDefault("watsonx.max_tokens", d.Watsonx.MaxTokens)

	// orchestrate
	v.SetDefault("orchestrate.instance_id", d.Orchestrate.InstanceID)
	v.SetDefault("orchestrate.region", d.Orchestrate.Region)
	v.SetDefault("orchestrate.url", d.Orchestrate.URL)
	v.SetDefault("orchestrate.timeout_secs", d.Orchestrate.TimeoutSecs)

	// gateway
	v.SetDefault("gateway.listen", d.Gateway.Listen)

	// history
	v.SetDefault("history.driver", d.History.Driver)
	v.SetDefault("history.dsn", d.History.DSN)

	// events
	v.SetDefault("events.kafka_brokers", d.Events.KafkaBrokers)
	v.SetDefault("events.kafka_topic", d.Events.KafkaTopic)

	// batch
	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
}
