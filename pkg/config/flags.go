package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --model
// on "watsonx generate", "watsonx chat" and "watsonx batch").
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "watsonx.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagModel         = "model"
	FlagMaxTokens     = "max-tokens"
	FlagProjectID     = "project-id"
	FlagAPIURL        = "api-url"
	FlagTimeout       = "timeout"
	FlagInstanceID    = "instance-id"
	FlagRegion        = "region"
	FlagListen        = "listen"
	FlagHistoryDriver = "history-driver"
	FlagHistoryDSN    = "history-dsn"
	FlagKafkaBrokers  = "kafka-brokers"
	FlagKafkaTopic    = "kafka-topic"
	FlagConcurrency   = "concurrency"
)

// Flags is the registry shared by every watsonx command.
var Flags = FlagSet{
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "watsonx.model",
		Description: "Foundation model id",
	},
	FlagMaxTokens: {
		Name:        "max-tokens",
		ViperKey:    "watsonx.max_tokens",
		Description: "Maximum number of tokens to generate",
	},
	FlagProjectID: {
		Name:        "project-id",
		ViperKey:    "watsonx.project_id",
		Description: "watsonx.ai project id",
	},
	FlagAPIURL: {
		Name:        "api-url",
		ViperKey:    "watsonx.api_url",
		Description: "Regional watsonx.ai base URL",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "watsonx.timeout_secs",
		Description: "Request timeout in seconds",
	},
	FlagInstanceID: {
		Name:        "instance-id",
		ViperKey:    "orchestrate.instance_id",
		Description: "Watson Orchestrate instance id",
	},
	FlagRegion: {
		Name:        "region",
		ViperKey:    "orchestrate.region",
		Description: "Watson Orchestrate region",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "gateway.listen",
		Description: "Address for the gateway to listen on",
	},
	FlagHistoryDriver: {
		Name:        "history-driver",
		ViperKey:    "history.driver",
		Description: "History store: memory, sqlite or postgres",
	},
	FlagHistoryDSN: {
		Name:        "history-dsn",
		ViperKey:    "history.dsn",
		Description: "SQLite path or PostgreSQL connection string for history",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "events.kafka_brokers",
		Description: "Comma separated Kafka brokers for generation events (disabled when empty)",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "events.kafka_topic",
		Description: "Kafka topic for generation events",
	},
	FlagConcurrency: {
		Name:        "concurrency",
		Shorthand:   "c",
		ViperKey:    "batch.concurrency",
		Description: "Maximum concurrent batch requests (0 for unbounded)",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
