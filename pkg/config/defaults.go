package config

import (
	"github.com/papercomputeco/watsonx/pkg/eventstream/kafka"
	"github.com/papercomputeco/watsonx/pkg/gateway"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/models"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Watsonx: WatsonxConfig{
			APIURL:      models.DefaultAPIURL,
			IAMURL:      models.DefaultIAMURL,
			APIVersion:  models.DefaultAPIVersion,
			TimeoutSecs: uint(models.DefaultTimeout.Seconds()),
			Model:       models.DefaultModel,
			MaxTokens:   uint(models.DefaultMaxTokens),
		},
		Orchestrate: OrchestrateConfig{
			Region:      orchestrate.DefaultRegion,
			TimeoutSecs: uint(orchestrate.DefaultTimeout.Seconds()),
		},
		Gateway: GatewayConfig{
			Listen: gateway.DefaultListenAddr,
		},
		History: HistoryConfig{
			Driver: history.DriverMemory,
		},
		Events: EventsConfig{
			KafkaTopic: kafka.DefaultTopic,
		},
	}
}
