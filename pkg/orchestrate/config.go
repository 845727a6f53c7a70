package orchestrate

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const (
	// DefaultRegion is used when no region is configured.
	DefaultRegion = "us-south"

	// urlPlaceholder in a base URL is replaced with the instance id.
	urlPlaceholder = "{}"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldNames are the Config fields as users know them.
var fieldNames = map[string]string{
	"InstanceID": "instance id",
	"URL":        "url",
	"Timeout":    "timeout",
}

// Config identifies a Watson Orchestrate instance.
type Config struct {
	InstanceID string `validate:"required"`
	Region     string

	// URL is the API base. It may contain "{}", which is replaced with the
	// instance id.
	URL string `validate:"required"`

	// Timeout bounds each call, including a whole streamed run. Zero
	// leaves calls bounded only by the caller's context.
	Timeout time.Duration `validate:"gte=0"`
}

// NewConfig returns a Config for instanceID in the default region.
func NewConfig(instanceID string) Config {
	return Config{
		InstanceID: instanceID,
		Region:     DefaultRegion,
		URL:        DefaultURL(DefaultRegion),
		Timeout:    DefaultTimeout,
	}
}

// DefaultURL is the public API base for region.
func DefaultURL(region string) string {
	return "https://" + region + ".watson-orchestrate.cloud.ibm.com/api/v1/"
}

// ConfigFromViper reads the "orchestrate" section of v.
func ConfigFromViper(v *viper.Viper) Config {
	cfg := NewConfig(v.GetString("orchestrate.instance_id"))
	if r := v.GetString("orchestrate.region"); r != "" {
		cfg.Region = r
		cfg.URL = DefaultURL(r)
	}
	if u := v.GetString("orchestrate.url"); u != "" {
		cfg.URL = u
	}
	if secs := v.GetUint("orchestrate.timeout_secs"); secs > 0 {
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	return cfg
}

// BaseURL returns URL with the instance id substituted and no trailing
// slash.
func (c Config) BaseURL() string {
	return strings.TrimRight(strings.ReplaceAll(c.URL, urlPlaceholder, c.InstanceID), "/")
}

// Validate reports missing or malformed fields as a Configuration error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return wxerrors.Wrap(wxerrors.KindConfiguration, "validate_config", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldNames[fe.Field()]
		if fe.Tag() == "required" {
			msgs = append(msgs, "orchestrate "+name+" is required")
		} else {
			msgs = append(msgs, "orchestrate "+name+" must not be negative")
		}
	}
	return wxerrors.Configuration("validate_config", strings.Join(msgs, "; "))
}
