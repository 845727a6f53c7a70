package watsonx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/papercomputeco/watsonx/pkg/models"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the connection settings for a watsonx.ai project.
type Config struct {
	// APIKey is the IBM Cloud API key exchanged for IAM tokens.
	APIKey string `validate:"required"`

	// ProjectID is the watsonx.ai project every generation is billed to.
	ProjectID string `validate:"required"`

	// IAMURL is the IAM host, e.g. "iam.cloud.ibm.com".
	IAMURL string `validate:"required"`

	// APIURL is the regional watsonx.ai base URL.
	APIURL string `validate:"required,url"`

	// APIVersion is sent as the version query parameter.
	APIVersion string `validate:"required"`

	// Timeout bounds each call that does not carry its own timeout.
	Timeout time.Duration `validate:"gte=0"`
}

// NewConfig returns a Config for the given credentials with the default
// endpoints.
func NewConfig(apiKey, projectID string) Config {
	return Config{
		APIKey:     apiKey,
		ProjectID:  projectID,
		IAMURL:     models.DefaultIAMURL,
		APIURL:     models.DefaultAPIURL,
		APIVersion: models.DefaultAPIVersion,
		Timeout:    models.DefaultTimeout,
	}
}

// ConfigFromViper reads the "watsonx" section of v. Unset keys keep their
// defaults.
func ConfigFromViper(v *viper.Viper) Config {
	cfg := NewConfig(v.GetString("watsonx.api_key"), v.GetString("watsonx.project_id"))

	if s := v.GetString("watsonx.iam_url"); s != "" {
		cfg.IAMURL = s
	}
	if s := v.GetString("watsonx.api_url"); s != "" {
		cfg.APIURL = s
	}
	if s := v.GetString("watsonx.api_version"); s != "" {
		cfg.APIVersion = s
	}
	if n := v.GetInt("watsonx.timeout_secs"); n > 0 {
		cfg.Timeout = time.Duration(n) * time.Second
	}

	return cfg
}

// GenerationConfigFromViper returns DefaultGenerationConfig with the model,
// token budget and timeout taken from v when set.
func GenerationConfigFromViper(v *viper.Viper) GenerationConfig {
	cfg := DefaultGenerationConfig()
	if s := v.GetString("watsonx.model"); s != "" {
		cfg = cfg.WithModel(s)
	}
	if n := v.GetUint32("watsonx.max_tokens"); n > 0 {
		cfg = cfg.WithMaxTokens(n)
	}
	if n := v.GetInt("watsonx.timeout_secs"); n > 0 {
		cfg = cfg.WithTimeout(time.Duration(n) * time.Second)
	}
	return cfg
}

// Validate reports the first set of missing or malformed fields as a
// Configuration error.
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
		msgs = append(msgs, describeFieldError(fe))
	}
	return wxerrors.Configuration("validate_config", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

func (c Config) endpoint(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path + "?version=" + c.APIVersion
}
