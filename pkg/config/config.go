package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/watsonx/pkg/dotdir"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// SaveConfig creates the file when it does not exist yet.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in a
// stable order matching the TOML section layout.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	var missed []string
	for k := range configKeys {
		if !slices.Contains(result, k) {
			missed = append(missed, k)
		}
	}
	slices.Sort(missed)

	return append(result, missed...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target .watsonx/ directory. A
// missing file yields NewDefaultConfig; fields set in the file override the
// defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fillString := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fillUint := func(dst *uint, def uint) {
		if *dst == 0 {
			*dst = def
		}
	}

	fillString(&cfg.Watsonx.APIURL, d.Watsonx.APIURL)
	fillString(&cfg.Watsonx.IAMURL, d.Watsonx.IAMURL)
	fillString(&cfg.Watsonx.APIVersion, d.Watsonx.APIVersion)
	fillUint(&cfg.Watsonx.TimeoutSecs, d.Watsonx.TimeoutSecs)
	fillString(&cfg.Watsonx.Model, d.Watsonx.Model)
	fillUint(&cfg.Watsonx.MaxTokens, d.Watsonx.MaxTokens)

	fillString(&cfg.Orchestrate.Region, d.Orchestrate.Region)

	fillString(&cfg.Gateway.Listen, d.Gateway.Listen)

	fillString(&cfg.History.Driver, d.History.Driver)

	fillString(&cfg.Events.KafkaTopic, d.Events.KafkaTopic)
}

// SaveConfig persists the configuration to config.toml in the target .watsonx/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// regions lists the IBM Cloud regions watsonx.ai and Orchestrate are
// offered in.
var regions = []string{"us-south", "eu-de", "eu-gb", "jp-tok", "au-syd", "ca-tor"}

// PresetConfig returns a default Config pointed at the named region.
// Returns an error if the region is not recognized.
func PresetConfig(name string) (*Config, error) {
	region := strings.ToLower(name)
	if !slices.Contains(regions, region) {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(regions, ", "))
	}

	cfg := NewDefaultConfig()
	cfg.Watsonx.APIURL = "https://" + region + ".ml.cloud.ibm.com"
	cfg.Orchestrate.Region = region
	cfg.Orchestrate.URL = orchestrate.DefaultURL(region)
	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return slices.Clone(regions)
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
