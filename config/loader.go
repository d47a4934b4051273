package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// optionsDocument is the on-disk shape of one entry. Pointer fields keep
// "absent" apart from "zero".
type optionsDocument struct {
	MaxConcurrentCalls        *int           `yaml:"maxConcurrentCalls" mapstructure:"maxConcurrentCalls"`
	MaxWaitDuration           *time.Duration `yaml:"maxWaitDuration" mapstructure:"maxWaitDuration"`
	WritableStackTraceEnabled *bool          `yaml:"writableStackTraceEnabled" mapstructure:"writableStackTraceEnabled"`
	EventConsumerBufferSize   *int           `yaml:"eventConsumerBufferSize" mapstructure:"eventConsumerBufferSize"`
	BaseConfig                string         `yaml:"baseConfig" mapstructure:"baseConfig"`
}

// treeDocument is the on-disk shape of a Tree. Backends is accepted as an
// older spelling of Instances.
type treeDocument struct {
	Configs   map[string]optionsDocument `yaml:"configs" mapstructure:"configs"`
	Instances map[string]optionsDocument `yaml:"instances" mapstructure:"instances"`
	Backends  map[string]optionsDocument `yaml:"backends" mapstructure:"backends"`
}

func (d optionsDocument) toOptions(normalize func(string) string) (*RawOptions, error) {
	o := &RawOptions{}
	if d.MaxConcurrentCalls != nil {
		if err := o.SetMaxConcurrentCalls(*d.MaxConcurrentCalls); err != nil {
			return nil, err
		}
	}
	if d.MaxWaitDuration != nil {
		if err := o.SetMaxWaitDuration(*d.MaxWaitDuration); err != nil {
			return nil, err
		}
	}
	if d.WritableStackTraceEnabled != nil {
		o.SetWritableStackTraceEnabled(*d.WritableStackTraceEnabled)
	}
	if d.EventConsumerBufferSize != nil {
		if err := o.SetEventConsumerBufferSize(*d.EventConsumerBufferSize); err != nil {
			return nil, err
		}
	}
	o.SetBaseConfig(normalize(d.BaseConfig))
	return o, nil
}

// toTree builds the Tree, passing entry names and base references through
// normalize so both sides of a reference are spelled alike
func (d treeDocument) toTree(normalize func(string) string) (*Tree, error) {
	tree := NewTree()

	for name, entry := range d.Configs {
		opts, err := entry.toOptions(normalize)
		if err != nil {
			return nil, fmt.Errorf("configs.%s: %w", name, err)
		}
		tree.AddConfig(normalize(name), opts)
	}

	for name, entry := range d.Backends {
		opts, err := entry.toOptions(normalize)
		if err != nil {
			return nil, fmt.Errorf("backends.%s: %w", name, err)
		}
		tree.AddInstance(normalize(name), opts)
	}

	// instances win over backends of the same name
	for name, entry := range d.Instances {
		opts, err := entry.toOptions(normalize)
		if err != nil {
			return nil, fmt.Errorf("instances.%s: %w", name, err)
		}
		tree.AddInstance(normalize(name), opts)
	}

	return tree, nil
}

// Parse decodes a YAML document into a Tree. Durations are written as
// strings such as "10ms". Out-of-range values fail with ErrInvalidArgument.
func Parse(data []byte) (*Tree, error) {
	var doc treeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config tree: %w", err)
	}
	return doc.toTree(keepName)
}

func keepName(name string) string {
	return name
}

// loadConfig holds Load settings
type loadConfig struct {
	key       string
	envPrefix string
}

// LoadOption configures Load
type LoadOption func(*loadConfig)

// WithKey selects the sub-tree of the file that holds configs and instances,
// e.g. "resilience.bulkhead". The whole file is used by default.
func WithKey(key string) LoadOption {
	return func(c *loadConfig) {
		c.key = key
	}
}

// WithEnvPrefix enables environment overrides such as
// PREFIX_INSTANCES_BACKENDA_MAXCONCURRENTCALLS for keys present in the file
func WithEnvPrefix(prefix string) LoadOption {
	return func(c *loadConfig) {
		c.envPrefix = prefix
	}
}

// Load reads a Tree from a config file in any format viper understands.
// Keys are case-insensitive, so entry names and baseConfig references are
// lowercased.
func Load(path string, options ...LoadOption) (*Tree, error) {
	cfg := &loadConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if cfg.envPrefix != "" {
		v.SetEnvPrefix(cfg.envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// AllSettings resolves every leaf through Get, so env overrides apply
	settings := v.AllSettings()
	var section interface{} = settings
	if cfg.key != "" {
		section = lookup(settings, strings.ToLower(cfg.key))
		if section == nil {
			return nil, fmt.Errorf("failed to decode config tree: key %q not found", cfg.key)
		}
	}

	var doc treeDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(section); err != nil {
		return nil, fmt.Errorf("failed to decode config tree: %w", err)
	}

	// viper folds map keys to lower case, so references must follow
	return doc.toTree(strings.ToLower)
}

// lookup walks a dotted key through nested settings maps
func lookup(settings map[string]interface{}, key string) interface{} {
	var current interface{} = settings
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}
