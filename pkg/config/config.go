package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/answerdesk/pkg/dotdir"
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

	// If no .answerdesk/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in the
// TOML section layout order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}
	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .answerdesk/ directory. If the file does not exist, returns
// NewDefaultConfig() so callers always receive a fully-populated Config.
// Keys present in the file override the defaults; absent keys keep them.
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

	cfg := NewDefaultConfig()
	if err := decodeInto(cfg, data); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig persists the configuration to config.toml in the target .answerdesk/ directory.
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

// PresetConfig returns a default Config whose router is set up for the named
// provider preset.
// Supported presets: "gemini", "mistral", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "gemini":
		cfg.LLM = LLMConfig{Primary: "gemini", Fallback: "mistral", Embedding: "gemini", Timeout: defaultTimeout}
		cfg.Retrieval.Dimensions = 768

	case "mistral":
		cfg.LLM = LLMConfig{Primary: "mistral", Fallback: "gemini", Embedding: "mistral", Timeout: defaultTimeout}
		cfg.Retrieval.Dimensions = 1024

	case "ollama":
		cfg.LLM = LLMConfig{Primary: "ollama", Fallback: "ollama", Embedding: "ollama", Timeout: defaultTimeout}
		cfg.Providers.Ollama = ProviderConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "llama3.2",
			EmbeddingModel: "nomic-embed-text",
		}
		cfg.Retrieval.Dimensions = 768

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"gemini", "mistral", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config without applying defaults.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decodeInto(cfg, data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(cfg *Config, data []byte) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return nil
}
