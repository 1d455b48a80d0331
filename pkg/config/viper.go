package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/answerdesk/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. ANSWERDESK_SERVER_LISTEN.
const EnvPrefix = "ANSWERDESK"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ANSWERDESK_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ANSWERDESK_SERVER_LISTEN, ANSWERDESK_LLM_PRIMARY, etc.)
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

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper resolves every config key through v and returns the result as a
// Config, so flags and environment overrides reach typed fields.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	for _, key := range ValidConfigKeys() {
		raw := v.GetString(key)
		if raw == "" {
			continue
		}
		if err := configKeys[key].set(cfg, raw); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, key := range ValidConfigKeys() {
		v.SetDefault(key, configKeys[key].get(d))
	}
}
