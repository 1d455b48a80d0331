// Package cmdutil holds the configuration loading shared by the commands
// that build the service locally.
package cmdutil

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/answerdesk/cmd/answerdesk/sqlitepath"
	"github.com/papercomputeco/answerdesk/pkg/config"
)

// AddServiceFlags registers the provider, backend and retrieval flags.
func AddServiceFlags(cmd *cobra.Command) {
	config.AddStringFlags(cmd, config.Flags, config.ServiceFlagKeys)
}

// LoadServiceConfig resolves the configuration for cmd, binding extraKeys on
// top of the service flags, and places a relative SQLite database in the
// .answerdesk/ directory.
func LoadServiceConfig(cmd *cobra.Command, extraKeys ...string) (*config.Config, error) {
	keys := append(append([]string{}, config.ServiceFlagKeys...), extraKeys...)

	cfg, err := config.LoadForCommand(cmd, config.Flags, keys)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.Storage.Provider == "sqlite" {
		configDir, _ := cmd.Flags().GetString("config-dir")
		cfg.Storage.SQLitePath, err = sqlitepath.Resolve(cfg.Storage.SQLitePath, configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving sqlite path: %w", err)
		}
	}

	return cfg, nil
}
