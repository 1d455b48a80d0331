// Package initcmder provides the init command for initializing a local
// .answerdesk directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/answerdesk/pkg/cliui"
	"github.com/papercomputeco/answerdesk/pkg/config"
	"github.com/papercomputeco/answerdesk/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .answerdesk/ directory in the current working directory.

Creates a local .answerdesk/ directory that takes precedence over the default
~/.answerdesk/ directory for configuration, the chat session and the default
SQLite database.

A config.toml with default values is written unless one already exists.
--preset replaces it with a provider preset (gemini, mistral, ollama) or with
a config.toml fetched from an http(s) URL.

Examples:
  answerdesk init
  answerdesk init --preset ollama
  answerdesk init --preset https://example.com/answerdesk/config.toml`

const initShortDesc string = "Initialize a local .answerdesk/ directory"

const fetchTimeout = 30 * time.Second

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dir, err := dotdir.NewManager().Init("")
	if err != nil {
		return err
	}

	configPath := filepath.Join(dir, "config.toml")
	_, statErr := os.Stat(configPath)
	exists := statErr == nil

	var cfg *config.Config
	switch {
	case c.preset == "" && exists:
		fmt.Printf("\n  %s Already initialized: %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
		return nil
	case c.preset == "":
		cfg = config.NewDefaultConfig()
	case isURL(c.preset):
		cfg, err = fetchConfig(ctx, c.preset)
	default:
		cfg, err = config.PresetConfig(c.preset)
	}
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("\n  %s Initialized %s\n", cliui.SuccessMark, cliui.NameStyle.Render(dir))
	fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(configPath))
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// fetchConfig downloads and parses a remote config.toml. Defaults are not
// applied: the file is written back exactly as the remote describes it.
func fetchConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing remote config: %w", err)
	}
	return cfg, nil
}
