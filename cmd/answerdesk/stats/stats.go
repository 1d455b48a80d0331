// Package statscmder provides the stats command, which prints the resolution
// statistics of a running server.
package statscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/answerdesk/api"
	"github.com/papercomputeco/answerdesk/pkg/cliui"
	"github.com/papercomputeco/answerdesk/pkg/config"
)

const statsLongDesc string = `Show resolution statistics from a running answerdesk server.

Prints the number of live conversations, the chat log count, how requests
were resolved (cache, grounded, ungrounded, error), which providers answered
and the average latency.

Examples:
  answerdesk stats
  answerdesk stats --api-target http://support.internal:3000`

const statsShortDesc string = "Show resolution statistics"

type statsCommander struct {
	apiTarget string
	out       io.Writer
	client    *http.Client
}

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{
		out:    os.Stdout,
		client: &http.Client{Timeout: 30 * time.Second},
	}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !cmd.Flags().Changed(config.FlagAPITarget) {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *statsCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiTarget+"/api/stats", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", c.apiTarget, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var stats api.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	c.print(stats)
	return nil
}

func (c *statsCommander) print(s api.StatsResponse) {
	row := func(key, value string) {
		fmt.Fprintf(c.out, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-22s", key)), value)
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("answerdesk "+c.apiTarget))
	row("active conversations", cliui.ValueStyle.Render(strconv.Itoa(s.ActiveConversations)))
	row("chat logs", cliui.ValueStyle.Render(strconv.FormatInt(s.ChatLogs, 10)))
	row("average latency", cliui.ValueStyle.Render(cliui.FormatDuration(time.Duration(s.AverageLatencyMs*float64(time.Millisecond)))))

	fmt.Fprintf(c.out, "\n  %s\n", cliui.KeyStyle.Render("by layer"))
	for layer := 0; layer <= 3; layer++ {
		count := s.Layers[strconv.Itoa(layer)]
		fmt.Fprintf(c.out, "    %-24s %d\n", cliui.LayerLabel(layer), count)
	}

	if len(s.Providers) > 0 {
		names := make([]string, 0, len(s.Providers))
		for name := range s.Providers {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(c.out, "\n  %s\n", cliui.KeyStyle.Render("by provider"))
		for _, name := range names {
			fmt.Fprintf(c.out, "    %-12s %d\n", cliui.NameStyle.Render(name), s.Providers[name])
		}
	}
	fmt.Fprintln(c.out)
}
