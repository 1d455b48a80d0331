// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/answerdesk/pkg/cliui"
	"github.com/papercomputeco/answerdesk/pkg/utils"
)

type versionCommander struct {
	short bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the answerdesk version",
		Long:  "Display the version, commit and build time of this answerdesk binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.short, "short", false, "Print only the version")

	return cmd
}

func (c *versionCommander) run(w io.Writer) error {
	if c.short {
		_, err := fmt.Fprintln(w, utils.Version)
		return err
	}

	rows := [][2]string{
		{"Version", utils.Version},
		{"Sha", utils.Sha},
		{"Built at", utils.Buildtime},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render(row[0]+":"), cliui.ValueStyle.Render(row[1])); err != nil {
			return err
		}
	}
	return nil
}
