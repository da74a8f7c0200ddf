package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/octoroute/octoroute/internal/config"
)

// newConfigCmd implements the `octoroute config` subcommand: emit a
// complete, valid TOML template to stdout or to -o <path>.
func newConfigCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Emit a template configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), config.Template)
				return err
			}
			return os.WriteFile(outPath, []byte(config.Template), 0o644)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the template to this path instead of stdout")
	return cmd
}
