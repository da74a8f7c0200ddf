// Command octoroute runs the OpenAI-compatible dispatch gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "octoroute",
		Short: "OpenAI-compatible gateway that dispatches chat completions across Fast/Balanced/Deep tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "config.toml", "path to the TOML configuration file")
	root.AddCommand(newConfigCmd())
	return root
}
