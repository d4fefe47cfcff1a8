// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nasa-ads/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Config prints the configuration after merging flags, environment, config
file, and defaults. The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		data, err := yaml.Marshal(config.Masked(appConfig))
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		source := appConfig.ConfigFile
		if source == "" {
			source = "(none)"
		}
		fmt.Fprintf(out, "# config file: %s\n", source)
		fmt.Fprint(out, string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
