package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/gridfetch/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, config files, environment
variables and flags are applied. Passwords in connection strings are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		return cfg.Dump(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
