package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/gridfetch/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "gridfetch",
	Short:   "Serve chunked objects from GridFS-style stores over HTTP",
	Long: `gridfetch serves objects stored in a GridFS layout (a files collection
plus a chunks collection) directly over HTTP, streaming them chunk by chunk.

Objects can live in MongoDB GridFS, or in PostgreSQL or SQLite tables that
follow the same layout.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "backend type when the DSN does not name it: mongodb, postgres, sqlite (env: GRIDFETCH_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "default backend connection string (default: mongodb://localhost:27017, env: GRIDFETCH_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: GRIDFETCH_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json (env: GRIDFETCH_LOG_FORMAT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
