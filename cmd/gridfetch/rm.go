package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/config"
)

var rmCmd = &cobra.Command{
	Use:   "rm [flags] <key1> [key2] ...",
	Short: "Delete objects from an object store",
	Long: `Delete objects and their chunks. Keys are matched the way the route
matches request keys: by _id or filename, coerced to the route's key type.
Keys are given decoded, not percent-encoded.

Examples:
  # Remove by id from the first route
  gridfetch rm 5f1d7c2e9b1e8a3d4c6b2a10

  # Remove by filename from a filename route
  gridfetch rm --route /media/thumbs/ cat.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var (
	rmRoute string
	rmQuiet bool
)

func init() {
	rmCmd.Flags().StringVar(&rmRoute, "route", "", "route prefix to delete from (default: first route)")
	rmCmd.Flags().BoolVarP(&rmQuiet, "quiet", "q", false, "suppress per-key output")
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	loc, err := findRoute(cfg, rmRoute)
	if err != nil {
		return err
	}

	db, err := connectRoute(ctx, cfg, loc)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(ctx) }()

	removed := 0
	notFound := 0

	for _, arg := range args {
		key := gridfetch.BuildLookupKey(loc.Field, loc.Type, arg)

		err := db.Delete(ctx, loc.Namespace(), key)
		if errors.Is(err, gridfetch.ErrNotFound) {
			notFound++
			if !rmQuiet {
				slog.Warn("not found", "key", arg)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("remove %s: %w", arg, err)
		}

		removed++
		if !rmQuiet {
			slog.Info("removed", "key", key.String())
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}
