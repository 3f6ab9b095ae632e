package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/config"
)

var putCmd = &cobra.Command{
	Use:   "put [flags] <file1> [file2] ...",
	Short: "Import files into an object store",
	Long: `Split files into chunks and write them to the store behind a route.

Each file is stored under its base name. Without --id a new ObjectID is
generated; --id stores a single file under the given key, coerced to the
route's key type.

Examples:
  # Add a file to the first configured route
  gridfetch put photo.jpg

  # Add a file to a specific route under a fixed id
  gridfetch put --route /legacy/ --id 1001 scan.tiff

  # Use 1 MiB chunks
  gridfetch put --chunk-size 1048576 video.mp4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPut,
}

var (
	putRoute       string
	putID          string
	putName        string
	putContentType string
	putChunkSize   int64
	putQuiet       bool
)

func init() {
	putCmd.Flags().StringVar(&putRoute, "route", "", "route prefix to write to (default: first route)")
	putCmd.Flags().StringVar(&putID, "id", "", "object id (single file only)")
	putCmd.Flags().StringVar(&putName, "name", "", "stored filename (single file only, default: base name)")
	putCmd.Flags().StringVar(&putContentType, "content-type", "", "content type (default: inferred from the filename)")
	putCmd.Flags().Int64Var(&putChunkSize, "chunk-size", gridfetch.DefaultChunkSize, "chunk size in bytes")
	putCmd.Flags().BoolVarP(&putQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) > 1 && (putID != "" || putName != "") {
		return fmt.Errorf("put: %w: --id and --name take a single file", gridfetch.ErrInvalidInput)
	}

	ctx := cmd.Context()

	loc, err := findRoute(cfg, putRoute)
	if err != nil {
		return err
	}

	db, err := connectRoute(ctx, cfg, loc)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(ctx) }()

	added := 0
	for _, path := range args {
		obj := gridfetch.PutObject{
			Filename:    filepath.Base(path),
			ContentType: putContentType,
			ChunkSize:   putChunkSize,
		}
		if putName != "" {
			obj.Filename = putName
		}
		if putID != "" {
			obj.Key = gridfetch.BuildLookupKey(gridfetch.FieldID, loc.Type, putID)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}

		info, err := db.Put(ctx, loc.Namespace(), obj, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("put %s: %w", path, err)
		}

		added++
		if !putQuiet {
			slog.Info("added",
				"file", path,
				"id", info.ID,
				"filename", info.Filename,
				"length", info.Length,
				"chunks", info.NumChunks(),
				"content_type", info.ContentType,
			)
		}
	}

	slog.Info("put complete", "added", added, "namespace", loc.Namespace().String())
	return nil
}
