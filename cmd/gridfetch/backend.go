package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/config"
	"github.com/sagarc03/gridfetch/database"
)

// findRoute returns the merged route registered under prefix. An empty
// prefix selects the first configured route.
func findRoute(cfg *config.Config, prefix string) (gridfetch.Location, error) {
	locs := cfg.Locations()
	if len(locs) == 0 {
		return gridfetch.Location{}, fmt.Errorf("find route: %w: no routes configured", gridfetch.ErrInvalidInput)
	}
	if prefix == "" {
		return locs[0], nil
	}

	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	for _, root := range locs {
		for _, loc := range root.Flatten() {
			if loc.Prefix == prefix {
				return loc, nil
			}
		}
	}
	return gridfetch.Location{}, fmt.Errorf("find route %s: %w: no such route", prefix, gridfetch.ErrInvalidInput)
}

// connectRoute connects to the backend a route reads from and checks that
// its tables or collections are in place.
func connectRoute(ctx context.Context, cfg *config.Config, loc gridfetch.Location) (database.Database, error) {
	dbCfg := cfg.Database
	if loc.Backend != "" {
		dbCfg.DSN = loc.Backend
	}

	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err = db.Ping(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err = db.Validate(ctx, loc.Namespace()); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("validate schema for %s (run 'gridfetch migrate'): %w", loc.Namespace(), err)
	}

	return db, nil
}
