// Package config provides configuration loading and validation for gridfetch.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (GRIDFETCH_ prefix)
//  4. CLI flags
//
// # Routes
//
// Each route serves one object store root under a URL prefix. Routes nest;
// a nested route inherits every value it leaves unset:
//
//	routes:
//	  - prefix: /media/
//	    database: media
//	    backend: mongodb://db1:27017
//	    locations:
//	      - prefix: /media/thumbs/
//	        root_collection: thumbs
//	        field: filename
//	        type: string
//
// Routes are merged when the configuration is loaded. A route that looks up
// by filename must use the string type; Load rejects anything else before
// the server starts.
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// Scalar config keys map to environment variables with GRIDFETCH_ prefix:
//
//	GRIDFETCH_SERVER_PORT=9090
//	GRIDFETCH_DATABASE_DSN=mongodb://localhost:27017
//	GRIDFETCH_LOG_LEVEL=debug
package config
