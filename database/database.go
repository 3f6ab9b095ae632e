package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/mongodb"
	"github.com/sagarc03/gridfetch/database/postgres"
	"github.com/sagarc03/gridfetch/database/sqlite"
)

// Backend types.
const (
	TypeMongoDB  = "mongodb"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// DefaultConnectTimeout bounds connection setup when Config leaves it unset.
const DefaultConnectTimeout = 10 * time.Second

// Config holds the configuration for connecting to an object store backend.
type Config struct {
	// Type is the backend type: "mongodb", "postgres" or "sqlite". It is
	// only consulted when the DSN scheme does not name the backend.
	Type string `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=mongodb postgres sqlite"`
	// DSN is the connection string of the default backend.
	DSN string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
	// ConnectTimeout bounds connection setup (default: 10s).
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" validate:"min=0"`
}

// Database is an object store backend that also supports the admin commands.
type Database interface {
	gridfetch.Store
	gridfetch.Writer
	gridfetch.Migrator
}

// DetectType infers the backend type from the DSN scheme. It returns an
// empty string when the scheme is not recognised.
func DetectType(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return TypeMongoDB
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return TypePostgres
	case strings.HasPrefix(dsn, "file:"), strings.HasPrefix(dsn, ":memory:"),
		strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return TypeSQLite
	default:
		return ""
	}
}

// Connect establishes a connection to the configured backend.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	typ := DetectType(cfg.DSN)
	if typ == "" {
		typ = cfg.Type
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		db  Database
		err error
	)
	switch typ {
	case TypeMongoDB:
		db, err = connectMongoDB(ctx, cfg.DSN, timeout)
	case TypePostgres:
		db, err = connectPostgres(ctx, cfg.DSN)
	case TypeSQLite:
		db, err = connectSQLite(ctx, cfg.DSN)
	default:
		return nil, gridfetch.NewConnectError(gridfetch.ReasonBadArguments,
			fmt.Errorf("unsupported database type %q", typ))
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

func connectMongoDB(ctx context.Context, uri string, timeout time.Duration) (Database, error) {
	db, err := mongodb.Connect(ctx, uri, timeout)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func connectPostgres(ctx context.Context, dsn string) (Database, error) {
	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func connectSQLite(ctx context.Context, dsn string) (Database, error) {
	db, err := sqlite.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Dialer returns a gridfetch.Dialer that connects to the backend address it
// is given, using cfg for everything else.
func Dialer(cfg Config) gridfetch.Dialer {
	return func(ctx context.Context, backend string) (gridfetch.Store, error) {
		c := cfg
		c.DSN = backend
		db, err := Connect(ctx, c)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}
