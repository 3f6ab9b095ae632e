package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database"
	gridhttp "github.com/sagarc03/gridfetch/http"
)

// DefaultDSN is the backend used when neither config nor flags name one.
const DefaultDSN = "mongodb://localhost:27017"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for gridfetch.
type Config struct {
	Server   ServerConfig        `mapstructure:"server" yaml:"server"`
	Service  ServiceConfig       `mapstructure:"service" yaml:"service"`
	Database database.Config     `mapstructure:"database" yaml:"database"`
	Routes   []RouteConfig       `mapstructure:"routes" yaml:"routes" validate:"required,min=1,dive"`
	CORS     gridhttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Metrics  MetricsConfig       `mapstructure:"metrics" yaml:"metrics"`
	Log      LogConfig           `mapstructure:"log" yaml:"log"`

	locations []gridfetch.Location
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port              int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"min=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
	ChunkReadTimeout  time.Duration `mapstructure:"chunk_read_timeout" yaml:"chunk_read_timeout" validate:"min=0"`
	ChunkWriteTimeout time.Duration `mapstructure:"chunk_write_timeout" yaml:"chunk_write_timeout" validate:"min=0"`
}

// ServiceConfig holds lookup and connection pool configuration.
type ServiceConfig struct {
	LookupTimeout time.Duration `mapstructure:"lookup_timeout" yaml:"lookup_timeout" validate:"min=0"`
	MaxInFlight   int           `mapstructure:"max_in_flight" yaml:"max_in_flight" validate:"min=0"`
}

// RouteConfig is one served location as written in the config file. Unset
// values are inherited from the enclosing route, then from the defaults.
type RouteConfig struct {
	Prefix         string        `mapstructure:"prefix" yaml:"prefix" validate:"required,startswith=/,endswith=/"`
	Database       string        `mapstructure:"database" yaml:"database,omitempty"`
	RootCollection string        `mapstructure:"root_collection" yaml:"root_collection,omitempty"`
	Field          string        `mapstructure:"field" yaml:"field,omitempty" validate:"omitempty,oneof=_id filename"`
	Type           string        `mapstructure:"type" yaml:"type,omitempty"`
	Backend        string        `mapstructure:"backend" yaml:"backend,omitempty"`
	DefaultType    string        `mapstructure:"default_type" yaml:"default_type,omitempty"`
	Locations      []RouteConfig `mapstructure:"locations" yaml:"locations,omitempty" validate:"dive"`
}

// MetricsConfig holds Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// Location converts the route and its nested routes to an unmerged
// gridfetch.Location.
func (r RouteConfig) Location() (gridfetch.Location, error) {
	typ, err := gridfetch.ParseFieldType(r.Type)
	if err != nil {
		return gridfetch.Location{}, fmt.Errorf("route %s: %w", r.Prefix, err)
	}

	loc := gridfetch.Location{
		Prefix:         r.Prefix,
		Database:       r.Database,
		RootCollection: r.RootCollection,
		Field:          gridfetch.Field(r.Field),
		Type:           typ,
		Backend:        r.Backend,
		DefaultType:    r.DefaultType,
	}

	for _, child := range r.Locations {
		c, err := child.Location()
		if err != nil {
			return gridfetch.Location{}, err
		}
		loc.Locations = append(loc.Locations, c)
	}

	return loc, nil
}

// Locations returns the merged route tree built when the config was loaded.
func (c *Config) Locations() []gridfetch.Location {
	return c.locations
}

// Backends returns the distinct backend addresses the routes read from,
// with the default backend first.
func (c *Config) Backends() []string {
	seen := map[string]bool{c.Database.DSN: true}
	out := []string{c.Database.DSN}
	for _, root := range c.locations {
		for _, loc := range root.Flatten() {
			if loc.Backend != "" && !seen[loc.Backend] {
				seen[loc.Backend] = true
				out = append(out, loc.Backend)
			}
		}
	}
	return out
}

// buildLocations merges every route tree and rejects duplicate prefixes.
func (c *Config) buildLocations() error {
	locations := make([]gridfetch.Location, 0, len(c.Routes))
	prefixes := make(map[string]bool)

	for _, route := range c.Routes {
		loc, err := route.Location()
		if err != nil {
			return err
		}
		merged, err := loc.Merge(nil)
		if err != nil {
			return err
		}
		for _, l := range merged.Flatten() {
			if prefixes[l.Prefix] {
				return fmt.Errorf("route %s: %w: duplicate prefix", l.Prefix, gridfetch.ErrInvalidInput)
			}
			prefixes[l.Prefix] = true
		}
		locations = append(locations, merged)
	}

	c.locations = locations
	return nil
}

// Dump writes the effective configuration as YAML with credentials in
// connection strings masked.
func (c *Config) Dump(w io.Writer) error {
	out := *c
	out.Database.DSN = redact(out.Database.DSN)
	out.Routes = redactRoutes(c.Routes)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func redactRoutes(routes []RouteConfig) []RouteConfig {
	if routes == nil {
		return nil
	}
	out := make([]RouteConfig, len(routes))
	for i, r := range routes {
		r.Backend = redact(r.Backend)
		r.Locations = redactRoutes(r.Locations)
		out[i] = r
	}
	return out
}

func redact(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	return u.Redacted()
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":       "database.type",
	"db-dsn":        "database.dsn",
	"port":          "server.port",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"max-in-flight": "service.max_in_flight",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.chunk_read_timeout", "30s")
	v.SetDefault("server.chunk_write_timeout", "30s")

	v.SetDefault("service.lookup_timeout", "10s")
	v.SetDefault("service.max_in_flight", gridfetch.DefaultMaxInFlight)

	v.SetDefault("database.type", "")
	v.SetDefault("database.dsn", DefaultDSN)
	v.SetDefault("database.connect_timeout", "10s")

	v.SetDefault("routes", []map[string]any{
		{"prefix": "/" + gridfetch.DefaultDatabase + "/"},
	})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct with its
// routes merged.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFiles[0], err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge config file %s: %w", cf, err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("GRIDFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// 7. Merge route inheritance and check field/type combinations
	if err := cfg.buildLocations(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
