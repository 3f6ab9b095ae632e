package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/metrics"
)

// Service resolves a route and raw request key to an open stored object.
type Service interface {
	Open(ctx context.Context, loc gridfetch.Location, raw string) (gridfetch.Object, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age" validate:"min=0"`
}

type HandlerConfig struct {
	// Routes are merged locations. Nested locations are registered too.
	Routes []gridfetch.Location
	CORS   CORSConfig
	// ChunkReadTimeout bounds each chunk read from the backend.
	ChunkReadTimeout time.Duration
	// ChunkWriteTimeout bounds each chunk write to the client.
	ChunkWriteTimeout time.Duration
	// MetricsPath serves Prometheus metrics when set.
	MetricsPath string
}

// Handler serves stored objects over HTTP.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with one GET route per configured location.
// Requests to other methods on a route get 405, unknown paths get 404.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(metrics.Middleware())

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	if h.config.MetricsPath != "" {
		r.Method(http.MethodGet, h.config.MetricsPath, metrics.Handler())
	}

	for _, root := range h.config.Routes {
		for _, loc := range root.Flatten() {
			r.Get(loc.Prefix+"*", h.handleGet(loc))
		}
	}

	prefixes := routePrefixes(h)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeUnknownRoute(w, r.URL.Path, prefixes)
	})

	return r
}

func (h *Handler) handleGet(loc gridfetch.Location) http.HandlerFunc {
	prefix := (&url.URL{Path: loc.Prefix}).EscapedPath()

	return func(w http.ResponseWriter, r *http.Request) {
		escaped := r.URL.EscapedPath()
		if len(escaped) < len(prefix) || !strings.HasPrefix(escaped, prefix) {
			HandleError(w, fmt.Errorf("route %s: %w: %s", loc.Prefix, ErrPrefixMismatch, escaped))
			return
		}
		raw := escaped[len(prefix):]

		start := time.Now()
		obj, err := h.service.Open(r.Context(), loc, raw)
		observeLookup(start, err)
		if err != nil {
			HandleError(w, err)
			return
		}
		defer func() { _ = obj.Close() }()

		// Open already decoded raw successfully.
		decoded, _ := gridfetch.DecodeKey(raw)

		ow := NewObjectWriter(w, decoded, loc.DefaultType, h.config.ChunkWriteTimeout)
		stats, err := gridfetch.Stream(r.Context(), obj, ow, gridfetch.StreamOptions{
			ReadTimeout: h.config.ChunkReadTimeout,
		})
		if err == nil {
			return
		}

		if !stats.HeaderSent {
			HandleError(w, err)
			return
		}

		abortStream(r, err, stats)
	}
}

func observeLookup(start time.Time, err error) {
	result := "found"
	switch {
	case err == nil:
	case errors.Is(err, gridfetch.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.LookupDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// abortStream ends a response whose status line was already sent. The
// connection is torn down so the client sees a truncated body, never a
// complete one.
func abortStream(r *http.Request, err error, stats gridfetch.StreamStats) {
	op := "read"
	var se *gridfetch.StreamError
	if errors.As(err, &se) {
		op = se.Op
	}
	metrics.StreamsAborted.WithLabelValues(op).Inc()

	level := slog.LevelError
	if errors.Is(err, context.Canceled) || errors.Is(err, gridfetch.ErrTransport) {
		level = slog.LevelWarn
	}
	slog.Log(r.Context(), level, "aborting stream",
		"request_id", RequestID(r.Context()),
		"path", r.URL.Path,
		"chunks", stats.Chunks,
		"bytes", stats.Bytes,
		"error", err,
	)

	panic(http.ErrAbortHandler)
}
